// internal/cache/room_store.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	engine "github.com/jason-s-yu/uno/engine"
	"github.com/jason-s-yu/uno/service/internal/store"
	"github.com/redis/go-redis/v9"
)

// RoomStore keeps one JSON document per room at <prefix>room:<id>.
type RoomStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration // 0 keeps documents forever
}

var _ store.RoomStore = (*RoomStore)(nil)

// NewRoomStore returns a RoomStore using rdb. Documents expire after ttl
// without a save; a zero ttl disables expiry.
func NewRoomStore(rdb *redis.Client, prefix string, ttl time.Duration) *RoomStore {
	return &RoomStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RoomStore) key(roomID string) string {
	return s.prefix + "room:" + roomID
}

func (s *RoomStore) Load(ctx context.Context, roomID string) (engine.GameState, error) {
	b, err := s.rdb.Get(ctx, s.key(roomID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return engine.GameState{}, store.ErrNotFound
		}
		return engine.GameState{}, fmt.Errorf("redis get room %s: %w", roomID, err)
	}
	return store.Decode(b)
}

func (s *RoomStore) Save(ctx context.Context, state engine.GameState) error {
	b, err := store.Encode(state)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key(state.RoomID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set room %s: %w", state.RoomID, err)
	}
	return nil
}

func (s *RoomStore) Delete(ctx context.Context, roomID string) error {
	if err := s.rdb.Del(ctx, s.key(roomID)).Err(); err != nil {
		return fmt.Errorf("redis del room %s: %w", roomID, err)
	}
	return nil
}
