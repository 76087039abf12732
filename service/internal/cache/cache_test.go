package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	engine "github.com/jason-s-yu/uno/engine"
	"github.com/jason-s-yu/uno/service/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := Connect(context.Background(), Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestConnectFailsWithoutServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := Connect(ctx, Options{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestRoomStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	s := NewRoomStore(rdb, "uno:", 0)

	_, err := s.Load(ctx, "ABCD")
	assert.ErrorIs(t, err, store.ErrNotFound)

	g := engine.NewRoom("ABCD", 2, engine.DefaultRules())
	g, _, err = engine.Apply(g, engine.Intent{Type: engine.IntentJoin, PlayerID: "p1", PlayerName: "Ann"})
	require.NoError(t, err)
	g, _, err = engine.Apply(g, engine.Intent{Type: engine.IntentJoin, PlayerID: "p2", PlayerName: "Bo"})
	require.NoError(t, err)
	g, _, err = engine.Apply(g, engine.Intent{Type: engine.IntentStart, Seed: 5})
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, g))
	assert.True(t, mr.Exists("uno:room:ABCD"))

	got, err := s.Load(ctx, "ABCD")
	require.NoError(t, err)
	assert.Equal(t, g.Deck, got.Deck)
	assert.Equal(t, g.Version, got.Version)
	assert.Equal(t, engine.DeckSize, got.CardCount())

	require.NoError(t, s.Delete(ctx, "ABCD"))
	assert.False(t, mr.Exists("uno:room:ABCD"))
}

func TestRoomStoreTTL(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	s := NewRoomStore(rdb, "t:", time.Hour)

	require.NoError(t, s.Save(ctx, engine.NewRoom("X", 2, engine.DefaultRules())))
	assert.Equal(t, time.Hour, mr.TTL("t:room:X"))

	mr.FastForward(2 * time.Hour)
	_, err := s.Load(ctx, "X")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRoomStoreCorruptDocument(t *testing.T) {
	mr, rdb := newTestRedis(t)
	require.NoError(t, mr.Set("uno:room:BAD", "{not json"))
	_, err := NewRoomStore(rdb, "uno:", 0).Load(context.Background(), "BAD")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

func TestPublishGameAction(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	log := NewActionLog(rdb, "uno:")
	assert.Equal(t, "uno:action_log", log.Key())

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, log.PublishGameAction(ctx, GameActionRecord{
			RoomID:        "ABCD",
			ActionIndex:   i,
			ActorID:       "p1",
			ActionType:    "play",
			ActionPayload: map[string]interface{}{"n": i},
			Timestamp:     time.Now().UnixMilli(),
		}))
	}

	items, err := mr.List("uno:action_log")
	require.NoError(t, err)
	require.Len(t, items, 3)

	// LPUSH puts the newest record at the head.
	var newest GameActionRecord
	require.NoError(t, json.Unmarshal([]byte(items[0]), &newest))
	assert.Equal(t, uint64(3), newest.ActionIndex)
	assert.Equal(t, "ABCD", newest.RoomID)
}
