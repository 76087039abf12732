// internal/cache/action_log.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// GameActionRecord is one entry of a room's action history. ActionIndex is the
// room version after the action, so records of one room are totally ordered.
type GameActionRecord struct {
	RoomID        string                 `json:"roomId"`
	ActionIndex   uint64                 `json:"actionIndex"`
	ActorID       string                 `json:"actorId,omitempty"` // empty for room-level events
	ActionType    string                 `json:"actionType"`
	ActionPayload map[string]interface{} `json:"actionPayload"`
	Timestamp     int64                  `json:"timestamp"` // unix millis
}

// ActionLog pushes records onto a Redis list for an external consumer.
type ActionLog struct {
	rdb *redis.Client
	key string
}

// NewActionLog returns an ActionLog writing to <prefix>action_log.
func NewActionLog(rdb *redis.Client, prefix string) *ActionLog {
	return &ActionLog{rdb: rdb, key: prefix + "action_log"}
}

// Key returns the list the log writes to.
func (l *ActionLog) Key() string { return l.key }

// PublishGameAction LPUSHes rec, so consumers BRPOP in publish order.
func (l *ActionLog) PublishGameAction(ctx context.Context, rec GameActionRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal action record: %w", err)
	}
	if err := l.rdb.LPush(ctx, l.key, b).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", l.key, err)
	}
	return nil
}
