// internal/store/store.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	engine "github.com/jason-s-yu/uno/engine"
)

// ErrNotFound is returned by Load when the store holds no record for the room.
var ErrNotFound = errors.New("room not found in store")

// RoomStore is the durable copy of room state, keyed by room id. It is only
// read when a room is missing from memory; gameplay never waits on it.
type RoomStore interface {
	Load(ctx context.Context, roomID string) (engine.GameState, error)
	Save(ctx context.Context, state engine.GameState) error
	Delete(ctx context.Context, roomID string) error
}

// Encode serializes a room exactly as the engine holds it.
func Encode(state engine.GameState) ([]byte, error) {
	b, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode room %s: %w", state.RoomID, err)
	}
	return b, nil
}

// Decode is the inverse of Encode.
func Decode(b []byte) (engine.GameState, error) {
	var state engine.GameState
	if err := json.Unmarshal(b, &state); err != nil {
		return engine.GameState{}, fmt.Errorf("decode room: %w", err)
	}
	return state, nil
}

// MemoryStore keeps encoded rooms in a map. It is the default when no durable
// backend is configured and the stand-in for one in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string][]byte

	// Hooks for tests; nil in normal use.
	FailSave func(roomID string) error
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string][]byte)}
}

func (m *MemoryStore) Load(ctx context.Context, roomID string) (engine.GameState, error) {
	if err := ctx.Err(); err != nil {
		return engine.GameState{}, err
	}
	m.mu.RLock()
	b, ok := m.rooms[roomID]
	m.mu.RUnlock()
	if !ok {
		return engine.GameState{}, ErrNotFound
	}
	return Decode(b)
}

func (m *MemoryStore) Save(ctx context.Context, state engine.GameState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.FailSave != nil {
		if err := m.FailSave(state.RoomID); err != nil {
			return err
		}
	}
	b, err := Encode(state)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.rooms[state.RoomID] = b
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, roomID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.rooms, roomID)
	m.mu.Unlock()
	return nil
}

// Has reports whether a record exists for roomID.
func (m *MemoryStore) Has(roomID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rooms[roomID]
	return ok
}

// Len returns the number of stored rooms.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
