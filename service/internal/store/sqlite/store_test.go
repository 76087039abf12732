package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	engine "github.com/jason-s-yu/uno/engine"
	"github.com/jason-s-yu/uno/service/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "rooms.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func waitingRoom(t *testing.T, id string) engine.GameState {
	t.Helper()
	g := engine.NewRoom(id, 3, engine.DefaultRules())
	var err error
	g, _, err = engine.Apply(g, engine.Intent{Type: engine.IntentJoin, PlayerID: "p1", PlayerName: "Ann"})
	require.NoError(t, err)
	return g
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestSaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	s := openTempStore(t)

	_, err := s.Load(ctx, "ROOM")
	assert.ErrorIs(t, err, store.ErrNotFound)

	g := waitingRoom(t, "ROOM")
	require.NoError(t, s.Save(ctx, g))

	got, err := s.Load(ctx, "ROOM")
	require.NoError(t, err)
	assert.Equal(t, "ROOM", got.RoomID)
	assert.Equal(t, 3, got.MaxPlayers)
	require.Len(t, got.Players, 1)
	assert.Equal(t, "Ann", got.Players[0].Name)

	// Upsert replaces the previous document.
	g, _, err = engine.Apply(g, engine.Intent{Type: engine.IntentJoin, PlayerID: "p2", PlayerName: "Bo"})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, g))
	got, err = s.Load(ctx, "ROOM")
	require.NoError(t, err)
	assert.Len(t, got.Players, 2)
	assert.Equal(t, g.Version, got.Version)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.Delete(ctx, "ROOM"))
	_, err = s.Load(ctx, "ROOM")
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, s.Delete(ctx, "ROOM"))
}

func TestReopenKeepsRooms(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rooms.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, waitingRoom(t, "KEEP")))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Load(ctx, "KEEP")
	require.NoError(t, err)
	assert.Equal(t, "KEEP", got.RoomID)
}

func TestSaveRequiresRoomID(t *testing.T) {
	s := openTempStore(t)
	assert.Error(t, s.Save(context.Background(), engine.NewRoom("", 2, engine.DefaultRules())))
}
