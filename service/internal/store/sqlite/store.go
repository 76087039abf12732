// Package sqlite provides a SQLite-backed durable room store for single-node
// deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	engine "github.com/jason-s-yu/uno/engine"
	"github.com/jason-s-yu/uno/service/internal/store"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS rooms (
	room_id    TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	version    INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Store persists room documents in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ store.RoomStore = (*Store)(nil)

// Open opens (creating if needed) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Load returns the stored room, or store.ErrNotFound.
func (s *Store) Load(ctx context.Context, roomID string) (engine.GameState, error) {
	if err := ctx.Err(); err != nil {
		return engine.GameState{}, err
	}
	if s == nil || s.sqlDB == nil {
		return engine.GameState{}, fmt.Errorf("storage is not configured")
	}
	var doc string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT state FROM rooms WHERE room_id = ?`, roomID).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return engine.GameState{}, store.ErrNotFound
		}
		return engine.GameState{}, fmt.Errorf("load room %s: %w", roomID, err)
	}
	return store.Decode([]byte(doc))
}

// Save upserts the room document.
func (s *Store) Save(ctx context.Context, state engine.GameState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(state.RoomID) == "" {
		return fmt.Errorf("room id is required")
	}
	doc, err := store.Encode(state)
	if err != nil {
		return err
	}
	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO rooms (room_id, state, version, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(room_id) DO UPDATE SET
		   state = excluded.state,
		   version = excluded.version,
		   updated_at = excluded.updated_at`,
		state.RoomID,
		string(doc),
		int64(state.Version),
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save room %s: %w", state.RoomID, err)
	}
	return nil
}

// Delete removes the room document. Deleting a missing room is not an error.
func (s *Store) Delete(ctx context.Context, roomID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM rooms WHERE room_id = ?`, roomID); err != nil {
		return fmt.Errorf("delete room %s: %w", roomID, err)
	}
	return nil
}

// Count returns how many rooms are stored.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rooms: %w", err)
	}
	return n, nil
}
