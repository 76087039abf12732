// internal/database/results.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	engine "github.com/jason-s-yu/uno/engine"
)

// ResultPlayer is one seat in a finished game.
type ResultPlayer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CardsLeft int    `json:"cardsLeft"`
}

// GameResult is the history record of one finished game.
type GameResult struct {
	ID         uuid.UUID      `json:"id"`
	RoomID     string         `json:"roomId"`
	WinnerID   string         `json:"winnerId"`
	WinnerName string         `json:"winnerName"`
	Points     int            `json:"points"`
	Players    []ResultPlayer `json:"players"`
	Version    uint64         `json:"version"`
	FinishedAt time.Time      `json:"finishedAt"`
}

// NewGameResult summarizes a finished room. The winner may already have left
// the table (forced end), so it is read from state.Winner.
func NewGameResult(state engine.GameState, finishedAt time.Time) GameResult {
	res := GameResult{
		ID:         uuid.New(),
		RoomID:     state.RoomID,
		Players:    make([]ResultPlayer, 0, len(state.Players)),
		Points:     state.Score(),
		Version:    state.Version,
		FinishedAt: finishedAt.UTC(),
	}
	if state.Winner != nil {
		res.WinnerID = state.Winner.ID
		res.WinnerName = state.Winner.Name
	}
	for _, p := range state.Players {
		res.Players = append(res.Players, ResultPlayer{ID: p.ID, Name: p.Name, CardsLeft: len(p.Hand)})
	}
	return res
}

const createResultsTable = `CREATE TABLE IF NOT EXISTS game_results (
	id          UUID PRIMARY KEY,
	room_id     TEXT NOT NULL,
	winner_id   TEXT NOT NULL,
	winner_name TEXT NOT NULL,
	points      INTEGER NOT NULL DEFAULT 0,
	players     JSONB NOT NULL,
	version     BIGINT NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS game_results_room_idx ON game_results (room_id, finished_at DESC)`

// ResultStore records finished games in Postgres.
type ResultStore struct {
	pool *pgxpool.Pool
}

// NewResultStore wraps pool.
func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// Migrate creates the results table if it does not exist.
func (s *ResultStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createResultsTable); err != nil {
		return fmt.Errorf("create game_results: %w", err)
	}
	return nil
}

// RecordResult inserts one finished game.
func (s *ResultStore) RecordResult(ctx context.Context, res GameResult) error {
	players, err := json.Marshal(res.Players)
	if err != nil {
		return fmt.Errorf("marshal players: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO game_results (id, room_id, winner_id, winner_name, points, players, version, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		res.ID, res.RoomID, res.WinnerID, res.WinnerName, res.Points, players, int64(res.Version), res.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert game result for room %s: %w", res.RoomID, err)
	}
	return nil
}

// RecentResults returns up to limit results for roomID, newest first.
func (s *ResultStore) RecentResults(ctx context.Context, roomID string, limit int) ([]GameResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, room_id, winner_id, winner_name, points, players, version, finished_at
		   FROM game_results
		  WHERE room_id = $1
		  ORDER BY finished_at DESC
		  LIMIT $2`,
		roomID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query game results: %w", err)
	}
	return pgx.CollectRows(rows, scanResult)
}

func scanResult(row pgx.CollectableRow) (GameResult, error) {
	var (
		res     GameResult
		players []byte
		version int64
	)
	if err := row.Scan(&res.ID, &res.RoomID, &res.WinnerID, &res.WinnerName, &res.Points, &players, &version, &res.FinishedAt); err != nil {
		return GameResult{}, err
	}
	if err := json.Unmarshal(players, &res.Players); err != nil {
		return GameResult{}, fmt.Errorf("decode players: %w", err)
	}
	res.Version = uint64(version)
	return res, nil
}
