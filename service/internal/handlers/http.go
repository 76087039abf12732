// internal/handlers/http.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/jason-s-yu/uno/service/internal/database"
	"github.com/jason-s-yu/uno/service/internal/game"
	"github.com/jason-s-yu/uno/service/internal/room"
	"github.com/sirupsen/logrus"
)

const (
	defaultResultLimit = 20
	maxResultLimit     = 100
)

// RoomReader serves the read-only room endpoints.
type RoomReader interface {
	Snapshot(ctx context.Context, roomID string) (game.RoomSnapshot, error)
	RoomCount() int
}

// ResultLister lists finished games of a room.
type ResultLister interface {
	RecentResults(ctx context.Context, roomID string, limit int) ([]database.GameResult, error)
}

// NewRouter wires the HTTP surface: the websocket endpoint, a health check and
// the read-only room endpoints. results may be nil when no history database is
// configured.
func NewRouter(hub *Hub, rooms RoomReader, results ResultLister, log *logrus.Entry) http.Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "http")

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, log, http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"rooms":       rooms.RoomCount(),
			"connections": hub.Len(),
		})
	})

	mux.HandleFunc("GET /rooms/{id}", func(w http.ResponseWriter, r *http.Request) {
		snap, err := rooms.Snapshot(r.Context(), r.PathValue("id"))
		if errors.Is(err, room.ErrRoomNotFound) {
			writeError(w, log, http.StatusNotFound, "room not found")
			return
		}
		if err != nil {
			log.WithError(err).Errorf("Room %s: snapshot failed.", r.PathValue("id"))
			writeError(w, log, http.StatusServiceUnavailable, "room unavailable")
			return
		}
		writeJSON(w, log, http.StatusOK, snap)
	})

	mux.HandleFunc("GET /rooms/{id}/results", func(w http.ResponseWriter, r *http.Request) {
		if results == nil {
			writeError(w, log, http.StatusNotFound, "game history is not enabled")
			return
		}
		limit := defaultResultLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				writeError(w, log, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxResultLimit)
		}
		list, err := results.RecentResults(r.Context(), r.PathValue("id"), limit)
		if err != nil {
			log.WithError(err).Errorf("Room %s: listing results failed.", r.PathValue("id"))
			writeError(w, log, http.StatusServiceUnavailable, "history unavailable")
			return
		}
		if list == nil {
			list = []database.GameResult{}
		}
		writeJSON(w, log, http.StatusOK, list)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, log *logrus.Entry, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to write response.")
	}
}

func writeError(w http.ResponseWriter, log *logrus.Entry, status int, msg string) {
	writeJSON(w, log, status, map[string]string{"error": msg})
}
