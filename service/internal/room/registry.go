// Package room owns the in-memory room states. The Registry hands out one
// room at a time per id (callers hold its lock for the whole intent), loads
// rooms from the durable store on a miss, and drives the WriteBack so that
// every committed state is eventually persisted.
package room

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	engine "github.com/jason-s-yu/uno/engine"
	"github.com/jason-s-yu/uno/service/internal/store"
	"github.com/sirupsen/logrus"
)

// ErrRoomNotFound is returned by Acquire when the room exists neither in memory
// nor in the store and no constructor was given.
var ErrRoomNotFound = errors.New("room not found")

type entry struct {
	mu      sync.Mutex
	state   engine.GameState
	loaded  bool
	removed bool // dropped from the registry; holders must retry
}

// Registry maps room ids to live room state.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*entry

	store       store.RoomStore // may be nil
	writeBack   *WriteBack      // may be nil
	loadTimeout time.Duration
	log         *logrus.Entry
}

// NewRegistry returns a Registry backed by s and wb. Either may be nil for a
// purely in-memory registry.
func NewRegistry(s store.RoomStore, wb *WriteBack, loadTimeout time.Duration, log *logrus.Entry) *Registry {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if loadTimeout <= 0 {
		loadTimeout = 3 * time.Second
	}
	return &Registry{
		rooms:       make(map[string]*entry),
		store:       s,
		writeBack:   wb,
		loadTimeout: loadTimeout,
		log:         log.WithField("component", "registry"),
	}
}

// Handle is exclusive access to one room. It must be released exactly once.
type Handle struct {
	reg  *Registry
	e    *entry
	id   string
	done bool
}

// Acquire locks roomID and returns a Handle to it. On a miss the durable store
// is consulted; if that also misses, create builds a new room, or
// ErrRoomNotFound is returned when create is nil.
func (r *Registry) Acquire(ctx context.Context, roomID string, create func() engine.GameState) (*Handle, error) {
	for {
		r.mu.Lock()
		e := r.rooms[roomID]
		if e == nil {
			e = &entry{}
			r.rooms[roomID] = e
		}
		r.mu.Unlock()

		e.mu.Lock()
		if e.removed {
			e.mu.Unlock()
			continue
		}
		if e.loaded {
			return &Handle{reg: r, e: e, id: roomID}, nil
		}

		state, found, err := r.load(ctx, roomID)
		if err != nil {
			r.dropLocked(roomID, e)
			e.mu.Unlock()
			return nil, err
		}
		if !found {
			if create == nil {
				r.dropLocked(roomID, e)
				e.mu.Unlock()
				return nil, ErrRoomNotFound
			}
			state = create()
			state.RoomID = roomID
		}
		e.state = state
		e.loaded = true
		return &Handle{reg: r, e: e, id: roomID}, nil
	}
}

// load reads roomID from the durable store. A store miss, a pending delete or a
// missing store all count as not found.
func (r *Registry) load(ctx context.Context, roomID string) (engine.GameState, bool, error) {
	if r.store == nil {
		return engine.GameState{}, false, nil
	}
	if r.writeBack != nil && r.writeBack.Deleting(roomID) {
		return engine.GameState{}, false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.loadTimeout)
	defer cancel()

	state, err := r.store.Load(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return engine.GameState{}, false, nil
	}
	if err != nil {
		return engine.GameState{}, false, fmt.Errorf("load room %s: %w", roomID, err)
	}
	if len(state.Players) == 0 {
		// Never resurrect an empty room.
		return engine.GameState{}, false, nil
	}
	state.RoomID = roomID
	r.log.WithField("room", roomID).Infof("Room %s: restored from store at version %d.", roomID, state.Version)
	return state, true, nil
}

// dropLocked removes e from the map. The caller holds e.mu.
func (r *Registry) dropLocked(roomID string, e *entry) {
	e.removed = true
	r.mu.Lock()
	if r.rooms[roomID] == e {
		delete(r.rooms, roomID)
	}
	r.mu.Unlock()
}

// Len returns the number of rooms held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// IDs returns the ids of the rooms held in memory, sorted.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// ID returns the room id.
func (h *Handle) ID() string { return h.id }

// State returns a copy of the current room state.
func (h *Handle) State() engine.GameState { return h.e.state.Clone() }

// Commit replaces the room state with next and schedules its write. A room
// left without players is deleted instead.
func (h *Handle) Commit(next engine.GameState) {
	h.e.state = next
	if len(next.Players) == 0 {
		h.Delete()
		return
	}
	if h.reg.writeBack != nil {
		h.reg.writeBack.Schedule(next)
	}
}

// Delete removes the room from memory and from the durable store. Any pending
// write is cancelled.
func (h *Handle) Delete() {
	if h.e.removed {
		return
	}
	h.reg.dropLocked(h.id, h.e)
	if h.reg.writeBack != nil {
		h.reg.writeBack.Delete(h.id)
	}
	h.reg.log.WithField("room", h.id).Infof("Room %s: deleted.", h.id)
}

// Release unlocks the room. A freshly created room that never received a
// player is discarded here.
func (h *Handle) Release() {
	if h.done {
		return
	}
	h.done = true
	if !h.e.removed && len(h.e.state.Players) == 0 {
		h.reg.dropLocked(h.id, h.e)
	}
	h.e.mu.Unlock()
}
