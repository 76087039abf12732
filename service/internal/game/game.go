// internal/game/game.go
package game

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	engine "github.com/jason-s-yu/uno/engine"
	"github.com/jason-s-yu/uno/service/internal/cache"
	"github.com/jason-s-yu/uno/service/internal/models"
	"github.com/jason-s-yu/uno/service/internal/room"
	"github.com/sirupsen/logrus"
)

// OnGameEndFunc is called once per finished game with the final room state.
type OnGameEndFunc func(state engine.GameState)

// GameEventType is the type of an event sent to clients.
type GameEventType string

const (
	EventRoomState     GameEventType = "room-state"     // Full snapshot, on join and on request.
	EventPlayerJoined  GameEventType = "player-joined"  // A new seat was taken.
	EventPlayerLeft    GameEventType = "player-left"    // A seat was given up.
	EventGameStarted   GameEventType = "game-started"   // Snapshot right after the deal.
	EventGameUpdated   GameEventType = "game-updated"   // Snapshot after any in-game mutation.
	EventInvalidMove   GameEventType = "invalid-move"   // Private: the requester's intent was rejected.
	EventGameOver      GameEventType = "game-over"      // Sent once when a game finishes.
	EventErrorJoining  GameEventType = "error-joining"  // Private: join or start failed.
	EventRoomDestroyed GameEventType = "room-destroyed" // The room was torn down.
)

// EventUser identifies a player within a GameEvent.
type EventUser struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// GameEvent is the envelope of every message sent to clients.
type GameEvent struct {
	Type    GameEventType          `json:"type"`
	RoomID  string                 `json:"roomId,omitempty"`
	User    *EventUser             `json:"user,omitempty"`
	Message string                 `json:"message,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	State   *RoomSnapshot          `json:"state,omitempty"`
}

// ActionPublisher receives the action history of every room.
type ActionPublisher interface {
	PublishGameAction(ctx context.Context, rec cache.GameActionRecord) error
}

// Options are the room defaults applied by the Manager.
type Options struct {
	DefaultMaxPlayers int
	MaxPlayersLimit   int
	Rules             engine.Rules
}

// Manager turns client intents into room transitions. Each intent runs with
// the room's lock held from lookup to the last event, so the events of one
// room go out in the order the states were committed.
type Manager struct {
	rooms *room.Registry
	opts  Options
	log   *logrus.Entry

	mu      sync.Mutex
	members map[string]map[string]struct{} // player id -> room ids

	// Communication callbacks. BroadcastToPlayerFn must not block.
	BroadcastToPlayerFn func(playerID string, ev GameEvent)
	OnGameEnd           OnGameEndFunc

	// Actions, if set, receives every committed action.
	Actions ActionPublisher

	// SeedFn returns the shuffle seed of a new game.
	SeedFn func() uint64
}

// NewManager returns a Manager over reg.
func NewManager(reg *room.Registry, opts Options, log *logrus.Entry) *Manager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.DefaultMaxPlayers <= 0 {
		opts.DefaultMaxPlayers = engine.DefaultMaxPlayers
	}
	if opts.MaxPlayersLimit < opts.DefaultMaxPlayers {
		opts.MaxPlayersLimit = opts.DefaultMaxPlayers
	}
	if opts.Rules == (engine.Rules{}) {
		opts.Rules = engine.DefaultRules()
	}
	return &Manager{
		rooms:   reg,
		opts:    opts,
		log:     log.WithField("component", "game"),
		members: make(map[string]map[string]struct{}),
		SeedFn:  func() uint64 { return uint64(time.Now().UnixNano()) },
	}
}

// HandlePlayerAction decodes one client message and routes it to the
// matching intent. Malformed payloads are rejected to the sender.
func (m *Manager) HandlePlayerAction(ctx context.Context, playerID string, action models.GameAction) {
	switch action.ActionType {
	case models.ActionJoinRoom:
		var p models.JoinRoomPayload
		if err := json.Unmarshal(action.Payload, &p); err != nil {
			m.rejectJoin(playerID, "", "Malformed join request.")
			return
		}
		m.Join(ctx, playerID, p)

	case models.ActionPlayCard:
		var p models.PlayCardPayload
		if err := json.Unmarshal(action.Payload, &p); err != nil {
			m.rejectMove(playerID, p.RoomID, "Invalid card played: "+err.Error())
			return
		}
		color := engine.ColorWild
		if p.Color != nil {
			color = *p.Color
		}
		m.PlayCard(ctx, playerID, p.RoomID, p.Card, color)

	case models.ActionGetRoomState, models.ActionStartGame, models.ActionDrawCard,
		models.ActionPenaltyDraw, models.ActionCallUno, models.ActionLeaveRoom,
		models.ActionPlayAgain, models.ActionDestroyRoom:
		var p models.RoomPayload
		if err := json.Unmarshal(action.Payload, &p); err != nil || p.RoomID == "" {
			m.rejectMove(playerID, p.RoomID, "A room id is required.")
			return
		}
		m.routeRoomAction(ctx, playerID, action.ActionType, p.RoomID)

	default:
		m.log.WithField("player", playerID).Warnf("Unknown action type '%s'.", action.ActionType)
		m.rejectMove(playerID, "", "Unknown action type.")
	}
}

func (m *Manager) routeRoomAction(ctx context.Context, playerID, actionType, roomID string) {
	switch actionType {
	case models.ActionGetRoomState:
		m.RoomState(ctx, playerID, roomID)
	case models.ActionStartGame:
		m.Start(ctx, playerID, roomID)
	case models.ActionDrawCard, models.ActionPenaltyDraw:
		m.DrawCard(ctx, playerID, roomID)
	case models.ActionCallUno:
		m.CallUno(ctx, playerID, roomID)
	case models.ActionLeaveRoom:
		m.Leave(ctx, playerID, roomID)
	case models.ActionPlayAgain:
		m.PlayAgain(ctx, playerID, roomID)
	case models.ActionDestroyRoom:
		m.DestroyRoom(ctx, playerID, roomID)
	}
}

// ---------------------------------------------------------------------------
// Membership index
// ---------------------------------------------------------------------------

func (m *Manager) addMember(playerID, roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs := m.members[playerID]
	if rs == nil {
		rs = make(map[string]struct{})
		m.members[playerID] = rs
	}
	rs[roomID] = struct{}{}
}

func (m *Manager) removeMember(playerID, roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rs := m.members[playerID]; rs != nil {
		delete(rs, roomID)
		if len(rs) == 0 {
			delete(m.members, playerID)
		}
	}
}

// RoomsOf returns the rooms playerID is seated in, sorted.
func (m *Manager) RoomsOf(playerID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.members[playerID]))
	for id := range m.members[playerID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RoomCount returns the number of rooms held in memory.
func (m *Manager) RoomCount() int { return m.rooms.Len() }

// ---------------------------------------------------------------------------
// Event helpers. Callers hold the room lock.
// ---------------------------------------------------------------------------

// fireEventToPlayer sends ev to one player.
func (m *Manager) fireEventToPlayer(playerID string, ev GameEvent) {
	if m.BroadcastToPlayerFn == nil {
		m.log.Warnf("BroadcastToPlayerFn is nil, cannot send event type %s to player %s.", ev.Type, playerID)
		return
	}
	m.BroadcastToPlayerFn(playerID, ev)
}

// fireEvent sends the same event to every player seated in state.
func (m *Manager) fireEvent(state engine.GameState, ev GameEvent) {
	ev.RoomID = state.RoomID
	for _, p := range state.Players {
		m.fireEventToPlayer(p.ID, ev)
	}
}

// broadcastState sends each seated player the snapshot of state as they may
// see it.
func (m *Manager) broadcastState(state engine.GameState, typ GameEventType, payload map[string]interface{}) {
	for _, p := range state.Players {
		snap := Project(state, p.ID)
		m.fireEventToPlayer(p.ID, GameEvent{Type: typ, RoomID: state.RoomID, Payload: payload, State: &snap})
	}
}

func (m *Manager) rejectMove(playerID, roomID, msg string) {
	m.fireEventToPlayer(playerID, GameEvent{Type: EventInvalidMove, RoomID: roomID, Message: msg})
}

func (m *Manager) rejectJoin(playerID, roomID, msg string) {
	m.fireEventToPlayer(playerID, GameEvent{Type: EventErrorJoining, RoomID: roomID, Message: msg})
}

// logAction publishes one committed action. The publish runs in its own
// goroutine with a short timeout and never delays the room.
func (m *Manager) logAction(state engine.GameState, actorID, actionType string, payload map[string]interface{}) {
	if m.Actions == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.GameActionRecord{
		RoomID:        state.RoomID,
		ActionIndex:   state.Version,
		ActorID:       actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func(rec cache.GameActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := m.Actions.PublishGameAction(ctx, rec); err != nil {
			m.log.WithError(err).Errorf("Room %s: failed publishing action %d ('%s').", rec.RoomID, rec.ActionIndex, rec.ActionType)
		}
	}(record)
}

// endGame announces the winner and runs the OnGameEnd callback.
func (m *Manager) endGame(state engine.GameState) {
	var winner *EventUser
	if state.Winner != nil {
		winner = &EventUser{ID: state.Winner.ID, Name: state.Winner.Name}
	}
	m.fireEvent(state, GameEvent{
		Type:    EventGameOver,
		User:    winner,
		Payload: map[string]interface{}{"winner": winner, "points": state.Score()},
	})
	m.log.WithField("room", state.RoomID).Infof("Room %s: game over, winner %v.", state.RoomID, winner)
	m.logAction(state, "", string(EventGameOver), map[string]interface{}{"winner": winner, "points": state.Score()})
	if m.OnGameEnd != nil {
		m.OnGameEnd(state.Clone())
	}
}
