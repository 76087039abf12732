// internal/game/engine_adapter.go
package game

import (
	"context"
	"errors"

	engine "github.com/jason-s-yu/uno/engine"
	"github.com/jason-s-yu/uno/service/internal/models"
	"github.com/jason-s-yu/uno/service/internal/room"
)

// applyIntent runs in against the room held by h and commits the result. On
// error nothing is committed.
func (m *Manager) applyIntent(h *room.Handle, in engine.Intent) (engine.GameState, engine.Outcome, error) {
	next, out, err := engine.Apply(h.State(), in)
	if err != nil {
		return next, out, err
	}
	h.Commit(next)
	return next, out, nil
}

// acquire locks an existing room. A miss is reported to the requester through
// reject and returns nil.
func (m *Manager) acquire(ctx context.Context, playerID, roomID string, reject func(playerID, roomID, msg string)) *room.Handle {
	h, err := m.rooms.Acquire(ctx, roomID, nil)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			reject(playerID, roomID, "Room not found.")
		} else {
			m.log.WithError(err).Errorf("Room %s: failed to load.", roomID)
			reject(playerID, roomID, "Room is unavailable, try again.")
		}
		return nil
	}
	return h
}

// clampMaxPlayers maps a requested room size onto [MinPlayers, MaxPlayersLimit].
func (m *Manager) clampMaxPlayers(n int) int {
	switch {
	case n <= 0:
		return m.opts.DefaultMaxPlayers
	case n < engine.MinPlayers:
		return engine.MinPlayers
	case n > m.opts.MaxPlayersLimit:
		return m.opts.MaxPlayersLimit
	}
	return n
}

// Join seats playerID in the room, creating it on first join. The room state
// goes to every member, followed by player-joined. A join that fills the room
// starts the game.
func (m *Manager) Join(ctx context.Context, playerID string, p models.JoinRoomPayload) {
	if p.RoomID == "" || p.PlayerName == "" {
		m.rejectJoin(playerID, p.RoomID, "Room ID and player name are required.")
		return
	}
	maxPlayers := m.clampMaxPlayers(p.MaxPlayers)
	h, err := m.rooms.Acquire(ctx, p.RoomID, func() engine.GameState {
		return engine.NewRoom(p.RoomID, maxPlayers, m.opts.Rules)
	})
	if err != nil {
		m.log.WithError(err).Errorf("Room %s: failed to open for player %s.", p.RoomID, playerID)
		m.rejectJoin(playerID, p.RoomID, "Failed to join room.")
		return
	}
	defer h.Release()

	next, out, err := m.applyIntent(h, engine.Intent{Type: engine.IntentJoin, PlayerID: playerID, PlayerName: p.PlayerName})
	if err != nil {
		m.rejectJoin(playerID, p.RoomID, err.Error())
		return
	}
	m.addMember(playerID, p.RoomID)

	if out.Rejoined {
		snap := Project(next, playerID)
		m.fireEventToPlayer(playerID, GameEvent{Type: EventRoomState, RoomID: next.RoomID, State: &snap})
		return
	}

	m.log.WithField("room", next.RoomID).Infof("Room %s: player %s (%s) joined, %d/%d seats.",
		next.RoomID, playerID, p.PlayerName, len(next.Players), next.MaxPlayers)
	m.logAction(next, playerID, string(EventPlayerJoined), map[string]interface{}{"name": p.PlayerName})

	m.broadcastState(next, EventRoomState, nil)
	for _, seat := range next.Players {
		snap := Project(next, seat.ID)
		m.fireEventToPlayer(seat.ID, GameEvent{
			Type:   EventPlayerJoined,
			RoomID: next.RoomID,
			User:   &EventUser{ID: playerID, Name: p.PlayerName},
			State:  &snap,
		})
	}

	if out.Full {
		m.startLocked(h, next, playerID)
	}
}

// RoomState sends the current snapshot of roomID to the requester only.
func (m *Manager) RoomState(ctx context.Context, playerID, roomID string) {
	h := m.acquire(ctx, playerID, roomID, m.rejectMove)
	if h == nil {
		return
	}
	defer h.Release()
	snap := Project(h.State(), playerID)
	m.fireEventToPlayer(playerID, GameEvent{Type: EventRoomState, RoomID: roomID, State: &snap})
}

// Start deals a new game in roomID. Only a seated player may start it.
func (m *Manager) Start(ctx context.Context, playerID, roomID string) {
	h := m.acquire(ctx, playerID, roomID, m.rejectJoin)
	if h == nil {
		return
	}
	defer h.Release()
	state := h.State()
	if state.PlayerIndex(playerID) < 0 {
		m.rejectJoin(playerID, roomID, engine.ErrPlayerNotFound.Error())
		return
	}
	m.startLocked(h, state, playerID)
}

// startLocked applies the start intent. Failures go to the requester as
// error-joining.
func (m *Manager) startLocked(h *room.Handle, state engine.GameState, playerID string) {
	seed := m.SeedFn()
	next, _, err := m.applyIntent(h, engine.Intent{Type: engine.IntentStart, PlayerID: playerID, Seed: seed})
	if err != nil {
		m.rejectJoin(playerID, state.RoomID, err.Error())
		return
	}
	m.log.WithField("room", next.RoomID).Infof("Room %s: game started with %d players.", next.RoomID, len(next.Players))
	m.logAction(next, playerID, string(EventGameStarted), map[string]interface{}{
		"players": len(next.Players),
		"seed":    seed,
	})
	m.broadcastState(next, EventGameStarted, nil)
	m.broadcastState(next, EventGameUpdated, nil)
}

// PlayCard plays card from the requester's hand. color is the colour named by
// a wild and is ignored otherwise.
func (m *Manager) PlayCard(ctx context.Context, playerID, roomID string, card engine.Card, color engine.Color) {
	h := m.acquire(ctx, playerID, roomID, m.rejectMove)
	if h == nil {
		return
	}
	defer h.Release()
	next, out, err := m.applyIntent(h, engine.Intent{Type: engine.IntentPlay, PlayerID: playerID, Card: card, Color: color})
	if err != nil {
		m.rejectMove(playerID, roomID, err.Error())
		return
	}
	m.afterMove(next, out, playerID, "play")
}

// DrawCard draws for the requester: one card, or the whole pending stack.
func (m *Manager) DrawCard(ctx context.Context, playerID, roomID string) {
	h := m.acquire(ctx, playerID, roomID, m.rejectMove)
	if h == nil {
		return
	}
	defer h.Release()
	next, out, err := m.applyIntent(h, engine.Intent{Type: engine.IntentDraw, PlayerID: playerID})
	if err != nil {
		m.rejectMove(playerID, roomID, err.Error())
		return
	}
	m.afterMove(next, out, playerID, "draw")
}

// CallUno records the requester's UNO call.
func (m *Manager) CallUno(ctx context.Context, playerID, roomID string) {
	h := m.acquire(ctx, playerID, roomID, m.rejectMove)
	if h == nil {
		return
	}
	defer h.Release()
	next, out, err := m.applyIntent(h, engine.Intent{Type: engine.IntentCallUno, PlayerID: playerID})
	if err != nil {
		m.rejectMove(playerID, roomID, err.Error())
		return
	}
	m.afterMove(next, out, playerID, "call_uno")
}

// afterMove broadcasts an in-game mutation and ends the game when it finished.
func (m *Manager) afterMove(next engine.GameState, out engine.Outcome, playerID, action string) {
	payload := outcomePayload(out, playerID)
	m.logAction(next, playerID, action, payload)
	m.broadcastState(next, EventGameUpdated, payload)
	if out.Finished {
		m.endGame(next)
	}
}

// Leave removes the requester from roomID. The room is deleted when its last
// player leaves.
func (m *Manager) Leave(ctx context.Context, playerID, roomID string) {
	h := m.acquire(ctx, playerID, roomID, m.rejectMove)
	if h == nil {
		m.removeMember(playerID, roomID)
		return
	}
	defer h.Release()
	m.leaveLocked(h, playerID)
}

func (m *Manager) leaveLocked(h *room.Handle, playerID string) {
	roomID := h.ID()
	next, out, err := m.applyIntent(h, engine.Intent{Type: engine.IntentLeave, PlayerID: playerID})
	m.removeMember(playerID, roomID)
	if err != nil {
		m.rejectMove(playerID, roomID, err.Error())
		return
	}
	m.log.WithField("room", roomID).Infof("Room %s: player %s left, %d remaining.", roomID, playerID, len(next.Players))
	m.logAction(next, playerID, string(EventPlayerLeft), nil)
	if out.Emptied {
		return
	}

	m.fireEvent(next, GameEvent{Type: EventPlayerLeft, User: &EventUser{ID: playerID}})
	if next.Started {
		m.broadcastState(next, EventGameUpdated, nil)
	} else {
		m.broadcastState(next, EventRoomState, nil)
	}
	if out.Finished {
		m.endGame(next)
	}
}

// Disconnect removes playerID from every room it is seated in.
func (m *Manager) Disconnect(ctx context.Context, playerID string) {
	for _, roomID := range m.RoomsOf(playerID) {
		h, err := m.rooms.Acquire(ctx, roomID, nil)
		if err != nil {
			m.removeMember(playerID, roomID)
			continue
		}
		state := h.State()
		if state.PlayerIndex(playerID) >= 0 {
			m.leaveLocked(h, playerID)
		} else {
			m.removeMember(playerID, roomID)
		}
		h.Release()
	}
}

// PlayAgain returns a finished room to the waiting phase with the same seats.
func (m *Manager) PlayAgain(ctx context.Context, playerID, roomID string) {
	h := m.acquire(ctx, playerID, roomID, m.rejectMove)
	if h == nil {
		return
	}
	defer h.Release()
	state := h.State()
	if state.PlayerIndex(playerID) < 0 {
		m.rejectMove(playerID, roomID, engine.ErrPlayerNotFound.Error())
		return
	}
	next, _, err := m.applyIntent(h, engine.Intent{Type: engine.IntentReset, PlayerID: playerID})
	if err != nil {
		m.rejectMove(playerID, roomID, err.Error())
		return
	}
	m.log.WithField("room", roomID).Infof("Room %s: reset for another game by %s.", roomID, playerID)
	m.logAction(next, playerID, "reset", nil)
	m.broadcastState(next, EventRoomState, nil)
}

// DestroyRoom tears roomID down regardless of how many players it holds. Only
// a seated player may do so.
func (m *Manager) DestroyRoom(ctx context.Context, playerID, roomID string) {
	h := m.acquire(ctx, playerID, roomID, m.rejectMove)
	if h == nil {
		return
	}
	defer h.Release()
	state := h.State()
	if state.PlayerIndex(playerID) < 0 {
		m.rejectMove(playerID, roomID, engine.ErrPlayerNotFound.Error())
		return
	}

	m.fireEvent(state, GameEvent{Type: EventRoomDestroyed, User: &EventUser{ID: playerID}})
	for _, p := range state.Players {
		m.removeMember(p.ID, roomID)
	}
	h.Delete()
	m.log.WithField("room", roomID).Infof("Room %s: destroyed by %s.", roomID, playerID)
	m.logAction(state, playerID, string(EventRoomDestroyed), nil)
}

// Snapshot returns the public view of roomID, with no hand revealed.
func (m *Manager) Snapshot(ctx context.Context, roomID string) (RoomSnapshot, error) {
	h, err := m.rooms.Acquire(ctx, roomID, nil)
	if err != nil {
		return RoomSnapshot{}, err
	}
	defer h.Release()
	return Project(h.State(), ""), nil
}
