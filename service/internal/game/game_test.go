// internal/game/game_test.go
package game

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	engine "github.com/jason-s-yu/uno/engine"
	"github.com/jason-s-yu/uno/service/internal/cache"
	"github.com/jason-s-yu/uno/service/internal/models"
	"github.com/jason-s-yu/uno/service/internal/room"
	"github.com/jason-s-yu/uno/service/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster captures game events for testing assertions.
type mockBroadcaster struct {
	mu           sync.Mutex
	playerEvents map[string][]GameEvent
}

// newMockBroadcaster creates an instance of the mock broadcaster.
func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{
		playerEvents: make(map[string][]GameEvent),
	}
}

func (mb *mockBroadcaster) broadcastToPlayerFn(playerID string, ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents[playerID] = append(mb.playerEvents[playerID], ev)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents = make(map[string][]GameEvent)
}

func (mb *mockBroadcaster) getLastPlayerEvent(playerID string) *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	events, ok := mb.playerEvents[playerID]
	if !ok || len(events) == 0 {
		return nil
	}
	return &events[len(events)-1]
}

// typesFor lists the event types playerID received, in order.
func (mb *mockBroadcaster) typesFor(playerID string) []GameEventType {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	var out []GameEventType
	for _, ev := range mb.playerEvents[playerID] {
		out = append(out, ev.Type)
	}
	return out
}

func (mb *mockBroadcaster) findPlayerEvent(playerID string, eventType GameEventType) *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	events := mb.playerEvents[playerID]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == eventType {
			return &events[i]
		}
	}
	return nil
}

func (mb *mockBroadcaster) countType(eventType GameEventType) int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	n := 0
	for _, events := range mb.playerEvents {
		for _, ev := range events {
			if ev.Type == eventType {
				n++
			}
		}
	}
	return n
}

// recordingPublisher collects published actions.
type recordingPublisher struct {
	mu      sync.Mutex
	records []cache.GameActionRecord
}

func (p *recordingPublisher) PublishGameAction(_ context.Context, rec cache.GameActionRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, rec)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, r := range p.records {
		out = append(out, r.ActionType)
	}
	return out
}

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// setupTestManager returns a Manager over an in-memory registry backed by st.
// Shuffles use a fixed seed.
func setupTestManager(t *testing.T) (*Manager, *mockBroadcaster, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	reg := room.NewRegistry(st, nil, time.Second, quietLog())
	m := NewManager(reg, Options{MaxPlayersLimit: 10}, quietLog())
	mb := newMockBroadcaster()
	m.BroadcastToPlayerFn = mb.broadcastToPlayerFn
	m.SeedFn = func() uint64 { return 42 }
	return m, mb, st
}

var seatIDs = []string{"a", "b", "c", "d"}

// seedRoom stores a started game whose hands, discard top and turn are fixed:
// seat i gets hands[i] and it is seat 0's turn. The manager picks the room up
// from the store on first access.
func seedRoom(t *testing.T, st *store.MemoryStore, roomID string, top engine.Card, hands ...[]engine.Card) engine.GameState {
	t.Helper()
	g := engine.NewRoom(roomID, engine.DefaultMaxPlayers, engine.DefaultRules())
	var err error
	for i := range hands {
		g, _, err = engine.Apply(g, engine.Intent{Type: engine.IntentJoin, PlayerID: seatIDs[i], PlayerName: "Player" + seatIDs[i]})
		require.NoError(t, err)
	}
	g, _, err = engine.Apply(g, engine.Intent{Type: engine.IntentStart, Seed: 7})
	require.NoError(t, err)

	for i, h := range hands {
		g.Players[i].Hand = append([]engine.Card{}, h...)
	}
	g.DiscardPile = []engine.Card{top}
	g.CurrentColor = top.Color()
	g.CurrentPlayerIndex = 0
	g.Direction = 1
	g.DrawStack = 0
	require.NoError(t, st.Save(context.Background(), g))
	return g
}

func join(m *Manager, playerID, roomID string, maxPlayers int) {
	m.Join(context.Background(), playerID, models.JoinRoomPayload{RoomID: roomID, PlayerName: "Player" + playerID, MaxPlayers: maxPlayers})
}

func action(t *testing.T, typ string, payload interface{}) models.GameAction {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return models.GameAction{ActionType: typ, Payload: b}
}

func red(n uint8) engine.Card  { return engine.Number(engine.ColorRed, n) }
func blue(n uint8) engine.Card { return engine.Number(engine.ColorBlue, n) }

// ---------------------------------------------------------------------------
// Join and start
// ---------------------------------------------------------------------------

func TestJoinEmitsRoomStateThenPlayerJoined(t *testing.T) {
	m, mb, _ := setupTestManager(t)

	join(m, "a", "R", 4)
	assert.Equal(t, []GameEventType{EventRoomState, EventPlayerJoined}, mb.typesFor("a"))

	mb.clear()
	join(m, "b", "R", 4)
	for _, id := range []string{"a", "b"} {
		assert.Equal(t, []GameEventType{EventRoomState, EventPlayerJoined}, mb.typesFor(id), "events for %s", id)
	}
	ev := mb.getLastPlayerEvent("a")
	require.NotNil(t, ev.User)
	assert.Equal(t, "b", ev.User.ID)
	assert.Equal(t, "Playerb", ev.User.Name)
	require.NotNil(t, ev.State)
	assert.Len(t, ev.State.Players, 2)
	assert.Equal(t, engine.PhaseWaiting, ev.State.Phase)
	assert.Equal(t, []string{"R"}, m.RoomsOf("b"))
}

func TestJoinRequiresRoomAndName(t *testing.T) {
	m, mb, _ := setupTestManager(t)

	m.Join(context.Background(), "a", models.JoinRoomPayload{RoomID: "R"})
	m.Join(context.Background(), "a", models.JoinRoomPayload{PlayerName: "A"})
	assert.Equal(t, []GameEventType{EventErrorJoining, EventErrorJoining}, mb.typesFor("a"))

	_, err := m.Snapshot(context.Background(), "R")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestJoinFillingRoomStartsGame(t *testing.T) {
	m, mb, _ := setupTestManager(t)

	join(m, "a", "R", 2)
	mb.clear()
	join(m, "b", "R", 2)

	want := []GameEventType{EventRoomState, EventPlayerJoined, EventGameStarted, EventGameUpdated}
	assert.Equal(t, want, mb.typesFor("a"))
	assert.Equal(t, want, mb.typesFor("b"))

	ev := mb.findPlayerEvent("a", EventGameStarted)
	require.NotNil(t, ev)
	require.NotNil(t, ev.State)
	snap := ev.State
	assert.Equal(t, engine.PhaseInProgress, snap.Phase)
	assert.Equal(t, "a", snap.CurrentPlayerID)
	assert.Len(t, snap.Players[0].Hand, 7, "own hand is revealed")
	assert.Nil(t, snap.Players[1].Hand, "other hands stay hidden")
	assert.Equal(t, 7, snap.Players[1].HandSize)
	assert.Equal(t, engine.DeckSize-14-1, snap.DeckSize)
	require.NotNil(t, snap.DiscardTop)
	assert.False(t, snap.DiscardTop.IsWild())
}

func TestJoinAfterStartIsRejected(t *testing.T) {
	m, mb, _ := setupTestManager(t)
	join(m, "a", "R", 2)
	join(m, "b", "R", 2)
	mb.clear()

	join(m, "c", "R", 2)
	ev := mb.getLastPlayerEvent("c")
	require.NotNil(t, ev)
	assert.Equal(t, EventErrorJoining, ev.Type)
	assert.Equal(t, engine.ErrGameInProgress.Error(), ev.Message)
	assert.Empty(t, mb.typesFor("a"), "seated players are not told about a rejected join")
	assert.Empty(t, m.RoomsOf("c"))

	snap, err := m.Snapshot(context.Background(), "R")
	require.NoError(t, err)
	assert.Len(t, snap.Players, 2)
}

func TestRejoinResendsStateOnly(t *testing.T) {
	m, mb, _ := setupTestManager(t)
	join(m, "a", "R", 4)
	join(m, "b", "R", 4)
	mb.clear()

	join(m, "a", "R", 4)
	assert.Equal(t, []GameEventType{EventRoomState}, mb.typesFor("a"))
	assert.Empty(t, mb.typesFor("b"))
}

func TestJoinClampsMaxPlayers(t *testing.T) {
	m, _, _ := setupTestManager(t)
	ctx := context.Background()

	cases := []struct {
		room      string
		requested int
		want      int
	}{
		{"default", 0, engine.DefaultMaxPlayers},
		{"tiny", 1, engine.MinPlayers},
		{"huge", 99, 10},
		{"six", 6, 6},
	}
	for _, tc := range cases {
		join(m, "a", tc.room, tc.requested)
		snap, err := m.Snapshot(ctx, tc.room)
		require.NoError(t, err)
		assert.Equal(t, tc.want, snap.MaxPlayers, "room %s", tc.room)
	}
}

func TestStartRequiresTwoPlayers(t *testing.T) {
	m, mb, _ := setupTestManager(t)
	join(m, "a", "R", 4)
	mb.clear()

	m.Start(context.Background(), "a", "R")
	ev := mb.getLastPlayerEvent("a")
	require.NotNil(t, ev)
	assert.Equal(t, EventErrorJoining, ev.Type)
	assert.Equal(t, engine.ErrNotEnoughPlayers.Error(), ev.Message)
}

func TestStartErrors(t *testing.T) {
	m, mb, _ := setupTestManager(t)
	join(m, "a", "R", 4)
	join(m, "b", "R", 4)
	mb.clear()

	m.Start(context.Background(), "x", "missing")
	m.Start(context.Background(), "x", "R")
	assert.Equal(t, []GameEventType{EventErrorJoining, EventErrorJoining}, mb.typesFor("x"))
	assert.Empty(t, mb.typesFor("a"))

	m.Start(context.Background(), "b", "R")
	assert.Equal(t, []GameEventType{EventGameStarted, EventGameUpdated}, mb.typesFor("a"))
}

// ---------------------------------------------------------------------------
// Moves
// ---------------------------------------------------------------------------

func TestRejectedPlayOnlyReachesRequester(t *testing.T) {
	m, mb, st := setupTestManager(t)
	seeded := seedRoom(t, st, "R", red(3), []engine.Card{red(5), blue(1)}, []engine.Card{red(7), blue(2)})

	m.PlayCard(context.Background(), "b", "R", red(7), engine.ColorWild)
	ev := mb.getLastPlayerEvent("b")
	require.NotNil(t, ev)
	assert.Equal(t, EventInvalidMove, ev.Type)
	assert.Equal(t, engine.ErrNotYourTurn.Error(), ev.Message)
	assert.Empty(t, mb.typesFor("a"))

	snap, err := m.Snapshot(context.Background(), "R")
	require.NoError(t, err)
	assert.Equal(t, seeded.Version, snap.Version, "a rejected move does not change the room")
}

func TestPlayBroadcastsUpdate(t *testing.T) {
	m, mb, st := setupTestManager(t)
	seeded := seedRoom(t, st, "R", red(3), []engine.Card{red(5), blue(1), blue(2)}, []engine.Card{red(7), blue(2)})

	m.PlayCard(context.Background(), "a", "R", red(5), engine.ColorWild)
	for _, id := range []string{"a", "b"} {
		ev := mb.getLastPlayerEvent(id)
		require.NotNil(t, ev, "no event for %s", id)
		assert.Equal(t, EventGameUpdated, ev.Type)
		assert.Equal(t, red(5), ev.Payload["card"])
		assert.Equal(t, "a", ev.Payload["actor"])
		assert.Equal(t, seeded.Version+1, ev.State.Version)
		assert.Equal(t, "b", ev.State.CurrentPlayerID)
		assert.Equal(t, red(5), *ev.State.DiscardTop)
	}
	assert.Len(t, mb.getLastPlayerEvent("a").State.Players[0].Hand, 2)
	assert.Equal(t, []engine.Card{red(7)}, mb.getLastPlayerEvent("b").State.PlayableCards)
}

func TestPlayWildThroughActionMessage(t *testing.T) {
	m, mb, st := setupTestManager(t)
	seedRoom(t, st, "R", red(3), []engine.Card{engine.Wild(engine.KindWild), blue(1), blue(2)}, []engine.Card{red(7)})

	raw := `{"roomId":"R","card":{"color":"wild","type":"wild","value":"wild"},"color":"green"}`
	m.HandlePlayerAction(context.Background(), "a", models.GameAction{ActionType: models.ActionPlayCard, Payload: json.RawMessage(raw)})

	ev := mb.getLastPlayerEvent("b")
	require.NotNil(t, ev)
	assert.Equal(t, EventGameUpdated, ev.Type)
	assert.Equal(t, engine.ColorGreen, ev.State.CurrentColor)
	assert.Equal(t, EffectWild, ev.Payload["effect"])
}

func TestPlayWildWithoutColorIsRejected(t *testing.T) {
	m, mb, st := setupTestManager(t)
	seedRoom(t, st, "R", red(3), []engine.Card{engine.Wild(engine.KindWild), blue(1)}, []engine.Card{red(7)})

	m.HandlePlayerAction(context.Background(), "a", action(t, models.ActionPlayCard, models.PlayCardPayload{
		RoomID: "R",
		Card:   engine.Wild(engine.KindWild),
	}))
	ev := mb.getLastPlayerEvent("a")
	require.NotNil(t, ev)
	assert.Equal(t, EventInvalidMove, ev.Type)
	assert.Equal(t, engine.ErrColorRequired.Error(), ev.Message)
}

func TestNonStackingPlayBecomesForcedDraw(t *testing.T) {
	m, mb, st := setupTestManager(t)
	g := seedRoom(t, st, "R", red(3), []engine.Card{red(5), blue(1), blue(2)}, []engine.Card{red(7)})
	g.DiscardPile = []engine.Card{engine.Action(engine.ColorRed, engine.KindDrawTwo)}
	g.DrawStack = 2
	require.NoError(t, st.Save(context.Background(), g))

	m.PlayCard(context.Background(), "a", "R", red(5), engine.ColorWild)
	ev := mb.getLastPlayerEvent("b")
	require.NotNil(t, ev)
	assert.Equal(t, EventGameUpdated, ev.Type)
	assert.Equal(t, true, ev.Payload["redirected"])
	assert.Equal(t, true, ev.Payload["forced"])
	assert.Equal(t, 2, ev.Payload["drawn"])
	assert.NotContains(t, ev.Payload, "card")
	assert.Equal(t, 5, ev.State.Players[0].HandSize)
	assert.Equal(t, 0, ev.State.DrawStack)
	assert.Equal(t, "b", ev.State.CurrentPlayerID)
}

func TestDrawAndPenaltyDrawAreAliases(t *testing.T) {
	m, mb, st := setupTestManager(t)
	seedRoom(t, st, "R", red(3), []engine.Card{blue(1), blue(2)}, []engine.Card{blue(4), blue(5)})
	ctx := context.Background()

	m.HandlePlayerAction(ctx, "a", action(t, models.ActionDrawCard, models.RoomPayload{RoomID: "R"}))
	first := mb.getLastPlayerEvent("a")
	require.NotNil(t, first)
	assert.Equal(t, EventGameUpdated, first.Type)
	assert.Equal(t, 1, first.Payload["drawn"])
	assert.Equal(t, 3, first.State.Players[0].HandSize)

	// Whoever is on turn now draws through the penalty alias.
	current := first.State.CurrentPlayerID
	m.HandlePlayerAction(ctx, current, action(t, models.ActionPenaltyDraw, models.RoomPayload{RoomID: "R"}))
	second := mb.getLastPlayerEvent(current)
	require.NotNil(t, second)
	assert.Equal(t, EventGameUpdated, second.Type)
	assert.Equal(t, first.State.Version+1, second.State.Version)
}

func TestCallUnoBroadcasts(t *testing.T) {
	m, mb, st := setupTestManager(t)
	seedRoom(t, st, "R", red(3), []engine.Card{red(5), blue(1)}, []engine.Card{red(7), blue(2)})

	m.CallUno(context.Background(), "a", "R")
	ev := mb.getLastPlayerEvent("b")
	require.NotNil(t, ev)
	assert.Equal(t, EventGameUpdated, ev.Type)
	assert.True(t, ev.State.Players[0].CalledUno)

	m.PlayCard(context.Background(), "a", "R", red(5), engine.ColorWild)
	ev = mb.getLastPlayerEvent("b")
	assert.NotContains(t, ev.Payload, "penalty")
	assert.Equal(t, 1, ev.State.Players[0].HandSize)
}

func TestWinningPlayEndsGameOnce(t *testing.T) {
	m, mb, st := setupTestManager(t)
	seedRoom(t, st, "R", red(3), []engine.Card{red(5)}, []engine.Card{red(7), blue(2)})

	var ended []engine.GameState
	m.OnGameEnd = func(state engine.GameState) { ended = append(ended, state) }
	ctx := context.Background()

	m.PlayCard(ctx, "a", "R", red(5), engine.ColorWild)
	assert.Equal(t, []GameEventType{EventGameUpdated, EventGameOver}, mb.typesFor("b"))
	over := mb.findPlayerEvent("a", EventGameOver)
	require.NotNil(t, over)
	require.NotNil(t, over.User)
	assert.Equal(t, "a", over.User.ID)
	assert.Equal(t, 9, over.Payload["points"], "points left in b's hand")

	require.Len(t, ended, 1)
	assert.Equal(t, "a", ended[0].Winner.ID)

	// Nothing more is accepted until the room is reset.
	m.PlayCard(ctx, "b", "R", red(7), engine.ColorWild)
	m.DrawCard(ctx, "b", "R")
	assert.Equal(t, EventInvalidMove, mb.getLastPlayerEvent("b").Type)
	assert.Equal(t, 2, mb.countType(EventGameOver), "one game-over per seated player")
	assert.Len(t, ended, 1)

	mb.clear()
	m.PlayAgain(ctx, "b", "R")
	ev := mb.getLastPlayerEvent("a")
	require.NotNil(t, ev)
	assert.Equal(t, EventRoomState, ev.Type)
	assert.Equal(t, engine.PhaseWaiting, ev.State.Phase)
	assert.Len(t, ev.State.Players, 2)
	assert.Nil(t, ev.State.Winner)
}

func TestPlayAgainRequiresFinishedGame(t *testing.T) {
	m, mb, st := setupTestManager(t)
	seedRoom(t, st, "R", red(3), []engine.Card{red(5)}, []engine.Card{red(7)})

	m.PlayAgain(context.Background(), "a", "R")
	ev := mb.getLastPlayerEvent("a")
	require.NotNil(t, ev)
	assert.Equal(t, EventInvalidMove, ev.Type)
	assert.Equal(t, engine.ErrGameNotFinished.Error(), ev.Message)
}

func TestMoveInUnknownRoom(t *testing.T) {
	m, mb, _ := setupTestManager(t)
	m.DrawCard(context.Background(), "a", "nowhere")
	ev := mb.getLastPlayerEvent("a")
	require.NotNil(t, ev)
	assert.Equal(t, EventInvalidMove, ev.Type)
	assert.Equal(t, "Room not found.", ev.Message)
}

// ---------------------------------------------------------------------------
// Leaving
// ---------------------------------------------------------------------------

func TestLeaveNotifiesRemainingPlayers(t *testing.T) {
	m, mb, _ := setupTestManager(t)
	join(m, "a", "R", 4)
	join(m, "b", "R", 4)
	mb.clear()

	m.Leave(context.Background(), "a", "R")
	assert.Equal(t, []GameEventType{EventPlayerLeft, EventRoomState}, mb.typesFor("b"))
	assert.Empty(t, mb.typesFor("a"))
	assert.Empty(t, m.RoomsOf("a"))

	snap, err := m.Snapshot(context.Background(), "R")
	require.NoError(t, err)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "b", snap.Players[0].ID)
}

func TestLastPlayerLeavingDeletesRoom(t *testing.T) {
	m, _, _ := setupTestManager(t)
	join(m, "a", "R", 4)

	m.Leave(context.Background(), "a", "R")
	_, err := m.Snapshot(context.Background(), "R")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestDisconnectLeavesEveryRoom(t *testing.T) {
	m, mb, _ := setupTestManager(t)
	join(m, "a", "R1", 4)
	join(m, "b", "R1", 4)
	join(m, "a", "R2", 4)
	assert.Equal(t, []string{"R1", "R2"}, m.RoomsOf("a"))
	mb.clear()

	m.Disconnect(context.Background(), "a")
	assert.Empty(t, m.RoomsOf("a"))
	assert.Equal(t, []GameEventType{EventPlayerLeft, EventRoomState}, mb.typesFor("b"))
	assert.Equal(t, "a", mb.findPlayerEvent("b", EventPlayerLeft).User.ID)

	_, err := m.Snapshot(context.Background(), "R2")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestDisconnectEndsTwoPlayerGame(t *testing.T) {
	m, mb, _ := setupTestManager(t)
	join(m, "a", "R", 2)
	join(m, "b", "R", 2)
	mb.clear()

	var ended int
	m.OnGameEnd = func(engine.GameState) { ended++ }

	m.Disconnect(context.Background(), "a")
	assert.Equal(t, []GameEventType{EventPlayerLeft, EventGameUpdated, EventGameOver}, mb.typesFor("b"))
	over := mb.findPlayerEvent("b", EventGameOver)
	require.NotNil(t, over.User)
	assert.Equal(t, "b", over.User.ID)
	assert.Equal(t, 1, ended)

	snap, err := m.Snapshot(context.Background(), "R")
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseFinished, snap.Phase)
	total := snap.DeckSize + len(snap.DiscardPile) + snap.Players[0].HandSize
	assert.Equal(t, engine.DeckSize, total, "the leaver's cards stay in play")
}

func TestDestroyRoom(t *testing.T) {
	m, mb, _ := setupTestManager(t)
	join(m, "a", "R", 4)
	join(m, "b", "R", 4)
	mb.clear()
	ctx := context.Background()

	m.DestroyRoom(ctx, "x", "R")
	assert.Equal(t, EventInvalidMove, mb.getLastPlayerEvent("x").Type)
	_, err := m.Snapshot(ctx, "R")
	require.NoError(t, err, "an outsider cannot destroy the room")

	m.HandlePlayerAction(ctx, "b", action(t, models.ActionDestroyRoom, models.RoomPayload{RoomID: "R"}))
	for _, id := range []string{"a", "b"} {
		assert.Equal(t, []GameEventType{EventRoomDestroyed}, mb.typesFor(id), "events for %s", id)
		assert.Empty(t, m.RoomsOf(id))
	}
	_, err = m.Snapshot(ctx, "R")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

// ---------------------------------------------------------------------------
// Routing, snapshots and side channels
// ---------------------------------------------------------------------------

func TestHandlePlayerActionRejectsBadInput(t *testing.T) {
	m, mb, st := setupTestManager(t)
	seedRoom(t, st, "R", red(3), []engine.Card{red(5)}, []engine.Card{red(7)})
	ctx := context.Background()

	cases := []struct {
		name   string
		action models.GameAction
		want   GameEventType
	}{
		{"unknown type", models.GameAction{ActionType: "fold"}, EventInvalidMove},
		{"missing room", action(t, models.ActionDrawCard, map[string]string{}), EventInvalidMove},
		{"malformed join", models.GameAction{ActionType: models.ActionJoinRoom, Payload: json.RawMessage(`[1]`)}, EventErrorJoining},
		{"card not in deck", models.GameAction{ActionType: models.ActionPlayCard, Payload: json.RawMessage(`{"roomId":"R","card":{"color":"red","type":"number","value":12}}`)}, EventInvalidMove},
		{"colored wild", models.GameAction{ActionType: models.ActionPlayCard, Payload: json.RawMessage(`{"roomId":"R","card":{"color":"red","type":"+4"}}`)}, EventInvalidMove},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mb.clear()
			m.HandlePlayerAction(ctx, "a", tc.action)
			assert.Equal(t, []GameEventType{tc.want}, mb.typesFor("a"))
			assert.Empty(t, mb.typesFor("b"))
		})
	}
}

func TestRoomStateGoesToRequesterOnly(t *testing.T) {
	m, mb, _ := setupTestManager(t)
	join(m, "a", "R", 4)
	join(m, "b", "R", 4)
	mb.clear()

	m.HandlePlayerAction(context.Background(), "a", action(t, models.ActionGetRoomState, models.RoomPayload{RoomID: "R"}))
	assert.Equal(t, []GameEventType{EventRoomState}, mb.typesFor("a"))
	assert.Empty(t, mb.typesFor("b"))
}

func TestProjectRevealsOnlyOwnHand(t *testing.T) {
	_, _, st := setupTestManager(t)
	g := seedRoom(t, st, "R", red(3), []engine.Card{red(5), blue(1)}, []engine.Card{red(7), blue(2), blue(3)})

	snap := Project(g, "a")
	assert.Equal(t, []engine.Card{red(5), blue(1)}, snap.Players[0].Hand)
	assert.Nil(t, snap.Players[1].Hand)
	assert.Equal(t, 3, snap.Players[1].HandSize)
	assert.True(t, snap.Players[0].IsCurrentTurn)
	assert.Equal(t, []engine.Card{red(5)}, snap.PlayableCards)
	assert.Equal(t, len(g.Deck), snap.DeckSize)

	other := Project(g, "b")
	assert.Nil(t, other.PlayableCards, "only the current player gets playable cards")
	assert.Nil(t, other.Players[0].Hand)

	public := Project(g, "")
	for _, p := range public.Players {
		assert.Nil(t, p.Hand)
	}

	b, err := json.Marshal(public)
	require.NoError(t, err)
	assert.NotContains(t, string(b), `"hand"`)
	assert.Contains(t, string(b), `"phase":"in_progress"`)
}

func TestCommittedActionsArePublished(t *testing.T) {
	m, _, _ := setupTestManager(t)
	pub := &recordingPublisher{}
	m.Actions = pub

	join(m, "a", "R", 2)
	join(m, "b", "R", 2)

	want := []string{string(EventPlayerJoined), string(EventPlayerJoined), string(EventGameStarted)}
	require.Eventually(t, func() bool { return len(pub.types()) == len(want) }, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, want, pub.types())
}

func TestCommittedStateIsWrittenBack(t *testing.T) {
	st := store.NewMemoryStore()
	wb := room.NewWriteBack(st, 10*time.Millisecond, time.Second, quietLog())
	reg := room.NewRegistry(st, wb, time.Second, quietLog())
	m := NewManager(reg, Options{}, quietLog())
	m.BroadcastToPlayerFn = func(string, GameEvent) {}

	join(m, "a", "R", 2)
	join(m, "b", "R", 2)
	require.NoError(t, wb.Flush(context.Background()))

	saved, err := st.Load(context.Background(), "R")
	require.NoError(t, err)
	assert.True(t, saved.Started)
	assert.Len(t, saved.Players, 2)

	m.Leave(context.Background(), "a", "R")
	m.Leave(context.Background(), "b", "R")
	require.NoError(t, wb.Flush(context.Background()))
	assert.False(t, st.Has("R"), "an emptied room is deleted from the store")
}

func TestRoomsProgressIndependently(t *testing.T) {
	m, mb, _ := setupTestManager(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			roomID := fmt.Sprintf("R%d", i)
			join(m, fmt.Sprintf("p%d-1", i), roomID, 2)
			join(m, fmt.Sprintf("p%d-2", i), roomID, 2)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 40, mb.countType(EventGameStarted))
	for i := 0; i < 20; i++ {
		snap, err := m.Snapshot(context.Background(), fmt.Sprintf("R%d", i))
		require.NoError(t, err)
		assert.Equal(t, engine.PhaseInProgress, snap.Phase)
	}
}
