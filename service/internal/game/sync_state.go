// internal/game/sync_state.go
package game

import (
	engine "github.com/jason-s-yu/uno/engine"
)

// PlayerView is one seat as seen by a specific observer.
type PlayerView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	HandSize      int    `json:"handSize"`
	CalledUno     bool   `json:"calledUno"`
	IsCurrentTurn bool   `json:"isCurrentTurn"`
	// Hand is populated only for the observer's own seat.
	Hand []engine.Card `json:"hand,omitempty"`
}

// RoomSnapshot is the full room state sent to clients after every mutation.
// The deck is summarised by its size.
type RoomSnapshot struct {
	RoomID             string        `json:"roomId"`
	Phase              engine.Phase  `json:"phase"`
	Players            []PlayerView  `json:"players"`
	CurrentPlayerID    string        `json:"currentPlayerId,omitempty"`
	CurrentPlayerIndex int           `json:"currentPlayerIndex"`
	Direction          int           `json:"direction"`
	DeckSize           int           `json:"deckSize"`
	DiscardPile        []engine.Card `json:"discardPile"`
	DiscardTop         *engine.Card  `json:"discardTop,omitempty"`
	CurrentColor       engine.Color  `json:"currentColor"`
	DrawStack          int           `json:"drawStack"`
	MaxPlayers         int           `json:"maxPlayers"`
	Started            bool          `json:"started"`
	Winner             *EventUser    `json:"winner,omitempty"`
	Version            uint64        `json:"version"`
	// PlayableCards lists the observer's legal plays when it is their turn.
	PlayableCards []engine.Card `json:"playableCards,omitempty"`
}

// Project builds the snapshot of state for viewerID. Only the viewer's own
// hand is revealed; other seats show their hand size. An empty viewerID sees
// no hands at all.
func Project(state engine.GameState, viewerID string) RoomSnapshot {
	snap := RoomSnapshot{
		RoomID:             state.RoomID,
		Phase:              state.Phase(),
		Players:            make([]PlayerView, 0, len(state.Players)),
		CurrentPlayerIndex: state.CurrentPlayerIndex,
		Direction:          state.Direction,
		DeckSize:           len(state.Deck),
		DiscardPile:        append([]engine.Card{}, state.DiscardPile...),
		CurrentColor:       state.CurrentColor,
		DrawStack:          state.DrawStack,
		MaxPlayers:         state.MaxPlayers,
		Started:            state.Started,
		Version:            state.Version,
	}

	inProgress := snap.Phase == engine.PhaseInProgress
	current := state.CurrentPlayer()
	if inProgress && current != nil {
		snap.CurrentPlayerID = current.ID
	}
	if top := state.DiscardTop(); top != engine.NoCard {
		snap.DiscardTop = &top
	}
	if state.Winner != nil {
		snap.Winner = &EventUser{ID: state.Winner.ID, Name: state.Winner.Name}
	}

	for _, p := range state.Players {
		view := PlayerView{
			ID:            p.ID,
			Name:          p.Name,
			HandSize:      len(p.Hand),
			CalledUno:     p.CalledUno,
			IsCurrentTurn: inProgress && current != nil && current.ID == p.ID,
		}
		if viewerID != "" && p.ID == viewerID {
			view.Hand = append([]engine.Card{}, p.Hand...)
		}
		snap.Players = append(snap.Players, view)
	}

	if viewerID != "" && snap.CurrentPlayerID == viewerID {
		snap.PlayableCards = state.PlayableCards(viewerID)
	}
	return snap
}
