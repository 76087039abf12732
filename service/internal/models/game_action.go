// internal/models/game_action.go
package models

import (
	"encoding/json"

	engine "github.com/jason-s-yu/uno/engine"
)

// Client action types.
const (
	ActionJoinRoom     = "join-room"
	ActionGetRoomState = "get-room-state"
	ActionStartGame    = "start-game"
	ActionPlayCard     = "play-card"
	ActionDrawCard     = "draw-card"
	ActionPenaltyDraw  = "penalty-draw"
	ActionCallUno      = "call-uno"
	ActionLeaveRoom    = "leave-room"
	ActionPlayAgain    = "play-again"
	ActionDestroyRoom  = "destroy-room"
)

// GameAction is the envelope of every message a client sends.
type GameAction struct {
	ActionType string          `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// JoinRoomPayload is the payload of join-room. MaxPlayers only matters for the
// player who creates the room.
type JoinRoomPayload struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
	MaxPlayers int    `json:"maxPlayers,omitempty"`
}

// RoomPayload is the payload of every action that only names a room.
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

// PlayCardPayload is the payload of play-card. Color is required for wilds.
type PlayCardPayload struct {
	RoomID string        `json:"roomId"`
	Card   engine.Card   `json:"card"`
	Color  *engine.Color `json:"color,omitempty"`
}
