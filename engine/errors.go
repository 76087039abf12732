package engine

import "errors"

// Precondition failures. Apply returns them (possibly wrapped) and leaves the
// state untouched.
var (
	ErrNotStarted       = errors.New("game has not started")
	ErrGameOver         = errors.New("game is already over")
	ErrAlreadyStarted   = errors.New("game has already started")
	ErrNotEnoughPlayers = errors.New("need at least 2 players to start")
	ErrDeckTooSmall     = errors.New("not enough cards to deal every player")
	ErrGameInProgress   = errors.New("game already in progress")
	ErrGameNotFinished  = errors.New("game has not finished")
	ErrPlayerNotFound   = errors.New("player is not in this room")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrCardNotInHand    = errors.New("card is not in your hand")
	ErrIllegalMove      = errors.New("card does not match the current color or value")
	ErrColorRequired    = errors.New("a wild card needs a chosen color")
	ErrUnknownIntent    = errors.New("unknown intent")
)
