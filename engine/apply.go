package engine

import "fmt"

// IntentType names a client request against a room.
type IntentType uint8

const (
	IntentJoin    IntentType = iota // 0
	IntentStart                     // 1
	IntentPlay                      // 2
	IntentDraw                      // 3
	IntentCallUno                   // 4
	IntentLeave                     // 5
	IntentReset                     // 6
)

var intentNames = [...]string{"join", "start", "play", "draw", "call_uno", "leave", "reset"}

func (t IntentType) String() string {
	if int(t) < len(intentNames) {
		return intentNames[t]
	}
	return fmt.Sprintf("intent(%d)", uint8(t))
}

// Intent is one request from one player.
type Intent struct {
	Type       IntentType
	PlayerID   string
	PlayerName string // join only
	Card       Card   // play only
	Color      Color  // play only, the colour named by a wild
	Seed       uint64 // start only
}

// Outcome describes the effect of a successful transition.
type Outcome struct {
	Played     Card   // card moved to the discard pile; NoCard otherwise
	Drawn      []Card // cards drawn by the actor (voluntary or forced)
	Requested  int    // cards the draw asked for; len(Drawn) may be smaller
	Penalty    []Card // UNO penalty cards
	Forced     bool   // the draw resolved a +2/+4 stack
	Redirected bool   // a play was turned into the forced draw
	Reshuffled bool   // the discard pile was shuffled back into the deck
	Advanced   bool   // the turn moved to another seat
	Rejoined   bool   // join by a player already seated
	Full       bool   // the room has reached MaxPlayers
	Emptied    bool   // the last player left
	Finished   bool   // this transition ended the game
}

// Short reports whether a draw returned fewer cards than requested.
func (o Outcome) Short() bool { return len(o.Drawn) < o.Requested }

// Apply runs one intent against a copy of state. On success it returns the
// next state, with Version bumped. On failure it returns state itself and the
// error; state is never modified.
func Apply(state GameState, in Intent) (GameState, Outcome, error) {
	next := state.Clone()
	out := Outcome{Played: NoCard}

	var err error
	switch in.Type {
	case IntentJoin:
		err = next.join(in.PlayerID, in.PlayerName, &out)
	case IntentStart:
		err = next.start(in.Seed)
	case IntentPlay:
		err = next.play(in.PlayerID, in.Card, in.Color, &out)
	case IntentDraw:
		err = next.draw(in.PlayerID, &out)
	case IntentCallUno:
		err = next.callUno(in.PlayerID)
	case IntentLeave:
		err = next.leave(in.PlayerID, &out)
	case IntentReset:
		err = next.reset()
	default:
		err = fmt.Errorf("%w: %d", ErrUnknownIntent, in.Type)
	}
	if err != nil {
		return state, Outcome{Played: NoCard}, err
	}

	next.Version++
	return next, out, nil
}
