package engine

const (
	DeckSize          = 108
	MinPlayers        = 2
	DefaultMaxPlayers = 4
)

// Rules holds the configurable house rules of a room.
type Rules struct {
	HandSize   uint8 `json:"handSize"`   // cards dealt to each player at start
	UnoPenalty uint8 `json:"unoPenalty"` // cards drawn for reaching one card without calling UNO
}

// DefaultRules returns the standard UNO rules.
func DefaultRules() Rules {
	return Rules{
		HandSize:   7,
		UnoPenalty: 2,
	}
}

// handSize returns the effective deal size, treating 0 as the default.
func (r *Rules) handSize() int {
	if r.HandSize == 0 {
		return 7
	}
	return int(r.HandSize)
}

func (r *Rules) unoPenalty() int {
	if r.UnoPenalty == 0 {
		return 2
	}
	return int(r.UnoPenalty)
}
