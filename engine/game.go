// Package engine implements the UNO rules.
//
// GameState is the whole room aggregate: seats, deck, discard pile and turn
// bookkeeping. Transitions go through Apply, which works on a copy and returns
// the next state together with an Outcome describing what happened, so a
// rejected intent never leaves a half-applied state behind.
package engine

// GameState holds the complete, self-contained state of one room.
// It is also the persisted record, field for field.
type GameState struct {
	RoomID             string    `json:"roomId"`
	Players            []*Player `json:"players"`
	CurrentPlayerIndex int       `json:"currentPlayerIndex"`
	Direction          int       `json:"direction"` // +1 or -1
	Deck               []Card    `json:"deck"`        // draw from the tail
	DiscardPile        []Card    `json:"discardPile"` // top is the tail
	CurrentColor       Color     `json:"currentColor"`
	DrawStack          int       `json:"drawStack"`
	MaxPlayers         int       `json:"maxPlayers"`
	Started            bool      `json:"started"`
	Winner             *Player   `json:"winner,omitempty"`
	Rules              Rules     `json:"rules"`
	RNG                uint64    `json:"rng"`
	Version            uint64    `json:"version"`
}

// NewRoom returns an empty, unstarted room.
func NewRoom(roomID string, maxPlayers int, rules Rules) GameState {
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayers
	}
	return GameState{
		RoomID:       roomID,
		Players:      []*Player{},
		Direction:    1,
		Deck:         []Card{},
		DiscardPile:  []Card{},
		CurrentColor: ColorRed,
		MaxPlayers:   maxPlayers,
		Rules:        rules,
		RNG:          1,
	}
}

// Clone returns a deep copy; the result shares no slices or players with g.
func (g GameState) Clone() GameState {
	out := g
	out.Players = make([]*Player, len(g.Players))
	for i, p := range g.Players {
		out.Players[i] = p.clone()
	}
	out.Deck = append([]Card{}, g.Deck...)
	out.DiscardPile = append([]Card{}, g.DiscardPile...)
	if g.Winner != nil {
		out.Winner = g.Winner.clone()
	}
	return out
}

func (p *Player) clone() *Player {
	cp := *p
	cp.Hand = append([]Card{}, p.Hand...)
	return &cp
}

// ---------------------------------------------------------------------------
// Query methods
// ---------------------------------------------------------------------------

// Phase derives the turn-machine state.
func (g *GameState) Phase() Phase {
	switch {
	case !g.Started:
		return PhaseWaiting
	case g.Winner != nil:
		return PhaseFinished
	default:
		return PhaseInProgress
	}
}

// DiscardTop returns the top of the discard pile, or NoCard if it is empty.
func (g *GameState) DiscardTop() Card {
	if len(g.DiscardPile) == 0 {
		return NoCard
	}
	return g.DiscardPile[len(g.DiscardPile)-1]
}

// CurrentPlayer returns the seat whose turn it is, or nil for an empty room.
func (g *GameState) CurrentPlayer() *Player {
	if g.CurrentPlayerIndex < 0 || g.CurrentPlayerIndex >= len(g.Players) {
		return nil
	}
	return g.Players[g.CurrentPlayerIndex]
}

// PlayerIndex returns the seat index of id, or -1.
func (g *GameState) PlayerIndex(id string) int {
	for i, p := range g.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Player returns the seat with the given id, or nil.
func (g *GameState) Player(id string) *Player {
	if i := g.PlayerIndex(id); i >= 0 {
		return g.Players[i]
	}
	return nil
}

// CardCount is the number of cards currently in play across deck, discard and hands.
func (g *GameState) CardCount() int {
	n := len(g.Deck) + len(g.DiscardPile)
	for _, p := range g.Players {
		n += len(p.Hand)
	}
	return n
}

// nextIndex returns the seat after current in the direction of play.
func (g *GameState) nextIndex() int {
	n := len(g.Players)
	return ((g.CurrentPlayerIndex+g.Direction)%n + n) % n
}

func (g *GameState) advanceTurn() {
	if len(g.Players) == 0 {
		return
	}
	g.CurrentPlayerIndex = g.nextIndex()
}

// ---------------------------------------------------------------------------
// Start
// ---------------------------------------------------------------------------

// start deals a fresh game. Each player receives Rules.HandSize cards in join
// order, then cards are flipped until a non-wild shows; wilds found on the way
// go to the bottom of the deck.
func (g *GameState) start(seed uint64) error {
	if g.Started {
		return ErrAlreadyStarted
	}
	if len(g.Players) < MinPlayers {
		return ErrNotEnoughPlayers
	}

	hand := g.Rules.handSize()
	// Leave enough behind that a non-wild is guaranteed to turn up.
	if len(g.Players)*hand > DeckSize-9 {
		return ErrDeckTooSmall
	}

	g.seed(seed)
	g.Deck = BuildDeck()
	g.shuffle(g.Deck)
	g.DiscardPile = []Card{}

	for _, p := range g.Players {
		p.Hand, _ = g.drawN(hand)
		p.CalledUno = false
	}

	first := g.popDeck()
	for tries := len(g.Deck); first.IsWild() && tries > 0; tries-- {
		g.Deck = append([]Card{first}, g.Deck...)
		first = g.popDeck()
	}
	g.DiscardPile = append(g.DiscardPile, first)

	g.CurrentColor = first.Color()
	g.CurrentPlayerIndex = 0
	g.Direction = 1
	g.DrawStack = 0
	g.Winner = nil
	g.Started = true
	return nil
}

func (g *GameState) popDeck() Card {
	last := len(g.Deck) - 1
	c := g.Deck[last]
	g.Deck = g.Deck[:last]
	return c
}
