package engine

// BuildDeck returns the 108-card UNO deck in a fixed order. For each colour:
// one 0, two copies each of 1–9, two skips, two reverses and two +2s. Then four
// wilds and four wild +4s.
func BuildDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, color := range PlayColors {
		deck = append(deck, Number(color, 0))
		for n := uint8(1); n <= 9; n++ {
			deck = append(deck, Number(color, n), Number(color, n))
		}
		for _, kind := range [3]Kind{KindSkip, KindReverse, KindDrawTwo} {
			deck = append(deck, Action(color, kind), Action(color, kind))
		}
	}
	for i := 0; i < 4; i++ {
		deck = append(deck, Wild(KindWild), Wild(KindWildDrawFour))
	}
	return deck
}

// ---------------------------------------------------------------------------
// xorshift64 RNG, stored in the state so a persisted room resumes the same stream
// ---------------------------------------------------------------------------

func (g *GameState) nextRand() uint64 {
	x := g.RNG
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	g.RNG = x
	return x
}

// randN returns a uniform number in [0, n). Values from the biased tail of the
// 64-bit range are rejected.
func (g *GameState) randN(n uint64) uint64 {
	limit := ^uint64(0) - (^uint64(0) % n)
	for {
		if x := g.nextRand(); x < limit {
			return x % n
		}
	}
}

func (g *GameState) seed(s uint64) {
	g.RNG = s
	if g.RNG == 0 {
		g.RNG = 1 // xorshift can't start at 0
	}
}

// shuffle is an in-place Fisher-Yates shuffle.
func (g *GameState) shuffle(cards []Card) {
	for i := len(cards) - 1; i > 0; i-- {
		j := int(g.randN(uint64(i + 1)))
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// Shuffle permutes cards in place using a generator seeded with seed.
func Shuffle(cards []Card, seed uint64) {
	var g GameState
	g.seed(seed)
	g.shuffle(cards)
}

// drawN pops up to n cards from the deck. When the deck runs dry the discard
// pile, minus its top card, is shuffled into a new deck. If both are exhausted
// fewer than n cards are returned.
func (g *GameState) drawN(n int) (drawn []Card, reshuffled bool) {
	drawn = make([]Card, 0, n)
	for len(drawn) < n {
		if len(g.Deck) == 0 {
			if !g.reshuffleDiscard() {
				break
			}
			reshuffled = true
		}
		last := len(g.Deck) - 1
		drawn = append(drawn, g.Deck[last])
		g.Deck = g.Deck[:last]
	}
	return drawn, reshuffled
}

// reshuffleDiscard moves all discard cards except the top back into the deck.
func (g *GameState) reshuffleDiscard() bool {
	if len(g.DiscardPile) <= 1 {
		return false
	}
	top := g.DiscardPile[len(g.DiscardPile)-1]
	rest := g.DiscardPile[:len(g.DiscardPile)-1]

	g.Deck = append(g.Deck[:0:0], rest...)
	g.shuffle(g.Deck)
	g.DiscardPile = []Card{top}
	return true
}
