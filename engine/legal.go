package engine

// CanPlayOn reports whether card may be played against the given top card and
// active colour. A wild is always playable; anything else must match the
// colour or the face value.
func CanPlayOn(card, top Card, current Color) bool {
	if card.IsWild() {
		return true
	}
	if card.Color() == current {
		return true
	}
	return top != NoCard && card.Face() == top.Face()
}

// IsPlayable checks card against this game's discard top and active colour.
func (g *GameState) IsPlayable(card Card) bool {
	return CanPlayOn(card, g.DiscardTop(), g.CurrentColor)
}

// HasPlayableCard reports whether any card in hand is playable right now.
func (g *GameState) HasPlayableCard(hand []Card) bool {
	for _, c := range hand {
		if g.IsPlayable(c) {
			return true
		}
	}
	return false
}

// PlayableCards returns the playable cards of the given player, in hand order.
func (g *GameState) PlayableCards(playerID string) []Card {
	p := g.Player(playerID)
	if p == nil || g.Phase() != PhaseInProgress {
		return nil
	}
	var out []Card
	for _, c := range p.Hand {
		if g.stackPending() && !c.IsDrawCard() {
			continue
		}
		if g.IsPlayable(c) {
			out = append(out, c)
		}
	}
	return out
}

// stackPending is true while a chain of +2/+4 is waiting to be answered: only
// another draw card may be played on top of it.
func (g *GameState) stackPending() bool {
	return g.DrawStack > 1 && g.DiscardTop().IsDrawCard()
}

// findInHand returns the index of the first hand card matching card by colour
// and kind; the number must match exactly for number cards.
func findInHand(hand []Card, card Card) int {
	for i, c := range hand {
		if c.Color() != card.Color() || c.Kind() != card.Kind() {
			continue
		}
		if c.Kind() == KindNumber && c.Number() != card.Number() {
			continue
		}
		return i
	}
	return -1
}
