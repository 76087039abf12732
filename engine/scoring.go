package engine

// Points returns the scoring value of a card: the face value for number
// cards, 20 for skip, reverse and +2, 50 for wilds.
func (c Card) Points() int {
	switch c.Kind() {
	case KindNumber:
		return int(c.Number())
	case KindSkip, KindReverse, KindDrawTwo:
		return 20
	case KindWild, KindWildDrawFour:
		return 50
	}
	return 0
}

// HandPoints returns the total points held in a hand.
func HandPoints(hand []Card) int {
	total := 0
	for _, c := range hand {
		total += c.Points()
	}
	return total
}

// Score returns the winner's score: the points left in every other hand.
// It is 0 while the game is not finished.
func (g *GameState) Score() int {
	if g.Phase() != PhaseFinished {
		return 0
	}
	total := 0
	for _, p := range g.Players {
		if p.ID != g.Winner.ID {
			total += HandPoints(p.Hand)
		}
	}
	return total
}
