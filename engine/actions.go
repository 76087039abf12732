package engine

import "fmt"

// join seats a new player. A player already seated is left alone.
func (g *GameState) join(id, name string, out *Outcome) error {
	if g.PlayerIndex(id) >= 0 {
		out.Rejoined = true
		out.Full = len(g.Players) >= g.MaxPlayers
		return nil
	}
	if g.Started {
		return ErrGameInProgress
	}
	g.Players = append(g.Players, &Player{ID: id, Name: name, Hand: []Card{}})
	out.Full = len(g.Players) >= g.MaxPlayers
	return nil
}

// leave removes a seat. The leaver's cards go to the bottom of the deck so a
// running game keeps all 108 cards in play.
func (g *GameState) leave(id string, out *Outcome) error {
	idx := g.PlayerIndex(id)
	if idx < 0 {
		return ErrPlayerNotFound
	}
	inProgress := g.Phase() == PhaseInProgress
	leaver := g.Players[idx]

	if g.Started && len(leaver.Hand) > 0 {
		g.Deck = append(append([]Card{}, leaver.Hand...), g.Deck...)
		leaver.Hand = nil
	}
	wasCurrent := g.CurrentPlayerIndex == idx
	g.Players = append(g.Players[:idx], g.Players[idx+1:]...)

	if len(g.Players) == 0 {
		g.CurrentPlayerIndex = 0
		out.Emptied = true
		return nil
	}

	switch {
	case wasCurrent:
		g.CurrentPlayerIndex %= len(g.Players)
	case g.CurrentPlayerIndex > idx:
		g.CurrentPlayerIndex--
	}

	if inProgress && len(g.Players) < MinPlayers {
		g.Winner = g.Players[0].clone()
		out.Finished = true
	}
	return nil
}

// checkTurn validates the shared preconditions of play and draw.
func (g *GameState) checkTurn(playerID string) (*Player, error) {
	switch g.Phase() {
	case PhaseWaiting:
		return nil, ErrNotStarted
	case PhaseFinished:
		return nil, ErrGameOver
	}
	p := g.Player(playerID)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	if g.CurrentPlayer().ID != playerID {
		return nil, ErrNotYourTurn
	}
	return p, nil
}

// play moves card from the player's hand onto the discard pile and applies its
// effect. While a +2/+4 chain is pending, any other card is turned into the
// forced draw instead of being rejected.
func (g *GameState) play(playerID string, card Card, chosen Color, out *Outcome) error {
	p, err := g.checkTurn(playerID)
	if err != nil {
		return err
	}
	idx := findInHand(p.Hand, card)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrCardNotInHand, card)
	}
	played := p.Hand[idx]

	if g.stackPending() && !played.IsDrawCard() {
		out.Redirected = true
		return g.draw(playerID, out)
	}
	if !g.IsPlayable(played) {
		return fmt.Errorf("%w: %s on %s (%s)", ErrIllegalMove, played, g.DiscardTop(), g.CurrentColor)
	}
	if played.IsWild() && !chosen.IsPlayColor() {
		return ErrColorRequired
	}

	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	g.DiscardPile = append(g.DiscardPile, played)
	out.Played = played

	if played.IsWild() {
		g.CurrentColor = chosen
	} else {
		g.CurrentColor = played.Color()
	}

	switch played.Kind() {
	case KindSkip:
		g.advanceTurn()
	case KindReverse:
		g.Direction = -g.Direction
		if len(g.Players) == 2 {
			g.advanceTurn()
		}
	case KindDrawTwo, KindWildDrawFour:
		g.DrawStack += played.DrawPenalty()
	}

	// Forgot to call UNO.
	if len(p.Hand) == 1 && !p.CalledUno {
		penalty, reshuffled := g.drawN(g.Rules.unoPenalty())
		p.Hand = append(p.Hand, penalty...)
		out.Penalty = penalty
		out.Reshuffled = out.Reshuffled || reshuffled
	}

	if len(p.Hand) == 0 {
		g.Winner = p.clone()
		out.Finished = true
		return nil
	}

	p.CalledUno = false
	g.advanceTurn()
	out.Advanced = true
	return nil
}

// draw takes max(1, DrawStack) cards. A forced draw always ends the turn; a
// voluntary draw ends it only when nothing in hand can be played.
func (g *GameState) draw(playerID string, out *Outcome) error {
	p, err := g.checkTurn(playerID)
	if err != nil {
		return err
	}

	count := 1
	if g.DrawStack > 0 {
		count = g.DrawStack
	}
	drawn, reshuffled := g.drawN(count)
	p.Hand = append(p.Hand, drawn...)

	out.Drawn = drawn
	out.Requested = count
	out.Reshuffled = out.Reshuffled || reshuffled

	if g.DrawStack > 0 {
		g.DrawStack = 0
		out.Forced = true
		g.advanceTurn()
		out.Advanced = true
	} else if !g.HasPlayableCard(p.Hand) {
		g.advanceTurn()
		out.Advanced = true
	}
	return nil
}

func (g *GameState) callUno(playerID string) error {
	if g.Phase() != PhaseInProgress {
		if g.Phase() == PhaseFinished {
			return ErrGameOver
		}
		return ErrNotStarted
	}
	p := g.Player(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	p.CalledUno = true
	return nil
}

// reset returns a finished room to the waiting phase with the same seats.
func (g *GameState) reset() error {
	if g.Phase() != PhaseFinished {
		return ErrGameNotFinished
	}
	for _, p := range g.Players {
		p.Hand = []Card{}
		p.CalledUno = false
	}
	g.Deck = []Card{}
	g.DiscardPile = []Card{}
	g.CurrentPlayerIndex = 0
	g.Direction = 1
	g.DrawStack = 0
	g.CurrentColor = ColorRed
	g.Winner = nil
	g.Started = false
	return nil
}
