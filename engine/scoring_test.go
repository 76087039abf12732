package engine

import "testing"

func TestCardPoints(t *testing.T) {
	tests := []struct {
		card Card
		want int
	}{
		{Number(ColorRed, 0), 0},
		{Number(ColorGreen, 7), 7},
		{Number(ColorBlue, 9), 9},
		{Action(ColorYellow, KindSkip), 20},
		{Action(ColorRed, KindReverse), 20},
		{Action(ColorBlue, KindDrawTwo), 20},
		{Wild(KindWild), 50},
		{Wild(KindWildDrawFour), 50},
	}
	for _, tt := range tests {
		if got := tt.card.Points(); got != tt.want {
			t.Errorf("%s.Points() = %d, want %d", tt.card, got, tt.want)
		}
	}
}

func TestHandPoints(t *testing.T) {
	if got := HandPoints(nil); got != 0 {
		t.Errorf("HandPoints(nil) = %d", got)
	}
	hand := []Card{Number(ColorRed, 3), Action(ColorGreen, KindSkip), Wild(KindWildDrawFour)}
	if got := HandPoints(hand); got != 73 {
		t.Errorf("HandPoints = %d, want 73", got)
	}
}

func TestScore(t *testing.T) {
	g := setupGame(t, Number(ColorRed, 5),
		[]Card{Number(ColorRed, 7)},
		[]Card{Number(ColorBlue, 3), Action(ColorRed, KindDrawTwo)},
		[]Card{Wild(KindWild)})
	if got := g.Score(); got != 0 {
		t.Fatalf("Score before the end = %d, want 0", got)
	}

	next, out := mustApply(t, g, Intent{Type: IntentPlay, PlayerID: "p1", Card: Number(ColorRed, 7)})
	if !out.Finished {
		t.Fatal("expected the game to finish")
	}
	if got := next.Score(); got != 73 {
		t.Errorf("Score = %d, want 73", got)
	}
}
