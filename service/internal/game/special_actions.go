// internal/game/special_actions.go
package game

import (
	engine "github.com/jason-s-yu/uno/engine"
)

// Effects of the action cards, as reported to clients in game-updated.
const (
	EffectSkip         = "skip"
	EffectReverse      = "reverse"
	EffectDrawTwo      = "draw_two"
	EffectWild         = "wild"
	EffectWildDrawFour = "wild_draw_four"
)

// cardEffect maps an action card to its effect name. Number cards have none.
func cardEffect(c engine.Card) string {
	switch c.Kind() {
	case engine.KindSkip:
		return EffectSkip
	case engine.KindReverse:
		return EffectReverse
	case engine.KindDrawTwo:
		return EffectDrawTwo
	case engine.KindWild:
		return EffectWild
	case engine.KindWildDrawFour:
		return EffectWildDrawFour
	default:
		return ""
	}
}

// outcomePayload summarises a transition for every member of the room. Drawn
// cards are reported by count only; the drawer sees them in their own hand.
func outcomePayload(out engine.Outcome, actorID string) map[string]interface{} {
	payload := map[string]interface{}{"actor": actorID}

	if out.Played != engine.NoCard {
		payload["card"] = out.Played
		if effect := cardEffect(out.Played); effect != "" {
			payload["effect"] = effect
		}
	}
	if out.Requested > 0 {
		payload["drawn"] = len(out.Drawn)
		payload["requested"] = out.Requested
		if out.Short() {
			payload["short"] = true
		}
	}
	if out.Forced {
		payload["forced"] = true
	}
	if out.Redirected {
		// A non-stacking card was offered against a pending +2/+4.
		payload["redirected"] = true
	}
	if len(out.Penalty) > 0 {
		payload["penalty"] = len(out.Penalty)
	}
	if out.Reshuffled {
		payload["reshuffled"] = true
	}
	if out.Advanced {
		payload["advanced"] = true
	}
	return payload
}
