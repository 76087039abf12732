package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Color is the colour of a card, or the active colour of a game.
type Color uint8

const (
	ColorRed    Color = 0
	ColorGreen  Color = 1
	ColorBlue   Color = 2
	ColorYellow Color = 3
	ColorWild   Color = 4
)

// PlayColors are the four colours a wild may name.
var PlayColors = [4]Color{ColorRed, ColorGreen, ColorBlue, ColorYellow}

var colorNames = [...]string{"red", "green", "blue", "yellow", "wild"}

func (c Color) String() string {
	if int(c) < len(colorNames) {
		return colorNames[c]
	}
	return "?"
}

// IsPlayColor reports whether c is one of the four real colours.
func (c Color) IsPlayColor() bool { return c <= ColorYellow }

// ParseColor converts a wire colour name.
func ParseColor(s string) (Color, error) {
	for i, n := range colorNames {
		if n == s {
			return Color(i), nil
		}
	}
	return 0, fmt.Errorf("unknown color %q", s)
}

func (c Color) MarshalText() ([]byte, error) {
	if int(c) >= len(colorNames) {
		return nil, fmt.Errorf("invalid color %d", c)
	}
	return []byte(colorNames[c]), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Kind is the face type of a card.
type Kind uint8

const (
	KindNumber       Kind = 0
	KindSkip         Kind = 1
	KindReverse      Kind = 2
	KindDrawTwo      Kind = 3
	KindWild         Kind = 4
	KindWildDrawFour Kind = 5
)

// Wire names match the browser client ("+2", "+4").
var kindNames = [...]string{"number", "skip", "reverse", "+2", "wild", "+4"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "?"
}

// ParseKind converts a wire kind name.
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown card type %q", s)
}

// Card is a packed uint16: bits 8–10 colour, bits 4–6 kind, bits 0–3 number.
type Card uint16

// NoCard represents the absence of a card.
const NoCard Card = 0xFFFF

// NewCard constructs a Card. number is ignored for non-number kinds.
func NewCard(color Color, kind Kind, number uint8) Card {
	if kind != KindNumber {
		number = 0
	}
	return Card(uint16(color)<<8 | uint16(kind)<<4 | uint16(number&0x0F))
}

// Number constructs a coloured number card.
func Number(color Color, n uint8) Card { return NewCard(color, KindNumber, n) }

// Action constructs a coloured skip, reverse or +2.
func Action(color Color, kind Kind) Card { return NewCard(color, kind, 0) }

// Wild constructs a colourless wild or wild +4.
func Wild(kind Kind) Card { return NewCard(ColorWild, kind, 0) }

func (c Card) Color() Color  { return Color(uint16(c) >> 8 & 0x07) }
func (c Card) Kind() Kind    { return Kind(uint16(c) >> 4 & 0x07) }
func (c Card) Number() uint8 { return uint8(uint16(c) & 0x0F) }

// IsWild is true for wild and wild +4.
func (c Card) IsWild() bool {
	k := c.Kind()
	return k == KindWild || k == KindWildDrawFour
}

// IsDrawCard is true for the +2/+4 family.
func (c Card) IsDrawCard() bool {
	k := c.Kind()
	return k == KindDrawTwo || k == KindWildDrawFour
}

// DrawPenalty is how much the card adds to the draw stack.
func (c Card) DrawPenalty() int {
	switch c.Kind() {
	case KindDrawTwo:
		return 2
	case KindWildDrawFour:
		return 4
	}
	return 0
}

// Face is the card's comparable value: the digit for number cards,
// the kind tag otherwise.
func (c Card) Face() string {
	if c.Kind() == KindNumber {
		return strconv.Itoa(int(c.Number()))
	}
	return c.Kind().String()
}

// Valid reports whether the packed bits describe a card that exists in the deck.
func (c Card) Valid() bool {
	if c == NoCard || c.Color() > ColorWild || c.Kind() > KindWildDrawFour {
		return false
	}
	if c.IsWild() {
		return c.Color() == ColorWild
	}
	if c.Color() == ColorWild {
		return false
	}
	return c.Kind() != KindNumber || c.Number() <= 9
}

func (c Card) String() string {
	if c == NoCard {
		return "none"
	}
	if c.IsWild() {
		return c.Kind().String()
	}
	return c.Color().String() + " " + c.Face()
}

type wireCard struct {
	Color string          `json:"color"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// MarshalJSON writes the card as {"color","type","value"}.
func (c Card) MarshalJSON() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid card %#04x", uint16(c))
	}
	w := wireCard{Color: c.Color().String(), Type: c.Kind().String()}
	if c.Kind() == KindNumber {
		w.Value = json.RawMessage(strconv.Itoa(int(c.Number())))
	} else {
		w.Value = json.RawMessage(strconv.Quote(c.Kind().String()))
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts the wire shape and rejects anything not in the deck.
func (c *Card) UnmarshalJSON(b []byte) error {
	var w wireCard
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("decode card: %w", err)
	}
	color, err := ParseColor(w.Color)
	if err != nil {
		return err
	}
	kind, err := ParseKind(w.Type)
	if err != nil {
		return err
	}
	var number uint8
	if kind == KindNumber {
		var n int
		if err := json.Unmarshal(w.Value, &n); err != nil {
			return fmt.Errorf("number card needs a numeric value: %w", err)
		}
		if n < 0 || n > 9 {
			return fmt.Errorf("number card value %d out of range", n)
		}
		number = uint8(n)
	}
	card := NewCard(color, kind, number)
	if !card.Valid() {
		return fmt.Errorf("no such card: %s %s", w.Color, w.Type)
	}
	*c = card
	return nil
}

// Player is one seat at the table.
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Hand      []Card `json:"hand"`
	CalledUno bool   `json:"calledUno"`
}

// Phase is the externally visible state of the turn machine.
type Phase uint8

const (
	PhaseWaiting    Phase = 0
	PhaseInProgress Phase = 1
	PhaseFinished   Phase = 2
)

var phaseNames = [...]string{"waiting", "in_progress", "finished"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "?"
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	for i, n := range phaseNames {
		if n == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}
