package deck

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Suit is the single-letter wire code for a card suit.
type Suit string

const (
	Hearts   Suit = "H"
	Diamonds Suit = "D"
	Clubs    Suit = "C"
	Spades   Suit = "S"
)

// Suits in canonical deck order.
var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

// Rank 2-14, where 11=J, 12=Q, 13=K, 14=A.
type Rank int

const (
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

func (r Rank) String() string {
	switch r {
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	}
	return fmt.Sprintf("%d", int(r))
}

// Card is an immutable rank+suit value. Equality is by value.
type Card struct {
	Rank Rank
	Suit Suit
}

// String renders the wire code, e.g. "10H" or "AS".
func (c Card) String() string {
	return c.Rank.String() + string(c.Suit)
}

// MarshalJSON encodes cards as their wire code so hands arrive on the
// socket as ["10H","AS",...].
func (c Card) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

func (c *Card) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	parsed, err := ParseCard(code)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCard decodes a wire code like "10H" or "AS".
func ParseCard(code string) (Card, error) {
	if len(code) < 2 {
		return Card{}, fmt.Errorf("invalid card code %q", code)
	}
	suit := Suit(code[len(code)-1:])
	switch suit {
	case Hearts, Diamonds, Clubs, Spades:
	default:
		return Card{}, fmt.Errorf("invalid suit in card code %q", code)
	}

	var rank Rank
	switch tok := code[:len(code)-1]; tok {
	case "J":
		rank = Jack
	case "Q":
		rank = Queen
	case "K":
		rank = King
	case "A":
		rank = Ace
	default:
		n, err := strconv.Atoi(tok)
		if err != nil || n < 2 || n > 10 {
			return Card{}, fmt.Errorf("invalid rank in card code %q", code)
		}
		rank = Rank(n)
	}
	return Card{Rank: rank, Suit: suit}, nil
}

// New returns the canonical 52-card deck: hearts, diamonds, clubs,
// spades, ranks ascending 2..A within each suit. Callers must copy
// before mutating.
func New() []Card {
	cards := make([]Card, 0, 52)
	for _, s := range Suits {
		for r := Rank(2); r <= Ace; r++ {
			cards = append(cards, Card{Rank: r, Suit: s})
		}
	}
	return cards
}
