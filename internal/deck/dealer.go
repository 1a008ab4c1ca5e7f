package deck

import (
	"errors"
	"math/rand"
	"sync"
)

const (
	// HandSize cards go to each player on a deal.
	HandSize = 5
	// MaxPlayers is the most hands a 52-card deck can cover.
	MaxPlayers = 52 / HandSize
)

var (
	ErrNoPlayers      = errors.New("deal requires at least one player")
	ErrTooManyPlayers = errors.New("too many players for one deck")
)

// Dealer only shuffles and deals; it knows no game rules. One dealer
// may serve many rooms concurrently: *rand.Rand is not goroutine-safe,
// so every draw goes through the mutex.
type Dealer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewDealer(seed int64) *Dealer {
	return &Dealer{rnd: rand.New(rand.NewSource(seed))}
}

// Shuffle returns an unbiased random permutation of cards. The input
// slice is left untouched; the canonical deck is shared state.
func (d *Dealer) Shuffle(cards []Card) []Card {
	out := make([]Card, len(cards))
	copy(out, cards)
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(out) - 1; i > 0; i-- {
		j := d.rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Deal slices hand k from cards[5k:5k+5) for each of players hands and
// returns the rest of the deck. The input is assumed already shuffled.
func (d *Dealer) Deal(cards []Card, players int) (hands [][]Card, rest []Card, err error) {
	if players < 1 {
		return nil, nil, ErrNoPlayers
	}
	if players > MaxPlayers {
		return nil, nil, ErrTooManyPlayers
	}
	hands = make([][]Card, 0, players)
	for k := 0; k < players; k++ {
		hands = append(hands, cards[k*HandSize:(k+1)*HandSize])
	}
	return hands, cards[players*HandSize:], nil
}

// RandomSuit draws a suit uniformly, independent of any shuffle.
func (d *Dealer) RandomSuit() Suit {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Suits[d.rnd.Intn(len(Suits))]
}
