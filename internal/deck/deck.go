// internal/deck/deck.go
//
// Card deck generation for the memory game.
// Responsibilities:
//   - Load the ordered symbol alphabet once from the embedded assets.
//   - Build a deck of paired cards for a requested pair count.
//   - Shuffle the deck with an unbiased Fisher–Yates pass.
//
// Notes:
//   - Pair counts above the alphabet size are silently truncated to the
//     alphabet size; no symbols are invented.
//   - Card IDs are "card-<pairIndex>-a" / "card-<pairIndex>-b", so sorting a
//     deck by ID recovers the original pairing.

package deck

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/robalobadob/memory-match/assets"
)

// Card is a single card on the table.
// Invariant: Matched implies Flipped.
type Card struct {
	ID      string `json:"id"`
	Symbol  string `json:"symbol"`
	Flipped bool   `json:"isFlipped"`
	Matched bool   `json:"isMatched"`
}

// Source is the random source used for shuffling.
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
}

var (
	initOnce   sync.Once
	symbols    []string
	initialErr error
)

// Init loads the symbol alphabet exactly once.
// Returns an error if the alphabet is empty or unreadable.
func Init() error {
	initOnce.Do(func() {
		list, err := assets.SymbolList()
		if err != nil {
			initialErr = fmt.Errorf("deck: read symbols: %w", err)
			return
		}
		if len(list) == 0 {
			initialErr = errors.New("deck: symbol alphabet is empty")
			return
		}
		symbols = list
	})
	return initialErr
}

// Symbols returns a copy of the ordered alphabet.
func Symbols() []string {
	_ = Init()
	out := make([]string, len(symbols))
	copy(out, symbols)
	return out
}

// MaxPairs is the largest pair count the alphabet can serve.
func MaxPairs() int {
	_ = Init()
	return len(symbols)
}

// Generate builds a shuffled deck of 2*pairCount cards.
// pairCount is clamped to [0, MaxPairs()].
func Generate(pairCount int, rng Source) []Card {
	_ = Init()
	if pairCount > len(symbols) {
		pairCount = len(symbols)
	}
	if pairCount <= 0 {
		return []Card{}
	}

	cards := make([]Card, 0, pairCount*2)
	for i, sym := range symbols[:pairCount] {
		cards = append(cards,
			Card{ID: fmt.Sprintf("card-%d-a", i), Symbol: sym},
			Card{ID: fmt.Sprintf("card-%d-b", i), Symbol: sym},
		)
	}
	Shuffle(cards, rng)
	return cards
}

// Shuffle permutes cards in place: for i from the last index down to 1,
// swap with a uniformly random index in [0, i].
func Shuffle(cards []Card, rng Source) {
	if rng == nil {
		rng = defaultSource()
	}
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// Seeded returns a deterministic source for the given seed.
func Seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// defaultSource wraps the package-level math/rand/v2 generator.
func defaultSource() Source { return globalSource{} }

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }
