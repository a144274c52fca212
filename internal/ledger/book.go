package ledger

import (
	"context"
	"sync"

	"github.com/robalobadob/memory-match/internal/game"
)

// Book hands out one Ledger per owner, loading each on first use.
// The anonymous owner ("") uses DefaultKey; others get DefaultKey/<owner>.
type Book struct {
	store Store

	mu      sync.Mutex
	ledgers map[string]*Ledger
}

// NewBook returns a Book backed by store.
func NewBook(store Store) *Book {
	return &Book{store: store, ledgers: make(map[string]*Ledger)}
}

// KeyFor returns the storage key of owner's ledger.
func KeyFor(owner string) string {
	if owner == "" {
		return DefaultKey
	}
	return DefaultKey + "/" + owner
}

// For returns owner's ledger, loading it from the store the first time.
func (b *Book) For(ctx context.Context, owner string) *Ledger {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l, ok := b.ledgers[owner]; ok {
		return l
	}
	l := New(b.store, KeyFor(owner))
	l.Load(ctx)
	b.ledgers[owner] = l
	return l
}

// RecordResult routes a result to its owner's ledger.
// It satisfies game.Recorder.
func (b *Book) RecordResult(ctx context.Context, r game.Result) {
	b.For(ctx, r.Owner).RecordResult(ctx, r)
}

// Forget drops owner's cached ledger; the next For reloads it.
func (b *Book) Forget(owner string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.ledgers, owner)
}
