// internal/store/memory.go
//
// In-memory registry of live game sessions.
// Sessions own timers, so they only ever live in process memory; completed
// results are persisted elsewhere (ledger, history).
//
// Characteristics:
//   - Stores *game.Session objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Delete and Close stop the removed sessions' timers.
//   - Save and Get mark a session as seen; Sweep evicts the ones left
//     unseen for longer than a TTL.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/memory-match/internal/game"
)

// ErrNotFound is returned by Get for an unknown session ID.
var ErrNotFound = errors.New("session not found")

// Store defines the registry interface for live sessions.
type Store interface {
	// Save adds or replaces a session under its ID.
	Save(ctx context.Context, s *game.Session) error

	// Get retrieves a session by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*game.Session, error)

	// Delete removes a session and stops its timers. Unknown IDs are ignored.
	Delete(ctx context.Context, id string) error
}

// Memory is an in-memory map-based Store implementation.
type Memory struct {
	mu       sync.RWMutex
	now      func() time.Time
	sessions map[string]*entry
}

type entry struct {
	s    *game.Session
	seen time.Time
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock sets the clock used to age sessions (default time.Now).
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore(opts ...MemoryOption) *Memory {
	m := &Memory{now: time.Now, sessions: make(map[string]*entry)}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Memory) Save(ctx context.Context, s *game.Session) error {
	if s == nil {
		return errors.New("nil session")
	}
	m.mu.Lock()
	prev, ok := m.sessions[s.ID()]
	m.sessions[s.ID()] = &entry{s: s, seen: m.now()}
	m.mu.Unlock()
	if ok && prev.s != s {
		prev.s.Close()
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (*game.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[id]; ok {
		e.seen = m.now()
		return e.s, nil
	}
	return nil, ErrNotFound
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		e.s.Close()
	}
	return nil
}

// Sweep closes and removes every session not saved or fetched within ttl,
// returning the evicted IDs.
func (m *Memory) Sweep(ctx context.Context, ttl time.Duration) []string {
	cutoff := m.now().Add(-ttl)
	var evicted []*game.Session
	m.mu.Lock()
	for id, e := range m.sessions {
		if e.seen.Before(cutoff) {
			evicted = append(evicted, e.s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	ids := make([]string, 0, len(evicted))
	for _, s := range evicted {
		s.Close()
		ids = append(ids, s.ID())
	}
	return ids
}

// Len reports how many sessions are registered.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops every session and empties the registry.
func (m *Memory) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()
	for _, e := range sessions {
		e.s.Close()
	}
}
