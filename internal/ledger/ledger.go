// internal/ledger/ledger.go
//
// Best-score ledger: the top results per difficulty tier.
// Responsibilities:
//   - Keep, per tier, at most MaxEntries records sorted by score (desc).
//   - Load the whole ledger from a key-value Store at startup.
//   - Persist the whole ledger after every recorded result.
//
// Notes:
//   - Store failures never escape: a missing or malformed value loads as an
//     empty ledger, and a failed save keeps the new record in memory.
//   - Ties keep insertion order (stable sort).

package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory-match/internal/game"
)

const (
	// DefaultKey is the namespaced key the ledger lives under.
	DefaultKey = "memoryGame.bestScores"
	// MaxEntries is how many records each tier keeps.
	MaxEntries = 5
)

// ErrNotFound is returned by a Store when the key has never been written.
var ErrNotFound = errors.New("ledger: key not found")

// Store is the persistence collaborator: an opaque key-value store.
type Store interface {
	// Get returns the value saved under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put replaces the value under key.
	Put(ctx context.Context, key string, value []byte) error
}

// Ledger holds the best scores for every tier.
type Ledger struct {
	store Store
	key   string

	mu     sync.RWMutex
	scores map[game.Difficulty][]game.ScoreRecord
}

// New returns an empty ledger bound to key in store. Call Load to read
// what was saved before.
func New(store Store, key string) *Ledger {
	if key == "" {
		key = DefaultKey
	}
	return &Ledger{store: store, key: key, scores: emptyScores()}
}

// Key returns the storage key of this ledger.
func (l *Ledger) Key() string { return l.key }

// Load replaces the in-memory ledger with the persisted one. Anything
// missing, unreadable or malformed yields empty tiers; nothing is returned
// because an empty ledger is always valid.
func (l *Ledger) Load(ctx context.Context) {
	scores := emptyScores()
	defer func() {
		l.mu.Lock()
		l.scores = scores
		l.mu.Unlock()
	}()

	if l.store == nil {
		return
	}
	raw, err := l.store.Get(ctx, l.key)
	if errors.Is(err, ErrNotFound) {
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("key", l.key).Msg("load best scores")
		return
	}

	var stored map[string][]game.ScoreRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		log.Warn().Err(err).Str("key", l.key).Msg("malformed best scores; starting empty")
		return
	}
	for name, recs := range stored {
		d, err := game.ParseDifficulty(name)
		if err != nil {
			log.Debug().Str("tier", name).Msg("dropping unknown tier from best scores")
			continue
		}
		scores[d] = rank(append([]game.ScoreRecord(nil), recs...))
	}
}

// RecordResult files a completed session's score under its tier.
// It satisfies game.Recorder.
func (l *Ledger) RecordResult(ctx context.Context, r game.Result) {
	if err := l.Record(ctx, r.Difficulty, r.Record); err != nil {
		log.Warn().Err(err).Str("difficulty", string(r.Difficulty)).Msg("record result")
	}
}

// Record appends rec to tier d, keeps the top MaxEntries and saves the
// whole ledger. Only an unknown tier is reported; save failures are logged.
func (l *Ledger) Record(ctx context.Context, d game.Difficulty, rec game.ScoreRecord) error {
	if !d.Valid() {
		return game.ErrUnknownDifficulty
	}
	if rec.Score < 0 {
		rec.Score = 0
	}

	// The save happens under the lock so saves land in record order.
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scores[d] = rank(append(l.scores[d], rec))
	payload, err := json.Marshal(l.serializableLocked())
	if err != nil {
		log.Error().Err(err).Str("key", l.key).Msg("encode best scores")
		return nil
	}
	l.save(ctx, payload)
	return nil
}

// Scores returns a copy of tier d's ranking, best first.
func (l *Ledger) Scores(d game.Difficulty) []game.ScoreRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]game.ScoreRecord, len(l.scores[d]))
	copy(out, l.scores[d])
	return out
}

// All returns a copy of every tier's ranking.
func (l *Ledger) All() map[game.Difficulty][]game.ScoreRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[game.Difficulty][]game.ScoreRecord, len(l.scores))
	for d, recs := range l.scores {
		out[d] = append([]game.ScoreRecord{}, recs...)
	}
	return out
}

func (l *Ledger) save(ctx context.Context, payload []byte) {
	if l.store == nil {
		return
	}
	if err := l.store.Put(ctx, l.key, payload); err != nil {
		log.Warn().Err(err).Str("key", l.key).Msg("save best scores")
	}
}

// serializableLocked maps tier names to records: {"easy":[...],...}.
func (l *Ledger) serializableLocked() map[string][]game.ScoreRecord {
	out := make(map[string][]game.ScoreRecord, len(l.scores))
	for d, recs := range l.scores {
		out[string(d)] = recs
	}
	return out
}

// rank sorts best-first, keeping insertion order on ties, and truncates.
func rank(recs []game.ScoreRecord) []game.ScoreRecord {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })
	if len(recs) > MaxEntries {
		recs = recs[:MaxEntries]
	}
	return recs
}

func emptyScores() map[game.Difficulty][]game.ScoreRecord {
	m := make(map[game.Difficulty][]game.ScoreRecord, 3)
	for _, d := range game.Difficulties() {
		m[d] = []game.ScoreRecord{}
	}
	return m
}
