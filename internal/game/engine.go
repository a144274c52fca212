// internal/game/engine.go
//
// Core game engine for a single memory-match session.
// Responsibilities:
//   - Deal a fresh deck for a difficulty tier and start the clock.
//   - Apply flips: reveal, detect matches, count moves.
//   - Resolve mismatches after a fixed delay via a cancellable timer.
//   - Track state transitions: idle → active → complete.
//   - Compute the final score and report the result exactly once.
//
// Notes:
//   - Every scheduled callback captures the session generation. Start and
//     Reset bump the generation and stop outstanding timers, so a callback
//     from an earlier game can never touch the current one.
//   - Timers fire on their own goroutines; mu guards all state. Events are
//     queued under mu and delivered after it is released, in mutation order.
//   - The completing Flip records the result itself, outside mu, before it
//     returns and before the won event is queued.
//   - Invalid flips are ignored, never errors.

package game

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/memory-match/internal/deck"
)

const (
	DefaultMismatchDelay = time.Second
	DefaultTickInterval  = time.Second
)

// Session owns one game's cards, pending pair, counters and timers.
type Session struct {
	id    string
	owner string

	sched         Scheduler
	rng           deck.Source
	deal          Dealer
	recorder      Recorder
	mismatchDelay time.Duration
	tickInterval  time.Duration

	mu         sync.Mutex
	gen        uint64
	phase      Phase
	difficulty Difficulty
	columns    int
	cards      []deck.Card
	index      map[string]int // card ID → position in cards
	pending    []int          // positions of flipped-but-unresolved cards
	matched    int
	total      int
	moves      int
	startedAt  time.Time
	elapsed    time.Duration
	score      int
	resolve    Timer // pending mismatch resolution
	tick       Timer

	// outbox holds events queued under mu. Whoever finds draining unset
	// delivers the queue, so events leave in the order their mutations
	// happened and handlers may call back into the session.
	outbox   []Event
	draining bool
	hub      hub
}

// Dealer builds the deck for a game of the given pair count.
type Dealer func(pairs int, rng deck.Source) []deck.Card

// Option configures a Session.
type Option func(*Session)

// WithID sets the session identifier (default: random UUID).
func WithID(id string) Option { return func(s *Session) { s.id = id } }

// WithOwner tags the session with the player it belongs to.
func WithOwner(owner string) Option { return func(s *Session) { s.owner = owner } }

// WithScheduler replaces the wall clock and timers.
func WithScheduler(sc Scheduler) Option { return func(s *Session) { s.sched = sc } }

// WithRandom sets the shuffle source for every deck this session deals.
func WithRandom(src deck.Source) Option { return func(s *Session) { s.rng = src } }

// WithDealer replaces deck.Generate as the source of new decks.
func WithDealer(d Dealer) Option { return func(s *Session) { s.deal = d } }

// WithRecorder sets who receives the result of a completed game.
func WithRecorder(r Recorder) Option { return func(s *Session) { s.recorder = r } }

// WithMismatchDelay sets how long a mismatched pair stays face up.
func WithMismatchDelay(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.mismatchDelay = d
		}
	}
}

// WithTickInterval sets the cadence of tick notifications.
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// NewSession constructs an idle session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		id:            uuid.NewString(),
		sched:         RealScheduler{},
		deal:          deck.Generate,
		mismatchDelay: DefaultMismatchDelay,
		tickInterval:  DefaultTickInterval,
		phase:         PhaseIdle,
	}
	for _, o := range opts {
		o(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Owner returns the player the session belongs to ("" for none).
func (s *Session) Owner() string { return s.owner }

// Subscribe registers fn for every future event. Handlers may call back
// into the session; events they cause are delivered after the current
// batch. The returned func unsubscribes.
func (s *Session) Subscribe(fn func(Event)) func() { return s.hub.subscribe(fn) }

// Start deals a new deck for d and begins play. Any game in progress is
// discarded. An unknown difficulty leaves the session untouched.
func (s *Session) Start(d Difficulty) error {
	tier, err := TierFor(d)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.stopTimersLocked()
	s.gen++
	s.difficulty = d
	s.columns = tier.Columns
	s.cards = s.deal(tier.Pairs, s.rng)
	s.index = make(map[string]int, len(s.cards))
	for i, c := range s.cards {
		s.index[c.ID] = i
	}
	s.pending = s.pending[:0]
	s.matched = 0
	s.total = len(s.cards) / 2
	s.moves = 0
	s.score = 0
	s.elapsed = 0
	s.startedAt = s.sched.Now()
	s.phase = PhaseActive
	s.scheduleTickLocked(s.gen)

	s.emitLocked(s.stateEventLocked())
	return nil
}

// Flip reveals cardID. It returns false when the flip is ignored: the game
// is not active, the card is unknown, already flipped or matched, or a
// mismatched pair is still waiting to be turned back.
func (s *Session) Flip(ctx context.Context, cardID string) bool {
	s.mu.Lock()
	i, ok := s.index[cardID]
	if s.phase != PhaseActive || !ok || len(s.pending) >= 2 {
		s.mu.Unlock()
		return false
	}
	card := &s.cards[i]
	if card.Matched || card.Flipped {
		s.mu.Unlock()
		return false
	}

	card.Flipped = true
	s.pending = append(s.pending, i)

	var result *Result
	if len(s.pending) == 2 {
		s.moves++
		a, b := &s.cards[s.pending[0]], &s.cards[s.pending[1]]
		if a.Symbol == b.Symbol {
			a.Matched, b.Matched = true, true
			s.matched++
			s.pending = s.pending[:0]
			if s.matched == s.total {
				result = s.completeLocked()
			}
		} else {
			gen := s.gen
			s.resolve = s.sched.AfterFunc(s.mismatchDelay, func() { s.resolveMismatch(gen) })
		}
	}

	state := s.stateEventLocked()
	if result == nil {
		s.emitLocked(state)
		return true
	}

	// The result is stored before Flip returns and before anyone hears
	// about the win. The caller's cancellation must not cut the write short.
	gen := s.gen
	s.mu.Unlock()
	if s.recorder != nil {
		s.recorder.RecordResult(context.WithoutCancel(ctx), *result)
	}
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return true
	}
	s.emitLocked(state, Event{Kind: EventWon, Result: result, Snapshot: state.Snapshot})
	return true
}

// Reset discards the current game and returns to idle. Pending timers are
// cancelled; recorded results are not touched.
func (s *Session) Reset() {
	s.mu.Lock()
	s.stopTimersLocked()
	s.gen++
	s.phase = PhaseIdle
	s.cards = nil
	s.index = nil
	s.pending = s.pending[:0]
	s.matched = 0
	s.total = 0
	s.moves = 0
	s.score = 0
	s.elapsed = 0
	s.startedAt = time.Time{}

	s.emitLocked(s.stateEventLocked())
}

// Close stops all timers without emitting anything. The session stays
// readable but no longer ticks.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimersLocked()
	s.gen++
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// resolveMismatch turns a mismatched pair back over. It is a no-op if the
// session moved on (reset, restart) since the timer was armed.
func (s *Session) resolveMismatch(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || len(s.pending) != 2 {
		s.mu.Unlock()
		return
	}
	for _, i := range s.pending {
		s.cards[i].Flipped = false
	}
	s.pending = s.pending[:0]
	s.resolve = nil

	s.emitLocked(s.stateEventLocked())
}

// onTick refreshes the advisory elapsed time and re-arms itself.
func (s *Session) onTick(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.phase != PhaseActive {
		s.mu.Unlock()
		return
	}
	s.elapsed = s.sched.Now().Sub(s.startedAt)
	elapsed := s.elapsed
	s.scheduleTickLocked(gen)

	s.emitLocked(Event{Kind: EventTick, Elapsed: elapsed})
}

// emitLocked queues events and releases mu. If no other goroutine is
// delivering, it drains the queue itself.
func (s *Session) emitLocked(events ...Event) {
	s.outbox = append(s.outbox, events...)
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.outbox) > 0 {
		batch := s.outbox
		s.outbox = nil
		s.mu.Unlock()
		s.hub.dispatch(batch)
		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
}

func (s *Session) scheduleTickLocked(gen uint64) {
	s.tick = s.sched.AfterFunc(s.tickInterval, func() { s.onTick(gen) })
}

// completeLocked freezes the clock and computes the score. The elapsed time
// is taken now, not from the last tick.
func (s *Session) completeLocked() *Result {
	s.phase = PhaseComplete
	s.stopTimersLocked()
	now := s.sched.Now()
	s.elapsed = now.Sub(s.startedAt)
	s.score = Score(s.total, s.moves, s.elapsed)
	return &Result{
		SessionID:  s.id,
		Owner:      s.owner,
		Difficulty: s.difficulty,
		TotalPairs: s.total,
		Record: ScoreRecord{
			Score:   s.score,
			Moves:   s.moves,
			Elapsed: MillisOf(s.elapsed),
			Date:    now.UTC(),
		},
	}
}

func (s *Session) stopTimersLocked() {
	if s.resolve != nil {
		s.resolve.Stop()
		s.resolve = nil
	}
	if s.tick != nil {
		s.tick.Stop()
		s.tick = nil
	}
}

func (s *Session) stateEventLocked() Event {
	snap := s.snapshotLocked()
	return Event{Kind: EventState, Snapshot: &snap}
}

func (s *Session) snapshotLocked() Snapshot {
	cards := make([]deck.Card, len(s.cards))
	copy(cards, s.cards)
	pending := make([]string, len(s.pending))
	for k, i := range s.pending {
		pending[k] = s.cards[i].ID
	}
	return Snapshot{
		ID:           s.id,
		Phase:        s.phase,
		Difficulty:   s.difficulty,
		Columns:      s.columns,
		Cards:        cards,
		Pending:      pending,
		MatchedPairs: s.matched,
		TotalPairs:   s.total,
		Moves:        s.moves,
		Elapsed:      MillisOf(s.elapsed),
		StartedAt:    s.startedAt,
		Score:        s.score,
	}
}
