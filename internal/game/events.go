package game

import (
	"context"
	"sync"
	"time"
)

// EventKind tags a notification sent to subscribers.
type EventKind string

const (
	EventState EventKind = "state" // any accepted mutation; carries Snapshot
	EventTick  EventKind = "tick"  // periodic elapsed update; carries Elapsed
	EventWon   EventKind = "won"   // session completed; carries Result and Snapshot
)

// Event is a single notification. Only the fields relevant to Kind are set.
type Event struct {
	Kind     EventKind     `json:"kind"`
	Snapshot *Snapshot     `json:"snapshot,omitempty"`
	Elapsed  time.Duration `json:"-"`
	Result   *Result       `json:"result,omitempty"`
}

// Recorder receives the result of every completed session.
// *ledger.Ledger and *ledger.Book satisfy it.
type Recorder interface {
	RecordResult(ctx context.Context, r Result)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, r Result)

func (f RecorderFunc) RecordResult(ctx context.Context, r Result) { f(ctx, r) }

// Recorders fans a result out to several recorders in order.
type Recorders []Recorder

func (rs Recorders) RecordResult(ctx context.Context, r Result) {
	for _, rec := range rs {
		if rec != nil {
			rec.RecordResult(ctx, r)
		}
	}
}

// hub keeps the subscriber list. Dispatch copies the list so handlers may
// subscribe or unsubscribe while being called.
type hub struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscriber
}

type subscriber struct {
	id int
	fn func(Event)
}

func (h *hub) subscribe(fn func(Event)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.subs = append(h.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for i, s := range h.subs {
				if s.id == id {
					h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (h *hub) dispatch(events []Event) {
	if len(events) == 0 {
		return
	}
	h.mu.RLock()
	subs := make([]subscriber, len(h.subs))
	copy(subs, h.subs)
	h.mu.RUnlock()

	for _, ev := range events {
		for _, s := range subs {
			s.fn(ev)
		}
	}
}
