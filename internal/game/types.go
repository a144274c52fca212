// internal/game/types.go
//
// Core type definitions for the memory game engine.
// Defines:
//   - Difficulty / Tier: the fixed difficulty table.
//   - Phase: coarse session state (idle → active → complete).
//   - Snapshot: read-only copy of a session handed to subscribers.
//   - ScoreRecord / Result: what a finished session reports.

package game

import (
	"errors"
	"strings"
	"time"

	"github.com/robalobadob/memory-match/internal/deck"
)

// ErrUnknownDifficulty is returned for a tier outside the fixed table.
var ErrUnknownDifficulty = errors.New("unknown difficulty")

// Difficulty names a tier of the fixed difficulty table.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Tier is the configuration behind a Difficulty.
type Tier struct {
	Pairs   int `json:"pairs"`   // number of symbol pairs dealt
	Columns int `json:"columns"` // layout hint for the presentation layer
}

var tiers = map[Difficulty]Tier{
	Easy:   {Pairs: 8, Columns: 4},
	Medium: {Pairs: 12, Columns: 5},
	Hard:   {Pairs: 18, Columns: 6},
}

// Difficulties lists every tier in display order.
func Difficulties() []Difficulty { return []Difficulty{Easy, Medium, Hard} }

// TierFor looks up the configuration of d.
func TierFor(d Difficulty) (Tier, error) {
	t, ok := tiers[d]
	if !ok {
		return Tier{}, ErrUnknownDifficulty
	}
	return t, nil
}

// Valid reports whether d is part of the fixed table.
func (d Difficulty) Valid() bool {
	_, ok := tiers[d]
	return ok
}

// ParseDifficulty normalizes s and validates it against the table.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", ErrUnknownDifficulty
	}
	return d, nil
}

// Phase is the coarse session state.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseActive   Phase = "active"
	PhaseComplete Phase = "complete"
)

// ScoreRecord is an immutable result entry kept by the best-score ledger.
// JSON shape: {score, moves, time (ms), date}.
type ScoreRecord struct {
	Score   int       `json:"score"`
	Moves   int       `json:"moves"`
	Elapsed Millis    `json:"time"`
	Date    time.Time `json:"date"`
}

// Millis is a duration serialized as whole milliseconds.
type Millis int64

// MillisOf truncates d to milliseconds.
func MillisOf(d time.Duration) Millis { return Millis(d.Milliseconds()) }

// Duration converts back to a time.Duration.
func (m Millis) Duration() time.Duration { return time.Duration(m) * time.Millisecond }

// Result summarizes a completed session.
type Result struct {
	SessionID  string      `json:"sessionId"`
	Owner      string      `json:"owner,omitempty"`
	Difficulty Difficulty  `json:"difficulty"`
	TotalPairs int         `json:"totalPairs"`
	Record     ScoreRecord `json:"record"`
}

// Snapshot is a deep copy of a session's state at one instant.
type Snapshot struct {
	ID           string      `json:"id"`
	Phase        Phase       `json:"phase"`
	Difficulty   Difficulty  `json:"difficulty"`
	Columns      int         `json:"columns"`
	Cards        []deck.Card `json:"cards"`
	Pending      []string    `json:"pending"` // IDs of flipped-but-unresolved cards (0..2)
	MatchedPairs int         `json:"matchedPairs"`
	TotalPairs   int         `json:"totalPairs"`
	Moves        int         `json:"moves"`
	Elapsed      Millis      `json:"elapsed"`
	StartedAt    time.Time   `json:"startedAt,omitempty"`
	Score        int         `json:"score"` // final score; 0 until complete
}

// Active reports whether the snapshot was taken during play.
func (s Snapshot) Active() bool { return s.Phase == PhaseActive }
