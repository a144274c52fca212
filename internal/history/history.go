// internal/history/history.go
//
// SQLite log of completed games.
// Responsibilities:
//   - Insert one row per completed session (owner, tier, score, moves, time).
//   - Bump the owner's profile counters when the owner is a registered user.
//   - List an owner's recent games and move guest games to an account.
//
// Notes:
//   - RecordResult satisfies game.Recorder and never fails the caller;
//     database errors are logged.

package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory-match/internal/game"
)

// DefaultLimit caps ListByOwner when no limit is given.
const DefaultLimit = 50

// timeLayout is fixed-width so finished_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Game is one row of the games table.
type Game struct {
	ID         string          `json:"id"`
	Owner      string          `json:"-"`
	Difficulty game.Difficulty `json:"difficulty"`
	Score      int             `json:"score"`
	Moves      int             `json:"moves"`
	Elapsed    game.Millis     `json:"time"`
	FinishedAt time.Time       `json:"finishedAt"`
}

// Store reads and writes the games table.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// RecordResult logs a completed session. It satisfies game.Recorder.
func (s *Store) RecordResult(ctx context.Context, r game.Result) {
	if err := s.Insert(ctx, r); err != nil {
		log.Warn().Err(err).Str("gameId", r.SessionID).Msg("record game history")
	}
}

// Insert stores r and, in the same transaction, bumps the owning user's
// games_played and best_score. Guests have no users row; the update is a
// no-op for them.
func (s *Store) Insert(ctx context.Context, r game.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rec := r.Record
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO games (id, owner, difficulty, score, moves, elapsed_ms, finished_at)
		 VALUES (?,?,?,?,?,?,?)`,
		r.SessionID, r.Owner, string(r.Difficulty), rec.Score, rec.Moves, int64(rec.Elapsed),
		rec.Date.UTC().Format(timeLayout),
	); err != nil {
		return fmt.Errorf("insert game: %w", err)
	}

	if r.Owner != "" {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET games_played = games_played + 1, best_score = MAX(best_score, ?) WHERE id=?`,
			rec.Score, r.Owner,
		); err != nil {
			return fmt.Errorf("bump stats: %w", err)
		}
	}
	return tx.Commit()
}

// ListByOwner returns owner's most recent games, newest first.
func (s *Store) ListByOwner(ctx context.Context, owner string, limit int) ([]Game, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner, difficulty, score, moves, elapsed_ms, finished_at
		 FROM games WHERE owner=? ORDER BY finished_at DESC LIMIT ?`, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	out := []Game{}
	for rows.Next() {
		var g Game
		var diff, finished string
		var elapsed int64
		if err := rows.Scan(&g.ID, &g.Owner, &diff, &g.Score, &g.Moves, &elapsed, &finished); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		g.Difficulty = game.Difficulty(diff)
		g.Elapsed = game.Millis(elapsed)
		g.FinishedAt, _ = time.Parse(timeLayout, finished)
		out = append(out, g)
	}
	return out, rows.Err()
}

// Claim moves every game logged under from to owner to. Used when a guest
// signs up or logs in.
func (s *Store) Claim(ctx context.Context, from, to string) error {
	if from == "" || to == "" || from == to {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE games SET owner=? WHERE owner=?`, to, from); err != nil {
		return fmt.Errorf("claim games: %w", err)
	}
	return nil
}
