package daily

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory-match/internal/game"
)

// DefaultLeaderboardSize is how many rows Leaderboard returns by default.
const DefaultLeaderboardSize = 20

// Result is one completed daily game.
type Result struct {
	Owner      string          `json:"-"`
	Date       string          `json:"date"`
	Difficulty game.Difficulty `json:"difficulty"`
	Score      int             `json:"score"`
	Moves      int             `json:"moves"`
	Elapsed    game.Millis     `json:"time"`
}

// Store reads and writes the daily_results table.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) AlreadyPlayed(ctx context.Context, owner, date string, d game.Difficulty) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM daily_results WHERE owner=? AND date=? AND difficulty=?`,
		owner, date, string(d),
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult stores r. A second result for the same owner, date and tier
// is rejected with ErrAlreadyPlayed.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(owner, date, difficulty, score, moves, elapsed_ms)
		 VALUES(?,?,?,?,?,?)`,
		r.Owner, r.Date, string(r.Difficulty), r.Score, r.Moves, int64(r.Elapsed),
	)
	if err != nil {
		return fmt.Errorf("insert daily result: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAlreadyPlayed
	}
	return nil
}

// Recorder files completed sessions as daily results for date.
func (s *Store) Recorder(date string) game.Recorder {
	return game.RecorderFunc(func(ctx context.Context, r game.Result) {
		err := s.InsertResult(ctx, Result{
			Owner:      r.Owner,
			Date:       date,
			Difficulty: r.Difficulty,
			Score:      r.Record.Score,
			Moves:      r.Record.Moves,
			Elapsed:    r.Record.Elapsed,
		})
		if err != nil {
			log.Warn().Err(err).Str("owner", r.Owner).Str("date", date).Msg("record daily result")
		}
	})
}

// LBRow is one leaderboard line. Guests show up as "guest".
type LBRow struct {
	Player  string      `json:"player"`
	Score   int         `json:"score"`
	Moves   int         `json:"moves"`
	Elapsed game.Millis `json:"time"`
}

// Leaderboard ranks date's results for tier d: score first, then the faster
// time, then whoever finished first.
func (s *Store) Leaderboard(ctx context.Context, date string, d game.Difficulty, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(u.username, 'guest'), r.score, r.moves, r.elapsed_ms
		 FROM daily_results r
		 LEFT JOIN users u ON u.id = r.owner
		 WHERE r.date=? AND r.difficulty=?
		 ORDER BY r.score DESC, r.elapsed_ms ASC, r.created_at ASC, r.rowid ASC
		 LIMIT ?`, date, string(d), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("daily leaderboard: %w", err)
	}
	defer rows.Close()
	out := []LBRow{}
	for rows.Next() {
		var r LBRow
		var elapsed int64
		if err := rows.Scan(&r.Player, &r.Score, &r.Moves, &elapsed); err != nil {
			return nil, err
		}
		r.Elapsed = game.Millis(elapsed)
		out = append(out, r)
	}
	return out, rows.Err()
}
