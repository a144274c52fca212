package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/memory-match/internal/database"
	"github.com/robalobadob/memory-match/internal/game"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenAndMigrate(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func result(id, owner string, score int, at time.Time) game.Result {
	return game.Result{
		SessionID:  id,
		Owner:      owner,
		Difficulty: game.Medium,
		TotalPairs: 12,
		Record:     game.ScoreRecord{Score: score, Moves: 15, Elapsed: 61000, Date: at},
	}
}

func TestInsertAndList(t *testing.T) {
	ctx := context.Background()
	s := NewStore(openDB(t))
	t0 := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.Insert(ctx, result("g1", "anon-1", 900, t0)))
	require.NoError(t, s.Insert(ctx, result("g2", "anon-1", 1100, t0.Add(time.Hour))))
	require.NoError(t, s.Insert(ctx, result("g3", "anon-2", 500, t0)))

	got, err := s.ListByOwner(ctx, "anon-1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "g2", got[0].ID)
	assert.Equal(t, "g1", got[1].ID)
	assert.Equal(t, game.Medium, got[0].Difficulty)
	assert.Equal(t, game.Millis(61000), got[0].Elapsed)
	assert.True(t, got[0].FinishedAt.Equal(t0.Add(time.Hour)))

	got, err = s.ListByOwner(ctx, "anon-1", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = s.ListByOwner(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInsertBumpsUserStats(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	_, err := db.Exec(`INSERT INTO users (id, username, password_hash, created_at) VALUES ('u1','alice','x','2025-01-01T00:00:00Z')`)
	require.NoError(t, err)

	s := NewStore(db)
	now := time.Now().UTC()
	s.RecordResult(ctx, result("g1", "u1", 800, now))
	s.RecordResult(ctx, result("g2", "u1", 1200, now))
	s.RecordResult(ctx, result("g3", "u1", 300, now))

	var played, best int
	require.NoError(t, db.QueryRow(`SELECT games_played, best_score FROM users WHERE id='u1'`).Scan(&played, &best))
	assert.Equal(t, 3, played)
	assert.Equal(t, 1200, best)
}

func TestClaimMovesGuestGames(t *testing.T) {
	ctx := context.Background()
	s := NewStore(openDB(t))
	now := time.Now().UTC()
	require.NoError(t, s.Insert(ctx, result("g1", "anon-1", 100, now)))

	require.NoError(t, s.Claim(ctx, "anon-1", "u1"))
	require.NoError(t, s.Claim(ctx, "", "u1"))

	mine, err := s.ListByOwner(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	guest, err := s.ListByOwner(ctx, "anon-1", 0)
	require.NoError(t, err)
	assert.Empty(t, guest)
}
