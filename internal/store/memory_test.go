package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/memory-match/internal/game"
	"github.com/robalobadob/memory-match/internal/game/gametest"
)

func TestSaveGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	s := game.NewSession(game.WithID("g1"))

	require.NoError(t, m.Save(ctx, s))
	got, err := m.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.Delete(ctx, "g1"))
	_, err = m.Get(ctx, "g1")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, m.Delete(ctx, "g1"))
}

func TestDeleteStopsTimers(t *testing.T) {
	ctx := context.Background()
	sched := gametest.NewScheduler(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	s := game.NewSession(game.WithID("g1"), game.WithScheduler(sched))
	require.NoError(t, s.Start(game.Easy))

	ticks := 0
	s.Subscribe(func(ev game.Event) {
		if ev.Kind == game.EventTick {
			ticks++
		}
	})

	m := NewMemoryStore()
	require.NoError(t, m.Save(ctx, s))
	sched.Advance(time.Second)
	assert.Equal(t, 1, ticks)

	require.NoError(t, m.Delete(ctx, "g1"))
	sched.Advance(5 * time.Second)
	assert.Equal(t, 1, ticks)
}

func TestSaveReplacingClosesPrevious(t *testing.T) {
	ctx := context.Background()
	sched := gametest.NewScheduler(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	old := game.NewSession(game.WithID("g1"), game.WithScheduler(sched))
	require.NoError(t, old.Start(game.Easy))
	ticks := 0
	old.Subscribe(func(ev game.Event) {
		if ev.Kind == game.EventTick {
			ticks++
		}
	})

	m := NewMemoryStore()
	require.NoError(t, m.Save(ctx, old))
	require.NoError(t, m.Save(ctx, game.NewSession(game.WithID("g1"), game.WithScheduler(sched))))
	sched.Advance(3 * time.Second)
	assert.Zero(t, ticks)
	assert.Equal(t, 1, m.Len())
}

func TestSaveNil(t *testing.T) {
	assert.Error(t, NewMemoryStore().Save(context.Background(), nil))
}

func TestCloseEmpties(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.Save(ctx, game.NewSession()))
	require.NoError(t, m.Save(ctx, game.NewSession()))
	assert.Equal(t, 2, m.Len())
	m.Close()
	assert.Zero(t, m.Len())
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	ctx := context.Background()
	sched := gametest.NewScheduler(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	m := NewMemoryStore(WithClock(sched.Now))

	stale := game.NewSession(game.WithID("stale"), game.WithScheduler(sched))
	fresh := game.NewSession(game.WithID("fresh"), game.WithScheduler(sched))
	require.NoError(t, stale.Start(game.Easy))
	require.NoError(t, m.Save(ctx, stale))
	require.NoError(t, m.Save(ctx, fresh))

	sched.Advance(20 * time.Minute)
	_, err := m.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.Empty(t, m.Sweep(ctx, 30*time.Minute))

	sched.Advance(15 * time.Minute)
	assert.Equal(t, []string{"stale"}, m.Sweep(ctx, 30*time.Minute))
	assert.Equal(t, 1, m.Len())
	_, err = m.Get(ctx, "stale")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, sched.Pending(), "evicted session must stop ticking")
}
