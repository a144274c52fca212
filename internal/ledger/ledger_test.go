package ledger_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/memory-match/internal/game"
	"github.com/robalobadob/memory-match/internal/kv"
	"github.com/robalobadob/memory-match/internal/ledger"
)

var day = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func rec(score, moves int) game.ScoreRecord {
	return game.ScoreRecord{Score: score, Moves: moves, Elapsed: 30000, Date: day}
}

// flakyStore fails every call with err.
type flakyStore struct{ err error }

func (f flakyStore) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f flakyStore) Put(context.Context, string, []byte) error  { return f.err }

func TestLoadEmptyStore(t *testing.T) {
	l := ledger.New(kv.NewMemory(), "")
	l.Load(context.Background())
	assert.Equal(t, ledger.DefaultKey, l.Key())
	for _, d := range game.Difficulties() {
		assert.Empty(t, l.Scores(d))
	}
}

func TestLoadMalformedStartsEmpty(t *testing.T) {
	cases := map[string]string{
		"not json":    `{{{`,
		"wrong shape": `{"easy":"many"}`,
		"wrong type":  `[1,2,3]`,
		"bad record":  `{"easy":[{"score":"high"}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := kv.NewMemory()
			require.NoError(t, st.Put(ctx, ledger.DefaultKey, []byte(raw)))

			l := ledger.New(st, ledger.DefaultKey)
			l.Load(ctx)
			for _, d := range game.Difficulties() {
				assert.Empty(t, l.Scores(d))
			}
		})
	}
}

func TestLoadStoreErrorStartsEmpty(t *testing.T) {
	l := ledger.New(flakyStore{err: errors.New("disk gone")}, "")
	l.Load(context.Background())
	assert.Empty(t, l.Scores(game.Easy))
}

func TestLoadReadsReferenceFormat(t *testing.T) {
	ctx := context.Background()
	st := kv.NewMemory()
	raw := `{
		"easy": [
			{"score": 900, "moves": 12, "time": 41000, "date": "2024-05-01T10:00:00.000Z"},
			{"score": 1010, "moves": 8, "time": 40000, "date": "2024-05-02T10:00:00.000Z"}
		],
		"medium": [],
		"legendary": [{"score": 1, "moves": 1, "time": 1, "date": "2024-05-02T10:00:00.000Z"}]
	}`
	require.NoError(t, st.Put(ctx, ledger.DefaultKey, []byte(raw)))

	l := ledger.New(st, ledger.DefaultKey)
	l.Load(ctx)

	easy := l.Scores(game.Easy)
	require.Len(t, easy, 2)
	assert.Equal(t, 1010, easy[0].Score)
	assert.Equal(t, game.Millis(40000), easy[0].Elapsed)
	assert.Equal(t, 900, easy[1].Score)
	assert.Empty(t, l.Scores(game.Medium))
	assert.Empty(t, l.Scores(game.Hard))
	assert.NotContains(t, l.All(), game.Difficulty("legendary"))
}

func TestRecordKeepsTopFiveStableOnTies(t *testing.T) {
	ctx := context.Background()
	l := ledger.New(kv.NewMemory(), "")
	l.Load(ctx)

	// Two ties at 700: moves mark insertion order.
	inputs := []game.ScoreRecord{rec(500, 1), rec(700, 2), rec(900, 3), rec(700, 4), rec(300, 5), rec(800, 6)}
	for _, r := range inputs {
		require.NoError(t, l.Record(ctx, game.Easy, r))
	}

	got := l.Scores(game.Easy)
	require.Len(t, got, ledger.MaxEntries)
	scores := []int{}
	moves := []int{}
	for _, r := range got {
		scores = append(scores, r.Score)
		moves = append(moves, r.Moves)
	}
	assert.Equal(t, []int{900, 800, 700, 700, 500}, scores)
	assert.Equal(t, []int{3, 6, 2, 4, 1}, moves)
	assert.Empty(t, l.Scores(game.Medium))
}

func TestRecordPersistsAllTiers(t *testing.T) {
	ctx := context.Background()
	st := kv.NewMemory()
	l := ledger.New(st, "")
	l.Load(ctx)

	require.NoError(t, l.Record(ctx, game.Easy, rec(1000, 10)))
	require.NoError(t, l.Record(ctx, game.Hard, rec(1500, 30)))

	raw, err := st.Get(ctx, ledger.DefaultKey)
	require.NoError(t, err)
	var stored map[string][]map[string]any
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Len(t, stored["easy"], 1)
	assert.Len(t, stored["hard"], 1)
	assert.Empty(t, stored["medium"])
	assert.Equal(t, float64(1000), stored["easy"][0]["score"])
	assert.Equal(t, float64(30000), stored["easy"][0]["time"])
	assert.Contains(t, stored["easy"][0], "date")

	// A fresh ledger over the same store sees the same rankings.
	again := ledger.New(st, "")
	again.Load(ctx)
	assert.Equal(t, l.All(), again.All())
}

func TestRecordUnknownTierRejected(t *testing.T) {
	ctx := context.Background()
	st := kv.NewMemory()
	l := ledger.New(st, "")
	err := l.Record(ctx, game.Difficulty("expert"), rec(1, 1))
	require.ErrorIs(t, err, game.ErrUnknownDifficulty)

	_, err = st.Get(ctx, ledger.DefaultKey)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestRecordSaveFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	l := ledger.New(flakyStore{err: errors.New("quota exceeded")}, "")
	l.Load(ctx)

	require.NoError(t, l.Record(ctx, game.Medium, rec(1100, 14)))
	got := l.Scores(game.Medium)
	require.Len(t, got, 1)
	assert.Equal(t, 1100, got[0].Score)
}

func TestScoresReturnsCopy(t *testing.T) {
	ctx := context.Background()
	l := ledger.New(kv.NewMemory(), "")
	require.NoError(t, l.Record(ctx, game.Easy, rec(10, 1)))

	got := l.Scores(game.Easy)
	got[0].Score = 99999
	assert.Equal(t, 10, l.Scores(game.Easy)[0].Score)
}

func TestRecordResultSatisfiesRecorder(t *testing.T) {
	var _ game.Recorder = (*ledger.Ledger)(nil)
	var _ game.Recorder = (*ledger.Book)(nil)

	ctx := context.Background()
	l := ledger.New(kv.NewMemory(), "")
	l.RecordResult(ctx, game.Result{Difficulty: game.Hard, Record: rec(42, 7)})
	l.RecordResult(ctx, game.Result{Difficulty: "bogus", Record: rec(43, 7)})
	require.Len(t, l.Scores(game.Hard), 1)
	assert.Equal(t, 42, l.Scores(game.Hard)[0].Score)
}

func TestBookSeparatesOwners(t *testing.T) {
	ctx := context.Background()
	st := kv.NewMemory()
	b := ledger.NewBook(st)

	b.RecordResult(ctx, game.Result{Owner: "alice", Difficulty: game.Easy, Record: rec(900, 9)})
	b.RecordResult(ctx, game.Result{Owner: "", Difficulty: game.Easy, Record: rec(700, 9)})

	assert.Len(t, b.For(ctx, "alice").Scores(game.Easy), 1)
	assert.Len(t, b.For(ctx, "").Scores(game.Easy), 1)
	assert.Empty(t, b.For(ctx, "bob").Scores(game.Easy))
	assert.Same(t, b.For(ctx, "alice"), b.For(ctx, "alice"))

	_, err := st.Get(ctx, ledger.KeyFor("alice"))
	require.NoError(t, err)
	assert.Equal(t, "memoryGame.bestScores/alice", ledger.KeyFor("alice"))

	// After Forget the ledger is reloaded from the store.
	b.Forget("alice")
	assert.Equal(t, 900, b.For(ctx, "alice").Scores(game.Easy)[0].Score)
}
