package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	cases := []struct {
		name    string
		pairs   int
		moves   int
		elapsed time.Duration
		want    int
	}{
		// 800 - 50 + (500 - 40*6.25) = 1000
		{"reference", 8, 10, 40 * time.Second, 1000},
		{"instant perfect easy", 8, 8, 0, 800 - 40 + 500},
		{"bonus floors at zero", 8, 10, 10 * time.Minute, 750},
		{"exactly expected time", 12, 12, 120 * time.Second, 1200 - 60},
		{"fractional bonus floors", 8, 8, 1500 * time.Millisecond, 1250},
		{"never negative", 8, 1000, time.Hour, 0},
		{"no pairs", 0, 0, time.Second, 0},
		{"hard tier instant", 18, 30, 0, 1800 - 150 + 500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Score(tc.pairs, tc.moves, tc.elapsed))
		})
	}
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "00:00", FormatElapsed(0))
	assert.Equal(t, "00:59", FormatElapsed(59999*time.Millisecond))
	assert.Equal(t, "01:05", FormatElapsed(65*time.Second))
	assert.Equal(t, "61:01", FormatElapsed(3661*time.Second))
	assert.Equal(t, "00:00", FormatElapsed(-time.Second))
}

func TestParseDifficulty(t *testing.T) {
	d, err := ParseDifficulty(" Medium ")
	assert.NoError(t, err)
	assert.Equal(t, Medium, d)

	_, err = ParseDifficulty("expert")
	assert.ErrorIs(t, err, ErrUnknownDifficulty)

	tier, err := TierFor(Hard)
	assert.NoError(t, err)
	assert.Equal(t, Tier{Pairs: 18, Columns: 6}, tier)
	assert.Equal(t, []Difficulty{Easy, Medium, Hard}, Difficulties())
}
