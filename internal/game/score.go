package game

import (
	"fmt"
	"math"
	"time"
)

const (
	pointsPerPair       = 100
	pointsPerMove       = 5
	maxTimeBonus        = 500.0
	expectedSecsPerPair = 10
)

// Score computes the final score of a finished game:
//
//	max(0, floor(pairs*100 - moves*5 + timeBonus))
//	timeBonus = max(0, 500 - elapsedSeconds * 500/(pairs*10))
//
// With no pairs there is no expected time and the bonus is zero.
func Score(totalPairs, moves int, elapsed time.Duration) int {
	base := float64(totalPairs * pointsPerPair)
	penalty := float64(moves * pointsPerMove)

	bonus := 0.0
	if totalPairs > 0 {
		expected := float64(totalPairs * expectedSecsPerPair)
		secs := float64(elapsed.Milliseconds()) / 1000
		bonus = math.Max(0, maxTimeBonus-secs*(maxTimeBonus/expected))
	}

	total := base - penalty + bonus
	if total < 0 {
		return 0
	}
	return int(math.Floor(total))
}

// FormatElapsed renders d as MM:SS.
func FormatElapsed(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
