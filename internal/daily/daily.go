// internal/daily/daily.go
//
// Daily challenge: one deterministic deck per date and tier.
// Every player gets the same shuffle for a given UTC date and difficulty;
// the seed is HMAC-SHA256(salt, "YYYY-MM-DD|tier") so it cannot be guessed
// without the server salt.

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/robalobadob/memory-match/internal/deck"
	"github.com/robalobadob/memory-match/internal/game"
)

// ErrAlreadyPlayed is returned when an owner already has a result for the
// date and tier.
var ErrAlreadyPlayed = errors.New("daily already played")

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed derives the shuffle seed for the date key and tier.
func Seed(date string, d game.Difficulty, salt string) uint64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(date + "|" + string(d)))
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

// Source returns the deterministic shuffle source for the date key and tier.
func Source(date string, d game.Difficulty, salt string) *rand.Rand {
	return deck.Seeded(Seed(date, d, salt))
}
