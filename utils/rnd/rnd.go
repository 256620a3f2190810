// Package rnd holds the small sampling helpers shared by the scenario generator
// and the churn controller. Every helper takes an explicit *rand.Rand so that a
// run (or a test) can be replayed from its seed.
package rnd

import (
	"math/rand"
	"time"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// New returns a generator seeded with seed, or with the current time when seed is 0.
func New(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// IntRange returns a uniformly distributed integer in the closed range [min, max].
// The bounds are swapped if given in the wrong order.
func IntRange(r *rand.Rand, min, max int) int {
	if max < min {
		min, max = max, min
	}
	return min + r.Intn(max-min+1)
}

// DurationRange samples a whole number of milliseconds in [minMs, maxMs].
func DurationRange(r *rand.Rand, minMs, maxMs int) time.Duration {
	return time.Duration(IntRange(r, minMs, maxMs)) * time.Millisecond
}

// Chance reports true with probability percent/100. A percent of 0 never
// fires and 100 (or more) always does.
func Chance(r *rand.Rand, percent int) bool {
	return r.Intn(100) < percent
}

// String returns a random alphanumeric string of length n.
func String(r *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[r.Intn(len(alphabet))]
	}
	return string(b)
}

// Pick returns a uniformly chosen element of items. It panics on an empty slice.
func Pick(r *rand.Rand, items []string) string {
	return items[r.Intn(len(items))]
}
