package rnd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIntRange(t *testing.T) {
	require := require.New(t)
	r := New(7)

	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		v := IntRange(r, 3, 6)
		require.GreaterOrEqual(v, 3)
		require.LessOrEqual(v, 6)
		seen[v] = true
	}
	// Both bounds are inclusive.
	require.Len(seen, 4)

	// Reversed bounds behave like ordered ones.
	for i := 0; i < 100; i++ {
		v := IntRange(r, 6, 3)
		require.GreaterOrEqual(v, 3)
		require.LessOrEqual(v, 6)
	}

	require.Equal(5, IntRange(r, 5, 5))
}

func TestDurationRange(t *testing.T) {
	require := require.New(t)
	r := New(11)

	for i := 0; i < 1000; i++ {
		d := DurationRange(r, 180000, 200000)
		require.GreaterOrEqual(d, 180*time.Second)
		require.LessOrEqual(d, 200*time.Second)
	}
}

func TestChance(t *testing.T) {
	require := require.New(t)
	r := New(3)

	for i := 0; i < 500; i++ {
		require.False(Chance(r, 0))
		require.True(Chance(r, 100))
	}
}

func TestString(t *testing.T) {
	require := require.New(t)
	r := New(5)

	s := String(r, 16)
	require.Len(s, 16)
	for _, c := range s {
		require.Contains(alphabet, string(c))
	}
	require.Empty(String(r, 0))
}
