package strategy

import (
	"math/rand"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool(n int) []string {
	pool := make([]string, n)
	for i := range pool {
		pool[i] = string(rune('a'+i%26)) + string(rune('0'+i/26))
	}
	return pool
}

func TestSolveLCG(t *testing.T) {
	t.Run("eight entrants two per period", func(t *testing.T) {
		p, ok := SolveLCG(8, 2, 1)
		require.True(t, ok)
		assert.Equal(t, Parameters{A: 5, C: 5, M: 8}, p)
	})

	t.Run("no admissible multiplier", func(t *testing.T) {
		_, ok := SolveLCG(4, 2, 1)
		assert.False(t, ok)
	})

	t.Run("round shorter than separation", func(t *testing.T) {
		_, ok := SolveLCG(8, 4, 2)
		assert.False(t, ok)
	})

	t.Run("boundary rules out every candidate", func(t *testing.T) {
		_, ok := SolveLCG(60, 6, 2)
		assert.False(t, ok)
	})

	t.Run("solutions respect the round boundary", func(t *testing.T) {
		for _, tc := range []struct{ m, width, sep int }{
			{16, 2, 2}, {24, 4, 1}, {36, 3, 2}, {40, 4, 3},
		} {
			p, ok := SolveLCG(tc.m, tc.width, tc.sep)
			require.True(t, ok, "m=%d width=%d sep=%d", tc.m, tc.width, tc.sep)
			assert.Zero(t, (p.A-1)%4)
			for _, f := range primeFactors(tc.m) {
				assert.Zero(t, (p.A-1)%f)
			}
			assert.Equal(t, 1, gcd(p.C, tc.m))

			roundLength := tc.m / tc.width
			perm := sequence(p, tc.m)
			for d := 1; d <= tc.sep; d++ {
				lo, hi := (roundLength-d)*tc.width, (roundLength-d+1)*tc.width
				for _, src := range perm[:(tc.sep-d+1)*tc.width] {
					assert.False(t, src >= lo && src < hi, "m=%d shift %d pulls index %d", tc.m, d, src)
				}
			}
		}
	})
}

func TestLCGBijection(t *testing.T) {
	for _, m := range []int{8, 16, 20, 24, 32, 40, 48, 64} {
		p, ok := SolveLCG(m, 4, 1)
		if !ok {
			continue
		}
		lcg, err := NewLCG(p)
		require.NoError(t, err)

		pool := testPool(m)
		next, err := lcg.Next(pool, nil)
		require.NoError(t, err)
		assert.ElementsMatch(t, pool, next, "m=%d", m)

		again, err := lcg.Next(next, nil)
		require.NoError(t, err)
		assert.ElementsMatch(t, pool, again, "m=%d", m)
	}

	t.Run("short period is rejected", func(t *testing.T) {
		_, err := NewLCG(Parameters{A: 3, C: 2, M: 8})
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrNotBijection))
	})

	t.Run("ordering of the wrong length", func(t *testing.T) {
		lcg, err := NewLCG(Parameters{A: 5, C: 5, M: 8})
		require.NoError(t, err)
		_, err = lcg.Next(testPool(6), nil)
		assert.Error(t, err)
	})
}

func TestFastPath(t *testing.T) {
	t.Run("lcg", func(t *testing.T) {
		s, err := FastPath(NameLCG, Params{PoolLength: 8, EntrantsPerPeriod: 2, Separation: 1})
		require.NoError(t, err)
		assert.Equal(t, NameLCG, s.Name())
	})

	t.Run("lcg without parameters", func(t *testing.T) {
		s, err := FastPath(NameLCG, Params{PoolLength: 4, EntrantsPerPeriod: 2, Separation: 1})
		assert.Nil(t, s)
		assert.True(t, eris.Is(err, ErrNoParameters))
	})

	t.Run("shuffle", func(t *testing.T) {
		s, err := FastPath(NameShuffle, Params{PoolLength: 8, EntrantsPerPeriod: 2})
		assert.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := FastPath("round_robin", Params{})
		assert.Error(t, err)
		assert.False(t, Known("round_robin"))
	})
}

func TestShuffle(t *testing.T) {
	pool := testPool(12)
	next, err := Shuffle{}.Next(pool, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.ElementsMatch(t, pool, next)
	assert.Equal(t, testPool(12), pool, "input is not modified")
}
