package strategy

import (
	"math/rand"

	"github.com/rotisserie/eris"
)

var (
	// ErrNoParameters means no multiplier/increment pair satisfies the
	// separation constraint across round boundaries.
	ErrNoParameters = eris.New("no LCG parameters for pool")

	// ErrNotBijection means the generated sequence does not visit every index
	// of the pool exactly once.
	ErrNotBijection = eris.New("LCG sequence is not a bijection")
)

// Parameters of the sequence x(k+1) = (A·x(k) + C) mod M, started at 0.
type Parameters struct {
	A, C, M int
}

// SolveLCG searches for full-period parameters over a pool of length m whose
// permutation never places a team from the last separation periods of one
// round into the first periods of the next closer than separation allows.
// Candidates are tried from the largest multiplier and increment down.
func SolveLCG(m, width, separation int) (Parameters, bool) {
	if m < 2 || width <= 0 || m%width != 0 {
		return Parameters{}, false
	}
	roundLength := m / width
	if separation < 0 {
		separation = 0
	}
	if roundLength <= separation {
		return Parameters{}, false
	}

	factors := primeFactors(m)
	for a := m - 1; a >= 2; a-- {
		if !fullPeriodMultiplier(a, factors) {
			continue
		}
		for c := m - 1; c >= 1; c-- {
			if gcd(c, m) != 1 {
				continue
			}
			if boundaryDisjoint(Parameters{A: a, C: c, M: m}, width, separation) {
				return Parameters{A: a, C: c, M: m}, true
			}
		}
	}
	return Parameters{}, false
}

// fullPeriodMultiplier reports whether a-1 is divisible by 4 and by every
// prime factor of the modulus.
func fullPeriodMultiplier(a int, factors []int) bool {
	if (a-1)%4 != 0 {
		return false
	}
	for _, p := range factors {
		if (a-1)%p != 0 {
			return false
		}
	}
	return true
}

// boundaryDisjoint checks, for every shift d in 1..separation, that the pool
// indices feeding the first separation-d+1 periods of the next round are
// disjoint from the indices of period R-d of the current round.
func boundaryDisjoint(p Parameters, width, separation int) bool {
	if separation == 0 {
		return true
	}
	roundLength := p.M / width
	head := sequence(p, separation*width)
	for d := 1; d <= separation; d++ {
		lo, hi := (roundLength-d)*width, (roundLength-d+1)*width
		for _, src := range head[:(separation-d+1)*width] {
			if src >= lo && src < hi {
				return false
			}
		}
	}
	return true
}

func sequence(p Parameters, n int) []int {
	out := make([]int, 0, n)
	x := 0
	for range n {
		out = append(out, x)
		x = (p.A*x + p.C) % p.M
	}
	return out
}

// LCG reorders a pool with a fixed full-period permutation: position k of
// the next ordering takes the entrant at position x(k) of the current one.
type LCG struct {
	params Parameters
	perm   []int
}

// NewLCG builds the permutation for p and verifies it is a bijection over
// [0, p.M).
func NewLCG(p Parameters) (*LCG, error) {
	if p.M <= 0 {
		return nil, eris.Wrapf(ErrNotBijection, "modulus %d", p.M)
	}
	perm := sequence(p, p.M)
	seen := make([]bool, p.M)
	for _, idx := range perm {
		if seen[idx] {
			return nil, eris.Wrapf(ErrNotBijection, "a=%d c=%d m=%d revisits %d", p.A, p.C, p.M, idx)
		}
		seen[idx] = true
	}
	return &LCG{params: p, perm: perm}, nil
}

func (l *LCG) Name() string { return NameLCG }

// Parameters returns the solved multiplier, increment and modulus.
func (l *LCG) Parameters() Parameters { return l.params }

func (l *LCG) Next(ordering []string, _ *rand.Rand) ([]string, error) {
	if len(ordering) != len(l.perm) {
		return nil, eris.Wrapf(ErrNotBijection, "ordering of %d entrants, permutation of %d", len(ordering), len(l.perm))
	}
	next := make([]string, len(ordering))
	for k, src := range l.perm {
		next[k] = ordering[src]
	}
	return next, nil
}

func primeFactors(n int) []int {
	var factors []int
	for p := 2; p*p <= n; p++ {
		if n%p != 0 {
			continue
		}
		factors = append(factors, p)
		for n%p == 0 {
			n /= p
		}
	}
	if n > 1 {
		factors = append(factors, n)
	}
	return factors
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
