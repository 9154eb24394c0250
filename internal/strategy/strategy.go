package strategy

import (
	"math/rand"

	"github.com/rotisserie/eris"
)

// Names accepted by FastPath.
const (
	NameLCG     = "lcg"
	NameShuffle = "shuffle"
)

// Strategy turns the current team ordering into the ordering for the next
// round. The scheduler partitions the result into match periods.
type Strategy interface {
	Name() string
	Next(ordering []string, rng *rand.Rand) ([]string, error)
}

// Params describes the pool a strategy permutes.
type Params struct {
	PoolLength        int
	EntrantsPerPeriod int
	Separation        int
}

// FastPath returns the deterministic strategy tried first each round. The
// shuffle strategy has no fast path and returns nil; the scheduler's
// randomized fallback covers it.
func FastPath(name string, p Params) (Strategy, error) {
	switch name {
	case NameLCG, "":
		params, ok := SolveLCG(p.PoolLength, p.EntrantsPerPeriod, p.Separation)
		if !ok {
			return nil, eris.Wrapf(ErrNoParameters, "pool of %d", p.PoolLength)
		}
		lcg, err := NewLCG(params)
		if err != nil {
			return nil, err
		}
		return lcg, nil
	case NameShuffle:
		return nil, nil
	default:
		return nil, eris.Errorf("unknown strategy: %q", name)
	}
}

// Known reports whether name is a strategy FastPath accepts.
func Known(name string) bool {
	return name == NameLCG || name == NameShuffle
}

// Shuffle returns a uniformly random reordering of the current ordering.
type Shuffle struct{}

func (Shuffle) Name() string { return NameShuffle }

func (Shuffle) Next(ordering []string, rng *rand.Rand) ([]string, error) {
	next := make([]string, len(ordering))
	copy(next, ordering)
	rng.Shuffle(len(next), func(i, j int) {
		next[i], next[j] = next[j], next[i]
	})
	return next, nil
}
