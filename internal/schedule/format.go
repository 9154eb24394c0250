package schedule

import (
	"sort"

	"github.com/rotisserie/eris"
)

// Output maps a match period number to each arena's ordered corners. Empty
// corners hold NoEntrant.
type Output map[int]map[string][]string

// Len returns the number of match periods.
func (o Output) Len() int {
	return len(o)
}

// Keys returns the period numbers in ascending order.
func (o Output) Keys() []int {
	keys := make([]int, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// format converts accepted periods to an Output. Games in periods the search
// generated are shuffled so no team is tied to a corner; seed periods keep
// the order they were given in.
func (s *Scheduler) format(periods []Period) Output {
	out := make(Output, len(periods))
	for i, p := range periods {
		arenas := make(map[string][]string, len(s.cfg.Arenas))
		for a, game := range p.games(s.cfg.Corners) {
			corners := make([]string, len(game))
			for c, team := range game {
				if IsPseudo(team) {
					team = NoEntrant
				}
				corners[c] = team
			}
			if i >= len(s.seed) {
				s.rng.Shuffle(len(corners), func(x, y int) {
					corners[x], corners[y] = corners[y], corners[x]
				})
			}
			arenas[s.cfg.Arenas[a]] = corners
		}
		out[i] = arenas
	}
	return out
}

// periods flattens an Output back into match periods, turning empty corners
// into distinct pseudo entrants. Period numbers must run 0..n-1.
func (o Output) periods(arenas []string, corners int, empty string, names *pseudoNamer) ([]Period, error) {
	known := make(map[string]bool, len(arenas))
	for _, a := range arenas {
		known[a] = true
	}

	periods := make([]Period, 0, len(o))
	for i := range len(o) {
		games, ok := o[i]
		if !ok {
			return nil, eris.Errorf("match period %d missing; periods must be numbered from 0 without gaps", i)
		}
		for a := range games {
			if !known[a] {
				return nil, eris.Errorf("match period %d: unknown arena %q", i, a)
			}
		}

		p := make(Period, 0, len(arenas)*corners)
		for _, a := range arenas {
			game := games[a]
			if len(game) > corners {
				return nil, eris.Errorf("match period %d: arena %q has %d entrants, more than %d corners",
					i, a, len(game), corners)
			}
			for c := range corners {
				team := empty
				if c < len(game) {
					team = game[c]
				}
				if team == empty || team == NoEntrant || IsPseudo(team) {
					team = names.name()
				}
				p = append(p, team)
			}
		}
		periods = append(periods, p)
	}
	return periods, nil
}
