package schedule

import (
	"strconv"
	"strings"
)

// PseudoPrefix marks a padding ("bye") entrant. Real team names may not
// start with it.
const PseudoPrefix = "~"

// NoEntrant is the value emitted for an empty corner.
const NoEntrant = ""

// IsPseudo reports whether team is a bye placeholder.
func IsPseudo(team string) bool {
	return strings.HasPrefix(team, PseudoPrefix)
}

// pseudoNamer hands out distinct pseudo tokens so padding never looks like a
// repeated team to the validator.
type pseudoNamer struct {
	next int
}

func (n *pseudoNamer) name() string {
	s := PseudoPrefix + strconv.Itoa(n.next)
	n.next++
	return s
}

// Period is one match period: arenas × corners entrant slots, arena games
// laid out contiguously.
type Period []string

// Geometry holds the derived sizes that bound the search. It is a pure
// function of its inputs.
type Geometry struct {
	Arenas          int
	Corners         int
	EntrantsPerSlot int // entrants per match period
	PoolLength      int
	RoundLength     int
	NumRounds       int
	TotalMatches    int
}

// ComputeGeometry derives round sizes from the pool length and the match
// period budget.
func ComputeGeometry(poolLength, arenas, corners, maxMatchPeriods int) Geometry {
	g := Geometry{
		Arenas:          arenas,
		Corners:         corners,
		EntrantsPerSlot: arenas * corners,
		PoolLength:      poolLength,
	}
	if g.EntrantsPerSlot == 0 || poolLength == 0 {
		return g
	}
	g.RoundLength = poolLength / g.EntrantsPerSlot
	g.NumRounds = maxMatchPeriods * g.EntrantsPerSlot / poolLength
	g.TotalMatches = g.NumRounds * g.RoundLength
	return g
}

// BuildPool repeats the roster appearances times and pads it with pseudo
// entrants until its length is a multiple of entrantsPerPeriod.
func BuildPool(teams []string, appearances, entrantsPerPeriod int) []string {
	return buildPool(teams, appearances, entrantsPerPeriod, &pseudoNamer{})
}

func buildPool(teams []string, appearances, entrantsPerPeriod int, names *pseudoNamer) []string {
	pool := make([]string, 0, len(teams)*appearances+entrantsPerPeriod)
	for range appearances {
		pool = append(pool, teams...)
	}
	if entrantsPerPeriod <= 0 {
		return pool
	}
	for len(pool)%entrantsPerPeriod != 0 {
		pool = append(pool, names.name())
	}
	return pool
}

// games splits a period into its per-arena games.
func (p Period) games(corners int) [][]string {
	out := make([][]string, 0, len(p)/corners)
	for i := 0; i+corners <= len(p); i += corners {
		out = append(out, p[i:i+corners])
	}
	return out
}

// partition cuts an ordering into consecutive periods of width entrants.
func partition(ordering []string, width int) []Period {
	periods := make([]Period, 0, len(ordering)/width)
	for i := 0; i+width <= len(ordering); i += width {
		p := make(Period, width)
		copy(p, ordering[i:i+width])
		periods = append(periods, p)
	}
	return periods
}
