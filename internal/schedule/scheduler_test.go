package schedule

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derekprior/leaguesched/internal/config"
	"github.com/derekprior/leaguesched/internal/strategy"
)

func schedulerTestConfig() *config.Config {
	cfg := config.Default()
	cfg.Teams = []string{"A", "B", "C", "D"}
	cfg.Arenas = []string{"main"}
	cfg.Corners = 2
	cfg.MatchPeriods = 4
	cfg.Separation = 1
	cfg.MaxMatchups = 2
	return &cfg
}

func testRand() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

// checkInvariants verifies the constraints every accepted schedule must hold.
func checkInvariants(t *testing.T, cfg *config.Config, r *Result) {
	t.Helper()

	seen := make(map[string][]int)
	pairs := make(map[matchupKey]int)
	for i, p := range r.Periods {
		require.Len(t, p, cfg.EntrantsPerPeriod())
		inPeriod := make(map[string]bool)
		for _, team := range p {
			if IsPseudo(team) {
				continue
			}
			assert.False(t, inPeriod[team], "%s twice in period %d", team, i)
			inPeriod[team] = true
			seen[team] = append(seen[team], i)
		}
		for _, game := range p.games(cfg.Corners) {
			byes := 0
			for _, team := range game {
				if IsPseudo(team) {
					byes++
				}
			}
			assert.True(t, byes <= 1 || byes == len(game), "period %d game %v has %d byes", i, game, byes)
			for x := 0; x < len(game); x++ {
				for y := x + 1; y < len(game); y++ {
					if !IsPseudo(game[x]) && !IsPseudo(game[y]) {
						pairs[normalizeMatchup(game[x], game[y])]++
					}
				}
			}
		}
	}

	for team, idx := range seen {
		sort.Ints(idx)
		for i := 1; i < len(idx); i++ {
			assert.Greater(t, idx[i]-idx[i-1], cfg.Separation, "%s at periods %d and %d", team, idx[i-1], idx[i])
		}
	}
	for mk, n := range pairs {
		assert.LessOrEqual(t, n, r.ActiveCeiling, "%s vs %s share %d games", mk.a, mk.b, n)
	}
}

func TestScheduleFourTeams(t *testing.T) {
	cfg := schedulerTestConfig()

	s, err := New(cfg, testRand())
	require.NoError(t, err)

	t.Run("geometry", func(t *testing.T) {
		g := s.Geometry()
		assert.Equal(t, 2, g.EntrantsPerSlot)
		assert.Equal(t, 2, g.RoundLength)
		assert.Equal(t, 2, g.NumRounds)
		assert.Equal(t, 4, g.TotalMatches)
	})

	r := s.Run()
	require.True(t, r.Complete())
	require.Len(t, r.Periods, 4)
	checkInvariants(t, cfg, r)

	t.Run("each team plays twice", func(t *testing.T) {
		for _, team := range cfg.Teams {
			assert.Equal(t, 2, r.TeamMetrics[team].Appearances, team)
		}
	})

	t.Run("output keyed by period and arena", func(t *testing.T) {
		assert.Equal(t, []int{0, 1, 2, 3}, r.Output.Keys())
		for _, k := range r.Output.Keys() {
			assert.Len(t, r.Output[k]["main"], 2)
		}
	})
}

func TestScheduleLCGFastPath(t *testing.T) {
	cfg := schedulerTestConfig()
	cfg.Teams = []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	cfg.MatchPeriods = 8

	s, err := New(cfg, testRand())
	require.NoError(t, err)

	lcg, ok := s.FastPath().(*strategy.LCG)
	require.True(t, ok, "expected an LCG fast path")
	assert.Equal(t, strategy.Parameters{A: 5, C: 5, M: 8}, lcg.Parameters())

	r := s.Run()
	require.True(t, r.Complete())
	assert.Equal(t, 2, r.FastPathRounds)
	checkInvariants(t, cfg, r)

	assert.ElementsMatch(t, []string{"A", "F"}, r.Output[0]["main"])
	assert.ElementsMatch(t, []string{"C", "H"}, r.Output[3]["main"])
	assert.ElementsMatch(t, []string{"A", "B"}, r.Output[4]["main"])
}

func TestScheduleShuffleOnly(t *testing.T) {
	cfg := schedulerTestConfig()
	cfg.Teams = []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	cfg.MatchPeriods = 12
	cfg.Strategy = strategy.NameShuffle

	s, err := New(cfg, testRand())
	require.NoError(t, err)
	assert.Nil(t, s.FastPath())

	r := s.Run()
	require.True(t, r.Complete())
	assert.Zero(t, r.FastPathRounds)
	assert.Len(t, r.Periods, 12)
	checkInvariants(t, cfg, r)
}

func TestScheduleReplayable(t *testing.T) {
	cfg := schedulerTestConfig()
	cfg.Teams = []string{"A", "B", "C", "D", "E", "F"}
	cfg.Arenas = []string{"north", "south"}
	cfg.Corners = 3
	cfg.MatchPeriods = 4
	cfg.Separation = 0
	cfg.MaxMatchups = 3
	cfg.Strategy = strategy.NameShuffle

	first, err := Schedule(cfg, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	second, err := Schedule(cfg, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	assert.Equal(t, first.Output, second.Output)
	checkInvariants(t, cfg, first)
}

func TestScheduleRelaxesCeiling(t *testing.T) {
	cfg := schedulerTestConfig()
	cfg.Corners = 4
	cfg.MatchPeriods = 3
	cfg.Separation = 0
	cfg.MaxMatchups = 1
	cfg.Strategy = strategy.NameShuffle
	cfg.Search = config.Search{AttemptsPerRound: 10, ImpatienceThreshold: 5}

	r, err := Schedule(cfg, testRand())
	require.NoError(t, err)

	require.True(t, r.Complete())
	assert.Len(t, r.Periods, 3)
	assert.Equal(t, 3, r.ActiveCeiling)
	assert.Equal(t, 2, r.Relaxations)
	assert.Contains(t, r.Warnings, "matchup ceiling relaxed from 1 to 3")
	checkInvariants(t, cfg, r)
}

func TestScheduleBacktracks(t *testing.T) {
	cfg := schedulerTestConfig()
	cfg.MatchPeriods = 6
	cfg.MaxMatchups = 1
	cfg.Search = config.Search{AttemptsPerRound: 10, ImpatienceThreshold: 1000, MaxFailedRounds: 3}

	r, err := Schedule(cfg, testRand())
	require.NoError(t, err)

	assert.False(t, r.Complete())
	assert.Equal(t, 3, r.Backtracks)
	assert.Zero(t, r.Relaxations)
	assert.Len(t, r.Periods, 2, "longest schedule built is returned")
	assert.Contains(t, r.Warnings, "schedule is incomplete: built 2 of 6 match periods")
	checkInvariants(t, cfg, r)
}

func TestScheduleCeilingOfBestSchedule(t *testing.T) {
	cfg := schedulerTestConfig()
	cfg.Corners = 4
	cfg.MatchPeriods = 3
	cfg.Separation = 0
	cfg.MaxMatchups = 1
	cfg.Strategy = strategy.NameShuffle
	cfg.Search = config.Search{AttemptsPerRound: 1, ImpatienceThreshold: 2, MaxFailedRounds: 1}

	r, err := Schedule(cfg, testRand())
	require.NoError(t, err)

	assert.False(t, r.Complete())
	assert.Len(t, r.Periods, 1)
	assert.Equal(t, 1, r.Relaxations, "relaxed after the best schedule was built")
	assert.Equal(t, 1, r.ActiveCeiling)
	for _, w := range r.Warnings {
		assert.NotContains(t, w, "matchup ceiling relaxed")
	}
	checkInvariants(t, cfg, r)
}

// reverseStrategy reverses the ordering it is given and records its inputs.
type reverseStrategy struct {
	inputs [][]string
}

func (s *reverseStrategy) Name() string { return "reverse" }

func (s *reverseStrategy) Next(ordering []string, _ *rand.Rand) ([]string, error) {
	s.inputs = append(s.inputs, append([]string(nil), ordering...))
	next := make([]string, len(ordering))
	for i, team := range ordering {
		next[len(ordering)-1-i] = team
	}
	return next, nil
}

func TestScheduleBacktrackRestoresOrdering(t *testing.T) {
	cfg := schedulerTestConfig()
	cfg.MatchPeriods = 6
	cfg.MaxMatchups = 1
	cfg.Search = config.Search{AttemptsPerRound: 10, ImpatienceThreshold: 1000, MaxFailedRounds: 3}

	fast := &reverseStrategy{}
	r, err := Schedule(cfg, testRand(), WithFastPath(fast))
	require.NoError(t, err)

	assert.Equal(t, 3, r.Backtracks)
	assert.Equal(t, 4, r.FastPathRounds)

	pool := []string{"A", "B", "C", "D"}
	reversed := []string{"D", "C", "B", "A"}
	require.Len(t, fast.inputs, 8)
	for i, in := range fast.inputs {
		if i%2 == 0 {
			assert.Equal(t, pool, in, "call %d starts from the pool again", i)
		} else {
			assert.Equal(t, reversed, in, "call %d continues the accepted round", i)
		}
	}
}

// brokenStrategy fails every call, as a permutation that lost its bijection
// would.
type brokenStrategy struct {
	calls int
}

func (s *brokenStrategy) Name() string { return "broken" }

func (s *brokenStrategy) Next([]string, *rand.Rand) ([]string, error) {
	s.calls++
	return nil, eris.Wrap(strategy.ErrNotBijection, "broken")
}

func TestScheduleFallsBackWhenFastPathFails(t *testing.T) {
	cfg := schedulerTestConfig()
	cfg.Teams = []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	cfg.MatchPeriods = 12

	broken := &brokenStrategy{}
	r, err := Schedule(cfg, testRand(), WithFastPath(broken))
	require.NoError(t, err)

	require.True(t, r.Complete())
	assert.Zero(t, r.FastPathRounds)
	assert.Equal(t, 1, broken.calls, "fast path dropped after its first error")
	checkInvariants(t, cfg, r)

	t.Run("matches a shuffle-only run", func(t *testing.T) {
		shuffleCfg := *cfg
		shuffleCfg.Strategy = strategy.NameShuffle
		shuffled, err := Schedule(&shuffleCfg, testRand())
		require.NoError(t, err)
		assert.Equal(t, shuffled.Output, r.Output)
	})

	t.Run("nil disables the fast path", func(t *testing.T) {
		s, err := New(cfg, testRand(), WithFastPath(nil))
		require.NoError(t, err)
		assert.Nil(t, s.FastPath())
	})
}

func TestScheduleUnsatisfiable(t *testing.T) {
	cfg := schedulerTestConfig()
	cfg.Teams = []string{"A", "B", "C", "D", "E"}
	cfg.Corners = 4
	cfg.MatchPeriods = 4
	cfg.Search = config.Search{AttemptsPerRound: 50}

	s, err := New(cfg, testRand())
	require.NoError(t, err)
	assert.Len(t, s.Pool(), 8)

	r := s.Run()
	assert.False(t, r.Complete())
	assert.Empty(t, r.Periods)
	assert.Zero(t, r.Backtracks)
}

func TestScheduleExtendsSeed(t *testing.T) {
	cfg := schedulerTestConfig()
	cfg.MatchPeriods = 5

	seed := Output{0: {"main": {"A", "-"}}}
	r, err := Schedule(cfg, testRand(), WithSeedSchedule(seed, "-"))
	require.NoError(t, err)

	require.True(t, r.Complete())
	assert.Equal(t, 1, r.SeedPeriods)
	assert.Len(t, r.Periods, 5)
	assert.Equal(t, []string{"A", NoEntrant}, r.Output[0]["main"])
	assert.Contains(t, r.Warnings,
		"seed schedule has 1 match periods, not a multiple of the round length 2")
	checkInvariants(t, cfg, r)

	t.Run("gaps in period numbers", func(t *testing.T) {
		_, err := New(cfg, testRand(), WithSeedSchedule(Output{1: {"main": {"A", "B"}}}, ""))
		assert.Error(t, err)
	})

	t.Run("unknown arena", func(t *testing.T) {
		_, err := New(cfg, testRand(), WithSeedSchedule(Output{0: {"east": {"A", "B"}}}, ""))
		assert.Error(t, err)
	})
}

func TestFormatMapsByes(t *testing.T) {
	cfg := schedulerTestConfig()
	cfg.Teams = []string{"A", "B", "C"}
	cfg.MatchPeriods = 2
	cfg.Separation = 0

	r, err := Schedule(cfg, testRand())
	require.NoError(t, err)
	require.True(t, r.Complete())

	byes := 0
	for _, k := range r.Output.Keys() {
		for _, team := range r.Output[k]["main"] {
			assert.False(t, IsPseudo(team))
			if team == NoEntrant {
				byes++
			}
		}
	}
	assert.Equal(t, 1, byes)
}
