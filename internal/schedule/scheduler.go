package schedule

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/derekprior/leaguesched/internal/config"
	"github.com/derekprior/leaguesched/internal/strategy"
)

// Search defaults used when the config leaves a limit at zero.
const (
	DefaultAttemptsPerRound    = 10000
	DefaultImpatienceThreshold = 200000
	DefaultMaxFailedRounds     = 200
)

// TeamMetrics holds per-team schedule statistics.
type TeamMetrics struct {
	Appearances int
	Opponents   int // distinct opponents shared a game with
	MaxRepeat   int // most games shared with any single opponent
}

// Result is the output of the scheduling process. A result that could not
// reach the requested length is still returned, with Exhausted set.
type Result struct {
	Output         Output
	Periods        []Period
	Geometry       Geometry
	SeedPeriods    int
	ActiveCeiling  int
	Relaxations    int
	Backtracks     int
	FastPathRounds int
	Exhausted      bool
	Warnings       []string
	TeamMetrics    map[string]*TeamMetrics
}

// Complete reports whether the search built every round it was asked for.
func (r *Result) Complete() bool {
	return !r.Exhausted
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger used for warnings and search progress.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithSeedSchedule extends an existing schedule instead of starting empty.
// Corners equal to empty are treated as byes.
func WithSeedSchedule(seed Output, empty string) Option {
	return func(s *Scheduler) {
		s.seedOutput = seed
		s.seedEmpty = empty
	}
}

// WithFastPath replaces the strategy tried once per round before the
// randomized fallback. A nil strategy disables the fast path.
func WithFastPath(fast strategy.Strategy) Option {
	return func(s *Scheduler) {
		s.fast = fast
		s.fastSet = true
	}
}

// Scheduler builds a schedule round by round. It is not safe for concurrent
// use; run one Scheduler per goroutine.
type Scheduler struct {
	cfg       *config.Config
	rng       *rand.Rand
	log       zerolog.Logger
	geometry  Geometry
	validator Validator
	pool      []string
	seed      []Period
	warnings  []string

	fast     strategy.Strategy
	fastSet  bool
	fallback strategy.Shuffle

	attempts   int
	impatience int
	maxFailed  int

	seedOutput Output
	seedEmpty  string
}

// New builds the pool, geometry and fast-path permutation for cfg. A nil rng
// is seeded from cfg.Seed, or from the clock when that is zero.
func New(cfg *config.Config, rng *rand.Rand, opts ...Option) (*Scheduler, error) {
	if cfg.Corners < 1 || len(cfg.Arenas) == 0 {
		return nil, eris.Errorf("invalid geometry: %d arenas × %d corners", len(cfg.Arenas), cfg.Corners)
	}
	if cfg.AppearancesPerRound < 1 {
		return nil, eris.Errorf("appearances per round must be at least 1, got %d", cfg.AppearancesPerRound)
	}
	if rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}

	s := &Scheduler{
		cfg:        cfg,
		rng:        rng,
		log:        zerolog.Nop(),
		attempts:   orDefault(cfg.Search.AttemptsPerRound, DefaultAttemptsPerRound),
		impatience: orDefault(cfg.Search.ImpatienceThreshold, DefaultImpatienceThreshold),
		maxFailed:  orDefault(cfg.Search.MaxFailedRounds, DefaultMaxFailedRounds),
	}
	for _, opt := range opts {
		opt(s)
	}

	names := &pseudoNamer{}
	width := cfg.EntrantsPerPeriod()
	s.pool = buildPool(cfg.Teams, cfg.AppearancesPerRound, width, names)
	s.geometry = ComputeGeometry(len(s.pool), len(cfg.Arenas), cfg.Corners, cfg.MatchPeriods)
	s.validator = Validator{Corners: cfg.Corners, Separation: cfg.Separation}

	if s.seedOutput != nil {
		seed, err := s.seedOutput.periods(cfg.Arenas, cfg.Corners, s.seedEmpty, names)
		if err != nil {
			return nil, eris.Wrap(err, "seed schedule")
		}
		s.seed = seed
		if s.geometry.RoundLength > 0 && len(seed)%s.geometry.RoundLength != 0 {
			w := fmt.Sprintf("seed schedule has %d match periods, not a multiple of the round length %d",
				len(seed), s.geometry.RoundLength)
			s.log.Warn().Int("seed_periods", len(seed)).Int("round_length", s.geometry.RoundLength).Msg(w)
			s.warnings = append(s.warnings, w)
		}
	}

	if s.fastSet {
		return s, nil
	}
	fast, err := strategy.FastPath(cfg.Strategy, strategy.Params{
		PoolLength:        len(s.pool),
		EntrantsPerPeriod: width,
		Separation:        cfg.Separation,
	})
	switch {
	case eris.Is(err, strategy.ErrNoParameters):
		s.log.Debug().Int("pool", len(s.pool)).Msg("no LCG fast path; using randomized search only")
	case eris.Is(err, strategy.ErrNotBijection):
		s.log.Error().Err(err).Msg("LCG permutation failed its bijection check; using randomized search only")
	case err != nil:
		return nil, err
	default:
		s.fast = fast
	}

	return s, nil
}

// Schedule builds a scheduler for cfg and runs it.
func Schedule(cfg *config.Config, rng *rand.Rand, opts ...Option) (*Result, error) {
	s, err := New(cfg, rng, opts...)
	if err != nil {
		return nil, err
	}
	return s.Run(), nil
}

// Geometry returns the sizes derived at construction.
func (s *Scheduler) Geometry() Geometry {
	return s.geometry
}

// Pool returns a copy of the padded entrant pool.
func (s *Scheduler) Pool() []string {
	out := make([]string, len(s.pool))
	copy(out, s.pool)
	return out
}

// FastPath returns the deterministic strategy tried first each round, or nil.
func (s *Scheduler) FastPath() strategy.Strategy {
	return s.fast
}

// searchState is owned by a single Run.
type searchState struct {
	periods     []Period
	best        []Period
	bestCeiling int        // ceiling in force when best was accepted
	orderings   [][]string // one per accepted round, pool order at the bottom
	ceiling     int
	policy      RelaxationPolicy

	triggered      int // matchup rejections in the current round
	relaxed        bool
	relaxations    int
	backtracks     int
	failedRounds   int
	fastPathRounds int
}

// Run searches for a schedule. It never fails: when the effort bounds run out
// it returns the longest schedule it built.
func (s *Scheduler) Run() *Result {
	st := &searchState{
		periods:   clonePeriods(s.seed),
		orderings: [][]string{s.Pool()},
		ceiling:   s.cfg.MaxMatchups,
		policy:    RelaxationPolicy{Threshold: s.impatience},
	}
	st.best = clonePeriods(st.periods)
	st.bestCeiling = st.ceiling

	roundLength := s.geometry.RoundLength
	exhausted := false
	for roundLength > 0 && len(st.periods) < s.geometry.TotalMatches &&
		len(st.periods)+roundLength <= s.cfg.MatchPeriods {

		if round, ok := s.nextRound(st); ok {
			st.periods = append(st.periods, round...)
			if len(st.periods) > len(st.best) {
				st.best = clonePeriods(st.periods)
				st.bestCeiling = st.ceiling
			}
			s.log.Debug().Int("periods", len(st.periods)).Int("ceiling", st.ceiling).Msg("round accepted")
			continue
		}

		st.failedRounds++
		if st.failedRounds > s.maxFailed {
			s.log.Warn().Int("failed_rounds", st.failedRounds).Msg("search effort exhausted")
			exhausted = true
			break
		}
		if len(st.periods) > len(s.seed) {
			st.periods = st.periods[:len(st.periods)-roundLength]
			st.orderings = st.orderings[:len(st.orderings)-1]
			st.backtracks++
			s.log.Debug().Int("periods", len(st.periods)).Msg("backtracking one round")
			continue
		}
		if st.triggered == 0 && !st.relaxed {
			s.log.Warn().Int("periods", len(st.periods)).Msg("no valid round extends the seed schedule")
			exhausted = true
			break
		}
	}

	return s.result(st, exhausted)
}

// current is the ordering of the last accepted round.
func (st *searchState) current() []string {
	return st.orderings[len(st.orderings)-1]
}

// nextRound proposes one round: the fast path once, then randomized
// shuffles, relaxing the matchup ceiling when impatience runs out.
func (s *Scheduler) nextRound(st *searchState) ([]Period, bool) {
	st.triggered = 0
	st.relaxed = false
	onMatchup := func() {
		st.policy.RecordViolation()
		st.triggered++
	}

	current := st.current()
	if s.fast != nil {
		next, err := s.fast.Next(current, s.rng)
		if err != nil {
			s.log.Error().Err(err).Msg("fast path disabled")
			s.fast = nil
		} else if round, ok := s.tryOrdering(st, next, onMatchup); ok {
			st.orderings = append(st.orderings, next)
			st.fastPathRounds++
			return round, true
		}
		s.relaxIfDue(st)
	}

	for range s.attempts {
		next, _ := s.fallback.Next(current, s.rng)
		if round, ok := s.tryOrdering(st, next, onMatchup); ok {
			st.orderings = append(st.orderings, next)
			return round, true
		}
		s.relaxIfDue(st)
	}
	return nil, false
}

func (s *Scheduler) tryOrdering(st *searchState, ordering []string, onMatchup func()) ([]Period, bool) {
	round := partition(ordering, s.geometry.EntrantsPerSlot)
	candidate := make([]Period, 0, len(st.periods)+len(round))
	candidate = append(candidate, st.periods...)
	candidate = append(candidate, round...)
	if !s.validator.validateFrom(candidate, len(st.periods), st.ceiling, onMatchup) {
		return nil, false
	}
	return round, true
}

func (s *Scheduler) relaxIfDue(st *searchState) {
	if !st.policy.ShouldRelax() {
		return
	}
	st.ceiling++
	st.relaxations++
	st.relaxed = true
	s.log.Info().Int("ceiling", st.ceiling).Msg("relaxing matchup ceiling")
}

func (s *Scheduler) result(st *searchState, exhausted bool) *Result {
	periods := st.best
	r := &Result{
		Output:         s.format(periods),
		Periods:        periods,
		Geometry:       s.geometry,
		SeedPeriods:    len(s.seed),
		ActiveCeiling:  st.bestCeiling,
		Relaxations:    st.relaxations,
		Backtracks:     st.backtracks,
		FastPathRounds: st.fastPathRounds,
		Exhausted:      exhausted,
	}
	r.Warnings, r.TeamMetrics = s.buildMetrics(periods)
	if st.bestCeiling > s.cfg.MaxMatchups {
		r.Warnings = append(r.Warnings, fmt.Sprintf("matchup ceiling relaxed from %d to %d",
			s.cfg.MaxMatchups, st.bestCeiling))
	}
	if exhausted {
		r.Warnings = append(r.Warnings, fmt.Sprintf("schedule is incomplete: built %d of %d match periods",
			len(periods), s.geometry.TotalMatches))
	}
	return r
}

func (s *Scheduler) buildMetrics(periods []Period) ([]string, map[string]*TeamMetrics) {
	warnings := append([]string(nil), s.warnings...)
	metrics := make(map[string]*TeamMetrics)
	for _, team := range s.cfg.Teams {
		metrics[team] = &TeamMetrics{}
	}

	pairs := make(map[matchupKey]int)
	for _, p := range periods {
		for _, team := range p {
			if m, ok := metrics[team]; ok {
				m.Appearances++
			}
		}
		for _, game := range p.games(s.cfg.Corners) {
			for x := 0; x < len(game); x++ {
				for y := x + 1; y < len(game); y++ {
					if IsPseudo(game[x]) || IsPseudo(game[y]) {
						continue
					}
					pairs[normalizeMatchup(game[x], game[y])]++
				}
			}
		}
	}

	for mk, n := range pairs {
		for _, team := range []string{mk.a, mk.b} {
			m, ok := metrics[team]
			if !ok {
				continue
			}
			m.Opponents++
			if n > m.MaxRepeat {
				m.MaxRepeat = n
			}
		}
	}

	maxApp, minApp := 0, math.MaxInt
	for _, team := range s.cfg.Teams {
		a := metrics[team].Appearances
		maxApp = max(maxApp, a)
		minApp = min(minApp, a)
	}
	if len(s.cfg.Teams) > 0 && maxApp-minApp > s.cfg.AppearancesPerRound {
		warnings = append(warnings, fmt.Sprintf(
			"appearance imbalance: min %d, max %d across teams", minApp, maxApp))
	}

	return warnings, metrics
}

func clonePeriods(periods []Period) []Period {
	out := make([]Period, len(periods))
	for i, p := range periods {
		out[i] = append(Period(nil), p...)
	}
	return out
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
