package schedule

// Validator checks candidate schedules against the rest-separation,
// duplicate, bye-balance and repeat-opponent constraints.
type Validator struct {
	Corners    int
	Separation int
}

type matchupKey struct {
	a, b string
}

func normalizeMatchup(a, b string) matchupKey {
	if a > b {
		a, b = b, a
	}
	return matchupKey{a, b}
}

// Validate checks every period of schedule. onMatchupViolation, if non-nil,
// is called when the schedule is otherwise acceptable but some pair of teams
// shares a game more than ceiling times.
func (v Validator) Validate(schedule []Period, ceiling int, onMatchupViolation func()) bool {
	return v.validateFrom(schedule, 0, ceiling, onMatchupViolation)
}

// validateFrom runs the per-period checks only on schedule[from:]; earlier
// periods are already accepted. The matchup tally always covers the whole
// schedule.
func (v Validator) validateFrom(schedule []Period, from, ceiling int, onMatchupViolation func()) bool {
	counts := make(map[matchupKey]int)
	for i, period := range schedule {
		check := i >= from
		if check && (!v.distinct(period) || !v.separated(schedule, i)) {
			return false
		}
		for _, game := range period.games(v.Corners) {
			allPseudo := gameAllPseudo(game)
			for x := 0; x < len(game); x++ {
				for y := x + 1; y < len(game); y++ {
					px, py := IsPseudo(game[x]), IsPseudo(game[y])
					switch {
					case px && py:
						if check && !allPseudo {
							return false
						}
					case !px && !py:
						counts[normalizeMatchup(game[x], game[y])]++
					}
				}
			}
		}
	}

	for _, n := range counts {
		if n > ceiling {
			if onMatchupViolation != nil {
				onMatchupViolation()
			}
			return false
		}
	}
	return true
}

// distinct reports whether no real team appears twice in the period.
func (v Validator) distinct(period Period) bool {
	seen := make(map[string]bool, len(period))
	for _, team := range period {
		if IsPseudo(team) {
			continue
		}
		if seen[team] {
			return false
		}
		seen[team] = true
	}
	return true
}

// separated reports whether no real team in schedule[i] played in any of the
// Separation periods before it.
func (v Validator) separated(schedule []Period, i int) bool {
	if v.Separation <= 0 {
		return true
	}
	current := make(map[string]bool, len(schedule[i]))
	for _, team := range schedule[i] {
		if !IsPseudo(team) {
			current[team] = true
		}
	}
	for j := 1; j <= v.Separation && i-j >= 0; j++ {
		for _, team := range schedule[i-j] {
			if current[team] {
				return false
			}
		}
	}
	return true
}

func gameAllPseudo(game []string) bool {
	for _, team := range game {
		if !IsPseudo(team) {
			return false
		}
	}
	return true
}
