package validator

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/derekprior/leaguesched/internal/config"
	"github.com/derekprior/leaguesched/internal/excel"
	"github.com/derekprior/leaguesched/internal/schedule"
	"github.com/derekprior/leaguesched/internal/store"
)

// Violation represents a constraint violation found during validation.
type Violation struct {
	Row     int    // worksheet row, 0 when not read from a workbook
	Period  int    // match period, -1 when not tied to one
	Type    string // "error" or "warning"
	Message string
}

// maxSuggestDistance bounds how different a typo may be from a roster name
// and still get a suggestion.
const maxSuggestDistance = 3

// Validate reads a saved schedule (.xlsx or .json) and checks it against the
// config rules.
func Validate(cfg *config.Config, path string) ([]Violation, error) {
	var (
		out    schedule.Output
		arenas = cfg.Arenas
		rows   map[int]int
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		o, err := store.Load(path)
		if err != nil {
			return nil, err
		}
		out = o
	default:
		sheet, err := excel.ReadSchedule(path)
		if err != nil {
			return nil, fmt.Errorf("reading schedule: %w", err)
		}
		out, arenas, rows = sheet.Output, sheet.Arenas, sheet.Rows
	}
	return Check(cfg, out, arenas, rows), nil
}

// Check validates an in-memory schedule. rows maps match periods to
// worksheet rows for reporting and may be nil.
func Check(cfg *config.Config, out schedule.Output, arenas []string, rows map[int]int) []Violation {
	games := flatten(out, arenas)

	var violations []Violation

	// Rules
	violations = append(violations, checkNumbering(out)...)
	violations = append(violations, checkArenas(cfg, out)...)
	violations = append(violations, checkUnknownTeams(cfg, games)...)
	violations = append(violations, checkDuplicates(games)...)
	violations = append(violations, checkSeparation(cfg, games)...)
	violations = append(violations, checkByeBalance(games)...)

	// Guidelines
	violations = append(violations, checkMatchups(cfg, games)...)
	violations = append(violations, checkAppearances(cfg, games)...)

	for i := range violations {
		if p := violations[i].Period; p >= 0 && rows != nil {
			violations[i].Row = rows[p]
		}
	}
	return violations
}

// Suggest returns the roster name closest to name, or "" when none is close.
func Suggest(name string, roster []string) string {
	if ranks := fuzzy.RankFindFold(name, roster); len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}
	best, bestDist := "", maxSuggestDistance+1
	for _, team := range roster {
		d := fuzzy.LevenshteinDistance(strings.ToLower(name), strings.ToLower(team))
		if d < bestDist {
			best, bestDist = team, d
		}
	}
	return best
}

type game struct {
	period int
	arena  string
	teams  []string // NoEntrant for empty corners
}

func flatten(out schedule.Output, arenas []string) []game {
	var games []game
	for _, period := range out.Keys() {
		for _, a := range arenas {
			if teams, ok := out[period][a]; ok {
				games = append(games, game{period, a, teams})
			}
		}
	}
	return games
}

func checkNumbering(out schedule.Output) []Violation {
	var violations []Violation
	for i, period := range out.Keys() {
		if period != i {
			violations = append(violations, Violation{
				Period:  -1,
				Type:    "error",
				Message: fmt.Sprintf("match periods are not numbered from 0 without gaps: expected %d, found %d", i, period),
			})
			break
		}
	}
	return violations
}

func checkArenas(cfg *config.Config, out schedule.Output) []Violation {
	known := make(map[string]bool)
	for _, a := range cfg.Arenas {
		known[a] = true
	}
	var violations []Violation
	for _, period := range out.Keys() {
		for a, teams := range out[period] {
			if !known[a] {
				violations = append(violations, Violation{
					Period:  period,
					Type:    "error",
					Message: fmt.Sprintf("period %d uses unknown arena %q", period, a),
				})
			}
			if len(teams) > cfg.Corners {
				violations = append(violations, Violation{
					Period:  period,
					Type:    "error",
					Message: fmt.Sprintf("period %d arena %q has %d corners (max %d)", period, a, len(teams), cfg.Corners),
				})
			}
		}
	}
	return violations
}

func checkUnknownTeams(cfg *config.Config, games []game) []Violation {
	roster := make(map[string]bool)
	for _, team := range cfg.Teams {
		roster[team] = true
	}

	var violations []Violation
	for _, g := range games {
		for _, team := range g.teams {
			if team == schedule.NoEntrant || roster[team] {
				continue
			}
			msg := fmt.Sprintf("unknown team %q in period %d", team, g.period)
			if s := Suggest(team, cfg.Teams); s != "" {
				msg += fmt.Sprintf(" (did you mean %q?)", s)
			}
			violations = append(violations, Violation{Period: g.period, Type: "error", Message: msg})
		}
	}
	return violations
}

func checkDuplicates(games []game) []Violation {
	type teamPeriod struct {
		team   string
		period int
	}
	counts := make(map[teamPeriod]int)
	var order []teamPeriod
	for _, g := range games {
		for _, team := range g.teams {
			if team == schedule.NoEntrant {
				continue
			}
			tp := teamPeriod{team, g.period}
			if counts[tp] == 0 {
				order = append(order, tp)
			}
			counts[tp]++
		}
	}

	var violations []Violation
	for _, tp := range order {
		if counts[tp] > 1 {
			violations = append(violations, Violation{
				Period:  tp.period,
				Type:    "error",
				Message: fmt.Sprintf("%s plays %d times in period %d", tp.team, counts[tp], tp.period),
			})
		}
	}
	return violations
}

func checkSeparation(cfg *config.Config, games []game) []Violation {
	teamPeriods := buildTeamPeriods(games)

	var violations []Violation
	for _, team := range sortedTeams(teamPeriods) {
		periods := teamPeriods[team]
		for i := 1; i < len(periods); i++ {
			gap := periods[i] - periods[i-1]
			if gap > 0 && gap <= cfg.Separation {
				violations = append(violations, Violation{
					Period: periods[i],
					Type:   "error",
					Message: fmt.Sprintf("%s plays periods %d and %d, only %d apart (separation %d)",
						team, periods[i-1], periods[i], gap, cfg.Separation),
				})
			}
		}
	}
	return violations
}

func checkByeBalance(games []game) []Violation {
	var violations []Violation
	for _, g := range games {
		byes := 0
		for _, team := range g.teams {
			if team == schedule.NoEntrant {
				byes++
			}
		}
		if byes > 1 && byes < len(g.teams) {
			violations = append(violations, Violation{
				Period:  g.period,
				Type:    "error",
				Message: fmt.Sprintf("period %d arena %q has %d empty corners alongside teams", g.period, g.arena, byes),
			})
		}
	}
	return violations
}

func checkMatchups(cfg *config.Config, games []game) []Violation {
	type matchup struct{ a, b string }
	counts := make(map[matchup]int)
	for _, g := range games {
		for x := 0; x < len(g.teams); x++ {
			for y := x + 1; y < len(g.teams); y++ {
				a, b := g.teams[x], g.teams[y]
				if a == schedule.NoEntrant || b == schedule.NoEntrant {
					continue
				}
				if a > b {
					a, b = b, a
				}
				counts[matchup{a, b}]++
			}
		}
	}

	var violations []Violation
	for mk, n := range counts {
		if n > cfg.MaxMatchups {
			violations = append(violations, Violation{
				Period:  -1,
				Type:    "warning",
				Message: fmt.Sprintf("%s vs %s share %d games (max %d)", mk.a, mk.b, n, cfg.MaxMatchups),
			})
		}
	}
	sort.Slice(violations, func(i, j int) bool {
		return violations[i].Message < violations[j].Message
	})
	return violations
}

func checkAppearances(cfg *config.Config, games []game) []Violation {
	counts := make(map[string]int)
	for _, team := range cfg.Teams {
		counts[team] = 0
	}
	for _, g := range games {
		for _, team := range g.teams {
			if _, ok := counts[team]; ok {
				counts[team]++
			}
		}
	}

	var violations []Violation
	maxApp, minApp := 0, math.MaxInt
	for _, team := range cfg.Teams {
		c := counts[team]
		if c == 0 {
			violations = append(violations, Violation{
				Period:  -1,
				Type:    "warning",
				Message: fmt.Sprintf("%s has no games scheduled", team),
			})
		}
		maxApp = max(maxApp, c)
		minApp = min(minApp, c)
	}
	if len(cfg.Teams) > 0 && maxApp-minApp > cfg.AppearancesPerRound {
		violations = append(violations, Violation{
			Period:  -1,
			Type:    "warning",
			Message: fmt.Sprintf("appearance imbalance: min %d, max %d across teams", minApp, maxApp),
		})
	}
	return violations
}

func buildTeamPeriods(games []game) map[string][]int {
	m := make(map[string][]int)
	for _, g := range games {
		for _, team := range g.teams {
			if team != schedule.NoEntrant {
				m[team] = append(m[team], g.period)
			}
		}
	}
	for team := range m {
		sort.Ints(m[team])
	}
	return m
}

func sortedTeams(m map[string][]int) []string {
	teams := make([]string, 0, len(m))
	for team := range m {
		teams = append(teams, team)
	}
	sort.Strings(teams)
	return teams
}
