package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-andiamo/splitter"
	"golang.org/x/sync/errgroup"

	"github.com/derekprior/leaguesched/internal/config"
	"github.com/derekprior/leaguesched/internal/excel"
	"github.com/derekprior/leaguesched/internal/schedule"
	"github.com/derekprior/leaguesched/internal/store"
	"github.com/derekprior/leaguesched/internal/validator"
)

type generateOptions struct {
	output   string
	resume   string
	seed     int64
	seedSet  bool
	teams    string
	parallel int
}

func runGenerate(configPath string, opts generateOptions) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if opts.teams != "" {
		teams, err := parseTeams(opts.teams)
		if err != nil {
			return err
		}
		cfg.Teams = teams
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if opts.seedSet {
		cfg.Seed = opts.seed
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	var schedOpts []schedule.Option
	if opts.resume != "" {
		seed, err := loadSeed(opts.resume)
		if err != nil {
			return fmt.Errorf("loading %s: %w", opts.resume, err)
		}
		warnUnknownTeams(cfg, seed)
		schedOpts = append(schedOpts, schedule.WithSeedSchedule(seed, schedule.NoEntrant))
		fmt.Printf("Extending %d match periods from %s\n", seed.Len(), opts.resume)
	}

	fmt.Printf("Scheduling %d teams across %d arenas × %d corners (seed %d)...\n",
		len(cfg.Teams), len(cfg.Arenas), cfg.Corners, cfg.Seed)

	result, err := runSearches(context.Background(), cfg, max(opts.parallel, 1), schedOpts)
	if err != nil {
		return err
	}

	if result.Complete() {
		fmt.Printf("✓ All %d match periods scheduled\n", len(result.Periods))
	} else {
		fmt.Fprintf(os.Stderr, "⚠ Search exhausted after %d of %d match periods\n",
			len(result.Periods), result.Geometry.TotalMatches)
		fmt.Fprintf(os.Stderr, "\nSaving partial schedule...\n")
	}
	if result.FastPathRounds > 0 {
		fmt.Printf("  %d rounds placed by the LCG permutation\n", result.FastPathRounds)
	}
	if result.Backtracks > 0 {
		fmt.Printf("  %d backtracks\n", result.Backtracks)
	}

	fmt.Println("\nPer Team Metrics:")
	fmt.Printf("  %-15s %6s %9s %6s\n", "Team", "Games", "Opponents", "Repeat")
	for _, team := range cfg.Teams {
		m := result.TeamMetrics[team]
		fmt.Printf("  %-15s %6d %9d %6d\n", team, m.Appearances, m.Opponents, m.MaxRepeat)
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(result.Warnings))
		for _, w := range result.Warnings {
			fmt.Printf("  ⚠ %s\n", w)
		}
	} else {
		fmt.Println("\n✓ No warnings")
	}

	if err := writeOutput(opts.output, cfg, result); err != nil {
		return err
	}

	fmt.Printf("\n✓ Schedule saved to %s\n", opts.output)
	if !result.Complete() {
		return fmt.Errorf("schedule is incomplete: %d of %d match periods scheduled",
			len(result.Periods), result.Geometry.TotalMatches)
	}
	return nil
}

// parseTeams splits a roster on spaces, keeping double-quoted names whole.
func parseTeams(s string) ([]string, error) {
	spaceSplitter, err := splitter.NewSplitter(' ', splitter.DoubleQuotes, splitter.LeftRightDoubleDoubleQuotes)
	if err != nil {
		return nil, err
	}
	parts, err := spaceSplitter.Split(s)
	if err != nil {
		return nil, fmt.Errorf("parsing teams: %w", err)
	}

	var teams []string
	for _, p := range parts {
		p = strings.TrimSpace(strings.Trim(p, `"“”`))
		if p != "" {
			teams = append(teams, p)
		}
	}
	if len(teams) == 0 {
		return nil, fmt.Errorf("parsing teams: no team names in %q", s)
	}
	return teams, nil
}

func loadSeed(path string) (schedule.Output, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return store.Load(path)
	}
	sheet, err := excel.ReadSchedule(path)
	if err != nil {
		return nil, err
	}
	return sheet.Output, nil
}

func warnUnknownTeams(cfg *config.Config, seed schedule.Output) {
	roster := make(map[string]bool)
	for _, team := range cfg.Teams {
		roster[team] = true
	}
	seen := make(map[string]bool)
	for _, arenas := range seed {
		for _, teams := range arenas {
			for _, team := range teams {
				if team == schedule.NoEntrant || roster[team] || seen[team] {
					continue
				}
				seen[team] = true
				ev := logger.Warn().Str("team", team)
				if s := validator.Suggest(team, cfg.Teams); s != "" {
					ev = ev.Str("suggestion", s)
				}
				ev.Msg("resumed schedule names a team missing from the roster")
			}
		}
	}
}

// runSearches runs n independent searches with consecutive seeds and keeps
// the best result.
func runSearches(ctx context.Context, cfg *config.Config, n int, opts []schedule.Option) (*schedule.Result, error) {
	var (
		mu   sync.Mutex
		best *schedule.Result
	)
	g, _ := errgroup.WithContext(ctx)

	for i := 0; i < n; i++ {
		seed := cfg.Seed + int64(i)
		g.Go(func() error {
			runOpts := append([]schedule.Option{
				schedule.WithLogger(logger.With().Int("run", i).Int64("seed", seed).Logger()),
			}, opts...)

			result, err := schedule.Schedule(cfg, rand.New(rand.NewSource(seed)), runOpts...)
			if err != nil {
				return err
			}
			logger.Debug().Int("run", i).Int("periods", len(result.Periods)).
				Bool("complete", result.Complete()).Msg("search finished")

			mu.Lock()
			if best == nil || better(result, best) {
				best = result
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return best, nil
}

// better prefers complete schedules, then longer ones, then fewer relaxations.
func better(a, b *schedule.Result) bool {
	if a.Complete() != b.Complete() {
		return a.Complete()
	}
	if len(a.Periods) != len(b.Periods) {
		return len(a.Periods) > len(b.Periods)
	}
	return a.Relaxations < b.Relaxations
}

func writeOutput(path string, cfg *config.Config, result *schedule.Result) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := store.Save(path, result.Output); err != nil {
			return fmt.Errorf("saving file: %w", err)
		}
		return nil
	}

	f, err := excel.Generate(cfg, result)
	if err != nil {
		return fmt.Errorf("generating Excel: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving file: %w", err)
	}
	return nil
}
