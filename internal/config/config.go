package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/derekprior/leaguesched/internal/strategy"
)

// Search holds the effort bounds of the randomized search. Zero values fall
// back to the scheduler defaults.
type Search struct {
	AttemptsPerRound    int `yaml:"attempts_per_round"`
	ImpatienceThreshold int `yaml:"impatience_threshold"`
	MaxFailedRounds     int `yaml:"max_failed_rounds"`
}

type Config struct {
	Teams               []string `yaml:"teams"`
	Arenas              []string `yaml:"arenas"`
	Corners             int      `yaml:"corners"`
	MatchPeriods        int      `yaml:"match_periods"`
	AppearancesPerRound int      `yaml:"appearances_per_round"`
	Separation          int      `yaml:"separation"`
	MaxMatchups         int      `yaml:"max_matchups"`
	Strategy            string   `yaml:"strategy"`
	Seed                int64    `yaml:"seed"`
	Search              Search   `yaml:"search"`
}

// pseudoPrefix is reserved for bye entrants.
const pseudoPrefix = "~"

// Default returns a Config with every optional field at its default.
func Default() Config {
	return Config{
		Arenas:              []string{"main"},
		Corners:             4,
		AppearancesPerRound: 1,
		Separation:          2,
		MaxMatchups:         2,
		Strategy:            strategy.NameLCG,
	}
}

// LoadFromBytes parses YAML bytes over the defaults and validates the result.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromFile reads and parses a YAML config file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromBytes(data)
}

// EntrantsPerPeriod is the number of slots in one match period.
func (c *Config) EntrantsPerPeriod() int {
	return len(c.Arenas) * c.Corners
}

// Validate checks the configuration for values the scheduler cannot use.
func (c *Config) Validate() error {
	if len(c.Teams) == 0 {
		return fmt.Errorf("at least one team is required")
	}

	seen := make(map[string]bool)
	for _, team := range c.Teams {
		if strings.TrimSpace(team) == "" {
			return fmt.Errorf("team names cannot be empty")
		}
		if strings.HasPrefix(team, pseudoPrefix) {
			return fmt.Errorf("team %q: names starting with %q are reserved for byes", team, pseudoPrefix)
		}
		if seen[team] {
			return fmt.Errorf("team %q appears more than once", team)
		}
		seen[team] = true
	}

	if len(c.Arenas) == 0 {
		return fmt.Errorf("at least one arena is required")
	}
	arenas := make(map[string]bool)
	for _, a := range c.Arenas {
		if a == "" {
			return fmt.Errorf("arena names cannot be empty")
		}
		if arenas[a] {
			return fmt.Errorf("arena %q appears more than once", a)
		}
		arenas[a] = true
	}

	if c.Corners < 1 {
		return fmt.Errorf("corners must be at least 1, got %d", c.Corners)
	}
	if c.MatchPeriods < 1 {
		return fmt.Errorf("match_periods must be at least 1, got %d", c.MatchPeriods)
	}
	if c.AppearancesPerRound < 1 {
		return fmt.Errorf("appearances_per_round must be at least 1, got %d", c.AppearancesPerRound)
	}
	if c.Separation < 0 {
		return fmt.Errorf("separation cannot be negative, got %d", c.Separation)
	}
	if c.MaxMatchups < 1 {
		return fmt.Errorf("max_matchups must be at least 1, got %d", c.MaxMatchups)
	}

	if !strategy.Known(c.Strategy) {
		return fmt.Errorf("unknown strategy: %q", c.Strategy)
	}

	if c.Search.AttemptsPerRound < 0 || c.Search.ImpatienceThreshold < 0 || c.Search.MaxFailedRounds < 0 {
		return fmt.Errorf("search limits cannot be negative")
	}

	return nil
}
