package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	defaultConfigFile = "config.yaml"
	logLevelEnv       = "LEAGUESCHED_LOG_LEVEL"
)

var logger = zerolog.Nop()

func resolveConfigPath(configFlag string) (string, error) {
	if configFlag != "" {
		return configFlag, nil
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile, nil
	}
	return "", fmt.Errorf("no config file found. Either create %s in the current directory or pass --config", defaultConfigFile)
}

func setupLogger(level string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
	return nil
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	logLevel := os.Getenv(logLevelEnv)
	if logLevel == "" {
		logLevel = "warn"
	}

	rootCmd := &cobra.Command{
		Use:   "leaguesched",
		Short: "League match schedule generator",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(logLevel)
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", logLevel, "Log level (debug, info, warn, error); also read from "+logLevelEnv)

	var initOutputPath string
	initCmd := &cobra.Command{
		Use:          "init",
		Short:        "Create a starter config.yaml in the current directory",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(initOutputPath)
		},
	}
	initCmd.Flags().StringVarP(&initOutputPath, "output", "o", defaultConfigFile, "Output path for the config file")

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Generate and validate schedules",
	}

	var configFile string
	scheduleCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default: config.yaml in current directory)")

	var opts generateOptions
	generateCmd := &cobra.Command{
		Use:          "generate",
		Short:        "Generate a schedule from a config file",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath(configFile)
			if err != nil {
				return err
			}
			opts.seedSet = cmd.Flags().Changed("seed")
			return runGenerate(configPath, opts)
		},
	}
	generateCmd.Flags().StringVarP(&opts.output, "output", "o", "schedule.xlsx", "Output file path (.xlsx or .json)")
	generateCmd.Flags().StringVar(&opts.resume, "resume", "", "Extend an existing schedule (.xlsx or .json)")
	generateCmd.Flags().Int64Var(&opts.seed, "seed", 0, "Random seed (overrides the config)")
	generateCmd.Flags().StringVar(&opts.teams, "teams", "", `Team roster overriding the config, space separated; quote names with spaces: 'Alpha "Red Sox"'`)
	generateCmd.Flags().IntVar(&opts.parallel, "parallel", 1, "Number of independent searches to run, keeping the best")

	validateCmd := &cobra.Command{
		Use:          "validate <schedule.xlsx|schedule.json>",
		Short:        "Validate a schedule against config rules",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath(configFile)
			if err != nil {
				return err
			}
			return runValidate(configPath, args[0])
		},
	}

	scheduleCmd.AddCommand(generateCmd, validateCmd)
	rootCmd.AddCommand(initCmd, scheduleCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runInit(outputPath string) error {
	if _, err := os.Stat(outputPath); err == nil {
		return fmt.Errorf("%s already exists; remove it first or use -o to write elsewhere", outputPath)
	}

	if err := os.WriteFile(outputPath, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("✓ Created %s\n", outputPath)
	return nil
}

const configTemplate = `# League Schedule Configuration
# =============================

# Teams in the league. Names must be unique and may not start with "~",
# which is reserved for byes.
teams: [Angels, Astros, Athletics, Mariners, Royals, Cubs, Padres, Phillies, Pirates, Marlins, Giants, Reds, Mets, Braves]

# Arenas host one game per match period. Each game has a fixed number of
# corners (entrant positions).
arenas: [Moscariello Ballpark, Symonds Field]
corners: 2

# Number of match periods to fill. The schedule is built in whole rounds,
# so the final length is rounded down to a multiple of the round length.
match_periods: 20

# How many times each team appears per round.
appearances_per_round: 1

# A team must sit out at least this many periods between games. Each extra
# period of rest needs roughly another period's worth of teams in the roster.
separation: 1

# Two teams should share at most this many games. The scheduler raises the
# limit by one when it cannot make progress, and reports it as a warning.
max_matchups: 2

# "lcg" tries a deterministic spacing permutation before random shuffles.
# "shuffle" uses random shuffles only.
strategy: lcg

# Random seed. 0 picks one from the clock; set it to reproduce a schedule.
seed: 0

# Search effort. Zero leaves the built-in default.
search:
  attempts_per_round: 10000       # shuffles tried per round before giving up on it
  impatience_threshold: 200000    # matchup rejections before the limit is relaxed
  max_failed_rounds: 200          # failed rounds before returning the best schedule found
`
