package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/onetagger/autotagger-core/internal/app"
	"github.com/onetagger/autotagger-core/internal/config"
	"github.com/onetagger/autotagger-core/internal/logger"
	"github.com/onetagger/autotagger-core/internal/version"
)

var (
	// configFilenameFromFlag stores the config filename provided via command-line flag.
	//
	//nolint:gochecknoglobals // It is required for configuration initialization before the application starts.
	configFilenameFromFlag string

	// appConfig stores the loaded, validated run configuration.
	//
	//nolint:gochecknoglobals,lll // It is initialized once during the application's startup and shared across the command execution logic.
	appConfig *config.Loaded

	// rootCmd is the main Cobra command for the application.
	//
	//nolint:gochecknoglobals,lll // Cobra command requires a global definition for proper command-line parsing and execution.
	rootCmd = &cobra.Command{
		Use:   "autotagger [flags] {paths...}",
		Short: "Enrich local audio files with metadata from online music catalogs.",
		Long: `Auto-Tagger Core is a CLI front end for the auto-tagging pipeline: it
extracts existing metadata from local audio files, queries
one or more configured catalogs (Beatport, Discogs, MusicBrainz, Spotify, ...),
scores candidate matches, and writes the winning metadata back into each
file's tag container.

Paths may be individual audio files, directories to enumerate, or M3U(8)
playlists. When no paths are given, the configured root_path is enumerated
instead.`,
		PersistentPreRun: initConfig,
		RunE: func(cmd *cobra.Command, paths []string) error {
			if os.Getenv("AUTOTAGGER_DUMP_CONFIG") == "1" {
				dumpConfig(appConfig)
				return nil
			}

			files, err := app.ResolveFiles(appConfig.Configuration, paths)
			if err != nil {
				return fmt.Errorf("resolving input files: %w", err)
			}

			summary, err := app.Run(cmd.Context(), appConfig, files)
			if err != nil {
				return fmt.Errorf("running auto-tagger: %w", err)
			}

			printSummary(cmd.Context(), summary)

			return nil
		},
	}
)

// Execute executes the root command.
func Execute() {
	signals := []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM}
	ctx, stop := signal.NotifyContext(context.Background(), signals...)

	defer func() {
		_ = logger.Logger().Sync() //nolint:errcheck // No need to check the error here, application will exit anyway.
	}()

	defer stop()

	go func() {
		defer stop()

		err := rootCmd.ExecuteContext(ctx)
		cobra.CheckErr(err)
	}()

	<-ctx.Done()
}

//nolint:gochecknoinits // Cobra requires the init function to set up flags before the command is executed.
func init() {
	// Add version command.
	version.AttachCobraVersionCommand(rootCmd)

	rootCmd.PersistentFlags().StringVarP(
		&configFilenameFromFlag,
		"config",
		"c",
		"",
		fmt.Sprintf("path to the configuration file (default is '%s')",
			config.DefaultConfigFilename))

	rootCmdFlags := rootCmd.Flags()

	rootCmdFlags.Int(
		"threads",
		0,
		"override the configured worker-thread count (0 keeps the config value).")

	rootCmdFlags.String(
		"platforms",
		"",
		"comma-separated platform ids to query, overriding the config's platforms list.")

	rootCmdFlags.Float64(
		"strictness",
		-1,
		"override the configured fuzzy-match strictness (0-1; negative keeps the config value).")

	rootCmdFlags.Bool(
		"skip-tagged",
		false,
		"skip files already tagged by a previous auto-tagger run.")
}

func initConfig(cmd *cobra.Command, _ []string) {
	var err error

	appConfig, err = config.LoadConfig(configFilenameFromFlag)
	if err != nil {
		logger.Fatalf(cmd.Context(), "Failed to load configuration: %v", err)
	}

	if err = bindFlagsToConfig(cmd.Flags(), appConfig); err != nil {
		logger.Fatalf(cmd.Context(), "Failed to parse flags: %v", err)
	}

	logger.SetLevel(appConfig.ParsedLogLevel)
}

func bindFlagsToConfig(flags *pflag.FlagSet, cfg *config.Loaded) error {
	if flag := flags.Lookup("threads"); flag != nil && flag.Changed {
		threads, err := flags.GetInt("threads")
		if err != nil {
			return fmt.Errorf("failed to get threads value: %w", err)
		}

		if threads > 0 {
			cfg.Configuration.Threads = threads
		}
	}

	if flag := flags.Lookup("platforms"); flag != nil && flag.Changed {
		raw, err := flags.GetString("platforms")
		if err != nil {
			return fmt.Errorf("failed to get platforms value: %w", err)
		}

		platforms := strings.Split(raw, ",")
		for i, p := range platforms {
			platforms[i] = strings.TrimSpace(p)
		}

		cfg.Configuration.Platforms = platforms
	}

	if flag := flags.Lookup("strictness"); flag != nil && flag.Changed {
		strictness, err := flags.GetFloat64("strictness")
		if err != nil {
			return fmt.Errorf("failed to get strictness value: %w", err)
		}

		if strictness >= 0 {
			if strictness > 1 {
				return fmt.Errorf("%w: got %v", config.ErrInvalidStrictness, strictness)
			}

			cfg.Configuration.Strictness = strictness
		}
	}

	if flag := flags.Lookup("skip-tagged"); flag != nil && flag.Changed {
		skipTagged, err := flags.GetBool("skip-tagged")
		if err != nil {
			return fmt.Errorf("failed to get skip-tagged value: %w", err)
		}

		cfg.Configuration.SkipTagged = skipTagged
	}

	return nil
}

// dumpConfig dumps the resolved configuration as JSON, for E2E testing of
// flag overrides.
func dumpConfig(cfg *config.Loaded) {
	type ConfigDump struct {
		Platforms  []string `json:"platforms"`
		Threads    int      `json:"threads"`
		Strictness float64  `json:"strictness"`
		SkipTagged bool     `json:"skip_tagged"`
	}

	dump := ConfigDump{
		Platforms:  cfg.Configuration.Platforms,
		Threads:    cfg.Configuration.Threads,
		Strictness: cfg.Configuration.Strictness,
		SkipTagged: cfg.Configuration.SkipTagged,
	}

	jsonData, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(jsonData))
}

func printSummary(ctx context.Context, summary app.Summary) {
	logger.Infof(ctx, "tagged: %d ok, %d error, %d skipped", summary.OK, summary.Error, summary.Skipped)

	if summary.FeaturesOK+summary.FeaturesError+summary.FeaturesSkipped > 0 {
		logger.Infof(ctx, "audio features: %d ok, %d error, %d skipped",
			summary.FeaturesOK, summary.FeaturesError, summary.FeaturesSkipped)
	}
}
