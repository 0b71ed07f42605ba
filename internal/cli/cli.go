// Package cli implements the command-line interface for opendagen-sync.
//
// The cli package provides the Cobra-based CLI: "sync" runs one ingestion
// pass, "watch" re-runs it on a schedule, and "seed-schools" loads school
// directory rows for the matcher. It coordinates the pipeline, matcher and
// storage packages and reports each run's summary in text or JSON.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/mijnschoolkeuze/opendagen-sync/internal/logx"
	"github.com/mijnschoolkeuze/opendagen-sync/internal/matcher"
	"github.com/mijnschoolkeuze/opendagen-sync/internal/pipeline"
	"github.com/mijnschoolkeuze/opendagen-sync/internal/storage"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagDBPath    string
	flagYear      string
	flagURL       string
	flagThreshold float64
	flagAliases   string
	flagFormat    string
	flagVerbose   bool
	flagEvery     time.Duration
)

// NewRootCmd creates the root command with its subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "opendagen-sync",
		Short: "Ingest school open-day listings and match them to known schools",
		Long: `opendagen-sync fetches the public open-day listing, extracts events from
its text, resolves each event to a school in the directory, and merges the
result into the event store. Events that disappear from the listing are
deactivated, not deleted, and reactivate when they reappear.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagDBPath, "db", envOr("OPENDAGEN_DB", "opendagen.db"), "Path to the sqlite database")
	root.PersistentFlags().StringVar(&flagYear, "year", envOr("OPENDAGEN_YEAR", "2025/26"), "School-year label scoping the run")
	root.PersistentFlags().StringVar(&flagURL, "url", envOr("OPENDAGEN_URL", pipeline.DefaultSourceURL), "Listing URL to ingest")
	root.PersistentFlags().Float64Var(&flagThreshold, "threshold", matcher.DefaultThreshold, "Minimum accepted fuzzy match score")
	root.PersistentFlags().StringVar(&flagAliases, "aliases", os.Getenv("OPENDAGEN_ALIASES"), "Path to a JSON matcher config (aliases, threshold, stopwords)")
	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	root.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	root.AddCommand(newSyncCmd(), newWatchCmd(), newSeedSchoolsCmd())
	return root
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one ingestion pass and print its summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setup(); err != nil {
				return err
			}
			store, runner, err := buildRunner()
			if err != nil {
				return err
			}
			defer store.Close()

			summary, err := runner.Run(cmd.Context(), flagYear)
			if err != nil {
				return err
			}
			return WriteSummary(os.Stdout, summary, OutputFormat(flagFormat))
		},
	}
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run an ingestion pass now and again on a fixed schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setup(); err != nil {
				return err
			}
			store, runner, err := buildRunner()
			if err != nil {
				return err
			}
			defer store.Close()

			runOnce := func() {
				summary, err := runner.Run(context.Background(), flagYear)
				if err != nil {
					logx.Error("sync run failed", logx.Fields{"year": flagYear}, err)
					return
				}
				if err := WriteSummary(os.Stdout, summary, OutputFormat(flagFormat)); err != nil {
					logx.Error("writing summary failed", nil, err)
				}
			}

			c := cron.New()
			if _, err := c.AddFunc(fmt.Sprintf("@every %s", flagEvery), runOnce); err != nil {
				return fmt.Errorf("registering schedule: %w", err)
			}

			runOnce()
			c.Start()
			logx.Info("watch started", logx.Fields{"every": flagEvery.String()})

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop

			<-c.Stop().Done()
			logx.Info("watch stopped", nil)
			return nil
		},
	}
	cmd.Flags().DurationVar(&flagEvery, "every", 24*time.Hour, "Interval between ingestion passes")
	return cmd
}

func newSeedSchoolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-schools <file>",
		Short: "Load school directory rows from a JSON file",
		Long: `Loads rows of {"id", "name", "website_url"} into the school directory.
The directory is normally maintained by the school-sync job; this command
exists to operate the matcher standalone and to bootstrap a fresh database.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setup(); err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading schools file: %w", err)
			}
			var schools []matcher.School
			if err := json.Unmarshal(data, &schools); err != nil {
				return fmt.Errorf("parsing schools file: %w", err)
			}

			store, err := storage.Open(flagDBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SeedSchools(cmd.Context(), schools); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Seeded %d schools.\n", len(schools))
			return nil
		},
	}
}

// setup validates global flags and applies them to the ambient environment.
func setup() error {
	format := OutputFormat(flagFormat)
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}
	if flagVerbose {
		logx.SetDefault(logx.New(logx.LevelDebug, os.Stderr))
	}
	return nil
}

// buildRunner opens the store and wires the pipeline from the global flags.
func buildRunner() (*storage.Store, *pipeline.Runner, error) {
	cfg := matcher.Config{Threshold: flagThreshold}
	if flagAliases != "" {
		loaded, err := matcher.LoadConfig(flagAliases)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
		// An explicit --threshold overrides the file.
		if flagThreshold != matcher.DefaultThreshold {
			cfg.Threshold = flagThreshold
		}
	}

	store, err := storage.Open(flagDBPath)
	if err != nil {
		return nil, nil, err
	}

	runner := &pipeline.Runner{
		Fetcher:   pipeline.NewHTTPFetcher(flagURL),
		Directory: store,
		Sink:      store,
		Matcher:   cfg,
	}
	return store, runner, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Execute loads the environment and runs the CLI.
func Execute() {
	// Best-effort: a missing .env is the normal case outside development.
	_ = godotenv.Load()

	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
