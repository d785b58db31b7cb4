package main

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ormbench/benchmark"
	engine "ormbench/benchmark/engines/abstract"
	"ormbench/config"
	"ormbench/dbUtils"
	"ormbench/generator"
	"ormbench/report"
)

// Prepare zerolog
func setupLogging(disableLog bool, level string, pretty bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zlevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		zlevel = zerolog.InfoLevel
	}
	if disableLog {
		zlevel = zerolog.Disabled
	}
	zerolog.SetGlobalLevel(zlevel)
	if pretty {
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
}

// loadConfig reads the configuration and sets up logging from it.
func loadConfig(v *viper.Viper, path string) (*config.Config, error) {
	cfg, err := config.Load(v, path)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log.Disable, cfg.Log.Level, cfg.Log.Pretty)
	return cfg, nil
}

// randomSeed returns the configured seed, or a time based one when it is 0.
func randomSeed(configured int64) int64 {
	if configured != 0 {
		return configured
	}
	seed := time.Now().UnixNano()
	zlog.Info().Int64("seed", seed).Msg("Using time based random seed")
	return seed
}

// seed makes sure the store holds the dataset and the probe rows.
func seed(ctx context.Context, cfg *config.Config, rng *rand.Rand) (*generator.SeedResult, error) {
	dialect, err := dbutils.ParseDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	var db *sql.DB
	if db, err = dbutils.Open(ctx, dialect, cfg.ConnectionString, 1); err != nil {
		return nil, err
	}
	defer db.Close()

	seeder := &generator.Seeder{
		DB:        db,
		Dialect:   dialect,
		Counts:    cfg.Seed.Counts,
		Generator: generator.New(rng),
		Probes:    cfg.Probes.Rows(),
	}
	return seeder.Seed(ctx, cfg.CleanDatabase)
}

func run(ctx context.Context, cfg *config.Config) error {
	dialect, err := dbutils.ParseDialect(cfg.Dialect)
	if err != nil {
		return err
	}
	seedValue := randomSeed(cfg.Seed.RandomSeed)

	runner, err := benchmark.NewRunner(benchmark.DefaultRegistry(), benchmark.Options{
		Dialect:          dialect,
		ConnectionString: cfg.ConnectionString,
		Adapters:         cfg.Benchmark.Adapters,
		Operations:       cfg.Benchmark.Operations,
		Warmup:           cfg.Benchmark.Warmup,
		Iterations:       cfg.Benchmark.Iterations,
		Timeout:          cfg.Benchmark.Timeout,
		RemoveOutliers:   cfg.Benchmark.RemoveOutliers,
		Baseline:         cfg.Benchmark.Baseline,
		MaxOpenConns:     cfg.Benchmark.MaxOpenConns,
		Probes:           cfg.Probes,
		Targets: engine.NewPicker(rand.New(rand.NewSource(seedValue)),
			cfg.Targets.Min, cfg.Targets.Max, cfg.Probes.OlympiadID),
	})
	if err != nil {
		return err
	}
	sinks, err := report.New(ctx, cfg.Report.Formats, report.Options{Out: os.Stdout, Dir: cfg.Report.Dir, S3: cfg.Report.S3})
	if err != nil {
		return err
	}

	rep := &report.Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Settings: report.Settings{
			Dialect:        string(dialect),
			Adapters:       runner.Adapters(),
			Operations:     runner.Operations(),
			Warmup:         cfg.Benchmark.Warmup,
			Iterations:     cfg.Benchmark.Iterations,
			Timeout:        cfg.Benchmark.Timeout,
			RemoveOutliers: cfg.Benchmark.RemoveOutliers,
			Baseline:       cfg.Benchmark.Baseline,
			Counts:         cfg.Seed.Counts,
			RandomSeed:     seedValue,
		},
	}
	zlog.Info().Str("run", rep.RunID).Str("dialect", string(dialect)).Strs("adapters", runner.Adapters()).Msg("Run started")

	fmt.Println("Populating")
	seeded, err := seed(ctx, cfg, rand.New(rand.NewSource(seedValue)))
	if err != nil {
		return fmt.Errorf("seeding: %w", err)
	}
	rep.Seeding = report.Seeding{Skipped: seeded.Skipped, Rows: seeded.Rows, Generated: seeded.Generated, Stored: seeded.Stored}

	fmt.Println("Running")
	runErr := runner.Run(ctx, rep)
	rep.FinishedAt = time.Now().UTC()
	if runErr != nil {
		// whatever was measured before the failure is still reported
		zlog.Error().Err(runErr).Int("groups", len(rep.Groups)).Msg("Run interrupted")
	}

	if cfg.HasFormat("csv") || cfg.HasFormat("json") || cfg.HasFormat("yaml") || cfg.HasFormat("prometheus") {
		if err := os.MkdirAll(cfg.Report.Dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
		if err := cfg.Dump(filepath.Join(cfg.Report.Dir, rep.RunID+".config.yaml")); err != nil {
			return err
		}
	}
	// measurements are done, sinks must not be cut short by an interrupt
	if err := report.Publish(context.WithoutCancel(ctx), rep, sinks); err != nil {
		return err
	}
	return runErr
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var configFile string

	root := &cobra.Command{
		Use:           "ormbench",
		Short:         "Compares the latency of data-access strategies over the same relational schema",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, configFile)
			if err != nil {
				return err
			}
			if err := run(cmd.Context(), cfg); err != nil {
				return err
			}
			fmt.Println("Done")
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Benchmark config file (yaml)")
	flags.Bool("no-log", false, "Disables the log")
	flags.String("level", "info", "Log level (debug|info|warn|error)")
	flags.String("dialect", "", "Store to benchmark (postgres|sqlite)")
	flags.String("connection", "", "Connection string of the store")
	flags.Bool("clean", false, "Drops and reseeds the database")
	root.Flags().StringSlice("adapters", nil, "Adapters to measure, in report order")
	root.Flags().StringSlice("operations", nil, "Operations to measure")
	root.Flags().Int("warmup", 0, "Untimed calls per adapter and operation")
	root.Flags().Int("iterations", 0, "Measured calls per adapter and operation")
	root.Flags().StringSlice("format", nil, "Report formats (table|csv|json|yaml|prometheus|s3)")

	for key, flag := range map[string]string{
		"log.disable":          "no-log",
		"log.level":            "level",
		"dialect":              "dialect",
		"connectionString":     "connection",
		"cleanDatabase":        "clean",
		"benchmark.adapters":   "adapters",
		"benchmark.operations": "operations",
		"benchmark.warmup":     "warmup",
		"benchmark.iterations": "iterations",
		"report.formats":       "format",
	} {
		f := flags.Lookup(flag)
		if f == nil {
			f = root.Flags().Lookup(flag)
		}
		_ = v.BindPFlag(key, f)
	}

	root.AddCommand(newSeedCmd(v, &configFile), newCompareCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		zlog.Error().Err(err).Msg("Failed")
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
