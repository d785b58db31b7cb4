package main

import (
	"errors"
	"fmt"
	"math/rand"

	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ormbench/report"
)

var errRegression = errors.New("regressions found")

func newSeedCmd(v *viper.Viper, configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Creates the schema and stores the generated dataset, without measuring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, *configFile)
			if err != nil {
				return err
			}
			res, err := seed(cmd.Context(), cfg, rand.New(rand.NewSource(randomSeed(cfg.Seed.RandomSeed))))
			if err != nil {
				return fmt.Errorf("seeding: %w", err)
			}
			if res.Skipped {
				fmt.Println("Database already populated")
			}
			fmt.Printf("olympics: %d, sports: %d, teams: %d, players: %d\n",
				res.Rows.Olympics, res.Rows.Sports, res.Rows.Teams, res.Rows.Players)
			fmt.Println("Done")
			return nil
		},
	}
}

func newCompareCmd() *cobra.Command {
	var threshold float64
	var failOnRegression bool

	cmd := &cobra.Command{
		Use:   "compare <previous> <current>",
		Short: "Shows the change in mean latency between two exported runs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			prev, err := report.Load(args[0])
			if err != nil {
				return err
			}
			curr, err := report.Load(args[1])
			if err != nil {
				return err
			}
			if prev.Settings.Dialect != curr.Settings.Dialect {
				zlog.Warn().Str("previous", prev.Settings.Dialect).Str("current", curr.Settings.Dialect).
					Msg("Comparing runs of different stores")
			}

			deltas := report.Compare(prev, curr, threshold)
			fmt.Fprint(cmd.OutOrStdout(), report.RenderComparison(prev.RunID, curr.RunID, deltas))
			if n := report.Regressions(deltas); n > 0 && failOnRegression {
				return fmt.Errorf("%w: %d over %.1f%%", errRegression, n, threshold)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", 10, "Slowdown in percent reported as a regression")
	cmd.Flags().BoolVar(&failOnRegression, "fail-on-regression", false, "Exit with 1 when a regression is found")
	return cmd
}
