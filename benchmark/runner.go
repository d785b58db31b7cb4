// Package benchmark drives the measurement: every operation is run against every
// adapter, one pair at a time, and the pairs of an operation are ranked together.
package benchmark

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	zlog "github.com/rs/zerolog/log"

	engine "ormbench/benchmark/engines/abstract"
	"ormbench/dbUtils"
	"ormbench/report"
	"ormbench/stats"
	"ormbench/util"
	"ormbench/worker"
)

type Options struct {
	Dialect          dbutils.Dialect
	ConnectionString string
	// adapter names in report order; empty means every adapter of the dialect
	Adapters []string
	// operation names in measurement order; empty means all eight
	Operations     []string
	Warmup         int
	Iterations     int
	Timeout        time.Duration
	RemoveOutliers bool
	Baseline       string
	MaxOpenConns   int
	Probes         engine.Probes
	// shared by every adapter of the run
	Targets *engine.Picker
}

type Runner struct {
	opts     Options
	adapters []Adapter
}

// NewRunner resolves the adapters and operations to measure.
func NewRunner(registry *Registry, opts Options) (*Runner, error) {
	adapters, err := registry.Resolve(opts.Adapters, opts.Dialect)
	if err != nil {
		return nil, err
	}
	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapter supports %s", opts.Dialect)
	}
	if len(opts.Operations) == 0 {
		opts.Operations = engine.Operations
	}
	for _, op := range opts.Operations {
		if !engine.IsOperation(op) {
			return nil, fmt.Errorf("unknown operation %q", op)
		}
	}
	if opts.Targets == nil {
		return nil, fmt.Errorf("no write targets")
	}
	return &Runner{opts: opts, adapters: adapters}, nil
}

// Adapters returns the names of the measured adapters, in report order.
func (r *Runner) Adapters() []string {
	names := make([]string, len(r.adapters))
	for i, a := range r.adapters {
		names[i] = a.Name
	}
	return names
}

func (r *Runner) Operations() []string {
	return r.opts.Operations
}

// Run measures every operation × adapter pair and fills the groups of rep, together
// with the size and row counts of the store before and after the run.
func (r *Runner) Run(ctx context.Context, rep *report.Report) error {
	db, err := dbutils.Open(ctx, r.opts.Dialect, r.opts.ConnectionString, 1)
	if err != nil {
		return err
	}
	defer db.Close()

	if rep.SizeBefore, rep.RowsBefore, err = snapshot(ctx, db, r.opts.Dialect); err != nil {
		return err
	}
	if err := r.protectProbes(ctx, db); err != nil {
		return err
	}

	for _, operation := range r.opts.Operations {
		group, err := r.runGroup(ctx, operation)
		if group != nil {
			rep.Groups = append(rep.Groups, group)
		}
		if err != nil {
			return err
		}
	}

	if rep.SizeAfter, rep.RowsAfter, err = snapshot(ctx, db, r.opts.Dialect); err != nil {
		return err
	}
	return nil
}

// protectProbes keeps DeleteOlympiad away from every olympiad that owns a probe row,
// so the reads find their rows for the whole run.
func (r *Runner) protectProbes(ctx context.Context, db *sql.DB) error {
	owners, err := dbutils.OwningOlympiads(ctx, db, r.opts.Dialect, r.opts.Probes.Rows())
	if err != nil {
		return fmt.Errorf("probe rows: %w", err)
	}
	r.opts.Targets.Protect(owners...)
	min, max := r.opts.Targets.Range()
	protected := r.opts.Targets.Protected()
	zlog.Info().Int64("min", min).Int64("max", max).Ints64("protected", protected).Msg("Write targets")
	covered := int64(0)
	for _, id := range protected {
		if id >= min && id <= max {
			covered++
		}
	}
	if covered == max-min+1 {
		zlog.Warn().Int64("min", min).Int64("max", max).Msg("Every delete target owns a probe row, deletes will find nothing")
	}
	return nil
}

func snapshot(ctx context.Context, db *sql.DB, d dbutils.Dialect) (int64, dbutils.RowCounts, error) {
	size, err := dbutils.DbSize(ctx, db, d)
	if err != nil {
		return 0, dbutils.RowCounts{}, err
	}
	rows, err := dbutils.Counts(ctx, db)
	if err != nil {
		return 0, dbutils.RowCounts{}, err
	}
	return size, rows, nil
}

// runGroup measures one operation for every adapter and ranks the results.
func (r *Runner) runGroup(ctx context.Context, operation string) (*report.Group, error) {
	group := &report.Group{Operation: operation}
	for _, a := range r.adapters {
		if err := ctx.Err(); err != nil {
			return group, err
		}
		res, supported := r.runPair(ctx, a, operation)
		if !supported {
			group.Skipped = append(group.Skipped, a.Name)
			continue
		}
		group.Entries = append(group.Entries, &stats.Entry{
			Adapter: a.Name,
			Summary: stats.Summarize(res.Measured.Rts, res.Measured.AbortCount, r.opts.RemoveOutliers),
		})
	}
	group.Baseline = stats.Rank(group.Entries, r.opts.Baseline)
	logGroup(group)
	return group, nil
}

// runPair builds a fresh adapter, measures one operation and closes the adapter.
// It returns false when the adapter does not implement the operation.
func (r *Runner) runPair(ctx context.Context, a Adapter, operation string) (*worker.BenchmarkResults, bool) {
	start := time.Now()
	op, err := a.Factory(ctx, engine.Options{
		Dialect:          r.opts.Dialect,
		ConnectionString: r.opts.ConnectionString,
		MaxOpenConns:     r.opts.MaxOpenConns,
		Targets:          r.opts.Targets,
	})
	if err != nil {
		zlog.Error().Err(err).Str("adapter", a.Name).Str("operation", operation).Msg("Adapter setup failed")
		return worker.Failed(a.Name, operation, r.opts.Iterations, err), true
	}
	defer func() {
		if err := op.Close(); err != nil {
			zlog.Warn().Err(err).Str("adapter", a.Name).Msg("Adapter close failed")
		}
	}()
	zlog.Debug().Str("adapter", a.Name).Str("operation", operation).Dur("setup", time.Since(start)).Msg("Adapter ready")

	fn, ok := engine.Prepare(op, r.opts.Probes)[operation]
	if !ok {
		zlog.Info().Str("adapter", a.Name).Str("operation", operation).Msg("Not supported, skipped")
		return nil, false
	}

	w := worker.NewWorker(a.Name, operation, r.opts.Warmup, r.opts.Iterations, r.opts.Timeout, fn)
	res := w.Run(ctx)
	if res.Measured.AbortCount > 0 {
		zlog.Warn().Str("adapter", a.Name).Str("operation", operation).
			Int("failed", res.Measured.AbortCount).Err(res.Measured.LastError).Msg("Iterations failed")
	}
	return res, true
}

func logGroup(g *report.Group) {
	zlog.Info().Str("operation", g.Operation).Str("baseline", g.Baseline).
		Strs("skipped", g.Skipped).Msg("Group done")
	for _, e := range g.Entries {
		zlog.Info().Str("operation", g.Operation).Str("adapter", e.Adapter).
			Int("rank", e.Rank).
			Float64("mean_ms", util.Millis(e.Summary.Mean)).
			Float64("error_ms", util.Millis(e.Summary.Error)).
			Float64("ratio", e.Ratio).
			Int("n", e.Summary.N).
			Int("failed", e.Summary.Failed).
			Msg("Result")
	}
}
