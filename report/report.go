// Package report renders and exports the results of a benchmark run.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"ormbench/dbUtils"
	"ormbench/generator"
	"ormbench/stats"
)

// Settings are the parameters a run was measured with.
type Settings struct {
	Dialect        string           `json:"dialect" yaml:"dialect"`
	Adapters       []string         `json:"adapters" yaml:"adapters"`
	Operations     []string         `json:"operations" yaml:"operations"`
	Warmup         int              `json:"warmup" yaml:"warmup"`
	Iterations     int              `json:"iterations" yaml:"iterations"`
	Timeout        time.Duration    `json:"timeout" yaml:"timeout"`
	RemoveOutliers bool             `json:"removeOutliers" yaml:"removeOutliers"`
	Baseline       string           `json:"baseline" yaml:"baseline"`
	Counts         generator.Counts `json:"counts" yaml:"counts"`
	RandomSeed     int64            `json:"randomSeed" yaml:"randomSeed"`
}

// Seeding describes what the generator did before the run.
type Seeding struct {
	Skipped   bool              `json:"skipped" yaml:"skipped"`
	Rows      dbutils.RowCounts `json:"rows" yaml:"rows"`
	Generated time.Duration     `json:"generated" yaml:"generated"`
	Stored    time.Duration     `json:"stored" yaml:"stored"`
}

// Group holds every adapter measured for one operation.
type Group struct {
	Operation string `json:"operation" yaml:"operation"`
	// adapter the ratios are relative to; empty when nothing was measured
	Baseline string         `json:"baseline" yaml:"baseline"`
	Entries  []*stats.Entry `json:"entries" yaml:"entries"`
	// adapters that do not implement the operation
	Skipped []string `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Report is the outcome of one run.
type Report struct {
	RunID      string            `json:"runId" yaml:"runId"`
	StartedAt  time.Time         `json:"startedAt" yaml:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt" yaml:"finishedAt"`
	Settings   Settings          `json:"settings" yaml:"settings"`
	Seeding    Seeding           `json:"seeding" yaml:"seeding"`
	SizeBefore int64             `json:"sizeBefore" yaml:"sizeBefore"`
	SizeAfter  int64             `json:"sizeAfter" yaml:"sizeAfter"`
	RowsBefore dbutils.RowCounts `json:"rowsBefore" yaml:"rowsBefore"`
	RowsAfter  dbutils.RowCounts `json:"rowsAfter" yaml:"rowsAfter"`
	Groups     []*Group          `json:"groups" yaml:"groups"`
}

// Group returns the group of an operation, or nil.
func (r *Report) Group(operation string) *Group {
	for _, g := range r.Groups {
		if g.Operation == operation {
			return g
		}
	}
	return nil
}

// Sink consumes a finished report.
type Sink interface {
	Name() string
	Write(ctx context.Context, r *Report) error
}

// Publish hands the report to every sink concurrently and returns the first error.
// Every sink runs to completion even when another one fails.
func Publish(ctx context.Context, r *Report, sinks []Sink) error {
	g := errgroup.Group{}
	for _, s := range sinks {
		g.Go(func() error {
			start := time.Now()
			if err := s.Write(ctx, r); err != nil {
				zlog.Error().Err(err).Str("sink", s.Name()).Msg("Report failed")
				return fmt.Errorf("%s report: %w", s.Name(), err)
			}
			zlog.Debug().Str("sink", s.Name()).Dur("took", time.Since(start)).Msg("Report written")
			return nil
		})
	}
	return g.Wait()
}

// SyncWriter serializes writes of sinks sharing one output. Each sink renders its
// whole output and writes it at once, so outputs never interleave.
type SyncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewSyncWriter(w io.Writer) *SyncWriter {
	return &SyncWriter{w: w}
}

func (s *SyncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Formats lists the names accepted by New.
var Formats = []string{"table", "csv", "json", "yaml", "prometheus", "s3"}

// Options configure the sinks built by New.
type Options struct {
	Out io.Writer
	Dir string
	S3  S3Config
}

// New builds the sinks of the given formats. Console sinks share Out.
func New(ctx context.Context, formats []string, opts Options) ([]Sink, error) {
	out := NewSyncWriter(opts.Out)
	sinks := []Sink{}
	for _, f := range formats {
		switch strings.ToLower(f) {
		case "table":
			sinks = append(sinks, &TableSink{Out: out})
		case "csv":
			sinks = append(sinks, &CSVSink{Out: out, Dir: opts.Dir})
		case "json":
			sinks = append(sinks, &FileSink{Dir: opts.Dir, Format: JSON})
		case "yaml":
			sinks = append(sinks, &FileSink{Dir: opts.Dir, Format: YAML})
		case "prometheus":
			sinks = append(sinks, &PrometheusSink{Dir: opts.Dir})
		case "s3":
			s, err := NewS3Sink(ctx, opts.S3)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, s)
		default:
			return nil, fmt.Errorf("unknown report format %q", f)
		}
	}
	return sinks, nil
}

// Load reads a report exported as JSON or YAML.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	r := &Report{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, r)
	default:
		err = json.Unmarshal(data, r)
	}
	if err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}
	return r, nil
}
