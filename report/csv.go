package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CsvHeader lists the columns of the csv export. Times are in seconds.
var CsvHeader = []string{
	"runId", "dialect", "operation", "adapter", "warmup", "iterations",
	"n", "failed", "outliers", "mean", "error", "stdDev", "stdErr", "min", "max", "median", "p95",
	"opsPerSec", "rank", "ratio",
}

// CSVSink prints every row prefixed with "Csv:" so the lines can be grepped out of
// the console output. When Dir is set, the rows are also written to <runID>.csv.
type CSVSink struct {
	Out io.Writer
	Dir string
}

func (s *CSVSink) Name() string {
	return "csv"
}

func (s *CSVSink) Write(_ context.Context, r *Report) error {
	data, err := EncodeCSV(r)
	if err != nil {
		return err
	}

	lines := strings.Builder{}
	for _, line := range strings.SplitAfter(string(data), "\n") {
		if line != "" {
			lines.WriteString("Csv:" + line)
		}
	}
	if _, err := io.WriteString(s.Out, lines.String()); err != nil {
		return err
	}

	if s.Dir == "" {
		return nil
	}
	return writeFile(Path(s.Dir, r.RunID, "csv"), data)
}

// EncodeCSV returns the header and one row per measured or failed pair.
func EncodeCSV(r *Report) ([]byte, error) {
	buf := bytes.Buffer{}
	w := csv.NewWriter(&buf)
	if err := w.Write(CsvHeader); err != nil {
		return nil, err
	}
	for _, g := range r.Groups {
		for _, e := range g.Entries {
			s := e.Summary
			row := []string{
				r.RunID,
				r.Settings.Dialect,
				g.Operation,
				e.Adapter,
				strconv.Itoa(r.Settings.Warmup),
				strconv.Itoa(r.Settings.Iterations),
				strconv.Itoa(s.N),
				strconv.Itoa(s.Failed),
				strconv.Itoa(s.Outliers),
				seconds(s.Mean),
				seconds(s.Error),
				seconds(s.StdDev),
				seconds(s.StdErr),
				seconds(s.Min),
				seconds(s.Max),
				seconds(s.Median),
				seconds(s.P95),
				fmt.Sprintf("%.3f", s.OpsPerSec),
				strconv.Itoa(e.Rank),
				fmt.Sprintf("%.4f", e.Ratio),
			}
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

func seconds(v float64) string {
	return fmt.Sprintf("%.6f", v)
}
