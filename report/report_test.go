package report

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ormbench/dbUtils"
	"ormbench/generator"
	"ormbench/stats"
)

func sampleReport() *Report {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	reads := &Group{
		Operation: "GetPlayerById",
		Entries: []*stats.Entry{
			{Adapter: "sql", Summary: stats.Summarize([]float64{0.001, 0.001, 0.001}, 0, false)},
			{Adapter: "gorm", Summary: stats.Summarize([]float64{0.002, 0.002}, 1, false)},
			{Adapter: "pgx", Summary: stats.Summarize(nil, 3, false)},
		},
	}
	reads.Baseline = stats.Rank(reads.Entries, "sql")
	deletes := &Group{
		Operation: "DeleteOlympiad",
		Entries: []*stats.Entry{
			{Adapter: "sql", Summary: stats.Summarize([]float64{0.01, 0.03}, 0, false)},
		},
		Skipped: []string{"pgx"},
	}
	deletes.Baseline = stats.Rank(deletes.Entries, "sql")

	return &Report{
		RunID:      "run-1",
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Settings: Settings{
			Dialect:        "sqlite",
			Adapters:       []string{"sql", "gorm", "pgx"},
			Operations:     []string{"GetPlayerById", "DeleteOlympiad"},
			Warmup:         1,
			Iterations:     3,
			Timeout:        30 * time.Second,
			RemoveOutliers: true,
			Baseline:       "sql",
			Counts:         generator.Counts{Olympiads: 2, SportsPerOlympiad: 2, TeamsPerSport: 2, PlayersPerTeam: 2},
			RandomSeed:     42,
		},
		Seeding: Seeding{
			Rows:      dbutils.RowCounts{Olympics: 2, Sports: 4, Teams: 8, Players: 16},
			Generated: time.Millisecond,
			Stored:    5 * time.Millisecond,
		},
		SizeBefore: 4096,
		SizeAfter:  8192,
		RowsBefore: dbutils.RowCounts{Olympics: 2, Sports: 4, Teams: 8, Players: 16},
		RowsAfter:  dbutils.RowCounts{Olympics: 1, Sports: 2, Teams: 4, Players: 8},
		Groups:     []*Group{reads, deletes},
	}
}

type fakeSink struct {
	name  string
	err   error
	calls atomic.Int32
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Write(context.Context, *Report) error {
	f.calls.Add(1)
	return f.err
}

func TestPublish(t *testing.T) {
	ok := &fakeSink{name: "ok"}
	broken := &fakeSink{name: "broken", err: errors.New("disk full")}
	other := &fakeSink{name: "other"}

	err := Publish(context.Background(), sampleReport(), []Sink{ok, broken, other})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken report: disk full")
	for _, s := range []*fakeSink{ok, broken, other} {
		assert.EqualValues(t, 1, s.calls.Load(), s.name)
	}

	assert.NoError(t, Publish(context.Background(), sampleReport(), []Sink{ok}))
}

func TestNew(t *testing.T) {
	sinks, err := New(context.Background(), []string{"table", "CSV", "json", "yaml", "prometheus"}, Options{Out: &bytes.Buffer{}, Dir: t.TempDir()})
	require.NoError(t, err)
	names := []string{}
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"table", "csv", "json", "yaml", "prometheus"}, names)

	_, err = New(context.Background(), []string{"html"}, Options{Out: &bytes.Buffer{}})
	assert.ErrorContains(t, err, `unknown report format "html"`)

	_, err = New(context.Background(), []string{"s3"}, Options{Out: &bytes.Buffer{}})
	assert.ErrorContains(t, err, "s3 bucket required")
}

func TestFileExportsLoadBack(t *testing.T) {
	dir := t.TempDir()
	r := sampleReport()
	for _, f := range []Format{JSON, YAML} {
		require.NoError(t, (&FileSink{Dir: dir, Format: f}).Write(context.Background(), r))

		loaded, err := Load(Path(dir, r.RunID, string(f)))
		require.NoError(t, err)
		if diff := cmp.Diff(r, loaded); diff != "" {
			t.Errorf("%s export mismatch (-want +got):\n%s", f, diff)
		}
	}

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))
	_, err = Load(filepath.Join(dir, "broken.json"))
	assert.ErrorContains(t, err, "decode report")
}

func TestSyncWriterKeepsWritesWhole(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewSyncWriter(buf)
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			_, _ = w.Write([]byte("0123456789\n"))
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	assert.Len(t, lines, 10)
	for _, l := range lines {
		assert.Equal(t, "0123456789", string(l))
	}
}
