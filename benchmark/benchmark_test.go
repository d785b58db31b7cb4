package benchmark

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engine "ormbench/benchmark/engines/abstract"
	"ormbench/benchmark/engines/enginetest"
	"ormbench/benchmark/engines/sqldriver"
	"ormbench/dbUtils"
	"ormbench/report"
)

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{"sql", "sqlx", "gorm", "gorm-notrack", "gorm-raw"}, r.Names(dbutils.SQLite))
	assert.Equal(t, []string{"sql", "sqlx", "gorm", "gorm-notrack", "gorm-raw", "pgx"}, r.Names(dbutils.Postgres))

	adapters, err := r.Resolve([]string{"gorm-raw", "SQL"}, dbutils.SQLite)
	require.NoError(t, err)
	require.Len(t, adapters, 2)
	assert.Equal(t, "gorm-raw", adapters[0].Name)
	assert.Equal(t, "sql", adapters[1].Name)

	_, err = r.Resolve([]string{"ent"}, dbutils.Postgres)
	assert.ErrorIs(t, err, engine.ErrUnknownAdapter)

	_, err = r.Resolve([]string{"pgx"}, dbutils.SQLite)
	assert.ErrorContains(t, err, "adapter pgx does not support sqlite")
}

func TestRegisterReplaces(t *testing.T) {
	r := DefaultRegistry()
	r.Register(Adapter{Name: "sql", Dialects: []dbutils.Dialect{dbutils.Postgres}})
	assert.Equal(t, []string{"sqlx", "gorm", "gorm-notrack", "gorm-raw"}, r.Names(dbutils.SQLite))
}

func runnerOptions(store *enginetest.Store) Options {
	return Options{
		Dialect:          store.Dialect,
		ConnectionString: store.ConnectionString,
		Warmup:           1,
		Iterations:       3,
		Timeout:          10 * time.Second,
		RemoveOutliers:   true,
		Baseline:         "sql",
		MaxOpenConns:     2,
		Probes:           engine.DefaultProbes(),
		Targets:          engine.NewPicker(rand.New(rand.NewSource(1)), 2, 3, engine.DefaultProbes().OlympiadID),
	}
}

func TestNewRunner(t *testing.T) {
	store := enginetest.NewSQLiteStore(t)
	opts := runnerOptions(store)

	r, err := NewRunner(DefaultRegistry(), opts)
	require.NoError(t, err)
	assert.Equal(t, engine.Operations, r.Operations())
	assert.Len(t, r.Adapters(), 5)

	opts.Operations = []string{"GetCoaches"}
	_, err = NewRunner(DefaultRegistry(), opts)
	assert.ErrorContains(t, err, `unknown operation "GetCoaches"`)

	opts = runnerOptions(store)
	opts.Targets = nil
	_, err = NewRunner(DefaultRegistry(), opts)
	assert.Error(t, err)
}

func TestRunAllAdapters(t *testing.T) {
	store := enginetest.NewSQLiteStore(t)
	r, err := NewRunner(DefaultRegistry(), runnerOptions(store))
	require.NoError(t, err)

	rep := &report.Report{}
	require.NoError(t, r.Run(context.Background(), rep))

	require.Len(t, rep.Groups, len(engine.Operations))
	for i, g := range rep.Groups {
		assert.Equal(t, engine.Operations[i], g.Operation)
		assert.Equal(t, "sql", g.Baseline)
		assert.Empty(t, g.Skipped)
		require.Len(t, g.Entries, 5)
		ranks := map[int]bool{}
		for _, e := range g.Entries {
			assert.Zero(t, e.Summary.Failed, "%s %s", g.Operation, e.Adapter)
			assert.Equal(t, 3, e.Summary.N+e.Summary.Outliers)
			assert.GreaterOrEqual(t, e.Rank, 1)
			ranks[e.Rank] = true
		}
		assert.True(t, ranks[1])
	}

	c := enginetest.DefaultCounts
	assert.EqualValues(t, c.Olympiads, rep.RowsBefore.Olympics)
	assert.EqualValues(t, c.Olympiads*c.SportsPerOlympiad*c.TeamsPerSport*c.PlayersPerTeam, rep.RowsBefore.Players)
	// 5 adapters create 4 olympiads each (warm-up included), delete can only remove 2 and 3
	assert.GreaterOrEqual(t, rep.RowsAfter.Olympics, rep.RowsBefore.Olympics+20-2)
	assert.LessOrEqual(t, rep.RowsAfter.Olympics, rep.RowsBefore.Olympics+20)
	assert.Positive(t, rep.SizeBefore)
	assert.Positive(t, rep.SizeAfter)
}

type optOut struct {
	engine.Operation
}

func (optOut) Unsupported() []string {
	return []string{engine.OpDeleteOlympiad}
}

func TestRunRecordsFailuresAndSkips(t *testing.T) {
	store := enginetest.NewSQLiteStore(t)
	registry := &Registry{}
	registry.Register(Adapter{Name: "sql", Factory: sqldriver.New, Dialects: []dbutils.Dialect{dbutils.SQLite}})
	registry.Register(Adapter{
		Name: "broken",
		Factory: func(context.Context, engine.Options) (engine.Operation, error) {
			return nil, errors.New("connection refused")
		},
		Dialects: []dbutils.Dialect{dbutils.SQLite},
	})
	registry.Register(Adapter{
		Name: "partial",
		Factory: func(ctx context.Context, opts engine.Options) (engine.Operation, error) {
			op, err := sqldriver.New(ctx, opts)
			if err != nil {
				return nil, err
			}
			return optOut{op}, nil
		},
		Dialects: []dbutils.Dialect{dbutils.SQLite},
	})

	opts := runnerOptions(store)
	opts.Operations = []string{engine.OpGetPlayerByID, engine.OpDeleteOlympiad}
	opts.Baseline = "broken"
	r, err := NewRunner(registry, opts)
	require.NoError(t, err)

	rep := &report.Report{}
	require.NoError(t, r.Run(context.Background(), rep))
	require.Len(t, rep.Groups, 2)

	reads := rep.Group(engine.OpGetPlayerByID)
	require.Len(t, reads.Entries, 3)
	// the configured baseline was not measured, the first measured adapter stands in
	assert.Equal(t, "sql", reads.Baseline)
	broken := reads.Entries[1]
	assert.Equal(t, "broken", broken.Adapter)
	assert.False(t, broken.Summary.Measured())
	assert.Equal(t, 3, broken.Summary.Failed)
	assert.Zero(t, broken.Rank)

	deletes := rep.Group(engine.OpDeleteOlympiad)
	assert.Equal(t, []string{"partial"}, deletes.Skipped)
	assert.Len(t, deletes.Entries, 2)
}

func TestRunProtectsOwnersOfReadRows(t *testing.T) {
	store := enginetest.NewSQLiteStore(t)
	c := enginetest.DefaultCounts
	// first team of the second olympiad
	readTeam := int64(c.SportsPerOlympiad*c.TeamsPerSport + 1)

	opts := runnerOptions(store)
	opts.Adapters = []string{"sql"}
	opts.Operations = []string{engine.OpDeleteOlympiad, engine.OpGetPlayersForTeam}
	opts.Probes.TeamID = readTeam
	r, err := NewRunner(DefaultRegistry(), opts)
	require.NoError(t, err)

	rep := &report.Report{}
	require.NoError(t, r.Run(context.Background(), rep))
	assert.Equal(t, []int64{1, 2}, opts.Targets.Protected())

	var players int
	require.NoError(t, store.DB.Get(&players, store.DB.Rebind("select count(*) from players where team_id = ?"), readTeam))
	assert.Equal(t, c.PlayersPerTeam, players)
	size, err := dbutils.OlympiadSize(context.Background(), store.DB.DB, store.Dialect, 3)
	require.NoError(t, err)
	assert.Zero(t, size.Olympics, "the only unprotected target is deleted")
	assert.Zero(t, rep.Group(engine.OpDeleteOlympiad).Entries[0].Summary.Failed)
}

func TestRunRejectsMissingReadRow(t *testing.T) {
	store := enginetest.NewSQLiteStore(t)
	opts := runnerOptions(store)
	opts.Probes.PlayerID = 1_000_000
	r, err := NewRunner(DefaultRegistry(), opts)
	require.NoError(t, err)
	assert.ErrorContains(t, r.Run(context.Background(), &report.Report{}), "players 1000000 does not exist")
}

func TestRunCancelled(t *testing.T) {
	store := enginetest.NewSQLiteStore(t)
	r, err := NewRunner(DefaultRegistry(), runnerOptions(store))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Run(ctx, &report.Report{}), context.Canceled)
}

func TestRunPostgres(t *testing.T) {
	store := enginetest.NewPostgresStore(t)
	r, err := NewRunner(DefaultRegistry(), runnerOptions(store))
	require.NoError(t, err)
	require.Len(t, r.Adapters(), 6)

	rep := &report.Report{}
	require.NoError(t, r.Run(context.Background(), rep))
	for _, g := range rep.Groups {
		require.Len(t, g.Entries, 6)
		for _, e := range g.Entries {
			assert.Zero(t, e.Summary.Failed, "%s %s", g.Operation, e.Adapter)
		}
	}
}
