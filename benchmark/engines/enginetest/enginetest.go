// Package enginetest holds the behaviour every operation adapter must show. Adapter
// packages call Run from their own tests with their factory.
package enginetest

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engine "ormbench/benchmark/engines/abstract"
	"ormbench/dbUtils"
	"ormbench/generator"
	"ormbench/model"
)

// DefaultCounts is small enough to seed in milliseconds and large enough to keep
// the probe olympiad away from the update and delete targets.
var DefaultCounts = generator.Counts{Olympiads: 3, SportsPerOlympiad: 2, TeamsPerSport: 3, PlayersPerTeam: 4}

// Store is a seeded database the suite runs against.
type Store struct {
	Dialect          dbutils.Dialect
	ConnectionString string
	Counts           generator.Counts
	DB               *sqlx.DB
}

// NewSQLiteStore seeds a fresh SQLite file inside the test's temp dir.
func NewSQLiteStore(t testing.TB) *Store {
	t.Helper()
	return NewStore(t, dbutils.SQLite, filepath.Join(t.TempDir(), "bench.db"))
}

// NewStore cleans and seeds the database behind conn with DefaultCounts.
func NewStore(t testing.TB, d dbutils.Dialect, conn string) *Store {
	t.Helper()
	ctx := context.Background()
	db, err := dbutils.Open(ctx, d, conn, 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	seeder := &generator.Seeder{
		DB:        db,
		Dialect:   d,
		Counts:    DefaultCounts,
		Generator: generator.New(rand.New(rand.NewSource(1))),
		Probes:    engine.DefaultProbes().Rows(),
	}
	_, err = seeder.Seed(ctx, true)
	require.NoError(t, err)

	return &Store{
		Dialect:          d,
		ConnectionString: conn,
		Counts:           DefaultCounts,
		DB:               sqlx.NewDb(db, d.DriverName()),
	}
}

// Options builds adapter options that target the given olympiad range.
func (s *Store) Options(min, max int64) engine.Options {
	return engine.Options{
		Dialect:          s.Dialect,
		ConnectionString: s.ConnectionString,
		MaxOpenConns:     2,
		Targets:          engine.NewPicker(rand.New(rand.NewSource(1)), min, max, engine.DefaultProbes().OlympiadID),
	}
}

func (s *Store) open(t *testing.T, factory engine.Factory, min, max int64) engine.Operation {
	t.Helper()
	op, err := factory(context.Background(), s.Options(min, max))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, op.Close()) })
	return op
}

func (s *Store) players(t *testing.T, query string, arg int64) []*model.Player {
	t.Helper()
	players := []*model.Player{}
	require.NoError(t, s.DB.Select(&players, s.DB.Rebind(query), arg))
	return players
}

func (s *Store) rows(t *testing.T, olympiadID int64) dbutils.RowCounts {
	t.Helper()
	c, err := dbutils.OlympiadSize(context.Background(), s.DB.DB, s.Dialect, olympiadID)
	require.NoError(t, err)
	return c
}

// flat compares entities without their navigation fields.
var flat = cmp.Options{
	cmpopts.IgnoreFields(model.Player{}, "Team"),
	cmpopts.IgnoreFields(model.Team{}, "Sport", "Players"),
	cmpopts.IgnoreFields(model.Sport{}, "Olympiad", "Teams"),
	cmpopts.IgnoreFields(model.Olympiad{}, "Sports"),
	cmpopts.SortSlices(func(a, b *model.Player) bool { return a.ID < b.ID }),
	cmpopts.SortSlices(func(a, b *model.Team) bool { return a.ID < b.ID }),
	cmpopts.EquateEmpty(),
}

// Run exercises every operation of the adapter built by factory against store.
// The read checks run first; the write checks change the data.
func Run(t *testing.T, store *Store, factory engine.Factory) {
	probes := engine.DefaultProbes()
	c := store.Counts
	ctx := context.Background()

	t.Run("GetPlayerByID", func(t *testing.T) {
		op := store.open(t, factory, 2, 2)
		p, err := op.GetPlayerByID(ctx, probes.PlayerID)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, probes.PlayerID, p.ID)

		want := store.players(t, "select * from players where id = ?", probes.PlayerID)
		require.Len(t, want, 1)
		assert.Empty(t, cmp.Diff(want[0], p, flat))

		p, err = op.GetPlayerByID(ctx, 1_000_000)
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("GetPlayersForTeam", func(t *testing.T) {
		op := store.open(t, factory, 2, 2)
		players, err := op.GetPlayersForTeam(ctx, probes.TeamID)
		require.NoError(t, err)
		assert.Len(t, players, c.PlayersPerTeam)
		want := store.players(t, "select * from players where team_id = ?", probes.TeamID)
		assert.Empty(t, cmp.Diff(want, players, flat))

		players, err = op.GetPlayersForTeam(ctx, 1_000_000)
		require.NoError(t, err)
		assert.Empty(t, players)
	})

	t.Run("GetTeamsForSport", func(t *testing.T) {
		op := store.open(t, factory, 2, 2)
		teams, err := op.GetTeamsForSport(ctx, probes.SportID)
		require.NoError(t, err)
		require.Len(t, teams, c.TeamsPerSport)
		for _, team := range teams {
			assert.Equal(t, probes.SportID, team.SportID)
			require.Len(t, team.Players, c.PlayersPerTeam, "team %d", team.ID)
			want := store.players(t, "select * from players where team_id = ?", team.ID)
			assert.Empty(t, cmp.Diff(want, team.Players, flat))
		}
	})

	t.Run("GetPlayersForOlympiad", func(t *testing.T) {
		op := store.open(t, factory, 2, 2)
		plain, err := op.GetPlayersForOlympiad(ctx, probes.OlympiadID)
		require.NoError(t, err)
		included, err := op.GetPlayersWithIncludeForOlympiad(ctx, probes.OlympiadID)
		require.NoError(t, err)

		perOlympiad := c.SportsPerOlympiad * c.TeamsPerSport * c.PlayersPerTeam
		assert.Len(t, plain, perOlympiad)
		assert.Equal(t, model.PlayerIDs(plain), model.PlayerIDs(included))
		assert.Empty(t, cmp.Diff(plain, included, flat))

		for _, p := range plain {
			assert.Nil(t, p.Team, "plain read must not load navigation")
		}
		for _, p := range included {
			require.NotNil(t, p.Team)
			assert.Equal(t, p.TeamID, p.Team.ID)
			require.NotNil(t, p.Team.Sport)
			assert.Equal(t, p.Team.SportID, p.Team.Sport.ID)
			require.NotNil(t, p.Team.Sport.Olympiad)
			assert.Equal(t, probes.OlympiadID, p.Team.Sport.Olympiad.ID)
		}

		plain, err = op.GetPlayersForOlympiad(ctx, 1_000_000)
		require.NoError(t, err)
		assert.Empty(t, plain)
		included, err = op.GetPlayersWithIncludeForOlympiad(ctx, 1_000_000)
		require.NoError(t, err)
		assert.Empty(t, included)
	})

	t.Run("CreateOlympiad", func(t *testing.T) {
		op := store.open(t, factory, 2, 2)
		before, err := dbutils.Counts(ctx, store.DB.DB)
		require.NoError(t, err)

		id, err := op.CreateOlympiad(ctx)
		require.NoError(t, err)
		assert.Greater(t, id, int64(c.Olympiads))

		after, err := dbutils.Counts(ctx, store.DB.DB)
		require.NoError(t, err)
		assert.Equal(t, dbutils.RowCounts{
			Olympics: before.Olympics + 1,
			Sports:   before.Sports + 1,
			Teams:    before.Teams + 1,
			Players:  before.Players + 1,
		}, after)
		assert.Equal(t, dbutils.RowCounts{Olympics: 1, Sports: 1, Teams: 1, Players: 1}, store.rows(t, id))

		var city string
		require.NoError(t, store.DB.Get(&city, store.DB.Rebind("select city from olympics where id = ?"), id))
		assert.Equal(t, model.PlaceholderOlympiad().City, city)
	})

	t.Run("UpdateOlympiad", func(t *testing.T) {
		op := store.open(t, factory, 2, 2)
		before := store.rows(t, 2)

		found, err := op.UpdateOlympiad(ctx)
		require.NoError(t, err)
		assert.True(t, found)

		after := store.rows(t, 2)
		assert.Equal(t, before.Sports+1, after.Sports)
		assert.Equal(t, before.Teams+1, after.Teams)
		assert.Equal(t, before.Players+1, after.Players)

		var start time.Time
		require.NoError(t, store.DB.Get(&start, store.DB.Rebind("select start from olympics where id = ?"), 2))
		assert.Equal(t, time.January, start.Month())
		assert.Equal(t, 1, start.Day())
		assert.GreaterOrEqual(t, start.Year(), 1980)
		assert.LessOrEqual(t, start.Year(), 2021)

		missing := store.open(t, factory, 1_000_000, 1_000_000)
		found, err = missing.UpdateOlympiad(ctx)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("DeleteOlympiad", func(t *testing.T) {
		op := store.open(t, factory, 3, 3)
		require.NotZero(t, store.rows(t, 3).Players)

		deleted, err := op.DeleteOlympiad(ctx)
		require.NoError(t, err)
		assert.True(t, deleted)
		assert.Equal(t, dbutils.RowCounts{}, store.rows(t, 3))

		players, err := op.GetPlayersForOlympiad(ctx, 3)
		require.NoError(t, err)
		assert.Empty(t, players)

		deleted, err = op.DeleteOlympiad(ctx)
		require.NoError(t, err)
		assert.False(t, deleted)

		// the probe olympiad is never a delete target
		protected := store.open(t, factory, probes.OlympiadID, probes.OlympiadID)
		deleted, err = protected.DeleteOlympiad(ctx)
		require.NoError(t, err)
		assert.False(t, deleted)
		assert.NotZero(t, store.rows(t, probes.OlympiadID).Players)
	})
}
