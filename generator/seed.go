package generator

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	zlog "github.com/rs/zerolog/log"

	"ormbench/dbUtils"
	"ormbench/model"
)

// Seeder fills an empty store with a generated dataset.
type Seeder struct {
	DB        *sql.DB
	Dialect   dbutils.Dialect
	Counts    Counts
	Generator *Generator
	// ids that must exist once seeding is done, keyed by table
	Probes map[string]int64
}

// SeedResult describes what a Seed call did.
type SeedResult struct {
	Skipped   bool
	Rows      dbutils.RowCounts
	Generated time.Duration
	Stored    time.Duration
}

func (s *Seeder) log(msg string) {
	zlog.Info().Str("component", "seed").Str("dialect", s.Dialect.String()).Msg(msg)
}

// Seed makes sure the schema exists and holds data. With clean, the tables are dropped
// and recreated first. A store that already has olympics is left untouched.
func (s *Seeder) Seed(ctx context.Context, clean bool) (*SeedResult, error) {
	if clean {
		if err := dbutils.DropSchema(ctx, s.DB); err != nil {
			return nil, fmt.Errorf("clean database: %w", err)
		}
		s.log("Database is deleted")
	}
	exists, err := dbutils.SchemaExists(ctx, s.DB, s.Dialect)
	if err != nil {
		return nil, err
	}
	if err := dbutils.CreateSchema(ctx, s.DB, s.Dialect); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if !exists {
		s.log("Schema created")
	}

	rows, err := dbutils.Counts(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	result := &SeedResult{Rows: rows}
	if rows.Olympics > 0 {
		result.Skipped = true
		zlog.Info().Str("component", "seed").Int64("olympics", rows.Olympics).Int64("players", rows.Players).
			Msg("Database already populated, skipping generation")
	} else {
		if err := s.populate(ctx, result); err != nil {
			return nil, err
		}
	}

	if err := s.verifyProbes(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Seeder) populate(ctx context.Context, result *SeedResult) error {
	start := time.Now()
	olympics := s.Generator.Dataset(s.Counts)
	result.Generated = time.Since(start)
	want := s.Counts.Rows()
	zlog.Info().Str("component", "seed").
		Int64("olympics", want.Olympics).
		Int64("sports", want.Sports).
		Int64("teams", want.Teams).
		Int64("players", want.Players).
		Dur("elapsed", result.Generated).
		Msg("Generated")

	start = time.Now()
	if err := Store(ctx, s.DB, s.Dialect, olympics); err != nil {
		return err
	}
	if err := dbutils.Vacuum(ctx, s.DB, s.Dialect); err != nil {
		return err
	}
	result.Stored = time.Since(start)

	rows, err := dbutils.Counts(ctx, s.DB)
	if err != nil {
		return err
	}
	result.Rows = rows
	zlog.Info().Str("component", "seed").Dur("elapsed", result.Stored).Msg("Data stored in db")
	return nil
}

func (s *Seeder) verifyProbes(ctx context.Context) error {
	if len(s.Probes) == 0 {
		return nil
	}
	missing, err := dbutils.MissingRows(ctx, s.DB, s.Dialect, s.Probes)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("probe rows missing after seeding in: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Store persists the trees level by level in a single transaction, assigning the
// generated ids back into the entities.
func Store(ctx context.Context, db *sql.DB, d dbutils.Dialect, olympics []*model.Olympiad) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var sports []*model.Sport
	err = insertEach(ctx, tx, d, `insert into olympics (city, start, "end") values (?, ?, ?) returning id`,
		len(olympics), func(i int) []any {
			o := olympics[i]
			sports = append(sports, o.Sports...)
			return []any{o.City, o.Start, o.End}
		}, func(i int, id int64) { olympics[i].SetID(id) })
	if err != nil {
		return fmt.Errorf("insert olympics: %w", err)
	}

	var teams []*model.Team
	err = insertEach(ctx, tx, d, "insert into sports (name, olympiad_id) values (?, ?) returning id",
		len(sports), func(i int) []any {
			sp := sports[i]
			teams = append(teams, sp.Teams...)
			return []any{sp.Name, sp.OlympiadID}
		}, func(i int, id int64) { sports[i].SetID(id) })
	if err != nil {
		return fmt.Errorf("insert sports: %w", err)
	}

	var players []*model.Player
	err = insertEach(ctx, tx, d, "insert into teams (name, foundation, sport_id) values (?, ?, ?) returning id",
		len(teams), func(i int) []any {
			t := teams[i]
			players = append(players, t.Players...)
			return []any{t.Name, t.Foundation, t.SportID}
		}, func(i int, id int64) { teams[i].SetID(id) })
	if err != nil {
		return fmt.Errorf("insert teams: %w", err)
	}

	if d == dbutils.Postgres {
		err = copyPlayers(ctx, tx, players)
	} else {
		err = insertEach(ctx, tx, d, "insert into players (first_name, last_name, birthday, team_id) values (?, ?, ?, ?) returning id",
			len(players), func(i int) []any {
				p := players[i]
				return []any{p.FirstName, p.LastName, p.Birthday, p.TeamID}
			}, func(i int, id int64) { players[i].ID = id })
	}
	if err != nil {
		return fmt.Errorf("insert players: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

func insertEach(ctx context.Context, tx *sql.Tx, d dbutils.Dialect, query string, n int,
	args func(i int) []any, assign func(i int, id int64)) error {
	stmt, err := tx.PrepareContext(ctx, d.Rebind(query))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		var id int64
		if err := stmt.QueryRowContext(ctx, args(i)...).Scan(&id); err != nil {
			return err
		}
		assign(i, id)
	}
	return nil
}

// copyPlayers streams the players with COPY. Their ids are not read back.
func copyPlayers(ctx context.Context, tx *sql.Tx, players []*model.Player) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("players", "first_name", "last_name", "birthday", "team_id"))
	if err != nil {
		return err
	}
	for _, p := range players {
		if _, err := stmt.ExecContext(ctx, p.FirstName, p.LastName, p.Birthday, p.TeamID); err != nil {
			_ = stmt.Close()
			return err
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return err
	}
	return stmt.Close()
}
