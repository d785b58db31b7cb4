// Package sqldriver runs the operations with plain database/sql: prepared statements,
// hand written queries and manual row scanning.
package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	engine "ormbench/benchmark/engines/abstract"
	"ormbench/dbUtils"
)

const Name = "sql"

const (
	playerColumns = "p.id, p.first_name, p.last_name, p.birthday, p.team_id"
	teamColumns   = "t.id, t.name, t.foundation, t.sport_id"
	sportColumns  = "s.id, s.name, s.olympiad_id"
)

var queries = map[string]string{
	"playerByID":     "select " + playerColumns + " from players p where p.id = ?",
	"playersForTeam": "select " + playerColumns + " from players p where p.team_id = ? order by p.id",
	"teamsForSport":  "select " + teamColumns + " from teams t where t.sport_id = ? order by t.id",
	"playersForSport": `select ` + playerColumns + ` from players p
		inner join teams t on p.team_id = t.id
		where t.sport_id = ? order by p.id`,
	"playersForOlympiad": `select ` + playerColumns + ` from players p
		inner join teams t on p.team_id = t.id
		inner join sports s on t.sport_id = s.id
		where s.olympiad_id = ? order by p.id`,
	"olympiad":          `select id, city, start, "end" from olympics where id = ?`,
	"sportsForOlympiad": "select " + sportColumns + " from sports s where s.olympiad_id = ? order by s.id",
	"teamsForOlympiad": `select ` + teamColumns + ` from teams t
		inner join sports s on t.sport_id = s.id
		where s.olympiad_id = ? order by t.id`,
	"insertOlympiad": `insert into olympics (city, start, "end") values (?, ?, ?) returning id`,
	"insertSport":    "insert into sports (name, olympiad_id) values (?, ?) returning id",
	"insertTeam":     "insert into teams (name, foundation, sport_id) values (?, ?, ?) returning id",
	"insertPlayer":   "insert into players (first_name, last_name, birthday, team_id) values (?, ?, ?, ?) returning id",
	"updateOlympiad": `update olympics set city = ?, start = ?, "end" = ? where id = ?`,
	"deleteOlympiad": "delete from olympics where id = ?",
}

type Driver struct {
	db      *sql.DB
	targets *engine.Picker
	stmts   map[string]*sql.Stmt
}

func New(ctx context.Context, opts engine.Options) (engine.Operation, error) {
	db, err := dbutils.Open(ctx, opts.Dialect, opts.ConnectionString, opts.MaxOpenConns)
	if err != nil {
		return nil, err
	}

	d := &Driver{db: db, targets: opts.Targets, stmts: map[string]*sql.Stmt{}}
	for name, query := range queries {
		stmt, err := db.PrepareContext(ctx, opts.Dialect.Rebind(query))
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("prepare %s: %w", name, err)
		}
		d.stmts[name] = stmt
	}
	return d, nil
}

func (d *Driver) Name() string {
	return Name
}

func (d *Driver) Close() error {
	var errs []error
	for _, stmt := range d.stmts {
		errs = append(errs, stmt.Close())
	}
	errs = append(errs, d.db.Close())
	return errors.Join(errs...)
}

// stmt returns the prepared statement, bound to tx when there is one.
func (d *Driver) stmt(ctx context.Context, tx *sql.Tx, name string) *sql.Stmt {
	if tx == nil {
		return d.stmts[name]
	}
	return tx.StmtContext(ctx, d.stmts[name])
}
