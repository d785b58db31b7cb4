package dbutils

import (
	"context"
	"database/sql"
	"fmt"
)

// Tables lists the schema tables parents first.
var Tables = []string{"olympics", "sports", "teams", "players"}

var postgresSchema = []string{
	`create table if not exists olympics (
		id serial primary key,
		city text not null default '',
		start timestamp not null,
		"end" timestamp not null
	)`,
	`create table if not exists sports (
		id serial primary key,
		name text not null default '',
		olympiad_id integer not null references olympics(id) on delete cascade
	)`,
	`create table if not exists teams (
		id serial primary key,
		name text not null default '',
		foundation timestamp not null,
		sport_id integer not null references sports(id) on delete cascade
	)`,
	`create table if not exists players (
		id serial primary key,
		first_name text not null default '',
		last_name text not null default '',
		birthday timestamp not null,
		team_id integer not null references teams(id) on delete cascade
	)`,
}

var sqliteSchema = []string{
	`create table if not exists olympics (
		id integer primary key autoincrement,
		city text not null default '',
		start timestamp not null,
		"end" timestamp not null
	)`,
	`create table if not exists sports (
		id integer primary key autoincrement,
		name text not null default '',
		olympiad_id integer not null references olympics(id) on delete cascade
	)`,
	`create table if not exists teams (
		id integer primary key autoincrement,
		name text not null default '',
		foundation timestamp not null,
		sport_id integer not null references sports(id) on delete cascade
	)`,
	`create table if not exists players (
		id integer primary key autoincrement,
		first_name text not null default '',
		last_name text not null default '',
		birthday timestamp not null,
		team_id integer not null references teams(id) on delete cascade
	)`,
}

// the foreign keys are the join and filter columns of every read operation
var indexes = []string{
	"create index if not exists sports_olympiad_id_idx on sports(olympiad_id)",
	"create index if not exists teams_sport_id_idx on teams(sport_id)",
	"create index if not exists players_team_id_idx on players(team_id)",
}

// Schema returns the DDL statements for the dialect, in execution order.
func (d Dialect) Schema() []string {
	var stmts []string
	if d == SQLite {
		stmts = append(stmts, sqliteSchema...)
	} else {
		stmts = append(stmts, postgresSchema...)
	}
	return append(stmts, indexes...)
}

// CreateSchema creates the four tables and their indexes if they do not exist.
func CreateSchema(ctx context.Context, db *sql.DB, d Dialect) error {
	for _, stmt := range d.Schema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

// DropSchema drops the four tables, children first.
func DropSchema(ctx context.Context, db *sql.DB) error {
	for i := len(Tables) - 1; i >= 0; i-- {
		if _, err := db.ExecContext(ctx, "drop table if exists "+Tables[i]); err != nil {
			return fmt.Errorf("drop %s: %w", Tables[i], err)
		}
	}
	return nil
}

// SchemaExists reports whether the olympics table is present.
func SchemaExists(ctx context.Context, db *sql.DB, d Dialect) (bool, error) {
	var query string
	if d == SQLite {
		query = "select count(*) from sqlite_master where type = 'table' and name = 'olympics'"
	} else {
		query = "select count(*) from information_schema.tables where table_schema = current_schema() and table_name = 'olympics'"
	}
	var n int
	if err := db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return false, fmt.Errorf("check schema: %w", err)
	}
	return n > 0, nil
}

func validTable(table string) bool {
	for _, t := range Tables {
		if t == table {
			return true
		}
	}
	return false
}
