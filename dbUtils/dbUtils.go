package dbutils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
)

// RowCounts holds the number of rows of each table.
type RowCounts struct {
	Olympics int64 `json:"olympics" yaml:"olympics"`
	Sports   int64 `json:"sports" yaml:"sports"`
	Teams    int64 `json:"teams" yaml:"teams"`
	Players  int64 `json:"players" yaml:"players"`
}

// Open opens a pool for the dialect and checks that the store is reachable.
func Open(ctx context.Context, d Dialect, conn string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open(d.DriverName(), d.DSN(conn))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d, err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		// the number of idle connections should be the same as the number of open connections,
		// otherwise connections are constantly closed and reopened between calls and the
		// connection setup ends up inside the measured time.
		db.SetMaxIdleConns(maxConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d, err)
	}
	return db, nil
}

// Counts returns the row count of every table.
func Counts(ctx context.Context, db *sql.DB) (RowCounts, error) {
	var c RowCounts
	targets := map[string]*int64{
		"olympics": &c.Olympics,
		"sports":   &c.Sports,
		"teams":    &c.Teams,
		"players":  &c.Players,
	}
	for _, table := range Tables {
		if err := db.QueryRowContext(ctx, "select count(*) from "+table).Scan(targets[table]); err != nil {
			return RowCounts{}, fmt.Errorf("count %s: %w", table, err)
		}
	}
	return c, nil
}

// OlympiadSize counts the sports, teams and players stored below one olympiad.
func OlympiadSize(ctx context.Context, db *sql.DB, d Dialect, olympiadID int64) (RowCounts, error) {
	c := RowCounts{}
	err := db.QueryRowContext(ctx, d.Rebind("select count(*) from olympics where id = ?"), olympiadID).Scan(&c.Olympics)
	if err != nil {
		return c, fmt.Errorf("count olympiad: %w", err)
	}
	err = db.QueryRowContext(ctx, d.Rebind("select count(*) from sports where olympiad_id = ?"), olympiadID).Scan(&c.Sports)
	if err != nil {
		return c, fmt.Errorf("count sports: %w", err)
	}
	err = db.QueryRowContext(ctx, d.Rebind(`
		select count(*) from teams t
		inner join sports s on t.sport_id = s.id
		where s.olympiad_id = ?`), olympiadID).Scan(&c.Teams)
	if err != nil {
		return c, fmt.Errorf("count teams: %w", err)
	}
	err = db.QueryRowContext(ctx, d.Rebind(`
		select count(*) from players p
		inner join teams t on p.team_id = t.id
		inner join sports s on t.sport_id = s.id
		where s.olympiad_id = ?`), olympiadID).Scan(&c.Players)
	if err != nil {
		return c, fmt.Errorf("count players: %w", err)
	}
	return c, nil
}

// MissingRows returns the tables (sorted) in which the wanted identity does not exist.
func MissingRows(ctx context.Context, db *sql.DB, d Dialect, want map[string]int64) ([]string, error) {
	missing := []string{}
	for table, id := range want {
		if !validTable(table) {
			return nil, fmt.Errorf("unknown table: %s", table)
		}
		var n int
		if err := db.QueryRowContext(ctx, d.Rebind("select count(*) from "+table+" where id = ?"), id).Scan(&n); err != nil {
			return nil, fmt.Errorf("lookup %s %d: %w", table, id, err)
		}
		if n == 0 {
			missing = append(missing, table)
		}
	}
	sort.Strings(missing)
	return missing, nil
}

var owningOlympiad = map[string]string{
	"olympics": "select id from olympics where id = ?",
	"sports":   "select olympiad_id from sports where id = ?",
	"teams": `
		select s.olympiad_id from teams t
		inner join sports s on t.sport_id = s.id
		where t.id = ?`,
	"players": `
		select s.olympiad_id from players p
		inner join teams t on p.team_id = t.id
		inner join sports s on t.sport_id = s.id
		where p.id = ?`,
}

// OwningOlympiads returns the ids (sorted, distinct) of the olympiads the given rows
// belong to. Deleting any other olympiad leaves the rows in place.
func OwningOlympiads(ctx context.Context, db *sql.DB, d Dialect, rows map[string]int64) ([]int64, error) {
	seen := map[int64]struct{}{}
	for table, id := range rows {
		query, ok := owningOlympiad[table]
		if !ok {
			return nil, fmt.Errorf("unknown table: %s", table)
		}
		var olympiadID int64
		err := db.QueryRowContext(ctx, d.Rebind(query), id).Scan(&olympiadID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %d does not exist", table, id)
		}
		if err != nil {
			return nil, fmt.Errorf("lookup olympiad of %s %d: %w", table, id, err)
		}
		seen[olympiadID] = struct{}{}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Vacuum refreshes the planner statistics after a bulk load.
func Vacuum(ctx context.Context, db *sql.DB, d Dialect) error {
	stmt := "vacuum analyze"
	if d == SQLite {
		stmt = "analyze"
	}
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

// DbSize returns the storage size of the benchmark tables, in bytes.
func DbSize(ctx context.Context, db *sql.DB, d Dialect) (int64, error) {
	query := `
		select pg_total_relation_size('olympics') +
			pg_total_relation_size('sports') +
			pg_total_relation_size('teams') +
			pg_total_relation_size('players')
	`
	if d == SQLite {
		query = "select page_count * page_size from pragma_page_count(), pragma_page_size()"
	}
	var s int64
	if err := db.QueryRowContext(ctx, query).Scan(&s); err != nil {
		return 0, fmt.Errorf("db size: %w", err)
	}
	return s, nil
}
