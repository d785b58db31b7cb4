package dbutils

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect selects the relational store the benchmark runs against.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported dialect: %s", name)
	}
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == SQLite {
		return "sqlite3"
	}
	return "postgres"
}

// Rebind rewrites '?' placeholders into the dialect's bind style.
func (d Dialect) Rebind(query string) string {
	return sqlx.Rebind(sqlx.BindType(d.DriverName()), query)
}

// DSN returns the connection string the drivers should receive. SQLite only enforces
// foreign keys (and therefore cascading deletes) when asked to, per connection.
func (d Dialect) DSN(conn string) string {
	if d != SQLite {
		return conn
	}
	params := []string{}
	if !strings.Contains(conn, "_foreign_keys") && !strings.Contains(conn, "_fk=") {
		params = append(params, "_foreign_keys=on")
	}
	if !strings.Contains(conn, "_busy_timeout") && !strings.Contains(conn, "_timeout=") {
		params = append(params, "_busy_timeout=5000")
	}
	if len(params) == 0 {
		return conn
	}
	sep := "?"
	if strings.Contains(conn, "?") {
		sep = "&"
	}
	return conn + sep + strings.Join(params, "&")
}

func (d Dialect) String() string {
	return string(d)
}
