package store

import (
	"fmt"
	"strings"
)

// Dialect identifies the SQL flavour spoken by a connection.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		return DialectPostgres, nil
	case "sqlite":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q (want postgres, pgx or sqlite)", driver)
	}
}

// Rebind rewrites $n placeholders into the dialect's positional form.
// SQLite accepts ?NNN, which keeps the argument numbering intact.
func (d Dialect) Rebind(query string) string {
	if d != DialectSQLite || !strings.Contains(query, "$") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c == '$' && i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
			b.WriteByte('?')
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Name is the product name used when asking for SQL in this dialect.
func (d Dialect) Name() string {
	if d == DialectSQLite {
		return "SQLite"
	}
	return "PostgreSQL"
}

// MaxParams is the number of bind parameters one statement may carry.
func (d Dialect) MaxParams() int {
	if d == DialectSQLite {
		return 32766
	}
	return 65535
}

func (d Dialect) migrationsTableDDL() string {
	if d == DialectSQLite {
		return `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	}
	return `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`
}

// normalizeDSN enables foreign keys and a busy timeout for SQLite files.
func (d Dialect) normalizeDSN(dsn string) string {
	if d != DialectSQLite {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
