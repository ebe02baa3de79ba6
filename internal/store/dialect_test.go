package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectFor(t *testing.T) {
	for driver, want := range map[string]Dialect{
		"postgres": DialectPostgres,
		"pgx":      DialectPostgres,
		"sqlite":   DialectSQLite,
	} {
		got, err := DialectFor(driver)
		require.NoError(t, err, driver)
		assert.Equal(t, want, got, driver)
	}

	_, err := DialectFor("mysql")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	query := "SELECT id FROM players WHERE player_name = $1 AND x = $12 AND note = 'costs $'"

	assert.Equal(t, query, DialectPostgres.Rebind(query))
	assert.Equal(t,
		"SELECT id FROM players WHERE player_name = ?1 AND x = ?12 AND note = 'costs $'",
		DialectSQLite.Rebind(query))
}

func TestNormalizeDSN(t *testing.T) {
	assert.Equal(t, "postgres://x/y", DialectPostgres.normalizeDSN("postgres://x/y"))
	assert.Equal(t, "file:a.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", DialectSQLite.normalizeDSN("file:a.db"))
	assert.Equal(t, "file:a.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", DialectSQLite.normalizeDSN("file:a.db?mode=rwc"))
}

func TestDialectName(t *testing.T) {
	assert.Equal(t, "SQLite", DialectSQLite.Name())
	assert.Equal(t, "PostgreSQL", DialectPostgres.Name())
}
