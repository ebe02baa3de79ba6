// Package storetest opens throwaway SQLite stores for tests.
package storetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fortuna/crease/internal/store"
	"go.uber.org/zap/zaptest"
)

// NewSQLite returns a migrated SQLite database living in t.TempDir().
func NewSQLite(t testing.TB) *store.Database {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "crease.db")
	db, err := store.NewDatabase("sqlite", dsn, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.RunMigrations(context.Background()); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return db
}

// Count returns SELECT COUNT(*) for the given FROM/WHERE clause.
func Count(t testing.TB, db store.Executor, clause string, args ...any) int {
	t.Helper()

	var n int
	if err := db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+clause, args...).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", clause, err)
	}
	return n
}
