package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ConstraintKind names the integrity rule a statement violated.
type ConstraintKind string

const (
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintForeignKey ConstraintKind = "foreign_key"
	ConstraintCheck      ConstraintKind = "check"
	ConstraintNotNull    ConstraintKind = "not_null"
	ConstraintOther      ConstraintKind = "other"
)

// ConstraintError reports an integrity violation raised by the database
// outside of the insert-or-fetch paths that expect duplicates.
type ConstraintError struct {
	Kind       ConstraintKind
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("%s constraint %q violated: %v", e.Kind, e.Constraint, e.Err)
	}
	return fmt.Sprintf("%s constraint violated: %v", e.Kind, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// IsConstraintError reports whether err carries a ConstraintError.
func IsConstraintError(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce)
}

// ClassifyError wraps integrity violations from any supported driver in a
// ConstraintError. Other errors are returned unchanged.
func ClassifyError(err error) error {
	if err == nil || IsConstraintError(err) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if kind, ok := postgresConstraintKind(string(pqErr.Code)); ok {
			return &ConstraintError{Kind: kind, Constraint: pqErr.Constraint, Err: err}
		}
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if kind, ok := postgresConstraintKind(pgErr.Code); ok {
			return &ConstraintError{Kind: kind, Constraint: pgErr.ConstraintName, Err: err}
		}
		return err
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		if kind, ok := sqliteConstraintKind(sqliteErr.Code()); ok {
			return &ConstraintError{Kind: kind, Err: err}
		}
	}

	return err
}

// postgresConstraintKind maps SQLSTATE class 23 codes.
func postgresConstraintKind(code string) (ConstraintKind, bool) {
	switch code {
	case "23505":
		return ConstraintUnique, true
	case "23503":
		return ConstraintForeignKey, true
	case "23514":
		return ConstraintCheck, true
	case "23502":
		return ConstraintNotNull, true
	}
	if len(code) == 5 && code[:2] == "23" {
		return ConstraintOther, true
	}
	return "", false
}

func sqliteConstraintKind(code int) (ConstraintKind, bool) {
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return ConstraintUnique, true
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return ConstraintForeignKey, true
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		return ConstraintCheck, true
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return ConstraintNotNull, true
	}
	if code&0xff == sqlite3.SQLITE_CONSTRAINT {
		return ConstraintOther, true
	}
	return "", false
}
