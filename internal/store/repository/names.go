package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fortuna/crease/internal/store"
)

// ErrNotFound is wrapped by lookups that match no row.
var ErrNotFound = errors.New("not found")

// namedTable describes a table whose rows are identified by a unique name.
type namedTable struct {
	table    string
	idColumn string
	column   string
}

var (
	teamsTable   = namedTable{table: "teams", idColumn: "team_id", column: "team_name"}
	playersTable = namedTable{table: "players", idColumn: "player_id", column: "player_name"}
)

// insertOrFetch inserts name unless it already exists and returns the row id.
// inserted is false when the id came from the fallback lookup.
func insertOrFetch(ctx context.Context, db store.Executor, t namedTable, name string) (id int64, inserted bool, err error) {
	insert := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1)
		ON CONFLICT (%s) DO NOTHING
		RETURNING %s
	`, t.table, t.column, t.column, t.idColumn)

	err = db.QueryRowContext(ctx, insert, name).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("inserting into %s: %w", t.table, store.ClassifyError(err))
	}

	lookup := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, t.idColumn, t.table, t.column)
	if err := db.QueryRowContext(ctx, lookup, name).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, fmt.Errorf("%s %q vanished after conflict: %w", t.table, name, ErrNotFound)
		}
		return 0, false, fmt.Errorf("querying %s: %w", t.table, err)
	}
	return id, false, nil
}
