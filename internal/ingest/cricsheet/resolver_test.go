package cricsheet

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/crease/internal/store"
	"github.com/fortuna/crease/internal/store/storetest"
)

// countingExecutor counts the statements sent through it.
type countingExecutor struct {
	store.Executor
	statements int
}

func (c *countingExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	c.statements++
	return c.Executor.ExecContext(ctx, query, args...)
}

func (c *countingExecutor) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	c.statements++
	return c.Executor.QueryContext(ctx, query, args...)
}

func (c *countingExecutor) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	c.statements++
	return c.Executor.QueryRowContext(ctx, query, args...)
}

func TestIDMap_ScopeCommit(t *testing.T) {
	root := NewIDMap()
	root.Store("A", 1)

	scope := root.Scope()
	scope.Store("B", 2)

	id, ok := scope.Lookup("A")
	assert.True(t, ok)
	assert.Equal(t, int64(1), id)

	_, ok = root.Lookup("B")
	assert.False(t, ok, "staged id must not be visible before commit")

	scope.Commit()
	id, ok = root.Lookup("B")
	assert.True(t, ok)
	assert.Equal(t, int64(2), id)
	assert.Zero(t, scope.Len())
	assert.Equal(t, 2, root.Len())
}

func TestIDMap_DiscardedScopeLeavesRootUntouched(t *testing.T) {
	root := NewIDMap()
	scope := root.Scope()
	scope.Store("rolled back", 7)

	_, ok := root.Lookup("rolled back")
	assert.False(t, ok)
	assert.Zero(t, root.Len())
}

func TestResolver_CacheHitIssuesNoStatements(t *testing.T) {
	db := storetest.NewSQLite(t)
	ctx := context.Background()
	q := &countingExecutor{Executor: db}
	ids := NewIDMap()
	r := NewPlayerResolver()

	first, err := r.Resolve(ctx, q, ids, "SC Ganguly")
	require.NoError(t, err)
	assert.Equal(t, 1, q.statements)

	for i := 0; i < 10; i++ {
		id, err := r.Resolve(ctx, q, ids, "SC Ganguly")
		require.NoError(t, err)
		assert.Equal(t, first, id)
	}
	assert.Equal(t, 1, q.statements)
}

func TestResolver_FetchesExistingRowsForFreshMaps(t *testing.T) {
	db := storetest.NewSQLite(t)
	ctx := context.Background()
	r := NewTeamResolver()

	first, err := r.Resolve(ctx, db, NewIDMap(), "Deccan Chargers")
	require.NoError(t, err)

	q := &countingExecutor{Executor: db}
	second, err := r.Resolve(ctx, q, NewIDMap(), "Deccan Chargers")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, q.statements, "conflicting insert followed by lookup")
	assert.Equal(t, 1, storetest.Count(t, db, "teams"))
	assert.Equal(t, KindTeam, r.Kind())
}

func TestResolver_ManyResolutionsKeepNamesUnique(t *testing.T) {
	db := storetest.NewSQLite(t)
	ctx := context.Background()
	r := NewPlayerResolver()
	names := []string{"R Dravid", "W Jaffer", "R Dravid", "JH Kallis", "W Jaffer"}

	seen := map[string]int64{}
	for round := 0; round < 3; round++ {
		ids := NewIDMap()
		for _, name := range names {
			id, err := r.Resolve(ctx, db, ids, name)
			require.NoError(t, err)
			if prev, ok := seen[name]; ok {
				assert.Equal(t, prev, id, name)
			}
			seen[name] = id
		}
	}

	assert.Equal(t, 3, storetest.Count(t, db, "players"))
}
