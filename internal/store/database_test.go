package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/crease/internal/store"
	"github.com/fortuna/crease/internal/store/storetest"
)

func TestRunMigrations_Idempotent(t *testing.T) {
	db := storetest.NewSQLite(t)

	require.NoError(t, db.RunMigrations(context.Background()))
	assert.Equal(t, 2, storetest.Count(t, db, "schema_migrations"))
	assert.Equal(t, 0, storetest.Count(t, db, "backfill_jobs"))
	assert.Equal(t, 0, storetest.Count(t, db, "deliveries"))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db := storetest.NewSQLite(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTx(ctx, nil, func(tx *store.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO teams (team_name) VALUES ($1)", "Deccan Chargers"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, storetest.Count(t, db, "teams"))

	err = db.WithTx(ctx, nil, func(tx *store.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO teams (team_name) VALUES ($1)", "Deccan Chargers")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, storetest.Count(t, db, "teams WHERE team_name = $1", "Deccan Chargers"))
}

func TestNewDatabase_RejectsUnknownDriver(t *testing.T) {
	_, err := store.NewDatabase("mysql", "root@/crease", nil)
	assert.Error(t, err)
}

func TestReadOnly_DiscardsWrites(t *testing.T) {
	db := storetest.NewSQLite(t)
	ctx := context.Background()

	err := db.ReadOnly(ctx, func(tx *store.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO teams (team_name) VALUES ($1)", "Pune Warriors")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 0, storetest.Count(t, db, "teams"))
}
