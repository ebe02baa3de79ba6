package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/lib/pq"              // registers the "postgres" driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

//go:embed migrations
var migrationFS embed.FS

// Executor is implemented by both *Database and *Tx. Statements are written
// with $n placeholders and rebound for the connection's dialect.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Dialect() Dialect
}

// Database represents the cricket store connection
type Database struct {
	conn    *sql.DB
	driver  string
	dialect Dialect
	logger  *zap.Logger
}

// NewDatabase opens a connection using one of the registered drivers
// ("postgres", "pgx" or "sqlite") and verifies it with a ping.
func NewDatabase(driver, dsn string, logger *zap.Logger) (*Database, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open(driver, dialect.normalizeDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
		db.SetConnMaxIdleTime(10 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		conn:    db,
		driver:  driver,
		dialect: dialect,
		logger:  logger,
	}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// DB returns the underlying *sql.DB for queries
func (db *Database) DB() *sql.DB {
	return db.conn
}

// Dialect reports the SQL dialect of the connection.
func (db *Database) Dialect() Dialect {
	return db.dialect
}

// Driver returns the database/sql driver name the connection was opened with.
func (db *Database) Driver() string {
	return db.driver
}

func (db *Database) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.conn.ExecContext(ctx, db.dialect.Rebind(query), args...)
}

func (db *Database) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, db.dialect.Rebind(query), args...)
}

func (db *Database) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.conn.QueryRowContext(ctx, db.dialect.Rebind(query), args...)
}

// Tx is a transaction that rebinds statements like Database does.
type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.dialect.Rebind(query), args...)
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.dialect.Rebind(query), args...)
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.dialect.Rebind(query), args...)
}

// QueryVerbatim runs query exactly as written, without placeholder rebinding.
// Used for externally authored statements that carry no arguments.
func (t *Tx) QueryVerbatim(ctx context.Context, query string) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query)
}

func (t *Tx) Dialect() Dialect {
	return t.dialect
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (db *Database) WithTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *Tx) error) error {
	sqlTx, err := db.conn.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Tx{tx: sqlTx, dialect: db.dialect}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", ClassifyError(err))
	}
	return nil
}

// ReadOnly runs fn inside a transaction that is always rolled back.
// PostgreSQL additionally opens it READ ONLY so writes fail outright.
func (db *Database) ReadOnly(ctx context.Context, fn func(tx *Tx) error) error {
	var opts *sql.TxOptions
	if db.dialect == DialectPostgres {
		opts = &sql.TxOptions{ReadOnly: true}
	}

	sqlTx, err := db.conn.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin read-only transaction: %w", err)
	}
	defer sqlTx.Rollback()

	return fn(&Tx{tx: sqlTx, dialect: db.dialect})
}

// RunMigrations executes all migration files for the dialect in order
func (db *Database) RunMigrations(ctx context.Context) error {
	db.logger.Info("Running database migrations", zap.String("dialect", string(db.dialect)))

	// Create migrations tracking table
	if _, err := db.conn.ExecContext(ctx, db.dialect.migrationsTableDDL()); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	dir := path.Join("migrations", string(db.dialect))
	entries, err := fs.ReadDir(migrationFS, dir)
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}

	var migrations []string
	for _, entry := range entries {
		if !entry.IsDir() && path.Ext(entry.Name()) == ".sql" {
			migrations = append(migrations, entry.Name())
		}
	}
	sort.Strings(migrations)

	for _, migration := range migrations {
		if err := db.runMigration(ctx, dir, migration); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", migration, err)
		}
	}

	db.logger.Info("✓ All migrations completed successfully", zap.Int("count", len(migrations)))
	return nil
}

// runMigration runs a single migration file if it hasn't been applied yet
func (db *Database) runMigration(ctx context.Context, dir, filename string) error {
	var exists bool
	err := db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", filename).Scan(&exists)
	if err != nil {
		return err
	}

	if exists {
		db.logger.Debug("Skipping migration (already applied)", zap.String("version", filename))
		return nil
	}

	content, err := fs.ReadFile(migrationFS, path.Join(dir, filename))
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	return db.WithTx(ctx, nil, func(tx *Tx) error {
		if _, err := tx.tx.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", filename); err != nil {
			return err
		}
		db.logger.Info("✓ Applied migration", zap.String("version", filename))
		return nil
	})
}

// HealthCheck performs a health check on the database
func (db *Database) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return db.conn.PingContext(ctx)
}
