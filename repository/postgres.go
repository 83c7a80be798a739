package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDatabaseNotAvailable is returned when repository methods are called
// without a live database handle.
var ErrDatabaseNotAvailable = errors.New("database not available")

// DBTX is an interface that both pgxpool.Pool and pgx.Tx satisfy.
// This allows Repository methods to work with either a connection pool
// or a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides database access for all entities
type Repository struct {
	pool *pgxpool.Pool
	db   DBTX // The actual executor (pool or transaction)
}

// NewRepository creates a new Repository with a PostgreSQL connection pool
func NewRepository(ctx context.Context, connString string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Repository{pool: pool, db: pool}, nil
}

// WithTx returns a new Repository that uses the given transaction.
// This is useful for running multiple operations atomically.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{pool: r.pool, db: tx}
}

// BeginTx starts a new transaction and returns a Repository that uses it.
// The caller is responsible for calling Commit() or Rollback() on the transaction.
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, *Repository, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, r.WithTx(tx), nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Health checks if the database connection is healthy
func (r *Repository) Health(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Pool returns the underlying connection pool for advanced operations.
// This is primarily intended for testing and cleanup operations.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

func (r *Repository) checkDB() error {
	if r == nil || r.db == nil {
		return ErrDatabaseNotAvailable
	}
	return nil
}

// EnsureSchema creates the tables the engine persists to if they do not
// already exist. Safe to call on every startup.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if err := r.checkDB(); err != nil {
		return err
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS strategies (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			symbol TEXT NOT NULL,
			type TEXT NOT NULL,
			parameters JSONB NOT NULL,
			performance JSONB,
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_strategies_symbol ON strategies (symbol)`,
		`CREATE TABLE IF NOT EXISTS backtest_results (
			id UUID PRIMARY KEY,
			strategy_id UUID NOT NULL REFERENCES strategies (id) ON DELETE CASCADE,
			symbol TEXT NOT NULL,
			from_date TIMESTAMPTZ NOT NULL,
			to_date TIMESTAMPTZ NOT NULL,
			initial_capital DOUBLE PRECISION NOT NULL,
			final_capital DOUBLE PRECISION NOT NULL,
			trades JSONB NOT NULL,
			equity JSONB NOT NULL,
			performance JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_backtest_results_strategy ON backtest_results (strategy_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS price_alerts (
			id UUID PRIMARY KEY,
			symbol TEXT NOT NULL,
			condition TEXT NOT NULL,
			threshold NUMERIC NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			triggered_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_alerts_status ON price_alerts (status)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
