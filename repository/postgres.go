package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is an interface that both pgxpool.Pool and pgx.Tx satisfy.
// This allows Repository methods to work with either a connection pool
// or a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides database access for rankings and backtest history
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

// EnsureSchema creates the tables the repository needs if they do not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ranking_batches (
			id UUID PRIMARY KEY,
			price_weight DOUBLE PRECISION NOT NULL,
			sentiment_weight DOUBLE PRECISION NOT NULL,
			generated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS rankings (
			id UUID PRIMARY KEY,
			batch_id UUID NOT NULL REFERENCES ranking_batches(id) ON DELETE CASCADE,
			rank INT NOT NULL,
			ticker TEXT NOT NULL,
			composite_score DOUBLE PRECISION NOT NULL,
			technical_score DOUBLE PRECISION NOT NULL,
			sentiment_score DOUBLE PRECISION NOT NULL,
			price NUMERIC(18,4) NOT NULL,
			percent_change DOUBLE PRECISION NOT NULL,
			price_missing BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id UUID PRIMARY KEY,
			tickers TEXT[] NOT NULL,
			start_date TIMESTAMPTZ NOT NULL,
			end_date TIMESTAMPTZ NOT NULL,
			initial_capital NUMERIC(18,2) NOT NULL,
			final_value NUMERIC(18,2) NOT NULL,
			rebalance_frequency TEXT NOT NULL,
			top_n INT NOT NULL,
			total_return DOUBLE PRECISION NOT NULL,
			cagr DOUBLE PRECISION NOT NULL,
			volatility DOUBLE PRECISION NOT NULL,
			sharpe_ratio DOUBLE PRECISION NOT NULL,
			max_drawdown DOUBLE PRECISION NOT NULL,
			win_rate DOUBLE PRECISION NOT NULL,
			winning_trades INT NOT NULL,
			losing_trades INT NOT NULL,
			total_trades INT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS backtest_trades (
			id UUID PRIMARY KEY,
			run_id UUID NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
			seq INT NOT NULL,
			trade_date TIMESTAMPTZ NOT NULL,
			ticker TEXT NOT NULL,
			side TEXT NOT NULL,
			shares DOUBLE PRECISION NOT NULL,
			price NUMERIC(18,4) NOT NULL,
			value NUMERIC(18,2) NOT NULL,
			cost NUMERIC(18,4) NOT NULL,
			cash_after NUMERIC(18,2) NOT NULL,
			realized_return DOUBLE PRECISION NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS backtest_equity (
			run_id UUID NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
			seq INT NOT NULL,
			date TIMESTAMPTZ NOT NULL,
			value NUMERIC(18,2) NOT NULL,
			PRIMARY KEY (run_id, seq)
		)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
