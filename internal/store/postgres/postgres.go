// Package postgres persists session summaries and order results in
// PostgreSQL for durable, queryable trade history.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool and verifies it.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

const pgErrUniqueViolation = "23505"

// isDuplicateKeyError checks if error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

// schema holds the idempotent DDL for both tables.
const schema = `
CREATE TABLE IF NOT EXISTS session_summaries (
	id             BIGSERIAL PRIMARY KEY,
	mint           TEXT NOT NULL,
	owner          TEXT NOT NULL,
	latest_price   DOUBLE PRECISION NOT NULL,
	price_history  DOUBLE PRECISION[] NOT NULL DEFAULT '{}',
	saved_at       TIMESTAMPTZ NOT NULL,
	current_change DOUBLE PRECISION NOT NULL,
	peak_change    DOUBLE PRECISION NOT NULL,
	market_cap     DOUBLE PRECISION NOT NULL,
	volume_buy     INTEGER NOT NULL,
	volume_sell    INTEGER NOT NULL,
	pct_diff       DOUBLE PRECISION[] NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_session_summaries_mint ON session_summaries (mint);

CREATE TABLE IF NOT EXISTS order_results (
	tx_id      TEXT PRIMARY KEY,
	ts         TIMESTAMPTZ NOT NULL,
	direction  TEXT NOT NULL,
	mint       TEXT NOT NULL,
	amount     BIGINT NOT NULL,
	fee        BIGINT NOT NULL,
	outcome    TEXT NOT NULL,
	balance    DOUBLE PRECISION NOT NULL,
	change_pct DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_order_results_mint ON order_results (mint);
`

// Migrate applies the embedded schema. It is safe to run repeatedly.
func Migrate(ctx context.Context, pool *Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
