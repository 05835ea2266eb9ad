package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so query helpers
// can run inside or outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewDB creates a new PostgreSQL connection pool.
func NewDB(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the initial schema migration.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			email      TEXT NOT NULL UNIQUE,
			password   TEXT NOT NULL,
			role       TEXT NOT NULL DEFAULT 'user',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

		CREATE TABLE IF NOT EXISTS minisites (
			id                 TEXT PRIMARY KEY,
			business_slug      TEXT NOT NULL,
			location_slug      TEXT NOT NULL DEFAULT '',
			status             TEXT NOT NULL DEFAULT 'draft',
			created_by         TEXT NOT NULL,
			current_version_id TEXT,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_minisites_slugs ON minisites(business_slug, location_slug);
		CREATE INDEX IF NOT EXISTS idx_minisites_created_by ON minisites(created_by);

		CREATE TABLE IF NOT EXISTS minisite_reservations (
			id            TEXT PRIMARY KEY,
			business_slug TEXT NOT NULL,
			location_slug TEXT NOT NULL DEFAULT '',
			user_id       TEXT NOT NULL,
			minisite_id   TEXT,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expires_at    TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_reservations_pair ON minisite_reservations(business_slug, location_slug);
		CREATE INDEX IF NOT EXISTS idx_reservations_user ON minisite_reservations(user_id);
		CREATE INDEX IF NOT EXISTS idx_reservations_expires ON minisite_reservations(expires_at);

		CREATE TABLE IF NOT EXISTS minisite_payments (
			id                   TEXT PRIMARY KEY,
			minisite_id          TEXT NOT NULL,
			user_id              TEXT NOT NULL,
			order_id             TEXT NOT NULL UNIQUE,
			status               TEXT NOT NULL DEFAULT 'active',
			amount               NUMERIC(10,2) NOT NULL,
			currency             CHAR(3) NOT NULL DEFAULT 'USD',
			payment_method       TEXT,
			payment_reference    TEXT,
			paid_at              TIMESTAMPTZ NOT NULL,
			expires_at           TIMESTAMPTZ NOT NULL,
			grace_period_ends_at TIMESTAMPTZ NOT NULL,
			renewed_at           TIMESTAMPTZ,
			reclaimed_at         TIMESTAMPTZ,
			created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_payments_minisite ON minisite_payments(minisite_id, status, expires_at);

		CREATE TABLE IF NOT EXISTS minisite_payment_history (
			id                   TEXT PRIMARY KEY,
			minisite_id          TEXT NOT NULL,
			payment_id           TEXT NOT NULL,
			action               TEXT NOT NULL,
			amount               NUMERIC(10,2) NOT NULL,
			currency             CHAR(3) NOT NULL DEFAULT 'USD',
			payment_reference    TEXT,
			expires_at           TIMESTAMPTZ NOT NULL,
			grace_period_ends_at TIMESTAMPTZ NOT NULL,
			new_owner_user_id    TEXT,
			created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_payment_history_minisite ON minisite_payment_history(minisite_id);
	`
	_, err := pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
