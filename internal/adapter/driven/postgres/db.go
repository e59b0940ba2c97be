package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	connectAttempts = 5
	connectDelay    = 500 * time.Millisecond
)

// DB wraps a pgx connection pool holding the PR and channel settings tables.
type DB struct {
	Pool *pgxpool.Pool
}

// Open connects to databaseURL, retrying while the server comes up, and creates
// the schema if it does not exist.
func Open(ctx context.Context, databaseURL string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var pool *pgxpool.Pool
	err := retry.Do(
		func() error {
			p, err := pgxpool.New(ctx, databaseURL)
			if err != nil {
				return err
			}
			if err := p.Ping(ctx); err != nil {
				p.Close()
				return err
			}
			pool = p
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(connectAttempts),
		retry.Delay(connectDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("postgres connection failed, retrying", "attempt", n+1, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	db := &DB{Pool: pool}
	if err := db.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to postgres")
	return db, nil
}

func (db *DB) ensureSchema(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS pull_requests (
			id                 TEXT PRIMARY KEY,
			channel_id         TEXT    NOT NULL,
			submitter_id       TEXT    NOT NULL DEFAULT '',
			name               TEXT    NOT NULL DEFAULT '',
			link               TEXT    NOT NULL DEFAULT '',
			description        TEXT    NOT NULL DEFAULT '',
			reviewers          TEXT    NOT NULL DEFAULT '[]',
			reviews_needed     INTEGER NOT NULL DEFAULT 2,
			reviews_received   INTEGER NOT NULL DEFAULT 0,
			attention_requests TEXT    NOT NULL DEFAULT '[]',
			submitted_at       TEXT    NOT NULL,
			message_ts         TEXT    NOT NULL DEFAULT '',
			permalink          TEXT    NOT NULL DEFAULT '',
			version            BIGINT  NOT NULL DEFAULT 1
		);
		CREATE INDEX IF NOT EXISTS idx_pull_requests_channel_id ON pull_requests(channel_id);
		CREATE TABLE IF NOT EXISTS channel_settings (
			channel_id    TEXT PRIMARY KEY,
			sla_hours     INTEGER NOT NULL DEFAULT 8,
			enabled_hours TEXT
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Ping checks that the pool can reach the server.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases every pooled connection.
func (db *DB) Close() {
	db.Pool.Close()
}
