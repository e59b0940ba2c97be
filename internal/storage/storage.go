// Package storage opens the configured record store backend.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/prreminder/internal/adapter/driven/postgres"
	sqliteadapter "github.com/ericfisherdev/prreminder/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/prreminder/internal/config"
	"github.com/ericfisherdev/prreminder/internal/domain/port/driven"
)

// Stores bundles the PR and channel settings stores of one backend.
type Stores struct {
	PRs      driven.PRStore
	Settings driven.ChannelSettingsStore

	ping  func(ctx context.Context) error
	close func() error
}

// Ping reports whether the backend is reachable.
func (s *Stores) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the backend's connections.
func (s *Stores) Close() error {
	return s.close()
}

// Open connects to the backend selected by cfg.DBDriver. SQLite databases are
// migrated to the latest schema; Postgres tables are created when missing.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stores, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("database opened", "driver", cfg.DBDriver)
		return &Stores{
			PRs:      postgres.NewPRRepo(db),
			Settings: postgres.NewChannelSettingsRepo(db),
			ping:     db.Ping,
			close: func() error {
				db.Close()
				return nil
			},
		}, nil

	case config.DriverSQLite, "":
		db, err := sqliteadapter.NewDB(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		version, err := sqliteadapter.RunMigrations(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("database opened", "driver", config.DriverSQLite, "path", db.Path(), "schema_version", version)
		return &Stores{
			PRs:      sqliteadapter.NewPRRepo(db),
			Settings: sqliteadapter.NewChannelSettingsRepo(db),
			ping:     db.Ping,
			close:    db.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}
