// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Supported values for PRREMINDER_DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr    string
	DBDriver      string
	DBPath        string
	DatabaseURL   string
	CheckInterval time.Duration
	Location      *time.Location
	SlackBotToken string
	GitHubToken   string
}

// HasSlack reports whether chat delivery is configured. Without it digests are
// composed and logged but not sent.
func (c *Config) HasSlack() bool {
	return c.SlackBotToken != ""
}

// HasGitHub reports whether PR titles can be resolved from GitHub.
func (c *Config) HasGitHub() bool {
	return c.GitHubToken != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// Optional variables with defaults: PRREMINDER_LISTEN_ADDR (127.0.0.1:8080),
// PRREMINDER_DB_DRIVER (sqlite), PRREMINDER_DB_PATH (prreminder.db),
// PRREMINDER_CHECK_INTERVAL (1h), PRREMINDER_TIMEZONE (Local).
// PRREMINDER_DATABASE_URL is required when the driver is postgres.
// PRREMINDER_SLACK_BOT_TOKEN and PRREMINDER_GITHUB_TOKEN are optional.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:    envOr("PRREMINDER_LISTEN_ADDR", "127.0.0.1:8080"),
		DBDriver:      strings.ToLower(envOr("PRREMINDER_DB_DRIVER", DriverSQLite)),
		DBPath:        envOr("PRREMINDER_DB_PATH", "prreminder.db"),
		DatabaseURL:   os.Getenv("PRREMINDER_DATABASE_URL"),
		CheckInterval: time.Hour,
		Location:      time.Local,
		SlackBotToken: os.Getenv("PRREMINDER_SLACK_BOT_TOKEN"),
		GitHubToken:   os.Getenv("PRREMINDER_GITHUB_TOKEN"),
	}

	switch cfg.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("PRREMINDER_DATABASE_URL is required when PRREMINDER_DB_DRIVER is %q", DriverPostgres)
		}
	default:
		return nil, fmt.Errorf("PRREMINDER_DB_DRIVER has unsupported value %q (want %q or %q)",
			cfg.DBDriver, DriverSQLite, DriverPostgres)
	}

	if v, ok := os.LookupEnv("PRREMINDER_CHECK_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("PRREMINDER_CHECK_INTERVAL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("PRREMINDER_CHECK_INTERVAL must be positive, got %q", v)
		}
		cfg.CheckInterval = parsed
	}

	if v, ok := os.LookupEnv("PRREMINDER_TIMEZONE"); ok && v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			return nil, fmt.Errorf("PRREMINDER_TIMEZONE has invalid location %q: %w", v, err)
		}
		cfg.Location = loc
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
