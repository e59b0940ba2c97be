package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // Embed zoneinfo for PRREMINDER_TIMEZONE in scratch container

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	slackadapter "github.com/ericfisherdev/prreminder/internal/adapter/driven/slack"
	"github.com/ericfisherdev/prreminder/internal/application"
	"github.com/ericfisherdev/prreminder/internal/config"
	"github.com/ericfisherdev/prreminder/internal/domain/port/driven"
	"github.com/ericfisherdev/prreminder/internal/storage"
)

// dryRunStore keeps every record in place; expirations are reported only.
type dryRunStore struct {
	driven.PRStore
}

func (dryRunStore) Delete(_ context.Context, id string) error {
	log.Info().Str("pr", id).Msg("dry run: would remove expired PR")
	return nil
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var (
		dryRun  bool
		envFile string
	)
	flag.BoolVar(&dryRun, "dry-run", false, "Compose digests and report expirations without sending or deleting anything")
	flag.StringVar(&envFile, "env", ".env", "Optional .env file to load before reading PRREMINDER_* variables")
	flag.Parse()

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatal().Err(err).Str("file", envFile).Msg("failed to load env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Service internals log through slog; keep them on stderr beside the console output.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	stores, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to open database")
	}
	defer stores.Close()

	prStore := stores.PRs
	var notifier driven.ChatNotifier
	switch {
	case dryRun:
		prStore = dryRunStore{PRStore: stores.PRs}
	case cfg.HasSlack():
		notifier = slackadapter.NewNotifier(cfg.SlackBotToken, logger)
	default:
		log.Warn().Msg("PRREMINDER_SLACK_BOT_TOKEN not set, digests will not be delivered")
	}

	calendar := application.NewWorkCalendar(cfg.Location)
	svc := application.NewSLAService(prStore, stores.Settings, notifier, calendar, logger)

	result, err := svc.RunPeriodicPass(ctx, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("sla pass failed")
	}

	for _, id := range result.RemovedIDs {
		log.Info().Str("pr", id).Bool("dry_run", dryRun).Msg("expired PR")
	}
	for channelID, digest := range result.DigestsByChannel {
		log.Info().Str("channel", channelID).Bool("dry_run", dryRun).Msg("digest")
		os.Stdout.WriteString(digest + "\n")
	}
	for _, channelID := range result.SkippedChannels {
		log.Info().Str("channel", channelID).Msg("skipped outside enabled hours")
	}
	for _, channelID := range result.FailedChannels {
		log.Error().Str("channel", channelID).Msg("digest delivery failed")
	}

	log.Info().
		Str("run_id", result.RunID).
		Int("removed", len(result.RemovedIDs)).
		Int("digests", len(result.DigestsByChannel)).
		Int("skipped", len(result.SkippedChannels)).
		Int("failed", len(result.FailedChannels)).
		Int("rejected", result.Rejected).
		Msg("sla check complete")
}
