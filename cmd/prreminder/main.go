package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // Embed zoneinfo for PRREMINDER_TIMEZONE in scratch container

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/ericfisherdev/prreminder/internal/adapter/driven/github"
	slackadapter "github.com/ericfisherdev/prreminder/internal/adapter/driven/slack"
	httphandler "github.com/ericfisherdev/prreminder/internal/adapter/driving/http"
	"github.com/ericfisherdev/prreminder/internal/application"
	"github.com/ericfisherdev/prreminder/internal/config"
	"github.com/ericfisherdev/prreminder/internal/domain/port/driven"
	"github.com/ericfisherdev/prreminder/internal/storage"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.Default()

	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_driver", cfg.DBDriver,
		"check_interval", cfg.CheckInterval,
		"timezone", cfg.Location.String(),
		"slack", cfg.HasSlack(),
		"github", cfg.HasGitHub(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the record store and bring its schema up to date.
	stores, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := stores.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	// 4. Wire optional adapters. Interfaces stay nil when unconfigured.
	var notifier driven.ChatNotifier
	if cfg.HasSlack() {
		notifier = slackadapter.NewNotifier(cfg.SlackBotToken, logger)
	} else {
		logger.Warn("no slack token configured, digests will be logged only")
	}

	var resolver driven.PRMetadataResolver
	if cfg.HasGitHub() {
		resolver = githubadapter.NewClient(cfg.GitHubToken)
	}

	// 5. Create services.
	calendar := application.NewWorkCalendar(cfg.Location)
	slaSvc := application.NewSLAService(stores.PRs, stores.Settings, notifier, calendar, logger)
	submissionSvc := application.NewSubmissionService(stores.PRs, notifier, resolver, logger)
	settingsSvc := application.NewSettingsService(stores.Settings, logger)

	// 6. Start the periodic pass runner.
	runner := application.NewPassRunner(slaSvc, cfg.CheckInterval, time.Now, logger)
	runnerDone := make(chan struct{})
	go func() {
		defer close(runnerDone)
		runner.Start(ctx)
	}()

	// 7. Create HTTP handler and router.
	apiHandler := httphandler.NewHandler(httphandler.Deps{
		PRStore:    stores.PRs,
		SLA:        slaSvc,
		Runner:     runner,
		Submission: submissionSvc,
		Settings:   settingsSvc,
		Store:      stores,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewRouter(apiHandler, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	logger.Info("prreminder started",
		"listen_addr", cfg.ListenAddr,
		"check_interval", cfg.CheckInterval,
	)

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	logger.Info("shutting down")

	// 9. Graceful shutdown with 10s timeout for in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	// 10. Let any running pass finish before the deferred store close.
	<-runnerDone
	runner.Wait()

	logger.Info("shutdown complete")
	return nil
}
