package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garnizeh/taxi/api"
	dbfs "github.com/garnizeh/taxi/db"
	"github.com/garnizeh/taxi/internal/config"
	"github.com/garnizeh/taxi/internal/db"
	"github.com/garnizeh/taxi/internal/export"
	"github.com/garnizeh/taxi/internal/jobs"
	"github.com/garnizeh/taxi/internal/logging"
	"github.com/garnizeh/taxi/internal/mailer"
	"github.com/garnizeh/taxi/internal/report"
	"github.com/garnizeh/taxi/internal/repository/sqlite"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath = flag.String("config", "", "Path to config YAML file")
	var envPath = flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	if err := config.LoadDotEnv(*envPath); err != nil {
		return err
	}
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, logCloser := logging.New(cfg.Log)
	defer logCloser.Close()
	slog.SetDefault(logger)
	api.SetLogger(logger)

	logger.Info("starting taxi server", "version", version, "build_time", buildTime)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open database connection
	database, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("close db", "err", err)
		}
	}()

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, database, dbfs.Migrations, db.RepairTextMigration()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	repo := sqlite.New(database, logger)
	builder := report.New(cfg.Export.Dir, report.WithLogger(logger))
	mail := mailer.New(cfg.Mail, mailer.WithLogger(logger))
	if !mail.Enabled() {
		logger.Warn("email disabled: EMAIL_USER and EMAIL_PASS are not set")
	}

	pool := jobs.NewWorkerPool(jobs.NewRepository(database), nil, logger, cfg.Workers)
	pool.Register(export.CleanupJobType, export.CleanupHandler(cfg.Export.Dir, logger))
	exports := export.NewService(repo, builder, mail, pool,
		export.WithCleanupDelay(cfg.Export.CleanupDelay),
		export.WithLogger(logger),
	)

	handler := api.SetupRoutes(api.Deps{
		Passengers:     repo,
		Requests:       repo,
		Exporter:       exports,
		Mail:           mail,
		MaxUploadBytes: cfg.Export.MaxUploadBytes,
		Version:        version,
		BuildTime:      buildTime,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	pool.Start(ctx)
	defer pool.Stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	// The worker pool is stopped by the deferred call above, before the
	// database is closed.
	logger.Info("server exited")
	return nil
}
