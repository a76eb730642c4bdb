package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/amqp"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/config"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/core"
	applog "github.com/TomasHoles/Zaverecny-projekt-sub000/internal/log"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/services"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/storage"
)

// recurring-worker periodically projects due recurring definitions into
// ledger transactions and publishes reminders for upcoming ones.
func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentWorker)
	applog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPSyncQueue, cfg.AMQPReminderQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, running without event publishing", "error", err)
		} else {
			defer client.Close()
			publisher = client
		}
	}

	projector := services.NewProjector(repo, repo, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runOnce := func() {
		report, err := projector.ProjectAllDue(ctx, core.DateOf(time.Now()))
		if err != nil {
			logger.Error("Processing run failed", "error", err)
			return
		}
		logger.Info("Processing run finished",
			"created", report.CreatedCount,
			"skipped", report.SkippedCount,
			"errors", len(report.Errors))
	}

	// Catch up immediately on startup, then on the configured interval.
	runOnce()

	ticker := time.NewTicker(cfg.ProcessInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runOnce()
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())
	cancel()
	logger.Info("Worker shutdown complete")
}
