package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"calendario/internal/amqp"
	"calendario/internal/config"
	gcal "calendario/internal/remote/google"
	"calendario/internal/storage"
	"calendario/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting calendario-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// The worker reads directly from the SQLite store the server writes to.
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Google Calendar mirror is optional.
	var mirror worker.Mirror
	if cfg.GoogleCalendarID != "" {
		client, err := gcal.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Calendar client", "error", err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Calendar mirror enabled", "calendar_id", cfg.GoogleCalendarID)
	} else {
		logger.Info("Google Calendar mirror disabled - no GOOGLE_CALENDAR_ID provided")
	}

	feedWorker := worker.NewFeedWorker(repo, mirror, cfg.FeedPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Periodic rebuild is the backstop for missed or dropped events.
	g.Go(func() error {
		return feedWorker.Run(ctx, cfg.RebuildInterval)
	})

	// Change-event consumption is optional; without AMQP the worker
	// degrades to interval-only rebuilds.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		g.Go(func() error {
			return amqpClient.ConsumeChanges(ctx, func(ev *amqp.ChangeEvent) error {
				return feedWorker.HandleChangeEvent(ctx, ev)
			})
		})
	} else {
		logger.Info("AMQP disabled - rebuilding on interval only")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker shutdown complete")
}
