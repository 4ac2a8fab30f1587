package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"spendtrack/internal/amqp"
	"spendtrack/internal/backend"
	"spendtrack/internal/config"
	applog "spendtrack/internal/log"
	"spendtrack/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting spendtrack-worker")

	cfg := config.Load()
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	// The worker is the far end of the feed: it needs a real collection
	// to mirror into, so "none" makes no sense here. The server side of
	// this deployment runs with REMOTE_BACKEND=none, which is also the
	// combination Validate accepts.
	backendType := os.Getenv("WORKER_REMOTE_BACKEND")
	if backendType == "" {
		backendType = "firestore"
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, backend.Config{
		Type:               backend.Type(backendType),
		FirestoreProjectID: cfg.FirestoreProjectID,
	})
	if err != nil {
		logger.Error("Failed to create remote backend", "error", err, "backend", backendType)
		os.Exit(1)
	}
	if res.Collection == nil {
		logger.Error("Worker requires a remote collection", "backend", backendType)
		os.Exit(1)
	}
	if res.Cleanup != nil {
		defer func() {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}()
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	mirror := worker.NewMirrorWorker(res.Collection)

	logger.Info("Consuming mutation feed",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"backend", backendType)
	if err := client.ConsumeMutations(ctx, mirror.HandleMutation); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
