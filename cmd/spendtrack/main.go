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

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"spendtrack/internal/amqp"
	"spendtrack/internal/backend"
	"spendtrack/internal/cloudsync"
	"spendtrack/internal/config"
	apphttp "spendtrack/internal/http"
	"spendtrack/internal/localstore"
	applog "spendtrack/internal/log"
	"spendtrack/internal/session"
	"spendtrack/internal/store"
	"spendtrack/internal/view"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	local, err := localstore.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open local store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer local.Close()

	views := view.New(cfg.Categories)
	st := store.New(local, views)

	// Seed the canonical list from the last persisted state so the
	// first projections are populated before any request arrives.
	records, err := local.LoadTransactions(ctx)
	if err != nil {
		logger.Error("Failed to load persisted transactions", "error", err)
		os.Exit(1)
	}
	st.ReplaceAll(ctx, records)
	logger.Info("Seeded transaction store", "count", len(records))

	sessions := session.NewManager()

	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, backend.Config{
		Type:               backend.Type(cfg.RemoteBackend),
		FirestoreProjectID: cfg.FirestoreProjectID,
	})
	if err != nil {
		logger.Error("Failed to create remote backend", "error", err, "backend", cfg.RemoteBackend)
		os.Exit(1)
	}
	if res.Cleanup != nil {
		defer func() {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}()
	}

	var publisher cloudsync.MutationPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("Initialized AMQP mutation feed",
			"exchange", cfg.AMQPExchange,
			"queue", cfg.AMQPQueue)
	}

	adapter := cloudsync.New(st, local, sessions, cloudsync.Options{
		Remote:    res.Collection,
		Profiles:  res.Profiles,
		Publisher: publisher,
	})

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:      st,
		Views:      views,
		Sync:       adapter,
		Sessions:   sessions,
		Themes:     local,
		Categories: cfg.Categories,
		Logger:     logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := adapter.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		logger.Info("Starting spendtrack server", "port", cfg.Port, "remote_backend", cfg.RemoteBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
