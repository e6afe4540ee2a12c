package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/mapelo/forecast-api/docs"
	"github.com/mapelo/forecast-api/internal/app"
	"github.com/mapelo/forecast-api/internal/config"
	"github.com/mapelo/forecast-api/internal/handlers"
	"github.com/mapelo/forecast-api/internal/store"
	"github.com/mapelo/forecast-api/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		sugar.Fatalw("Failed to initialise", "error", err)
	}
	defer a.Close()

	if err := a.Migrate(ctx); err != nil {
		sugar.Fatalw("Failed to migrate", "error", err)
	}

	pool := worker.NewPool(worker.PoolConfig{
		WorkerCount: 1,
		QueueSize:   cfg.SimQueueSize,
		Runner:      a.Simulations,
		Logger:      logger,
	})
	// queued jobs drain on shutdown, so the pool outlives the signal context
	pool.Start(context.Background())

	processor := worker.NewProcessor(worker.ProcessorConfig{
		Interval: cfg.ProcessInterval,
		Ratings:  a.Ratings,
		Analyzer: a.Analyzer,
		Logger:   logger,
	})
	processor.Start(ctx)

	checks := map[string]handlers.Check{
		"postgres": a.Store.Ping,
	}
	installers := map[string]handlers.Check{
		"postgres": func(ctx context.Context) error { return store.MigratePostgres(ctx, a.Postgres, sugar) },
	}
	if a.ClickHouse != nil {
		checks["clickhouse"] = a.ClickHouse.Ping
		installers["clickhouse"] = func(ctx context.Context) error { return store.InstallClickHouse(ctx, a.ClickHouse, sugar) }
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}

	h := handlers.New(handlers.Config{
		Queue:          pool,
		Ratings:        a.Ratings,
		Seasons:        a.Seasons,
		Reader:         a.Store,
		Cache:          a.Cache,
		Simulations:    a.Simulations,
		Tournaments:    a.Tournaments,
		Vetoes:         a.Store,
		Analyzer:       a.Analyzer,
		Checks:         checks,
		Installers:     installers,
		DefaultTrials:  cfg.DefaultTrials,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("Server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("Server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("Server shutdown failed", "error", err)
	}
	processor.Stop()
	pool.Stop(shutdownCtx)
	sugar.Info("Server stopped gracefully")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
