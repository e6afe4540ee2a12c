// Package app wires configuration into stores and services for the API and CLI.
package app

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mapelo/forecast-api/internal/config"
	"github.com/mapelo/forecast-api/internal/logic"
	"github.com/mapelo/forecast-api/internal/store"
)

// App holds the connected stores and constructed services
type App struct {
	Config *config.Config
	Logger *zap.Logger

	Postgres   *pgxpool.Pool
	ClickHouse driver.Conn
	Redis      *redis.Client

	Store       *store.Postgres
	Cache       logic.SnapshotCache
	Tournaments logic.TournamentProvider

	Params      logic.RatingParams
	Seasons     *logic.SeasonManager
	Ratings     *logic.RatingEngine
	Engine      *logic.MonteCarloEngine
	Simulations logic.SimulationService
	Analyzer    *logic.OptimalityAnalyzer
}

// New connects to every configured database and builds the services.
// ClickHouse and Redis are skipped when their URLs are empty.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	sugar := logger.Sugar()
	a := &App{Config: cfg, Logger: logger}

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.Postgres = pool

	if cfg.ClickHouseURL != "" {
		opts, err := clickhouse.ParseDSN(cfg.ClickHouseURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
		}
		conn, err := clickhouse.Open(opts)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect clickhouse: %w", err)
		}
		a.ClickHouse = conn
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		a.Redis = redis.NewClient(opts)
		a.Cache = store.NewSnapshotCache(a.Redis, cfg.SnapshotCacheTTL)
	}

	a.Store = store.NewPostgres(pool, store.RetryPolicy{
		Attempts: cfg.StoreRetries,
		Base:     cfg.StoreBackoff,
	}, sugar)
	a.Tournaments = store.NewFileTournaments(cfg.TournamentsDir)

	a.Params = logic.RatingParams{
		Initial:        cfg.InitialRating,
		KFactor:        cfg.KFactor,
		Divisor:        cfg.RatingDivisor,
		MarginConstant: cfg.MarginConstant,
	}

	a.Seasons = logic.NewSeasonManager(logic.SeasonManagerConfig{
		Seasons:   a.Store,
		Teams:     a.Store,
		Ratings:   a.Store,
		Matches:   a.Store,
		Cache:     a.Cache,
		Pools:     logic.DefaultMapPools(),
		Params:    a.Params,
		ResetYear: cfg.ResetYear,
		Logger:    sugar,
	})
	a.Ratings = logic.NewRatingEngine(logic.RatingEngineConfig{
		Matches: a.Store,
		Ratings: a.Store,
		Seasons: a.Store,
		Cache:   a.Cache,
		Params:  a.Params,
		Logger:  sugar,
	})
	a.Engine = logic.NewMonteCarloEngine(logic.NewVetoProtocol(a.Params), cfg.SimWorkers, sugar)
	a.Simulations = logic.NewSimulationService(logic.SimulationServiceConfig{
		Ratings:     a.Store,
		Artifacts:   a.Store,
		Tournaments: a.Tournaments,
		Seasons:     a.Seasons,
		Cache:       a.Cache,
		Engine:      a.Engine,
		Params:      a.Params,
		DefaultSeed: cfg.SimSeed,
		MaxTrials:   cfg.MaxTrials,
		Logger:      sugar,
	})

	analyzerCfg := logic.OptimalityAnalyzerConfig{
		Vetoes:  a.Store,
		Ratings: a.Store,
		Logger:  sugar,
	}
	if a.ClickHouse != nil {
		analyzerCfg.Sink = store.NewOptimalityWriter(a.ClickHouse, sugar)
	}
	a.Analyzer = logic.NewOptimalityAnalyzer(analyzerCfg)

	return a, nil
}

// Migrate applies the PostgreSQL migrations and, when configured, the ClickHouse DDL
func (a *App) Migrate(ctx context.Context) error {
	sugar := a.Logger.Sugar()
	if err := store.MigratePostgres(ctx, a.Postgres, sugar); err != nil {
		return err
	}
	if a.ClickHouse != nil {
		return store.InstallClickHouse(ctx, a.ClickHouse, sugar)
	}
	return nil
}

func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.ClickHouse != nil {
		a.ClickHouse.Close()
	}
	if a.Postgres != nil {
		a.Postgres.Close()
	}
}
