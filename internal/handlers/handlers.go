package handlers

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mapelo/forecast-api/internal/logic"
	"github.com/mapelo/forecast-api/internal/models"
)

// MaxBodySize limits the size of request bodies to 1MB
const MaxBodySize = 1048576

// SimulationQueue defines the interface for the asynchronous simulation pool
type SimulationQueue interface {
	Enqueue(req models.RunSimulationRequest) (uuid.UUID, bool)
	Status(id uuid.UUID) (models.SimulationJobStatus, bool)
	QueueDepth() int
}

// RatingService is the rating engine surface exposed over HTTP
type RatingService interface {
	ProcessPending(ctx context.Context) (*models.ProcessSummary, error)
	RatingAt(ctx context.Context, teamID int64, mapName string, t time.Time) (float64, error)
}

// SeasonService is the season lifecycle surface exposed over HTTP
type SeasonService interface {
	CreateSeason(ctx context.Context, year int) (*models.Season, int, error)
	EnsureActive(ctx context.Context) (*models.Season, error)
	ResetAll(ctx context.Context, confirm string) (*models.ResetSummary, error)
}

// RatingReader serves read-only rating and season views
type RatingReader interface {
	Snapshot(ctx context.Context, seasonID int64) ([]models.CurrentRating, error)
	Seasons(ctx context.Context) ([]models.Season, error)
}

type VetoAnalyzer interface {
	Analyze(ctx context.Context, since time.Time) (*models.OptimalityReport, error)
}

// Check reports whether a dependency is healthy
type Check func(ctx context.Context) error

type Config struct {
	Queue       SimulationQueue
	Ratings     RatingService
	Seasons     SeasonService
	Reader      RatingReader
	Cache       logic.SnapshotCache
	Simulations logic.SimulationService
	Tournaments logic.TournamentProvider
	Vetoes      logic.VetoStore
	FirstMover  logic.FirstMoverResolver
	Analyzer    VetoAnalyzer
	// Checks are probed by the readiness endpoint, keyed by dependency name
	Checks map[string]Check
	// Installers create database schemas, keyed by database name
	Installers     map[string]Check
	DefaultTrials  int
	AllowedOrigins []string
	Logger         *zap.Logger
}

type Handler struct {
	queue          SimulationQueue
	ratings        RatingService
	seasons        SeasonService
	reader         RatingReader
	cache          logic.SnapshotCache
	simulations    logic.SimulationService
	tournaments    logic.TournamentProvider
	vetoes         logic.VetoStore
	firstMover     logic.FirstMoverResolver
	analyzer       VetoAnalyzer
	checks         map[string]Check
	installers     map[string]Check
	defaultTrials  int
	allowedOrigins []string
	logger         *zap.SugaredLogger
	validator      *validator.Validate
}

func New(cfg Config) *Handler {
	if cfg.FirstMover == nil {
		cfg.FirstMover = logic.RecordedActorResolver{}
	}
	if cfg.DefaultTrials <= 0 {
		cfg.DefaultTrials = 10000
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Handler{
		queue:          cfg.Queue,
		ratings:        cfg.Ratings,
		seasons:        cfg.Seasons,
		reader:         cfg.Reader,
		cache:          cfg.Cache,
		simulations:    cfg.Simulations,
		tournaments:    cfg.Tournaments,
		vetoes:         cfg.Vetoes,
		firstMover:     cfg.FirstMover,
		analyzer:       cfg.Analyzer,
		checks:         cfg.Checks,
		installers:     cfg.Installers,
		defaultTrials:  cfg.DefaultTrials,
		allowedOrigins: cfg.AllowedOrigins,
		logger:         cfg.Logger.Sugar(),
		validator:      validator.New(),
	}
}
