package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port int
	Env  string

	// CORS
	AllowedOrigins []string

	// Database URLs. ClickHouse and Redis are optional.
	PostgresURL   string
	ClickHouseURL string
	RedisURL      string

	// Rating model
	InitialRating  float64
	KFactor        float64
	RatingDivisor  float64
	MarginConstant float64
	ResetYear      int

	// Simulation
	SimWorkers    int
	SimQueueSize  int
	SimSeed       uint64
	DefaultTrials int
	MaxTrials     int

	// Background processing
	ProcessInterval  time.Duration
	SnapshotCacheTTL time.Duration

	// Store retries
	StoreRetries uint64
	StoreBackoff time.Duration

	TournamentsDir string
}

// Load loads configuration from environment variables, reading a .env file first when present.
// It returns an error if critical configuration is missing.
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := &Config{
		Port: getEnvInt("PORT", 8080),
		Env:  getEnv("ENV", "development"),

		ClickHouseURL: getEnv("CLICKHOUSE_URL", ""),
		RedisURL:      getEnv("REDIS_URL", ""),

		InitialRating:  getEnvFloat("INITIAL_RATING", 1000),
		KFactor:        getEnvFloat("K_FACTOR", 74),
		RatingDivisor:  getEnvFloat("RATING_DIVISOR", 2000),
		MarginConstant: getEnvFloat("MARGIN_CONSTANT", 5.95),
		ResetYear:      getEnvInt("RESET_YEAR", 2023),

		SimWorkers:    getEnvInt("SIM_WORKERS", runtime.NumCPU()),
		SimQueueSize:  getEnvInt("SIM_QUEUE_SIZE", 16),
		SimSeed:       getEnvUint64("SIM_SEED", 1),
		DefaultTrials: getEnvInt("DEFAULT_TRIALS", 10000),
		MaxTrials:     getEnvInt("MAX_TRIALS", 1000000),

		ProcessInterval:  getEnvDuration("PROCESS_INTERVAL", 5*time.Minute),
		SnapshotCacheTTL: getEnvDuration("SNAPSHOT_CACHE_TTL", 10*time.Minute),

		StoreRetries: getEnvUint64("STORE_RETRIES", 3),
		StoreBackoff: getEnvDuration("STORE_BACKOFF", 200*time.Millisecond),

		TournamentsDir: getEnv("TOURNAMENTS_DIR", "tournaments"),
	}

	// CORS
	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:3000")
	for _, o := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	// Critical configuration - fail if missing
	var err error
	if cfg.PostgresURL, err = getEnvRequired("POSTGRES_URL"); err != nil {
		return nil, err
	}

	if cfg.RatingDivisor <= 0 {
		return nil, fmt.Errorf("RATING_DIVISOR must be positive, got %v", cfg.RatingDivisor)
	}
	if cfg.MarginConstant <= 0 {
		return nil, fmt.Errorf("MARGIN_CONSTANT must be positive, got %v", cfg.MarginConstant)
	}
	if cfg.SimWorkers < 1 {
		cfg.SimWorkers = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvRequired(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("missing required environment variable: %s", key)
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvUint64(key string, fallback uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseUint(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
