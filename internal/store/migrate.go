package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/postgres/*.sql migrations/clickhouse/*.sql
var embedMigrations embed.FS

// MigratePostgres applies the embedded goose migrations through the pool
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool, logger *zap.SugaredLogger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations/postgres"); err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}

	logger.Infow("successfully installed schema", "db", "PostgreSQL")
	return nil
}

// ClickHouseExecer is satisfied by driver.Conn
type ClickHouseExecer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

var _ ClickHouseExecer = driver.Conn(nil)

// InstallClickHouse executes the embedded ClickHouse DDL one statement at a time
func InstallClickHouse(ctx context.Context, ch ClickHouseExecer, logger *zap.SugaredLogger) error {
	files, err := fs.Glob(embedMigrations, "migrations/clickhouse/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, name := range files {
		content, err := embedMigrations.ReadFile(name)
		if err != nil {
			logger.Errorw("failed to read schema file", "db", "ClickHouse", "path", name, "error", err)
			return err
		}
		for _, stmt := range strings.Split(string(content), ";") {
			trimmed := strings.TrimSpace(stmt)
			if trimmed == "" {
				continue
			}
			if err := ch.Exec(ctx, trimmed); err != nil {
				logger.Warnw("statement execution warning", "db", "ClickHouse", "file", name, "error", err,
					"statement", trimmed[:min(len(trimmed), 50)]+"...")
				return err
			}
		}
	}

	logger.Infow("successfully installed schema", "db", "ClickHouse", "files", len(files))
	return nil
}
