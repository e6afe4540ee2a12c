package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mapelo/forecast-api/internal/models"
)

// RedisClient is the subset of *redis.Client used by the snapshot cache
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SnapshotCache keeps per-season current snapshots in Redis as JSON
type SnapshotCache struct {
	rdb RedisClient
	ttl time.Duration
}

func NewSnapshotCache(rdb RedisClient, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{rdb: rdb, ttl: ttl}
}

func snapshotKey(seasonID int64) string {
	return fmt.Sprintf("mapelo:snapshot:%d", seasonID)
}

func (c *SnapshotCache) Get(ctx context.Context, seasonID int64) ([]models.CurrentRating, bool, error) {
	raw, err := c.rdb.Get(ctx, snapshotKey(seasonID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var rows []models.CurrentRating
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, false, fmt.Errorf("decode cached snapshot: %w", err)
	}
	return rows, true, nil
}

func (c *SnapshotCache) Put(ctx context.Context, seasonID int64, rows []models.CurrentRating) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, snapshotKey(seasonID), raw, c.ttl).Err()
}

func (c *SnapshotCache) Invalidate(ctx context.Context, seasonID int64) error {
	return c.rdb.Del(ctx, snapshotKey(seasonID)).Err()
}
