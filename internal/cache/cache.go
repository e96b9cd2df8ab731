// Package cache provides a Redis-backed read-through cache for rendered
// reports. Cache failures degrade to the database; they are never surfaced
// to callers as request errors.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/visionclaim/claims-engine/internal/config"
)

// ErrMiss is returned when a report is not cached.
var ErrMiss = errors.New("cache miss")

const keyPrefix = "claims-engine:report:"

// ReportCache caches serialized report documents by report ID.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New connects to Redis and returns a report cache.
func New(cfg config.RedisConfig, logger *slog.Logger) (*ReportCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &ReportCache{client: client, ttl: cfg.ReportTTL, logger: logger}, nil
}

// Get returns the cached document for a report ID, or ErrMiss.
func (c *ReportCache) Get(ctx context.Context, reportID string) ([]byte, error) {
	data, err := c.client.Get(ctx, keyPrefix+reportID).Bytes()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read report cache: %w", err)
	}
	return data, nil
}

// Set stores a report document with the configured TTL.
func (c *ReportCache) Set(ctx context.Context, reportID string, document []byte) {
	if err := c.client.Set(ctx, keyPrefix+reportID, document, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to cache report", "report_id", reportID, "error", err)
	}
}

// Close releases the Redis connection.
func (c *ReportCache) Close() error {
	return c.client.Close()
}
