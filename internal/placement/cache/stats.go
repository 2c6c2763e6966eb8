// Package cache holds the Redis-backed dashboard stats cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gartstein/placement/internal/placement/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const statsKey = "placement:dashboard:stats"

// Observer receives cache lookup results ("hit", "miss", "error").
type Observer interface {
	IncrementCacheLookup(result string)
}

// NewClient connects to the Redis server at url. Returns nil if the URL is
// empty (Redis not configured).
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// StatsCache caches the dashboard counters for a short TTL. Concurrent
// misses share a single load. Redis failures degrade to loading from the
// store.
type StatsCache struct {
	client   redis.Cmdable
	ttl      time.Duration
	group    singleflight.Group
	logger   *zap.Logger
	observer Observer
}

// NewStatsCache creates a StatsCache. A nil client disables caching.
func NewStatsCache(client *redis.Client, ttl time.Duration, logger *zap.Logger, observer Observer) *StatsCache {
	c := &StatsCache{
		ttl:      ttl,
		logger:   logger.Named("stats_cache"),
		observer: observer,
	}
	if client != nil {
		c.client = client
	}
	return c
}

// Stats returns the cached counters, calling load on a miss.
func (c *StatsCache) Stats(ctx context.Context, load func(context.Context) (*models.DashboardStats, error)) (*models.DashboardStats, error) {
	if c.client == nil {
		return load(ctx)
	}

	raw, err := c.client.Get(ctx, statsKey).Bytes()
	switch {
	case err == nil:
		var stats models.DashboardStats
		if err := json.Unmarshal(raw, &stats); err == nil {
			c.observe("hit")
			return &stats, nil
		}
		c.logger.Warn("Discarding malformed cached stats")
		c.observe("miss")
	case errors.Is(err, redis.Nil):
		c.observe("miss")
	default:
		c.logger.Warn("Failed to read cached stats", zap.Error(err))
		c.observe("error")
	}

	v, err, _ := c.group.Do(statsKey, func() (interface{}, error) {
		stats, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.store(ctx, stats)
		return stats, nil
	})
	if err != nil {
		return nil, err
	}
	stats := *v.(*models.DashboardStats)
	return &stats, nil
}

func (c *StatsCache) store(ctx context.Context, stats *models.DashboardStats) {
	raw, err := json.Marshal(stats)
	if err != nil {
		c.logger.Error("Failed to serialize stats", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, statsKey, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to cache stats", zap.Error(err))
	}
}

// Invalidate drops the cached counters.
func (c *StatsCache) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, statsKey).Err(); err != nil {
		c.logger.Warn("Failed to invalidate cached stats", zap.Error(err))
	}
}

func (c *StatsCache) observe(result string) {
	if c.observer != nil {
		c.observer.IncrementCacheLookup(result)
	}
}
