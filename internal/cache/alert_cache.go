package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shopmetrics/stockcast/internal/config"
	"github.com/shopmetrics/stockcast/internal/domain"
)

const restockAlertsKey = "restock:alerts"

// AlertCache holds the latest alert engine output. Alerts are derived
// data, so a short TTL keeps them fresh without hitting the forecast
// tables on every dashboard poll.
type AlertCache interface {
	Get(ctx context.Context) (*domain.AlertSet, bool, error)
	Set(ctx context.Context, set *domain.AlertSet) error
	Invalidate(ctx context.Context) error
}

type redisAlertCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopAlertCache struct{}

func NewAlertCache(cfg config.CacheConfig) (AlertCache, error) {
	if !cfg.Enabled {
		return &noopAlertCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisAlertCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopAlertCache() AlertCache {
	return &noopAlertCache{}
}

func (c *redisAlertCache) Get(ctx context.Context) (*domain.AlertSet, bool, error) {
	payload, err := c.client.Get(ctx, restockAlertsKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var set domain.AlertSet
	if err := json.Unmarshal(payload, &set); err != nil {
		return nil, false, fmt.Errorf("decode restock alerts cache: %w", err)
	}

	return &set, true, nil
}

func (c *redisAlertCache) Set(ctx context.Context, set *domain.AlertSet) error {
	payload, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode restock alerts cache: %w", err)
	}

	if err := c.client.Set(ctx, restockAlertsKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisAlertCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, restockAlertsKey).Err()
}

func (n *noopAlertCache) Get(ctx context.Context) (*domain.AlertSet, bool, error) {
	return nil, false, nil
}

func (n *noopAlertCache) Set(ctx context.Context, set *domain.AlertSet) error {
	return nil
}

func (n *noopAlertCache) Invalidate(ctx context.Context) error {
	return nil
}
