package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed caching utilities
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Enabled reports whether the backing client is live
func (c *Cache) Enabled() bool {
	return c.client.Enabled()
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
}

// Counter reads an integer counter; a missing counter is 0
func (c *Cache) Counter(ctx context.Context, key string) (int64, error) {
	if !c.client.Enabled() {
		return 0, nil
	}

	n, err := c.client.Redis().Get(ctx, c.fullKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Incr bumps an integer counter and returns the new value
func (c *Cache) Incr(ctx context.Context, key string) (int64, error) {
	if !c.client.Enabled() {
		return 0, nil
	}

	return c.client.Redis().Incr(ctx, c.fullKey(key)).Result()
}

// TTLForecast bounds cached forecasts; the date is part of the key
const TTLForecast = 6 * time.Hour

// ForecastGenerationKey is bumped whenever history changes
const ForecastGenerationKey = "forecast:generation"

// ForecastKey addresses one cached forecast
func ForecastKey(date, configHash string, generation int64, productID int, locationKey string) string {
	return fmt.Sprintf("forecast:%s:%s:g%d:%d:%s", date, configHash, generation, productID, locationKey)
}

// ForecastLocationKey addresses one cached location listing
func ForecastLocationKey(date, configHash string, generation int64, locationKey string) string {
	return fmt.Sprintf("forecast:%s:%s:g%d:all:%s", date, configHash, generation, locationKey)
}
