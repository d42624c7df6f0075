package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

const analyticsKeyPrefix = "testhub:analytics:"

// AnalyticsCache keeps JSON snapshots of per-test analytics in redis.
type AnalyticsCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewAnalyticsCache(rdb *redis.Client, ttl time.Duration) *AnalyticsCache {
	return &AnalyticsCache{Redis: rdb, TTL: ttl}
}

func analyticsKey(testID string) string {
	return analyticsKeyPrefix + testID
}

// Get decodes the cached value into dest and reports whether it was present.
func (c *AnalyticsCache) Get(ctx context.Context, testID string, dest interface{}) (bool, error) {
	raw, err := c.Redis.Get(ctx, analyticsKey(testID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *AnalyticsCache) Set(ctx context.Context, testID string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Redis.Set(ctx, analyticsKey(testID), raw, c.TTL).Err()
}

func (c *AnalyticsCache) Invalidate(ctx context.Context, testID string) error {
	return c.Redis.Del(ctx, analyticsKey(testID)).Err()
}
