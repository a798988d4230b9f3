package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/backlink-service/internal/entity"
	"github.com/user/backlink-service/pkg/utils"
)

const metricKeyPrefix = "metrics:"

// MetricsCacheImpl provides a concrete implementation for the MetricsCache
// interface using Redis keys with native expiry.
type MetricsCacheImpl struct {
	client *redis.Client
}

// NewMetricsCache creates a new instance of MetricsCacheImpl.
func NewMetricsCache(client *redis.Client) *MetricsCacheImpl {
	return &MetricsCacheImpl{client: client}
}

// generateKey creates a consistent Redis key for a (provider, lookup key) pair
// by hashing the lookup key.
func (r *MetricsCacheImpl) generateKey(provider, key string) string {
	return fmt.Sprintf("%s%s:%s", metricKeyPrefix, provider, utils.HashKey(key))
}

// Get returns the cached metric for the pair, or (nil, nil) when the key is
// absent or expired.
func (r *MetricsCacheImpl) Get(ctx context.Context, provider, key string) (*entity.CachedMetric, error) {
	raw, err := r.client.Get(ctx, r.generateKey(provider, key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cached entity.CachedMetric
	if err := json.Unmarshal(raw, &cached); err != nil {
		// A corrupt entry behaves like a miss; the next Put overwrites it.
		return nil, nil
	}
	return &cached, nil
}

// Put stores the metric under the provider-scoped key. SET with expiry is
// atomic, so concurrent writers resolve as last write wins.
func (r *MetricsCacheImpl) Put(ctx context.Context, provider, key string, value entity.CachedMetric, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.generateKey(provider, key), raw, ttl).Err()
}
