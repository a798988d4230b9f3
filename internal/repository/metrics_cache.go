package repository

import (
	"context"
	"time"

	"github.com/user/backlink-service/internal/entity"
)

// MetricsCache stores provider lookups under a TTL. An expired entry is
// absent; concurrent writes to one key resolve as last write wins.
type MetricsCache interface {
	// Get returns the cached value for (provider, key), or (nil, nil) on a miss.
	Get(ctx context.Context, provider, key string) (*entity.CachedMetric, error)

	// Put stores or refreshes the value with the given TTL.
	Put(ctx context.Context, provider, key string, value entity.CachedMetric, ttl time.Duration) error
}
