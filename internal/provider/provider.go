// Package provider fetches page- and domain-authority scores from external
// scoring services, consulting a shared TTL cache first. Providers are
// interchangeable behind one interface and selected by configuration.
package provider

import (
	"context"
	"fmt"

	"github.com/user/backlink-service/internal/entity"
	"github.com/user/backlink-service/internal/fetcher"
	"github.com/user/backlink-service/internal/repository"
	"github.com/user/backlink-service/pkg/config"
)

// Provider names.
const (
	NameMoz      = "moz"
	NameAhrefs   = "ahrefs"
	NameSemrush  = "semrush"
	NameMajestic = "majestic"
)

// Provider resolves authority metrics for a batch of URLs. A failing lookup
// yields a per-URL error status; one bad URL never fails the whole batch.
type Provider interface {
	FetchMetrics(ctx context.Context, urls []string) map[string]entity.Metric
	Healthcheck() Health
}

// Health describes a provider's configuration state.
type Health struct {
	Provider   string `json:"provider"`
	Configured bool   `json:"configured"`
	Endpoint   string `json:"endpoint"`
}

// HTTPClient is the slice of the outbound fetcher providers need.
type HTTPClient interface {
	PostJSON(ctx context.Context, url string, payload any, headers map[string]string) fetcher.Result
}

// New selects a provider implementation by name.
func New(name string, cfg *config.Config, client HTTPClient, cache repository.MetricsCache) (Provider, error) {
	switch name {
	case NameMoz:
		return NewMoz(cfg, client, cache), nil
	case NameAhrefs:
		return NewAhrefs(cfg, client, cache), nil
	case NameSemrush:
		return NewSemrush(cfg, client, cache), nil
	case NameMajestic:
		return NewMajestic(cfg, client, cache), nil
	default:
		return nil, fmt.Errorf("unknown metrics provider %q", name)
	}
}

// splitCached partitions urls into cache hits (already placed into results
// with status "cached") and a pending list. Cache read errors count as misses.
func splitCached(ctx context.Context, cache repository.MetricsCache, name string, urls []string, results map[string]entity.Metric) []string {
	var pending []string
	for _, u := range urls {
		cached, err := cache.Get(ctx, name, u)
		if err == nil && cached != nil {
			results[u] = entity.Metric{
				PA:     cached.PA,
				DA:     cached.DA,
				Status: entity.MetricStatusCached,
			}
			continue
		}
		pending = append(pending, u)
	}
	return pending
}

func errorAll(urls []string, results map[string]entity.Metric, msg string) {
	for _, u := range urls {
		results[u] = entity.Metric{Status: entity.MetricStatusError, Err: msg}
	}
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func roundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := round2(*v)
	return &r
}
