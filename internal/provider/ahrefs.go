package provider

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/user/backlink-service/internal/entity"
	"github.com/user/backlink-service/internal/repository"
	"github.com/user/backlink-service/pkg/config"
)

// Ahrefs resolves domain and URL ratings. The API takes one target per call.
type Ahrefs struct {
	apiKey   string
	endpoint string
	cacheTTL time.Duration
	client   HTTPClient
	cache    repository.MetricsCache
}

func NewAhrefs(cfg *config.Config, client HTTPClient, cache repository.MetricsCache) *Ahrefs {
	return &Ahrefs{
		apiKey:   strings.TrimSpace(cfg.AhrefsAPIKey),
		endpoint: strings.TrimRight(cfg.AhrefsAPIEndpoint, "/"),
		cacheTTL: time.Duration(cfg.AhrefsCacheTTL) * time.Second,
		client:   client,
		cache:    cache,
	}
}

type ahrefsResponse struct {
	Domain struct {
		DomainRating *float64 `json:"domain_rating"`
		URLRating    *float64 `json:"url_rating"`
	} `json:"domain"`
}

func (a *Ahrefs) FetchMetrics(ctx context.Context, urls []string) map[string]entity.Metric {
	results := make(map[string]entity.Metric, len(urls))
	pending := splitCached(ctx, a.cache, NameAhrefs, urls, results)
	if len(pending) == 0 {
		return results
	}

	if a.apiKey == "" {
		errorAll(pending, results, "Ahrefs API key not configured")
		return results
	}

	for _, target := range pending {
		endpoint := a.endpoint +
			"?token=" + url.QueryEscape(a.apiKey) +
			"&target=" + url.QueryEscape(target) +
			"&from=domain_rating&mode=domain&output=json"

		res := a.client.PostJSON(ctx, endpoint, map[string]any{}, nil)
		if !res.OK || res.Status >= 400 {
			results[target] = entity.Metric{Status: entity.MetricStatusError, Err: "Ahrefs API error"}
			continue
		}

		var decoded ahrefsResponse
		if err := json.Unmarshal(res.Body, &decoded); err != nil {
			results[target] = entity.Metric{Status: entity.MetricStatusError, Err: "Ahrefs response is not valid JSON"}
			continue
		}

		pa := roundPtr(decoded.Domain.URLRating)
		da := roundPtr(decoded.Domain.DomainRating)

		results[target] = entity.Metric{PA: pa, DA: da, Status: entity.MetricStatusOK}
		_ = a.cache.Put(ctx, NameAhrefs, target, entity.CachedMetric{PA: pa, DA: da}, a.cacheTTL)
	}

	return results
}

func (a *Ahrefs) Healthcheck() Health {
	return Health{Provider: NameAhrefs, Configured: a.apiKey != "", Endpoint: a.endpoint}
}
