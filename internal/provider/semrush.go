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

// Semrush resolves a single authority score per domain; it is recorded as the
// domain-level score and the page-level score stays unset.
type Semrush struct {
	apiKey   string
	endpoint string
	cacheTTL time.Duration
	client   HTTPClient
	cache    repository.MetricsCache
}

func NewSemrush(cfg *config.Config, client HTTPClient, cache repository.MetricsCache) *Semrush {
	return &Semrush{
		apiKey:   strings.TrimSpace(cfg.SemrushAPIKey),
		endpoint: strings.TrimRight(cfg.SemrushAPIEndpoint, "/"),
		cacheTTL: time.Duration(cfg.SemrushCacheTTL) * time.Second,
		client:   client,
		cache:    cache,
	}
}

type semrushResponse struct {
	AuthorityScore *float64 `json:"authority_score"`
}

func (s *Semrush) FetchMetrics(ctx context.Context, urls []string) map[string]entity.Metric {
	results := make(map[string]entity.Metric, len(urls))
	pending := splitCached(ctx, s.cache, NameSemrush, urls, results)
	if len(pending) == 0 {
		return results
	}

	if s.apiKey == "" {
		errorAll(pending, results, "SEMrush API key not configured")
		return results
	}

	for _, target := range pending {
		host := hostOrSelf(target)
		endpoint := s.endpoint +
			"/?type=domain_rank&key=" + url.QueryEscape(s.apiKey) +
			"&domain=" + url.QueryEscape(host) +
			"&database=us&export_columns=Dn,Rk,Or"

		res := s.client.PostJSON(ctx, endpoint, map[string]any{}, nil)
		if !res.OK || res.Status >= 400 {
			results[target] = entity.Metric{Status: entity.MetricStatusError, Err: "SEMrush API error"}
			continue
		}

		var decoded semrushResponse
		if err := json.Unmarshal(res.Body, &decoded); err != nil {
			results[target] = entity.Metric{Status: entity.MetricStatusError, Err: "SEMrush response is not valid JSON"}
			continue
		}

		da := roundPtr(decoded.AuthorityScore)

		results[target] = entity.Metric{DA: da, Status: entity.MetricStatusOK}
		_ = s.cache.Put(ctx, NameSemrush, target, entity.CachedMetric{DA: da}, s.cacheTTL)
	}

	return results
}

func (s *Semrush) Healthcheck() Health {
	return Health{Provider: NameSemrush, Configured: s.apiKey != "", Endpoint: s.endpoint}
}

func hostOrSelf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return u.Hostname()
}
