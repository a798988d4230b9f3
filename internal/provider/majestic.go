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

// Majestic resolves TrustFlow/CitationFlow; TrustFlow maps to the domain
// score and CitationFlow to the page score.
type Majestic struct {
	apiKey   string
	endpoint string
	cacheTTL time.Duration
	client   HTTPClient
	cache    repository.MetricsCache
}

func NewMajestic(cfg *config.Config, client HTTPClient, cache repository.MetricsCache) *Majestic {
	return &Majestic{
		apiKey:   strings.TrimSpace(cfg.MajesticAPIKey),
		endpoint: strings.TrimRight(cfg.MajesticAPIEndpoint, "/"),
		cacheTTL: time.Duration(cfg.MajesticCacheTTL) * time.Second,
		client:   client,
		cache:    cache,
	}
}

type majesticResponse struct {
	DataTables struct {
		Results struct {
			Data []struct {
				TrustFlow    *float64 `json:"TrustFlow"`
				CitationFlow *float64 `json:"CitationFlow"`
			} `json:"Data"`
		} `json:"Results"`
	} `json:"DataTables"`
}

func (m *Majestic) FetchMetrics(ctx context.Context, urls []string) map[string]entity.Metric {
	results := make(map[string]entity.Metric, len(urls))
	pending := splitCached(ctx, m.cache, NameMajestic, urls, results)
	if len(pending) == 0 {
		return results
	}

	if m.apiKey == "" {
		errorAll(pending, results, "Majestic API key not configured")
		return results
	}

	for _, target := range pending {
		host := hostOrSelf(target)
		endpoint := m.endpoint +
			"?app_api_key=" + url.QueryEscape(m.apiKey) +
			"&cmd=GetIndexItemInfo" +
			"&items=1&item0=" + url.QueryEscape(host) +
			"&datasource=fresh"

		res := m.client.PostJSON(ctx, endpoint, map[string]any{}, nil)
		if !res.OK || res.Status >= 400 {
			results[target] = entity.Metric{Status: entity.MetricStatusError, Err: "Majestic API error"}
			continue
		}

		var decoded majesticResponse
		if err := json.Unmarshal(res.Body, &decoded); err != nil || len(decoded.DataTables.Results.Data) == 0 {
			results[target] = entity.Metric{Status: entity.MetricStatusError, Err: "Majestic response missing data"}
			continue
		}

		item := decoded.DataTables.Results.Data[0]
		pa := roundPtr(item.CitationFlow)
		da := roundPtr(item.TrustFlow)

		results[target] = entity.Metric{PA: pa, DA: da, Status: entity.MetricStatusOK}
		_ = m.cache.Put(ctx, NameMajestic, target, entity.CachedMetric{PA: pa, DA: da}, m.cacheTTL)
	}

	return results
}

func (m *Majestic) Healthcheck() Health {
	return Health{Provider: NameMajestic, Configured: m.apiKey != "", Endpoint: m.endpoint}
}
