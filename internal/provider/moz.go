package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/user/backlink-service/internal/entity"
	"github.com/user/backlink-service/internal/repository"
	"github.com/user/backlink-service/pkg/config"
)

// Moz resolves page and domain authority through the Moz URL-metrics API,
// which accepts a whole batch of targets in one call.
type Moz struct {
	accessID string
	secret   string
	endpoint string
	cacheTTL time.Duration
	client   HTTPClient
	cache    repository.MetricsCache
}

func NewMoz(cfg *config.Config, client HTTPClient, cache repository.MetricsCache) *Moz {
	return &Moz{
		accessID: strings.TrimSpace(cfg.MozAccessID),
		secret:   strings.TrimSpace(cfg.MozSecretKey),
		endpoint: cfg.MozAPIEndpoint,
		cacheTTL: time.Duration(cfg.MozCacheTTLSeconds) * time.Second,
		client:   client,
		cache:    cache,
	}
}

type mozResponse struct {
	Results []struct {
		PageAuthority   *float64 `json:"page_authority"`
		DomainAuthority *float64 `json:"domain_authority"`
	} `json:"results"`
}

func (m *Moz) FetchMetrics(ctx context.Context, urls []string) map[string]entity.Metric {
	results := make(map[string]entity.Metric, len(urls))
	pending := splitCached(ctx, m.cache, NameMoz, urls, results)
	if len(pending) == 0 {
		return results
	}

	if m.accessID == "" || m.secret == "" {
		errorAll(pending, results, "Moz credentials are not configured")
		return results
	}

	auth := "Basic " + base64.StdEncoding.EncodeToString([]byte(m.accessID+":"+m.secret))
	res := m.client.PostJSON(ctx, m.endpoint,
		map[string]any{"targets": pending},
		map[string]string{"Authorization": auth})

	if !res.OK || res.Status >= 400 {
		msg := res.Err
		if msg == "" {
			msg = "Moz API request failed"
		}
		errorAll(pending, results, msg)
		return results
	}

	var decoded mozResponse
	if err := json.Unmarshal(res.Body, &decoded); err != nil {
		errorAll(pending, results, "Moz response is not valid JSON")
		return results
	}

	// Rows come back in request order, one per target.
	for i, u := range pending {
		if i >= len(decoded.Results) {
			results[u] = entity.Metric{Status: entity.MetricStatusError, Err: "Moz response missing row"}
			continue
		}

		row := decoded.Results[i]
		pa := roundPtr(row.PageAuthority)
		da := roundPtr(row.DomainAuthority)

		results[u] = entity.Metric{PA: pa, DA: da, Status: entity.MetricStatusOK}
		_ = m.cache.Put(ctx, NameMoz, u, entity.CachedMetric{PA: pa, DA: da}, m.cacheTTL)
	}

	return results
}

func (m *Moz) Healthcheck() Health {
	return Health{
		Provider:   NameMoz,
		Configured: m.accessID != "" && m.secret != "",
		Endpoint:   m.endpoint,
	}
}
