package provider

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/backlink-service/internal/entity"
	"github.com/user/backlink-service/internal/fetcher"
	"github.com/user/backlink-service/pkg/config"
)

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]entity.CachedMetric
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]entity.CachedMetric{}}
}

func (c *fakeCache) Get(_ context.Context, provider, key string) (*entity.CachedMetric, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.entries[provider+":"+key]; ok {
		return &v, nil
	}
	return nil, nil
}

func (c *fakeCache) Put(_ context.Context, provider, key string, value entity.CachedMetric, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[provider+":"+key] = value
	c.puts++
	return nil
}

type fakePoster struct {
	res   fetcher.Result
	calls int
	urls  []string
}

func (p *fakePoster) PostJSON(_ context.Context, url string, _ any, _ map[string]string) fetcher.Result {
	p.calls++
	p.urls = append(p.urls, url)
	return p.res
}

func mozConfig() *config.Config {
	return &config.Config{
		MozAccessID:        "id",
		MozSecretKey:       "secret",
		MozAPIEndpoint:     "https://lsapi.seomoz.com/v2/url_metrics",
		MozCacheTTLSeconds: 60,
	}
}

func TestMozMissingCredentials(t *testing.T) {
	moz := NewMoz(&config.Config{MozAPIEndpoint: "https://api.moz.test"}, &fakePoster{}, newFakeCache())

	out := moz.FetchMetrics(context.Background(), []string{"https://a.test/", "https://b.test/"})

	require.Len(t, out, 2)
	for _, m := range out {
		assert.Equal(t, entity.MetricStatusError, m.Status)
		assert.Contains(t, m.Err, "credentials")
	}
	assert.False(t, moz.Healthcheck().Configured)
}

func TestMozBatchedFetchAndCacheWriteback(t *testing.T) {
	poster := &fakePoster{res: fetcher.Result{
		OK:     true,
		Status: http.StatusOK,
		Body:   []byte(`{"results":[{"page_authority":41.237,"domain_authority":52.9}]}`),
	}}
	cache := newFakeCache()
	moz := NewMoz(mozConfig(), poster, cache)

	out := moz.FetchMetrics(context.Background(), []string{"https://a.test/"})

	require.Contains(t, out, "https://a.test/")
	m := out["https://a.test/"]
	assert.Equal(t, entity.MetricStatusOK, m.Status)
	require.NotNil(t, m.PA)
	require.NotNil(t, m.DA)
	assert.InDelta(t, 41.24, *m.PA, 0.001)
	assert.InDelta(t, 52.9, *m.DA, 0.001)
	assert.Equal(t, 1, poster.calls, "batch must be a single API call")
	assert.Equal(t, 1, cache.puts)
}

func TestMozServesCachedWithoutAPICall(t *testing.T) {
	poster := &fakePoster{}
	cache := newFakeCache()
	da := 33.0
	cache.entries["moz:https://a.test/"] = entity.CachedMetric{DA: &da}
	moz := NewMoz(mozConfig(), poster, cache)

	out := moz.FetchMetrics(context.Background(), []string{"https://a.test/"})

	assert.Equal(t, entity.MetricStatusCached, out["https://a.test/"].Status)
	assert.Zero(t, poster.calls)
}

func TestMozUpstreamFailureMarksPendingOnly(t *testing.T) {
	poster := &fakePoster{res: fetcher.Result{Status: http.StatusBadGateway, Err: "upstream server error"}}
	cache := newFakeCache()
	da := 10.0
	cache.entries["moz:https://cached.test/"] = entity.CachedMetric{DA: &da}
	moz := NewMoz(mozConfig(), poster, cache)

	out := moz.FetchMetrics(context.Background(), []string{"https://cached.test/", "https://fresh.test/"})

	assert.Equal(t, entity.MetricStatusCached, out["https://cached.test/"].Status)
	assert.Equal(t, entity.MetricStatusError, out["https://fresh.test/"].Status)
}

func TestMozShortResponseMarksMissingRows(t *testing.T) {
	poster := &fakePoster{res: fetcher.Result{
		OK:     true,
		Status: http.StatusOK,
		Body:   []byte(`{"results":[{"domain_authority":11}]}`),
	}}
	moz := NewMoz(mozConfig(), poster, newFakeCache())

	out := moz.FetchMetrics(context.Background(), []string{"https://a.test/", "https://b.test/"})

	assert.Equal(t, entity.MetricStatusOK, out["https://a.test/"].Status)
	assert.Equal(t, entity.MetricStatusError, out["https://b.test/"].Status)
}

func TestAhrefsPerURLLookups(t *testing.T) {
	poster := &fakePoster{res: fetcher.Result{
		OK:     true,
		Status: http.StatusOK,
		Body:   []byte(`{"domain":{"domain_rating":71.5,"url_rating":12.3}}`),
	}}
	cfg := &config.Config{AhrefsAPIKey: "key", AhrefsAPIEndpoint: "https://apiv2.ahrefs.com", AhrefsCacheTTL: 60}
	ahrefs := NewAhrefs(cfg, poster, newFakeCache())

	out := ahrefs.FetchMetrics(context.Background(), []string{"https://a.test/", "https://b.test/"})

	assert.Equal(t, 2, poster.calls)
	for _, m := range out {
		require.Equal(t, entity.MetricStatusOK, m.Status)
		assert.InDelta(t, 71.5, *m.DA, 0.001)
		assert.InDelta(t, 12.3, *m.PA, 0.001)
	}
}

func TestSemrushDomainScoreOnly(t *testing.T) {
	poster := &fakePoster{res: fetcher.Result{
		OK:     true,
		Status: http.StatusOK,
		Body:   []byte(`{"authority_score":44.0}`),
	}}
	cfg := &config.Config{SemrushAPIKey: "key", SemrushAPIEndpoint: "https://api.semrush.com", SemrushCacheTTL: 60}
	semrush := NewSemrush(cfg, poster, newFakeCache())

	out := semrush.FetchMetrics(context.Background(), []string{"https://a.test/page"})

	m := out["https://a.test/page"]
	require.Equal(t, entity.MetricStatusOK, m.Status)
	assert.Nil(t, m.PA)
	assert.InDelta(t, 44.0, *m.DA, 0.001)
}

func TestMajesticFlowMapping(t *testing.T) {
	poster := &fakePoster{res: fetcher.Result{
		OK:     true,
		Status: http.StatusOK,
		Body:   []byte(`{"DataTables":{"Results":{"Data":[{"TrustFlow":28,"CitationFlow":35}]}}}`),
	}}
	cfg := &config.Config{MajesticAPIKey: "key", MajesticAPIEndpoint: "https://api.majestic.com/api/json", MajesticCacheTTL: 60}
	majestic := NewMajestic(cfg, poster, newFakeCache())

	out := majestic.FetchMetrics(context.Background(), []string{"https://a.test/"})

	m := out["https://a.test/"]
	require.Equal(t, entity.MetricStatusOK, m.Status)
	assert.InDelta(t, 28.0, *m.DA, 0.001)
	assert.InDelta(t, 35.0, *m.PA, 0.001)
}

func TestFactory(t *testing.T) {
	cfg := &config.Config{}
	client := &fakePoster{}
	cache := newFakeCache()

	for _, name := range []string{NameMoz, NameAhrefs, NameSemrush, NameMajestic} {
		p, err := New(name, cfg, client, cache)
		require.NoError(t, err)
		assert.Equal(t, name, p.Healthcheck().Provider)
	}

	_, err := New("unknown", cfg, client, cache)
	assert.Error(t, err)
}
