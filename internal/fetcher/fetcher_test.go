package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	return New(Options{
		ConnectTimeout: 2 * time.Second,
		Timeout:        2 * time.Second,
		MaxRedirects:   3,
		AllowPrivate:   true,
	})
}

func TestGetWithRedirectsRecordsChain(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/hop", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/hop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("done"))
	})

	res := testClient().GetWithRedirects(context.Background(), srv.URL+"/start")

	require.True(t, res.OK)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, []string{srv.URL + "/hop", srv.URL + "/final"}, res.RedirectChain)
	assert.Equal(t, srv.URL+"/final", res.FinalURL)
	assert.Equal(t, "done", string(res.Body))
}

func TestGetWithRedirectsHopLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer srv.Close()

	res := testClient().GetWithRedirects(context.Background(), srv.URL+"/loop")

	assert.False(t, res.OK)
	assert.Equal(t, "too many redirects", res.Err)
	assert.Len(t, res.RedirectChain, 4) // maxRedirects + the hop that exceeded it
}

func TestGetWithRedirectsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	res := testClient().GetWithRedirects(context.Background(), srv.URL)

	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Err)
}

func TestPostJSONSoftErrorOn5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	res := testClient().PostJSON(context.Background(), srv.URL, map[string]string{"a": "b"}, nil)

	assert.False(t, res.OK)
	assert.Equal(t, http.StatusBadGateway, res.Status)
	assert.Equal(t, "upstream server error", res.Err)
}

func TestPostJSONSendsBodyAndHeaders(t *testing.T) {
	var gotContentType, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	res := testClient().PostJSON(context.Background(), srv.URL,
		map[string]any{"targets": []string{"https://example.com/"}},
		map[string]string{"Authorization": "Basic abc"})

	require.True(t, res.OK)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "Basic abc", gotAuth)
}

func TestGuardRejectsPrivateAndBadSchemes(t *testing.T) {
	ctx := context.Background()

	assert.Error(t, GuardExternalURL(ctx, "http://127.0.0.1/admin"))
	assert.Error(t, GuardExternalURL(ctx, "http://localhost:8080/"))
	assert.Error(t, GuardExternalURL(ctx, "http://169.254.169.254/latest/meta-data/"))
	assert.Error(t, GuardExternalURL(ctx, "http://10.0.0.5/"))
	assert.Error(t, GuardExternalURL(ctx, "http://192.168.1.1/"))
	assert.Error(t, GuardExternalURL(ctx, "ftp://example.com/file"))
	assert.Error(t, GuardExternalURL(ctx, "file:///etc/passwd"))
	assert.Error(t, GuardExternalURL(ctx, "http:///nohost"))
}

func TestGuardAppliesToOutboundCalls(t *testing.T) {
	client := New(Options{Timeout: time.Second, MaxRedirects: 2})

	get := client.GetWithRedirects(context.Background(), "http://127.0.0.1:9/")
	assert.False(t, get.OK)
	assert.Contains(t, get.Err, "SSRF")

	post := client.PostJSON(context.Background(), "http://127.0.0.1:9/", nil, nil)
	assert.False(t, post.OK)
	assert.Contains(t, post.Err, "SSRF")
}
