// Package fetcher performs guarded outbound HTTP: GET with manual redirect
// following and POST-JSON, both refusing to contact private or reserved
// network ranges.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultUserAgent = "BacklinkAuditBot/2.0"

// Result is the structured outcome of one outbound call. Transport failures,
// SSRF rejections and redirect-limit overruns are reported through OK/Err
// rather than returned as errors, so batch callers always get a value.
type Result struct {
	OK            bool
	Status        int
	Header        http.Header
	Body          []byte
	RedirectChain []string
	FinalURL      string
	Err           string
}

// Options configures a Client.
type Options struct {
	ConnectTimeout time.Duration
	Timeout        time.Duration
	MaxRedirects   int
	UserAgent      string
	// AllowPrivate disables the SSRF guard. Only for local development and
	// tests that fetch from loopback listeners.
	AllowPrivate bool
}

// Client issues guarded outbound HTTP requests.
type Client struct {
	http         *http.Client
	maxRedirects int
	userAgent    string
	allowPrivate bool
}

// New builds a Client with redirect following disabled at the transport level;
// GetWithRedirects walks 3xx hops manually so the chain can be recorded.
func New(opts Options) *Client {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = 5
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: opts.ConnectTimeout,
		}).DialContext,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ResponseHeaderTimeout: opts.Timeout,
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxRedirects: opts.MaxRedirects,
		userAgent:    opts.UserAgent,
		allowPrivate: opts.AllowPrivate,
	}
}

// GetWithRedirects issues a GET and manually follows 3xx responses up to the
// configured hop limit, recording each hop's resolved absolute URL.
func (c *Client) GetWithRedirects(ctx context.Context, rawURL string) Result {
	current := rawURL
	var chain []string

	for i := 0; i <= c.maxRedirects; i++ {
		res := c.get(ctx, current)
		if !res.OK {
			res.RedirectChain = chain
			res.FinalURL = current
			return res
		}

		if res.Status >= 300 && res.Status < 400 {
			location := res.Header.Get("Location")
			if location == "" {
				res.RedirectChain = chain
				res.FinalURL = current
				return res
			}

			resolved := resolveLocation(current, location)
			chain = append(chain, resolved)
			current = resolved
			continue
		}

		res.RedirectChain = chain
		res.FinalURL = current
		return res
	}

	return Result{
		RedirectChain: chain,
		FinalURL:      current,
		Err:           "too many redirects",
	}
}

// PostJSON issues a guarded POST with a JSON body. 5xx responses are soft
// errors (OK=false with a message) so batch processing continues past a
// single bad upstream call; 2xx-4xx leave status interpretation to the caller.
func (c *Client) PostJSON(ctx context.Context, rawURL string, payload any, headers map[string]string) Result {
	if err := c.guard(ctx, rawURL); err != nil {
		return Result{Err: "SSRF: " + err.Error()}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Err: "encode payload: " + err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return Result{Err: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{Err: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Status: resp.StatusCode, Header: resp.Header, Err: err.Error()}
	}

	res := Result{
		OK:     resp.StatusCode >= 200 && resp.StatusCode < 500,
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   respBody,
	}
	if resp.StatusCode >= 500 {
		res.Err = "upstream server error"
	}
	return res
}

func (c *Client) get(ctx context.Context, rawURL string) Result {
	if err := c.guard(ctx, rawURL); err != nil {
		return Result{Err: "SSRF: " + err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{Err: err.Error()}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{Err: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Status: resp.StatusCode, Header: resp.Header, Err: err.Error()}
	}

	return Result{
		OK:     true,
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}
}

func (c *Client) guard(ctx context.Context, rawURL string) error {
	if c.allowPrivate {
		return nil
	}
	return GuardExternalURL(ctx, rawURL)
}

func resolveLocation(current, location string) string {
	if strings.HasPrefix(strings.ToLower(location), "http://") ||
		strings.HasPrefix(strings.ToLower(location), "https://") {
		return location
	}

	base, err := url.Parse(current)
	if err != nil || base.Host == "" {
		return location
	}

	rel, err := url.Parse(location)
	if err != nil {
		return location
	}

	return base.ResolveReference(rel).String()
}
