// Package urlnorm canonicalizes URLs and hosts so that targets can be
// deduplicated and link hosts compared against a tracked root domain.
package urlnorm

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	schemeRe     = regexp.MustCompile(`(?i)^https?://`)
	multiSlashRe = regexp.MustCompile(`/+`)
)

// NormalizeURL canonicalizes a URL: lower-cases the scheme, strips a leading
// "www.", collapses duplicate path slashes, defaults an empty path to "/" and
// preserves the query string. Returns "" when the URL has no resolvable host;
// callers treat "" as invalid and skip the URL.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if !schemeRe.MatchString(raw) {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}

	host := NormalizeHost(u.Host)
	if host == "" {
		return ""
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = "https"
	}

	path := normalizePath(u.EscapedPath())

	query := ""
	if u.RawQuery != "" {
		query = "?" + u.RawQuery
	}

	return scheme + "://" + host + path + query
}

// NormalizeHost lower-cases a host, strips a leading "www." and trailing dots.
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, "www.")
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return strings.Trim(host, ".")
}

// RootDomain extracts and normalizes the host from a URL or bare domain.
func RootDomain(domainOrURL string) string {
	candidate := strings.TrimSpace(domainOrURL)
	if candidate == "" {
		return ""
	}

	if schemeRe.MatchString(candidate) {
		u, err := url.Parse(candidate)
		if err != nil {
			return ""
		}
		candidate = u.Host
	}

	return NormalizeHost(candidate)
}

// HostsEquivalent reports whether two hosts are equal after normalization or
// one is a subdomain of the other.
func HostsEquivalent(a, b string) bool {
	hostA := NormalizeHost(a)
	hostB := NormalizeHost(b)

	if hostA == "" || hostB == "" {
		return false
	}

	return hostA == hostB ||
		strings.HasSuffix(hostA, "."+hostB) ||
		strings.HasSuffix(hostB, "."+hostA)
}

// ResolveURL resolves an absolute, protocol-relative, root-relative or
// path-relative href against a base URL, then normalizes the result.
// Returns "" when the href cannot be resolved to a host.
func ResolveURL(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	if schemeRe.MatchString(href) {
		return NormalizeURL(href)
	}

	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return ""
	}
	if base.Scheme == "" {
		base.Scheme = "https"
	}

	rel, err := url.Parse(href)
	if err != nil {
		return ""
	}

	return NormalizeURL(base.ResolveReference(rel).String())
}

func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	path = multiSlashRe.ReplaceAllString(path, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
