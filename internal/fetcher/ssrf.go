package fetcher

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// GuardExternalURL validates that a URL targets a public, external address.
// The hostname is resolved up front so DNS-based redirects into internal
// ranges are rejected before any connection is opened. Every outbound call,
// including provider APIs and webhook delivery, goes through this check.
func GuardExternalURL(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return fmt.Errorf("invalid URL")
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("only HTTP(S) URLs are allowed")
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, u.Hostname())
	if err != nil || len(addrs) == 0 {
		return fmt.Errorf("unable to resolve hostname")
	}

	for _, addr := range addrs {
		if isPrivateOrReserved(addr.IP) {
			return fmt.Errorf("URLs targeting internal networks are not allowed")
		}
	}

	return nil
}

func isPrivateOrReserved(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return true
	}

	if v4 := ip.To4(); v4 != nil {
		// 0.0.0.0/8 and 240.0.0.0/4 (reserved / future use).
		if v4[0] == 0 || v4[0] >= 240 {
			return true
		}
		// 100.64.0.0/10 carrier-grade NAT.
		if v4[0] == 100 && v4[1]&0xc0 == 64 {
			return true
		}
		return false
	}

	// fc00::/7 unique local addresses.
	return len(ip) == net.IPv6len && ip[0]&0xfe == 0xfc
}
