// Package linkclass maps anchor rel attributes to backlink categories.
package linkclass

import (
	"strings"

	"github.com/user/backlink-service/internal/entity"
)

// Classify tokenizes a rel attribute on whitespace and returns the link
// category. Sponsored and nofollow are the strongest signals and win over ugc;
// an empty attribute defaults to dofollow.
func Classify(rel string) string {
	value := strings.ToLower(strings.TrimSpace(rel))
	if value == "" {
		return entity.LinkTypeDofollow
	}

	tokens := strings.Fields(value)
	has := func(want string) bool {
		for _, tok := range tokens {
			if tok == want {
				return true
			}
		}
		return false
	}

	switch {
	case has("sponsored"):
		return entity.LinkTypeSponsored
	case has("nofollow"):
		return entity.LinkTypeNofollow
	case has("ugc"):
		return entity.LinkTypeUGC
	default:
		return entity.LinkTypeDofollow
	}
}

// Weight returns the fixed priority score used to pick the best backlink
// among several found on one page.
func Weight(linkType string) int {
	switch linkType {
	case entity.LinkTypeDofollow:
		return 100
	case entity.LinkTypeSponsored:
		return 70
	case entity.LinkTypeUGC:
		return 60
	case entity.LinkTypeNofollow:
		return 50
	default:
		return 0
	}
}
