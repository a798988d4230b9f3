// Package analyzer fetches a target page and reports whether it links back to
// a tracked root domain, along with noindex signals and the redirect chain.
package analyzer

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/backlink-service/internal/entity"
	"github.com/user/backlink-service/internal/fetcher"
	"github.com/user/backlink-service/internal/linkclass"
	"github.com/user/backlink-service/internal/urlnorm"
)

// Analyzer runs the fetch-and-parse step for a single scan target.
type Analyzer struct {
	client *fetcher.Client
}

// New creates an Analyzer on top of a guarded fetch client.
func New(client *fetcher.Client) *Analyzer {
	return &Analyzer{client: client}
}

// Analyze fetches sourceURL and inspects it for backlinks to rootDomain.
// Failures never surface as errors; they degrade to the result's FetchStatus.
func (a *Analyzer) Analyze(ctx context.Context, sourceURL, rootDomain string) entity.Analysis {
	res := a.client.GetWithRedirects(ctx, sourceURL)

	result := entity.Analysis{
		SourceURL:     sourceURL,
		SourceDomain:  extractHost(sourceURL),
		FinalURL:      sourceURL,
		FinalDomain:   extractHost(sourceURL),
		HTTPStatus:    res.Status,
		FetchStatus:   entity.FetchStatusOK,
		RedirectChain: res.RedirectChain,
		BestLinkType:  entity.LinkTypeNone,
	}
	if res.FinalURL != "" {
		result.FinalURL = res.FinalURL
		result.FinalDomain = extractHost(res.FinalURL)
	}

	if !res.OK || res.Status >= 400 {
		result.FetchStatus = entity.FetchStatusError
		result.ErrorMessage = res.Err
		if result.ErrorMessage == "" {
			result.ErrorMessage = fmt.Sprintf("HTTP error: %d", res.Status)
		}
		return result
	}

	if res.Header != nil {
		xRobots := strings.ToLower(res.Header.Get("X-Robots-Tag"))
		if strings.Contains(xRobots, "noindex") {
			result.XRobotsNoindex = true
		}
	}

	if len(bytes.TrimSpace(res.Body)) == 0 {
		result.FetchStatus = entity.FetchStatusEmptyBody
		result.ErrorMessage = "fetched content is empty"
		return result
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		result.FetchStatus = entity.FetchStatusParseErr
		result.ErrorMessage = "failed to parse HTML"
		return result
	}

	result.RobotsNoindex = hasNoindexMeta(doc)

	root := urlnorm.RootDomain(rootDomain)
	// A relative href cannot point off-domain, so relative links only matter
	// when the page itself already sits on the tracked domain.
	sourceOnTarget := urlnorm.HostsEquivalent(result.FinalDomain, root)

	bestWeight := -1
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" {
			return
		}

		if !isAbsoluteHref(href) && !sourceOnTarget {
			return
		}

		resolved := urlnorm.ResolveURL(result.FinalURL, href)
		if resolved == "" {
			return
		}

		if !urlnorm.HostsEquivalent(extractHost(resolved), root) {
			return
		}

		rel := sel.AttrOr("rel", "")
		linkType := linkclass.Classify(rel)
		anchorText := strings.TrimSpace(sel.Text())

		result.BacklinkFound = true
		result.Links = append(result.Links, entity.MatchedLink{
			Href:        href,
			ResolvedURL: resolved,
			Rel:         rel,
			LinkType:    linkType,
			AnchorText:  anchorText,
			IsTarget:    true,
		})

		if weight := linkclass.Weight(linkType); weight > bestWeight {
			bestWeight = weight
			result.BestLinkType = linkType
			result.AnchorText = anchorText
		}
	})

	return result
}

func hasNoindexMeta(doc *goquery.Document) bool {
	found := false
	doc.Find("meta").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		name := strings.ToLower(sel.AttrOr("name", ""))
		if name != "robots" && name != "googlebot" {
			return true
		}
		if strings.Contains(strings.ToLower(sel.AttrOr("content", "")), "noindex") {
			found = true
			return false
		}
		return true
	})
	return found
}

func isAbsoluteHref(href string) bool {
	lower := strings.ToLower(href)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(href, "//")
}

func extractHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return urlnorm.NormalizeHost(u.Host)
}
