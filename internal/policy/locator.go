package policy

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mcleblanc711/ResortFees/internal/fetcher"
	"github.com/mcleblanc711/ResortFees/internal/politeness"
	"github.com/mcleblanc711/ResortFees/internal/robots"
)

// Path suffixes that typically carry policy text, probed in order.
var policyPathSuffixes = []string{
	"/policies", "/policy", "/terms", "/conditions",
	"/terms-and-conditions", "/hotel-policies", "/guest-information",
	"/guest-info", "/faq", "/info", "/about-the-hotel", "/hotel-info",
}

// Keywords matched against link text and hrefs when no suffix resolves.
var policyLinkKeywords = []string{
	"policy", "policies", "terms", "conditions", "faq",
	"guest info", "hotel info",
}

// Locator finds the page on a hotel site most likely to contain policy
// text. Individual probe failures are silently skipped; only the
// overall locate call can come up empty.
type Locator struct {
	fetcher fetcher.Fetcher
	limiter *politeness.Limiter
	robots  *robots.Agent
	probes  *ProbeCache
	logger  *slog.Logger
}

// NewLocator constructs a locator. The robots agent may be nil, in
// which case all probes are permitted.
func NewLocator(f fetcher.Fetcher, limiter *politeness.Limiter, agent *robots.Agent, probes *ProbeCache, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	if probes == nil {
		probes = NewProbeCache(0)
	}
	return &Locator{fetcher: f, limiter: limiter, robots: agent, probes: probes, logger: logger}
}

// Locate returns the URL most likely to contain the hotel's policy
// text, or ok=false when nothing resolves.
func (l *Locator) Locate(ctx context.Context, baseURL string) (string, bool) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		return "", false
	}
	root := parsed.Scheme + "://" + parsed.Host

	for _, suffix := range policyPathSuffixes {
		target := root + suffix
		if final, ok := l.probe(ctx, target); ok {
			return final, true
		}
		if ctx.Err() != nil {
			return "", false
		}
	}

	return l.findPolicyLink(ctx, baseURL)
}

// probe issues a HEAD-equivalent existence check, returning the final
// URL after redirects on a 200.
func (l *Locator) probe(ctx context.Context, target string) (string, bool) {
	if final, found, cached := l.probes.Lookup(target); cached {
		return final, found
	}
	if l.robots != nil && !l.robots.Allowed(ctx, target) {
		l.probes.Store(target, "", false)
		return "", false
	}

	if err := l.limiter.Wait(ctx, target); err != nil {
		return "", false
	}
	page, err := l.fetcher.Head(ctx, target)
	if err != nil || page.StatusCode != 200 {
		// An existence-probe miss is not a domain failure; the next
		// candidate is simply tried.
		l.probes.Store(target, "", false)
		return "", false
	}

	l.limiter.RecordSuccess(target)
	final := target
	if page.FinalURL != nil {
		final = page.FinalURL.String()
	}
	l.probes.Store(target, final, true)
	return final, true
}

// findPolicyLink fetches the base page and scans its hyperlinks for
// policy-related keywords in the link text or href.
func (l *Locator) findPolicyLink(ctx context.Context, pageURL string) (string, bool) {
	if err := l.limiter.Wait(ctx, pageURL); err != nil {
		return "", false
	}
	page, err := l.fetcher.Get(ctx, pageURL)
	if err != nil || !page.OK() {
		l.limiter.RecordFailure(pageURL)
		return "", false
	}
	l.limiter.RecordSuccess(pageURL)

	base := page.FinalURL
	if base == nil {
		base = page.URL
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return "", false
	}

	var result string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}
		text := strings.ToLower(s.Text())
		lowered := strings.ToLower(href)

		for _, keyword := range policyLinkKeywords {
			if strings.Contains(text, keyword) || strings.Contains(lowered, keyword) {
				resolved, err := base.Parse(href)
				if err != nil {
					return true
				}
				result = resolved.String()
				return false
			}
		}
		return true
	})

	if result == "" {
		return "", false
	}
	l.logger.Debug("policy link found on page", "page", pageURL, "policy_url", result)
	return result, true
}
