package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode"

	"github.com/mcleblanc711/ResortFees/internal/config"
	"github.com/mcleblanc711/ResortFees/internal/fetcher"
	"github.com/mcleblanc711/ResortFees/internal/politeness"
)

// Words dropped when building listing slugs. "the" stays so that both
// the prefixed and unprefixed variants can be probed.
var slugStopWords = map[string]struct{}{
	"hotel": {}, "hotels": {}, "resort": {}, "resorts": {}, "spa": {},
}

var countryCodes = map[string]string{
	"canada":         "ca",
	"usa":            "us",
	"united states":  "us",
	"switzerland":    "ch",
	"france":         "fr",
	"austria":        "at",
	"australia":      "au",
	"germany":        "de",
	"italy":          "it",
	"spain":          "es",
	"united kingdom": "gb",
	"new zealand":    "nz",
	"japan":          "jp",
}

// Resolver locates a hotel's listing page on the aggregator site when
// the official website yields nothing. It first probes listing URLs
// constructed from name slugs, then falls back to scraping the site's
// search results.
type Resolver struct {
	fetcher  fetcher.Fetcher
	renderer fetcher.Renderer
	limiter  *politeness.Limiter
	logger   *slog.Logger

	baseURL      string
	threshold    float64
	minBodyBytes int
	maxResults   int
}

// NewResolver constructs a resolver. The renderer may be nil, in which
// case search pages are fetched over plain HTTP only.
func NewResolver(cfg config.AggregatorConfig, f fetcher.Fetcher, r fetcher.Renderer, limiter *politeness.Limiter, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		fetcher:      f,
		renderer:     r,
		limiter:      limiter,
		logger:       logger,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		threshold:    cfg.MatchThreshold,
		minBodyBytes: cfg.MinBodyBytes,
		maxResults:   cfg.MaxSearchResult,
	}
}

// Resolve returns the listing URL best matching the hotel, or ok=false
// when neither slug probing nor search produces a confident match.
func (r *Resolver) Resolve(ctx context.Context, name, town, country string) (string, bool) {
	if listing, ok := r.resolveBySlug(ctx, name, town, country); ok {
		return listing, true
	}
	if ctx.Err() != nil {
		return "", false
	}
	return r.resolveBySearch(ctx, name, town, country)
}

// resolveBySlug probes candidate listing URLs built from the hotel
// name. The first variant that resolves to a genuine listing page wins
// and the remaining variants are skipped.
func (r *Resolver) resolveBySlug(ctx context.Context, name, town, country string) (string, bool) {
	cc := countryCode(country)
	for _, slug := range slugVariants(name, town) {
		target := fmt.Sprintf("%s/hotel/%s/%s.html", r.baseURL, cc, slug)
		if err := r.limiter.Wait(ctx, target); err != nil {
			return "", false
		}
		page, err := r.fetcher.Head(ctx, target)
		if err != nil || page.StatusCode != 200 {
			// A slug that does not exist is an expected miss, not a
			// domain failure.
			continue
		}
		r.limiter.RecordSuccess(target)

		final := target
		if page.FinalURL != nil {
			final = page.FinalURL.String()
		}
		if !isListingURL(final) {
			// Soft redirect to a search or error page, not a listing.
			continue
		}
		r.logger.Debug("listing resolved by slug", "hotel", name, "url", final)
		return final, true
	}
	return "", false
}

// isListingURL reports whether a URL still points at a property page
// after redirects.
func isListingURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	path := strings.ToLower(parsed.Path)
	return strings.Contains(path, "/hotel/") && !strings.Contains(path, "searchresults")
}

// slugVariants builds the ordered candidate slugs for a hotel name.
func slugVariants(name, town string) []string {
	base := slugify(name, true)
	if base == "" {
		return nil
	}
	townSlug := slugify(town, false)

	variants := []string{base}
	if townSlug != "" {
		variants = append(variants, base+"-"+townSlug)
	}
	if trimmed := strings.TrimPrefix(base, "the-"); trimmed != base && trimmed != "" {
		variants = append(variants, trimmed)
	}
	if squashed := strings.ReplaceAll(base, "-", ""); squashed != base {
		variants = append(variants, squashed)
	}

	seen := make(map[string]struct{}, len(variants))
	out := variants[:0]
	for _, v := range variants {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// slugify lowercases a name, optionally drops generic lodging words,
// and joins the remaining words with hyphens.
func slugify(s string, dropStopWords bool) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		if dropStopWords {
			if _, stop := slugStopWords[w]; stop {
				continue
			}
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, "-")
}

// countryCode maps a country name to the two-letter code used in
// listing URLs, defaulting to the first two letters of the name.
func countryCode(country string) string {
	key := strings.ToLower(strings.TrimSpace(country))
	if code, ok := countryCodes[key]; ok {
		return code
	}
	cleaned := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r
		}
		return -1
	}, key)
	if len(cleaned) >= 2 {
		return cleaned[:2]
	}
	return cleaned
}
