package aggregator

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mcleblanc711/ResortFees/pkg/types"
)

// searchResult is one candidate listing scraped off a search page.
type searchResult struct {
	Name string
	URL  string
}

var (
	ratingWordPattern = regexp.MustCompile(`(?i)\b(?:reviews?|ratings?|stars?|score(?:d)?)\b`)
	digitRunPattern   = regexp.MustCompile(`\d{3,}`)
)

// resolveBySearch scrapes the aggregator's search results and returns
// the candidate most similar to the hotel name, provided the score
// clears the match threshold.
func (r *Resolver) resolveBySearch(ctx context.Context, name, town, country string) (string, bool) {
	query := strings.TrimSpace(strings.Join([]string{name, town, country}, " "))
	searchURL := r.baseURL + "/searchresults.html?ss=" + url.QueryEscape(query)

	body := r.fetchSearchPage(ctx, searchURL)
	if len(body) == 0 {
		return "", false
	}

	results := parseSearchResults(body, r.baseURL, r.maxResults)
	results = dedupeByURL(results)
	if len(results) == 0 {
		return "", false
	}

	var (
		best      searchResult
		bestScore float64
	)
	for _, candidate := range results {
		score := Score(name, candidate.Name)
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	if bestScore < r.threshold {
		r.logger.Debug("no search result cleared the match threshold",
			"hotel", name, "best", best.Name, "score", bestScore)
		return "", false
	}
	r.logger.Debug("listing resolved by search",
		"hotel", name, "match", best.Name, "score", bestScore, "url", best.URL)
	return best.URL, true
}

// fetchSearchPage retrieves the search results page, preferring the
// rendered path since search markup is largely script-built. A bot
// challenge on the rendered path falls through to plain HTTP.
func (r *Resolver) fetchSearchPage(ctx context.Context, searchURL string) []byte {
	if r.renderer != nil {
		if err := r.limiter.Wait(ctx, searchURL); err != nil {
			return nil
		}
		page, err := r.renderer.Render(ctx, searchURL)
		if err == nil && !r.isBotChallenge(page) {
			r.limiter.RecordSuccess(searchURL)
			return page.Body
		}
		r.limiter.RecordFailure(searchURL)
	}

	if err := r.limiter.Wait(ctx, searchURL); err != nil {
		return nil
	}
	page, err := r.fetcher.Get(ctx, searchURL)
	if err != nil || r.isBotChallenge(page) {
		r.limiter.RecordFailure(searchURL)
		return nil
	}
	r.limiter.RecordSuccess(searchURL)
	return page.Body
}

// isBotChallenge detects interstitial and block responses. A body far
// smaller than any real results page is treated as a challenge even on
// a 200.
func (r *Resolver) isBotChallenge(page *types.Page) bool {
	if page == nil {
		return true
	}
	switch page.StatusCode {
	case 403, 429, 503:
		return true
	}
	return len(page.Body) < r.minBodyBytes
}

// parseSearchResults extracts candidate listings from search page HTML.
// Strategies are tried most-structured first; the first one that yields
// anything is used exclusively so stale fallbacks cannot dilute good
// results.
func parseSearchResults(body []byte, baseURL string, max int) []searchResult {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	for _, strategy := range []func(*goquery.Document, *url.URL, int) []searchResult{
		parsePropertyCards,
		parseLegacyBlocks,
		parseRawListingLinks,
	} {
		if results := strategy(doc, base, max); len(results) > 0 {
			return results
		}
	}
	return nil
}

// parsePropertyCards reads the current data-testid card markup.
func parsePropertyCards(doc *goquery.Document, base *url.URL, max int) []searchResult {
	var results []searchResult
	doc.Find(`[data-testid="property-card"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name := strings.TrimSpace(s.Find(`[data-testid="title"]`).First().Text())
		link := s.Find(`a[data-testid="title-link"]`).First()
		if link.Length() == 0 {
			link = s.Find(`a[href*="/hotel/"]`).First()
		}
		href, ok := link.Attr("href")
		if !ok || name == "" {
			return true
		}
		if resolved := resolveListingHref(base, href); resolved != "" {
			results = append(results, searchResult{Name: name, URL: resolved})
		}
		return max <= 0 || len(results) < max
	})
	return results
}

// parseLegacyBlocks reads the older sr_property_block markup.
func parseLegacyBlocks(doc *goquery.Document, base *url.URL, max int) []searchResult {
	var results []searchResult
	doc.Find("div.sr_property_block").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := s.Find("a.hotel_name_link").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		name := strings.TrimSpace(s.Find("span.sr-hotel__name").First().Text())
		if name == "" {
			name = strings.TrimSpace(link.Text())
		}
		if name == "" {
			return true
		}
		if resolved := resolveListingHref(base, href); resolved != "" {
			results = append(results, searchResult{Name: name, URL: resolved})
		}
		return max <= 0 || len(results) < max
	})
	return results
}

// parseRawListingLinks scans every anchor for listing hrefs and derives
// names from the URL slug. Last resort when the markup is unrecognized.
func parseRawListingLinks(doc *goquery.Document, base *url.URL, max int) []searchResult {
	var results []searchResult
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if !strings.Contains(href, "/hotel/") {
			return true
		}
		resolved := resolveListingHref(base, href)
		if resolved == "" {
			return true
		}
		name := strings.TrimSpace(s.Text())
		if name == "" {
			name = nameFromSlug(resolved)
		}
		if name == "" {
			return true
		}
		results = append(results, searchResult{Name: name, URL: resolved})
		return max <= 0 || len(results) < max
	})
	return results
}

// resolveListingHref resolves an anchor href against the search page
// and verifies it still points at a listing.
func resolveListingHref(base *url.URL, href string) string {
	resolved, err := base.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	full := resolved.String()
	if !isListingURL(full) {
		return ""
	}
	return full
}

// nameFromSlug reconstructs a readable hotel name from a listing URL
// slug.
func nameFromSlug(listing string) string {
	parsed, err := url.Parse(listing)
	if err != nil {
		return ""
	}
	segment := parsed.Path
	if idx := strings.LastIndex(segment, "/"); idx >= 0 {
		segment = segment[idx+1:]
	}
	segment = strings.TrimSuffix(segment, ".html")
	segment = strings.TrimSuffix(segment, ".en-gb")
	words := strings.Split(segment, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.TrimSpace(strings.Join(words, " "))
}

// dedupeByURL collapses results pointing at the same listing. When
// duplicates disagree on the display name the cleaner one is kept, so a
// plain hotel name beats one polluted with review counts or scores.
func dedupeByURL(results []searchResult) []searchResult {
	if len(results) <= 1 {
		return results
	}
	index := make(map[string]int, len(results))
	out := make([]searchResult, 0, len(results))
	for _, res := range results {
		key := canonicalListingURL(res.URL)
		if at, dup := index[key]; dup {
			if isCleanerName(res.Name, out[at].Name) {
				out[at].Name = res.Name
			}
			continue
		}
		index[key] = len(out)
		out = append(out, res)
	}
	return out
}

// canonicalListingURL strips query and fragment so tracking parameters
// do not defeat deduplication.
func canonicalListingURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}

// isCleanerName reports whether candidate is a better display name than
// incumbent. Names without long digit runs or rating vocabulary win;
// among equally clean names the longer one wins; ties keep the
// incumbent.
func isCleanerName(candidate, incumbent string) bool {
	cClean := isCleanName(candidate)
	iClean := isCleanName(incumbent)
	if cClean != iClean {
		return cClean
	}
	return len(candidate) > len(incumbent)
}

func isCleanName(name string) bool {
	return !digitRunPattern.MatchString(name) && !ratingWordPattern.MatchString(name)
}
