package aggregator

import (
	"net/url"
	"testing"
)

func TestDedupeByURLPrefersCleanerName(t *testing.T) {
	listing := "https://www.example-booking.test/hotel/ca/fairmont-banff-springs.html"
	results := []searchResult{
		{Name: "Fairmont Banff Springs — 1,204 reviews", URL: listing + "?aid=304142"},
		{Name: "The Fairmont Banff Springs Hotel", URL: listing},
	}

	out := dedupeByURL(results)

	if len(out) != 1 {
		t.Fatalf("expected 1 result, got %d", len(out))
	}
	if out[0].Name != "The Fairmont Banff Springs Hotel" {
		t.Errorf("kept name %q, want the clean one", out[0].Name)
	}
}

func TestDedupeByURLTieKeepsFirst(t *testing.T) {
	listing := "https://www.example-booking.test/hotel/ca/rimrock.html"
	results := []searchResult{
		{Name: "Rimrock Resort", URL: listing},
		{Name: "Rimrock Lodge", URL: listing + "#map"},
	}

	out := dedupeByURL(results)

	if len(out) != 1 {
		t.Fatalf("expected 1 result, got %d", len(out))
	}
	if out[0].Name != "Rimrock Resort" {
		t.Errorf("kept name %q, want the first seen", out[0].Name)
	}
}

func TestIsCleanerName(t *testing.T) {
	cases := []struct {
		candidate, incumbent string
		want                 bool
	}{
		{"The Fairmont Banff Springs Hotel", "Fairmont Banff Springs — 1,204 reviews", true},
		{"Fairmont — 8.9 score", "Fairmont Banff Springs", false},
		{"Fairmont Banff Springs Hotel", "Fairmont", true},
		{"Fairmont", "Fairmont Banff Springs Hotel", false},
	}
	for _, tc := range cases {
		if got := isCleanerName(tc.candidate, tc.incumbent); got != tc.want {
			t.Errorf("isCleanerName(%q, %q) = %v, want %v", tc.candidate, tc.incumbent, got, tc.want)
		}
	}
}

func TestParseSearchResultsPrefersPropertyCards(t *testing.T) {
	body := []byte(`<html><body>
		<div data-testid="property-card">
			<a data-testid="title-link" href="/hotel/ca/fairmont-banff-springs.html">
				<div data-testid="title">Fairmont Banff Springs</div>
			</a>
		</div>
		<a href="/hotel/ca/stale-fallback-listing.html">Stale Fallback Listing</a>
	</body></html>`)

	results := parseSearchResults(body, "https://www.example-booking.test", 25)

	if len(results) != 1 {
		t.Fatalf("expected only property-card results, got %d: %+v", len(results), results)
	}
	if results[0].Name != "Fairmont Banff Springs" {
		t.Errorf("name = %q", results[0].Name)
	}
	if results[0].URL != "https://www.example-booking.test/hotel/ca/fairmont-banff-springs.html" {
		t.Errorf("url = %q", results[0].URL)
	}
}

func TestParseSearchResultsLegacyMarkup(t *testing.T) {
	body := []byte(`<html><body>
		<div class="sr_property_block">
			<a class="hotel_name_link" href="/hotel/ca/rimrock.html">
				<span class="sr-hotel__name">Rimrock Resort Hotel</span>
			</a>
		</div>
	</body></html>`)

	results := parseSearchResults(body, "https://www.example-booking.test", 25)

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Name != "Rimrock Resort Hotel" {
		t.Errorf("name = %q", results[0].Name)
	}
}

func TestParseSearchResultsRawLinkFallback(t *testing.T) {
	body := []byte(`<html><body>
		<a href="/hotel/ca/post-hotel-spa.html"></a>
		<a href="/searchresults.html?offset=25">Next page</a>
	</body></html>`)

	results := parseSearchResults(body, "https://www.example-booking.test", 25)

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d: %+v", len(results), results)
	}
	if results[0].Name != "Post Hotel Spa" {
		t.Errorf("slug-derived name = %q", results[0].Name)
	}
}

func TestNameFromSlug(t *testing.T) {
	got := nameFromSlug("https://www.example-booking.test/hotel/ca/fairmont-banff-springs.html")
	if got != "Fairmont Banff Springs" {
		t.Errorf("got %q", got)
	}
}

func TestResolveListingHrefRejectsNonListings(t *testing.T) {
	base, _ := url.Parse("https://www.example-booking.test")
	if got := resolveListingHref(base, "/searchresults.html?ss=banff"); got != "" {
		t.Errorf("search URL accepted as listing: %q", got)
	}
	if got := resolveListingHref(base, "/hotel/ca/rimrock.html"); got == "" {
		t.Error("listing URL rejected")
	}
}
