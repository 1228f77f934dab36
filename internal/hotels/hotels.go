package hotels

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mcleblanc711/ResortFees/pkg/types"
)

var (
	slugStripPattern    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapsePattern = regexp.MustCompile(`[-\s]+`)
)

// Slugify lowercases text and reduces it to a kebab-case token.
func Slugify(text string) string {
	text = strings.ToLower(text)
	text = slugStripPattern.ReplaceAllString(text, "")
	text = slugCollapsePattern.ReplaceAllString(text, "-")
	return strings.Trim(text, "-")
}

// HotelID derives the stable kebab-case identifier used across exports.
func HotelID(country, town, name string) string {
	return Slugify(country) + "-" + Slugify(town) + "-" + Slugify(name)
}

// Finder loads curated hotel lists from disk. Discovery from travel
// sites requires partner API access, so runs are driven by curated
// files checked into the data directory.
type Finder struct {
	curatedDir string
	logger     *slog.Logger
}

// NewFinder builds a finder rooted at the curated-data directory.
func NewFinder(curatedDir string, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{curatedDir: curatedDir, logger: logger}
}

// curatedFile is the on-disk shape of data/curated/<country>/<town>.json.
type curatedFile struct {
	Hotels []struct {
		Name           string             `json:"name"`
		Rank           int                `json:"rank"`
		Website        string             `json:"website"`
		TripadvisorURL string             `json:"tripadvisor_url"`
		Coordinates    *types.Coordinates `json:"coordinates"`
		MarketSegment  string             `json:"market_segment"`
	} `json:"hotels"`
}

// FindHotels returns up to limit curated hotels for a town. A missing
// curated file is not an error; it yields an empty list with a warning
// so the run can continue with other towns.
func (f *Finder) FindHotels(town, region, country string, limit int) ([]types.HotelInput, error) {
	path := filepath.Join(f.curatedDir, Slugify(country), Slugify(town)+".json")

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		f.logger.Warn("no curated hotel data for town", "town", town, "path", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read curated file %s: %w", path, err)
	}

	var file curatedFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse curated file %s: %w", path, err)
	}

	inputs := make([]types.HotelInput, 0, len(file.Hotels))
	for idx, h := range file.Hotels {
		if strings.TrimSpace(h.Name) == "" {
			continue
		}
		rank := h.Rank
		if rank <= 0 {
			rank = idx + 1
		}
		segment := h.MarketSegment
		if segment == "" {
			segment = ClassifySegment(h.Name, "", 0)
		}
		inputs = append(inputs, types.HotelInput{
			Name:            h.Name,
			Town:            town,
			Region:          region,
			Country:         country,
			OfficialWebsite: h.Website,
			TripadvisorURL:  h.TripadvisorURL,
			TripadvisorRank: rank,
			Coordinates:     h.Coordinates,
			MarketSegment:   segment,
		})
	}

	f.logger.Info("loaded curated hotels", "town", town, "count", len(inputs))
	if limit > 0 && len(inputs) > limit {
		inputs = inputs[:limit]
	}
	return inputs, nil
}

// Market segments recognised by the exporter's validation.
var ValidSegments = []string{"Luxury", "Upscale", "Upper-Midscale", "Midscale", "Economy"}

var luxuryBrands = []string{
	"four seasons", "ritz-carlton", "st. regis", "fairmont",
	"mandarin oriental", "aman", "park hyatt", "waldorf",
	"peninsula", "rosewood",
}

var upscaleBrands = []string{
	"marriott", "hilton", "hyatt regency", "westin", "sheraton",
	"intercontinental", "kimpton", "w hotel", "le meridien",
}

var midscaleBrands = []string{
	"holiday inn", "best western", "ramada", "wyndham",
	"quality inn", "comfort inn",
}

var economyBrands = []string{
	"motel 6", "super 8", "days inn", "travelodge",
	"econo lodge", "red roof",
}

// ClassifySegment buckets a hotel into a market segment. Star rating
// wins when known; otherwise brand names and marketing keywords decide,
// defaulting to Midscale.
func ClassifySegment(name, description string, starRating float64) string {
	text := strings.ToLower(name + " " + description)

	if starRating > 0 {
		switch {
		case starRating >= 4.5:
			return "Luxury"
		case starRating >= 4.0:
			return "Upscale"
		case starRating >= 3.5:
			return "Upper-Midscale"
		case starRating >= 3.0:
			return "Midscale"
		default:
			return "Economy"
		}
	}

	if containsAny(text, luxuryBrands) {
		return "Luxury"
	}
	if containsAny(text, upscaleBrands) {
		return "Upscale"
	}
	if containsAny(text, midscaleBrands) {
		return "Midscale"
	}
	if containsAny(text, economyBrands) {
		return "Economy"
	}

	if containsAny(text, []string{"5-star", "five star", "luxury", "exclusive"}) {
		return "Luxury"
	}
	if containsAny(text, []string{"4-star", "four star", "boutique", "upscale"}) {
		return "Upscale"
	}
	if containsAny(text, []string{"budget", "hostel", "motel"}) {
		return "Economy"
	}

	return "Midscale"
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
