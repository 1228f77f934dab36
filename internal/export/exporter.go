package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mcleblanc711/ResortFees/internal/hotels"
	"github.com/mcleblanc711/ResortFees/pkg/types"
)

// Countries sharing a continent share an output directory.
var countryDirs = map[string]string{
	"usa":         "usa",
	"canada":      "canada",
	"switzerland": "europe",
	"france":      "europe",
	"austria":     "europe",
	"australia":   "australia",
}

// Exporter writes per-hotel JSON files, consolidated JSON, and CSV
// summaries under the data directory.
type Exporter struct {
	dataDir        string
	frontendDir    string
	currencySymbol string
	logger         *slog.Logger
}

// NewExporter builds an exporter rooted at dataDir.
func NewExporter(dataDir, frontendDir, currencySymbol string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	if currencySymbol == "" {
		currencySymbol = "$"
	}
	return &Exporter{
		dataDir:        dataDir,
		frontendDir:    frontendDir,
		currencySymbol: currencySymbol,
		logger:         logger,
	}
}

func (e *Exporter) hotelsDir() string  { return filepath.Join(e.dataDir, "hotels") }
func (e *Exporter) exportsDir() string { return filepath.Join(e.dataDir, "exports") }

// SaveHotel writes one hotel to its individual JSON file, creating the
// country/town directory hierarchy as needed.
func (e *Exporter) SaveHotel(h *types.HotelData) (string, error) {
	countrySlug := hotels.Slugify(h.Country)
	dir := countrySlug
	if mapped, ok := countryDirs[countrySlug]; ok {
		dir = mapped
	}

	hotelDir := filepath.Join(e.hotelsDir(), dir, hotels.Slugify(h.Town))
	if err := os.MkdirAll(hotelDir, 0o755); err != nil {
		return "", fmt.Errorf("create hotel dir: %w", err)
	}

	path := filepath.Join(hotelDir, hotels.Slugify(h.Name)+".json")
	raw, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal hotel %s: %w", h.ID, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	e.logger.Debug("saved hotel data", "path", path)
	return path, nil
}

// Consolidate merges every individual hotel file into all-hotels.json,
// sorted by country, town, then rank. Unreadable files are logged and
// skipped.
func (e *Exporter) Consolidate() ([]types.HotelData, error) {
	var all []types.HotelData

	err := filepath.WalkDir(e.hotelsDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			e.logger.Error("failed to read hotel file", "path", path, "error", err)
			return nil
		}
		var hotel types.HotelData
		if err := json.Unmarshal(raw, &hotel); err != nil {
			e.logger.Error("failed to parse hotel file", "path", path, "error", err)
			return nil
		}
		all = append(all, hotel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk hotels dir: %w", err)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Country != all[j].Country {
			return all[i].Country < all[j].Country
		}
		if all[i].Town != all[j].Town {
			return all[i].Town < all[j].Town
		}
		return all[i].TripadvisorRank < all[j].TripadvisorRank
	})

	raw, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal consolidated hotels: %w", err)
	}
	out := filepath.Join(e.dataDir, "all-hotels.json")
	if err := os.WriteFile(out, raw, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", out, err)
	}
	e.logger.Info("consolidated hotels", "count", len(all), "path", out)
	return all, nil
}

var csvHeader = []string{
	"id", "name", "town", "region", "country", "marketSegment",
	"tripadvisorRank", "latitude", "longitude",
	"officialWebsite", "policyPage", "aggregatorUrl", "dataSource",
	"taxCount", "feeCount", "resortFee", "parkingFee",
	"childrenFreeAge", "adultCharge", "damageDeposit",
	"scrapedAt", "scrapingNotes",
}

// ExportCSVAll writes every hotel to a single flattened CSV.
func (e *Exporter) ExportCSVAll(all []types.HotelData) (string, error) {
	out := filepath.Join(e.exportsDir(), "hotels-all.csv")
	if err := e.writeCSV(all, out); err != nil {
		return "", err
	}
	e.logger.Info("exported csv", "count", len(all), "path", out)
	return out, nil
}

// ExportCSVByCountry writes one flattened CSV per country.
func (e *Exporter) ExportCSVByCountry(all []types.HotelData) ([]string, error) {
	byCountry := make(map[string][]types.HotelData)
	for _, h := range all {
		country := h.Country
		if country == "" {
			country = "Unknown"
		}
		byCountry[country] = append(byCountry[country], h)
	}

	countries := make([]string, 0, len(byCountry))
	for c := range byCountry {
		countries = append(countries, c)
	}
	sort.Strings(countries)

	var paths []string
	for _, country := range countries {
		out := filepath.Join(e.exportsDir(), "hotels-"+hotels.Slugify(country)+".csv")
		if err := e.writeCSV(byCountry[country], out); err != nil {
			return paths, err
		}
		e.logger.Info("exported csv", "country", country, "count", len(byCountry[country]), "path", out)
		paths = append(paths, out)
	}
	return paths, nil
}

func (e *Exporter) writeCSV(all []types.HotelData, out string) error {
	if len(all) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create exports dir: %w", err)
	}
	fh, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer fh.Close()

	w := csv.NewWriter(fh)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := range all {
		if err := w.Write(flattenHotel(&all[i])); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// flattenHotel projects the nested record onto the flat CSV columns.
func flattenHotel(h *types.HotelData) []string {
	var lat, lng string
	if h.Coordinates != nil {
		lat = strconv.FormatFloat(h.Coordinates.Lat, 'f', -1, 64)
		lng = strconv.FormatFloat(h.Coordinates.Lng, 'f', -1, 64)
	}

	var resortFee, parkingFee string
	for _, fee := range h.Fees {
		lowered := strings.ToLower(fee.Name)
		if strings.Contains(lowered, "resort") {
			resortFee = fee.Amount
		}
		if strings.Contains(lowered, "parking") {
			parkingFee = fee.Amount
		}
	}

	var childrenFreeAge, adultCharge string
	if epp := h.ExtraPersonPolicy; epp != nil {
		if epp.ChildrenFreeAge != nil {
			childrenFreeAge = strconv.Itoa(*epp.ChildrenFreeAge)
		}
		if epp.AdultCharge != nil {
			adultCharge = epp.AdultCharge.Amount
		}
	}

	var deposit string
	if h.DamageDeposit != nil {
		deposit = h.DamageDeposit.Amount
	}

	return []string{
		h.ID, h.Name, h.Town, h.Region, h.Country, h.MarketSegment,
		strconv.Itoa(h.TripadvisorRank), lat, lng,
		h.Sources.OfficialWebsite, h.Sources.PolicyPage, h.Sources.AggregatorURL, h.Sources.DataSource,
		strconv.Itoa(len(h.Taxes)), strconv.Itoa(len(h.Fees)), resortFee, parkingFee,
		childrenFreeAge, adultCharge, deposit,
		h.ScrapedAt, h.ScrapingNotes,
	}
}

// CopyToFrontend copies the consolidated JSON into the frontend data
// directory. No-op when no frontend directory is configured.
func (e *Exporter) CopyToFrontend() (string, error) {
	if e.frontendDir == "" {
		return "", nil
	}
	source := filepath.Join(e.dataDir, "all-hotels.json")
	raw, err := os.ReadFile(source)
	if err != nil {
		return "", fmt.Errorf("read consolidated file: %w", err)
	}
	if err := os.MkdirAll(e.frontendDir, 0o755); err != nil {
		return "", fmt.Errorf("create frontend dir: %w", err)
	}
	dest := filepath.Join(e.frontendDir, "hotels.json")
	if err := os.WriteFile(dest, raw, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	e.logger.Info("copied hotel data to frontend", "path", dest)
	return dest, nil
}

var (
	leadingDigitPattern = regexp.MustCompile(`^\d`)
	currencyPattern     = regexp.MustCompile(`^([$€£])([\d,]+)(?:\.(\d{1,2}))?`)
)

// NormalizeAmount rewrites currency amounts into a consistent
// symbol-prefixed, two-decimal form. Percentages pass through.
func (e *Exporter) NormalizeAmount(amount string) string {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return amount
	}
	if leadingDigitPattern.MatchString(amount) && !strings.Contains(amount, "%") {
		amount = e.currencySymbol + amount
	}
	if m := currencyPattern.FindStringSubmatch(amount); m != nil {
		decimal := m[3]
		switch len(decimal) {
		case 0:
			decimal = "00"
		case 1:
			decimal += "0"
		}
		rest := amount[len(m[0]):]
		amount = m[1] + m[2] + "." + decimal + rest
	}
	return amount
}

// Validate reports schema violations for a finished record. An empty
// slice means the record is publishable.
func Validate(h *types.HotelData) []string {
	var errs []string

	if h.ID == "" {
		errs = append(errs, "missing required field: id")
	}
	if h.Name == "" {
		errs = append(errs, "missing required field: name")
	}
	if h.Town == "" {
		errs = append(errs, "missing required field: town")
	}
	if h.Region == "" {
		errs = append(errs, "missing required field: region")
	}
	if h.Country == "" {
		errs = append(errs, "missing required field: country")
	}
	if h.Sources.PolicyPage == "" && h.Sources.AggregatorURL == "" {
		errs = append(errs, "missing required field: sources.policyPage")
	}

	validSegment := false
	for _, s := range hotels.ValidSegments {
		if h.MarketSegment == s {
			validSegment = true
			break
		}
	}
	if !validSegment {
		errs = append(errs, fmt.Sprintf("invalid market segment: %q", h.MarketSegment))
	}

	for i, tax := range h.Taxes {
		if tax.Name == "" {
			errs = append(errs, fmt.Sprintf("tax %d missing name", i))
		}
		if tax.Amount == "" {
			errs = append(errs, fmt.Sprintf("tax %d missing amount", i))
		}
	}
	for i, fee := range h.Fees {
		if fee.Name == "" {
			errs = append(errs, fmt.Sprintf("fee %d missing name", i))
		}
		if fee.Amount == "" {
			errs = append(errs, fmt.Sprintf("fee %d missing amount", i))
		}
	}
	return errs
}
