package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcleblanc711/ResortFees/pkg/types"
)

func testExporter(t *testing.T) (*Exporter, string) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewExporter(dir, "", "$", logger), dir
}

func sampleHotel(name, town, country string, rank int) *types.HotelData {
	return &types.HotelData{
		ID:              strings.ToLower(country + "-" + town + "-" + strings.ReplaceAll(name, " ", "-")),
		Name:            name,
		Town:            town,
		Region:          "Alberta",
		Country:         country,
		MarketSegment:   "Luxury",
		TripadvisorRank: rank,
		Sources: types.Sources{
			OfficialWebsite: "https://example.com",
			PolicyPage:      "https://example.com/policies",
			DataSource:      "official",
		},
		Taxes: []types.TaxFact{{Name: "GST", Amount: "5%", Basis: types.BasisPerNight}},
		Fees: []types.FeeFact{
			{Name: "Resort Fee", Amount: "$25.00", Basis: types.BasisPerNight},
			{Name: "Valet Parking", Amount: "$45.00", Basis: types.BasisPerDay},
		},
		ScrapedAt: "2026-08-29T12:00:00Z",
	}
}

func TestSaveHotelLayout(t *testing.T) {
	e, dir := testExporter(t)

	path, err := e.SaveHotel(sampleHotel("Fairmont Banff Springs", "Banff", "Canada", 1))
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "hotels", "canada", "banff", "fairmont-banff-springs.json")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not written: %v", err)
	}
}

func TestSaveHotelEuropeanCountriesShareDirectory(t *testing.T) {
	e, dir := testExporter(t)

	path, err := e.SaveHotel(sampleHotel("Badrutts Palace", "St Moritz", "Switzerland", 1))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(path, filepath.Join(dir, "hotels", "europe")) {
		t.Errorf("swiss hotel saved outside europe dir: %q", path)
	}
}

func TestConsolidateSortsHotels(t *testing.T) {
	e, dir := testExporter(t)

	for _, h := range []*types.HotelData{
		sampleHotel("Second", "Banff", "Canada", 2),
		sampleHotel("First", "Banff", "Canada", 1),
		sampleHotel("Alpine", "Zermatt", "Switzerland", 1),
	} {
		if _, err := e.SaveHotel(h); err != nil {
			t.Fatal(err)
		}
	}

	all, err := e.Consolidate()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 hotels, got %d", len(all))
	}
	if all[0].Name != "First" || all[1].Name != "Second" || all[2].Name != "Alpine" {
		t.Errorf("sort order wrong: %s, %s, %s", all[0].Name, all[1].Name, all[2].Name)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "all-hotels.json"))
	if err != nil {
		t.Fatal(err)
	}
	var decoded []types.HotelData
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 3 {
		t.Errorf("consolidated file holds %d hotels", len(decoded))
	}
}

func TestExportCSVFlattensFees(t *testing.T) {
	e, dir := testExporter(t)

	all := []types.HotelData{*sampleHotel("Fairmont Banff Springs", "Banff", "Canada", 1)}
	path, err := e.ExportCSVAll(all)
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "exports", "hotels-all.csv") {
		t.Errorf("path = %q", path)
	}

	fh, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer fh.Close()
	rows, err := csv.NewReader(fh).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(rows))
	}

	header, row := rows[0], rows[1]
	col := func(name string) string {
		for i, h := range header {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("missing column %q", name)
		return ""
	}
	if col("resortFee") != "$25.00" {
		t.Errorf("resortFee = %q", col("resortFee"))
	}
	if col("parkingFee") != "$45.00" {
		t.Errorf("parkingFee = %q", col("parkingFee"))
	}
	if col("taxCount") != "1" || col("feeCount") != "2" {
		t.Errorf("counts = %q/%q", col("taxCount"), col("feeCount"))
	}
}

func TestExportCSVByCountry(t *testing.T) {
	e, dir := testExporter(t)

	all := []types.HotelData{
		*sampleHotel("A", "Banff", "Canada", 1),
		*sampleHotel("B", "Zermatt", "Switzerland", 1),
	}
	paths, err := e.ExportCSVByCountry(all)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 files, got %d", len(paths))
	}
	if paths[0] != filepath.Join(dir, "exports", "hotels-canada.csv") {
		t.Errorf("paths[0] = %q", paths[0])
	}
}

func TestNormalizeAmount(t *testing.T) {
	e, _ := testExporter(t)
	cases := map[string]string{
		"$25":     "$25.00",
		"25.00":   "$25.00",
		"45":      "$45.00",
		"€10.5":   "€10.50",
		"5%":      "5%",
		"$1,200":  "$1,200.00",
		"$200.00": "$200.00",
		"":        "",
	}
	for in, want := range cases {
		if got := e.NormalizeAmount(in); got != want {
			t.Errorf("NormalizeAmount(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	h := sampleHotel("Fairmont Banff Springs", "Banff", "Canada", 1)
	if errs := Validate(h); len(errs) != 0 {
		t.Errorf("valid hotel rejected: %v", errs)
	}

	h.Sources.PolicyPage = ""
	h.Sources.AggregatorURL = ""
	h.MarketSegment = "Premium"
	h.Taxes = []types.TaxFact{{Name: "GST"}}
	errs := Validate(h)
	if len(errs) != 3 {
		t.Errorf("expected 3 issues, got %v", errs)
	}
}
