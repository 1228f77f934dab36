package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mcleblanc711/ResortFees/internal/export"
)

// Standalone export regeneration: consolidates existing per-hotel JSON
// and rewrites the CSV and frontend outputs without re-scraping.
func main() {
	dataDir := flag.String("data-dir", "data", "Path to the data output directory")
	frontendDir := flag.String("frontend-dir", "", "Frontend data directory to copy the consolidated JSON into")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	exporter := export.NewExporter(*dataDir, *frontendDir, "", logger)

	all, err := exporter.Consolidate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "consolidate failed: %v\n", err)
		os.Exit(1)
	}
	if _, err := exporter.ExportCSVAll(all); err != nil {
		fmt.Fprintf(os.Stderr, "csv export failed: %v\n", err)
		os.Exit(1)
	}
	if _, err := exporter.ExportCSVByCountry(all); err != nil {
		fmt.Fprintf(os.Stderr, "per-country csv export failed: %v\n", err)
		os.Exit(1)
	}
	if _, err := exporter.CopyToFrontend(); err != nil {
		logger.Warn("could not copy to frontend", "error", err)
	}
}
