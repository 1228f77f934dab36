package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mcleblanc711/ResortFees/internal/backfill"
	"github.com/mcleblanc711/ResortFees/internal/config"
	"github.com/mcleblanc711/ResortFees/internal/fetcher"
	"github.com/mcleblanc711/ResortFees/internal/pipeline"
	"github.com/mcleblanc711/ResortFees/internal/robots"
	"github.com/mcleblanc711/ResortFees/internal/storage"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "Path to scraper configuration file")
	country := flag.String("country", "", "Only process locations in this country")
	town := flag.String("town", "", "Only process this town")
	dryRun := flag.Bool("dry-run", false, "List hotels that would be processed without scraping")
	exportOnly := flag.Bool("export-only", false, "Regenerate exports from existing data and exit")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := buildLogger(cfg.Logging, *verbose)
	slog.SetDefault(logger)

	filterLocations(cfg, *country, *town)
	if len(cfg.Locations) == 0 {
		fmt.Fprintln(os.Stderr, "no locations match the given filters")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pipe, cleanup, err := buildPipeline(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise pipeline: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if *exportOnly {
		if err := pipe.GenerateExports(); err != nil {
			fmt.Fprintf(os.Stderr, "export generation failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *dryRun {
		found, err := pipe.ListHotels()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list hotels: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("DRY RUN - hotels that would be processed:")
		for _, h := range found {
			fmt.Printf("  - %s (%s, %s)\n", h.Name, h.Town, h.Country)
		}
		return
	}

	if err := pipe.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "scraper stopped with error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(pipe.Report().Generate())
	if err := pipe.SaveReport("logs"); err != nil {
		logger.Warn("could not save run report", "error", err)
	}
}

// buildPipeline assembles the fetch, render, backfill, and storage
// dependencies from configuration.
func buildPipeline(cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, func(), error) {
	httpFetcher, err := fetcher.NewHTTPFetcher(fetcher.Options{
		UserAgent:    cfg.Scraping.UserAgent,
		Headers:      cfg.Scraping.Headers,
		Timeout:      cfg.Scraping.RequestTimeout.Duration,
		MaxBodyBytes: cfg.Scraping.MaxBodyBytes,
		ProxyURL:     cfg.Scraping.ProxyURL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build fetcher: %w", err)
	}

	var renderer fetcher.Renderer
	if cfg.Rendering.Enabled {
		renderer = fetcher.NewChromedpRenderer(fetcher.RenderOptions{
			Timeout:            cfg.Rendering.Timeout.Duration,
			WaitForSelector:    cfg.Rendering.WaitForSelector,
			UserAgent:          cfg.Scraping.UserAgent,
			MaxBodyBytes:       cfg.Scraping.MaxBodyBytes,
			DisableHeadless:    cfg.Rendering.DisableHeadless,
			ConcurrentSessions: cfg.Rendering.ConcurrentSessions,
		})
	}

	var agent *robots.Agent
	if cfg.Robots.Respect {
		agent = robots.NewAgent(cfg.Robots, httpFetcher.Client())
	}

	var gateway *backfill.Gateway
	if cfg.LLM.Enabled {
		client, err := backfill.NewClaudeClient(cfg.LLM)
		if err != nil {
			logger.Warn("model backfill unavailable", "error", err)
		} else {
			gateway = backfill.NewGateway(cfg.LLM, client, logger)
		}
	}

	var store *storage.Store
	cleanup := func() {}
	if cfg.DB.DSN != "" {
		store, err = storage.NewStore(cfg.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("connect storage: %w", err)
		}
		cleanup = func() { _ = store.Close() }
	}

	pipe := pipeline.New(cfg, pipeline.Options{
		Fetcher:  httpFetcher,
		Renderer: renderer,
		Robots:   agent,
		Gateway:  gateway,
		Store:    store,
		Logger:   logger,
	})
	return pipe, cleanup, nil
}

func buildLogger(cfg config.LoggingConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Structured {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func filterLocations(cfg *config.Config, country, town string) {
	if country == "" && town == "" {
		return
	}
	kept := cfg.Locations[:0]
	for _, loc := range cfg.Locations {
		if country != "" && !strings.EqualFold(loc.Country, country) {
			continue
		}
		if town != "" && !strings.EqualFold(loc.Town, town) {
			continue
		}
		kept = append(kept, loc)
	}
	cfg.Locations = kept
}
