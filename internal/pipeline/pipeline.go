package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mcleblanc711/ResortFees/internal/aggregator"
	"github.com/mcleblanc711/ResortFees/internal/backfill"
	"github.com/mcleblanc711/ResortFees/internal/config"
	"github.com/mcleblanc711/ResortFees/internal/export"
	"github.com/mcleblanc711/ResortFees/internal/fetcher"
	"github.com/mcleblanc711/ResortFees/internal/hotels"
	"github.com/mcleblanc711/ResortFees/internal/policy"
	"github.com/mcleblanc711/ResortFees/internal/politeness"
	"github.com/mcleblanc711/ResortFees/internal/robots"
	"github.com/mcleblanc711/ResortFees/internal/storage"
	"github.com/mcleblanc711/ResortFees/pkg/types"
)

const scrapedAtFormat = "2006-01-02T15:04:05Z"

// Options carries the externally constructed dependencies of a
// pipeline. Renderer, Gateway, and Store are optional.
type Options struct {
	Fetcher  fetcher.Fetcher
	Renderer fetcher.Renderer
	Robots   *robots.Agent
	Gateway  *backfill.Gateway
	Store    *storage.Store
	Logger   *slog.Logger
}

// Pipeline drives a full scraping run: curated hotels in, exported
// policy records out.
type Pipeline struct {
	cfg      *config.Config
	logger   *slog.Logger
	fetcher  fetcher.Fetcher
	renderer fetcher.Renderer
	limiter  *politeness.Limiter

	finder    *hotels.Finder
	locator   *policy.Locator
	extractor *policy.Extractor
	resolver  *aggregator.Resolver
	gateway   *backfill.Gateway
	exporter  *export.Exporter
	store     *storage.Store
	report    *Report
}

// New wires a pipeline from configuration and its external
// dependencies.
func New(cfg *config.Config, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limiter := politeness.NewLimiter(cfg.RateLimit)
	probes := policy.NewProbeCache(0)

	return &Pipeline{
		cfg:       cfg,
		logger:    logger,
		fetcher:   opts.Fetcher,
		renderer:  opts.Renderer,
		limiter:   limiter,
		finder:    hotels.NewFinder(cfg.Scraping.CuratedDir, logger),
		locator:   policy.NewLocator(opts.Fetcher, limiter, opts.Robots, probes, logger),
		extractor: policy.NewExtractor(cfg.Export.DefaultCurrencySymbol),
		resolver:  aggregator.NewResolver(cfg.Aggregator, opts.Fetcher, opts.Renderer, limiter, logger),
		gateway:   opts.Gateway,
		exporter: export.NewExporter(cfg.Export.DataDir, cfg.Export.FrontendDataDir,
			cfg.Export.DefaultCurrencySymbol, logger),
		store:  opts.Store,
		report: NewReport(),
	}
}

// Report exposes the run report for printing and persistence.
func (p *Pipeline) Report() *Report { return p.report }

// ListHotels returns the curated hotels a run would process, without
// touching the network.
func (p *Pipeline) ListHotels() ([]types.HotelInput, error) {
	var all []types.HotelInput
	for _, loc := range p.cfg.Locations {
		found, err := p.finder.FindHotels(loc.Town, loc.Region, loc.Country, p.cfg.Scraping.HotelsPerTown)
		if err != nil {
			return nil, err
		}
		all = append(all, found...)
	}
	return all, nil
}

// Run processes every configured location and generates exports.
func (p *Pipeline) Run(ctx context.Context) error {
	p.report.Start()
	p.logger.Info("scraping run starting", "run_id", p.report.RunID, "locations", len(p.cfg.Locations))

	pool, err := NewPool(ctx, p.cfg.Scraping.Concurrency, p.cfg.Scraping.Concurrency*2)
	if err != nil {
		return err
	}

	var saved atomic.Int64
	for _, loc := range p.cfg.Locations {
		found, err := p.finder.FindHotels(loc.Town, loc.Region, loc.Country, p.cfg.Scraping.HotelsPerTown)
		if err != nil {
			p.logger.Error("failed to load hotels", "town", loc.Town, "error", err)
			continue
		}
		for _, hotel := range found {
			hotel := hotel
			err := pool.Submit(ctx, func(workerCtx context.Context) {
				if p.processHotel(workerCtx, hotel) {
					saved.Add(1)
				}
			})
			if err != nil {
				pool.Close()
				return fmt.Errorf("submit hotel %s: %w", hotel.Name, err)
			}
		}
	}
	pool.Close()
	p.report.Finish()

	if saved.Load() > 0 {
		if err := p.GenerateExports(); err != nil {
			return err
		}
	}
	p.logger.Info("scraping run complete", "run_id", p.report.RunID, "hotels", saved.Load())
	return nil
}

// GenerateExports consolidates saved hotels and writes the derived CSV
// and frontend outputs. Usable standalone to regenerate exports without
// re-scraping.
func (p *Pipeline) GenerateExports() error {
	all, err := p.exporter.Consolidate()
	if err != nil {
		return fmt.Errorf("consolidate hotels: %w", err)
	}
	if _, err := p.exporter.ExportCSVAll(all); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	if _, err := p.exporter.ExportCSVByCountry(all); err != nil {
		return fmt.Errorf("export csv by country: %w", err)
	}
	if _, err := p.exporter.CopyToFrontend(); err != nil {
		p.logger.Warn("could not copy to frontend", "error", err)
	}
	return nil
}

// SaveReport writes the run summary next to the logs.
func (p *Pipeline) SaveReport(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, "scraping_report.txt")
	if err := os.WriteFile(path, []byte(p.report.Generate()), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// processHotel runs one hotel end to end and reports whether a record
// was saved.
func (p *Pipeline) processHotel(ctx context.Context, hotel types.HotelInput) bool {
	p.logger.Info("processing hotel", "hotel", hotel.Name, "town", hotel.Town, "country", hotel.Country)

	var rec *types.PolicyRecord
	if hotel.OfficialWebsite != "" {
		rec = p.scrapeOfficial(ctx, hotel)
	}
	if rec == nil {
		p.logger.Info("trying aggregator fallback", "hotel", hotel.Name)
		rec = p.scrapeAggregator(ctx, hotel)
	}

	if rec != nil && !rec.HasFacts() && p.gateway.Available() {
		p.gateway.Enrich(ctx, rec, hotel.Name)
	}

	data := p.buildHotelData(hotel, rec)

	if errs := export.Validate(data); len(errs) > 0 {
		p.logger.Warn("validation issues", "hotel", hotel.Name, "issues", strings.Join(errs, "; "))
		if rec == nil {
			p.report.RecordFailure(hotel.Name, hotel.Town, "no policy data scraped")
			return false
		}
		p.report.RecordPartial(hotel.Name, hotel.Town, strings.Join(errs, "; "))
	} else {
		p.report.RecordSuccess(hotel.Name, hotel.Town)
	}

	if _, err := p.exporter.SaveHotel(data); err != nil {
		p.logger.Error("failed to save hotel", "hotel", hotel.Name, "error", err)
		return false
	}
	if p.store != nil {
		if err := p.store.SaveHotel(ctx, data); err != nil {
			p.logger.Error("failed to persist hotel record", "hotel", hotel.Name, "error", err)
		}
	}
	return true
}

// scrapeOfficial locates and extracts the policy page on the hotel's
// own site. Returns nil when no page could be fetched.
func (p *Pipeline) scrapeOfficial(ctx context.Context, hotel types.HotelInput) *types.PolicyRecord {
	policyURL, ok := p.locator.Locate(ctx, hotel.OfficialWebsite)
	if !ok {
		p.logger.Debug("no policy page located", "hotel", hotel.Name, "site", hotel.OfficialWebsite)
		return nil
	}
	page := p.fetchWithRetry(ctx, policyURL)
	if page == nil {
		return nil
	}
	return p.extractRecord(page, policyURL, types.SourceOfficial)
}

// scrapeAggregator resolves the hotel's listing on the aggregator and
// extracts from it.
func (p *Pipeline) scrapeAggregator(ctx context.Context, hotel types.HotelInput) *types.PolicyRecord {
	listing, ok := p.resolver.Resolve(ctx, hotel.Name, hotel.Town, hotel.Country)
	if !ok {
		return nil
	}
	page := p.fetchRenderFirst(ctx, listing)
	if page == nil {
		return nil
	}
	return p.extractRecord(page, listing, types.SourceAggregator)
}

// extractRecord runs the rule pipeline over a fetched page.
func (p *Pipeline) extractRecord(page *types.Page, sourceURL string, kind types.SourceKind) *types.PolicyRecord {
	text := policy.ExtractText(page.Body)
	candidates := policy.Dedupe(p.extractor.Extract(text))

	return &types.PolicyRecord{
		SourceURL:         sourceURL,
		SourceKind:        kind,
		Taxes:             candidates.Taxes,
		Fees:              candidates.Fees,
		ExtraPersonPolicy: candidates.ExtraPerson,
		DamageDeposit:     candidates.DamageDeposit,
		RawText:           text,
	}
}

// fetchWithRetry fetches a URL over plain HTTP, retrying within the
// limiter's failure budget.
func (p *Pipeline) fetchWithRetry(ctx context.Context, rawURL string) *types.Page {
	for {
		if err := p.limiter.Wait(ctx, rawURL); err != nil {
			return nil
		}
		page, err := p.fetcher.Get(ctx, rawURL)
		if err == nil && page.OK() {
			p.limiter.RecordSuccess(rawURL)
			return page
		}
		if err != nil {
			p.logger.Debug("fetch failed", "url", rawURL, "error", err)
		}
		if !p.limiter.RecordFailure(rawURL) {
			return nil
		}
	}
}

// fetchRenderFirst prefers the headless path for script-heavy listing
// pages, falling back to plain HTTP.
func (p *Pipeline) fetchRenderFirst(ctx context.Context, rawURL string) *types.Page {
	if p.renderer != nil {
		if err := p.limiter.Wait(ctx, rawURL); err != nil {
			return nil
		}
		page, err := p.renderer.Render(ctx, rawURL)
		if err == nil && page.OK() {
			p.limiter.RecordSuccess(rawURL)
			return page
		}
		p.limiter.RecordFailure(rawURL)
	}
	return p.fetchWithRetry(ctx, rawURL)
}

// buildHotelData assembles the export record from the input hotel and
// whatever the extraction produced.
func (p *Pipeline) buildHotelData(hotel types.HotelInput, rec *types.PolicyRecord) *types.HotelData {
	data := &types.HotelData{
		ID:              hotels.HotelID(hotel.Country, hotel.Town, hotel.Name),
		Name:            hotel.Name,
		Town:            hotel.Town,
		Region:          hotel.Region,
		Country:         hotel.Country,
		MarketSegment:   hotel.MarketSegment,
		TripadvisorRank: hotel.TripadvisorRank,
		Coordinates:     hotel.Coordinates,
		Sources: types.Sources{
			OfficialWebsite: hotel.OfficialWebsite,
			DataSource:      "unknown",
		},
		Taxes:     []types.TaxFact{},
		Fees:      []types.FeeFact{},
		ScrapedAt: time.Now().UTC().Format(scrapedAtFormat),
	}
	if data.MarketSegment == "" {
		data.MarketSegment = hotels.ClassifySegment(hotel.Name, "", 0)
	}

	if rec == nil {
		data.ScrapingNotes = "No policy data could be scraped"
		return data
	}

	data.Sources.DataSource = string(rec.SourceKind)
	switch rec.SourceKind {
	case types.SourceAggregator:
		data.Sources.AggregatorURL = rec.SourceURL
	default:
		data.Sources.PolicyPage = rec.SourceURL
	}

	for _, tax := range rec.Taxes {
		tax.Amount = p.exporter.NormalizeAmount(tax.Amount)
		data.Taxes = append(data.Taxes, tax)
	}
	for _, fee := range rec.Fees {
		fee.Amount = p.exporter.NormalizeAmount(fee.Amount)
		data.Fees = append(data.Fees, fee)
	}
	data.ExtraPersonPolicy = rec.ExtraPersonPolicy
	if rec.DamageDeposit != nil {
		dd := *rec.DamageDeposit
		dd.Amount = p.exporter.NormalizeAmount(dd.Amount)
		data.DamageDeposit = &dd
	}
	data.ScrapingNotes = rec.Notes
	return data
}
