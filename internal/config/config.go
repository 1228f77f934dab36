package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the full configuration for one scraping run.
type Config struct {
	Scraping   ScrapingConfig   `yaml:"scraping"`
	RateLimit  RateLimitConfig  `yaml:"rate_limiting"`
	Robots     RobotsConfig     `yaml:"robots"`
	Rendering  RenderingConfig  `yaml:"rendering"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	LLM        LLMConfig        `yaml:"llm"`
	Export     ExportConfig     `yaml:"export"`
	DB         SQLConfig        `yaml:"db"`
	Logging    LoggingConfig    `yaml:"logging"`
	Locations  []Location       `yaml:"locations"`
}

// ScrapingConfig controls the HTTP fetch layer and run sizing.
type ScrapingConfig struct {
	UserAgent      string            `yaml:"user_agent"`
	Headers        map[string]string `yaml:"headers"`
	ProxyURL       string            `yaml:"proxy_url"`
	RequestTimeout Duration          `yaml:"request_timeout"`
	MaxBodyBytes   int64             `yaml:"max_body_bytes"`
	HotelsPerTown  int               `yaml:"hotels_per_town"`
	CuratedDir     string            `yaml:"curated_dir"`
	Concurrency    int               `yaml:"concurrency"`
}

// RateLimitConfig drives the per-domain politeness limiter.
type RateLimitConfig struct {
	MinDelay      Duration `yaml:"min_delay"`
	MaxDelay      Duration `yaml:"max_delay"`
	BackoffFactor float64  `yaml:"backoff_factor"`
	MaxRetries    int      `yaml:"max_retries"`
	// Optional token bucket layered on top of the jittered delay.
	BucketRequests int      `yaml:"bucket_requests"`
	BucketWindow   Duration `yaml:"bucket_window"`
}

// BucketEnabled reports whether the optional per-domain token bucket is active.
func (r RateLimitConfig) BucketEnabled() bool {
	return r.BucketRequests > 0 && !r.BucketWindow.IsZero()
}

// RobotsConfig configures robots.txt handling for official-site probes.
type RobotsConfig struct {
	Respect   bool     `yaml:"respect"`
	Overrides []string `yaml:"overrides"`
	UserAgent string   `yaml:"user_agent"`
	CacheTTL  Duration `yaml:"cache_ttl"`
}

// RenderingConfig controls the optional headless-browser fetch path.
type RenderingConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Engine             string   `yaml:"engine"`
	Timeout            Duration `yaml:"timeout"`
	WaitForSelector    string   `yaml:"wait_for_selector"`
	ConcurrentSessions int      `yaml:"concurrent_sessions"`
	DisableHeadless    bool     `yaml:"disable_headless"`
}

// AggregatorConfig tunes the booking-site fallback resolver.
type AggregatorConfig struct {
	BaseURL         string  `yaml:"base_url"`
	MatchThreshold  float64 `yaml:"match_threshold"`
	MinBodyBytes    int     `yaml:"min_body_bytes"`
	MaxSearchResult int     `yaml:"max_search_results"`
}

// LLMConfig configures the backfill extraction gateway.
type LLMConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	MaxTokens  int    `yaml:"max_tokens"`
	MaxTextLen int    `yaml:"max_text_len"`
	MinTextLen int    `yaml:"min_text_len"`
}

// ExportConfig controls output sinks.
type ExportConfig struct {
	DataDir               string `yaml:"data_dir"`
	FrontendDataDir       string `yaml:"frontend_data_dir"`
	DefaultCurrencySymbol string `yaml:"default_currency_symbol"`
}

// SQLConfig describes the optional relational sink for finished records.
type SQLConfig struct {
	Driver          string   `yaml:"driver"`
	DSN             string   `yaml:"dsn"`
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool     `yaml:"auto_migrate"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

// Location is one resort town to process.
type Location struct {
	Town    string `yaml:"town"`
	Region  string `yaml:"region"`
	Country string `yaml:"country"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		Scraping: ScrapingConfig{
			UserAgent:      "resortfees-bot/1.0 (+https://github.com/mcleblanc711/ResortFees)",
			Headers:        map[string]string{},
			RequestTimeout: DurationFrom(30 * time.Second),
			MaxBodyBytes:   5 * 1024 * 1024,
			HotelsPerTown:  30,
			CuratedDir:     "data/curated",
			Concurrency:    1,
		},
		RateLimit: RateLimitConfig{
			MinDelay:      DurationFrom(2 * time.Second),
			MaxDelay:      DurationFrom(4 * time.Second),
			BackoffFactor: 2,
			MaxRetries:    3,
		},
		Robots: RobotsConfig{
			Respect:   true,
			Overrides: []string{},
			UserAgent: "resortfees-bot/1.0",
			CacheTTL:  DurationFrom(6 * time.Hour),
		},
		Rendering: RenderingConfig{
			Enabled:            false,
			Engine:             "chromedp",
			Timeout:            DurationFrom(45 * time.Second),
			ConcurrentSessions: 1,
		},
		Aggregator: AggregatorConfig{
			BaseURL:         "https://www.booking.com",
			MatchThreshold:  0.5,
			MinBodyBytes:    2048,
			MaxSearchResult: 25,
		},
		LLM: LLMConfig{
			Enabled:    true,
			Model:      "claude-sonnet-4-20250514",
			MaxTokens:  2000,
			MaxTextLen: 15000,
			MinTextLen: 100,
		},
		Export: ExportConfig{
			DataDir:               "data",
			DefaultCurrencySymbol: "$",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Structured: true,
		},
		DB: SQLConfig{
			AutoMigrate: true,
		},
	}
}

// Load reads, merges, and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fh.Close()
	return LoadFromReader(fh)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces required invariants for the scraper configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Scraping.UserAgent) == "" {
		return errors.New("scraping.user_agent must be set")
	}
	if c.Scraping.RequestTimeout.Duration <= 0 {
		return errors.New("scraping.request_timeout must be > 0")
	}
	if c.Scraping.MaxBodyBytes <= 0 {
		return fmt.Errorf("scraping.max_body_bytes must be > 0 (got %d)", c.Scraping.MaxBodyBytes)
	}
	if c.Scraping.HotelsPerTown <= 0 {
		return fmt.Errorf("scraping.hotels_per_town must be > 0 (got %d)", c.Scraping.HotelsPerTown)
	}
	if c.Scraping.Concurrency <= 0 {
		return fmt.Errorf("scraping.concurrency must be > 0 (got %d)", c.Scraping.Concurrency)
	}
	if c.RateLimit.MinDelay.Duration < 0 || c.RateLimit.MaxDelay.Duration < 0 {
		return errors.New("rate_limiting delays must be >= 0")
	}
	if c.RateLimit.MaxDelay.Duration < c.RateLimit.MinDelay.Duration {
		return errors.New("rate_limiting.max_delay must be >= min_delay")
	}
	if c.RateLimit.BackoffFactor < 1 {
		return fmt.Errorf("rate_limiting.backoff_factor must be >= 1 (got %v)", c.RateLimit.BackoffFactor)
	}
	if c.RateLimit.MaxRetries < 0 {
		return fmt.Errorf("rate_limiting.max_retries must be >= 0 (got %d)", c.RateLimit.MaxRetries)
	}
	if strings.TrimSpace(c.Aggregator.BaseURL) == "" {
		return errors.New("aggregator.base_url must be set")
	}
	if c.Aggregator.MatchThreshold < 0 || c.Aggregator.MatchThreshold > 1 {
		return fmt.Errorf("aggregator.match_threshold must be in [0,1] (got %v)", c.Aggregator.MatchThreshold)
	}
	if len(c.Locations) == 0 {
		return errors.New("at least one location must be configured")
	}
	for i, loc := range c.Locations {
		if loc.Town == "" || loc.Country == "" {
			return fmt.Errorf("location %d missing town or country", i)
		}
	}
	return nil
}

func (c *Config) normalise() {
	c.Scraping.UserAgent = strings.TrimSpace(c.Scraping.UserAgent)
	c.Scraping.CuratedDir = strings.TrimSpace(c.Scraping.CuratedDir)
	c.Robots.UserAgent = strings.TrimSpace(c.Robots.UserAgent)
	if c.Robots.UserAgent == "" {
		c.Robots.UserAgent = c.Scraping.UserAgent
	}
	c.Aggregator.BaseURL = strings.TrimRight(strings.TrimSpace(c.Aggregator.BaseURL), "/")
	c.Export.DataDir = strings.TrimSpace(c.Export.DataDir)
	if c.Export.DefaultCurrencySymbol == "" {
		c.Export.DefaultCurrencySymbol = "$"
	}
	for i := range c.Locations {
		c.Locations[i].Town = strings.TrimSpace(c.Locations[i].Town)
		c.Locations[i].Region = strings.TrimSpace(c.Locations[i].Region)
		c.Locations[i].Country = strings.TrimSpace(c.Locations[i].Country)
	}
	if len(c.Robots.Overrides) > 0 {
		c.Robots.Overrides = dedupeLower(c.Robots.Overrides)
	}
}

func dedupeLower(values []string) []string {
	unique := make(map[string]struct{}, len(values))
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := unique[v]; ok {
			continue
		}
		unique[v] = struct{}{}
		cleaned = append(cleaned, v)
	}
	return cleaned
}
