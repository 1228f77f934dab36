package config

import (
	"strings"
	"testing"
	"time"
)

const minimalYAML = `
scraping:
  user_agent: "test-bot/1.0"
locations:
  - town: Banff
    region: Alberta
    country: Canada
`

func TestLoadFromReaderAppliesDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(minimalYAML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RateLimit.MinDelay.Duration != 2*time.Second {
		t.Errorf("min delay = %v", cfg.RateLimit.MinDelay.Duration)
	}
	if cfg.RateLimit.MaxRetries != 3 {
		t.Errorf("max retries = %d", cfg.RateLimit.MaxRetries)
	}
	if cfg.Aggregator.MatchThreshold != 0.5 {
		t.Errorf("match threshold = %v", cfg.Aggregator.MatchThreshold)
	}
	if cfg.Export.DefaultCurrencySymbol != "$" {
		t.Errorf("currency symbol = %q", cfg.Export.DefaultCurrencySymbol)
	}
	if !cfg.LLM.Enabled || cfg.LLM.MaxTextLen != 15000 {
		t.Errorf("llm config = %+v", cfg.LLM)
	}
}

func TestLoadFromReaderOverrides(t *testing.T) {
	yaml := minimalYAML + `
rate_limiting:
  min_delay: 1s
  max_delay: 3s
  backoff_factor: 1.5
aggregator:
  base_url: "https://aggregator.test/"
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RateLimit.MinDelay.Duration != time.Second {
		t.Errorf("min delay = %v", cfg.RateLimit.MinDelay.Duration)
	}
	if cfg.RateLimit.BackoffFactor != 1.5 {
		t.Errorf("backoff factor = %v", cfg.RateLimit.BackoffFactor)
	}
	if cfg.Aggregator.BaseURL != "https://aggregator.test" {
		t.Errorf("trailing slash should be trimmed, got %q", cfg.Aggregator.BaseURL)
	}
}

func TestValidateRejectsInvertedDelays(t *testing.T) {
	cfg := Default()
	cfg.Locations = []Location{{Town: "Banff", Country: "Canada"}}
	cfg.RateLimit.MinDelay = DurationFrom(5 * time.Second)
	cfg.RateLimit.MaxDelay = DurationFrom(2 * time.Second)
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for max < min")
	}
}

func TestValidateRequiresLocations(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error with no locations")
	}
}

func TestValidateRejectsUnknownFields(t *testing.T) {
	yaml := minimalYAML + "\nnot_a_real_section:\n  x: 1\n"
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Error("expected decode error for unknown fields")
	}
}

func TestDurationAcceptsNumericSeconds(t *testing.T) {
	yaml := minimalYAML + `
rate_limiting:
  min_delay: 2
  max_delay: 4
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RateLimit.MinDelay.Duration != 2*time.Second {
		t.Errorf("numeric seconds not honoured: %v", cfg.RateLimit.MinDelay.Duration)
	}
}
