package policy

import (
	"sync"
)

type probeOutcome struct {
	found    bool
	finalURL string
}

// ProbeCache remembers probe outcomes for the duration of one run so
// hotels sharing a domain do not re-issue identical existence checks.
type ProbeCache struct {
	mu      sync.RWMutex
	entries map[string]probeOutcome
	max     int
}

// NewProbeCache initialises a cache with an optional capacity hint.
func NewProbeCache(maxEntries int) *ProbeCache {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &ProbeCache{
		entries: make(map[string]probeOutcome),
		max:     maxEntries,
	}
}

// Lookup returns the cached outcome for a URL, if any.
func (c *ProbeCache) Lookup(url string) (finalURL string, found, cached bool) {
	c.mu.RLock()
	outcome, ok := c.entries[url]
	c.mu.RUnlock()
	if !ok {
		return "", false, false
	}
	return outcome.finalURL, outcome.found, true
}

// Store records a probe outcome. Once full the cache stops accepting
// new entries rather than evicting; a run rarely probes enough distinct
// URLs for that to matter.
func (c *ProbeCache) Store(url, finalURL string, found bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[url]; !exists && len(c.entries) >= c.max {
		return
	}
	c.entries[url] = probeOutcome{found: found, finalURL: finalURL}
}
