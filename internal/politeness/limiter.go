// Package politeness enforces per-domain delays and failure backoff for
// every outbound request the pipeline makes.
package politeness

import (
	"context"
	"math"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mcleblanc711/ResortFees/internal/config"
)

// Delays are capped regardless of how many failures a domain accumulates.
const maxBackoffDelay = 60 * time.Second

// Limiter schedules requests per domain: a uniform random delay in
// [minDelay, maxDelay] multiplied by backoffFactor^failures, enforced as
// a minimum inter-request gap. State is scoped to one run and safe for
// concurrent use across domains.
type Limiter struct {
	minDelay      time.Duration
	maxDelay      time.Duration
	backoffFactor float64
	maxRetries    int

	bucketEnabled bool
	bucketReqs    int
	bucketWindow  time.Duration

	mu       sync.Mutex
	last     map[string]time.Time
	failures map[string]int
	buckets  map[string]*rate.Limiter
	rng      *rand.Rand
}

// NewLimiter creates a limiter from rate-limiting configuration.
func NewLimiter(cfg config.RateLimitConfig) *Limiter {
	minDelay := cfg.MinDelay.Duration
	maxDelay := cfg.MaxDelay.Duration
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	factor := cfg.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	l := &Limiter{
		minDelay:      minDelay,
		maxDelay:      maxDelay,
		backoffFactor: factor,
		maxRetries:    cfg.MaxRetries,
		last:          make(map[string]time.Time),
		failures:      make(map[string]int),
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if cfg.BucketEnabled() {
		l.bucketEnabled = true
		l.bucketReqs = cfg.BucketRequests
		l.bucketWindow = cfg.BucketWindow.Duration
		l.buckets = make(map[string]*rate.Limiter)
	}
	return l
}

// Wait blocks until it is safe to issue a request to the URL's domain.
// It always eventually returns; the only error is context cancellation.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	domain := domainOf(rawURL)
	if domain == "" {
		return nil
	}

	var sleep time.Duration
	var bucket *rate.Limiter
	now := time.Now()

	l.mu.Lock()
	delay := l.delayForLocked(domain)
	if last, ok := l.last[domain]; ok {
		rest := last.Add(delay).Sub(now)
		if rest > 0 {
			sleep = rest
		}
	}
	if l.bucketEnabled {
		bucket = l.ensureBucketLocked(domain)
	}
	l.mu.Unlock()

	if sleep > 0 {
		timer := time.NewTimer(sleep)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if bucket != nil {
		if err := bucket.Wait(ctx); err != nil {
			return err
		}
	}

	l.mu.Lock()
	l.last[domain] = time.Now()
	l.mu.Unlock()
	return nil
}

// RecordSuccess clears the failure count for the URL's domain.
func (l *Limiter) RecordSuccess(rawURL string) {
	domain := domainOf(rawURL)
	if domain == "" {
		return
	}
	l.mu.Lock()
	l.failures[domain] = 0
	l.mu.Unlock()
}

// RecordFailure increments the domain's failure count and reports
// whether the caller's retry budget is not yet exhausted.
func (l *Limiter) RecordFailure(rawURL string) bool {
	domain := domainOf(rawURL)
	if domain == "" {
		return false
	}
	l.mu.Lock()
	l.failures[domain]++
	count := l.failures[domain]
	l.mu.Unlock()
	return count <= l.maxRetries
}

// FailureCount returns the current failure count for the URL's domain.
func (l *Limiter) FailureCount(rawURL string) int {
	domain := domainOf(rawURL)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures[domain]
}

// delayForLocked computes the jittered, backoff-scaled delay for a
// domain. Caller holds l.mu.
func (l *Limiter) delayForLocked(domain string) time.Duration {
	base := l.minDelay
	if span := l.maxDelay - l.minDelay; span > 0 {
		base += time.Duration(l.rng.Int63n(int64(span) + 1))
	}
	if count := l.failures[domain]; count > 0 {
		scaled := float64(base) * math.Pow(l.backoffFactor, float64(count))
		if scaled > float64(maxBackoffDelay) {
			return maxBackoffDelay
		}
		base = time.Duration(scaled)
	}
	if base > maxBackoffDelay {
		return maxBackoffDelay
	}
	return base
}

func (l *Limiter) ensureBucketLocked(domain string) *rate.Limiter {
	bucket, ok := l.buckets[domain]
	if ok {
		return bucket
	}
	interval := l.bucketWindow / time.Duration(l.bucketReqs)
	if interval <= 0 {
		interval = time.Millisecond
	}
	bucket = rate.NewLimiter(rate.Every(interval), l.bucketReqs)
	l.buckets[domain] = bucket
	return bucket
}

func domainOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
