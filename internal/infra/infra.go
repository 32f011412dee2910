// Package infra provides the API layer's operational guards: a
// short-TTL cache for finished analysis reports and a token-bucket
// limiter that bounds how fast analyze runs may start.
package infra

import (
	"context"
	"sync"
	"time"

	"github.com/seenimoa/coveredcall/pkg/models"
)

type reportEntry struct {
	report    *models.Report
	expiresAt time.Time
}

// ReportCache holds finished reports keyed by their run parameters
// (ticker, mode, debate flag, provider). Fundamentals move slowly and
// LLM runs are expensive, so identical requests inside the TTL are
// served from here.
type ReportCache struct {
	mu      sync.RWMutex
	entries map[string]reportEntry
	ttl     time.Duration
}

// NewReportCache creates a report cache whose entries expire after ttl.
func NewReportCache(ttl time.Duration) *ReportCache {
	return &ReportCache{
		entries: make(map[string]reportEntry),
		ttl:     ttl,
	}
}

// Get returns the cached report for key, or false when absent or
// expired. Expired entries are dropped on access.
func (c *ReportCache) Get(key string) (*models.Report, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.report, true
}

// Put stores a finished report under key with the cache's TTL.
func (c *ReportCache) Put(key string, rep *models.Report) {
	c.mu.Lock()
	c.entries[key] = reportEntry{
		report:    rep,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Len reports how many entries are held, expired or not.
func (c *ReportCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RateLimiter is a token bucket bounding how many analyze runs may
// start per refill period. A full bucket absorbs bursts; once drained,
// Wait blocks until tokens refill or the caller's context ends.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     int
	capacity   int
	refillEach time.Duration
	lastRefill time.Time
}

// NewRateLimiter creates a limiter allowing capacity starts per
// refillEach duration.
func NewRateLimiter(capacity int, refillEach time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:     capacity,
		capacity:   capacity,
		refillEach: refillEach,
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		rl.refill()
		if rl.tokens > 0 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
			// Check again after a short sleep.
		}
	}
}

// refill adds tokens based on elapsed time. Must be called with mu held.
func (rl *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill)
	if elapsed >= rl.refillEach {
		periods := int(elapsed / rl.refillEach)
		rl.tokens += periods
		if rl.tokens > rl.capacity {
			rl.tokens = rl.capacity
		}
		rl.lastRefill = rl.lastRefill.Add(time.Duration(periods) * rl.refillEach)
	}
}
