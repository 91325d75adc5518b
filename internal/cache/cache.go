// Package cache is the in-process retrieval result cache.
package cache

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/okp/internal/domain"
	"github.com/kailas-cloud/okp/internal/domain/result"
)

type entry struct {
	value      result.Result
	insertedAt time.Time
}

// Cache maps request keys to results with a TTL and a size bound.
// Expiry is lazy; at capacity the entry with the oldest insertion time is
// evicted. A zero TTL disables the cache. Safe for concurrent use.
type Cache struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

// New creates a cache. now may be nil (time.Now).
func New(ttl time.Duration, maxEntries int, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        now,
		entries:    make(map[string]entry),
	}
}

// Key builds the cache key from the stripped query, rows and filters.
func Key(query string, rows int, f domain.Filters) string {
	return strings.Join([]string{query, strconv.Itoa(rows), f.Product, f.Version, f.DocumentKind}, "\x00")
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool { return c.ttl > 0 && c.maxEntries > 0 }

// Get returns the cached result if present and younger than the TTL.
// Expired entries are removed.
func (c *Cache) Get(key string) (result.Result, bool) {
	if !c.Enabled() {
		return result.Result{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return result.Result{}, false
	}
	if c.now().Sub(e.insertedAt) >= c.ttl {
		delete(c.entries, key)
		return result.Result{}, false
	}
	return e.value, true
}

// Put stores a result, evicting the oldest entry when a new key would exceed capacity.
func (c *Cache) Put(key string, r result.Result) {
	if !c.Enabled() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = entry{value: r, insertedAt: c.now()}
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictOldestLocked() {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for k, e := range c.entries {
		if !found || e.insertedAt.Before(oldestAt) {
			oldestKey, oldestAt, found = k, e.insertedAt, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}
