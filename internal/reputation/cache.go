// File: internal/reputation/cache.go
package reputation

import (
	"sync"
	"time"

	"github.com/xkilldash9x/smishguard/api/schemas"
)

// DefaultCacheTTL is how long a verdict is trusted before the oracle is asked again.
const DefaultCacheTTL = time.Hour

// Clock returns the current time. Tests inject a fake one.
type Clock func() time.Time

type cacheEntry struct {
	verdict  schemas.ReputationVerdict
	storedAt time.Time
}

// Cache is a process local TTL cache of reputation verdicts keyed by
// normalized URL. Expired entries are treated as absent at read time and
// overwritten by the next successful lookup; nothing sweeps them.
// It is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     Clock
	entries map[string]cacheEntry
}

// NewCache creates an empty cache. A non-positive ttl falls back to
// DefaultCacheTTL and a nil clock to time.Now.
func NewCache(ttl time.Duration, now Clock) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{ttl: ttl, now: now, entries: make(map[string]cacheEntry)}
}

// Get returns the verdict for url if one was stored less than the TTL ago.
func (c *Cache) Get(url string) (schemas.ReputationVerdict, bool) {
	c.mu.RLock()
	entry, ok := c.entries[url]
	c.mu.RUnlock()

	if !ok || c.now().Sub(entry.storedAt) >= c.ttl {
		return schemas.ReputationVerdict{}, false
	}
	return entry.verdict, true
}

// Put stores verdicts under a single lock so a batch is never half written.
func (c *Cache) Put(verdicts ...schemas.ReputationVerdict) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range verdicts {
		c.entries[v.URL] = cacheEntry{verdict: v, storedAt: now}
	}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Len counts stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// TTL returns the configured time to live.
func (c *Cache) TTL() time.Duration { return c.ttl }
