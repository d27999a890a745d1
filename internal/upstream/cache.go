package upstream

import (
	"sync"
	"time"
)

// responseCache is a TTL cache over upstream responses. Expiry is checked
// at read time; there is no background sweeper. Eviction on overflow is
// first-inserted-first-evicted, not recency-based.
type responseCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	entries map[string]cacheEntry
	order   []string // insertion order, head is evicted first

	now func() time.Time
}

type cacheEntry struct {
	value      Response
	insertedAt time.Time
}

func newResponseCache(ttl time.Duration, max int) *responseCache {
	return &responseCache{
		ttl:     ttl,
		max:     max,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached response for key if it exists and has not aged
// past the TTL. Expired entries are removed on read.
func (c *responseCache) Get(key string) (Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Response{}, false
	}
	if c.now().Sub(entry.insertedAt) > c.ttl {
		delete(c.entries, key)
		c.dropKey(key)
		return Response{}, false
	}
	return entry.value, true
}

// Put stores a response. When the cache is full the oldest inserted entry
// is evicted first.
func (c *responseCache) Put(key string, value Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = cacheEntry{value: value, insertedAt: c.now()}
		return
	}
	if len(c.entries) >= c.max && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = cacheEntry{value: value, insertedAt: c.now()}
	c.order = append(c.order, key)
}

// Len reports the number of stored entries, expired or not.
func (c *responseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// dropKey removes key from the insertion-order list. Caller must hold mu.
func (c *responseCache) dropKey(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
