package api

import (
	"strings"
	"sync"
	"time"
)

type cacheEntry struct {
	raw     []byte
	expires time.Time
}

// responseCache memoizes GET bodies by request key. Mutating calls evict by
// substring pattern so a write to /kanban/cards drops every cached cards
// listing at once.
type responseCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *responseCache) get(key string) ([]byte, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.raw, true
}

func (c *responseCache) put(key string, raw []byte) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := make([]byte, len(raw))
	copy(stored, raw)
	c.entries[key] = cacheEntry{raw: stored, expires: c.now().Add(c.ttl)}
}

func (c *responseCache) invalidate(pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pattern == "" {
		c.entries = make(map[string]cacheEntry)
		return
	}
	for key := range c.entries {
		if strings.Contains(key, pattern) {
			delete(c.entries, key)
		}
	}
}
