package metadata

import (
	"strings"
	"sync"

	"airdrop-sentinel/internal/domain"
)

// Cache is an in-process, append-only metadata cache keyed by mint.
// Entries are never removed or downgraded: a write for an existing mint
// merges the new data into the stored entry, which can only fill missing
// fields, add tags, or upgrade the verified flag. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]domain.TokenMetadata
}

// NewCache creates an empty metadata cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]domain.TokenMetadata)}
}

// normalizeMintKey canonicalizes a mint for cache lookup.
func normalizeMintKey(mint string) string {
	return strings.ToLower(strings.TrimSpace(mint))
}

// Get returns the cached metadata for a mint, if present.
func (c *Cache) Get(mint string) (domain.TokenMetadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.entries[normalizeMintKey(mint)]
	return m, ok
}

// Put stores metadata for a mint. If an entry already exists the incoming
// data is merged into it (existing fields win, gaps are filled).
func (c *Cache) Put(meta domain.TokenMetadata) {
	key := normalizeMintKey(meta.Mint)
	if key == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		c.entries[key] = Merge(existing, meta)
		return
	}
	c.entries[key] = meta
}

// PutAll stores a batch of metadata entries, merging per mint.
func (c *Cache) PutAll(metas map[string]domain.TokenMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, meta := range metas {
		if key == "" {
			continue
		}
		if existing, ok := c.entries[key]; ok {
			c.entries[key] = Merge(existing, meta)
			continue
		}
		c.entries[key] = meta
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
