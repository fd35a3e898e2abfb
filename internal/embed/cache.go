package embed

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of cached vectors when no size is given.
const DefaultCacheSize = 1000

// CacheStats reports cache effectiveness counters.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
	Capacity  int
}

// HitRate returns hits / (hits + misses), or 0 when no lookups occurred.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is an LRU cache of embedding vectors keyed by content hash.
// A Get refreshes recency, so eviction follows access order rather
// than insertion order.
type Cache struct {
	cache    *lru.Cache[string, []float32]
	capacity int

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewCache creates an embedding cache holding at most maxLen vectors.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = DefaultCacheSize
	}
	c := &Cache{capacity: maxLen}
	inner, err := lru.NewWithEvict(maxLen, func(string, []float32) {
		c.evictions.Add(1)
	})
	if err != nil {
		// Cannot happen with a positive size.
		inner, _ = lru.NewWithEvict(DefaultCacheSize, func(string, []float32) {
			c.evictions.Add(1)
		})
	}
	c.cache = inner
	return c
}

// Get returns the cached vector for hash, marking it most recently used.
func (c *Cache) Get(hash string) ([]float32, bool) {
	vec, ok := c.cache.Get(hash)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return vec, ok
}

// Set stores a vector under hash, evicting the least recently used
// entry when the cache is full.
func (c *Cache) Set(hash string, vec []float32) {
	c.cache.Add(hash, vec)
}

// Contains reports whether hash is cached without refreshing recency.
func (c *Cache) Contains(hash string) bool {
	return c.cache.Contains(hash)
}

// Len returns the number of cached vectors.
func (c *Cache) Len() int {
	return c.cache.Len()
}

// Purge drops every cached vector.
func (c *Cache) Purge() {
	c.cache.Purge()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.cache.Len(),
		Capacity:  c.capacity,
	}
}
