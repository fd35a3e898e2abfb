package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheGetSet(t *testing.T) {
	c := NewCache(10)

	vec := []float32{0.1, 0.2, 0.3}
	c.Set("k1", vec)

	got, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, vec, got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestCacheEvictsByAccessOrder(t *testing.T) {
	c := NewCache(3)

	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	c.Set("c", []float32{3})

	// Touch "a" so "b" becomes the least recently used entry.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("d", []float32{4})

	assert.True(t, c.Contains("a"), "recently accessed entry must survive")
	assert.False(t, c.Contains("b"), "least recently used entry must be evicted")
	assert.True(t, c.Contains("c"))
	assert.True(t, c.Contains("d"))
	assert.Equal(t, 3, c.Len())
}

func TestCacheStats(t *testing.T) {
	c := NewCache(2)

	c.Set("a", []float32{1})
	c.Get("a")
	c.Get("a")
	c.Get("missing")
	c.Set("b", []float32{2})
	c.Set("c", []float32{3}) // evicts "a"

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Evictions)
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, 2, stats.Capacity)
	assert.InDelta(t, 2.0/3.0, stats.HitRate(), 1e-9)
}

func TestCacheDefaultSize(t *testing.T) {
	c := NewCache(0)
	assert.Equal(t, DefaultCacheSize, c.Stats().Capacity)
}
