package embed

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of texts sent to the underlying
// provider in one call when no size is configured.
const DefaultBatchSize = 16

// CachedProvider wraps a Provider with an LRU cache keyed by content
// hash. Repeated texts hit the cache and never reach the provider.
type CachedProvider struct {
	provider  Provider
	cache     *Cache
	batchSize int
}

// NewCachedProvider wraps provider with cache. A nil cache allocates
// one of DefaultCacheSize.
func NewCachedProvider(provider Provider, cache *Cache, batchSize int) *CachedProvider {
	if cache == nil {
		cache = NewCache(DefaultCacheSize)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &CachedProvider{
		provider:  provider,
		cache:     cache,
		batchSize: batchSize,
	}
}

// Embed returns the vector for text, consulting the cache first.
func (p *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	hash := ComputeHash(text)
	if vec, ok := p.cache.Get(hash); ok {
		return vec, nil
	}
	vec, err := p.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	p.cache.Set(hash, vec)
	return vec, nil
}

// EmbedBatch returns one vector per text, in input order. Cached texts
// are served locally; the remainder is deduplicated and sent to the
// provider in batches of at most batchSize, two batches in flight.
func (p *CachedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	// Resolve cache hits and collect distinct misses.
	missIdx := make(map[string][]int)
	var missTexts []string
	for i, text := range texts {
		hash := ComputeHash(text)
		if vec, ok := p.cache.Get(hash); ok {
			out[i] = vec
			continue
		}
		if _, seen := missIdx[hash]; !seen {
			missTexts = append(missTexts, text)
		}
		missIdx[hash] = append(missIdx[hash], i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	missVecs := make([][]float32, len(missTexts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for start := 0; start < len(missTexts); start += p.batchSize {
		end := start + p.batchSize
		if end > len(missTexts) {
			end = len(missTexts)
		}
		start := start
		g.Go(func() error {
			vecs, err := p.provider.EmbedBatch(gctx, missTexts[start:end])
			if err != nil {
				return err
			}
			if len(vecs) != end-start {
				return fmt.Errorf("provider returned %d vectors for %d texts", len(vecs), end-start)
			}
			copy(missVecs[start:], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, text := range missTexts {
		hash := ComputeHash(text)
		p.cache.Set(hash, missVecs[i])
		for _, idx := range missIdx[hash] {
			out[idx] = missVecs[i]
		}
	}
	return out, nil
}

// Dimension reports the wrapped provider's vector dimension.
func (p *CachedProvider) Dimension() int { return p.provider.Dimension() }

// Name reports the wrapped provider's name.
func (p *CachedProvider) Name() string { return p.provider.Name() }

// Close closes the wrapped provider and drops the cache contents.
func (p *CachedProvider) Close() error {
	p.cache.Purge()
	return p.provider.Close()
}

// CacheStats exposes the underlying cache counters.
func (p *CachedProvider) CacheStats() CacheStats {
	return p.cache.Stats()
}
