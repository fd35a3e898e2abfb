package searcher

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/codescope-dev/codescope/internal/config"
	"github.com/codescope-dev/codescope/internal/embed"
	"github.com/codescope-dev/codescope/internal/index"
	"github.com/codescope-dev/codescope/pkg/types"
)

// Searcher answers natural-language queries against an index snapshot.
type Searcher struct {
	provider embed.Provider // nil disables the vector signal
	ranker   *Ranker
}

// New creates a searcher. provider may be nil for lexical-only search.
func New(provider embed.Provider, cfg config.RankingConfig) *Searcher {
	return &Searcher{
		provider: provider,
		ranker:   NewRanker(cfg),
	}
}

// Search preprocesses raw, embeds it when a provider is available, and
// returns the topK best-scoring chunks. An empty or never-synced index
// yields an empty result, never an error. Results are 1-based line
// ranges with ellipsized previews.
func (s *Searcher) Search(ctx context.Context, idx *index.Index, raw string, topK int) ([]types.SearchResult, error) {
	if idx == nil || idx.Empty() {
		return nil, nil
	}

	q := Preprocess(raw)
	if q.Canonical == "" {
		return nil, nil
	}

	var queryVec []float32
	if s.provider != nil {
		vec, err := s.provider.Embed(ctx, q.Canonical)
		if err != nil {
			// Degrade to lexical-only scoring.
			log.Debug().Err(err).Msg("query embedding unavailable, using lexical signals only")
		} else {
			queryVec = vec
		}
	}

	results := s.ranker.Rank(q, queryVec, idx, topK)
	log.Debug().
		Str("query", raw).
		Str("canonical", q.Canonical).
		Bool("natural_language", q.IsNaturalLanguage).
		Bool("vector", queryVec != nil).
		Int("results", len(results)).
		Msg("search complete")
	return results, nil
}
