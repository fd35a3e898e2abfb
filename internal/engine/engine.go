// Package engine wires discovery, extraction, embedding, storage,
// sync and search into one facade owning the live index snapshot.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codescope-dev/codescope/internal/config"
	"github.com/codescope-dev/codescope/internal/discovery"
	"github.com/codescope-dev/codescope/internal/embed"
	"github.com/codescope-dev/codescope/internal/extract"
	"github.com/codescope-dev/codescope/internal/index"
	"github.com/codescope-dev/codescope/internal/indexer"
	"github.com/codescope-dev/codescope/internal/searcher"
	"github.com/codescope-dev/codescope/internal/store"
	"github.com/codescope-dev/codescope/pkg/types"
)

// Engine is the top-level handle for indexing and searching a set of
// source roots. Searches run against an immutable snapshot that sync
// passes swap atomically, so they never observe a half-updated index.
type Engine struct {
	cfg      *config.Config
	roots    []string
	provider *embed.CachedProvider
	store    store.Store
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	snapshot atomic.Pointer[index.Index]
}

// New builds an engine for roots according to cfg. The persisted
// snapshot, when present and healthy, is served immediately; a corrupt
// one is discarded and rebuilt on the first sync.
func New(cfg *config.Config, roots []string) (*Engine, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("at least one root directory is required")
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}
	cached := embed.NewCachedProvider(provider, embed.NewCache(cfg.Embedding.CacheSize), cfg.Embedding.BatchSize)

	st, err := store.NewSQLiteStore(cfg.Index.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open index store: %w", err)
	}

	finder := discovery.NewFinder(cfg.Index.Extensions)
	ix := indexer.New(finder, extract.New(cfg.Index.MaxChunkLines), cached, st, indexer.Options{
		MaxFileBytes:       cfg.Index.MaxFileBytes,
		Workers:            cfg.Index.Workers,
		Budget:             cfg.Index.SyncBudget,
		EmbedTruncateBytes: cfg.Embedding.TruncateBytes,
	})

	e := &Engine{
		cfg:      cfg,
		roots:    roots,
		provider: cached,
		store:    st,
		indexer:  ix,
		searcher: searcher.New(cached, cfg.Ranking),
	}

	loaded, err := st.Load(context.Background())
	switch {
	case errors.Is(err, types.ErrIndexCorrupt):
		log.Warn().Err(err).Msg("persisted index is corrupt, will rebuild from source")
		e.snapshot.Store(index.New())
	case err != nil:
		_ = st.Close()
		return nil, fmt.Errorf("load index: %w", err)
	default:
		e.snapshot.Store(loaded)
		if !loaded.Empty() {
			log.Info().Int("chunks", loaded.Len()).Time("synced_at", loaded.SyncedAt()).Msg("loaded persisted index")
		}
	}
	return e, nil
}

func buildProvider(cfg *config.Config) (embed.Provider, error) {
	switch cfg.Embedding.Provider {
	case "", "ollama":
		return embed.NewOllamaProvider(cfg.Embedding.OllamaHost, cfg.Embedding.Model, cfg.Embedding.Dimension), nil
	case "static":
		return embed.NewStaticProvider(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

// Snapshot returns the current index snapshot.
func (e *Engine) Snapshot() *index.Index {
	return e.snapshot.Load()
}

// SyncIndex brings the index up to date with the source roots and
// swaps the fresh snapshot in.
func (e *Engine) SyncIndex(ctx context.Context) (types.SyncStats, error) {
	idx, stats, err := e.indexer.Sync(ctx, e.roots, e.Snapshot())
	if err != nil {
		return stats, err
	}
	e.snapshot.Store(idx)
	return stats, nil
}

// TrySyncIndex runs a sync only when none is in flight. The watch loop
// uses it so bursts of file events do not queue passes.
func (e *Engine) TrySyncIndex(ctx context.Context) (types.SyncStats, bool, error) {
	idx, stats, ran, err := e.indexer.TrySync(ctx, e.roots, e.Snapshot())
	if err != nil || !ran {
		return stats, ran, err
	}
	e.snapshot.Store(idx)
	return stats, true, nil
}

// Search syncs first so results reflect the code on disk, then ranks
// against the snapshot. A failed sync degrades to searching the prior
// snapshot rather than failing the query.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]types.SearchResult, error) {
	budget := e.cfg.Index.SearchBudget
	if budget <= 0 {
		budget = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	if _, err := e.SyncIndex(ctx); err != nil {
		log.Warn().Err(err).Msg("sync before search failed, serving previous snapshot")
	}
	return e.searcher.Search(ctx, e.Snapshot(), query, topK)
}

// Status summarizes the engine state for the status command.
type Status struct {
	Chunks    int
	Files     int
	SyncedAt  time.Time
	Provider  string
	Cache     embed.CacheStats
	StoreMode string
}

// Status reports index and cache state.
func (e *Engine) Status() Status {
	idx := e.Snapshot()
	return Status{
		Chunks:    idx.Len(),
		Files:     idx.FileCount(),
		SyncedAt:  idx.SyncedAt(),
		Provider:  e.provider.Name(),
		Cache:     e.provider.CacheStats(),
		StoreMode: store.BuildMode,
	}
}

// Close releases the store and the embedding provider.
func (e *Engine) Close() error {
	err := e.store.Close()
	if perr := e.provider.Close(); err == nil {
		err = perr
	}
	return err
}
