package indexer

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/codescope-dev/codescope/internal/discovery"
	"github.com/codescope-dev/codescope/internal/embed"
	"github.com/codescope-dev/codescope/internal/extract"
	"github.com/codescope-dev/codescope/internal/index"
	"github.com/codescope-dev/codescope/internal/store"
	"github.com/codescope-dev/codescope/pkg/types"
)

// Options tunes a sync pass. Zero values fall back to defaults.
type Options struct {
	// MaxFileBytes caps indexable file size; oversized files are
	// skipped whole.
	MaxFileBytes int64
	// Workers bounds concurrent file extraction.
	Workers int
	// Budget is the wall-clock limit for one pass. Files not reached
	// in time keep their previous chunks.
	Budget time.Duration
	// EmbedTruncateBytes is how much of a truncated chunk is embedded.
	EmbedTruncateBytes int
}

const (
	defaultMaxFileBytes = 512 * 1024
	defaultWorkers      = 8
	defaultBudget       = 60 * time.Second
)

// Indexer runs incremental sync passes: discover candidate files,
// extract chunks from changed ones, embed what is new, and produce a
// fresh immutable snapshot.
type Indexer struct {
	finder    *discovery.Finder
	extractor *extract.Extractor
	provider  embed.Provider
	store     store.Store // nil disables persistence
	opts      Options

	flight singleflight.Group
	mu     sync.Mutex
}

// New assembles an indexer. store may be nil for purely in-memory use.
func New(finder *discovery.Finder, extractor *extract.Extractor, provider embed.Provider, st store.Store, opts Options) *Indexer {
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = defaultMaxFileBytes
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Budget <= 0 {
		opts.Budget = defaultBudget
	}
	return &Indexer{
		finder:    finder,
		extractor: extractor,
		provider:  provider,
		store:     st,
		opts:      opts,
	}
}

type syncResult struct {
	idx   *index.Index
	stats types.SyncStats
}

// Sync brings current up to date with the files under roots and
// returns the new snapshot. Concurrent calls for the same roots
// coalesce onto the in-flight pass and share its result.
func (ix *Indexer) Sync(ctx context.Context, roots []string, current *index.Index) (*index.Index, types.SyncStats, error) {
	key := strings.Join(roots, "\x00")
	v, err, _ := ix.flight.Do(key, func() (interface{}, error) {
		ix.mu.Lock()
		defer ix.mu.Unlock()
		idx, stats, err := ix.syncOnce(ctx, roots, current)
		if err != nil {
			return nil, err
		}
		return syncResult{idx: idx, stats: stats}, nil
	})
	if err != nil {
		return nil, types.SyncStats{}, err
	}
	res := v.(syncResult)
	return res.idx, res.stats, nil
}

// TrySync runs a pass only when none is already in flight. Background
// callers (the file watcher) use it to avoid piling up passes behind a
// slow one.
func (ix *Indexer) TrySync(ctx context.Context, roots []string, current *index.Index) (*index.Index, types.SyncStats, bool, error) {
	if !ix.mu.TryLock() {
		return nil, types.SyncStats{}, false, nil
	}
	defer ix.mu.Unlock()
	idx, stats, err := ix.syncOnce(ctx, roots, current)
	return idx, stats, true, err
}

func (ix *Indexer) syncOnce(ctx context.Context, roots []string, current *index.Index) (*index.Index, types.SyncStats, error) {
	start := time.Now()
	var stats types.SyncStats

	files, err := ix.finder.ListAll(roots)
	if err != nil {
		return nil, stats, err
	}
	stats.FilesScanned = len(files)

	eligible := 0
	for _, fi := range files {
		if fi.Size <= ix.opts.MaxFileBytes {
			eligible++
		}
	}

	// Fast path: nothing newer than the last pass and no file was
	// added or removed.
	if !current.Empty() && !current.SyncedAt().IsZero() &&
		eligible == current.FileCount() &&
		!discovery.NewestMTime(files).After(current.SyncedAt()) {
		stats.TotalChunks = current.Len()
		if missingEmbeddings(current) {
			// Chunks loaded from the store carry no vectors; re-embed
			// them without re-extracting anything.
			return ix.rehydrate(ctx, current, stats)
		}
		stats.NoOp = true
		log.Debug().Int("files", len(files)).Msg("sync fast path, index up to date")
		return current, stats, nil
	}

	ctx, cancel := context.WithTimeout(ctx, ix.opts.Budget)
	defer cancel()

	visited, skipped, failed := ix.extractAll(ctx, files)
	stats.FilesSkipped = skipped
	stats.FilesFailed = failed
	if ctx.Err() != nil {
		log.Warn().Err(types.ErrSyncTimeout).
			Int("unvisited", eligible-len(visited)).
			Msg("pass ran out of budget, unreached files keep their prior chunks")
	}

	next, deleted, reused := ix.merge(current, files, visited)
	stats.DeletedChunks = deleted

	stats.Reembedded = ix.embedMissing(ctx, next)
	stats.NewChunks = len(next) - reused
	stats.TotalChunks = len(next)

	idx, err := index.Build(next, time.Now())
	if err != nil {
		return nil, stats, err
	}

	if ix.store != nil {
		if err := ix.store.Replace(ctx, idx); err != nil {
			// The in-memory snapshot is still good; persistence will be
			// retried on the next pass.
			log.Warn().Err(err).Msg("failed to persist index snapshot")
		}
	}

	log.Info().
		Int("chunks", stats.TotalChunks).
		Int("new", stats.NewChunks).
		Int("deleted", stats.DeletedChunks).
		Int("reembedded", stats.Reembedded).
		Int("failed", stats.FilesFailed).
		Dur("took", time.Since(start)).
		Msg("sync pass complete")
	return idx, stats, nil
}

// rehydrate re-embeds an up-to-date snapshot whose chunks lack vectors,
// which is the state after every cold start since embeddings are never
// persisted. No extraction runs and the store is untouched; the chunk
// rows there are already current.
func (ix *Indexer) rehydrate(ctx context.Context, current *index.Index, stats types.SyncStats) (*index.Index, types.SyncStats, error) {
	ctx, cancel := context.WithTimeout(ctx, ix.opts.Budget)
	defer cancel()

	next := make([]*types.Chunk, 0, current.Len())
	for _, c := range current.All() {
		next = append(next, reusable(c))
	}
	stats.Reembedded = ix.embedMissing(ctx, next)
	if stats.Reembedded == 0 {
		// Provider unavailable; keep serving the snapshot as is and
		// retry on the next pass.
		stats.NoOp = true
		return current, stats, nil
	}
	idx, err := index.Build(next, current.SyncedAt())
	if err != nil {
		return nil, stats, err
	}
	log.Info().Int("reembedded", stats.Reembedded).Msg("recomputed embeddings for persisted snapshot")
	return idx, stats, nil
}

func missingEmbeddings(idx *index.Index) bool {
	for _, c := range idx.All() {
		if c.Embedding == nil {
			return true
		}
	}
	return false
}

// fileResult holds the extraction output for one visited file.
type fileResult struct {
	info   discovery.FileInfo
	chunks []*types.Chunk
}

// extractAll fans extraction out over a bounded worker pool. Files the
// budget never reaches are simply absent from the result; merge keeps
// their previous chunks.
func (ix *Indexer) extractAll(ctx context.Context, files []discovery.FileInfo) (map[string]fileResult, int, int) {
	var (
		mu      sync.Mutex
		visited = make(map[string]fileResult, len(files))
		skipped int
		failed  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.opts.Workers)
	for _, fi := range files {
		if gctx.Err() != nil {
			break
		}
		if fi.Size > ix.opts.MaxFileBytes {
			log.Debug().Err(types.ErrFileTooLarge).Str("file", fi.Path).Int64("size", fi.Size).Msg("skipping file")
			mu.Lock()
			skipped++
			mu.Unlock()
			continue
		}
		fi := fi
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			data, err := os.ReadFile(fi.Path)
			if err != nil {
				log.Warn().Err(err).Str("file", fi.Path).Msg("failed to read file")
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			chunks := ix.extractor.Extract(string(data), fi.Path, fi.MTime)
			mu.Lock()
			visited[fi.Path] = fileResult{info: fi, chunks: chunks}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return visited, skipped, failed
}

// merge combines the extraction results with the previous snapshot:
// unchanged chunks keep their embeddings, chunks of visited files that
// vanished are dropped, files the pass never reached keep their prior
// chunks, and files missing from the candidate list (gone from disk or
// grown past the size cap) have their chunks deleted.
func (ix *Indexer) merge(current *index.Index, candidates []discovery.FileInfo, visited map[string]fileResult) (next []*types.Chunk, deleted, reused int) {
	candidateSet := make(map[string]bool, len(candidates))
	for _, fi := range candidates {
		if fi.Size <= ix.opts.MaxFileBytes {
			candidateSet[fi.Path] = true
		}
	}

	for _, res := range visited {
		for _, c := range res.chunks {
			if prev, ok := current.Get(c.ID); ok && prev.MTime.Equal(c.MTime) {
				next = append(next, reusable(prev))
				reused++
			} else {
				next = append(next, c)
			}
		}
	}

	for _, file := range current.Files() {
		if _, ok := visited[file]; ok {
			// Re-extracted above; anything the new extraction did not
			// produce is deleted.
			for _, prev := range current.File(file) {
				if !containsChunk(visited[file].chunks, prev.ID) {
					deleted++
				}
			}
			continue
		}
		if candidateSet[file] {
			// Candidate the budget never reached: keep prior chunks so a
			// partial pass still yields a consistent index.
			for _, prev := range current.File(file) {
				next = append(next, reusable(prev))
				reused++
			}
			continue
		}
		// File is gone from disk or no longer eligible; its chunks go
		// with it.
		deleted += len(current.File(file))
	}
	return next, deleted, reused
}

// reusable returns prev itself when it can be shared read-only, or a
// copy when embedMissing may still write its vector. Chunks owned by
// the served snapshot must never be written through.
func reusable(prev *types.Chunk) *types.Chunk {
	if prev.Embedding != nil {
		return prev
	}
	cp := *prev
	return &cp
}

func containsChunk(chunks []*types.Chunk, id string) bool {
	for _, c := range chunks {
		if c.ID == id {
			return true
		}
	}
	return false
}

// embedMissing fills in nil embeddings. A provider failure leaves them
// nil and search degrades to lexical scoring.
func (ix *Indexer) embedMissing(ctx context.Context, chunks []*types.Chunk) int {
	if ix.provider == nil {
		return 0
	}
	var pending []*types.Chunk
	var texts []string
	for _, c := range chunks {
		if c.Embedding != nil {
			continue
		}
		pending = append(pending, c)
		texts = append(texts, c.EmbeddingText(ix.opts.EmbedTruncateBytes))
	}
	if len(pending) == 0 {
		return 0
	}

	vecs, err := ix.provider.EmbedBatch(ctx, texts)
	if err != nil {
		log.Warn().Err(err).Int("chunks", len(pending)).Msg("embedding unavailable, continuing without vectors")
		return 0
	}
	for i, c := range pending {
		c.Embedding = vecs[i]
	}
	return len(pending)
}
