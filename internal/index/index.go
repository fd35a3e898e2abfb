// Package index holds the in-memory index snapshot that search and
// sync operate on. A snapshot is immutable once built; sync produces a
// new one and swaps it in atomically.
package index

import (
	"fmt"
	"sort"
	"time"

	"github.com/codescope-dev/codescope/pkg/types"
)

// Index is an immutable snapshot of every indexed chunk plus the time
// of the sync that produced it.
type Index struct {
	ordered  []*types.Chunk
	byID     map[string]*types.Chunk
	byFile   map[string][]*types.Chunk
	syncedAt time.Time
}

// New returns an empty index that has never been synced.
func New() *Index {
	return &Index{
		byID:   make(map[string]*types.Chunk),
		byFile: make(map[string][]*types.Chunk),
	}
}

// Build validates chunks and assembles a snapshot. A duplicate ID or a
// chunk that fails validation wraps types.ErrIndexCorrupt; callers
// recover by rebuilding from source.
func Build(chunks []*types.Chunk, syncedAt time.Time) (*Index, error) {
	idx := &Index{
		ordered:  make([]*types.Chunk, 0, len(chunks)),
		byID:     make(map[string]*types.Chunk, len(chunks)),
		byFile:   make(map[string][]*types.Chunk),
		syncedAt: syncedAt,
	}
	for _, c := range chunks {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%w: chunk %q in %s: %v", types.ErrIndexCorrupt, c.Name, c.File, err)
		}
		if _, dup := idx.byID[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate chunk id %s (%s)", types.ErrIndexCorrupt, c.ID, c.File)
		}
		idx.byID[c.ID] = c
		idx.byFile[c.File] = append(idx.byFile[c.File], c)
		idx.ordered = append(idx.ordered, c)
	}

	// Deterministic iteration order regardless of input order.
	sort.Slice(idx.ordered, func(i, j int) bool {
		a, b := idx.ordered[i], idx.ordered[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return a.ID < b.ID
	})
	for _, perFile := range idx.byFile {
		sort.Slice(perFile, func(i, j int) bool {
			if perFile[i].StartLine != perFile[j].StartLine {
				return perFile[i].StartLine < perFile[j].StartLine
			}
			return perFile[i].ID < perFile[j].ID
		})
	}
	return idx, nil
}

// Len returns the number of chunks in the snapshot.
func (idx *Index) Len() int { return len(idx.ordered) }

// Empty reports whether the snapshot has no chunks.
func (idx *Index) Empty() bool { return len(idx.ordered) == 0 }

// SyncedAt returns when this snapshot was produced. The zero time
// means the index has never been synced.
func (idx *Index) SyncedAt() time.Time { return idx.syncedAt }

// Get returns the chunk with the given ID.
func (idx *Index) Get(id string) (*types.Chunk, bool) {
	c, ok := idx.byID[id]
	return c, ok
}

// All returns every chunk ordered by file path then start line.
// Callers must not mutate the returned slice.
func (idx *Index) All() []*types.Chunk { return idx.ordered }

// File returns the chunks of one file ordered by start line.
func (idx *Index) File(path string) []*types.Chunk { return idx.byFile[path] }

// Files returns the set of indexed file paths, sorted.
func (idx *Index) Files() []string {
	files := make([]string, 0, len(idx.byFile))
	for f := range idx.byFile {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// FileCount returns the number of distinct indexed files.
func (idx *Index) FileCount() int { return len(idx.byFile) }
