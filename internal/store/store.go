package store

import (
	"context"

	"github.com/codescope-dev/codescope/internal/index"
)

// Store persists index snapshots across restarts. Embeddings are
// deliberately not persisted; they are recomputed (or cache-served)
// after a cold start.
type Store interface {
	// Load reads the persisted snapshot. A store that has never been
	// written returns an empty index with a zero SyncedAt. Corruption
	// wraps types.ErrIndexCorrupt; callers recover by re-syncing from
	// source.
	Load(ctx context.Context) (*index.Index, error)

	// Replace atomically swaps the persisted snapshot for idx in a
	// single transaction.
	Replace(ctx context.Context, idx *index.Index) error

	Close() error
}
