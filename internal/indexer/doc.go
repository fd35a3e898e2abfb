// Package indexer keeps the index in step with the codebase through
// incremental sync passes.
//
// A pass discovers candidate files, short-circuits when nothing is
// newer than the last sync, and otherwise re-extracts only what it can
// within a wall-clock budget. Chunks whose ID and file mtime are
// unchanged carry their embeddings over, so the cost of a pass is
// proportional to the amount of changed code, not the size of the
// repository. Files the budget never reaches keep their previous
// chunks; the resulting snapshot is partial but consistent.
//
// Concurrent Sync calls coalesce onto the in-flight pass through
// x/sync/singleflight. TrySync is the non-blocking variant used by
// background triggers.
package indexer
