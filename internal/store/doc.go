// Package store persists index snapshots in SQLite so a restart does
// not force a full re-extraction of the codebase.
//
// Two drivers are supported through build tags: the default pure Go
// driver (modernc.org/sqlite) needs no C toolchain, while -tags
// cgo_sqlite selects mattn/go-sqlite3 for speed. The schema is managed
// by versioned migrations; Replace writes a whole snapshot in one
// transaction so readers never observe a half-written index.
//
// Embedding vectors are never written to disk. They are recomputed on
// the next sync and usually served from the in-memory embedding cache.
package store
