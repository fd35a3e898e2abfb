// Package types defines the shared data model for the codescope engine:
// chunks, their structural metadata, search results, and the failure
// taxonomy used across the sync and search paths.
//
// A Chunk is the unit of indexing. Exactly one chunk per file carries
// KindFile and spans the whole file; every other chunk in that file links
// back to it (directly or through a class chunk) via ParentID. Chunk IDs
// are content-independent: they hash (kind, qualified name, file path) so
// an edited function keeps its identity while its embedding is recomputed.
package types
