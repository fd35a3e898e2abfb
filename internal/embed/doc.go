// Package embed generates and caches vector embeddings for code chunks
// and search queries.
//
// A Provider turns text into a fixed-dimension float32 vector. Two
// implementations ship with the package: OllamaProvider calls a local
// Ollama server, and StaticProvider computes deterministic hash-based
// vectors with no external dependency.
//
// CachedProvider wraps any Provider with an LRU cache keyed by the
// SHA-256 of the input text, so re-embedding unchanged chunks during
// incremental sync costs nothing. Batch requests deduplicate their
// inputs and only send cache misses to the underlying provider.
package embed
