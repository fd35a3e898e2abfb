package types

import "errors"

// Failure taxonomy. Per-file and per-chunk conditions are recovered locally
// by the sync manager and only counted; the ones below surface to callers
// when a whole operation cannot proceed.
var (
	// ErrFileTooLarge marks a file skipped by the size cap. Oversized files
	// are never partially indexed.
	ErrFileTooLarge = errors.New("file exceeds size cap")

	// ErrParseDegraded marks a chunk that was force-closed at end of file
	// because its braces never balanced.
	ErrParseDegraded = errors.New("unbalanced structure, chunk force-closed")

	// ErrEmbeddingUnavailable is returned by providers when a vector cannot
	// be produced. Callers fall back to lexical-only scoring.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrSyncTimeout marks a sync pass that exceeded its wall-clock budget
	// and returned a partial but consistent index.
	ErrSyncTimeout = errors.New("sync budget exceeded")

	// ErrIndexCorrupt is returned when the persisted index fails integrity
	// checks (duplicate or malformed chunk IDs). The index must be rebuilt
	// from scratch rather than served.
	ErrIndexCorrupt = errors.New("index corrupt")
)
