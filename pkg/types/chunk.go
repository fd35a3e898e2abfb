package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ChunkKind classifies a chunk by the construct it was extracted from.
type ChunkKind string

const (
	KindFile     ChunkKind = "file"
	KindFunction ChunkKind = "function"
	KindClass    ChunkKind = "class"
	KindMethod   ChunkKind = "method"
	KindProperty ChunkKind = "property"
	KindImport   ChunkKind = "import"
	KindExport   ChunkKind = "export"
)

// TokensPerChar is the heuristic used to estimate token counts (chars/4).
const TokensPerChar = 4

// StructuralMeta carries kind-specific facts about a chunk. Only the fields
// relevant to the chunk's kind are populated; the rest stay at their zero
// value. It is persisted as JSON alongside the chunk.
type StructuralMeta struct {
	Parameters []string `json:"parameters,omitempty"`
	ReturnType string   `json:"returnType,omitempty"`
	IsStatic   bool     `json:"isStatic,omitempty"`
	IsExported bool     `json:"isExported,omitempty"`
	Complexity int      `json:"complexity,omitempty"`
	Calls      []string `json:"calls,omitempty"`

	// File-kind chunks.
	Children     []string `json:"children,omitempty"`
	Exports      []string `json:"exports,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`

	// Class-kind chunks.
	Extends string `json:"extends,omitempty"`
}

// Chunk is a semantically meaningful unit of source code tracked by the
// index. IDs are derived from (kind, qualified name, file path) so the same
// logical entity keeps its identity across re-syncs even when its body moves.
type Chunk struct {
	ID            string
	Kind          ChunkKind
	Name          string
	QualifiedName string
	ParentID      string // enclosing class/file chunk, empty for file chunks

	File      string
	StartLine int // 0-based; converted to 1-based at the result surface
	EndLine   int
	LineCount int

	Text       string
	DocComment string
	TokenCount int
	Truncated  bool

	MTime time.Time
	Meta  StructuralMeta

	// Embedding is nil until computed. It is invalidated whenever MTime
	// advances past the value it was computed against; it is never persisted.
	Embedding []float32
}

// ChunkID derives the stable identifier for a chunk.
func ChunkID(kind ChunkKind, qualifiedName, file string) string {
	h := sha256.Sum256([]byte(string(kind) + "\x00" + qualifiedName + "\x00" + file))
	return hex.EncodeToString(h[:12])
}

// ContentHash hashes chunk text for embedding cache lookups.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// EstimateTokens estimates the token count of a text span.
func EstimateTokens(text string) int {
	return len(text) / TokensPerChar
}

// ValidKind reports whether k is one of the recognized chunk kinds.
func ValidKind(k ChunkKind) bool {
	switch k {
	case KindFile, KindFunction, KindClass, KindMethod, KindProperty, KindImport, KindExport:
		return true
	}
	return false
}

// Validate checks the structural invariants a single chunk must satisfy.
func (c *Chunk) Validate() error {
	if c.ID == "" {
		return errors.New("chunk ID is required")
	}
	if !ValidKind(c.Kind) {
		return errors.New("invalid chunk kind")
	}
	if c.File == "" {
		return errors.New("chunk file is required")
	}
	if c.StartLine < 0 || c.EndLine < c.StartLine {
		return errors.New("invalid chunk span")
	}
	if c.Kind != KindFile && c.ParentID == "" {
		return errors.New("non-file chunks require a parent reference")
	}
	return nil
}

// EmbeddingText returns the text that should actually be embedded. Truncated
// chunks embed only their head so provider cost stays bounded.
func (c *Chunk) EmbeddingText(maxBytes int) string {
	if !c.Truncated || maxBytes <= 0 || len(c.Text) <= maxBytes {
		return c.Text
	}
	return c.Text[:maxBytes]
}
