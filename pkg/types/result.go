package types

// SearchResult is one ranked hit returned to the caller. Line numbers are
// 1-based for display and CodePreview is capped at a fixed length.
type SearchResult struct {
	File          string         `json:"file"`
	StartLine     int            `json:"startLine"`
	EndLine       int            `json:"endLine"`
	Kind          ChunkKind      `json:"kind"`
	Name          string         `json:"name"`
	QualifiedName string         `json:"qualifiedName"`
	Score         float64        `json:"score"`
	CodePreview   string         `json:"codePreview"`
	Truncated     bool           `json:"truncated,omitempty"`
	Meta          StructuralMeta `json:"structuralMeta"`
}

// SyncStats summarizes one sync pass.
type SyncStats struct {
	TotalChunks   int `json:"totalChunks"`
	NewChunks     int `json:"newChunks"`
	DeletedChunks int `json:"deletedChunks"`

	FilesScanned int `json:"filesScanned"`
	FilesSkipped int `json:"filesSkipped"`
	FilesFailed  int `json:"filesFailed"`
	Reembedded   int  `json:"reembedded"`
	NoOp         bool `json:"noop"`
}
