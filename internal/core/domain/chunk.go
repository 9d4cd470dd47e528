package domain

// Range is a half-open [Start, End) span of rune offsets into a document's text.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of runes covered.
func (r Range) Len() int {
	return r.End - r.Start
}

// Chunk is a retrievable unit derived from an ExtractedDocument.
type Chunk struct {
	// ID is deterministic from (SourceFilename, Position).
	ID string

	// Text is the chunk content.
	Text string

	// SourceFilename is the registry key of the owning file.
	SourceFilename string

	// Position is the 0-based sequence index within the file.
	Position int

	// Range locates the chunk in the concatenated document text.
	Range Range

	// Embedding is set by the index gateway at upsert time.
	Embedding []float32

	// Metadata holds citation details (pages, timing, direction).
	Metadata map[string]any
}

// ScoredChunk is a retrieval hit.
type ScoredChunk struct {
	Chunk Chunk

	// Score is the similarity to the query; higher is closer.
	Score float64
}

// CollectionStats is an aggregate read-only view of the vector store.
type CollectionStats struct {
	// TotalDocuments is the number of stored chunk vectors.
	TotalDocuments int

	// VectorSize is the embedding dimensionality of the collection.
	VectorSize int

	// TotalFiles is the number of distinct source filenames, when known.
	TotalFiles int
}
