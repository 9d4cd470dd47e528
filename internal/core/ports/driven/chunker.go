package driven

import "github.com/custodia-labs/ragindex/internal/core/domain"

// Chunker splits an extracted document into overlapping chunks.
type Chunker interface {
	// Name returns the chunker name for logging.
	Name() string

	// Chunk returns the document's chunks in order.
	// Returns domain.ErrEmptyDocument when there is nothing to index.
	Chunk(doc *domain.ExtractedDocument, filename string) ([]domain.Chunk, error)
}
