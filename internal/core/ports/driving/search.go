package driving

import (
	"context"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// RetrievalService answers similarity queries over indexed chunks.
// It never writes.
type RetrievalService interface {
	// Retrieve returns up to k chunks closest to question, best first.
	Retrieve(ctx context.Context, question string, k int) ([]domain.ScoredChunk, error)
}

// IndexService exposes maintenance operations on the vector index.
type IndexService interface {
	// Stats returns aggregate counts for the collection.
	Stats(ctx context.Context) (domain.CollectionStats, error)

	// ClearAll removes every vector and every registry fingerprint,
	// so the next cycle re-indexes everything still present.
	ClearAll(ctx context.Context) error
}
