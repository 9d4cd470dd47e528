package driven

import (
	"context"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// VectorStore persists chunk vectors and answers similarity queries.
// Implementations must be safe for concurrent use.
type VectorStore interface {
	// Upsert inserts or replaces points by ID. Chunks must carry embeddings.
	Upsert(ctx context.Context, points []VectorPoint) error

	// Search returns up to k points closest to the query vector,
	// best first. Ties keep insertion order.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// DeleteByFilename removes every point whose source filename matches.
	DeleteByFilename(ctx context.Context, filename string) error

	// Clear removes all points and recreates the empty collection.
	Clear(ctx context.Context) error

	// Stats returns point count and vector size.
	Stats(ctx context.Context) (domain.CollectionStats, error)

	// Close releases resources.
	Close() error
}

// VectorPoint is one stored chunk with its embedding.
type VectorPoint struct {
	Chunk domain.Chunk

	// Seq is a monotonically increasing insertion counter used to
	// break score ties deterministically.
	Seq int64
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	Chunk domain.Chunk

	// Seq is the insertion counter recorded at upsert time.
	Seq int64

	// Score is the cosine similarity to the query.
	Score float64
}
