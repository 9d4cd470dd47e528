package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/ragindex/internal/adapters/driven/vector/similarity"
	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is a brute-force cosine vector store held in memory.
type VectorStore struct {
	mu         sync.RWMutex
	dimensions int
	points     map[string]driven.VectorPoint
}

// NewVectorStore creates an empty store for vectors of the given size.
func NewVectorStore(dimensions int) *VectorStore {
	return &VectorStore{
		dimensions: dimensions,
		points:     make(map[string]driven.VectorPoint),
	}
}

// Upsert inserts or replaces points by chunk ID.
func (s *VectorStore) Upsert(_ context.Context, points []driven.VectorPoint) error {
	for i := range points {
		if got := len(points[i].Chunk.Embedding); got != s.dimensions {
			return fmt.Errorf("%w: chunk %s has %d dimensions, want %d",
				domain.ErrInvalidInput, points[i].Chunk.ID, got, s.dimensions)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		s.points[p.Chunk.ID] = p
	}
	return nil
}

// Search scores every point against query.
func (s *VectorStore) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	hits := make([]driven.VectorHit, 0, len(s.points))
	for _, p := range s.points {
		hits = append(hits, driven.VectorHit{
			Chunk: p.Chunk,
			Seq:   p.Seq,
			Score: similarity.Cosine(query, p.Chunk.Embedding),
		})
	}
	s.mu.RUnlock()

	return similarity.Rank(hits, k), nil
}

// DeleteByFilename removes every chunk of filename.
func (s *VectorStore) DeleteByFilename(_ context.Context, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.points {
		if p.Chunk.SourceFilename == filename {
			delete(s.points, id)
		}
	}
	return nil
}

// Clear removes every point.
func (s *VectorStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = make(map[string]driven.VectorPoint)
	return nil
}

// Stats returns point and file counts.
func (s *VectorStore) Stats(_ context.Context) (domain.CollectionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	files := make(map[string]struct{})
	for _, p := range s.points {
		files[p.Chunk.SourceFilename] = struct{}{}
	}
	return domain.CollectionStats{
		TotalDocuments: len(s.points),
		VectorSize:     s.dimensions,
		TotalFiles:     len(files),
	}, nil
}

// Close is a no-op.
func (s *VectorStore) Close() error {
	return nil
}
