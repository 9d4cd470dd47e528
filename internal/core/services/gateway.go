package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// defaultEmbedBatchSize applies when no batch size is configured.
const defaultEmbedBatchSize = 32

// IndexGateway embeds chunks and owns all reads and writes of the vector store.
type IndexGateway struct {
	embedder  driven.EmbeddingService
	store     driven.VectorStore
	batchSize int

	// seq orders points by insertion. Seeding from the clock keeps it
	// increasing across restarts against a persistent store.
	seq atomic.Int64
}

// NewIndexGateway creates a gateway. batchSize <= 0 uses the default.
func NewIndexGateway(embedder driven.EmbeddingService, store driven.VectorStore, batchSize int) *IndexGateway {
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	g := &IndexGateway{
		embedder:  embedder,
		store:     store,
		batchSize: batchSize,
	}
	g.seq.Store(time.Now().UnixNano())
	return g
}

// Upsert embeds chunks in batches and writes them to the store.
// Any failure is wrapped in domain.ErrEmbeddingOrStore.
func (g *IndexGateway) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if g.embedder == nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingOrStore, domain.ErrEmbeddingUnavailable)
	}

	dims := g.embedder.Dimensions()
	points := make([]driven.VectorPoint, 0, len(chunks))

	for start := 0; start < len(chunks); start += g.batchSize {
		end := min(start+g.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].Text
		}

		vectors, err := g.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("%w: embed batch: %w", domain.ErrEmbeddingOrStore, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("%w: embedder returned %d vectors for %d texts",
				domain.ErrEmbeddingOrStore, len(vectors), len(batch))
		}

		for i := range batch {
			if dims > 0 && len(vectors[i]) != dims {
				return fmt.Errorf("%w: vector has %d dimensions, expected %d",
					domain.ErrEmbeddingOrStore, len(vectors[i]), dims)
			}
			c := batch[i]
			c.Embedding = vectors[i]
			points = append(points, driven.VectorPoint{Chunk: c, Seq: g.seq.Add(1)})
		}
	}

	if err := g.store.Upsert(ctx, points); err != nil {
		return fmt.Errorf("%w: upsert: %w", domain.ErrEmbeddingOrStore, err)
	}
	logger.Debug("upserted %d chunks", len(points))
	return nil
}

// Search embeds query and returns up to k closest chunks.
// Results are ordered by score, then by insertion order.
func (g *IndexGateway) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	if g.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	vector, err := g.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrEmbeddingOrStore, err)
	}

	hits, err := g.store.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", domain.ErrEmbeddingOrStore, err)
	}

	// Adapters are not trusted to order ties.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Seq < hits[j].Seq
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	results := make([]domain.ScoredChunk, len(hits))
	for i, h := range hits {
		results[i] = domain.ScoredChunk{Chunk: h.Chunk, Score: h.Score}
	}
	return results, nil
}

// DeleteByFilename removes every chunk of a file.
func (g *IndexGateway) DeleteByFilename(ctx context.Context, filename string) error {
	if err := g.store.DeleteByFilename(ctx, filename); err != nil {
		return fmt.Errorf("%w: delete %s: %w", domain.ErrEmbeddingOrStore, filename, err)
	}
	return nil
}

// ClearAll removes every vector.
func (g *IndexGateway) ClearAll(ctx context.Context) error {
	if err := g.store.Clear(ctx); err != nil {
		return fmt.Errorf("%w: clear: %w", domain.ErrEmbeddingOrStore, err)
	}
	return nil
}

// Stats returns collection counts. VectorSize falls back to the
// embedder's dimensions when the store has no points yet.
func (g *IndexGateway) Stats(ctx context.Context) (domain.CollectionStats, error) {
	stats, err := g.store.Stats(ctx)
	if err != nil {
		return domain.CollectionStats{}, fmt.Errorf("collection stats: %w", err)
	}
	if stats.VectorSize == 0 && g.embedder != nil {
		stats.VectorSize = g.embedder.Dimensions()
	}
	return stats, nil
}

// Close releases the embedder and the store.
func (g *IndexGateway) Close() error {
	var errs []error
	if g.embedder != nil {
		errs = append(errs, g.embedder.Close())
	}
	errs = append(errs, g.store.Close())
	return errors.Join(errs...)
}
