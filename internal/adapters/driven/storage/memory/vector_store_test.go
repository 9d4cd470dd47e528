package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

func point(id, file string, seq int64, vec ...float32) driven.VectorPoint {
	return driven.VectorPoint{
		Chunk: domain.Chunk{ID: id, SourceFilename: file, Text: id, Embedding: vec},
		Seq:   seq,
	}
}

func TestVectorStore_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore(2)

	require.NoError(t, store.Upsert(ctx, []driven.VectorPoint{
		point("x", "a.txt", 1, 1, 0),
		point("y", "a.txt", 2, 0, 1),
		point("z", "b.txt", 3, 1, 1),
	}))

	hits, err := store.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "x", hits[0].Chunk.ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.Equal(t, "z", hits[1].Chunk.ID)
}

func TestVectorStore_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore(2)
	_ = store.Upsert(ctx, []driven.VectorPoint{
		point("late", "a.txt", 9, 1, 0),
		point("early", "b.txt", 2, 1, 0),
	})

	hits, _ := store.Search(ctx, []float32{1, 0}, 5)

	require.Len(t, hits, 2)
	assert.Equal(t, "early", hits[0].Chunk.ID)
	assert.Equal(t, "late", hits[1].Chunk.ID)
}

func TestVectorStore_UpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore(2)
	_ = store.Upsert(ctx, []driven.VectorPoint{point("x", "a.txt", 1, 1, 0)})
	_ = store.Upsert(ctx, []driven.VectorPoint{point("x", "a.txt", 2, 0, 1)})

	stats, _ := store.Stats(ctx)
	assert.Equal(t, 1, stats.TotalDocuments)
}

func TestVectorStore_RejectsWrongDimensions(t *testing.T) {
	store := NewVectorStore(3)
	err := store.Upsert(context.Background(), []driven.VectorPoint{point("x", "a.txt", 1, 1, 0)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVectorStore_DeleteByFilename(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore(2)
	_ = store.Upsert(ctx, []driven.VectorPoint{
		point("x", "a.txt", 1, 1, 0),
		point("y", "a.txt", 2, 0, 1),
		point("z", "b.txt", 3, 1, 1),
	})

	require.NoError(t, store.DeleteByFilename(ctx, "a.txt"))

	stats, _ := store.Stats(ctx)
	assert.Equal(t, 1, stats.TotalDocuments)
	assert.Equal(t, 1, stats.TotalFiles)
	assert.Equal(t, 2, stats.VectorSize)
}

func TestVectorStore_ClearAndZeroK(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore(2)
	_ = store.Upsert(ctx, []driven.VectorPoint{point("x", "a.txt", 1, 1, 0)})

	hits, err := store.Search(ctx, []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, store.Clear(ctx))
	hits, _ = store.Search(ctx, []float32{1, 0}, 5)
	assert.Empty(t, hits)
}

func TestVectorStore_ConcurrentUse(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore(2)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			_ = store.Upsert(ctx, []driven.VectorPoint{point(id, "f.txt", int64(n), 1, float32(n))})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = store.Search(ctx, []float32{1, 1}, 3)
		}()
	}
	wg.Wait()

	stats, _ := store.Stats(ctx)
	assert.Equal(t, 20, stats.TotalDocuments)
}
