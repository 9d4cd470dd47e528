package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragindex/internal/core/domain"
)

func TestRetrievalService_Retrieve(t *testing.T) {
	env := newTestEnv(t, 40, 10)
	env.write(t, "fruit.txt", "apples and pears grow in the orchard every autumn")
	env.write(t, "zoo.txt", "zebras")
	_, err := env.scheduler.ForceScan(context.Background())
	require.NoError(t, err)

	svc := NewRetrievalService(env.gateway)
	results, err := svc.Retrieve(context.Background(), "apples in the orchard", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "fruit.txt", results[0].Chunk.SourceFilename)
}

func TestRetrievalService_EmptyQuestion(t *testing.T) {
	svc := NewRetrievalService(NewIndexGateway(newLetterEmbedder(), memory.NewVectorStore(testDims), 0))

	results, err := svc.Retrieve(context.Background(), "   ", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrievalService_DefaultK(t *testing.T) {
	ctx := context.Background()
	g := NewIndexGateway(newLetterEmbedder(), memory.NewVectorStore(testDims), 0)
	texts := make([]string, 8)
	for i := range texts {
		texts[i] = fmt.Sprintf("chunk number %d", i)
	}
	require.NoError(t, g.Upsert(ctx, testChunks("a.txt", texts...)))

	results, err := NewRetrievalService(g).Retrieve(ctx, "chunk", 0)
	require.NoError(t, err)
	assert.Len(t, results, DefaultTopK)
}

func TestRetrievalService_PropagatesErrors(t *testing.T) {
	embedder := newLetterEmbedder()
	embedder.embedErr = errBoom
	svc := NewRetrievalService(NewIndexGateway(embedder, memory.NewVectorStore(testDims), 0))

	_, err := svc.Retrieve(context.Background(), "question", 3)
	assert.ErrorIs(t, err, domain.ErrEmbeddingOrStore)
}

func TestIndexService_ClearAllResetsRegistry(t *testing.T) {
	env := newTestEnv(t, 20, 5)
	ctx := context.Background()
	env.write(t, "a.txt", "to be cleared")
	_, err := env.scheduler.ForceScan(ctx)
	require.NoError(t, err)

	svc := NewIndexService(env.gateway, env.registry)
	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalDocuments)
	assert.Equal(t, 1, stats.TotalFiles)

	require.NoError(t, svc.ClearAll(ctx))
	stats, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalDocuments)
	assert.Zero(t, env.registry.Count())
}
