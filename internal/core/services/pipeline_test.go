package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/postprocessors/chunker"
)

// testEnv wires the ingestion services over in-memory stores.
type testEnv struct {
	watchDir  string
	registry  *FileRegistry
	vectors   *memory.VectorStore
	gateway   *IndexGateway
	pipeline  *Pipeline
	scheduler *Scheduler
	history   *memory.ScanHistoryStore
	text      *funcExtractor
}

type envOption func(*domain.IngestSettings, *Extractors)

func newTestEnv(t *testing.T, size, overlap int, opts ...envOption) *testEnv {
	t.Helper()

	cfg := domain.IngestSettings{
		Enabled:        true,
		WatchDirectory: filepath.Join(t.TempDir(), "watch"),
		ScanInterval:   time.Hour,
		ChunkSize:      size,
		ChunkOverlap:   overlap,
		Workers:        2,
	}
	text := readFileExtractor()
	ex := Extractors{Text: text}
	for _, opt := range opts {
		opt(&cfg, &ex)
	}
	require.NoError(t, os.MkdirAll(cfg.WatchDirectory, 0o755))

	env := &testEnv{
		watchDir: cfg.WatchDirectory,
		registry: NewFileRegistry(memory.NewFingerprintStore()),
		vectors:  memory.NewVectorStore(testDims),
		history:  memory.NewScanHistoryStore(),
		text:     text,
	}
	env.gateway = NewIndexGateway(newLetterEmbedder(), env.vectors, 8)
	env.pipeline = NewPipeline(
		env.registry,
		NewContentExtractor(ex, testExtraction()),
		chunker.New(chunker.WithChunkSize(size), chunker.WithOverlap(overlap)),
		env.gateway,
		cfg,
	)
	env.scheduler = NewScheduler(cfg, env.pipeline, env.registry, env.history)
	t.Cleanup(func() { _ = env.scheduler.Stop() })
	return env
}

func (e *testEnv) write(t *testing.T, name, content string) {
	t.Helper()
	path := filepath.Join(e.watchDir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (e *testEnv) exists(name string) bool {
	_, err := os.Stat(filepath.Join(e.watchDir, name))
	return err == nil
}

func (e *testEnv) storedChunks(t *testing.T, filename string) []domain.Chunk {
	t.Helper()
	hits, err := e.vectors.Search(context.Background(), make([]float32, testDims), 1000)
	require.NoError(t, err)
	var chunks []domain.Chunk
	for _, h := range hits {
		if h.Chunk.SourceFilename == filename {
			chunks = append(chunks, h.Chunk)
		}
	}
	return chunks
}

func TestPipeline_EndToEnd_TextFile(t *testing.T) {
	env := newTestEnv(t, 20, 5)
	content := strings.Repeat("abcdefghi", 5) // 45 characters
	env.write(t, "a.txt", content)

	result, err := env.scheduler.ForceScan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesSeen)
	assert.Equal(t, 1, result.Indexed)
	assert.Equal(t, 3, result.ChunksWritten)
	assert.True(t, result.Success())

	stats, err := env.gateway.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalDocuments)

	fp, ok := env.registry.Lookup("a.txt")
	require.True(t, ok)
	assert.Equal(t, 3, fp.ChunkCount)
	assert.Equal(t, domain.ExtractorNative, fp.Extractor)
	assert.Equal(t, domain.OriginWatch, fp.SourceOrigin)
	assert.False(t, env.exists("a.txt"))

	byPosition := map[int]domain.Chunk{}
	for _, c := range env.storedChunks(t, "a.txt") {
		byPosition[c.Position] = c
	}
	require.Len(t, byPosition, 3)
	assert.Equal(t, domain.Range{Start: 0, End: 20}, byPosition[0].Range)
	assert.Equal(t, domain.Range{Start: 15, End: 35}, byPosition[1].Range)
	assert.Equal(t, domain.Range{Start: 30, End: 45}, byPosition[2].Range)
	assert.Equal(t, chunker.ChunkID("a.txt", 1), byPosition[1].ID)
}

func TestPipeline_IdempotentReindex(t *testing.T) {
	env := newTestEnv(t, 20, 5)
	content := "the same words in the same file twice"
	env.write(t, "a.txt", content)

	_, err := env.scheduler.ForceScan(context.Background())
	require.NoError(t, err)
	first := env.storedChunks(t, "a.txt")

	// The file comes back with identical content.
	env.write(t, "a.txt", content)
	result, err := env.scheduler.ForceScan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, result.Indexed)
	assert.Equal(t, int32(1), env.text.calls.Load())
	assert.False(t, env.exists("a.txt"))

	second := env.storedChunks(t, "a.txt")
	assert.ElementsMatch(t, ids(first), ids(second))
}

func TestPipeline_ChangedContentIsReindexed(t *testing.T) {
	env := newTestEnv(t, 20, 5)
	env.write(t, "a.txt", "first version of the text")
	first := statSource(t, env.watchDir, "a.txt")

	_, err := env.scheduler.ForceScan(context.Background())
	require.NoError(t, err)

	// Same size, same mtime, different bytes.
	env.write(t, "a.txt", "FIRST VERSION OF THE TEXT")
	path := filepath.Join(env.watchDir, "a.txt")
	require.NoError(t, os.Chtimes(path, first.ModifiedAt, first.ModifiedAt))

	result, err := env.scheduler.ForceScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Indexed)
	assert.Equal(t, int32(2), env.text.calls.Load())

	for _, c := range env.storedChunks(t, "a.txt") {
		assert.Equal(t, strings.ToUpper(c.Text), c.Text)
	}
}

func TestPipeline_ShorterRevisionDropsStaleChunks(t *testing.T) {
	env := newTestEnv(t, 10, 2)
	env.write(t, "a.txt", strings.Repeat("long text ", 10))
	_, err := env.scheduler.ForceScan(context.Background())
	require.NoError(t, err)
	require.Greater(t, len(env.storedChunks(t, "a.txt")), 2)

	env.write(t, "a.txt", "short")
	_, err = env.scheduler.ForceScan(context.Background())
	require.NoError(t, err)

	chunks := env.storedChunks(t, "a.txt")
	require.Len(t, chunks, 1)
	assert.Equal(t, "short", chunks[0].Text)
}

func TestPipeline_FailureLeavesFileAndRegistry(t *testing.T) {
	env := newTestEnv(t, 20, 5)
	env.write(t, "good1.txt", "first good file")
	env.write(t, "bad.txt", "")
	env.write(t, "good2.txt", "second good file")

	result, err := env.scheduler.ForceScan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.FilesSeen)
	assert.Equal(t, 2, result.Indexed)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "bad.txt", result.Failures[0].Filename)

	assert.True(t, env.exists("bad.txt"))
	assert.False(t, env.exists("good1.txt"))
	assert.False(t, env.exists("good2.txt"))

	_, ok := env.registry.Lookup("bad.txt")
	assert.False(t, ok)
	assert.Equal(t, 2, env.registry.Count())
}

func TestPipeline_EmbeddingFailureIsRetriedNextCycle(t *testing.T) {
	env := newTestEnv(t, 20, 5)
	embedder := newLetterEmbedder()
	embedder.embedErr = errBoom
	env.pipeline.index = NewIndexGateway(embedder, env.vectors, 8)

	env.write(t, "a.txt", "some text")
	result, err := env.scheduler.ForceScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, result.Failures[0].Error, domain.ErrEmbeddingOrStore.Error())
	assert.Zero(t, env.registry.Count())

	embedder.embedErr = nil
	result, err = env.scheduler.ForceScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Indexed)
}

func TestPipeline_FileTooLarge(t *testing.T) {
	env := newTestEnv(t, 20, 5)
	env.pipeline.maxFileSize = 4
	env.write(t, "a.txt", "too many bytes")

	result, err := env.scheduler.ForceScan(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0].Error, domain.ErrFileTooLarge.Error())
	assert.Zero(t, env.text.calls.Load())
	assert.True(t, env.exists("a.txt"))
}

func TestPipeline_ArchiveInsteadOfDelete(t *testing.T) {
	archive := ""
	env := newTestEnv(t, 20, 5, func(cfg *domain.IngestSettings, _ *Extractors) {
		archive = filepath.Join(filepath.Dir(cfg.WatchDirectory), "archive")
		cfg.ArchiveDirectory = archive
	})
	env.write(t, "sub/a.txt", "archived text")

	result, err := env.scheduler.ForceScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Indexed)

	assert.False(t, env.exists("sub/a.txt"))
	data, err := os.ReadFile(filepath.Join(archive, "sub", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "archived text", string(data))
}

func TestPipeline_ProcessFileOutcomes(t *testing.T) {
	env := newTestEnv(t, 20, 5)
	ctx := context.Background()
	env.write(t, "a.txt", "hello there")

	outcome, n, err := env.pipeline.ProcessFile(ctx, statSource(t, env.watchDir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeIndexed, outcome)
	assert.Equal(t, 1, n)

	env.write(t, "a.txt", "hello there")
	outcome, n, err = env.pipeline.ProcessFile(ctx, statSource(t, env.watchDir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkipped, outcome)
	assert.Zero(t, n)
}

func ids(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.ID
	}
	return out
}
