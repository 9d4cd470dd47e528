package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

func newTestStore(t *testing.T) *RegistryStore {
	t.Helper()
	return NewRegistryStore(filepath.Join(t.TempDir(), "registry.json"))
}

func TestRegistryStore_MissingFileIsEmpty(t *testing.T) {
	store := newTestStore(t)

	all, err := store.LoadAll(context.Background())

	require.NoError(t, err)
	assert.Empty(t, all)
	assert.NoFileExists(t, store.Path())
}

func TestRegistryStore_PutPersists(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	mod := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(ctx, domain.FileFingerprint{
		Filename:     "a.txt",
		ContentHash:  "h1",
		SizeBytes:    5,
		ModifiedAt:   mod,
		SourceOrigin: domain.OriginWatch,
		ChunkCount:   3,
	}))

	reopened := NewRegistryStore(store.Path())
	all, err := reopened.LoadAll(ctx)
	require.NoError(t, err)
	require.Contains(t, all, "a.txt")
	assert.Equal(t, "h1", all["a.txt"].ContentHash)
	assert.Equal(t, 3, all["a.txt"].ChunkCount)
	assert.True(t, all["a.txt"].ModifiedAt.Equal(mod))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"version": 1`)
	assert.Contains(t, string(raw), `"content_hash": "h1"`)
}

func TestRegistryStore_PutLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Put(ctx, domain.FileFingerprint{Filename: "a.txt", SizeBytes: int64(i)}))
	}

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "registry.json", entries[0].Name())
}

func TestRegistryStore_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_ = store.Put(ctx, domain.FileFingerprint{Filename: "a.txt"})
	_ = store.Put(ctx, domain.FileFingerprint{Filename: "b.txt"})

	require.NoError(t, store.Delete(ctx, "a.txt"))
	require.NoError(t, store.Delete(ctx, "never-there.txt"))
	all, _ := NewRegistryStore(store.Path()).LoadAll(ctx)
	assert.Len(t, all, 1)
	assert.Contains(t, all, "b.txt")

	require.NoError(t, store.Clear(ctx))
	all, _ = NewRegistryStore(store.Path()).LoadAll(ctx)
	assert.Empty(t, all)
}

func TestRegistryStore_CorruptFileDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":1,"files":{"a.txt":`), 0600))

	store := NewRegistryStore(path)
	store.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	all, err := store.LoadAll(ctx)

	require.ErrorIs(t, err, domain.ErrRegistryCorruption)
	assert.Empty(t, all)
	assert.NoFileExists(t, path)
	assert.FileExists(t, path+".corrupt-20260102T030405Z")

	// Writes continue from the empty registry.
	require.NoError(t, store.Put(ctx, domain.FileFingerprint{Filename: "b.txt"}))
	all, err = NewRegistryStore(path).LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRegistryStore_FutureVersionIsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":99,"files":{}}`), 0600))

	_, err := NewRegistryStore(path).LoadAll(context.Background())

	assert.ErrorIs(t, err, domain.ErrRegistryCorruption)
}

func TestRegistryStore_KeyIsAuthoritative(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"version":1,"files":{"a.txt":{"filename":"other.txt","content_hash":"h"}}}`), 0600))

	all, err := NewRegistryStore(path).LoadAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "a.txt", all["a.txt"].Filename)
}

func TestRegistryStore_ConcurrentPuts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := string(rune('a'+n)) + ".txt"
			assert.NoError(t, store.Put(ctx, domain.FileFingerprint{Filename: name}))
		}(i)
	}
	wg.Wait()

	all, err := NewRegistryStore(store.Path()).LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 20)
}
