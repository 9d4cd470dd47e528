package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

func TestFingerprintStore_PutLoadDelete(t *testing.T) {
	ctx := context.Background()
	store := NewFingerprintStore()

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	fp := domain.FileFingerprint{Filename: "a.txt", ContentHash: "h1", SizeBytes: 3, IndexedAt: time.Now()}
	require.NoError(t, store.Put(ctx, fp))
	require.NoError(t, store.Put(ctx, domain.FileFingerprint{Filename: "b.txt"}))

	all, err = store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "h1", all["a.txt"].ContentHash)

	require.NoError(t, store.Delete(ctx, "a.txt"))
	require.NoError(t, store.Delete(ctx, "missing.txt"))
	all, _ = store.LoadAll(ctx)
	assert.Len(t, all, 1)
}

func TestFingerprintStore_PutReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewFingerprintStore()

	_ = store.Put(ctx, domain.FileFingerprint{Filename: "a.txt", ContentHash: "old"})
	_ = store.Put(ctx, domain.FileFingerprint{Filename: "a.txt", ContentHash: "new"})

	all, _ := store.LoadAll(ctx)
	assert.Len(t, all, 1)
	assert.Equal(t, "new", all["a.txt"].ContentHash)
}

func TestFingerprintStore_LoadAllReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewFingerprintStore()
	_ = store.Put(ctx, domain.FileFingerprint{Filename: "a.txt"})

	all, _ := store.LoadAll(ctx)
	delete(all, "a.txt")

	again, _ := store.LoadAll(ctx)
	assert.Len(t, again, 1)
}

func TestFingerprintStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := NewFingerprintStore()
	_ = store.Put(ctx, domain.FileFingerprint{Filename: "a.txt"})

	require.NoError(t, store.Clear(ctx))

	all, _ := store.LoadAll(ctx)
	assert.Empty(t, all)
}
