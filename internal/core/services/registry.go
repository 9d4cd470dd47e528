package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// FileRegistry decides whether a file's current content is already indexed
// and records fingerprints once indexing has fully succeeded.
//
// The registry is loaded once and then kept in memory; every commit is
// written through to the store before the in-memory view changes.
type FileRegistry struct {
	store driven.FingerprintStore

	mu     sync.RWMutex
	files  map[string]domain.FileFingerprint
	loaded bool

	hash func(path string) (string, error)
}

// NewFileRegistry creates a registry over store.
func NewFileRegistry(store driven.FingerprintStore) *FileRegistry {
	return &FileRegistry{
		store: store,
		files: make(map[string]domain.FileFingerprint),
		hash:  HashFile,
	}
}

// Load reads the store. A corrupt registry is logged and replaced by an
// empty one, which causes every present file to be re-indexed.
func (r *FileRegistry) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked(ctx)
}

func (r *FileRegistry) loadLocked(ctx context.Context) error {
	files, err := r.store.LoadAll(ctx)
	switch {
	case errors.Is(err, domain.ErrRegistryCorruption):
		logger.Error("file registry unreadable, starting empty: %v", err)
		files = nil
	case err != nil:
		return fmt.Errorf("load registry: %w", err)
	}
	if files == nil {
		files = make(map[string]domain.FileFingerprint)
	}
	r.files = files
	r.loaded = true
	return nil
}

func (r *FileRegistry) ensureLoaded(ctx context.Context) error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return nil
	}
	return r.loadLocked(ctx)
}

// IsAlreadyIndexed reports whether file's current content matches its fingerprint.
//
// A missing fingerprint or a size change means the file must be indexed.
// Otherwise the content hash decides, so a touched but unchanged file is
// still recognised. If the file cannot be hashed, a modification time
// mismatch is treated as a change.
func (r *FileRegistry) IsAlreadyIndexed(ctx context.Context, file *domain.SourceFile) (bool, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return false, err
	}

	fp, ok := r.Lookup(file.Name)
	if !ok {
		return false, nil
	}
	if fp.SizeBytes != file.SizeBytes {
		return false, nil
	}

	hash, err := r.EnsureHash(file)
	if err != nil || fp.ContentHash == "" {
		if err != nil {
			logger.Warn("hash %s: %v; comparing modification time instead", file.Name, err)
		}
		return fp.ModifiedAt.Equal(file.ModifiedAt), nil
	}
	return hash == fp.ContentHash, nil
}

// EnsureHash computes the file's content hash once and caches it on file.
func (r *FileRegistry) EnsureHash(file *domain.SourceFile) (string, error) {
	if file.ContentHash != "" {
		return file.ContentHash, nil
	}
	h, err := r.hash(file.Path)
	if err != nil {
		return "", err
	}
	file.ContentHash = h
	return h, nil
}

// Commit records fp as the fingerprint of file. It is the last step of a
// successful indexing attempt; a failed write leaves the previous record intact.
func (r *FileRegistry) Commit(ctx context.Context, file *domain.SourceFile, fp domain.FileFingerprint) error {
	if err := r.ensureLoaded(ctx); err != nil {
		return err
	}
	if fp.Filename == "" {
		fp.Filename = file.Name
	}
	if fp.ContentHash == "" {
		hash, err := r.EnsureHash(file)
		if err != nil {
			return fmt.Errorf("commit %s: %w", fp.Filename, err)
		}
		fp.ContentHash = hash
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.Put(ctx, fp); err != nil {
		return fmt.Errorf("commit %s: %w", fp.Filename, err)
	}
	r.files[fp.Filename] = fp
	return nil
}

// Forget removes the fingerprint for filename.
func (r *FileRegistry) Forget(ctx context.Context, filename string) error {
	if err := r.ensureLoaded(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.Delete(ctx, filename); err != nil {
		return fmt.Errorf("forget %s: %w", filename, err)
	}
	delete(r.files, filename)
	return nil
}

// Clear removes every fingerprint.
func (r *FileRegistry) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear registry: %w", err)
	}
	r.files = make(map[string]domain.FileFingerprint)
	r.loaded = true
	return nil
}

// Lookup returns the fingerprint recorded for filename.
func (r *FileRegistry) Lookup(filename string) (domain.FileFingerprint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fp, ok := r.files[filename]
	return fp, ok
}

// Count returns the number of indexed files.
func (r *FileRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.files)
}

// HashFile returns the hex SHA-256 digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
