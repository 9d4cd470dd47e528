package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// Ensure FingerprintStore implements the interface.
var _ driven.FingerprintStore = (*FingerprintStore)(nil)

// FingerprintStore is an in-memory implementation of driven.FingerprintStore.
type FingerprintStore struct {
	mu    sync.RWMutex
	files map[string]domain.FileFingerprint
}

// NewFingerprintStore creates a new in-memory fingerprint store.
func NewFingerprintStore() *FingerprintStore {
	return &FingerprintStore{
		files: make(map[string]domain.FileFingerprint),
	}
}

// LoadAll returns a copy of every fingerprint.
func (s *FingerprintStore) LoadAll(_ context.Context) (map[string]domain.FileFingerprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.files), nil
}

// Put creates or replaces a fingerprint.
func (s *FingerprintStore) Put(_ context.Context, fp domain.FileFingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[fp.Filename] = fp
	return nil
}

// Delete removes a fingerprint.
func (s *FingerprintStore) Delete(_ context.Context, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, filename)
	return nil
}

// Clear removes every fingerprint.
func (s *FingerprintStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = make(map[string]domain.FileFingerprint)
	return nil
}
