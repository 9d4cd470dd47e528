package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// Ensure ScanHistoryStore implements the interface.
var _ driven.ScanHistoryStore = (*ScanHistoryStore)(nil)

// ScanHistoryStore keeps scan results in memory, oldest first.
type ScanHistoryStore struct {
	mu      sync.RWMutex
	results []domain.ScanResult
}

// NewScanHistoryStore creates a new in-memory scan history store.
func NewScanHistoryStore() *ScanHistoryStore {
	return &ScanHistoryStore{}
}

// RecordScan appends a result.
func (s *ScanHistoryStore) RecordScan(_ context.Context, result *domain.ScanResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, *result)
	return nil
}

// RecentScans returns up to limit results, most recent first.
func (s *ScanHistoryStore) RecentScans(_ context.Context, limit int) ([]domain.ScanResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.results)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.ScanResult, 0, n)
	for i := len(s.results) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.results[i])
	}
	return out, nil
}

// PruneHistory keeps the most recent keep results.
func (s *ScanHistoryStore) PruneHistory(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if keep >= 0 && len(s.results) > keep {
		s.results = append([]domain.ScanResult(nil), s.results[len(s.results)-keep:]...)
	}
	return nil
}
