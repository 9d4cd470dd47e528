package services

import (
	"context"
	"errors"
	"strings"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driving"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// Ensure the services implement their interfaces.
var (
	_ driving.RetrievalService = (*RetrievalService)(nil)
	_ driving.IndexService     = (*IndexService)(nil)
)

// DefaultTopK is the number of chunks returned when k is not positive.
const DefaultTopK = 5

// RetrievalService answers questions with the closest indexed chunks.
// It is read-only and is the seam an answer generator consumes.
type RetrievalService struct {
	index *IndexGateway
}

// NewRetrievalService creates a retrieval service.
func NewRetrievalService(index *IndexGateway) *RetrievalService {
	return &RetrievalService{index: index}
}

// Retrieve returns up to k chunks for question, best first.
func (s *RetrievalService) Retrieve(ctx context.Context, question string, k int) ([]domain.ScoredChunk, error) {
	logger.Section("Retrieve")

	question = strings.TrimSpace(question)
	if question == "" {
		logger.Debug("Empty question, returning no results")
		return []domain.ScoredChunk{}, nil
	}
	if k <= 0 {
		k = DefaultTopK
	}

	results, err := s.index.Search(ctx, question, k)
	if err != nil {
		return nil, err
	}
	logger.Debug("Question %q: %d results", question, len(results))
	return results, nil
}

// IndexService exposes maintenance of the vector index and registry.
type IndexService struct {
	index    *IndexGateway
	registry *FileRegistry
}

// NewIndexService creates an index service.
func NewIndexService(index *IndexGateway, registry *FileRegistry) *IndexService {
	return &IndexService{index: index, registry: registry}
}

// Stats returns collection counts. TotalFiles falls back to the registry
// when the store cannot count files.
func (s *IndexService) Stats(ctx context.Context) (domain.CollectionStats, error) {
	stats, err := s.index.Stats(ctx)
	if err != nil {
		return domain.CollectionStats{}, err
	}
	if stats.TotalFiles == 0 && s.registry != nil {
		if err := s.registry.ensureLoaded(ctx); err != nil {
			return domain.CollectionStats{}, err
		}
		stats.TotalFiles = s.registry.Count()
	}
	return stats, nil
}

// ClearAll drops every vector and every fingerprint. Files still in the
// watch directory are indexed again on the next cycle.
func (s *IndexService) ClearAll(ctx context.Context) error {
	var errs []error
	if err := s.index.ClearAll(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.registry != nil {
		if err := s.registry.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	logger.Info("index cleared")
	return nil
}
