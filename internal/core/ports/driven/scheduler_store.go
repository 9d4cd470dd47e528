package driven

import (
	"context"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// ScanHistoryStore keeps the results of past scan cycles.
type ScanHistoryStore interface {
	// RecordScan persists a completed cycle.
	RecordScan(ctx context.Context, result *domain.ScanResult) error

	// RecentScans returns the latest results, most recent first.
	RecentScans(ctx context.Context, limit int) ([]domain.ScanResult, error)

	// PruneHistory keeps only the most recent 'keep' results.
	PruneHistory(ctx context.Context, keep int) error
}
