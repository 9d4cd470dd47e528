package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// scanHistoryStore implements driven.ScanHistoryStore.
type scanHistoryStore struct {
	store *Store
}

var _ driven.ScanHistoryStore = (*scanHistoryStore)(nil)

// RecordScan persists a completed cycle.
func (s *scanHistoryStore) RecordScan(ctx context.Context, result *domain.ScanResult) error {
	if result == nil || result.ID == "" {
		return domain.ErrInvalidInput
	}

	failures := result.Failures
	if failures == nil {
		failures = []domain.FileFailure{}
	}
	failuresJSON, err := json.Marshal(failures)
	if err != nil {
		return fmt.Errorf("marshalling failures: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO scan_results (id, trigger, started_at, ended_at, files_seen, indexed,
		                          skipped, failed, chunks_written, failures, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, result.ID, string(result.Trigger), formatTime(result.StartedAt), formatTime(result.EndedAt),
		result.FilesSeen, result.Indexed, result.Skipped, result.Failed, result.ChunksWritten,
		string(failuresJSON), nullString(result.Error))
	if err != nil {
		return fmt.Errorf("recording scan result: %w", err)
	}
	return nil
}

// RecentScans returns the latest results, most recent first.
func (s *scanHistoryStore) RecentScans(ctx context.Context, limit int) ([]domain.ScanResult, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, trigger, started_at, ended_at, files_seen, indexed,
		       skipped, failed, chunks_written, failures, error
		FROM scan_results
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying scan history: %w", err)
	}
	defer rows.Close()

	var results []domain.ScanResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		result, err := scanScanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scan history: %w", err)
	}
	return results, nil
}

// PruneHistory keeps only the most recent 'keep' results.
func (s *scanHistoryStore) PruneHistory(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM scan_results
		WHERE id NOT IN (
			SELECT id FROM scan_results ORDER BY started_at DESC, rowid DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning scan history: %w", err)
	}
	return nil
}

// scanScanResult scans a scan result from *sql.Rows.
func scanScanResult(rows *sql.Rows) (*domain.ScanResult, error) {
	var r domain.ScanResult
	var trigger, startedAt, endedAt, failuresJSON string
	var errMsg sql.NullString

	if err := rows.Scan(&r.ID, &trigger, &startedAt, &endedAt, &r.FilesSeen, &r.Indexed,
		&r.Skipped, &r.Failed, &r.ChunksWritten, &failuresJSON, &errMsg); err != nil {
		return nil, fmt.Errorf("scanning scan result: %w", err)
	}

	r.Trigger = domain.ScanTrigger(trigger)
	r.StartedAt = parseTime(startedAt)
	r.EndedAt = parseTime(endedAt)
	r.Error = errMsg.String
	if err := json.Unmarshal([]byte(failuresJSON), &r.Failures); err != nil {
		return nil, fmt.Errorf("unmarshalling failures: %w", err)
	}
	if len(r.Failures) == 0 {
		r.Failures = nil
	}
	return &r, nil
}
