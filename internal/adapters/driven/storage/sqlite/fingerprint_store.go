package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// fingerprintStore implements driven.FingerprintStore.
type fingerprintStore struct {
	store *Store
}

var _ driven.FingerprintStore = (*fingerprintStore)(nil)

// LoadAll returns every fingerprint keyed by filename.
func (s *fingerprintStore) LoadAll(ctx context.Context) (map[string]domain.FileFingerprint, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT filename, content_hash, size_bytes, modified_at, indexed_at,
		       source_origin, chunk_count, extractor
		FROM fingerprints
	`)
	if err != nil {
		return nil, fmt.Errorf("querying fingerprints: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.FileFingerprint)
	for rows.Next() {
		var fp domain.FileFingerprint
		var modifiedAt, indexedAt string
		var extractor sql.NullString
		if err := rows.Scan(&fp.Filename, &fp.ContentHash, &fp.SizeBytes, &modifiedAt, &indexedAt,
			&fp.SourceOrigin, &fp.ChunkCount, &extractor); err != nil {
			return nil, fmt.Errorf("%w: scanning fingerprint: %w", domain.ErrRegistryCorruption, err)
		}
		fp.ModifiedAt = parseTime(modifiedAt)
		fp.IndexedAt = parseTime(indexedAt)
		fp.Extractor = domain.ExtractorKind(extractor.String)
		out[fp.Filename] = fp
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fingerprints: %w", err)
	}
	return out, nil
}

// Put creates or replaces a fingerprint in a single statement.
func (s *fingerprintStore) Put(ctx context.Context, fp domain.FileFingerprint) error {
	if fp.Filename == "" {
		return domain.ErrInvalidInput
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO fingerprints (filename, content_hash, size_bytes, modified_at, indexed_at,
		                          source_origin, chunk_count, extractor)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			content_hash = excluded.content_hash,
			size_bytes = excluded.size_bytes,
			modified_at = excluded.modified_at,
			indexed_at = excluded.indexed_at,
			source_origin = excluded.source_origin,
			chunk_count = excluded.chunk_count,
			extractor = excluded.extractor
	`, fp.Filename, fp.ContentHash, fp.SizeBytes, formatTime(fp.ModifiedAt), formatTime(fp.IndexedAt),
		fp.SourceOrigin, fp.ChunkCount, nullString(string(fp.Extractor)))
	if err != nil {
		return fmt.Errorf("saving fingerprint: %w", err)
	}
	return nil
}

// Delete removes a fingerprint.
func (s *fingerprintStore) Delete(ctx context.Context, filename string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM fingerprints WHERE filename = ?", filename); err != nil {
		return fmt.Errorf("deleting fingerprint: %w", err)
	}
	return nil
}

// Clear removes every fingerprint.
func (s *fingerprintStore) Clear(ctx context.Context) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM fingerprints"); err != nil {
		return fmt.Errorf("clearing fingerprints: %w", err)
	}
	return nil
}
