package driven

import (
	"context"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// FingerprintStore persists the File Registry.
//
// Writes must be atomic: after a crash, a reader sees either the previous
// state or the new one, never a partial record.
type FingerprintStore interface {
	// LoadAll returns every stored fingerprint keyed by filename.
	// A store that has never been written returns an empty map.
	// Unreadable data is reported as domain.ErrRegistryCorruption.
	LoadAll(ctx context.Context) (map[string]domain.FileFingerprint, error)

	// Put creates or replaces the fingerprint for fp.Filename.
	Put(ctx context.Context, fp domain.FileFingerprint) error

	// Delete removes the fingerprint for filename. Missing entries are not an error.
	Delete(ctx context.Context, filename string) error

	// Clear removes every fingerprint.
	Clear(ctx context.Context) error
}
