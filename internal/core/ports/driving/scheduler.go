package driving

import (
	"context"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// Scheduler runs the periodic scan of the watch directory.
type Scheduler interface {
	// Start begins the periodic loop in the background.
	// Calling Start on a running scheduler is a no-op.
	Start(ctx context.Context) error

	// Stop ends the periodic loop. An in-flight file finishes its commit.
	// Calling Stop on a stopped scheduler is a no-op.
	Stop() error

	// Run starts the loop and blocks until ctx is cancelled.
	Run(ctx context.Context) error

	// ForceScan runs one cycle immediately.
	// Returns domain.ErrScanInProgress if a cycle is already running.
	ForceScan(ctx context.Context) (*domain.ScanResult, error)

	// Trigger requests an early cycle without waiting for it.
	// It is dropped when a cycle is already running.
	Trigger(ctx context.Context)

	// Status returns a snapshot of the scheduler state.
	Status(ctx context.Context) domain.ScanStatus

	// Submit copies a file into the watch directory for the next cycle.
	// It returns the name the file was stored under.
	Submit(ctx context.Context, path, origin string) (string, error)

	// History returns recent scan results, most recent first.
	History(ctx context.Context, limit int) ([]domain.ScanResult, error)
}
