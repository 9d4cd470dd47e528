// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"time"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// Refresh asks the model to reload status.
type Refresh struct {
	At time.Time
}

// StatusLoaded carries a snapshot of the scheduler and the collection.
type StatusLoaded struct {
	Status  domain.ScanStatus
	Stats   domain.CollectionStats
	History []domain.ScanResult
	Err     error
}

// ScanStarted is sent when a force scan begins.
type ScanStarted struct{}

// ScanCompleted carries the result of a force scan.
type ScanCompleted struct {
	Result *domain.ScanResult
	Err    error
}

// ScannerToggled is sent after the periodic loop was started or stopped.
type ScannerToggled struct {
	Running bool
	Err     error
}
