// Package tui provides a live terminal view of the indexer.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/ragindex/internal/core/ports/driving"
)

// Ports aggregates the driving ports the status view reads from.
type Ports struct {
	// Scheduler reports scan state and accepts force scans.
	Scheduler driving.Scheduler

	// Index reports collection statistics.
	Index driving.IndexService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Scheduler == nil {
		return ErrMissingScheduler
	}
	if p.Index == nil {
		return ErrMissingIndexService
	}
	return nil
}
