package mcp

import (
	"github.com/custodia-labs/ragindex/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval answers similarity queries.
	Retrieval driving.RetrievalService

	// Index exposes collection statistics.
	Index driving.IndexService

	// Scheduler operates the watch-directory scanner.
	Scheduler driving.Scheduler
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	// Index and Scheduler are optional; their tools report unavailability.
	return nil
}
