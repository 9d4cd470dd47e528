// Package mcp provides an MCP (Model Context Protocol) server adapter for ragindex.
// It lets AI assistants retrieve indexed chunks and operate the scanner.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// ErrSchedulerUnavailable is returned by scanner tools when no scheduler is wired.
var ErrSchedulerUnavailable = errors.New("mcp: scanner is not available")

// ErrIndexUnavailable is returned by index tools when no index service is wired.
var ErrIndexUnavailable = errors.New("mcp: index service is not available")
