package tui

import "errors"

// ErrMissingScheduler is returned when the scheduler is not provided.
var ErrMissingScheduler = errors.New("tui: scheduler is required")

// ErrMissingIndexService is returned when the index service is not provided.
var ErrMissingIndexService = errors.New("tui: index service is required")
