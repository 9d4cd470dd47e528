package domain

import "time"

// SchedulerState is the lifecycle state of the periodic scanner.
type SchedulerState string

// Scheduler states.
const (
	SchedulerStopped SchedulerState = "stopped"
	SchedulerRunning SchedulerState = "running"
)

// ScanTrigger records what started a scan cycle.
type ScanTrigger string

// Scan triggers.
const (
	TriggerTimer  ScanTrigger = "timer"
	TriggerForced ScanTrigger = "forced"
	TriggerEvent  ScanTrigger = "event"
)

// FileOutcome is the result of processing one file within a cycle.
type FileOutcome string

// File outcomes.
const (
	OutcomeIndexed FileOutcome = "indexed"
	OutcomeSkipped FileOutcome = "skipped"
	OutcomeFailed  FileOutcome = "failed"
)

// FileFailure records a file that could not be indexed.
// The file stays in the watch directory for operator inspection.
type FileFailure struct {
	Filename string    `json:"filename"`
	Error    string    `json:"error"`
	At       time.Time `json:"at"`
}

// ScanResult represents the outcome of one scan cycle.
type ScanResult struct {
	// ID uniquely identifies the cycle.
	ID string

	// Trigger is what started the cycle.
	Trigger ScanTrigger

	// StartedAt is when the cycle started.
	StartedAt time.Time

	// EndedAt is when the cycle completed.
	EndedAt time.Time

	// FilesSeen is the number of supported files listed.
	FilesSeen int

	// Indexed is the number of files extracted, embedded and committed.
	Indexed int

	// Skipped is the number of files already indexed with identical content.
	Skipped int

	// Failed is the number of files left in place after an error.
	Failed int

	// ChunksWritten is the total number of chunks upserted.
	ChunksWritten int

	// Failures lists per-file errors.
	Failures []FileFailure

	// Error is set when the cycle itself could not run (e.g. unreadable directory).
	Error string
}

// Success reports whether the cycle ran and no file failed.
func (r *ScanResult) Success() bool {
	return r.Error == "" && r.Failed == 0
}

// Duration returns the wall time of the cycle.
func (r *ScanResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// ScanStatus is the operator-facing view of the scheduler.
type ScanStatus struct {
	Enabled        bool
	State          SchedulerState
	Scanning       bool
	WatchDirectory string
	Interval       time.Duration

	// ProcessedCount is the number of fingerprints in the registry.
	ProcessedCount int

	// LastScan is when the last cycle finished; zero if none ran.
	LastScan time.Time

	// LastResult is the most recent cycle, if any.
	LastResult *ScanResult

	// RecentFailures accumulates failures until the file succeeds.
	RecentFailures []FileFailure
}

// Running reports whether the periodic loop is active.
func (s ScanStatus) Running() bool {
	return s.State == SchedulerRunning
}
