// Package logger provides levelled logging for ragindex.
// Debug messages appear only with --verbose; the long-running serve
// command lowers the threshold to Info and turns on timestamps so the
// scan loop leaves an audit trail. Errors are always printed.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level is a log severity.
type Level int

// Log levels, lowest first.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// defaultLevel keeps one-shot commands quiet apart from problems.
const defaultLevel = LevelWarn

var (
	mu         sync.RWMutex
	level      = defaultLevel
	timestamps bool
	output     io.Writer = os.Stderr
	now        = time.Now
)

// SetVerbose enables or disables debug logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	if v {
		level = LevelDebug
	} else {
		level = defaultLevel
	}
}

// IsVerbose returns true if debug logging is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return level <= LevelDebug
}

// SetLevel sets the minimum level that is printed.
// Error messages are printed regardless.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// SetTimestamps prefixes every line with an RFC3339 UTC timestamp.
func SetTimestamps(on bool) {
	mu.Lock()
	defer mu.Unlock()
	timestamps = on
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	logf(LevelDebug, "DEBUG", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if level <= LevelDebug {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message.
func Info(format string, args ...any) {
	logf(LevelInfo, "INFO", format, args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	logf(LevelWarn, "WARN", format, args...)
}

// Error prints an error message. It is never suppressed.
func Error(format string, args ...any) {
	logf(LevelError, "ERROR", format, args...)
}

func logf(l Level, tag, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if l < level && l != LevelError {
		return
	}
	if timestamps {
		fmt.Fprintf(output, "%s [%s] "+format+"\n",
			append([]any{now().UTC().Format(time.RFC3339), tag}, args...)...)
		return
	}
	fmt.Fprintf(output, "[%s] "+format+"\n", append([]any{tag}, args...)...)
}
