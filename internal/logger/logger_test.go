package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"
)

// reset restores package state after a test.
func reset() {
	SetVerbose(false)
	SetTimestamps(false)
	SetOutput(os.Stderr)
	now = time.Now
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false")
	}
	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}
}

func TestLevels_Default(t *testing.T) {
	defer reset()
	var buf bytes.Buffer
	SetOutput(&buf)

	Debug("debug %d", 1)
	Info("info %d", 2)
	Section("pipeline")
	if buf.Len() != 0 {
		t.Errorf("expected debug and info to be suppressed, got %q", buf.String())
	}

	Warn("warn %d", 3)
	Error("error %d", 4)
	out := buf.String()
	if !strings.Contains(out, "[WARN] warn 3\n") {
		t.Errorf("missing warning in %q", out)
	}
	if !strings.Contains(out, "[ERROR] error 4\n") {
		t.Errorf("missing error in %q", out)
	}
}

func TestLevels_Verbose(t *testing.T) {
	defer reset()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Debug("test message %s", "arg")
	Section("Scan")

	out := buf.String()
	if !strings.Contains(out, "[DEBUG] test message arg") {
		t.Errorf("expected debug line, got %q", out)
	}
	if !strings.Contains(out, "=== Scan ===") {
		t.Errorf("expected section header, got %q", out)
	}
}

func TestError_AlwaysPrinted(t *testing.T) {
	defer reset()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelError + 1)

	Warn("hidden")
	Error("registry corrupt: %s", "registry.json")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("warning should be suppressed")
	}
	if !strings.Contains(buf.String(), "registry corrupt: registry.json") {
		t.Errorf("expected error, got %q", buf.String())
	}
}

func TestTimestamps(t *testing.T) {
	defer reset()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelInfo)
	SetTimestamps(true)
	now = func() time.Time { return time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC) }

	Info("indexed %s", "a.txt")

	if got := buf.String(); got != "2026-10-18T09:30:00Z [INFO] indexed a.txt\n" {
		t.Errorf("unexpected line %q", got)
	}
}

func TestFormatWithoutArgs(t *testing.T) {
	defer reset()
	var buf bytes.Buffer
	SetOutput(&buf)

	Error("plain message")

	if buf.String() != "[ERROR] plain message\n" {
		t.Errorf("unexpected line %q", buf.String())
	}
}
