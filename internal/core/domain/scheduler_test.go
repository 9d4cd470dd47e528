package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScanResult_Success(t *testing.T) {
	assert.True(t, (&ScanResult{Indexed: 2, Skipped: 1}).Success())
	assert.False(t, (&ScanResult{Failed: 1}).Success())
	assert.False(t, (&ScanResult{Error: "watch directory unreadable"}).Success())
}

func TestScanResult_Duration(t *testing.T) {
	start := time.Now()
	r := &ScanResult{StartedAt: start, EndedAt: start.Add(1500 * time.Millisecond)}
	assert.Equal(t, 1500*time.Millisecond, r.Duration())
}

func TestScanStatus_Running(t *testing.T) {
	assert.True(t, ScanStatus{State: SchedulerRunning}.Running())
	assert.False(t, ScanStatus{State: SchedulerStopped}.Running())
	assert.False(t, ScanStatus{}.Running())
}
