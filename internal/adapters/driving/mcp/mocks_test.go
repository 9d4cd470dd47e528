package mcp

import (
	"context"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	chunks  []domain.ScoredChunk
	err     error
	gotK    int
	gotText string
}

func (m *mockRetrievalService) Retrieve(_ context.Context, question string, k int) ([]domain.ScoredChunk, error) {
	m.gotText = question
	m.gotK = k
	return m.chunks, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	stats   domain.CollectionStats
	err     error
	cleared bool
}

func (m *mockIndexService) Stats(_ context.Context) (domain.CollectionStats, error) {
	return m.stats, m.err
}

func (m *mockIndexService) ClearAll(_ context.Context) error {
	m.cleared = true
	return m.err
}

// mockScheduler is a mock implementation of driving.Scheduler.
type mockScheduler struct {
	status    domain.ScanStatus
	result    *domain.ScanResult
	history   []domain.ScanResult
	err       error
	startCtx  context.Context
	started   bool
	stopped   bool
	triggered int
	submitted []string
}

func (m *mockScheduler) Start(ctx context.Context) error {
	m.startCtx = ctx
	if m.err != nil {
		return m.err
	}
	m.started = true
	m.status.State = domain.SchedulerRunning
	return nil
}

func (m *mockScheduler) Stop() error {
	if m.err != nil {
		return m.err
	}
	m.stopped = true
	m.status.State = domain.SchedulerStopped
	return nil
}

func (m *mockScheduler) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (m *mockScheduler) ForceScan(_ context.Context) (*domain.ScanResult, error) {
	return m.result, m.err
}

func (m *mockScheduler) Trigger(_ context.Context) {
	m.triggered++
}

func (m *mockScheduler) Status(_ context.Context) domain.ScanStatus {
	return m.status
}

func (m *mockScheduler) Submit(_ context.Context, path, _ string) (string, error) {
	m.submitted = append(m.submitted, path)
	return path, m.err
}

func (m *mockScheduler) History(_ context.Context, limit int) ([]domain.ScanResult, error) {
	if limit < len(m.history) {
		return m.history[:limit], m.err
	}
	return m.history, m.err
}
