package cli

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

type mockSettingsService struct {
	settings    domain.Settings
	getErr      error
	validateErr error
	pingErr     error
	provider    domain.EmbeddingProvider
	model       string
	apiKey      string
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.Settings) error {
	m.settings = *s
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(p domain.EmbeddingProvider, model, apiKey string) error {
	m.provider = p
	m.model = model
	m.apiKey = apiKey
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.Settings { return domain.DefaultSettings() }

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.pingErr }

type mockRetrievalService struct {
	chunks []domain.ScoredChunk
	err    error
	gotQ   string
	gotK   int
}

func (m *mockRetrievalService) Retrieve(_ context.Context, question string, k int) ([]domain.ScoredChunk, error) {
	m.gotQ = question
	m.gotK = k
	return m.chunks, m.err
}

type mockIndexService struct {
	stats   domain.CollectionStats
	err     error
	cleared bool
}

func (m *mockIndexService) Stats(context.Context) (domain.CollectionStats, error) {
	return m.stats, m.err
}

func (m *mockIndexService) ClearAll(context.Context) error {
	if m.err != nil {
		return m.err
	}
	m.cleared = true
	return nil
}

type mockScheduler struct {
	status    domain.ScanStatus
	result    *domain.ScanResult
	history   []domain.ScanResult
	scanErr   error
	submitErr error
	ran       bool
	stopped   bool
	forced    int
	submitted []string
	origins   []string
}

func (m *mockScheduler) Start(context.Context) error { return nil }

func (m *mockScheduler) Stop() error {
	m.stopped = true
	return nil
}

func (m *mockScheduler) Run(ctx context.Context) error {
	m.ran = true
	<-ctx.Done()
	return nil
}

func (m *mockScheduler) ForceScan(context.Context) (*domain.ScanResult, error) {
	m.forced++
	return m.result, m.scanErr
}

func (m *mockScheduler) Trigger(context.Context) {}

func (m *mockScheduler) Status(context.Context) domain.ScanStatus { return m.status }

func (m *mockScheduler) Submit(_ context.Context, path, origin string) (string, error) {
	if m.submitErr != nil {
		return "", m.submitErr
	}
	m.submitted = append(m.submitted, path)
	m.origins = append(m.origins, origin)
	return "copy-of-" + path, nil
}

func (m *mockScheduler) History(_ context.Context, limit int) ([]domain.ScanResult, error) {
	if limit < len(m.history) {
		return m.history[:limit], nil
	}
	return m.history, nil
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	settings  *mockSettingsService
	retrieval *mockRetrievalService
	index     *mockIndexService
	scheduler *mockScheduler
}

var errMock = errors.New("mock failure")

// setupTestServices installs mocks and returns a cleanup that restores the previous services.
func setupTestServices() (*testServices, func()) {
	oldSettings, oldRetrieval, oldIndex, oldScheduler := settingsService, retrievalService, indexService, scheduler

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ts := &testServices{
		settings: &mockSettingsService{settings: domain.DefaultSettings()},
		retrieval: &mockRetrievalService{chunks: []domain.ScoredChunk{
			{
				Chunk: domain.Chunk{
					ID:             "c1",
					Text:           "The quarterly report shows growth.",
					SourceFilename: "report.pdf",
					Position:       0,
					Metadata:       map[string]any{"pages": []int{1, 2}},
				},
				Score: 0.91,
			},
		}},
		index: &mockIndexService{stats: domain.CollectionStats{TotalDocuments: 42, VectorSize: 1024, TotalFiles: 3}},
		scheduler: &mockScheduler{
			status: domain.ScanStatus{
				Enabled:        true,
				State:          domain.SchedulerRunning,
				WatchDirectory: "/data/inbox",
				Interval:       5 * time.Minute,
				ProcessedCount: 7,
				LastScan:       started.Add(2 * time.Second),
			},
			result: &domain.ScanResult{
				ID:            "scan-1",
				Trigger:       domain.TriggerForced,
				StartedAt:     started,
				EndedAt:       started.Add(1500 * time.Millisecond),
				FilesSeen:     3,
				Indexed:       2,
				Failed:        1,
				ChunksWritten: 9,
				Failures:      []domain.FileFailure{{Filename: "bad.pdf", Error: "extraction failed"}},
			},
			history: []domain.ScanResult{
				{ID: "scan-0", Trigger: domain.TriggerTimer, StartedAt: started, Indexed: 4, Skipped: 1},
			},
		},
	}
	SetServices(Services{
		Settings:  ts.settings,
		Retrieval: ts.retrieval,
		Index:     ts.index,
		Scheduler: ts.scheduler,
	})

	return ts, func() {
		settingsService, retrievalService, indexService, scheduler = oldSettings, oldRetrieval, oldIndex, oldScheduler
	}
}

// execute runs the root command with args and returns its output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
