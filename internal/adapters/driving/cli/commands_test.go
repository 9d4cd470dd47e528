package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

func TestRootCmd_RegistersCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{
		"serve", "scan", "status", "retrieve", "stats", "clear",
		"submit", "mcp", "watch", "version", "settings", "tui",
	} {
		assert.True(t, names[want], "missing command %q", want)
	}
}

func TestRootCmd_BootstrapWiresServices(t *testing.T) {
	ts, cleanupServices := setupTestServices()
	defer cleanupServices()
	SetServices(Services{})

	var gotPath string
	released := false
	SetBootstrap(func(_ context.Context, path string) (Services, func(), error) {
		gotPath = path
		return Services{Index: ts.index}, func() { released = true }, nil
	})
	defer SetBootstrap(nil)
	defer func() { configPath = "" }()

	buf := new(strings.Builder)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"--config", "/tmp/ragindex.toml", "stats"})
	defer rootCmd.SetArgs(nil)

	err := Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "/tmp/ragindex.toml", gotPath)
	assert.True(t, released)
	assert.Contains(t, buf.String(), "Chunks:      42")
}

func TestRootCmd_BootstrapSkippedForVersion(t *testing.T) {
	called := false
	SetBootstrap(func(context.Context, string) (Services, func(), error) {
		called = true
		return Services{}, nil, errMock
	})
	defer SetBootstrap(nil)

	out, err := execute("version")

	require.NoError(t, err)
	assert.False(t, called)
	assert.Contains(t, out, "ragindex version")
}

func TestRootCmd_BootstrapError(t *testing.T) {
	SetBootstrap(func(context.Context, string) (Services, func(), error) {
		return Services{}, nil, errMock
	})
	defer SetBootstrap(nil)

	_, err := execute("stats")

	assert.ErrorIs(t, err, errMock)
}

func TestScanCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("scan")

	require.NoError(t, err)
	assert.Equal(t, 1, ts.scheduler.forced)
	assert.Contains(t, out, "Scan scan-1 finished in 1.5s")
	assert.Contains(t, out, "Indexed:        2")
	assert.Contains(t, out, "Chunks written: 9")
	assert.Contains(t, out, "bad.pdf: extraction failed")
}

func TestScanCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	defer func() { scanJSON = false }()

	out, err := execute("scan", "--json")

	require.NoError(t, err)
	var result domain.ScanResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "scan-1", result.ID)
}

func TestScanCmd_InProgress(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.scheduler.scanErr = domain.ErrScanInProgress

	_, err := execute("scan")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestScanCmd_NotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	scheduler = nil

	_, err := execute("scan")

	assert.ErrorIs(t, err, errSchedulerNotConfigured)
}

func TestStatusCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("status")

	require.NoError(t, err)
	assert.Contains(t, out, "State:           running")
	assert.Contains(t, out, "/data/inbox")
	assert.Contains(t, out, "Processed files: 7")
	assert.Contains(t, out, "4 indexed, 1 skipped, 0 failed")
}

func TestStatusCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	defer func() { statusJSON = false }()

	out, err := execute("status", "--json")

	require.NoError(t, err)
	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, true, view["enabled"])
	assert.Equal(t, true, view["running"])
	assert.Equal(t, "/data/inbox", view["watch_directory"])
	assert.Equal(t, "5m0s", view["scan_interval"])
	assert.EqualValues(t, 7, view["processed_files_count"])
	assert.NotEmpty(t, view["last_scan"])
}

func TestStateLabel(t *testing.T) {
	assert.Equal(t, "disabled", stateLabel(domain.ScanStatus{}))
	assert.Equal(t, "scanning", stateLabel(domain.ScanStatus{Enabled: true, Scanning: true}))
	assert.Equal(t, "stopped", stateLabel(domain.ScanStatus{Enabled: true, State: domain.SchedulerStopped}))
}

func TestRetrieveCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer func() { retrieveK = 0 }()

	out, err := execute("retrieve", "-k", "3", "how did we grow?")

	require.NoError(t, err)
	assert.Equal(t, "how did we grow?", ts.retrieval.gotQ)
	assert.Equal(t, 3, ts.retrieval.gotK)
	assert.Contains(t, out, "[1] report.pdf #0 (0.910)")
	assert.Contains(t, out, "pages: [1 2]")
	assert.Contains(t, out, "The quarterly report shows growth.")
}

func TestRetrieveCmd_DefaultK(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("retrieve", "growth")

	require.NoError(t, err)
	assert.Equal(t, 0, ts.retrieval.gotK)
}

func TestRetrieveCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	defer func() { retrieveJSON = false }()

	out, err := execute("retrieve", "--json", "growth")

	require.NoError(t, err)
	var views []chunkView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "report.pdf", views[0].SourceFilename)
	assert.InDelta(t, 0.91, views[0].Score, 1e-9)
}

func TestRetrieveCmd_NoResults(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retrieval.chunks = nil

	out, err := execute("retrieve", "nothing")

	require.NoError(t, err)
	assert.Contains(t, out, "No matching chunks.")
}

func TestRetrieveCmd_Errors(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("retrieve")
	assert.Error(t, err)

	_, err = execute("retrieve", "   ")
	assert.Error(t, err)

	ts.retrieval.err = domain.ErrEmbeddingUnavailable
	_, err = execute("retrieve", "growth")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", snippet("a\n b\t\tc", 10))
	assert.Equal(t, "שלום...", snippet("שלום עולם", 4))
}

func TestStatsCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("stats")

	require.NoError(t, err)
	assert.Contains(t, out, "Chunks:      42")
	assert.Contains(t, out, "Files:       3")
	assert.Contains(t, out, "Vector size: 1024")
}

func TestStatsCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	defer func() { statsJSON = false }()

	out, err := execute("stats", "--json")

	require.NoError(t, err)
	var view map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, 42, view["total_documents"])
}

func TestClearCmd_Confirmed(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer func() { clearYes = false }()

	out, err := execute("clear", "--yes")

	require.NoError(t, err)
	assert.True(t, ts.index.cleared)
	assert.Contains(t, out, "Index cleared.")
}

func TestClearCmd_Prompt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		cleared bool
	}{
		{"yes", "y\n", true},
		{"full yes", "YES\n", true},
		{"no", "n\n", false},
		{"empty", "\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, cleanup := setupTestServices()
			defer cleanup()
			rootCmd.SetIn(strings.NewReader(tt.input))
			defer rootCmd.SetIn(nil)

			_, err := execute("clear")

			require.NoError(t, err)
			assert.Equal(t, tt.cleared, ts.index.cleared)
		})
	}
}

func TestSubmitCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer func() { submitOrigin = "cli" }()

	out, err := execute("submit", "--origin", "scanner", "a.pdf", "b.txt")

	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.txt"}, ts.scheduler.submitted)
	assert.Equal(t, []string{"scanner", "scanner"}, ts.scheduler.origins)
	assert.Contains(t, out, "Submitted a.pdf as copy-of-a.pdf")
	assert.Equal(t, 0, ts.scheduler.forced)
}

func TestSubmitCmd_WithScan(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer func() { submitScan = false }()

	out, err := execute("submit", "--scan", "a.pdf")

	require.NoError(t, err)
	assert.Equal(t, 1, ts.scheduler.forced)
	assert.Contains(t, out, "Scan scan-1")
}

func TestSubmitCmd_Errors(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("submit")
	assert.Error(t, err)

	ts.scheduler.submitErr = domain.ErrUnsupportedFormat
	_, err = execute("submit", "a.exe")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestServeCmd_StopsWithContext(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rootCmd.SetArgs([]string{"serve"})
	defer rootCmd.SetArgs(nil)
	err := rootCmd.ExecuteContext(ctx)

	require.NoError(t, err)
	assert.True(t, ts.scheduler.ran)
}

func TestWatchCmd_RunsWatcher(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.settings.Ingest.WatchDirectory = t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rootCmd.SetArgs([]string{"watch"})
	defer rootCmd.SetArgs(nil)
	err := rootCmd.ExecuteContext(ctx)

	require.NoError(t, err)
	assert.True(t, ts.scheduler.ran)
}

func TestMCPServeCmd_RequiresRetrieval(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	retrievalService = nil

	_, err := execute("mcp", "serve")

	assert.Error(t, err)
}

func TestTUICmd_RequiresScheduler(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	scheduler = nil

	_, err := execute("tui")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create TUI")
}
