package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/styles"
)

func TestNewBar(t *testing.T) {
	bar := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap())

	require.NotNil(t, bar)
	assert.Equal(t, StateIdle, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, 80, bar.Width())
}

func TestNewBar_NilStyles(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keymap)
}

func TestStatusBar_View(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		message  string
		contains string
	}{
		{"idle default", StateIdle, "", "Ready"},
		{"idle message", StateIdle, "3 files indexed", "3 files indexed"},
		{"scanning", StateScanning, "", "Scanning..."},
		{"error", StateError, "scan in progress", "Error: scan in progress"},
		{"error without message", StateError, "", "Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.SetWidth(120)
			bar.SetState(tt.state, tt.message)

			assert.Contains(t, bar.View(), tt.contains)
		})
	}
}

func TestStatusBar_ToggleHelp(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(160)

	assert.Len(t, bar.Bindings(), 3)
	assert.NotContains(t, bar.View(), "start/stop")

	bar.ToggleHelp()

	assert.True(t, bar.ShowsFullHelp())
	assert.Len(t, bar.Bindings(), 5)
	assert.Contains(t, bar.View(), "start/stop")
}
