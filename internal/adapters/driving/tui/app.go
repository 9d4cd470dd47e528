package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragindex/internal/core/domain"
)

const (
	// DefaultRefreshInterval is how often status is polled.
	DefaultRefreshInterval = 2 * time.Second

	historyRows  = 5
	failureRows  = 5
	timeLayout   = "2006-01-02 15:04:05"
	defaultWidth = 80
)

// App is the live status view following the Elm architecture.
type App struct {
	ports   *Ports
	ctx     context.Context
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	bar     *status.Bar
	spinner spinner.Model

	refresh  time.Duration
	status   domain.ScanStatus
	stats    domain.CollectionStats
	history  []domain.ScanResult
	err      error
	scanning bool
	loaded   bool

	width  int
	height int
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the status view with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if ports == nil {
		return nil, ErrMissingScheduler
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Warning

	return &App{
		ports:   ports,
		ctx:     context.Background(),
		styles:  s,
		keymap:  km,
		bar:     status.NewBar(s, km),
		spinner: sp,
		refresh: DefaultRefreshInterval,
		width:   defaultWidth,
	}, nil
}

// WithContext sets the context used for service calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// WithRefreshInterval overrides the polling period.
func (a *App) WithRefreshInterval(d time.Duration) *App {
	if d > 0 {
		a.refresh = d
	}
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("ragindex"),
		a.spinner.Tick,
		a.loadStatus(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.bar.SetWidth(msg.Width)
		return a, nil

	case tea.KeyMsg:
		return a, a.handleKey(msg.String())

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case messages.Refresh:
		return a, a.loadStatus()

	case messages.StatusLoaded:
		a.loaded = true
		a.status = msg.Status
		a.stats = msg.Stats
		a.history = msg.History
		a.err = msg.Err
		return a, tea.Tick(a.refresh, func(t time.Time) tea.Msg {
			return messages.Refresh{At: t}
		})

	case messages.ScanCompleted:
		a.scanning = false
		if msg.Err != nil {
			a.bar.SetState(status.StateError, msg.Err.Error())
		} else if msg.Result != nil {
			a.bar.SetState(status.StateIdle, summarise(msg.Result))
		}
		return a, a.loadStatus()

	case messages.ScannerToggled:
		switch {
		case msg.Err != nil:
			a.bar.SetState(status.StateError, msg.Err.Error())
		case msg.Running:
			a.bar.SetState(status.StateIdle, "Scanner started")
		default:
			a.bar.SetState(status.StateIdle, "Scanner stopped")
		}
		return a, a.loadStatus()
	}
	return a, nil
}

func (a *App) handleKey(k string) tea.Cmd {
	switch {
	case keymap.Matches(k, a.keymap.Quit):
		return tea.Quit
	case keymap.Matches(k, a.keymap.Help):
		a.bar.ToggleHelp()
		return nil
	case keymap.Matches(k, a.keymap.Refresh):
		return a.loadStatus()
	case keymap.Matches(k, a.keymap.Scan):
		if a.scanning {
			return nil
		}
		a.scanning = true
		a.bar.SetState(status.StateScanning, "")
		return a.forceScan()
	case keymap.Matches(k, a.keymap.Toggle):
		return a.toggleScanner(a.status.Running())
	}
	return nil
}

func (a *App) loadStatus() tea.Cmd {
	ctx := a.ctx
	sched := a.ports.Scheduler
	index := a.ports.Index
	return func() tea.Msg {
		st := sched.Status(ctx)
		stats, statsErr := index.Stats(ctx)
		history, histErr := sched.History(ctx, historyRows)
		return messages.StatusLoaded{
			Status:  st,
			Stats:   stats,
			History: history,
			Err:     errors.Join(statsErr, histErr),
		}
	}
}

func (a *App) forceScan() tea.Cmd {
	ctx := a.ctx
	sched := a.ports.Scheduler
	return func() tea.Msg {
		result, err := sched.ForceScan(ctx)
		return messages.ScanCompleted{Result: result, Err: err}
	}
}

func (a *App) toggleScanner(running bool) tea.Cmd {
	ctx := a.ctx
	sched := a.ports.Scheduler
	return func() tea.Msg {
		if running {
			return messages.ScannerToggled{Running: false, Err: sched.Stop()}
		}
		err := sched.Start(ctx)
		return messages.ScannerToggled{Running: err == nil, Err: err}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.loaded {
		return a.spinner.View() + " Loading status..."
	}

	var b strings.Builder
	title := a.styles.Title.Render("ragindex")
	if a.scanning || a.status.Scanning {
		title += " " + a.spinner.View()
	}
	b.WriteString(title + "\n\n")

	b.WriteString(a.styles.Panel.Render(a.renderStatus()) + "\n\n")

	if len(a.status.RecentFailures) > 0 {
		b.WriteString(a.styles.Subtitle.Render("Recent failures") + "\n")
		b.WriteString(a.renderFailures() + "\n")
	}

	b.WriteString(a.styles.Subtitle.Render("Recent scans") + "\n")
	b.WriteString(a.renderHistory() + "\n")

	if a.err != nil {
		b.WriteString(a.styles.Error.Render(a.err.Error()) + "\n")
	}

	b.WriteString("\n" + a.bar.View())
	return b.String()
}

func (a *App) renderStatus() string {
	last := "never"
	if !a.status.LastScan.IsZero() {
		last = a.status.LastScan.Local().Format(timeLayout)
	}

	lines := []string{
		a.row("State", a.styles.State(a.status)),
		a.row("Watching", a.status.WatchDirectory),
		a.row("Interval", a.status.Interval.String()),
		a.row("Processed", fmt.Sprintf("%d files", a.status.ProcessedCount)),
		a.row("Last scan", last),
		a.row("Last outcome", a.styles.Outcome(a.status.LastResult)),
		a.row("Chunks", fmt.Sprintf("%d", a.stats.TotalDocuments)),
		a.row("Vector size", fmt.Sprintf("%d", a.stats.VectorSize)),
	}
	return strings.Join(lines, "\n")
}

func (a *App) row(label, value string) string {
	return a.styles.Label.Render(label) + a.styles.Normal.Render(value)
}

func (a *App) renderFailures() string {
	failures := a.status.RecentFailures
	if len(failures) > failureRows {
		failures = failures[:failureRows]
	}
	lines := make([]string, 0, len(failures))
	for _, f := range failures {
		lines = append(lines, "  "+a.styles.Error.Render(f.Filename)+" "+a.styles.Muted.Render(f.Error))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderHistory() string {
	if len(a.history) == 0 {
		return "  " + a.styles.Muted.Render("No scans yet.")
	}
	lines := make([]string, 0, len(a.history))
	for i := range a.history {
		r := &a.history[i]
		lines = append(lines, fmt.Sprintf("  %s  %-6s  %s  %s",
			r.StartedAt.Local().Format(timeLayout),
			r.Trigger,
			summarise(r),
			a.styles.Muted.Render(r.Duration().Round(time.Millisecond).String()),
		))
	}
	return strings.Join(lines, "\n")
}

// summarise formats the counters of a scan cycle.
func summarise(r *domain.ScanResult) string {
	if r.Error != "" {
		return "error: " + r.Error
	}
	return fmt.Sprintf("%d indexed, %d skipped, %d failed", r.Indexed, r.Skipped, r.Failed)
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Status returns the last loaded scheduler status.
func (a *App) Status() domain.ScanStatus {
	return a.status
}

// Err returns the last load error.
func (a *App) Err() error {
	return a.err
}

// Scanning reports whether a force scan started from the view is in flight.
func (a *App) Scanning() bool {
	return a.scanning
}
