package cli

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui"
	"github.com/custodia-labs/ragindex/internal/logger"
)

var tuiStartScanner bool

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Live status view of the scanner",
	Long: `Shows scanner state, collection statistics, recent scans and failing
files, refreshed every few seconds.

Controls:
  s  - Scan now
  p  - Start/stop the periodic scanner
  r  - Refresh
  ?  - Toggle help
  q  - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().BoolVar(&tuiStartScanner, "start", false, "start the periodic scanner on launch")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	ports := &tui.Ports{
		Scheduler: scheduler,
		Index:     indexService,
	}

	app, err := tui.NewApp(ports)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	ctx := cmdContext(cmd)
	app.WithContext(ctx)

	// Log lines would tear the alternate screen.
	logger.SetOutput(io.Discard)
	defer logger.SetOutput(os.Stderr)

	if tuiStartScanner {
		if err := scheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scanner: %w", err)
		}
	}
	defer func() {
		if err := scheduler.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "scheduler stop error: %v\n", err)
		}
	}()

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
