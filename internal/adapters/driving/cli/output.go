package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragindex/internal/core/domain"
)

const timeLayout = "2006-01-02 15:04:05"

// isTerminal is swapped in tests.
var isTerminal = func(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// outputStyles returns nil when output is not a terminal.
func outputStyles(cmd *cobra.Command) *styles.Styles {
	if isTerminal(cmd) {
		return styles.DefaultStyles()
	}
	return nil
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printScanResult(cmd *cobra.Command, r *domain.ScanResult) {
	if r.Error != "" {
		cmd.Printf("Scan %s failed: %s\n", r.ID, r.Error)
		return
	}
	cmd.Printf("Scan %s finished in %s\n", r.ID, r.Duration().Round(time.Millisecond))
	cmd.Printf("  Files seen:     %d\n", r.FilesSeen)
	cmd.Printf("  Indexed:        %d\n", r.Indexed)
	cmd.Printf("  Skipped:        %d\n", r.Skipped)
	cmd.Printf("  Failed:         %d\n", r.Failed)
	cmd.Printf("  Chunks written: %d\n", r.ChunksWritten)
	printFailures(cmd, r.Failures)
}

func printFailures(cmd *cobra.Command, failures []domain.FileFailure) {
	if len(failures) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Failures:")
	for _, f := range failures {
		cmd.Printf("  %s: %s\n", f.Filename, f.Error)
	}
}
