package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

var (
	statusJSON    bool
	statusHistory int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show scanner status and recent scans",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	statusCmd.Flags().IntVar(&statusHistory, "history", 5, "number of recent scans to show")
	rootCmd.AddCommand(statusCmd)
}

// statusView is the JSON shape of the status command.
type statusView struct {
	Enabled             bool                 `json:"enabled"`
	Running             bool                 `json:"running"`
	Scanning            bool                 `json:"scanning"`
	WatchDirectory      string               `json:"watch_directory"`
	ScanInterval        string               `json:"scan_interval"`
	ProcessedFilesCount int                  `json:"processed_files_count"`
	LastScan            string               `json:"last_scan,omitempty"`
	RecentFailures      []domain.FileFailure `json:"recent_failures,omitempty"`
	History             []domain.ScanResult  `json:"history,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errSchedulerNotConfigured
	}
	ctx := cmdContext(cmd)

	st := scheduler.Status(ctx)
	history, err := scheduler.History(ctx, statusHistory)
	if err != nil {
		return fmt.Errorf("failed to load scan history: %w", err)
	}

	if statusJSON {
		view := statusView{
			Enabled:             st.Enabled,
			Running:             st.Running(),
			Scanning:            st.Scanning,
			WatchDirectory:      st.WatchDirectory,
			ScanInterval:        st.Interval.String(),
			ProcessedFilesCount: st.ProcessedCount,
			RecentFailures:      st.RecentFailures,
			History:             history,
		}
		if !st.LastScan.IsZero() {
			view.LastScan = st.LastScan.Format(timeLayout)
		}
		return outputJSON(cmd, view)
	}

	state := stateLabel(st)
	if s := outputStyles(cmd); s != nil {
		state = s.State(st)
	}

	cmd.Println("Scanner Status")
	cmd.Println("==============")
	cmd.Printf("  State:           %s\n", state)
	cmd.Printf("  Watch directory: %s\n", st.WatchDirectory)
	cmd.Printf("  Scan interval:   %s\n", st.Interval)
	cmd.Printf("  Processed files: %d\n", st.ProcessedCount)
	if st.LastScan.IsZero() {
		cmd.Println("  Last scan:       never")
	} else {
		cmd.Printf("  Last scan:       %s\n", st.LastScan.Local().Format(timeLayout))
	}
	printFailures(cmd, st.RecentFailures)

	if len(history) > 0 {
		cmd.Println()
		cmd.Println("Recent scans:")
		for i := range history {
			r := &history[i]
			cmd.Printf("  %s  %-6s  %d indexed, %d skipped, %d failed\n",
				r.StartedAt.Local().Format(timeLayout), r.Trigger, r.Indexed, r.Skipped, r.Failed)
		}
	}
	return nil
}

func stateLabel(st domain.ScanStatus) string {
	switch {
	case !st.Enabled:
		return "disabled"
	case st.Scanning:
		return "scanning"
	default:
		return string(st.State)
	}
}
