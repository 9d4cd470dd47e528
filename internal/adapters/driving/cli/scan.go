package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

var scanJSON bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan cycle now",
	Long: `Scans the watch directory once, indexing new and changed files.
Works whether or not periodic indexing is enabled. Fails if another
cycle is already running.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errSchedulerNotConfigured
	}

	result, err := scheduler.ForceScan(cmdContext(cmd))
	if errors.Is(err, domain.ErrScanInProgress) {
		return errors.New("a scan is already running, try again shortly")
	}
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if scanJSON {
		return outputJSON(cmd, result)
	}
	printScanResult(cmd, result)
	return nil
}
