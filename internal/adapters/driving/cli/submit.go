package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	submitOrigin string
	submitScan   bool
)

var submitCmd = &cobra.Command{
	Use:   "submit [file...]",
	Short: "Copy files into the watch directory",
	Long: `Copies each file into the watch directory so the next cycle indexes it.
The copy is written under a temporary name and renamed into place, so a
running scan never sees a partial file. The source file is left untouched.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submitOrigin, "origin", "cli", "origin recorded with the submitted files")
	submitCmd.Flags().BoolVar(&submitScan, "scan", false, "run a scan cycle after submitting")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	if scheduler == nil {
		return errSchedulerNotConfigured
	}
	ctx := cmdContext(cmd)

	for _, path := range args {
		name, err := scheduler.Submit(ctx, path, submitOrigin)
		if err != nil {
			return fmt.Errorf("submit %s: %w", path, err)
		}
		cmd.Printf("Submitted %s as %s\n", path, name)
	}

	if !submitScan {
		return nil
	}
	result, err := scheduler.ForceScan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	printScanResult(cmd, result)
	return nil
}
