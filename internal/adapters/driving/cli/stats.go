package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show vector collection statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errIndexNotConfigured
	}

	stats, err := indexService.Stats(cmdContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	if statsJSON {
		return outputJSON(cmd, map[string]int{
			"total_documents": stats.TotalDocuments,
			"vector_size":     stats.VectorSize,
			"total_files":     stats.TotalFiles,
		})
	}

	cmd.Println("Collection")
	cmd.Println("==========")
	cmd.Printf("  Chunks:      %d\n", stats.TotalDocuments)
	cmd.Printf("  Files:       %d\n", stats.TotalFiles)
	cmd.Printf("  Vector size: %d\n", stats.VectorSize)
	return nil
}
