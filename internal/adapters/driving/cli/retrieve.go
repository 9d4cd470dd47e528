package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

var (
	retrieveK    int
	retrieveJSON bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [question]",
	Short: "Retrieve the chunks most similar to a question",
	Long: `Embeds the question and returns the k nearest chunks from the index,
best first, with the source file and citation metadata of each.`,
	Args: cobra.ExactArgs(1),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().IntVarP(&retrieveK, "k", "k", 0, "number of chunks to return (0 = default)")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(retrieveCmd)
}

// chunkView is the JSON shape of one retrieval hit.
type chunkView struct {
	ID             string         `json:"id"`
	SourceFilename string         `json:"source_filename"`
	Position       int            `json:"position"`
	Score          float64        `json:"score"`
	Text           string         `json:"text"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errRetrievalNotConfigured
	}
	question := strings.TrimSpace(args[0])
	if question == "" {
		return errors.New("question must not be empty")
	}

	chunks, err := retrievalService.Retrieve(cmdContext(cmd), question, retrieveK)
	if err != nil {
		return fmt.Errorf("retrieve failed: %w", err)
	}

	if retrieveJSON {
		views := make([]chunkView, 0, len(chunks))
		for _, c := range chunks {
			views = append(views, chunkView{
				ID:             c.Chunk.ID,
				SourceFilename: c.Chunk.SourceFilename,
				Position:       c.Chunk.Position,
				Score:          c.Score,
				Text:           c.Chunk.Text,
				Metadata:       c.Chunk.Metadata,
			})
		}
		return outputJSON(cmd, views)
	}

	return outputChunks(cmd, chunks)
}

func outputChunks(cmd *cobra.Command, chunks []domain.ScoredChunk) error {
	if len(chunks) == 0 {
		cmd.Println("No matching chunks.")
		return nil
	}

	for i, c := range chunks {
		cmd.Printf("[%d] %s #%d (%.3f)\n", i+1, c.Chunk.SourceFilename, c.Chunk.Position, c.Score)
		if pages, ok := c.Chunk.Metadata["pages"]; ok {
			cmd.Printf("    pages: %v\n", pages)
		}
		cmd.Printf("    %s\n", snippet(c.Chunk.Text, 200))
		cmd.Println()
	}
	return nil
}

// snippet collapses whitespace and truncates to n runes.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
