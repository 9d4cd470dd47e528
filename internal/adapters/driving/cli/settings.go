package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View the effective configuration and configure the embedding provider.

Settings come from the config file, a .env file and RAGINDEX_* environment
variables, in increasing order of precedence.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long: `Choose the embedding provider and model interactively.

Changing the model or dimensions invalidates vectors already stored;
run 'ragindex clear' afterwards so files are re-embedded.`,
	RunE: runSettingsEmbedding,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsNotConfigured
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	in := settings.Ingest
	cmd.Println("[Ingest]")
	cmd.Printf("  Enabled: %t\n", in.Enabled)
	cmd.Printf("  Watch directory: %s\n", in.WatchDirectory)
	cmd.Printf("  Scan interval: %s\n", in.ScanInterval)
	cmd.Printf("  Chunking: %d chars, %d overlap, %s boundary\n", in.ChunkSize, in.ChunkOverlap, in.ChunkBoundary)
	cmd.Printf("  Workers: %d\n", in.Workers)
	if in.MaxFileSizeMB > 0 {
		cmd.Printf("  Max file size: %d MB\n", in.MaxFileSizeMB)
	}
	if in.ArchiveDirectory != "" {
		cmd.Printf("  Archive directory: %s\n", in.ArchiveDirectory)
	}
	cmd.Printf("  Watch events: %t\n", in.WatchEvents)
	cmd.Println()

	ex := settings.Extraction
	cmd.Println("[Extraction]")
	cmd.Printf("  Timeout: %s\n", ex.Timeout)
	cmd.Printf("  Layout service: %s\n", orNone(ex.LayoutURL))
	cmd.Printf("  Min confidence: %.2f\n", ex.MinConfidence)
	cmd.Printf("  Transcription service: %s\n", orNone(ex.TranscriptionURL))
	cmd.Printf("  Tesseract languages: %s\n", ex.TesseractLang)
	cmd.Println()

	em := settings.Embedding
	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", em.Provider.Description())
	if em.Model != "" {
		cmd.Printf("  Model: %s\n", em.Model)
	}
	if em.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", em.BaseURL)
	}
	if em.Provider.RequiresAPIKey() {
		if em.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(em.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	cmd.Printf("  Dimensions: %d\n", em.Dimensions)
	if em.RequestsPerSecond > 0 {
		cmd.Printf("  Rate limit: %.1f req/s\n", em.RequestsPerSecond)
	}
	status := "configured"
	if !em.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Vector backend: %s\n", settings.Vector.Backend)
	cmd.Printf("  Collection: %s\n", settings.Vector.Collection)
	if settings.Vector.Backend == domain.VectorBackendQdrant {
		cmd.Printf("  Qdrant: %s\n", settings.Vector.QdrantAddr)
	}
	cmd.Printf("  Registry backend: %s\n", settings.Registry.Backend)
	if settings.Registry.Path != "" {
		cmd.Printf("  Registry path: %s\n", settings.Registry.Path)
	}
	cmd.Printf("  Data directory: %s\n", settings.DataDir)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Edit the config file or run 'ragindex settings embedding' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsNotConfigured
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureEmbeddingProvider(cmd, reader)
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	var model string
	if defaultModel, ok := domain.DefaultEmbeddingModels()[selectedProvider]; ok {
		cmd.Printf("Enter model name [%s]: ", defaultModel)
		model = readLine(reader)
		if model == "" {
			model = defaultModel
		}
	}

	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	if model != "" {
		cmd.Printf("Embedding provider configured: %s (%s)\n", selectedProvider.Description(), model)
	} else {
		cmd.Printf("Embedding provider configured: %s\n", selectedProvider.Description())
	}
	cmd.Println("Run 'ragindex clear' if the model changed, so stored vectors are rebuilt.")
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when stdin is a terminal.
func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
