// Package cli provides the ragindex command line interface.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragindex/internal/core/ports/driving"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// skipBootstrap marks commands that run without services.
const skipBootstrap = "skip-bootstrap"

var (
	settingsService  driving.SettingsService
	retrievalService driving.RetrievalService
	indexService     driving.IndexService
	scheduler        driving.Scheduler
)

var (
	configPath string
	verbose    bool
)

// Services holds the driving ports the commands call.
type Services struct {
	Settings  driving.SettingsService
	Retrieval driving.RetrievalService
	Index     driving.IndexService
	Scheduler driving.Scheduler
}

// BootstrapFunc builds the services from the config file at configPath.
// The returned cleanup releases stores and connections.
type BootstrapFunc func(ctx context.Context, configPath string) (Services, func(), error)

var (
	bootstrap BootstrapFunc
	cleanup   func()
)

var rootCmd = &cobra.Command{
	Use:   "ragindex",
	Short: "Index a directory of documents for retrieval",
	Long: `ragindex watches a directory, extracts text from new or changed files
(PDF, Word, text, images and audio), chunks and embeds it, and stores the
vectors for retrieval.

Processed files are removed from the watch directory, or moved to the
archive directory when one is configured.`,
	SilenceUsage:      true,
	PersistentPreRunE: preRun,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.ragindex/config.toml, \":memory:\" for environment only)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetServices injects the services directly, bypassing bootstrap.
func SetServices(s Services) {
	settingsService = s.Settings
	retrievalService = s.Retrieval
	indexService = s.Index
	scheduler = s.Scheduler
}

// SetBootstrap registers the function that wires services before a command runs.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command and releases whatever bootstrap opened.
func Execute(ctx context.Context) error {
	defer release()
	return rootCmd.ExecuteContext(ctx)
}

func preRun(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if bootstrap == nil || cmd.Annotations[skipBootstrap] == "true" {
		return nil
	}
	services, done, err := bootstrap(cmd.Context(), configPath)
	if err != nil {
		return err
	}
	SetServices(services)
	cleanup = done
	return nil
}

func release() {
	if cleanup != nil {
		cleanup()
		cleanup = nil
	}
}

// Sentinel errors for unwired services.
var (
	errSettingsNotConfigured  = errors.New("settings service not configured")
	errRetrievalNotConfigured = errors.New("retrieval service not configured")
	errIndexNotConfigured     = errors.New("index service not configured")
	errSchedulerNotConfigured = errors.New("scheduler not configured")
)
