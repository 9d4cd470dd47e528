package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ragindex/internal/adapters/driving/watcher"
	"github.com/custodia-labs/ragindex/internal/logger"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the periodic scanner until interrupted",
	Long: `Runs a scan cycle immediately and then on every scan interval until
interrupted with Ctrl+C or SIGTERM. A file that is mid-commit finishes
before the process exits.

With --watch (or ingest.watch_events = true) filesystem events in the
watch directory trigger an early cycle.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd, serveWatch)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the scanner and scan early when files arrive",
	Long: `Same as 'serve --watch': runs the periodic scanner and also triggers a
cycle shortly after new files land in the watch directory.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd, true)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "trigger scans on filesystem events")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
}

func runServe(cmd *cobra.Command, watch bool) error {
	if scheduler == nil {
		return errSchedulerNotConfigured
	}

	logger.SetTimestamps(true)
	if !verbose {
		logger.SetLevel(logger.LevelInfo)
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var w *watcher.Watcher
	if settingsService != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		if watch || settings.Ingest.WatchEvents {
			w = watcher.New(settings.Ingest.WatchDirectory, scheduler, settings.Ingest.ArchiveDirectory)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	if w != nil {
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	err := g.Wait()
	logger.Info("shut down")
	return err
}

// cmdContext returns the command context, or Background when run outside Execute.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
