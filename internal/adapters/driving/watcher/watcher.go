// Package watcher triggers early scans when files land in the watch directory.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// DefaultDebounce coalesces bursts of events into one trigger.
const DefaultDebounce = 2 * time.Second

// partSuffix marks uploads still being written.
const partSuffix = ".part"

// Triggerer requests an early scan cycle.
type Triggerer interface {
	Trigger(ctx context.Context)
}

// Watcher watches a directory tree and triggers the scheduler.
type Watcher struct {
	root     string
	target   Triggerer
	debounce time.Duration
	skipDir  string
}

// New creates a watcher for root. Events under skipDir (the archive
// directory, when it sits inside root) are ignored.
func New(root string, target Triggerer, skipDir string) *Watcher {
	return &Watcher{
		root:     root,
		target:   target,
		debounce: DefaultDebounce,
		skipDir:  skipDir,
	}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.root); err != nil {
		return err
	}
	logger.Info("watching %s for new files", w.root)

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.isNewDir(event) {
				if err := w.addTree(fsw, event.Name); err != nil {
					logger.Warn("cannot watch %s: %v", event.Name, err)
				}
				continue
			}
			if !w.relevant(event) {
				continue
			}
			logger.Debug("watch event %s %s", event.Op, event.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			w.target.Trigger(ctx)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		}
	}
}

// addTree watches dir and every visible subdirectory.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && (isHidden(path) || w.inSkipDir(path)) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func (w *Watcher) isNewDir(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) || isHidden(event.Name) || w.inSkipDir(event.Name) {
		return false
	}
	info, err := os.Stat(event.Name)
	return err == nil && info.IsDir()
}

// relevant reports whether event may make a supported file ready to index.
// Renames of .part uploads arrive as a Create of the final name.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	if isHidden(event.Name) || strings.HasSuffix(event.Name, partSuffix) || w.inSkipDir(event.Name) {
		return false
	}
	_, ok := domain.FormatForPath(event.Name)
	return ok
}

func (w *Watcher) inSkipDir(path string) bool {
	if w.skipDir == "" {
		return false
	}
	rel, err := filepath.Rel(w.skipDir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// isHidden reports whether the base name starts with a dot.
func isHidden(path string) bool {
	base := filepath.Base(path)
	return len(base) > 1 && strings.HasPrefix(base, ".")
}
