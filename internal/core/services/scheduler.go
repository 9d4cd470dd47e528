package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/core/ports/driving"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

const (
	// partSuffix marks files still being copied into place.
	partSuffix = ".part"

	// historyKeep is how many scan results are retained.
	historyKeep = 100

	defaultScanInterval = 5 * time.Minute
)

// FileProcessor indexes a single file. Pipeline is the production implementation.
type FileProcessor interface {
	ProcessFile(ctx context.Context, file *domain.SourceFile) (domain.FileOutcome, int, error)
}

// Scheduler runs scan cycles over the watch directory, on a timer and on demand.
// A single scanning flag guarantees that no two cycles overlap.
type Scheduler struct {
	cfg       domain.IngestSettings
	processor FileProcessor
	registry  *FileRegistry
	history   driven.ScanHistoryStore

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	scanning atomic.Bool
	trigger  chan struct{}

	statusMu   sync.RWMutex
	lastResult *domain.ScanResult
	failures   map[string]domain.FileFailure
	origins    map[string]string

	// busy holds names being indexed by a cycle or written by Submit.
	busyMu sync.Mutex
	busy   map[string]struct{}

	now func() time.Time
}

// NewScheduler creates a stopped scheduler. history may be nil.
func NewScheduler(
	cfg domain.IngestSettings,
	processor FileProcessor,
	registry *FileRegistry,
	history driven.ScanHistoryStore,
) *Scheduler {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = defaultScanInterval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Scheduler{
		cfg:       cfg,
		processor: processor,
		registry:  registry,
		history:   history,
		trigger:   make(chan struct{}, 1),
		failures:  make(map[string]domain.FileFailure),
		origins:   make(map[string]string),
		busy:      make(map[string]struct{}),
		now:       time.Now,
	}
}

// Start launches the periodic loop in the background and returns.
// The first cycle runs immediately. When indexing is disabled, Start
// only logs; force scans remain available.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		logger.Info("periodic indexing is disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	if err := s.ensureWatchDir(); err != nil {
		return err
	}
	if err := s.registry.Load(ctx); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(loopCtx, s.done)

	logger.Info("scanning %s every %s", s.cfg.WatchDirectory, s.cfg.ScanInterval)
	return nil
}

// Stop ends the periodic loop and waits for it to exit.
// A file that is mid-commit finishes its commit first.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	done := s.done
	s.mu.Unlock()

	<-done
	logger.Info("scanner stopped")
	return nil
}

// Run starts the loop and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop()
}

// ForceScan runs one cycle now, outside the timer.
func (s *Scheduler) ForceScan(ctx context.Context) (*domain.ScanResult, error) {
	return s.scan(ctx, domain.TriggerForced)
}

// Trigger asks the running loop for an early cycle. Requests made while a
// cycle is running, or while the loop is stopped, are dropped.
func (s *Scheduler) Trigger(_ context.Context) {
	if s.scanning.Load() {
		return
	}
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	s.tick(ctx, domain.TriggerTimer)
	for {
		skipMissedTick(ticker)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, domain.TriggerTimer)
		case <-s.trigger:
			s.tick(ctx, domain.TriggerEvent)
		}
	}
}

// skipMissedTick discards a tick that fired while a cycle was running, so
// the next timer cycle waits for the next interval boundary.
func skipMissedTick(ticker *time.Ticker) {
	select {
	case <-ticker.C:
		logger.Debug("scan overran the interval, timer tick skipped")
	default:
	}
}

func (s *Scheduler) tick(ctx context.Context, trigger domain.ScanTrigger) {
	_, err := s.scan(ctx, trigger)
	if errors.Is(err, domain.ErrScanInProgress) {
		logger.Debug("scan already in progress, %s tick skipped", trigger)
	}
}

// scan runs a cycle unless one is already in progress.
func (s *Scheduler) scan(ctx context.Context, trigger domain.ScanTrigger) (*domain.ScanResult, error) {
	if !s.scanning.CompareAndSwap(false, true) {
		return nil, domain.ErrScanInProgress
	}
	defer s.scanning.Store(false)

	result := s.runCycle(ctx, trigger)
	s.record(ctx, result)
	return result, nil
}

func (s *Scheduler) runCycle(ctx context.Context, trigger domain.ScanTrigger) *domain.ScanResult {
	result := &domain.ScanResult{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		StartedAt: s.now(),
	}
	defer func() { result.EndedAt = s.now() }()

	files, err := s.listFiles()
	if err != nil {
		logger.Error("scan %s: %v", s.cfg.WatchDirectory, err)
		result.Error = err.Error()
		return result
	}
	result.FilesSeen = len(files)
	if len(files) == 0 {
		return result
	}
	logger.Debug("scan %s: %d candidate files", result.ID, len(files))

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)

	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		if !s.claim(file.Name) {
			logger.Debug("%s: being submitted, left for the next cycle", file.Name)
			continue
		}
		g.Go(func() error {
			defer s.release(file.Name)
			outcome, chunks, err := s.processor.ProcessFile(ctx, file)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil && ctx.Err() != nil:
				logger.Debug("%s: abandoned: %v", file.Name, err)
			case err != nil:
				logger.Error("index %s: %v", file.Name, err)
				failure := domain.FileFailure{Filename: file.Name, Error: err.Error(), At: s.now()}
				result.Failed++
				result.Failures = append(result.Failures, failure)
				s.setFailure(failure)
			case outcome == domain.OutcomeSkipped:
				result.Skipped++
				s.clearFile(file.Name)
			default:
				result.Indexed++
				result.ChunksWritten += chunks
				s.clearFile(file.Name)
			}
			return nil
		})
	}
	_ = g.Wait()

	return result
}

// record publishes result to the status view and the history store.
func (s *Scheduler) record(ctx context.Context, result *domain.ScanResult) {
	s.statusMu.Lock()
	s.lastResult = result
	s.statusMu.Unlock()

	if result.Indexed > 0 || result.Failed > 0 {
		logger.Info("scan finished: %d indexed, %d skipped, %d failed in %s",
			result.Indexed, result.Skipped, result.Failed, result.Duration().Round(time.Millisecond))
	}

	if s.history == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := s.history.RecordScan(ctx, result); err != nil {
		logger.Warn("record scan result: %v", err)
		return
	}
	if err := s.history.PruneHistory(ctx, historyKeep); err != nil {
		logger.Warn("prune scan history: %v", err)
	}
}

func (s *Scheduler) setFailure(f domain.FileFailure) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.failures[f.Filename] = f
}

func (s *Scheduler) clearFile(name string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	delete(s.failures, name)
	delete(s.origins, name)
}

// Status returns a snapshot of the scheduler. In a process that has not
// scanned yet, the last result comes from the history store.
func (s *Scheduler) Status(ctx context.Context) domain.ScanStatus {
	if err := s.registry.ensureLoaded(ctx); err != nil {
		logger.Warn("status: %v", err)
	}

	s.mu.Lock()
	state := domain.SchedulerStopped
	if s.running {
		state = domain.SchedulerRunning
	}
	s.mu.Unlock()

	status := domain.ScanStatus{
		Enabled:        s.cfg.Enabled,
		State:          state,
		Scanning:       s.scanning.Load(),
		WatchDirectory: s.cfg.WatchDirectory,
		Interval:       s.cfg.ScanInterval,
		ProcessedCount: s.registry.Count(),
	}

	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	if s.lastResult != nil {
		last := *s.lastResult
		status.LastResult = &last
		status.LastScan = last.EndedAt
	} else if s.history != nil {
		if recent, err := s.history.RecentScans(ctx, 1); err == nil && len(recent) > 0 {
			status.LastResult = &recent[0]
			status.LastScan = recent[0].EndedAt
		}
	}
	for _, f := range s.failures {
		status.RecentFailures = append(status.RecentFailures, f)
	}
	sort.Slice(status.RecentFailures, func(i, j int) bool {
		return status.RecentFailures[i].At.Before(status.RecentFailures[j].At)
	})
	return status
}

// History returns recent scan results, most recent first.
func (s *Scheduler) History(ctx context.Context, limit int) ([]domain.ScanResult, error) {
	if s.history == nil {
		s.statusMu.RLock()
		defer s.statusMu.RUnlock()
		if s.lastResult == nil {
			return nil, nil
		}
		return []domain.ScanResult{*s.lastResult}, nil
	}
	return s.history.RecentScans(ctx, limit)
}

// Submit copies the file at path into the watch directory. The copy is
// written under a .part name and renamed, so a cycle never sees it half written.
// It returns the name the file will be indexed under.
func (s *Scheduler) Submit(_ context.Context, path, origin string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}
	if _, ok := domain.FormatForPath(path); !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filepath.Base(path))
	}
	if err := s.ensureWatchDir(); err != nil {
		return "", err
	}

	name := filepath.Base(path)
	if !s.claim(name) {
		return "", fmt.Errorf("%w: %s is being indexed, submit it again after the scan",
			domain.ErrScanInProgress, name)
	}
	defer s.release(name)

	dst := filepath.Join(s.cfg.WatchDirectory, name)
	if err := copyFile(path, dst); err != nil {
		return "", fmt.Errorf("submit %s: %w", name, err)
	}

	if origin == "" {
		origin = domain.OriginUpload
	}
	s.statusMu.Lock()
	s.origins[name] = origin
	s.statusMu.Unlock()

	logger.Info("submitted %s", name)
	return name, nil
}

// claim marks name busy. It fails when a cycle or a submit already holds it,
// so an upload never replaces a file mid-index.
func (s *Scheduler) claim(name string) bool {
	s.busyMu.Lock()
	defer s.busyMu.Unlock()
	if _, ok := s.busy[name]; ok {
		return false
	}
	s.busy[name] = struct{}{}
	return true
}

func (s *Scheduler) release(name string) {
	s.busyMu.Lock()
	defer s.busyMu.Unlock()
	delete(s.busy, name)
}

func (s *Scheduler) ensureWatchDir() error {
	if s.cfg.WatchDirectory == "" {
		return fmt.Errorf("%w: watch directory not configured", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(s.cfg.WatchDirectory, 0o755); err != nil {
		return fmt.Errorf("create watch directory: %w", err)
	}
	return nil
}

// listFiles walks the watch directory for supported files, skipping hidden
// entries, partial copies and the archive directory.
func (s *Scheduler) listFiles() ([]*domain.SourceFile, error) {
	if err := s.ensureWatchDir(); err != nil {
		return nil, err
	}
	root := s.cfg.WatchDirectory
	archive := ""
	if s.cfg.ArchiveDirectory != "" {
		archive = filepath.Clean(s.cfg.ArchiveDirectory)
	}

	var files []*domain.SourceFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn("scan %s: %v", path, err)
			return nil
		}
		name := d.Name()
		if path != root && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if archive != "" && filepath.Clean(path) == archive {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.HasSuffix(name, partSuffix) {
			return nil
		}

		format, ok := domain.FormatForPath(name)
		if !ok {
			logger.Debug("ignoring unsupported file %s", path)
			return nil
		}
		info, err := d.Info()
		if err != nil {
			logger.Warn("stat %s: %v", path, err)
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, &domain.SourceFile{
			Path:       path,
			Name:       filepath.ToSlash(rel),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime(),
			Format:     format,
			Origin:     s.originOf(filepath.ToSlash(rel)),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (s *Scheduler) originOf(name string) string {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	if origin, ok := s.origins[name]; ok {
		return origin
	}
	return domain.OriginWatch
}
