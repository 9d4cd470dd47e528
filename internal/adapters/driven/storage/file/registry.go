package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// registryVersion is the on-disk format version.
const registryVersion = 1

// Ensure RegistryStore implements the interface.
var _ driven.FingerprintStore = (*RegistryStore)(nil)

// registryFile is the serialised form of the registry.
type registryFile struct {
	Version   int                               `json:"version"`
	UpdatedAt time.Time                         `json:"updated_at"`
	Files     map[string]domain.FileFingerprint `json:"files"`
}

// RegistryStore keeps fingerprints in a single JSON file.
type RegistryStore struct {
	mu     sync.Mutex
	path   string
	files  map[string]domain.FileFingerprint
	loaded bool
	now    func() time.Time
}

// NewRegistryStore creates a store backed by path. The file is not read until first use.
func NewRegistryStore(path string) *RegistryStore {
	return &RegistryStore{
		path: path,
		now:  time.Now,
	}
}

// Path returns the registry file path.
func (s *RegistryStore) Path() string {
	return s.path
}

// LoadAll re-reads the registry file and returns a copy of its contents.
func (s *RegistryStore) LoadAll(_ context.Context) (map[string]domain.FileFingerprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.readLocked()
	return maps.Clone(s.files), err
}

// Put creates or replaces one fingerprint and rewrites the file.
func (s *RegistryStore) Put(_ context.Context, fp domain.FileFingerprint) error {
	if fp.Filename == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(); err != nil {
		return err
	}
	next := maps.Clone(s.files)
	next[fp.Filename] = fp
	return s.writeLocked(next)
}

// Delete removes one fingerprint and rewrites the file.
func (s *RegistryStore) Delete(_ context.Context, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(); err != nil {
		return err
	}
	if _, ok := s.files[filename]; !ok {
		return nil
	}
	next := maps.Clone(s.files)
	delete(next, filename)
	return s.writeLocked(next)
}

// Clear writes an empty registry.
func (s *RegistryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(make(map[string]domain.FileFingerprint))
}

// ensureLoadedLocked reads the file once. Corruption is not fatal for writes:
// the corrupt file has already been moved aside and the next write starts fresh.
func (s *RegistryStore) ensureLoadedLocked() error {
	if s.loaded {
		return nil
	}
	if err := s.readLocked(); err != nil && !errors.Is(err, domain.ErrRegistryCorruption) {
		return err
	}
	return nil
}

// readLocked replaces the in-memory view with the file contents.
func (s *RegistryStore) readLocked() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.files = make(map[string]domain.FileFingerprint)
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading registry: %w", err)
	}

	var rf registryFile
	if err := json.Unmarshal(data, &rf); err != nil || rf.Version > registryVersion {
		if err == nil {
			err = fmt.Errorf("unsupported registry version %d", rf.Version)
		}
		aside, moveErr := s.quarantineLocked()
		s.files = make(map[string]domain.FileFingerprint)
		s.loaded = true
		if moveErr != nil {
			return fmt.Errorf("%w: %s: %w (could not move aside: %w)",
				domain.ErrRegistryCorruption, s.path, err, moveErr)
		}
		return fmt.Errorf("%w: %s moved to %s: %w", domain.ErrRegistryCorruption, s.path, aside, err)
	}

	if rf.Files == nil {
		rf.Files = make(map[string]domain.FileFingerprint)
	}
	// The map key is authoritative for the filename.
	for name, fp := range rf.Files {
		if fp.Filename != name {
			fp.Filename = name
			rf.Files[name] = fp
		}
	}
	s.files = rf.Files
	s.loaded = true
	return nil
}

// quarantineLocked renames the unreadable registry so it can be inspected.
func (s *RegistryStore) quarantineLocked() (string, error) {
	aside := fmt.Sprintf("%s.corrupt-%s", s.path, s.now().UTC().Format("20060102T150405Z"))
	if err := os.Rename(s.path, aside); err != nil {
		return "", err
	}
	return aside, nil
}

// writeLocked persists files atomically and adopts them as the in-memory view.
func (s *RegistryStore) writeLocked(files map[string]domain.FileFingerprint) error {
	data, err := json.MarshalIndent(registryFile{
		Version:   registryVersion,
		UpdatedAt: s.now().UTC(),
		Files:     files,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling registry: %w", err)
	}

	if err := writeFileAtomic(s.path, data, 0600); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	s.files = files
	s.loaded = true
	return nil
}

// writeFileAtomic writes data to a temp file next to path, syncs it and renames it into place.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}

	// Persist the rename itself. Not every platform supports syncing a directory.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}
