package memory

import (
	"strconv"
	"strings"
	"sync"

	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// ConfigPath selects the in-memory config store in place of a config file.
const ConfigPath = ":memory:"

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore is an in-memory implementation of driven.ConfigStore.
// Nothing is read from or written to disk. With an environment lookup
// attached, variables override values set in memory, which lets a
// container run from defaults plus RAGINDEX_* variables alone.
type ConfigStore struct {
	mu      sync.RWMutex
	values  map[string]any
	envName func(key string) string
	lookup  func(string) (string, bool)
}

// NewConfigStore creates an empty in-memory config store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{values: make(map[string]any)}
}

// NewEnvConfigStore creates an in-memory store that consults lookup for the
// variable envName(key) before its own values.
func NewEnvConfigStore(envName func(key string) string, lookup func(string) (string, bool)) *ConfigStore {
	s := NewConfigStore()
	s.envName = envName
	s.lookup = lookup
	return s
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lookup != nil {
		if v, ok := s.lookup(s.envName(key)); ok {
			return v, true
		}
	}
	val, ok := s.values[key]
	return val, ok
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	val, _ := s.Get(key)
	str, _ := val.(string)
	return str
}

// GetInt retrieves an integer configuration value.
// Strings from the environment are parsed; anything else yields 0.
func (s *ConfigStore) GetInt(key string) int {
	val, _ := s.Get(key)
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	}
	return 0
}

// GetBool retrieves a boolean configuration value.
func (s *ConfigStore) GetBool(key string) bool {
	val, _ := s.Get(key)
	switch v := val.(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	}
	return false
}

// GetFloat retrieves a floating point configuration value.
func (s *ConfigStore) GetFloat(key string) float64 {
	val, _ := s.Get(key)
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	}
	return 0
}

// Set stores a configuration value for the life of the process.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Save is a no-op; settings changed in an ephemeral run are lost on exit.
func (s *ConfigStore) Save() error {
	return nil
}

// Load is a no-op.
func (s *ConfigStore) Load() error {
	return nil
}

// Path returns ConfigPath.
func (s *ConfigStore) Path() string {
	return ConfigPath
}
