package services

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyIngestEnabled    = "ingest.enabled"
	keyWatchDirectory   = "ingest.watch_directory"
	keyScanInterval     = "ingest.scan_interval"
	keyChunkSize        = "ingest.chunk_size"
	keyChunkOverlap     = "ingest.chunk_overlap"
	keyChunkBoundary    = "ingest.chunk_boundary"
	keyMaxFileSizeMB    = "ingest.max_file_size_mb"
	keyWorkers          = "ingest.workers"
	keyArchiveDirectory = "ingest.archive_directory"
	keyWatchEvents      = "ingest.watch_events"
	keyExtractTimeout   = "extraction.timeout"
	keyMinConfidence    = "extraction.min_confidence"
	keyLayoutURL        = "extraction.layout_url"
	keyTranscriptionURL = "extraction.transcription_url"
	keyTesseractLang    = "extraction.tesseract_lang"
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedDimensions  = "embedding.dimensions"
	keyEmbedBatchSize   = "embedding.batch_size"
	keyEmbedRPS         = "embedding.requests_per_second"
	keyVectorBackend    = "vector.backend"
	keyVectorCollection = "vector.collection"
	keyQdrantAddr       = "vector.qdrant_addr"
	keyQdrantAPIKey     = "vector.qdrant_api_key"
	keyRegistryBackend  = "registry.backend"
	keyRegistryPath     = "registry.path"
	keyDataDir          = "data_dir"
)

const (
	defaultWatchSubdir   = "watch"
	defaultRegistryFile  = "registry.json"
	defaultOllamaBaseURL = "http://localhost:11434"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	validator   driven.EmbeddingValidator
}

// NewSettingsService creates a new settings service.
// validator may be nil, in which case embedding validation is skipped.
func NewSettingsService(configStore driven.ConfigStore, validator driven.EmbeddingValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		validator:   validator,
	}
}

// Get retrieves current application settings.
// Unset keys take their defaults; paths left empty are derived from the data directory.
func (s *SettingsService) Get() (*domain.Settings, error) {
	d := domain.DefaultSettings()

	settings := &domain.Settings{
		Ingest: domain.IngestSettings{
			Enabled:          s.getBool(keyIngestEnabled, d.Ingest.Enabled),
			WatchDirectory:   s.configStore.GetString(keyWatchDirectory),
			ScanInterval:     s.getDuration(keyScanInterval, d.Ingest.ScanInterval),
			ChunkSize:        s.getInt(keyChunkSize, d.Ingest.ChunkSize),
			ChunkOverlap:     s.getIntAllowZero(keyChunkOverlap, d.Ingest.ChunkOverlap),
			ChunkBoundary:    domain.ChunkBoundary(s.getString(keyChunkBoundary, string(d.Ingest.ChunkBoundary))),
			MaxFileSizeMB:    s.getIntAllowZero(keyMaxFileSizeMB, d.Ingest.MaxFileSizeMB),
			Workers:          s.getInt(keyWorkers, d.Ingest.Workers),
			ArchiveDirectory: s.configStore.GetString(keyArchiveDirectory),
			WatchEvents:      s.getBool(keyWatchEvents, d.Ingest.WatchEvents),
		},
		Extraction: domain.ExtractionSettings{
			Timeout:          s.getDuration(keyExtractTimeout, d.Extraction.Timeout),
			MinConfidence:    s.getFloat(keyMinConfidence, d.Extraction.MinConfidence),
			LayoutURL:        s.configStore.GetString(keyLayoutURL),
			TranscriptionURL: s.configStore.GetString(keyTranscriptionURL),
			TesseractLang:    s.getString(keyTesseractLang, d.Extraction.TesseractLang),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(d.Embedding.Provider),
			Model:             s.configStore.GetString(keyEmbedModel),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL),
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:        s.getInt(keyEmbedDimensions, 0),
			BatchSize:         s.getInt(keyEmbedBatchSize, d.Embedding.BatchSize),
			RequestsPerSecond: s.getFloat(keyEmbedRPS, d.Embedding.RequestsPerSecond),
		},
		Vector: domain.VectorSettings{
			Backend:      domain.VectorBackend(s.getString(keyVectorBackend, string(d.Vector.Backend))),
			Collection:   s.getString(keyVectorCollection, d.Vector.Collection),
			QdrantAddr:   s.getString(keyQdrantAddr, d.Vector.QdrantAddr),
			QdrantAPIKey: s.configStore.GetString(keyQdrantAPIKey),
		},
		Registry: domain.RegistrySettings{
			Backend: domain.RegistryBackend(s.getString(keyRegistryBackend, string(d.Registry.Backend))),
			Path:    s.configStore.GetString(keyRegistryPath),
		},
		DataDir: s.configStore.GetString(keyDataDir),
	}

	s.applyEmbeddingDefaults(&settings.Embedding, d.Embedding.Dimensions)
	s.resolvePaths(settings)

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.Settings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyIngestEnabled, settings.Ingest.Enabled},
		{keyWatchDirectory, settings.Ingest.WatchDirectory},
		{keyScanInterval, settings.Ingest.ScanInterval.String()},
		{keyChunkSize, settings.Ingest.ChunkSize},
		{keyChunkOverlap, settings.Ingest.ChunkOverlap},
		{keyChunkBoundary, string(settings.Ingest.ChunkBoundary)},
		{keyMaxFileSizeMB, settings.Ingest.MaxFileSizeMB},
		{keyWorkers, settings.Ingest.Workers},
		{keyArchiveDirectory, settings.Ingest.ArchiveDirectory},
		{keyWatchEvents, settings.Ingest.WatchEvents},
		{keyExtractTimeout, settings.Extraction.Timeout.String()},
		{keyMinConfidence, settings.Extraction.MinConfidence},
		{keyLayoutURL, settings.Extraction.LayoutURL},
		{keyTranscriptionURL, settings.Extraction.TranscriptionURL},
		{keyTesseractLang, settings.Extraction.TesseractLang},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDimensions, settings.Embedding.Dimensions},
		{keyEmbedBatchSize, settings.Embedding.BatchSize},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyVectorBackend, string(settings.Vector.Backend)},
		{keyVectorCollection, settings.Vector.Collection},
		{keyQdrantAddr, settings.Vector.QdrantAddr},
		{keyRegistryBackend, string(settings.Registry.Backend)},
		{keyRegistryPath, settings.Registry.Path},
		{keyDataDir, settings.DataDir},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// Secrets are only written when present so env-provided keys stay out of the file.
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyEmbedAPIKey, err)
		}
	}
	if settings.Vector.QdrantAPIKey != "" {
		if err := s.configStore.Set(keyQdrantAPIKey, settings.Vector.QdrantAPIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyQdrantAPIKey, err)
		}
	}

	return s.configStore.Save()
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.EmbeddingProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	settings.Embedding.APIKey = apiKey
	if provider == domain.EmbeddingProviderOllama {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaBaseURL
		}
	} else {
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.Dimensions = 0
	s.applyEmbeddingDefaults(&settings.Embedding, domain.DefaultSettings().Embedding.Dimensions)

	return s.Save(settings)
}

// Validate checks that the current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not fully configured",
			domain.ErrInvalidInput, settings.Embedding.Provider)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.validator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.validator.ValidateEmbedding(&settings.Embedding)
}

// applyEmbeddingDefaults fills model and dimensions from the provider when unset.
func (s *SettingsService) applyEmbeddingDefaults(e *domain.EmbeddingSettings, hashingDims int) {
	if e.Model == "" {
		e.Model = domain.DefaultEmbeddingModels()[e.Provider]
	}
	if e.Dimensions > 0 {
		return
	}
	if d, ok := domain.EmbeddingDimensions()[e.Model]; ok {
		e.Dimensions = d
		return
	}
	e.Dimensions = hashingDims
}

// resolvePaths derives the data directory, watch directory and registry
// path when they are not configured explicitly.
func (s *SettingsService) resolvePaths(settings *domain.Settings) {
	if settings.DataDir == "" {
		if p := s.configStore.Path(); p != "" && p != ":memory:" {
			settings.DataDir = filepath.Dir(p)
		}
	}
	if settings.DataDir == "" {
		return
	}
	if settings.Ingest.WatchDirectory == "" {
		settings.Ingest.WatchDirectory = filepath.Join(settings.DataDir, defaultWatchSubdir)
	}
	if settings.Registry.Path == "" {
		settings.Registry.Path = filepath.Join(settings.DataDir, defaultRegistryFile)
	}
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getIntAllowZero treats an explicit 0 as a real value (e.g. overlap 0).
func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

// getDuration accepts Go duration strings ("5m") or a bare number of seconds.
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	raw, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	switch v := raw.(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(n * float64(time.Second))
		}
	default:
		if n := s.configStore.GetFloat(key); n > 0 {
			return time.Duration(n * float64(time.Second))
		}
	}
	return defaultVal
}

func (s *SettingsService) getProvider(defaultVal domain.EmbeddingProvider) domain.EmbeddingProvider {
	val := s.configStore.GetString(keyEmbedProvider)
	if val == "" {
		return defaultVal
	}
	provider := domain.EmbeddingProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
