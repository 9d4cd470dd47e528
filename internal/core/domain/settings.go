package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// EmbeddingProvider identifies the service that turns text into vectors.
type EmbeddingProvider string

// Available embedding providers.
const (
	// EmbeddingProviderHashing is the local deterministic feature-hashing embedder.
	EmbeddingProviderHashing EmbeddingProvider = "hashing"

	// EmbeddingProviderOllama is a local Ollama instance.
	EmbeddingProviderOllama EmbeddingProvider = "ollama"

	// EmbeddingProviderOpenAI is the OpenAI embeddings API (or a compatible server).
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case EmbeddingProviderHashing, EmbeddingProviderOllama, EmbeddingProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p EmbeddingProvider) RequiresAPIKey() bool {
	return p == EmbeddingProviderOpenAI
}

// IsRemote returns true if calls leave the process and should be rate limited.
func (p EmbeddingProvider) IsRemote() bool {
	return p == EmbeddingProviderOllama || p == EmbeddingProviderOpenAI
}

// String returns the string representation.
func (p EmbeddingProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p EmbeddingProvider) Description() string {
	switch p {
	case EmbeddingProviderHashing:
		return "Hashing (local, deterministic)"
	case EmbeddingProviderOllama:
		return "Ollama (local)"
	case EmbeddingProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// VectorBackend identifies where chunk vectors are stored.
type VectorBackend string

// Available vector backends.
const (
	VectorBackendSQLite VectorBackend = "sqlite"
	VectorBackendQdrant VectorBackend = "qdrant"
	VectorBackendMemory VectorBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendSQLite, VectorBackendQdrant, VectorBackendMemory:
		return true
	default:
		return false
	}
}

// RegistryBackend identifies where file fingerprints are stored.
type RegistryBackend string

// Available registry backends.
const (
	RegistryBackendJSON   RegistryBackend = "json"
	RegistryBackendSQLite RegistryBackend = "sqlite"
	RegistryBackendMemory RegistryBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b RegistryBackend) IsValid() bool {
	switch b {
	case RegistryBackendJSON, RegistryBackendSQLite, RegistryBackendMemory:
		return true
	default:
		return false
	}
}

// ChunkBoundary selects how the chunker places cuts.
type ChunkBoundary string

// Chunk boundary modes.
const (
	// ChunkBoundaryChar cuts at exact rune offsets.
	ChunkBoundaryChar ChunkBoundary = "char"

	// ChunkBoundaryWord moves cuts back to whitespace where possible.
	ChunkBoundaryWord ChunkBoundary = "word"
)

// IsValid returns true if the boundary mode is recognised.
func (b ChunkBoundary) IsValid() bool {
	return b == ChunkBoundaryChar || b == ChunkBoundaryWord
}

// IngestSettings configures discovery, chunking and the scan loop.
type IngestSettings struct {
	// Enabled controls whether the periodic loop starts. Force scans always work.
	Enabled bool

	// WatchDirectory is scanned for new or changed files.
	WatchDirectory string

	// ScanInterval is the period between timer-driven cycles.
	ScanInterval time.Duration

	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by consecutive chunks.
	ChunkOverlap int

	// ChunkBoundary selects char or word cuts.
	ChunkBoundary ChunkBoundary

	// MaxFileSizeMB rejects larger files. Zero disables the check.
	MaxFileSizeMB int

	// Workers bounds how many files a cycle processes at once.
	Workers int

	// ArchiveDirectory, when set, receives processed files instead of deleting them.
	ArchiveDirectory string

	// WatchEvents triggers an early scan on filesystem events.
	WatchEvents bool
}

// MaxFileSizeBytes returns the size limit in bytes, or 0 for no limit.
func (s IngestSettings) MaxFileSizeBytes() int64 {
	if s.MaxFileSizeMB <= 0 {
		return 0
	}
	return int64(s.MaxFileSizeMB) * 1024 * 1024
}

// ExtractionSettings configures the extraction collaborators.
type ExtractionSettings struct {
	// Timeout bounds every single collaborator call.
	Timeout time.Duration

	// MinConfidence below which the primary result is discarded for the fallback.
	MinConfidence float64

	// LayoutURL is the base URL of the primary layout/OCR service. Empty disables it.
	LayoutURL string

	// TranscriptionURL is the base URL of the speech-to-text service.
	TranscriptionURL string

	// TesseractLang is passed to tesseract's -l flag.
	TesseractLang string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider EmbeddingProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the embedding vector size.
	Dimensions int

	// BatchSize is how many texts are embedded per request.
	BatchSize int

	// RequestsPerSecond limits remote providers. Zero means unlimited.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	// Self-hosted OpenAI-compatible servers usually run without a key.
	if e.Provider.RequiresAPIKey() && e.APIKey == "" && e.BaseURL == "" {
		return false
	}
	return true
}

// VectorSettings holds vector store configuration.
type VectorSettings struct {
	Backend      VectorBackend
	Collection   string
	QdrantAddr   string
	QdrantAPIKey string
}

// RegistrySettings holds file registry configuration.
type RegistrySettings struct {
	Backend RegistryBackend

	// Path is the registry file for the json backend. Empty means <data_dir>/registry.json.
	Path string
}

// Settings holds all application settings.
type Settings struct {
	Ingest     IngestSettings
	Extraction ExtractionSettings
	Embedding  EmbeddingSettings
	Vector     VectorSettings
	Registry   RegistrySettings

	// DataDir holds the registry, the sqlite database and default directories.
	DataDir string
}

// DefaultSettings returns settings that work offline out of the box.
func DefaultSettings() Settings {
	return Settings{
		Ingest: IngestSettings{
			Enabled:       true,
			ScanInterval:  5 * time.Minute,
			ChunkSize:     1000,
			ChunkOverlap:  200,
			ChunkBoundary: ChunkBoundaryChar,
			MaxFileSizeMB: 100,
			Workers:       2,
		},
		Extraction: ExtractionSettings{
			Timeout:       2 * time.Minute,
			MinConfidence: 0.5,
			TesseractLang: "heb+eng",
		},
		Embedding: EmbeddingSettings{
			Provider:   EmbeddingProviderHashing,
			Dimensions: 1024, // multilingual-e5-large size
			BatchSize:  32,
		},
		Vector: VectorSettings{
			Backend:    VectorBackendSQLite,
			Collection: "documents",
			QdrantAddr: "localhost:6334",
		},
		Registry: RegistrySettings{
			Backend: RegistryBackendJSON,
		},
	}
}

// Validate checks cross-field constraints.
func (s Settings) Validate() error {
	if s.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidInput, s.Ingest.ChunkSize)
	}
	if s.Ingest.ChunkOverlap < 0 || s.Ingest.ChunkOverlap >= s.Ingest.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size), got %d",
			ErrInvalidInput, s.Ingest.ChunkOverlap)
	}
	if !s.Ingest.ChunkBoundary.IsValid() {
		return fmt.Errorf("%w: unknown chunk_boundary %q", ErrInvalidInput, s.Ingest.ChunkBoundary)
	}
	if s.Ingest.ScanInterval <= 0 {
		return fmt.Errorf("%w: scan_interval must be positive", ErrInvalidInput)
	}
	if s.Ingest.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive", ErrInvalidInput)
	}
	if s.Extraction.Timeout <= 0 {
		return fmt.Errorf("%w: extraction timeout must be positive", ErrInvalidInput)
	}
	if !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidInput, s.Embedding.Provider)
	}
	if s.Embedding.Dimensions <= 0 {
		return fmt.Errorf("%w: embedding dimensions must be positive", ErrInvalidInput)
	}
	if !s.Vector.Backend.IsValid() {
		return fmt.Errorf("%w: unknown vector backend %q", ErrInvalidInput, s.Vector.Backend)
	}
	if !s.Registry.Backend.IsValid() {
		return fmt.Errorf("%w: unknown registry backend %q", ErrInvalidInput, s.Registry.Backend)
	}
	return nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []EmbeddingProvider {
	return []EmbeddingProvider{
		EmbeddingProviderHashing,
		EmbeddingProviderOllama,
		EmbeddingProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each remote provider.
func DefaultEmbeddingModels() map[EmbeddingProvider]string {
	return map[EmbeddingProvider]string{
		EmbeddingProviderOllama: "nomic-embed-text",
		EmbeddingProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"multilingual-e5-large":  1024,
		"all-minilm":             384,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
	}
}
