// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// EmbeddingService generates vector embeddings from text.
//
// The same service must embed both indexed chunks and retrieval queries,
// otherwise scores are meaningless.
//
// Implementations include:
//   - Hashing (local deterministic feature hashing, offline default)
//   - Ollama (nomic-embed-text, mxbai-embed-large)
//   - OpenAI-compatible servers (text-embedding-3-small, multilingual-e5 behind TEI)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	// The result has one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	// This must match the vector store's collection size.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// EmbeddingValidator checks that an embedding configuration can be used
// before it is committed to settings.
type EmbeddingValidator interface {
	// ValidateEmbedding builds a client for cfg and pings it.
	ValidateEmbedding(cfg *domain.EmbeddingSettings) error
}
