// Package hashing provides a deterministic, offline embedding service
// based on signed feature hashing of words and character trigrams.
//
// It needs no model download or network access, which makes it the
// default for first runs and tests. Retrieval quality is lexical, not
// semantic; configure ollama or openai for real embeddings.
package hashing

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/custodia-labs/ragindex/internal/adapters/driven/vector/similarity"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions matches multilingual-e5-large so collections can be
// switched to a real model without resizing.
const DefaultDimensions = 1024

// ModelName is reported for collections built with this embedder.
const ModelName = "hashing-v1"

// Words are runs of letters (any script, including Hebrew niqqud) or digits.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{M}]+|\p{N}+`)

// trigramWeight scales subword features relative to whole words.
const trigramWeight = 0.5

// EmbeddingService embeds text by hashing features into a fixed-size vector.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a hashing embedder. dimensions <= 0 uses the default.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed returns the L2-normalised feature vector of text.
func (s *EmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	return s.vector(text), nil
}

// EmbedBatch embeds each text independently.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = s.vector(t)
	}
	return out, nil
}

func (s *EmbeddingService) vector(text string) []float32 {
	v := make([]float32, s.dimensions)
	for _, word := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		s.add(v, "w:"+word, 1)

		runes := []rune("^" + word + "$")
		for i := 0; i+3 <= len(runes); i++ {
			s.add(v, "t:"+string(runes[i:i+3]), trigramWeight)
		}
	}
	return similarity.Normalize(v)
}

// add hashes feature into a bucket; one hash bit picks the sign so
// collisions tend to cancel rather than accumulate.
func (s *EmbeddingService) add(v []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	bucket := int(sum % uint64(s.dimensions))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	v[bucket] += weight
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the embedder identifier.
func (s *EmbeddingService) ModelName() string {
	return ModelName
}

// Ping always succeeds; the embedder is local.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
