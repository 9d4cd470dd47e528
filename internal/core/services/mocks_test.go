package services

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// --- Test doubles shared by the service tests ---

const testDims = 16

// letterEmbedder embeds text as normalised letter frequencies. It is
// deterministic, so equal texts always get equal vectors.
type letterEmbedder struct {
	mu       sync.Mutex
	batches  int
	embedErr error
	dims     int
}

func newLetterEmbedder() *letterEmbedder {
	return &letterEmbedder{dims: testDims}
}

func (e *letterEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dims)
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) {
			v[int(r)%e.dims]++
		}
	}
	return v
}

func (e *letterEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.embedErr != nil {
		return nil, e.embedErr
	}
	return e.vector(text), nil
}

func (e *letterEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batches++
	e.mu.Unlock()
	if e.embedErr != nil {
		return nil, e.embedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *letterEmbedder) Dimensions() int              { return testDims }
func (e *letterEmbedder) ModelName() string            { return "letters" }
func (e *letterEmbedder) Ping(_ context.Context) error { return nil }
func (e *letterEmbedder) Close() error                 { return nil }

func (e *letterEmbedder) batchCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.batches
}

// funcExtractor adapts a function to driven.Extractor and counts calls.
type funcExtractor struct {
	name  string
	fn    func(ctx context.Context, file *domain.SourceFile) (*domain.ExtractedDocument, error)
	calls atomic.Int32
}

func (f *funcExtractor) Name() string { return f.name }

func (f *funcExtractor) Extract(ctx context.Context, file *domain.SourceFile) (*domain.ExtractedDocument, error) {
	f.calls.Add(1)
	return f.fn(ctx, file)
}

// readFileExtractor returns the file contents as one block.
func readFileExtractor() *funcExtractor {
	return &funcExtractor{
		name: "read",
		fn: func(_ context.Context, file *domain.SourceFile) (*domain.ExtractedDocument, error) {
			data, err := os.ReadFile(file.Path)
			if err != nil {
				return nil, err
			}
			return &domain.ExtractedDocument{Blocks: []domain.TextBlock{{Text: string(data)}}}, nil
		},
	}
}

// textExtractor always returns text.
func textExtractor(name, text string, confidence *float64) *funcExtractor {
	return &funcExtractor{
		name: name,
		fn: func(_ context.Context, _ *domain.SourceFile) (*domain.ExtractedDocument, error) {
			return &domain.ExtractedDocument{
				Blocks:     []domain.TextBlock{{Text: text, Page: 1}},
				Confidence: confidence,
			}, nil
		},
	}
}

// failingExtractor always fails with err.
func failingExtractor(name string, err error) *funcExtractor {
	return &funcExtractor{
		name: name,
		fn: func(_ context.Context, _ *domain.SourceFile) (*domain.ExtractedDocument, error) {
			return nil, err
		},
	}
}

// hangingExtractor blocks until its context ends.
func hangingExtractor(name string) *funcExtractor {
	return &funcExtractor{
		name: name,
		fn: func(ctx context.Context, _ *domain.SourceFile) (*domain.ExtractedDocument, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
}

// failingFingerprintStore wraps a store and fails the chosen operations.
type failingFingerprintStore struct {
	loadErr error
	putErr  error
	files   map[string]domain.FileFingerprint
}

func (s *failingFingerprintStore) LoadAll(_ context.Context) (map[string]domain.FileFingerprint, error) {
	return s.files, s.loadErr
}

func (s *failingFingerprintStore) Put(_ context.Context, fp domain.FileFingerprint) error {
	if s.putErr != nil {
		return s.putErr
	}
	if s.files == nil {
		s.files = make(map[string]domain.FileFingerprint)
	}
	s.files[fp.Filename] = fp
	return nil
}

func (s *failingFingerprintStore) Delete(_ context.Context, filename string) error {
	delete(s.files, filename)
	return nil
}

func (s *failingFingerprintStore) Clear(_ context.Context) error {
	s.files = nil
	return nil
}

var errBoom = errors.New("boom")

func ptr[T any](v T) *T { return &v }
