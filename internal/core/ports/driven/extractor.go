package driven

import (
	"context"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// Extractor turns one source file into ordered text blocks.
//
// Implementations never modify the file on disk. Callers bound every
// call with a context deadline.
type Extractor interface {
	// Name identifies the extractor in logs.
	Name() string

	// Extract reads file and returns its text.
	Extract(ctx context.Context, file *domain.SourceFile) (*domain.ExtractedDocument, error)
}

// CommandRunner executes external programs such as tesseract or antiword.
type CommandRunner interface {
	// Run executes name with args and returns its standard output.
	// A non-zero exit is an error that includes standard error.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// Available reports whether name can be found on PATH.
	Available(name string) bool
}
