// Package antiword converts legacy binary Word documents with antiword.
package antiword

import (
	"context"
	"errors"
	"strings"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/extractors"
)

// Name identifies this extractor.
const Name = "antiword"

// Binary is the antiword executable.
const Binary = "antiword"

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor runs antiword and splits its output into paragraphs.
type Extractor struct {
	runner driven.CommandRunner
}

// New creates an antiword extractor.
func New(runner driven.CommandRunner) *Extractor {
	return &Extractor{runner: runner}
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return Name
}

// Extract converts file to UTF-8 text without line wrapping.
func (e *Extractor) Extract(ctx context.Context, file *domain.SourceFile) (*domain.ExtractedDocument, error) {
	if file == nil {
		return nil, domain.ErrInvalidInput
	}
	if !e.runner.Available(Binary) {
		return nil, domain.NewExtractionError(file.Path, "antiword not installed", errors.New(InstallInstructions()))
	}

	out, err := e.runner.Run(ctx, Binary, "-m", "UTF-8.txt", "-w", "0", file.Path)
	if err != nil {
		return nil, domain.NewExtractionError(file.Path, "antiword failed", err)
	}

	var blocks []domain.TextBlock
	for _, para := range strings.Split(string(out), "\n\n") {
		if para = strings.TrimSpace(para); para != "" {
			blocks = append(blocks, domain.TextBlock{Text: para, Category: domain.CategoryText})
		}
	}

	doc := extractors.NewDocument(Name, domain.ExtractorFallback, blocks)
	doc.Metadata["title"] = extractors.Title(file.Path)
	return doc, nil
}

// InstallInstructions returns instructions for installing antiword.
func InstallInstructions() string {
	return `antiword is required for legacy .doc files.

Install with:
  macOS:   brew install antiword
  Ubuntu:  apt install antiword`
}
