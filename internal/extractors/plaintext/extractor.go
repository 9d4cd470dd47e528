// Package plaintext reads UTF-8 text files.
package plaintext

import (
	"bytes"
	"context"
	"os"
	"unicode/utf8"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/extractors"
)

// Name identifies this extractor.
const Name = "plaintext"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor reads a text file into a single block.
type Extractor struct{}

// New creates a plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return Name
}

// Extract reads file, stripping a UTF-8 byte order mark.
// Content that is not valid UTF-8 is an extraction error.
func (e *Extractor) Extract(_ context.Context, file *domain.SourceFile) (*domain.ExtractedDocument, error) {
	if file == nil {
		return nil, domain.ErrInvalidInput
	}

	content, err := os.ReadFile(file.Path)
	if err != nil {
		return nil, domain.NewExtractionError(file.Path, "reading file", err)
	}
	content = bytes.TrimPrefix(content, utf8BOM)

	if !utf8.Valid(content) {
		return nil, domain.NewExtractionError(file.Path, "file is not valid UTF-8", nil)
	}

	var blocks []domain.TextBlock
	if len(content) > 0 {
		blocks = []domain.TextBlock{{Text: string(content), Category: domain.CategoryText}}
	}

	doc := extractors.NewDocument(Name, domain.ExtractorNative, blocks)
	doc.Metadata["title"] = extractors.Title(file.Path)
	return doc, nil
}
