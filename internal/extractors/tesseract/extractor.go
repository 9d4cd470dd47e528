// Package tesseract runs the tesseract OCR engine on images.
package tesseract

import (
	"context"
	"errors"
	"strings"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/extractors"
)

// Name identifies this extractor.
const Name = "tesseract"

// Binary is the tesseract executable.
const Binary = "tesseract"

// DefaultLanguages is passed to -l when none is configured.
const DefaultLanguages = "heb+eng"

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor OCRs single images.
type Extractor struct {
	runner driven.CommandRunner
	lang   string
}

// New creates a tesseract extractor for the given language set.
func New(runner driven.CommandRunner, lang string) *Extractor {
	if lang == "" {
		lang = DefaultLanguages
	}
	return &Extractor{runner: runner, lang: lang}
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return Name
}

// Extract OCRs the image at file.Path into one block.
func (e *Extractor) Extract(ctx context.Context, file *domain.SourceFile) (*domain.ExtractedDocument, error) {
	if file == nil {
		return nil, domain.ErrInvalidInput
	}
	if !e.runner.Available(Binary) {
		return nil, domain.NewExtractionError(file.Path, "tesseract not installed", errors.New(InstallInstructions()))
	}

	text, err := e.OCR(ctx, file.Path)
	if err != nil {
		return nil, domain.NewExtractionError(file.Path, "tesseract failed", err)
	}

	var blocks []domain.TextBlock
	if text != "" {
		blocks = []domain.TextBlock{{Text: text, Page: 1, Category: domain.CategoryText}}
	}
	doc := extractors.NewDocument(Name, domain.ExtractorFallback, blocks)
	doc.Metadata["languages"] = e.lang
	return doc, nil
}

// OCR returns the trimmed text tesseract reads from imagePath.
// It uses the LSTM engine with a single uniform text block layout.
func (e *Extractor) OCR(ctx context.Context, imagePath string) (string, error) {
	out, err := e.runner.Run(ctx, Binary, imagePath, "stdout", "-l", e.lang, "--oem", "3", "--psm", "6")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// InstallInstructions returns instructions for installing tesseract.
func InstallInstructions() string {
	return `tesseract is required for OCR fallback.

Install with:
  macOS:   brew install tesseract tesseract-lang
  Ubuntu:  apt install tesseract-ocr tesseract-ocr-heb
  Fedora:  dnf install tesseract tesseract-langpack-heb`
}
