// Package extractors holds the collaborators that turn files into text.
//
// Each subpackage implements driven.Extractor for one extraction path:
//
//   - layout: layout-aware OCR/vision HTTP service (primary for PDF and images)
//   - pdftext: PDF text layer, with tesseract OCR of rendered pages
//   - tesseract: conventional OCR for images
//   - docx: in-process Office Open XML parser
//   - antiword: legacy .doc conversion
//   - plaintext: UTF-8 text files
//   - transcription: speech-to-text HTTP service
//
// Command-line tools run through the exec package's CommandRunner so tests
// can substitute a fake.
package extractors

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// NewDocument builds a document from blocks and stamps the extractor name.
func NewDocument(name string, kind domain.ExtractorKind, blocks []domain.TextBlock) *domain.ExtractedDocument {
	return &domain.ExtractedDocument{
		Blocks:        blocks,
		ExtractorUsed: kind,
		Metadata: map[string]any{
			"extractor_name": name,
			"extracted_at":   time.Now().UTC().Format(time.RFC3339),
		},
	}
}

// PageBlocks splits per-page text into one block per non-blank page.
// Pages are 1-based.
func PageBlocks(pages []string) []domain.TextBlock {
	blocks := make([]domain.TextBlock, 0, len(pages))
	for i, text := range pages {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		blocks = append(blocks, domain.TextBlock{
			Text:     text,
			Page:     i + 1,
			Category: domain.CategoryText,
		})
	}
	return blocks
}

// Title derives a human-readable title from a file name.
func Title(path string) string {
	filename := filepath.Base(path)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
