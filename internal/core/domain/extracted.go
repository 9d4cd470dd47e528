package domain

import (
	"strings"
	"unicode"
)

// ExtractorKind identifies which extraction path produced a document.
type ExtractorKind string

// Extraction paths.
const (
	// ExtractorPrimary is the layout-aware OCR/vision service.
	ExtractorPrimary ExtractorKind = "primary"

	// ExtractorFallback is the conventional OCR/text extractor.
	ExtractorFallback ExtractorKind = "fallback"

	// ExtractorNative is in-process parsing (plain text, DOCX).
	ExtractorNative ExtractorKind = "native"

	// ExtractorTranscription is the audio transcription service.
	ExtractorTranscription ExtractorKind = "transcription"
)

// Block categories reported by layout-aware extraction.
const (
	CategoryText    = "Text"
	CategoryTable   = "Table"
	CategoryFormula = "Formula"
	CategorySpeech  = "Speech"
)

// BoundingBox is a rectangular region on a page, in extractor pixels.
type BoundingBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// TextBlock is one ordered piece of extracted text with its location.
type TextBlock struct {
	// Text is the block content, never reordered for display direction.
	Text string

	// Page is the 1-based page index, or 0 when not paged.
	Page int

	// Region is the block's bounding box when the extractor reports one.
	Region *BoundingBox

	// Category is the layout element type (Text, Table, Formula, Speech).
	Category string

	// Start and End are offsets in seconds for transcribed audio.
	Start float64
	End   float64
}

// ExtractedDocument is the transient result of extracting one file.
// It is owned by a single indexing attempt and never persisted.
type ExtractedDocument struct {
	Blocks []TextBlock

	ExtractorUsed ExtractorKind

	// Confidence is in [0,1] when the extractor reports one.
	Confidence *float64

	// IsRTLHint is true when the dominant script is right-to-left.
	IsRTLHint bool

	// Metadata carries extractor-specific details (page count, language, ...).
	Metadata map[string]any
}

// BlockSeparator joins consecutive blocks when building the full text.
const BlockSeparator = "\n"

// Text concatenates all blocks in document order.
func (d *ExtractedDocument) Text() string {
	if d == nil || len(d.Blocks) == 0 {
		return ""
	}
	parts := make([]string, len(d.Blocks))
	for i := range d.Blocks {
		parts[i] = d.Blocks[i].Text
	}
	return strings.Join(parts, BlockSeparator)
}

// IsBlank reports whether the document holds no non-whitespace characters.
func (d *ExtractedDocument) IsBlank() bool {
	if d == nil {
		return true
	}
	for i := range d.Blocks {
		if strings.TrimSpace(d.Blocks[i].Text) != "" {
			return false
		}
	}
	return true
}

// DetectRTL reports whether most letters in text belong to a right-to-left script.
func DetectRTL(text string) bool {
	var rtl, letters int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.In(r, unicode.Hebrew, unicode.Arabic, unicode.Syriac, unicode.Thaana) {
			rtl++
		}
	}
	return letters > 0 && rtl*2 > letters
}
