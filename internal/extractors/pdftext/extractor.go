// Package pdftext extracts PDF text from the embedded text layer, and OCRs
// rendered pages when the file has none.
package pdftext

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/extractors"
	"github.com/custodia-labs/ragindex/internal/extractors/tesseract"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// Name identifies this extractor.
const Name = "pdftext"

// RenderBinary rasterises PDF pages for OCR.
const RenderBinary = "pdftoppm"

// DefaultDPI is the render resolution for OCR.
const DefaultDPI = 200

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor reads the PDF text layer with OCR as a last resort.
type Extractor struct {
	runner driven.CommandRunner
	ocr    *tesseract.Extractor
	dpi    int
}

// New creates a PDF extractor. ocr may be nil to disable page OCR.
func New(runner driven.CommandRunner, ocr *tesseract.Extractor) *Extractor {
	return &Extractor{runner: runner, ocr: ocr, dpi: DefaultDPI}
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return Name
}

// Extract returns one block per non-blank page.
func (e *Extractor) Extract(ctx context.Context, file *domain.SourceFile) (*domain.ExtractedDocument, error) {
	if file == nil {
		return nil, domain.ErrInvalidInput
	}

	pages, layerErr := readTextLayer(file.Path)
	if layerErr == nil && hasText(pages) {
		doc := extractors.NewDocument(Name, domain.ExtractorFallback, extractors.PageBlocks(pages))
		doc.Metadata["page_count"] = len(pages)
		doc.Metadata["method"] = "text_layer"
		return doc, nil
	}
	if layerErr != nil {
		logger.Debug("%s: no readable text layer: %v", file.Name, layerErr)
	}

	if e.ocr == nil || e.runner == nil {
		if layerErr != nil {
			return nil, domain.NewExtractionError(file.Path, "reading PDF", layerErr)
		}
		// A scanned PDF without OCR yields a blank document.
		return extractors.NewDocument(Name, domain.ExtractorFallback, nil), nil
	}

	pages, err := e.ocrPages(ctx, file.Path)
	if err != nil {
		return nil, domain.NewExtractionError(file.Path, "OCR of rendered pages failed", errors.Join(layerErr, err))
	}
	doc := extractors.NewDocument(Name, domain.ExtractorFallback, extractors.PageBlocks(pages))
	doc.Metadata["page_count"] = len(pages)
	doc.Metadata["method"] = "ocr"
	doc.Metadata["dpi"] = e.dpi
	return doc, nil
}

// readTextLayer returns the plain text of every page.
// The parser panics on some malformed files, so panics become errors.
func readTextLayer(path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n := reader.NumPage()
	pages = make([]string, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Debug("%s: page %d: %v", filepath.Base(path), i, err)
			continue
		}
		pages[i-1] = text
	}
	return pages, nil
}

func hasText(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}

// ocrPages renders every page to PNG and OCRs them in order.
func (e *Extractor) ocrPages(ctx context.Context, path string) ([]string, error) {
	if !e.runner.Available(RenderBinary) {
		return nil, errors.New(InstallInstructions())
	}

	dir, err := os.MkdirTemp("", "ragindex-pdf-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	if _, err := e.runner.Run(ctx, RenderBinary, "-r", strconv.Itoa(e.dpi), "-png", path, prefix); err != nil {
		return nil, err
	}

	images, err := renderedPages(prefix)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%s produced no pages", RenderBinary)
	}

	pages := make([]string, len(images))
	for i, img := range images {
		text, err := e.ocr.OCR(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		pages[i] = text
	}
	return pages, nil
}

// renderedPages lists prefix-N.png files ordered by page number.
// pdftoppm zero-pads N to the width of the page count.
func renderedPages(prefix string) ([]string, error) {
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	pageNum := func(p string) int {
		s := strings.TrimSuffix(strings.TrimPrefix(p, prefix+"-"), ".png")
		n, _ := strconv.Atoi(s)
		return n
	}
	sort.Slice(matches, func(i, j int) bool {
		return pageNum(matches[i]) < pageNum(matches[j])
	})
	return matches, nil
}

// InstallInstructions returns instructions for installing pdftoppm.
func InstallInstructions() string {
	return `pdftoppm is required to OCR scanned PDFs.

Install with:
  macOS:   brew install poppler
  Ubuntu:  apt install poppler-utils
  Fedora:  dnf install poppler-utils`
}
