package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// defaultExtractionTimeout bounds each collaborator call when none is configured.
const defaultExtractionTimeout = 2 * time.Minute

// Extractors holds one collaborator per extraction path.
// A nil entry means that path is unavailable.
type Extractors struct {
	// Layout is the primary OCR/vision service for PDFs and images.
	Layout driven.Extractor

	// PDFFallback reads the PDF text layer, or OCRs rendered pages.
	PDFFallback driven.Extractor

	// ImageFallback is conventional OCR.
	ImageFallback driven.Extractor

	// DOCX parses Office Open XML documents in-process.
	DOCX driven.Extractor

	// LegacyDOC converts binary Word documents, and DOCX files the
	// native parser rejects.
	LegacyDOC driven.Extractor

	// Text reads plain text files.
	Text driven.Extractor

	// Transcription turns audio into timed text segments.
	Transcription driven.Extractor
}

// ContentExtractor turns a source file into an ExtractedDocument,
// choosing the handler by format and applying the fallback policy.
type ContentExtractor struct {
	ex            Extractors
	timeout       time.Duration
	minConfidence float64
}

// NewContentExtractor creates an extractor.
func NewContentExtractor(ex Extractors, cfg domain.ExtractionSettings) *ContentExtractor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultExtractionTimeout
	}
	return &ContentExtractor{
		ex:            ex,
		timeout:       timeout,
		minConfidence: cfg.MinConfidence,
	}
}

// Name identifies the extractor in logs.
func (e *ContentExtractor) Name() string {
	return "content"
}

// Extract returns the text of file. Failures are *domain.ExtractionError,
// except unsupported formats which return domain.ErrUnsupportedFormat.
func (e *ContentExtractor) Extract(ctx context.Context, file *domain.SourceFile) (*domain.ExtractedDocument, error) {
	var (
		doc *domain.ExtractedDocument
		err error
	)

	switch file.Format {
	case domain.FormatPDF:
		doc, err = e.withFallback(ctx, file, e.ex.Layout, e.ex.PDFFallback)
	case domain.FormatImage:
		doc, err = e.withFallback(ctx, file, e.ex.Layout, e.ex.ImageFallback)
	case domain.FormatDOCX:
		doc, err = e.extractWord(ctx, file)
	case domain.FormatText:
		doc, err = e.call(ctx, e.ex.Text, file, domain.ExtractorNative)
	case domain.FormatAudio:
		if e.ex.Transcription == nil {
			return nil, domain.NewExtractionError(file.Path, "no transcription service configured",
				domain.ErrTranscriptionUnavailable)
		}
		doc, err = e.call(ctx, e.ex.Transcription, file, domain.ExtractorTranscription)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, file.Path)
	}
	if err != nil {
		return nil, err
	}

	if !doc.IsRTLHint {
		doc.IsRTLHint = domain.DetectRTL(doc.Text())
	}
	return doc, nil
}

// withFallback runs primary and, when its result is unusable, fallback once.
func (e *ContentExtractor) withFallback(
	ctx context.Context,
	file *domain.SourceFile,
	primary, fallback driven.Extractor,
) (*domain.ExtractedDocument, error) {
	var (
		primaryDoc *domain.ExtractedDocument
		primaryErr error
	)

	if primary != nil {
		primaryDoc, primaryErr = e.call(ctx, primary, file, domain.ExtractorPrimary)
		reason := e.fallbackReason(primaryDoc, primaryErr)
		if reason == "" {
			return primaryDoc, nil
		}
		logger.Warn("%s: primary extraction %s, trying fallback", file.Name, reason)
	}

	if fallback == nil {
		if primaryErr != nil {
			return nil, primaryErr
		}
		if primaryDoc != nil {
			return primaryDoc, nil
		}
		return nil, domain.NewExtractionError(file.Path, "no extractor available", nil)
	}

	doc, err := e.call(ctx, fallback, file, domain.ExtractorFallback)
	if err != nil {
		// A low-confidence primary result beats nothing.
		if primaryDoc != nil && !primaryDoc.IsBlank() {
			logger.Warn("%s: fallback failed, keeping primary result: %v", file.Name, err)
			return primaryDoc, nil
		}
		return nil, domain.NewExtractionError(file.Path, "primary and fallback failed",
			errors.Join(primaryErr, err))
	}
	return doc, nil
}

// fallbackReason describes why a primary result is unusable, or returns "".
func (e *ContentExtractor) fallbackReason(doc *domain.ExtractedDocument, err error) string {
	switch {
	case err != nil:
		return fmt.Sprintf("failed (%v)", err)
	case doc.IsBlank():
		return "returned no text"
	case doc.Confidence != nil && *doc.Confidence < e.minConfidence:
		return fmt.Sprintf("confidence %.2f below %.2f", *doc.Confidence, e.minConfidence)
	default:
		return ""
	}
}

func (e *ContentExtractor) extractWord(ctx context.Context, file *domain.SourceFile) (*domain.ExtractedDocument, error) {
	if file.IsLegacyDoc() || e.ex.DOCX == nil {
		return e.call(ctx, e.ex.LegacyDOC, file, domain.ExtractorFallback)
	}

	doc, err := e.call(ctx, e.ex.DOCX, file, domain.ExtractorNative)
	if err == nil || e.ex.LegacyDOC == nil {
		return doc, err
	}

	logger.Warn("%s: docx parse failed, trying %s: %v", file.Name, e.ex.LegacyDOC.Name(), err)
	fallbackDoc, fallbackErr := e.call(ctx, e.ex.LegacyDOC, file, domain.ExtractorFallback)
	if fallbackErr != nil {
		return nil, domain.NewExtractionError(file.Path, "docx parser and fallback failed",
			errors.Join(err, fallbackErr))
	}
	return fallbackDoc, nil
}

type extractResult struct {
	doc *domain.ExtractedDocument
	err error
}

// extractWithin returns when ex finishes or ctx ends, whichever is first.
// In-process parsers do not watch ctx, so a hung one is abandoned: its
// goroutine runs to completion in the background and the result is dropped.
func extractWithin(
	ctx context.Context,
	ex driven.Extractor,
	file *domain.SourceFile,
) (*domain.ExtractedDocument, error) {
	done := make(chan extractResult, 1)
	go func() {
		doc, err := ex.Extract(ctx, file)
		done <- extractResult{doc: doc, err: err}
	}()

	select {
	case r := <-done:
		return r.doc, r.err
	case <-ctx.Done():
		logger.Warn("%s: %s still running after %v, abandoned", file.Name, ex.Name(), ctx.Err())
		return nil, ctx.Err()
	}
}

// call runs one collaborator under the per-call timeout.
func (e *ContentExtractor) call(
	ctx context.Context,
	ex driven.Extractor,
	file *domain.SourceFile,
	kind domain.ExtractorKind,
) (*domain.ExtractedDocument, error) {
	if ex == nil {
		return nil, domain.NewExtractionError(file.Path, fmt.Sprintf("no %s extractor for %s", kind, file.Format), nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	doc, err := extractWithin(callCtx, ex, file)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, domain.NewExtractionError(file.Path, ex.Name()+" timed out", err)
		}
		var extErr *domain.ExtractionError
		if errors.As(err, &extErr) {
			return nil, err
		}
		return nil, domain.NewExtractionError(file.Path, ex.Name(), err)
	}
	if doc == nil {
		doc = &domain.ExtractedDocument{}
	}
	doc.ExtractorUsed = kind
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any)
	}
	doc.Metadata["extractor_name"] = ex.Name()

	logger.Debug("%s: %s extracted %d blocks in %s", file.Name, ex.Name(), len(doc.Blocks), time.Since(start))
	return doc, nil
}
