// Package transcription turns audio into timed text via a speech-to-text service.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/extractors"
)

// Name identifies this extractor.
const Name = "transcription"

// DefaultLanguage is the spoken language hint sent with each upload.
const DefaultLanguage = "he"

const maxErrorBody = 512

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor uploads audio to POST {base}/transcribe.
type Extractor struct {
	client   *http.Client
	baseURL  string
	language string
}

type segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type transcribeResponse struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []segment `json:"segments"`
	Error    string    `json:"error,omitempty"`
}

// New creates a transcription extractor. An empty language uses DefaultLanguage.
func New(baseURL, language string) *Extractor {
	if language == "" {
		language = DefaultLanguage
	}
	return &Extractor{
		client:   &http.Client{},
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
	}
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return Name
}

// Extract returns one Speech block per segment with its timing.
// Transport failures wrap domain.ErrTranscriptionUnavailable.
func (e *Extractor) Extract(ctx context.Context, file *domain.SourceFile) (*domain.ExtractedDocument, error) {
	if file == nil {
		return nil, domain.ErrInvalidInput
	}

	body, contentType, err := e.upload(file.Path)
	if err != nil {
		return nil, domain.NewExtractionError(file.Path, "preparing upload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/transcribe", body)
	if err != nil {
		return nil, domain.NewExtractionError(file.Path, "creating request", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, domain.NewExtractionError(file.Path, "transcription service unreachable",
			errors.Join(domain.ErrTranscriptionUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode >= http.StatusInternalServerError {
			err = errors.Join(domain.ErrTranscriptionUnavailable, err)
		}
		return nil, domain.NewExtractionError(file.Path, "transcription failed", err)
	}

	var result transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, domain.NewExtractionError(file.Path, "decoding transcription", err)
	}
	if result.Error != "" {
		return nil, domain.NewExtractionError(file.Path, "transcription failed", errors.New(result.Error))
	}

	doc := extractors.NewDocument(Name, domain.ExtractorTranscription, toBlocks(result))
	language := result.Language
	if language == "" {
		language = e.language
	}
	doc.Metadata["language"] = language
	doc.Metadata["segments"] = len(result.Segments)
	if n := len(result.Segments); n > 0 {
		doc.Metadata["duration_seconds"] = result.Segments[n-1].End
	}
	return doc, nil
}

func toBlocks(result transcribeResponse) []domain.TextBlock {
	if len(result.Segments) == 0 {
		if strings.TrimSpace(result.Text) == "" {
			return nil
		}
		return []domain.TextBlock{{Text: strings.TrimSpace(result.Text), Category: domain.CategorySpeech}}
	}

	blocks := make([]domain.TextBlock, 0, len(result.Segments))
	for _, s := range result.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		blocks = append(blocks, domain.TextBlock{
			Text:     text,
			Category: domain.CategorySpeech,
			Start:    s.Start,
			End:      s.End,
		})
	}
	return blocks
}

// upload builds a multipart body with the audio file and language hint.
func (e *Extractor) upload(path string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("language", e.language); err != nil {
		return nil, "", err
	}
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
