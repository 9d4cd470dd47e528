// Package layout calls a layout-aware OCR/vision service over HTTP.
//
// The service accepts a multipart upload at POST {base}/extract and answers
//
//	{"elements":[{"category":"Text","bbox":[x0,y0,x1,y1],"text":"...","page":1}],
//	 "confidence":0.93,"text":"..."}
//
// Elements arrive in reading order. When the service returns no elements
// the flat text field becomes a single block.
package layout

import (
	"bytes"
	"context"
	"encoding/json"
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
const Name = "layout"

// maxErrorBody caps how much of an error response is reported.
const maxErrorBody = 512

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor posts files to the layout service.
type Extractor struct {
	client  *http.Client
	baseURL string
}

type element struct {
	Category string    `json:"category"`
	BBox     []float64 `json:"bbox"`
	Text     string    `json:"text"`
	Page     int       `json:"page"`
}

type extractResponse struct {
	Elements   []element `json:"elements"`
	Confidence *float64  `json:"confidence"`
	Text       string    `json:"text"`
	Error      string    `json:"error,omitempty"`
}

// New creates a layout extractor for the service at baseURL.
// Timeouts come from the caller's context.
func New(baseURL string) *Extractor {
	return &Extractor{
		client:  &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return Name
}

// Extract uploads file and converts the returned elements to blocks.
func (e *Extractor) Extract(ctx context.Context, file *domain.SourceFile) (*domain.ExtractedDocument, error) {
	if file == nil {
		return nil, domain.ErrInvalidInput
	}

	body, contentType, err := multipartFile(file.Path)
	if err != nil {
		return nil, domain.NewExtractionError(file.Path, "preparing upload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/extract", body)
	if err != nil {
		return nil, domain.NewExtractionError(file.Path, "creating request", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, domain.NewExtractionError(file.Path, "layout service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, domain.NewExtractionError(file.Path,
			fmt.Sprintf("layout service returned status %d", resp.StatusCode),
			fmt.Errorf("%s", strings.TrimSpace(string(msg))))
	}

	var result extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, domain.NewExtractionError(file.Path, "decoding layout response", err)
	}
	if result.Error != "" {
		return nil, domain.NewExtractionError(file.Path, "layout service error", fmt.Errorf("%s", result.Error))
	}

	doc := extractors.NewDocument(Name, domain.ExtractorPrimary, toBlocks(result))
	doc.Confidence = result.Confidence
	doc.Metadata["elements"] = len(result.Elements)
	return doc, nil
}

func toBlocks(result extractResponse) []domain.TextBlock {
	if len(result.Elements) == 0 {
		if strings.TrimSpace(result.Text) == "" {
			return nil
		}
		return []domain.TextBlock{{Text: result.Text, Category: domain.CategoryText}}
	}

	blocks := make([]domain.TextBlock, 0, len(result.Elements))
	for _, el := range result.Elements {
		if strings.TrimSpace(el.Text) == "" {
			continue
		}
		category := el.Category
		if category == "" {
			category = domain.CategoryText
		}
		block := domain.TextBlock{
			Text:     el.Text,
			Page:     el.Page,
			Category: category,
		}
		if len(el.BBox) == 4 {
			block.Region = &domain.BoundingBox{X0: el.BBox[0], Y0: el.BBox[1], X1: el.BBox[2], Y1: el.BBox[3]}
		}
		blocks = append(blocks, block)
	}
	return blocks
}

// multipartFile builds a multipart body with the file under the "file" field.
func multipartFile(path string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
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
