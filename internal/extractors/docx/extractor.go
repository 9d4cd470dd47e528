// Package docx extracts text from Office Open XML word documents.
package docx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/extractors"
)

// Name identifies this extractor.
const Name = "docx"

const (
	documentPart = "word/document.xml"
	corePart     = "docProps/core.xml"
)

// errNoDocumentPart is returned for archives without word/document.xml.
var errNoDocumentPart = errors.New("missing " + documentPart)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor reads paragraphs from word/document.xml.
type Extractor struct{}

// New creates a DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return Name
}

// Extract returns one block per non-empty paragraph, in document order.
// Table cell paragraphs are included.
func (e *Extractor) Extract(_ context.Context, file *domain.SourceFile) (*domain.ExtractedDocument, error) {
	if file == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.OpenReader(file.Path)
	if err != nil {
		return nil, domain.NewExtractionError(file.Path, "not a zip archive", err)
	}
	defer reader.Close()

	content, err := readPart(&reader.Reader, documentPart)
	if err != nil {
		return nil, domain.NewExtractionError(file.Path, "reading document part", err)
	}

	paragraphs, err := parseDocumentXML(content)
	if err != nil {
		return nil, domain.NewExtractionError(file.Path, "parsing document XML", err)
	}

	blocks := make([]domain.TextBlock, 0, len(paragraphs))
	for _, p := range paragraphs {
		blocks = append(blocks, domain.TextBlock{Text: p, Category: domain.CategoryText})
	}

	doc := extractors.NewDocument(Name, domain.ExtractorNative, blocks)
	doc.Metadata["title"] = extractTitle(&reader.Reader, file.Path)
	doc.Metadata["paragraphs"] = len(blocks)
	return doc, nil
}

// readPart returns the contents of the named archive member.
func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, f := range reader.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, errNoDocumentPart
}

// parseDocumentXML walks the document tokens and collects paragraph text.
// Streaming keeps table and nested content in reading order.
func parseDocumentXML(content []byte) ([]string, error) {
	dec := xml.NewDecoder(strings.NewReader(string(content)))

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding token: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br", "cr":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return paragraphs, nil
}

// coreXML represents the structure of docProps/core.xml.
type coreXML struct {
	Title string `xml:"title"`
}

// extractTitle reads the title from docProps/core.xml or falls back to the file name.
func extractTitle(reader *zip.Reader, path string) string {
	content, err := readPart(reader, corePart)
	if err == nil {
		var core coreXML
		if err := xml.Unmarshal(content, &core); err == nil && strings.TrimSpace(core.Title) != "" {
			return strings.TrimSpace(core.Title)
		}
	}
	return extractors.Title(path)
}
