// Package chunker splits extracted documents into fixed-size overlapping chunks.
package chunker

import (
	"slices"
	"strconv"
	"unicode"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// chunkNamespace scopes name-based chunk IDs. Changing it re-keys every stored chunk.
var chunkNamespace = uuid.MustParse("6f1c2f3e-8a4b-5d7e-9c10-2b3a4d5e6f70")

// Metadata keys written on each chunk.
const (
	MetaPages     = "pages"
	MetaStartTime = "start_time"
	MetaEndTime   = "end_time"
	MetaDirection = "direction"
	MetaExtractor = "extractor"
)

// ChunkID returns the deterministic ID of the chunk at position in filename.
// It is a valid UUID, so vector stores that require UUID point IDs accept it.
func ChunkID(filename string, position int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(filename+"#"+strconv.Itoa(position))).String()
}

// Processor splits document text into fixed-size chunks.
// Sizes are counted in characters (runes), never bytes.
type Processor struct {
	chunkSize int
	overlap   int
	boundary  domain.ChunkBoundary
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithBoundary selects exact character cuts or whitespace-aligned cuts.
func WithBoundary(b domain.ChunkBoundary) Option {
	return func(p *Processor) {
		if b.IsValid() {
			p.boundary = b
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		boundary:  domain.ChunkBoundaryChar,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Overlap must leave room for progress.
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Chunk splits doc into ordered chunks owned by filename.
//
// Consecutive chunks share exactly Overlap characters: chunk i+1 starts
// Overlap characters before chunk i ends. Chunking stops at the first chunk
// that reaches the end of the text. Text is never reordered, including
// right-to-left scripts; those chunks are tagged with direction "rtl".
func (p *Processor) Chunk(doc *domain.ExtractedDocument, filename string) ([]domain.Chunk, error) {
	if doc.IsBlank() {
		return nil, domain.ErrEmptyDocument
	}

	runes := []rune(doc.Text())
	total := len(runes)
	spans := blockSpans(doc.Blocks)
	rtl := doc.IsRTLHint

	step := p.chunkSize - p.overlap
	chunks := make([]domain.Chunk, 0, total/step+1)

	start := 0
	for position := 0; ; position++ {
		end := min(start+p.chunkSize, total)
		if p.boundary == domain.ChunkBoundaryWord && end < total {
			end = p.snapToWhitespace(runes, start, end)
		}

		r := domain.Range{Start: start, End: end}
		chunks = append(chunks, domain.Chunk{
			ID:             ChunkID(filename, position),
			Text:           string(runes[start:end]),
			SourceFilename: filename,
			Position:       position,
			Range:          r,
			Metadata:       citation(doc, spans, r, rtl),
		})

		if end >= total {
			break
		}
		start = end - p.overlap
	}

	return chunks, nil
}

// snapToWhitespace moves a mid-word cut back to just after the nearest
// preceding whitespace, as long as the next chunk still advances.
func (p *Processor) snapToWhitespace(runes []rune, start, end int) int {
	if unicode.IsSpace(runes[end-1]) || unicode.IsSpace(runes[end]) {
		return end
	}
	for j := end - 1; j >= start+p.overlap; j-- {
		if unicode.IsSpace(runes[j]) {
			return j + 1
		}
	}
	return end
}

// blockSpans returns the rune range of every block within doc.Text().
func blockSpans(blocks []domain.TextBlock) []domain.Range {
	spans := make([]domain.Range, len(blocks))
	offset := 0
	sep := len([]rune(domain.BlockSeparator))
	for i := range blocks {
		n := len([]rune(blocks[i].Text))
		spans[i] = domain.Range{Start: offset, End: offset + n}
		offset += n + sep
	}
	return spans
}

// citation builds the metadata that lets a hit be traced back to its
// pages or, for audio, its time span.
func citation(doc *domain.ExtractedDocument, spans []domain.Range, r domain.Range, rtl bool) map[string]any {
	meta := map[string]any{}
	if doc.ExtractorUsed != "" {
		meta[MetaExtractor] = string(doc.ExtractorUsed)
	}
	if rtl {
		meta[MetaDirection] = "rtl"
	}

	var pages []int
	startTime, endTime := -1.0, -1.0
	for i, b := range doc.Blocks {
		s := spans[i]
		if s.Start >= r.End || s.End <= r.Start {
			continue
		}
		if b.Page > 0 && !slices.Contains(pages, b.Page) {
			pages = append(pages, b.Page)
		}
		if b.End > b.Start {
			if startTime < 0 || b.Start < startTime {
				startTime = b.Start
			}
			if b.End > endTime {
				endTime = b.End
			}
		}
	}
	if len(pages) > 0 {
		slices.Sort(pages)
		meta[MetaPages] = pages
	}
	if startTime >= 0 {
		meta[MetaStartTime] = startTime
		meta[MetaEndTime] = endTime
	}
	return meta
}
