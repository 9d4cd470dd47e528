package chunker

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

func textDoc(text string) *domain.ExtractedDocument {
	return &domain.ExtractedDocument{
		Blocks:        []domain.TextBlock{{Text: text}},
		ExtractorUsed: domain.ExtractorNative,
	}
}

// expectedCount is ceil((L-O)/(S-O)), and at least one chunk.
func expectedCount(l, s, o int) int {
	if l <= o {
		return 1
	}
	n := (l - o + (s - o) - 1) / (s - o)
	if n < 1 {
		return 1
	}
	return n
}

// reconstruct drops the first o runes of every chunk after the first.
func reconstruct(chunks []domain.Chunk, o int) string {
	var b strings.Builder
	for i, c := range chunks {
		r := []rune(c.Text)
		if i > 0 {
			r = r[o:]
		}
		b.WriteString(string(r))
	}
	return b.String()
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.ChunkSize() != DefaultChunkSize || p.Overlap() != DefaultChunkOverlap {
			t.Errorf("expected %d/%d, got %d/%d", DefaultChunkSize, DefaultChunkOverlap, p.ChunkSize(), p.Overlap())
		}
		if p.boundary != domain.ChunkBoundaryChar {
			t.Errorf("expected char boundary, got %s", p.boundary)
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		if p.Overlap() >= p.ChunkSize() {
			t.Error("overlap should be reduced when it exceeds chunk size")
		}
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1), WithBoundary("sentence"))
		if p.ChunkSize() != DefaultChunkSize || p.Overlap() != DefaultChunkOverlap {
			t.Errorf("expected defaults, got %d/%d", p.ChunkSize(), p.Overlap())
		}
		if p.boundary != domain.ChunkBoundaryChar {
			t.Errorf("expected char boundary, got %s", p.boundary)
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	if New().Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", New().Name())
	}
}

func TestChunk_EmptyDocument(t *testing.T) {
	p := New()
	for _, doc := range []*domain.ExtractedDocument{
		{},
		textDoc(""),
		textDoc("  \n\t "),
	} {
		chunks, err := p.Chunk(doc, "empty.txt")
		if !errors.Is(err, domain.ErrEmptyDocument) {
			t.Errorf("expected ErrEmptyDocument, got %v", err)
		}
		if chunks != nil {
			t.Errorf("expected no chunks, got %d", len(chunks))
		}
	}
}

func TestChunk_ThreeChunkFile(t *testing.T) {
	// 45 characters with S=20, O=5: windows [0,20) [15,35) [30,45).
	text := "The quick brown fox jumps over the lazy dog!!"
	if utf8.RuneCountInString(text) != 45 {
		t.Fatalf("fixture has %d runes", utf8.RuneCountInString(text))
	}
	p := New(WithChunkSize(20), WithOverlap(5))

	chunks, err := p.Chunk(textDoc(text), "a.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	want := []domain.Range{{Start: 0, End: 20}, {Start: 15, End: 35}, {Start: 30, End: 45}}
	for i, c := range chunks {
		if c.Range != want[i] {
			t.Errorf("chunk %d: expected range %v, got %v", i, want[i], c.Range)
		}
		if c.Position != i {
			t.Errorf("chunk %d: expected position %d, got %d", i, i, c.Position)
		}
		if c.SourceFilename != "a.txt" {
			t.Errorf("chunk %d: expected filename a.txt, got %s", i, c.SourceFilename)
		}
		if c.ID != ChunkID("a.txt", i) {
			t.Errorf("chunk %d: unexpected ID %s", i, c.ID)
		}
	}
	if reconstruct(chunks, 5) != text {
		t.Error("reconstruction does not match the original text")
	}
}

func TestChunk_BoundaryLawAndRoundTrip(t *testing.T) {
	cases := []struct{ l, s, o int }{
		{1, 10, 0},
		{10, 10, 0},
		{11, 10, 0},
		{100, 50, 0},
		{20, 10, 3},
		{21, 10, 3},
		{3, 10, 5},
		{5, 10, 5},
		{6, 10, 5},
		{999, 100, 99},
		{1000, 1000, 200},
		{2500, 1000, 200},
	}

	for _, tc := range cases {
		text := strings.Repeat("abcdefghij", tc.l/10+1)[:tc.l]
		p := New(WithChunkSize(tc.s), WithOverlap(tc.o))

		chunks, err := p.Chunk(textDoc(text), "f.txt")
		if err != nil {
			t.Fatalf("L=%d S=%d O=%d: unexpected error: %v", tc.l, tc.s, tc.o, err)
		}
		if got, want := len(chunks), expectedCount(tc.l, tc.s, tc.o); got != want {
			t.Errorf("L=%d S=%d O=%d: expected %d chunks, got %d", tc.l, tc.s, tc.o, want, got)
		}
		for i, c := range chunks {
			if n := utf8.RuneCountInString(c.Text); n > tc.s {
				t.Errorf("chunk %d longer than chunk size: %d", i, n)
			}
			if i > 0 && c.Range.Start != chunks[i-1].Range.End-tc.o {
				t.Errorf("chunk %d does not overlap previous by %d", i, tc.o)
			}
		}
		if got := reconstruct(chunks, tc.o); got != text {
			t.Errorf("L=%d S=%d O=%d: round trip mismatch", tc.l, tc.s, tc.o)
		}
	}
}

func TestChunk_CountsRunesNotBytes(t *testing.T) {
	text := strings.Repeat("שלום ", 10) // 50 runes, 90 bytes
	p := New(WithChunkSize(20), WithOverlap(0))

	chunks, err := p.Chunk(textDoc(text), "he.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if !utf8.ValidString(chunks[0].Text) {
		t.Error("chunk split a multi-byte character")
	}
}

func TestChunk_RTLIsTaggedNotReordered(t *testing.T) {
	text := "שלום עולם זה מסמך בעברית"
	doc := textDoc(text)
	doc.IsRTLHint = true

	chunks, err := New(WithChunkSize(100), WithOverlap(0)).Chunk(doc, "he.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunks[0].Text != text {
		t.Errorf("text was altered: %q", chunks[0].Text)
	}
	if chunks[0].Metadata[MetaDirection] != "rtl" {
		t.Errorf("expected direction rtl, got %v", chunks[0].Metadata[MetaDirection])
	}
}

func TestChunk_WordBoundary(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta eta theta"
	p := New(WithChunkSize(12), WithOverlap(2), WithBoundary(domain.ChunkBoundaryWord))

	chunks, err := p.Chunk(textDoc(text), "w.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c.Text); n > 12 {
			t.Errorf("chunk %d longer than chunk size: %d", i, n)
		}
		if i > 0 && c.Range.Start != chunks[i-1].Range.End-2 {
			t.Errorf("chunk %d does not overlap previous by 2", i)
		}
	}
	if chunks[0].Text != "alpha beta " {
		t.Errorf("expected first cut after a space, got %q", chunks[0].Text)
	}
	if reconstruct(chunks, 2) != text {
		t.Error("round trip mismatch in word mode")
	}
}

func TestChunk_WordBoundaryWithoutWhitespace(t *testing.T) {
	text := strings.Repeat("x", 30)
	p := New(WithChunkSize(10), WithOverlap(0), WithBoundary(domain.ChunkBoundaryWord))

	chunks, err := p.Chunk(textDoc(text), "x.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Errorf("expected hard cuts when no whitespace exists, got %d chunks", len(chunks))
	}
}

func TestChunk_PageCitations(t *testing.T) {
	doc := &domain.ExtractedDocument{
		Blocks: []domain.TextBlock{
			{Text: strings.Repeat("a", 10), Page: 1},
			{Text: strings.Repeat("b", 10), Page: 2},
			{Text: strings.Repeat("c", 10), Page: 3},
		},
		ExtractorUsed: domain.ExtractorPrimary,
	}
	// Text is 32 runes: blocks at [0,10) [11,21) [22,32).
	chunks, err := New(WithChunkSize(15), WithOverlap(0)).Chunk(doc, "p.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pages := func(c domain.Chunk) []int {
		v, _ := c.Metadata[MetaPages].([]int)
		return v
	}
	if got := pages(chunks[0]); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("chunk 0: expected pages [1 2], got %v", got)
	}
	if got := pages(chunks[2]); len(got) != 1 || got[0] != 3 {
		t.Errorf("chunk 2: expected pages [3], got %v", got)
	}
	if chunks[0].Metadata[MetaExtractor] != "primary" {
		t.Errorf("expected extractor metadata, got %v", chunks[0].Metadata[MetaExtractor])
	}
}

func TestChunk_AudioTiming(t *testing.T) {
	doc := &domain.ExtractedDocument{
		Blocks: []domain.TextBlock{
			{Text: "hello there", Start: 0, End: 1.5, Category: domain.CategorySpeech},
			{Text: "general kenobi", Start: 1.5, End: 3.25, Category: domain.CategorySpeech},
		},
		ExtractorUsed: domain.ExtractorTranscription,
	}

	chunks, err := New(WithChunkSize(100), WithOverlap(0)).Chunk(doc, "talk.mp3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunks[0].Metadata[MetaStartTime] != 0.0 || chunks[0].Metadata[MetaEndTime] != 3.25 {
		t.Errorf("unexpected timing %v-%v", chunks[0].Metadata[MetaStartTime], chunks[0].Metadata[MetaEndTime])
	}
}

func TestChunkID(t *testing.T) {
	a := ChunkID("a.txt", 0)
	if a != ChunkID("a.txt", 0) {
		t.Error("chunk IDs must be deterministic")
	}
	if a == ChunkID("a.txt", 1) || a == ChunkID("b.txt", 0) {
		t.Error("chunk IDs must differ by filename and position")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("chunk ID is not a UUID: %v", err)
	}
}
