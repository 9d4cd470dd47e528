package layout

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

func sourceFile(t *testing.T, name, content string) *domain.SourceFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return &domain.SourceFile{Path: path, Name: name, Format: domain.FormatImage}
}

// uploadServer checks the upload and answers with body.
func uploadServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/extract" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if header.Filename != "scan.png" || string(data) != "PNGDATA" {
			http.Error(w, "unexpected upload", http.StatusBadRequest)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtract_Elements(t *testing.T) {
	srv := uploadServer(t, http.StatusOK, `{
		"elements": [
			{"category": "Text", "bbox": [10, 20, 300, 60], "text": "כותרת", "page": 1},
			{"category": "Table", "bbox": [10, 80, 300, 200], "text": "a | b", "page": 1},
			{"category": "Text", "text": "  ", "page": 2},
			{"text": "second page", "page": 2}
		],
		"confidence": 0.91
	}`)

	doc, err := New(srv.URL+"/").Extract(context.Background(), sourceFile(t, "scan.png", "PNGDATA"))

	require.NoError(t, err)
	require.Len(t, doc.Blocks, 3)
	assert.Equal(t, domain.BoundingBox{X0: 10, Y0: 20, X1: 300, Y1: 60}, *doc.Blocks[0].Region)
	assert.Equal(t, domain.CategoryTable, doc.Blocks[1].Category)
	assert.Equal(t, domain.CategoryText, doc.Blocks[2].Category)
	assert.Nil(t, doc.Blocks[2].Region)
	assert.Equal(t, 2, doc.Blocks[2].Page)
	require.NotNil(t, doc.Confidence)
	assert.InDelta(t, 0.91, *doc.Confidence, 1e-9)
	assert.Equal(t, domain.ExtractorPrimary, doc.ExtractorUsed)
	assert.Equal(t, 4, doc.Metadata["elements"])
}

func TestExtract_FlatText(t *testing.T) {
	srv := uploadServer(t, http.StatusOK, `{"elements": [], "text": "just text"}`)

	doc, err := New(srv.URL).Extract(context.Background(), sourceFile(t, "scan.png", "PNGDATA"))

	require.NoError(t, err)
	assert.Equal(t, "just text", doc.Text())
	assert.Nil(t, doc.Confidence)
}

func TestExtract_Empty(t *testing.T) {
	srv := uploadServer(t, http.StatusOK, `{"elements": [], "text": ""}`)

	doc, err := New(srv.URL).Extract(context.Background(), sourceFile(t, "scan.png", "PNGDATA"))

	require.NoError(t, err)
	assert.True(t, doc.IsBlank())
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, "model crashed"},
		{"bad json", http.StatusOK, "{"},
		{"error field", http.StatusOK, `{"error": "out of memory"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := uploadServer(t, tc.status, tc.body)
			_, err := New(srv.URL).Extract(context.Background(), sourceFile(t, "scan.png", "PNGDATA"))
			assert.ErrorIs(t, err, domain.ErrExtraction)
		})
	}
}

func TestExtract_Unreachable(t *testing.T) {
	_, err := New("http://127.0.0.1:1").Extract(context.Background(), sourceFile(t, "scan.png", "PNGDATA"))
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestExtract_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(srv.URL).Extract(ctx, sourceFile(t, "scan.png", "PNGDATA"))
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := New("http://unused").Extract(context.Background(), &domain.SourceFile{Path: "/nonexistent.png"})
	assert.ErrorIs(t, err, domain.ErrExtraction)
}
