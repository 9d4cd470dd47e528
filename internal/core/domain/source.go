package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Format identifies how a source file is turned into text.
type Format string

// Supported formats. Each has exactly one extraction handler.
const (
	FormatPDF   Format = "pdf"
	FormatDOCX  Format = "docx"
	FormatText  Format = "txt"
	FormatImage Format = "image"
	FormatAudio Format = "audio"
)

// extensionFormats maps lower-case file extensions to their format.
var extensionFormats = map[string]Format{
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".doc":  FormatDOCX,
	".txt":  FormatText,
	".png":  FormatImage,
	".jpg":  FormatImage,
	".jpeg": FormatImage,
	".mp3":  FormatAudio,
	".wav":  FormatAudio,
	".m4a":  FormatAudio,
	".flac": FormatAudio,
}

// FormatForPath returns the format implied by the file extension.
// The second return value is false for unsupported extensions.
func FormatForPath(path string) (Format, bool) {
	f, ok := extensionFormats[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// SupportedExtensions returns every extension the pipeline accepts.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionFormats))
	for ext := range extensionFormats {
		exts = append(exts, ext)
	}
	return exts
}

// IsValid returns true if the format is recognised.
func (f Format) IsValid() bool {
	switch f {
	case FormatPDF, FormatDOCX, FormatText, FormatImage, FormatAudio:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (f Format) String() string {
	return string(f)
}

// SourceFile is a file present in the watch directory.
type SourceFile struct {
	// Path is the absolute path on disk.
	Path string

	// Name is the registry key: the path relative to the watch directory,
	// using forward slashes.
	Name string

	// SizeBytes is the file size at discovery time.
	SizeBytes int64

	// ModifiedAt is the modification time at discovery time.
	ModifiedAt time.Time

	// ContentHash is the hex SHA-256 digest of the contents.
	// Empty until computed; see FileRegistry.
	ContentHash string

	// Format selects the extraction handler.
	Format Format

	// Origin describes where the file came from (e.g. "watch", "upload").
	Origin string
}

// IsLegacyDoc reports whether the file is an old binary Word document.
func (f *SourceFile) IsLegacyDoc() bool {
	return strings.EqualFold(filepath.Ext(f.Path), ".doc")
}

// Fingerprint builds the registry record for this file as of indexedAt.
func (f *SourceFile) Fingerprint(indexedAt time.Time) FileFingerprint {
	origin := f.Origin
	if origin == "" {
		origin = OriginWatch
	}
	return FileFingerprint{
		Filename:     f.Name,
		ContentHash:  f.ContentHash,
		SizeBytes:    f.SizeBytes,
		ModifiedAt:   f.ModifiedAt.UTC(),
		IndexedAt:    indexedAt.UTC(),
		SourceOrigin: origin,
	}
}

// Known source origins.
const (
	OriginWatch  = "watch"
	OriginUpload = "upload"
)

// FileFingerprint is the registry's proof that a file's current content
// has been indexed. There is at most one per filename.
type FileFingerprint struct {
	Filename     string    `json:"filename"`
	ContentHash  string    `json:"content_hash"`
	SizeBytes    int64     `json:"size_bytes"`
	ModifiedAt   time.Time `json:"modified_at"`
	IndexedAt    time.Time `json:"indexed_at"`
	SourceOrigin string    `json:"source_origin"`

	// ChunkCount is how many chunks were upserted for this file.
	ChunkCount int `json:"chunk_count"`

	// Extractor records which extraction path produced the text.
	Extractor ExtractorKind `json:"extractor,omitempty"`
}

// MatchesMetadata reports whether size and modification time both match.
func (fp FileFingerprint) MatchesMetadata(f *SourceFile) bool {
	return fp.SizeBytes == f.SizeBytes && fp.ModifiedAt.Equal(f.ModifiedAt)
}
