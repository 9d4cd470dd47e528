// Package domain defines the core business entities for ragindex.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceFile: A file discovered in the watch directory
//   - FileFingerprint: The registry record proving a file was indexed
//   - ExtractedDocument: Text blocks produced by content extraction
//   - Chunk: A retrievable unit of text with its own embedding
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
