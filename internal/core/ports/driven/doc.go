// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Extractor: Turns one source file into an ExtractedDocument
//   - EmbeddingService: Generates vector embeddings for chunk text and queries
//   - VectorStore: Chunk vector persistence and similarity search
//   - FingerprintStore: Durable File Registry records
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ScanHistoryStore: Keeps past scan results. Without it only the last result is kept in memory.
//   - CommandRunner: Runs external OCR/conversion tools. Without it the command-backed
//     fallbacks report themselves unavailable.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or extractor package
package driven
