// Package services implements the driving port interfaces.
// Services contain the ingestion and retrieval logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no CGO; all I/O goes through ports.
package services
