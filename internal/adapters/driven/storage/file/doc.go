// Package file provides a JSON-file implementation of driven.FingerprintStore.
//
// The registry is a single document:
//
//	{"version": 1, "updated_at": "...", "files": {"a.txt": {...}}}
//
// Every write replaces the whole file atomically: the new content is written
// to a temporary file in the same directory, synced, and renamed over the old
// one. A reader therefore sees either the previous registry or the new one.
//
// A registry that cannot be parsed is moved aside as
// <name>.corrupt-<timestamp> and reported as domain.ErrRegistryCorruption;
// the store then continues from an empty registry.
package file
