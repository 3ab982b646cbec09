package core

import "errors"

// Error kinds for the storage and extraction paths. Read paths that are
// expected to sometimes miss return ErrNotFound rather than a synthetic
// empty record; corruption is always surfaced so the caller can decide
// between skipping (bulk scans) and aborting (single-record reads).
var (
	// ErrNotFound means a lookup by id or persona matched nothing.
	ErrNotFound = errors.New("conversation not found")

	// ErrCorrupted means a stored payload failed to parse as the expected
	// structure. It is never silently treated as empty.
	ErrCorrupted = errors.New("stored conversation is corrupted")
)
