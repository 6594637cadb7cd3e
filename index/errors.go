package index

import (
	"errors"

	"github.com/poiesic/rentmatch/core"
)

var (
	// ErrSourceRequired is returned when Build is called without an embedding source.
	ErrSourceRequired = errors.New("embedding source is required")

	// ErrInvalidK is returned when a query asks for fewer than one hit.
	ErrInvalidK = errors.New("k must be positive")

	// ErrSnapshotInvalid is returned when a saved index cannot be restored.
	ErrSnapshotInvalid = errors.New("index snapshot is invalid")

	// ErrModelMismatch is returned when a query embedding comes from a
	// different model or dimension than the indexed vectors.
	ErrModelMismatch = core.ErrModelMismatch
)
