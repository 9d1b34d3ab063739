package domain

import "errors"

var (
	// ErrNotFound is returned when a user, session or catalog item is absent.
	ErrNotFound = errors.New("not found")

	// ErrProvider wraps failures of the embedding or language model provider.
	ErrProvider = errors.New("provider failure")

	// ErrDimensionMismatch is returned when an embedding does not match the
	// dimensionality of its collection.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrModelChanged is returned when stored vectors were produced by another
	// embedding model and must be rebuilt before indexing more.
	ErrModelChanged = errors.New("embedding model changed")

	// ErrInvalidInput is returned for empty messages and unknown kinds.
	ErrInvalidInput = errors.New("invalid input")
)
