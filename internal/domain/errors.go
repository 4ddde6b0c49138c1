package domain

import "errors"

var (
	// ErrEmptyInput signals empty or whitespace-only embedding input,
	// rejected locally without calling the provider.
	ErrEmptyInput = errors.New("empty embedding input")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingUnavailable signals an embedding provider failure.
	// All transport-level errors collapse into it so callers have a
	// single fallback branch.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrEngine signals a search engine execution failure. It is the only
	// error a search request surfaces to its caller.
	ErrEngine = errors.New("search engine error")
)
