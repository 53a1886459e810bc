package model

import "errors"

// Sentinel errors of the retrieval core. They are wrapped with
// operation context on the way up and matched with errors.Is.
var (
	// ErrMalformedDocument marks a document with no extractable text.
	// Batch ingestion treats it as recoverable: log, skip, continue.
	ErrMalformedDocument = errors.New("document has no extractable text")

	// ErrEmbeddingUnavailable means the embedding adapter could not
	// produce a vector, e.g. for empty text or a failed model call.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrEmbeddingTimeout means an embedding call exceeded its per-call
	// deadline. The facade maps it to a fallback answer, never a crash.
	ErrEmbeddingTimeout = errors.New("embedding timed out")

	// ErrIncompatibleEmbeddingSpace means vectors from different models
	// or dimensions were mixed. At engine construction it is fatal.
	ErrIncompatibleEmbeddingSpace = errors.New("incompatible embedding space")

	// ErrIndexCorrupted means the index reported a chunk it cannot
	// produce a vector for.
	ErrIndexCorrupted = errors.New("embedding index corrupted")
)
