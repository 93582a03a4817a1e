package domain

import "errors"

var (
	// ErrEmbedding indicates the embedding adapter failed or returned malformed vectors.
	ErrEmbedding = errors.New("embedding failed")

	// ErrGeneration indicates the answer generator failed.
	ErrGeneration = errors.New("answer generation failed")

	// ErrChunkNotFound indicates a global index outside the corpus.
	ErrChunkNotFound = errors.New("chunk not found")

	// ErrInvalidFeedback indicates a feedback value outside [0, 1].
	ErrInvalidFeedback = errors.New("feedback value must be between 0 and 1")

	// ErrInvalidInput indicates malformed caller input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyIngested is returned when ingest is attempted a second time.
	ErrAlreadyIngested = errors.New("corpus already ingested")

	// ErrInvalidChunkWindow indicates an overlap that is not smaller than the window.
	ErrInvalidChunkWindow = errors.New("chunk overlap must be smaller than the window size")

	// ErrDimensionMismatch indicates vectors of differing dimensions.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
