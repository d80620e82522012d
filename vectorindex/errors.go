package vectorindex

import "errors"

var (
	// ErrDimensionMismatch indicates a vector whose dimension differs from
	// the index's fixed dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmptyVector indicates a zero-length or zero-norm vector.
	ErrEmptyVector = errors.New("vector is empty")

	// ErrInvalidTopK indicates a non-positive result limit.
	ErrInvalidTopK = errors.New("topK must be positive")

	// ErrNoQueryVectors indicates a multi-query search with no queries.
	ErrNoQueryVectors = errors.New("no query vectors given")
)
