package pipeline

import "errors"

var (
	// ErrNoURLs indicates a batch run with nothing to process.
	ErrNoURLs = errors.New("no URLs to process")
)
