package transcribe

import "errors"

var (
	// ErrNoRetryDelays indicates an empty retry ladder.
	ErrNoRetryDelays = errors.New("retry delays cannot be empty")

	// ErrInvalidDuration indicates a non-positive audio duration.
	ErrInvalidDuration = errors.New("audio duration must be positive")

	// ErrInvalidWindow indicates a non-positive chunk window.
	ErrInvalidWindow = errors.New("chunk window must be positive")

	// ErrEmptyTranscription indicates the service returned no usable text.
	ErrEmptyTranscription = errors.New("transcription produced no text")
)
