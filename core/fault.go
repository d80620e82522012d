package core

import "errors"

// FaultKind classifies a failure for retry policy. Providers classify their
// own failures at the boundary; retry logic matches on the kind instead of
// inspecting error messages.
type FaultKind int

const (
	// FaultTransient marks failures worth retrying with backoff, such as
	// rate limiting or a server-side outage.
	FaultTransient FaultKind = iota + 1
	// FaultFatal marks failures that will not succeed on retry.
	FaultFatal
	// FaultInputInvalid marks failures caused by bad input; these are
	// rejected immediately and never retried.
	FaultInputInvalid
)

// String returns the lowercase name of the fault kind.
func (k FaultKind) String() string {
	switch k {
	case FaultTransient:
		return "transient"
	case FaultFatal:
		return "fatal"
	case FaultInputInvalid:
		return "input_invalid"
	default:
		return "unknown"
	}
}

// Fault wraps an error with a retry classification.
type Fault struct {
	Kind FaultKind
	Err  error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	return f.Kind.String() + ": " + f.Err.Error()
}

// Unwrap returns the wrapped error.
func (f *Fault) Unwrap() error {
	return f.Err
}

// Transient wraps err as a retryable fault.
func Transient(err error) error {
	return &Fault{Kind: FaultTransient, Err: err}
}

// Fatal wraps err as a non-retryable fault.
func Fatal(err error) error {
	return &Fault{Kind: FaultFatal, Err: err}
}

// InputInvalid wraps err as an input fault.
func InputInvalid(err error) error {
	return &Fault{Kind: FaultInputInvalid, Err: err}
}

// KindOf returns the classification of err. Unclassified errors are treated
// as fatal: retrying an unknown failure risks repeating non-idempotent work.
func KindOf(err error) FaultKind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return FaultFatal
}

// IsTransient reports whether err is classified as retryable.
func IsTransient(err error) bool {
	return KindOf(err) == FaultTransient
}
