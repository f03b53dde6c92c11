// Package apperr defines the error taxonomy shared by the analysis pipeline.
//
// Collector- and strategy-level failures are recovered locally by callers and
// downgraded to empty results; the taxonomy exists so logs and the API surface
// can still distinguish a network timeout from a malformed manual estimate.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for logging and API responses.
type Kind string

const (
	// KindNetwork covers fetch and timeout failures against external hosts.
	KindNetwork Kind = "network"
	// KindAPI covers design-tree/content API calls that failed or returned
	// an unexpected shape.
	KindAPI Kind = "api"
	// KindValidation covers malformed caller input, e.g. manual estimates.
	KindValidation Kind = "validation"
	// KindNotFound covers route/node resolution misses.
	KindNotFound Kind = "not_found"
	// KindUnknown is the fallback classification.
	KindUnknown Kind = "unknown"
)

// Error is a classified error with the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error from a message.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Newf creates a classified error from a format string.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies an existing error. Returns nil when err is nil.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind from an error chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether any error in the chain carries the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
