// Error taxonomy for the retrieval core.
//
// Tool-level failures are always recovered locally into transcript entries;
// only a validation error on the user-facing call or an unrecoverable
// upstream failure on a final reasoning step surfaces to the caller.
package model

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed query or operation arguments,
	// rejected before any I/O.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a referenced cached result or entity that is absent.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamTimeout marks an embedding or chat call that timed out.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrUpstreamFailure marks an embedding or chat capability that is
	// unreachable or erroring.
	ErrUpstreamFailure = errors.New("upstream failure")

	// ErrIterationLimit is the reasoning loop safety valve.
	ErrIterationLimit = errors.New("processing limit reached")
)

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
