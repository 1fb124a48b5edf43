// Package apperr defines the stable error codes surfaced to callers and a
// small wrapper type that carries a code through error chains.
//
// Services keep using sentinel errors and %w wrapping internally; an apperr
// is attached at the point where a failure becomes user-visible, and handlers
// translate codes to HTTP statuses.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable failure code.
type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeIdempotencyConflict Code = "IDEMPOTENCY_CONFLICT"
	CodeBookingFailed       Code = "BOOKING_FAILED"
	CodeProviderError       Code = "PROVIDER_ERROR"
	CodeReplanFailed        Code = "REPLAN_FAILED"
	CodeRollbackExpired     Code = "ROLLBACK_EXPIRED"
	CodeStorageUnavailable  Code = "STORAGE_UNAVAILABLE"
)

// Error pairs a code with a human-readable message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with no underlying cause.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an existing error.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the code from an error chain. Errors without an apperr in
// the chain report CodeStorageUnavailable only when they wrap a storage
// failure marker; everything else is unclassified and returns ok=false.
func CodeOf(err error) (Code, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code, true
	}
	return "", false
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
