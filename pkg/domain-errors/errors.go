// Package domainerrors provides coded domain errors. Services return these so
// transport layers can map error kinds to wire status codes without the core
// knowing anything about HTTP.
//
// Import as dErrors:
//
//	dErrors "audittrail/pkg/domain-errors"
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error by what the caller can do about it.
type Code string

const (
	// CodeBadRequest covers malformed requests (undecodable body, missing
	// request object).
	CodeBadRequest Code = "bad_request"

	// CodeValidation covers well-formed requests with out-of-domain values
	// (unknown enum member, over-length message, inverted date range).
	// Always caller-fixable.
	CodeValidation Code = "validation_failed"

	// CodeNotFound means the referenced entity does not exist.
	CodeNotFound Code = "not_found"

	// CodeConflict means the request contradicts current state.
	CodeConflict Code = "conflict"

	// CodeUnauthorized means the caller lacks credentials for the operation.
	CodeUnauthorized Code = "unauthorized"

	// CodeUnavailable means a dependency is temporarily unreachable.
	CodeUnavailable Code = "unavailable"

	// CodeInternal covers storage and other infrastructure failures. Not
	// caller-fixable; details are logged server-side, never echoed to clients.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error. Fields names the offending request fields
// for validation errors so callers know what to fix.
type Error struct {
	Code    Code
	Message string
	Fields  []string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// WithFields returns a copy of the error annotated with the offending fields.
func (e *Error) WithFields(fields ...string) *Error {
	clone := *e
	clone.Fields = append(append([]string{}, e.Fields...), fields...)
	return &clone
}

// CodeOf extracts the code from an error chain. Unrecognized errors report
// CodeInternal so unexpected failures never leak as client errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is shorthand for HasCode, matching how call sites read:
// dErrors.Is(err, dErrors.CodeValidation).
func Is(err error, code Code) bool { return HasCode(err, code) }

// FieldsOf returns the offending fields recorded on the error, if any.
func FieldsOf(err error) []string {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}
