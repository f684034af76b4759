package apperrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for transport mapping and caller retry decisions.
type Code string

const (
	// Workflow error kinds. These are part of the service contract and are
	// returned to callers verbatim in the "code" field.
	CodeConfigurationMissing    Code = "CONFIGURATION_MISSING"
	CodeInvalidTransition       Code = "INVALID_TRANSITION"
	CodeOutOfOrder              Code = "OUT_OF_ORDER"
	CodeDuplicateSignature      Code = "DUPLICATE_SIGNATURE"
	CodeRoleMismatch            Code = "ROLE_MISMATCH"
	CodeConcurrentModification  Code = "CONCURRENT_MODIFICATION"
	CodeNotApproved             Code = "NOT_APPROVED"
	CodeNoFinalSelection        Code = "NO_FINAL_SELECTION"

	// General kinds.
	CodeNotFound     Code = "NOT_FOUND"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeConflict     Code = "CONFLICT"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeInternal     Code = "INTERNAL"
)

// Error is a coded error. It wraps an optional cause and plays well with
// errors.Is / errors.As.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error without a cause.
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

// NotFound reports a missing resource.
func NotFound(resource, id string) *Error {
	return Newf(CodeNotFound, "%s %q not found", resource, id)
}

// InvalidInput reports a rejected request field.
func InvalidInput(field, reason string) *Error {
	return Newf(CodeInvalidInput, "invalid %s: %s", field, reason)
}

// CodeOf extracts the code from err, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// IsRetryable reports whether the caller may safely retry the operation.
// Only optimistic-concurrency conflicts are retryable; every other kind is
// terminal for the request.
func IsRetryable(err error) bool {
	return HasCode(err, CodeConcurrentModification)
}
