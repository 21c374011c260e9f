package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error into the categories the API maps to HTTP statuses.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindConflict:
		return "CONFLICT"
	case KindNotFound:
		return "NOT_FOUND"
	case KindAuth:
		return "AUTH_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

// Error is a stable, data-only error: kind, machine code, human message and
// optionally the offending field. It never carries query text or stack frames
// into a response; the wrapped cause stays server-side.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Field   string
	cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func Validation(code, message, field string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message, Field: field}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

// Auth returns the single credentials error. One code and one message for
// every failure mode so responses cannot leak which part was wrong.
func Auth() *Error {
	return &Error{Kind: KindAuth, Code: "INVALID_CREDENTIALS", Message: "Invalid credentials"}
}

func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL_ERROR", Message: "Internal server error", cause: cause}
}

// KindOf extracts the kind of err, defaulting to internal for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// AsError returns err as *Error, wrapping unknown errors as internal.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}
