// Package apperror defines the application's error vocabulary.
//
// Every failure a caller can act on is an *AppError wrapping one of the
// sentinels below. Lower layers create them, handlers translate them to HTTP
// status codes with errors.Is, and nothing in between needs to know about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrAlreadyExists   = errors.New("already exists")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrMisconfigured   = errors.New("misconfigured")
)

type AppError struct {
	Err     error  // sentinel this error belongs to
	Message string // human-readable, safe to show to clients
	Field   string // optional: request field that caused the error
	Cause   error  // optional: underlying failure, for logs only
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the cause, so errors.Is matches
// either one.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// NotFoundMessage is NotFound with a caller-supplied message, for cases where
// echoing the identifier back would leak more than the client needs.
func NotFoundMessage(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func AlreadyExists(message string) *AppError {
	return &AppError{
		Err:     ErrAlreadyExists,
		Message: message,
	}
}

// Unauthenticated reports a request with no usable identity: a missing or
// malformed Authorization header, or a token the identity provider rejects.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// Misconfigured reports a server-side setup problem, such as an identity
// provider with no project configured. Handlers map it to 500.
func Misconfigured(message string) *AppError {
	return &AppError{
		Err:     ErrMisconfigured,
		Message: message,
	}
}

// Code returns the machine-readable code clients see for err. Errors outside
// the vocabulary above are "internal_error".
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrMisconfigured):
		return "misconfigured"
	default:
		return "internal_error"
	}
}
