// Package apperr defines the error taxonomy shared by all services.
// Handlers map these error kinds onto HTTP status codes; everything
// that crosses an application boundary should be wrapped into one.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindPermissionDenied
	KindNotFound
	KindConflict
	KindDependency
)

// Error carries a kind, a caller-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status a handler should respond with.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindDependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// Validation reports invalid caller input.
func Validation(msg string) *Error { return newError(KindValidation, msg, nil) }

// Validationf reports invalid caller input with a formatted message.
func Validationf(format string, args ...any) *Error {
	return newError(KindValidation, fmt.Sprintf(format, args...), nil)
}

// Authentication reports a missing or unverifiable identity.
func Authentication(msg string) *Error { return newError(KindAuthentication, msg, nil) }

// PermissionDenied reports an authenticated caller lacking authority.
func PermissionDenied(msg string) *Error { return newError(KindPermissionDenied, msg, nil) }

// NotFound reports an absent entity.
func NotFound(msg string) *Error { return newError(KindNotFound, msg, nil) }

// Conflict reports a uniqueness or state conflict.
func Conflict(msg string) *Error { return newError(KindConflict, msg, nil) }

// Dependency reports a failed call to a collaborating service.
func Dependency(msg string, cause error) *Error { return newError(KindDependency, msg, cause) }

// Internal wraps an unexpected failure.
func Internal(msg string, cause error) *Error { return newError(KindInternal, msg, cause) }

// From extracts an *Error from err, or wraps err as internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal server error", err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
