// Package apperr defines the error kinds shared by the services and how each
// one is presented over HTTP.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the HTTP boundary.
type Kind string

const (
	KindBadRequest           Kind = "BAD_REQUEST"
	KindValidation           Kind = "VALIDATION_FAILED"
	KindInvalidCredentials   Kind = "INVALID_CREDENTIALS"
	KindUnauthorized         Kind = "UNAUTHORIZED"
	KindNotFound             Kind = "NOT_FOUND"
	KindConflict             Kind = "CONFLICT"
	KindUnsupportedMediaType Kind = "UNSUPPORTED_MEDIA_TYPE"
	KindUpstream             Kind = "UPSTREAM_ERROR"
	KindInternal             Kind = "INTERNAL_ERROR"
)

// Error is a classified error. Message is safe to show to clients; Cause is
// only ever logged.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// StatusCode returns the HTTP status for the error kind.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindBadRequest, KindValidation:
		return http.StatusBadRequest
	case KindInvalidCredentials, KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func BadRequest(message string) *Error {
	return New(KindBadRequest, message)
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func InvalidCredentials() *Error {
	return New(KindInvalidCredentials, "Invalid username or password")
}

func Unauthorized() *Error {
	return New(KindUnauthorized, "Authentication required")
}

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

func Conflict(message string) *Error {
	return New(KindConflict, message)
}

func UnsupportedMediaType(message string) *Error {
	return New(KindUnsupportedMediaType, message)
}

// Upstream wraps a third-party failure. message is the public text.
func Upstream(message string, cause error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Cause: cause}
}

func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Cause: cause}
}

// From returns err as an *Error, classifying anything unknown as internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
