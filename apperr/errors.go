// Package apperr defines the error taxonomy shared by handlers and stores.
//
// Stores and services return coded errors; handlers map them to a status code
// and a JSON body with apperr.Status. Anything that is not an *Error is an
// internal failure and must not be shown to the caller.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeValidation         Code = "VALIDATION"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeConflict           Code = "CONFLICT"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeUpstream           Code = "UPSTREAM"
	CodeUnavailable        Code = "UNAVAILABLE"
	CodeInternal           Code = "INTERNAL"
)

// HTTPStatus returns the status code written for c.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthenticated, CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	// signup answers 400 for an existing email, not 409
	case CodeValidation, CodeAlreadyExists:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a coded error with a caller-safe message.
type Error struct {
	Code    Code
	Message string
	Details any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error carrying the same code, so errors.Is(err, ErrNotFound)
// works for every not-found error regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// Sentinels for errors.Is.
var (
	ErrUnauthenticated    = &Error{Code: CodeUnauthenticated, Message: "Unauthorized"}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "Invalid credentials"}
	ErrForbidden          = &Error{Code: CodeForbidden, Message: "Forbidden"}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrAlreadyExists      = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrConflict           = &Error{Code: CodeConflict, Message: "conflict"}
	ErrRateLimited        = &Error{Code: CodeRateLimited, Message: "Too many requests"}
	ErrUpstream           = &Error{Code: CodeUpstream, Message: "upstream unavailable"}
)

func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

func Unauthenticated(msg string) *Error {
	return &Error{Code: CodeUnauthenticated, Message: msg}
}

func InvalidCredentials(msg string) *Error {
	return &Error{Code: CodeInvalidCredentials, Message: msg}
}

func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationWithDetails carries per-field messages in Details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Unavailable reports a feature that is not configured on this server.
func Unavailable(msg string) *Error {
	return &Error{Code: CodeUnavailable, Message: msg}
}

// Upstream wraps a failure of an external collaborator. The cause is kept
// for logging; only msg reaches the caller.
func Upstream(err error, msg string) *Error {
	return &Error{Code: CodeUpstream, Message: msg, cause: err}
}

// Wrap attaches a code and message to err.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Status resolves the status code, public message and details for err.
// Internal and upstream failures collapse to a generic message; the bool
// reports whether the error should be logged server-side.
func Status(err error) (status int, msg string, details any, logIt bool) {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, "internal server error", nil, true
	}
	switch e.Code {
	case CodeInternal:
		return http.StatusInternalServerError, "internal server error", nil, true
	case CodeUpstream:
		return http.StatusInternalServerError, e.Message, nil, true
	}
	return e.HTTPStatus(), e.Message, e.Details, false
}
