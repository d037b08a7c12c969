package internal

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors.
var (
	// ErrNoRequestContext is returned by UseRoute outside of request handling.
	ErrNoRequestContext = errors.New("treeserve: UseRoute must be called inside a route or middleware")

	// ErrMissingMethod marks a Route node declared without a method.
	ErrMissingMethod = errors.New("treeserve: route is missing a required method")

	// ErrModuleNotRegistered is returned when a route or middleware file has no registered module.
	ErrModuleNotRegistered = errors.New("treeserve: no module registered for file")

	// ErrInvalidJSONBody is returned when a JSON request body cannot be decoded.
	ErrInvalidJSONBody = errors.New("treeserve: invalid JSON body")
)

// CompileError is a fatal tree or file-routing problem detected before serving starts.
type CompileError struct {
	Err  error
	Path string
}

func (e *CompileError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("compile: %v", e.Err)
	}
	return fmt.Sprintf("compile %q: %v", e.Path, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// DispatchError reports a route the HTTP engine could not register.
// The route is skipped; the server still starts.
type DispatchError struct {
	Err    error
	Method string
	Path   string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// PanicError represents a panic recovered while handling a request.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// HTTPError is an error carrying the HTTP status and message to render.
// Handlers and middleware return it to produce a JSON error response.
type HTTPError struct {
	// Err is the underlying error (for logging, not exposed to users).
	Err error

	// Message is the user-facing error message.
	Message string

	// Code is the HTTP status code.
	Code int
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func (e *HTTPError) StatusCode() int {
	return e.Code
}

func (e *HTTPError) StatusText() string {
	return http.StatusText(e.Code)
}

// NewHTTPError creates a new HTTPError with the given status code and message.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		Code:    code,
		Message: message,
	}
}

// ErrBadRequest creates a 400 error.
func ErrBadRequest(message string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, message)
}

// ErrUnauthorized creates a 401 error.
func ErrUnauthorized(message string) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, message)
}

// ErrForbidden creates a 403 error.
func ErrForbidden(message string) *HTTPError {
	return NewHTTPError(http.StatusForbidden, message)
}

// ErrNotFound creates a 404 error.
func ErrNotFound(message string) *HTTPError {
	return NewHTTPError(http.StatusNotFound, message)
}

// ErrInternal creates a 500 error.
func ErrInternal(message string) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, message)
}

// AsHTTPError extracts the HTTPError from an error chain.
// Returns nil if there is none.
func AsHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return nil
}

// IsPanicError returns true if the error is a PanicError.
func IsPanicError(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}

// AsPanicError extracts the PanicError from an error chain.
func AsPanicError(err error) (*PanicError, bool) {
	var pe *PanicError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
