package internal

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrRendererNotConfigured = errors.New("pie: renderer not configured")
	ErrStorageNotConfigured  = errors.New("pie: storage not configured")
	ErrInvalidHandlerName    = errors.New("pie: invalid handler name")
	ErrInvalidHandler        = errors.New("pie: invalid handler")
	ErrConnectionClosed      = errors.New("pie: websocket connection closed")
	ErrNotAccepted           = errors.New("pie: websocket not accepted")
	ErrAlreadyAccepted       = errors.New("pie: websocket already accepted")
	ErrUploadNotFound        = errors.New("pie: upload not found")
)

// HTTPError is an error with an HTTP status. Handlers and middleware return
// it to select the response status; any other error becomes a 500.
type HTTPError struct {
	// Err is the underlying cause. It is logged, never sent to the client.
	Err error

	// Message is appended to the status line in the default error body.
	Message string

	Code int
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Code)
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

// Body returns the plain-text body used by the default error handler,
// e.g. "400 Bad Request: Missing required parameter 'id'".
func (e *HTTPError) Body() string {
	line := fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
	if e.Message != "" {
		line += ": " + e.Message
	}
	return line
}

// HTTPErrorOption configures an HTTPError.
type HTTPErrorOption func(*HTTPError)

// NewHTTPError creates a new HTTPError with the given status code and message.
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	e := &HTTPError{
		Code:    code,
		Message: message,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func WithError(err error) HTTPErrorOption {
	return func(e *HTTPError) {
		e.Err = err
	}
}

// Convenience constructors for common HTTP errors.

func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, message, opts...)
}

func ErrForbidden(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusForbidden, message, opts...)
}

func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusNotFound, message, opts...)
}

func ErrMethodNotAllowed(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusMethodNotAllowed, message, opts...)
}

func ErrPayloadTooLarge(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusRequestEntityTooLarge, message, opts...)
}

func ErrTooManyRequests(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusTooManyRequests, message, opts...)
}

func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, message, opts...)
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

// IsHTTPError reports whether err carries an HTTPError.
func IsHTTPError(err error) bool {
	return AsHTTPError(err) != nil
}

// StreamError reports a failure after the response status was committed.
// The connection is aborted; the client sees a truncated body.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return "pie: stream aborted: " + e.Err.Error()
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
