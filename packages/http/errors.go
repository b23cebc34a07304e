package http

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidStatus is returned for status codes outside 100-999.
var ErrInvalidStatus = errors.New("http: status code outside 100-999")

// StatusError is returned by the built-in failure handler.
type StatusError struct {
	StatusCode int
	Status     string
	Header     http.Header
	// Body is the fully buffered response body.
	Body []byte
	// Data is the parsed body, or nil when it could not be parsed.
	Data any
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("http: request failed with status %s", status)
}

// ParseError reports a response body that could not be parsed as its
// resolved content type. Raw keeps the payload for manual inspection.
type ParseError struct {
	ContentType string
	Raw         []byte
	Err         error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("http: cannot parse response body as %s: %v", e.ContentType, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// StateError reports an operation the client or request is not configured
// for.
type StateError struct {
	Op     string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *StateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("http: %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("http: %s: %s", e.Op, e.Reason)
}

// Unwrap returns the underlying error.
func (e *StateError) Unwrap() error {
	return e.Err
}

// IsStatusError checks if an error is a StatusError.
func IsStatusError(err error) bool {
	var e *StatusError
	return errors.As(err, &e)
}

// AsStatusError returns the StatusError in err's chain.
func AsStatusError(err error) (*StatusError, bool) {
	var e *StatusError
	ok := errors.As(err, &e)
	return e, ok
}

// IsParseError checks if an error is a ParseError.
func IsParseError(err error) bool {
	var e *ParseError
	return errors.As(err, &e)
}
