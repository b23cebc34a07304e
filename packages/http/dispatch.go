package http

import (
	"fmt"
	"maps"
)

type bucket int

const (
	bucketNone bucket = iota
	bucketSuccess
	bucketFailure
)

// StatusKey selects a handler: one exact status code, or the Success
// (100-399) or Failure (400-999) bucket.
type StatusKey struct {
	code   int
	bucket bucket
}

var (
	// Success matches every status from 100 to 399.
	Success = StatusKey{bucket: bucketSuccess}
	// Failure matches every status from 400 to 999.
	Failure = StatusKey{bucket: bucketFailure}
)

// Status returns the key for one exact status code.
func Status(code int) StatusKey {
	return StatusKey{code: code}
}

func (k StatusKey) String() string {
	switch k.bucket {
	case bucketSuccess:
		return "success"
	case bucketFailure:
		return "failure"
	}
	return fmt.Sprintf("%d", k.code)
}

// Classify returns the bucket a status code belongs to.
func Classify(code int) (StatusKey, error) {
	switch {
	case code >= 100 && code < 400:
		return Success, nil
	case code >= 400 && code < 1000:
		return Failure, nil
	}
	return StatusKey{}, fmt.Errorf("%w: %d", ErrInvalidStatus, code)
}

// Handler turns a response into the value returned from Client.Execute.
type Handler interface {
	Handle(resp *Response) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(resp *Response) (any, error)

// Handle calls f(resp).
func (f HandlerFunc) Handle(resp *Response) (any, error) {
	return f(resp)
}

// HandlerTable maps status keys to handlers.
type HandlerTable map[StatusKey]Handler

// Merge returns a new table holding t's handlers overridden by other's.
func (t HandlerTable) Merge(other HandlerTable) HandlerTable {
	merged := maps.Clone(t)
	if merged == nil {
		merged = make(HandlerTable, len(other))
	}
	maps.Copy(merged, other)
	return merged
}

// Lookup returns the handler for code: the exact key first, then the bucket.
func (t HandlerTable) Lookup(code int) (Handler, StatusKey, error) {
	key, err := Classify(code)
	if err != nil {
		return nil, StatusKey{}, err
	}
	if h, ok := t[Status(code)]; ok && h != nil {
		return h, Status(code), nil
	}
	if h, ok := t[key]; ok && h != nil {
		return h, key, nil
	}
	return builtinHandler(key), key, nil
}

// Dispatch runs the handler selected for resp in table, falling back to the
// built-in success and failure handlers.
func Dispatch(table HandlerTable, resp *Response) (any, error) {
	h, _, err := table.Lookup(resp.StatusCode)
	if err != nil {
		return nil, err
	}
	return h.Handle(resp)
}

func builtinHandler(key StatusKey) Handler {
	if key == Failure {
		return HandlerFunc(DefaultFailure)
	}
	return HandlerFunc(DefaultSuccess)
}

// DefaultSuccess buffers and parses the body, returning nil when there is no
// entity.
func DefaultSuccess(resp *Response) (any, error) {
	return resp.Parse()
}

// DefaultFailure buffers the body, parses it if it can and returns a
// *StatusError.
func DefaultFailure(resp *Response) (any, error) {
	statusErr := &StatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Headers,
	}
	if resp.HasEntity() {
		body, err := resp.Buffer()
		if err != nil {
			return nil, err
		}
		statusErr.Body = body
		if data, err := resp.Parse(); err == nil {
			statusErr.Data = data
		}
	}
	return nil, statusErr
}
