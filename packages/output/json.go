package output

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	hithttp "github.com/abdul-hamid-achik/hitwire/packages/http"
)

// JSONRequest represents request details
type JSONRequest struct {
	Method  string              `json:"method"`
	URL     string              `json:"url"`
	Headers map[string][]string `json:"headers,omitempty"`
}

// JSONResponse represents one exchange or failure
type JSONResponse struct {
	Method     string              `json:"method,omitempty"`
	URL        string              `json:"url,omitempty"`
	StatusCode int                 `json:"statusCode,omitempty"`
	Status     string              `json:"status,omitempty"`
	Headers    map[string][]string `json:"headers,omitempty"`
	Duration   float64             `json:"duration,omitempty"`
	Body       any                 `json:"body,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// JSONFormatter writes one JSON document per event.
type JSONFormatter struct {
	writer io.Writer
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func WithJSONWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatRequest(req *http.Request) {
	f.write(JSONRequest{Method: req.Method, URL: req.URL.String(), Headers: req.Header})
}

func (f *JSONFormatter) FormatExchange(ex *Exchange) {
	f.write(JSONResponse{
		Method:     ex.Method,
		URL:        ex.URL,
		StatusCode: ex.StatusCode,
		Status:     ex.Status,
		Headers:    ex.Headers,
		Duration:   float64(ex.Duration.Microseconds()) / 1000,
		Body:       jsonBody(ex.Value),
	})
}

func (f *JSONFormatter) FormatError(err error) {
	resp := JSONResponse{Error: err.Error()}
	if statusErr, ok := hithttp.AsStatusError(err); ok {
		resp.StatusCode = statusErr.StatusCode
		resp.Status = statusErr.Status
		resp.Headers = statusErr.Header
		resp.Body = jsonBody(statusErr.Data)
		if statusErr.Data == nil && len(statusErr.Body) > 0 {
			resp.Body = jsonBody(statusErr.Body)
		}
	}
	f.write(resp)
}

func (f *JSONFormatter) write(v any) {
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// jsonBody keeps decoded JSON values as they are and renders everything
// else to text.
func jsonBody(v any) any {
	switch v.(type) {
	case nil, map[string]any, []any, float64, bool:
		return v
	}
	return Render(v)
}

func asParseError(err error) (*hithttp.ParseError, bool) {
	var e *hithttp.ParseError
	ok := errors.As(err, &e)
	return e, ok
}
