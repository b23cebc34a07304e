package http

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitwire/packages/codec"
)

// Response is what status handlers receive. Body is the live, already
// decompressed stream until Buffer is called.
type Response struct {
	StatusCode int
	Status     string
	Proto      string
	Headers    http.Header
	Body       io.Reader
	// ContentType is the type the body is parsed as.
	ContentType string
	Duration    time.Duration
	Request     *http.Request

	parsers  *codec.Parsers
	buffered []byte
	isRead   bool
}

func newResponse(httpResp *http.Response, parseType string, parsers *codec.Parsers, duration time.Duration) *Response {
	resp := &Response{
		StatusCode:  httpResp.StatusCode,
		Status:      httpResp.Status,
		Proto:       httpResp.Proto,
		Headers:     httpResp.Header,
		ContentType: parseType,
		Duration:    duration,
		Request:     httpResp.Request,
		parsers:     parsers,
	}
	if httpResp.Body != nil && httpResp.Body != http.NoBody {
		resp.Body = bufio.NewReader(httpResp.Body)
	}
	if resp.Headers == nil {
		resp.Headers = http.Header{}
	}
	return resp
}

// HasEntity reports whether the response carries a body. HEAD responses,
// 1xx, 204 and 304 never do, and neither does an empty stream.
func (r *Response) HasEntity() bool {
	if r.Request != nil && r.Request.Method == http.MethodHead {
		return false
	}
	if r.StatusCode < 200 || r.StatusCode == http.StatusNoContent || r.StatusCode == http.StatusNotModified {
		return false
	}
	if r.isRead {
		return len(r.buffered) > 0
	}
	if r.Body == nil {
		return false
	}
	if br, ok := r.Body.(*bufio.Reader); ok {
		_, err := br.Peek(1)
		return err == nil
	}
	return true
}

// Buffer reads the remaining body into memory. Body is replaced by a reader
// over the buffered bytes so later readers see the full payload.
func (r *Response) Buffer() ([]byte, error) {
	if r.isRead {
		r.Body = bytes.NewReader(r.buffered)
		return r.buffered, nil
	}
	var data []byte
	if r.Body != nil {
		var err error
		data, err = io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
	}
	r.buffered = data
	r.isRead = true
	r.Body = bytes.NewReader(data)
	return data, nil
}

// Bytes returns the buffered body.
func (r *Response) Bytes() ([]byte, error) {
	return r.Buffer()
}

// BodyString returns the buffered body as a string, or "" if it cannot be read.
func (r *Response) BodyString() string {
	data, err := r.Buffer()
	if err != nil {
		return ""
	}
	return string(data)
}

// Parse buffers the body and parses it as ContentType. A response without an
// entity parses to nil.
func (r *Response) Parse() (any, error) {
	if !r.HasEntity() {
		return nil, nil
	}
	data, err := r.Buffer()
	if err != nil {
		return nil, err
	}
	parsers := r.parsers
	if parsers == nil {
		parsers = codec.NewParsers("")
	}
	v, err := parsers.Parse(r.ContentType, data)
	if err != nil {
		return nil, &ParseError{ContentType: r.ContentType, Raw: data, Err: err}
	}
	return v, nil
}

// Header returns the first value of the named response header.
func (r *Response) Header(key string) string {
	return r.Headers.Get(key)
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}

var errMalformedContentType = errors.New("malformed Content-Type header")

// resolveParseType picks the type a response body is parsed as. A concrete
// declared type wins and inherits the server's charset; a wildcard defers to
// the Content-Type header. Only a missing or malformed header falls back to
// binary.
func resolveParseType(declared, header string) (string, error) {
	if !codec.IsAny(declared) {
		if codec.CharsetOf(declared) == "" {
			if cs := codec.CharsetOf(header); cs != "" {
				return strings.TrimSpace(declared) + "; charset=" + cs, nil
			}
		}
		return declared, nil
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return codec.Binary.String(), nil
	}
	key := codec.Key(header)
	mediaType, sub, ok := strings.Cut(key, "/")
	if !ok || mediaType == "" || sub == "" || strings.ContainsAny(key, " \t,") {
		return codec.Binary.String(), errMalformedContentType
	}
	return header, nil
}
