package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitwire/packages/codec"
	"github.com/abdul-hamid-achik/hitwire/packages/uri"
)

// Request is the per-request configuration. The client never modifies it.
type Request struct {
	Method string
	// URI replaces the client's default URI. It may be relative to it.
	URI string
	// Path is resolved against the URI; {name} placeholders are filled from
	// PathParams.
	Path       string
	PathParams map[string]any
	// Query replaces the URI's query string; AddQuery appends to it.
	Query    uri.Params
	AddQuery uri.Params
	// Headers are merged over the client's default headers. A key set here
	// replaces the default values for that key only.
	Headers      http.Header
	ClearHeaders bool
	// ContentType is the type the response is parsed as, and the request body
	// type when RequestContentType is empty.
	ContentType        string
	RequestContentType string
	Body               any
	// AllowBody permits a body on GET, HEAD, OPTIONS, TRACE and DELETE.
	AllowBody bool
	Handlers  HandlerTable
	Timeout   time.Duration
}

func NewRequest(method, path string) *Request {
	return &Request{
		Method:  method,
		Path:    path,
		Headers: make(http.Header),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = make(http.Header)
	}
	r.Headers.Set(key, value)
	return r
}

func (r *Request) AddHeader(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = make(http.Header)
	}
	r.Headers.Add(key, value)
	return r
}

func (r *Request) SetBody(body any) *Request {
	r.Body = body
	return r
}

func (r *Request) SetTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

func (r *Request) SetQueryParam(key string, value any) *Request {
	r.AddQuery = r.AddQuery.Add(key, value)
	return r
}

func (r *Request) SetPathParam(key string, value any) *Request {
	if r.PathParams == nil {
		r.PathParams = make(map[string]any)
	}
	r.PathParams[key] = value
	return r
}

func (r *Request) SetContentType(ct string) *Request {
	r.ContentType = ct
	return r
}

func (r *Request) SetRequestContentType(ct string) *Request {
	r.RequestContentType = ct
	return r
}

// Handle registers a status handler for this request only.
func (r *Request) Handle(key StatusKey, h Handler) *Request {
	if r.Handlers == nil {
		r.Handlers = make(HandlerTable)
	}
	r.Handlers[key] = h
	return r
}

var bodylessMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
	http.MethodDelete:  true,
}

func (r *Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

// requestContentType resolves the type the body is encoded as: the explicit
// request type, then the client's, then a concrete response type, then the
// form default for POST and PATCH, then a guess from the body itself.
func requestContentType(r *Request, clientRequestType, clientType string, body codec.Body) string {
	for _, ct := range []string{r.RequestContentType, clientRequestType} {
		if ct != "" {
			return ct
		}
	}
	for _, ct := range []string{r.ContentType, clientType} {
		if !codec.IsAny(ct) {
			return ct
		}
	}
	switch r.method() {
	case http.MethodPost, http.MethodPatch:
		if _, isStructured := body.(codec.Structured); isStructured || body == nil {
			return codec.URLEnc.String()
		}
		if _, isText := body.(codec.Text); isText {
			return codec.URLEnc.String()
		}
	}
	return inferContentType(body)
}

func inferContentType(body codec.Body) string {
	switch body.(type) {
	case codec.Text:
		return codec.Text.String()
	case codec.Structured:
		return codec.JSON.String()
	case codec.Parts:
		return codec.Multipart.String()
	}
	return codec.Binary.String()
}

// responseContentType is the type the response will be parsed as before the
// server's header is seen.
func responseContentType(r *Request, clientType string) string {
	if r.ContentType != "" {
		return r.ContentType
	}
	if clientType != "" {
		return clientType
	}
	return codec.Any.String()
}
