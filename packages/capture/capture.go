package capture

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/abdul-hamid-achik/hitwire/packages/codec"
	hithttp "github.com/abdul-hamid-achik/hitwire/packages/http"
)

// Source is the part of a response a capture reads from.
type Source int

const (
	SourceBody Source = iota
	SourceHeader
	SourceStatus
	SourceDuration
)

func (s Source) String() string {
	switch s {
	case SourceHeader:
		return "header"
	case SourceStatus:
		return "status"
	case SourceDuration:
		return "duration"
	}
	return "body"
}

// Capture names one value to pull out of a response.
type Capture struct {
	Name   string
	Source Source
	Path   string
}

// Parse reads "name=source:path", "source:path" or a bare gjson body path.
// Without an explicit name the path names the capture.
func Parse(expr string) (*Capture, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty capture expression")
	}
	name, rest, named := strings.Cut(expr, "=")
	if !named {
		rest = name
		name = ""
	}

	c := &Capture{Source: SourceBody, Path: rest}
	if prefix, path, ok := strings.Cut(rest, ":"); ok {
		switch prefix {
		case "body":
			c.Path = path
		case "header":
			c.Source, c.Path = SourceHeader, path
		default:
			return nil, fmt.Errorf("unknown capture source %q", prefix)
		}
	} else {
		switch rest {
		case "status":
			c.Source, c.Path = SourceStatus, ""
		case "duration":
			c.Source, c.Path = SourceDuration, ""
		}
	}

	c.Name = strings.TrimSpace(name)
	if c.Name == "" {
		c.Name = rest
	}
	return c, nil
}

type Extractor struct {
	response *hithttp.Response
	bodyJSON gjson.Result
}

// NewExtractor buffers the response body. JSON bodies are queried with gjson
// paths; anything else only answers the empty body path.
func NewExtractor(resp *hithttp.Response) *Extractor {
	e := &Extractor{
		response: resp,
	}
	if data, err := resp.Buffer(); err == nil && isJSON(resp, data) {
		e.bodyJSON = gjson.ParseBytes(data)
	}
	return e
}

func isJSON(resp *hithttp.Response, data []byte) bool {
	ct := resp.Header("Content-Type")
	if family, ok := codec.FamilyOf(ct); ok && family == codec.JSON {
		return true
	}
	if family, ok := codec.FamilyOf(resp.ContentType); ok && family == codec.JSON {
		return true
	}
	return ct == "" && gjson.ValidBytes(data)
}

func (e *Extractor) Extract(capture *Capture) (any, bool) {
	switch capture.Source {
	case SourceBody:
		return e.extractFromBody(capture.Path)
	case SourceHeader:
		return e.extractFromHeader(capture.Path)
	case SourceStatus:
		return e.response.StatusCode, true
	case SourceDuration:
		return e.response.DurationMs(), true
	default:
		return nil, false
	}
}

func (e *Extractor) extractFromBody(path string) (any, bool) {
	if !e.bodyJSON.Exists() {
		if path == "" {
			return e.response.BodyString(), true
		}
		return nil, false
	}

	if path == "" {
		return e.bodyJSON.Value(), true
	}

	result := e.bodyJSON.Get(path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

func (e *Extractor) extractFromHeader(name string) (any, bool) {
	value := e.response.Header(name)
	if value == "" {
		return nil, false
	}
	return value, true
}

func ExtractAll(resp *hithttp.Response, captures []*Capture) map[string]any {
	extractor := NewExtractor(resp)
	results := make(map[string]any)

	for _, c := range captures {
		if value, ok := extractor.Extract(c); ok {
			results[c.Name] = value
		}
	}

	return results
}

// Handler returns a status handler producing the captured values of every
// response it sees.
func Handler(captures []*Capture) hithttp.Handler {
	return hithttp.HandlerFunc(func(resp *hithttp.Response) (any, error) {
		return ExtractAll(resp, captures), nil
	})
}
