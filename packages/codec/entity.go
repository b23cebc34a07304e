package codec

import (
	"bytes"
	"io"
	"maps"
	"strings"

	"github.com/abdul-hamid-achik/hitwire/packages/charset"
)

// Entity is an encoded request body: either fully materialized bytes or a
// stream, plus the content type and charset it was encoded with.
type Entity struct {
	ContentType string
	Charset     string
	Data        []byte
	Stream      io.Reader
	// Length is the byte length when known, -1 otherwise.
	Length int64
}

func bytesEntity(contentType, cs string, data []byte) *Entity {
	return &Entity{ContentType: contentType, Charset: cs, Data: data, Length: int64(len(data))}
}

// Reader returns a reader over the entity payload. For byte entities every
// call returns a fresh reader.
func (e *Entity) Reader() io.Reader {
	if e.Stream != nil {
		return e.Stream
	}
	return bytes.NewReader(e.Data)
}

// Replayable reports whether the payload can be read more than once.
func (e *Entity) Replayable() bool {
	return e.Stream == nil
}

// Charsets holds the charset defaults used when a content type does not name
// one explicitly.
type Charsets struct {
	// Default applies to every content type without a per-type entry.
	Default string
	// Query is the charset for percent-encoding query parameters.
	Query string
	// PerType maps a content-type key to its default charset.
	PerType map[string]string
	// AppendDefault appends "; charset=..." to textual content types that do
	// not declare one.
	AppendDefault bool
}

// DefaultCharsets returns ISO-8859-1 content, UTF-8 queries and UTF-8 for the
// JSON family.
func DefaultCharsets() Charsets {
	perType := make(map[string]string)
	for _, ct := range JSON.Strings() {
		perType[ct] = charset.UTF8
	}
	return Charsets{
		Default:       charset.ISO88591,
		Query:         charset.UTF8,
		PerType:       perType,
		AppendDefault: true,
	}
}

// With returns a copy with an extra per-type default.
func (c Charsets) With(contentType, cs string) Charsets {
	next := c.clone()
	if next.PerType == nil {
		next.PerType = make(map[string]string)
	}
	next.PerType[Key(contentType)] = cs
	return next
}

func (c Charsets) clone() Charsets {
	next := c
	next.PerType = maps.Clone(c.PerType)
	return next
}

// Resolve returns the charset for contentType: the explicit parameter, then
// the per-type table, then Default. The result is never empty.
func (c Charsets) Resolve(contentType string) string {
	if cs := CharsetOf(contentType); cs != "" {
		return cs
	}
	if cs, ok := c.PerType[Key(contentType)]; ok && cs != "" {
		return cs
	}
	if c.Default != "" {
		return c.Default
	}
	return charset.ISO88591
}

// Decorate appends the resolved charset to textual content types that carry
// none.
func (c Charsets) Decorate(contentType string) string {
	if !c.AppendDefault || CharsetOf(contentType) != "" {
		return contentType
	}
	if !carriesCharset(contentType) {
		return contentType
	}
	return strings.TrimSpace(contentType) + "; charset=" + c.Resolve(contentType)
}

func carriesCharset(contentType string) bool {
	if LooksTextual(contentType) {
		return true
	}
	family, ok := FamilyOf(contentType)
	if !ok {
		return false
	}
	switch family {
	case JSON, XML, HTML, Text, URLEnc:
		return true
	}
	return false
}
