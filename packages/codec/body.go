package codec

import (
	"io"
)

// Body is the closed set of request body representations an encoder accepts.
// Callers normally go through BodyOf, which maps plain Go values onto it.
type Body interface {
	body()
}

// Bytes is a raw byte payload, written as-is.
type Bytes []byte

// Text is a string payload, written in the resolved charset.
type Text string

// Stream is a payload read from an io.Reader.
type Stream struct {
	Reader io.Reader
}

// File is a payload read from the file at Path.
type File struct {
	Path string
}

// Structured is a map, slice or struct serialized by the encoder's family.
type Structured struct {
	Value any
}

// Writer produces the payload by writing into w when the request is encoded.
type Writer func(w io.Writer) error

// Parts is a multipart payload.
type Parts []Part

// Part is a single multipart section. Exactly one of Value, Path or Content
// supplies its data.
type Part struct {
	Name        string
	Value       string
	FileName    string
	Path        string
	Content     io.Reader
	ContentType string
}

func (Bytes) body()      {}
func (Text) body()       {}
func (Stream) body()     {}
func (File) body()       {}
func (Structured) body() {}
func (Writer) body()     {}
func (Parts) body()      {}

// BodyOf maps an arbitrary Go value onto a Body. Values that already are a
// Body are returned unchanged; nil yields nil.
func BodyOf(v any) Body {
	switch b := v.(type) {
	case nil:
		return nil
	case Body:
		return b
	case []byte:
		return Bytes(b)
	case string:
		return Text(b)
	case io.Reader:
		return Stream{Reader: b}
	case func(io.Writer) error:
		return Writer(b)
	case []Part:
		return Parts(b)
	default:
		return Structured{Value: v}
	}
}

func describe(b Body) string {
	switch v := b.(type) {
	case Structured:
		return typeName(v.Value)
	case Stream:
		return typeName(v.Reader)
	case nil:
		return "<nil>"
	default:
		return typeName(b)
	}
}
