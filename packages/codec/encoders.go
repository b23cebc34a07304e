package codec

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/hitwire/packages/charset"
	"github.com/abdul-hamid-achik/hitwire/packages/uri"
)

// EncodeBinary writes bytes, streams, files and writer callbacks unchanged.
// Any other body is rejected.
func EncodeBinary(contentType string, body Body, _ Charsets) (*Entity, error) {
	switch b := body.(type) {
	case Bytes:
		return &Entity{ContentType: contentType, Data: b, Length: int64(len(b))}, nil
	case Stream:
		return &Entity{ContentType: contentType, Stream: b.Reader, Length: streamLength(b.Reader)}, nil
	case File:
		f, err := os.Open(b.Path)
		if err != nil {
			return nil, fmt.Errorf("open body file: %w", err)
		}
		return &Entity{ContentType: contentType, Stream: f, Length: streamLength(f)}, nil
	case Writer:
		var buf bytes.Buffer
		if err := b(&buf); err != nil {
			return nil, fmt.Errorf("write body: %w", err)
		}
		return &Entity{ContentType: contentType, Data: buf.Bytes(), Length: int64(buf.Len())}, nil
	}
	return nil, unencodable(contentType, body, nil)
}

// EncodeText writes textual bodies in the resolved charset. Streams, files and
// writer callbacks are read fully first; scalar values are formatted.
func EncodeText(contentType string, body Body, cs Charsets) (*Entity, error) {
	name := cs.Resolve(contentType)
	text, ok, err := readText(body, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		s, isScalar := scalarText(body)
		if !isScalar {
			return nil, unencodable(contentType, body, nil)
		}
		text = s
	}
	return textEntity(contentType, text, name, cs)
}

// EncodeJSON marshals structured values with encoding/json. Textual bodies
// are taken as already-encoded JSON.
func EncodeJSON(contentType string, body Body, cs Charsets) (*Entity, error) {
	return encodeStructured(contentType, body, cs, json.Marshal)
}

// EncodeXML marshals structured values with encoding/xml. Textual bodies are
// taken as already-encoded markup.
func EncodeXML(contentType string, body Body, cs Charsets) (*Entity, error) {
	return encodeStructured(contentType, body, cs, xml.Marshal)
}

func encodeStructured(contentType string, body Body, cs Charsets, marshal func(any) ([]byte, error)) (*Entity, error) {
	name := cs.Resolve(contentType)
	text, ok, err := readText(body, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		s, isStructured := body.(Structured)
		if !isStructured {
			return nil, unencodable(contentType, body, nil)
		}
		data, err := marshal(s.Value)
		if err != nil {
			return nil, unencodable(contentType, body, err)
		}
		text = string(data)
	}
	return textEntity(contentType, text, name, cs)
}

// EncodeForm writes maps, url.Values and uri.Params as an
// application/x-www-form-urlencoded body. Textual bodies pass through.
func EncodeForm(contentType string, body Body, cs Charsets) (*Entity, error) {
	name := cs.Resolve(contentType)
	if s, ok := body.(Structured); ok {
		params, ok := formParams(s.Value)
		if !ok {
			return nil, unencodable(contentType, body, nil)
		}
		encoded, err := encodeForm(params, name)
		if err != nil {
			return nil, unencodable(contentType, body, err)
		}
		return textEntity(contentType, encoded, name, cs)
	}
	text, ok, err := readText(body, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, unencodable(contentType, body, nil)
	}
	return textEntity(contentType, text, name, cs)
}

func textEntity(contentType, text, name string, cs Charsets) (*Entity, error) {
	data, err := charset.Encode(text, name)
	if err != nil {
		return nil, err
	}
	return bytesEntity(cs.Decorate(contentType), name, data), nil
}

// readText returns the body as a string when it has a textual
// representation. Byte payloads are decoded from the named charset.
func readText(body Body, name string) (string, bool, error) {
	var raw []byte
	switch b := body.(type) {
	case Text:
		return string(b), true, nil
	case Bytes:
		raw = b
	case Stream:
		data, err := io.ReadAll(b.Reader)
		if err != nil {
			return "", false, fmt.Errorf("read body stream: %w", err)
		}
		raw = data
	case File:
		data, err := os.ReadFile(b.Path)
		if err != nil {
			return "", false, fmt.Errorf("read body file: %w", err)
		}
		raw = data
	case Writer:
		var buf bytes.Buffer
		if err := b(&buf); err != nil {
			return "", false, fmt.Errorf("write body: %w", err)
		}
		raw = buf.Bytes()
	default:
		return "", false, nil
	}
	text, err := charset.Decode(raw, name)
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

func scalarText(body Body) (string, bool) {
	s, ok := body.(Structured)
	if !ok {
		return "", false
	}
	switch v := s.Value.(type) {
	case fmt.Stringer:
		return v.String(), true
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(v), true
	}
	return "", false
}

func formParams(v any) (uri.Params, bool) {
	switch m := v.(type) {
	case uri.Params:
		return m, true
	case url.Values:
		return uri.ParamsFromValues(m), true
	case map[string][]string:
		return uri.ParamsFromValues(m), true
	case map[string]any:
		return uri.ParamsFromMap(m), true
	case map[string]string:
		converted := make(map[string]any, len(m))
		for k, val := range m {
			converted[k] = val
		}
		return uri.ParamsFromMap(converted), true
	}
	return nil, false
}

func encodeForm(params uri.Params, name string) (string, error) {
	var sb strings.Builder
	for _, p := range params {
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		key, err := formEscape(p.Name, name)
		if err != nil {
			return "", err
		}
		sb.WriteString(key)
		if p.NoValue {
			continue
		}
		value, err := formEscape(p.Value, name)
		if err != nil {
			return "", err
		}
		sb.WriteByte('=')
		sb.WriteString(value)
	}
	return sb.String(), nil
}

func formEscape(s, name string) (string, error) {
	raw, err := charset.Encode(s, name)
	if err != nil {
		return "", err
	}
	return url.QueryEscape(string(raw)), nil
}

type lener interface {
	Len() int
}

func streamLength(r io.Reader) int64 {
	switch v := r.(type) {
	case lener:
		return int64(v.Len())
	case *os.File:
		info, err := v.Stat()
		if err != nil || !info.Mode().IsRegular() {
			return -1
		}
		offset, err := v.Seek(0, io.SeekCurrent)
		if err != nil {
			return -1
		}
		return info.Size() - offset
	}
	return -1
}
