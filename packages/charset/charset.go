// Package charset converts between Go strings and byte payloads in a named
// character set. Names follow the IANA registry (UTF-8, ISO-8859-1, ...).
package charset

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

const (
	// UTF8 is the canonical name of the UTF-8 character set
	UTF8 = "UTF-8"
	// ISO88591 is the canonical name of the Latin-1 character set
	ISO88591 = "ISO-8859-1"
)

// Lookup returns the encoding registered under name.
func Lookup(name string) (encoding.Encoding, error) {
	if isUTF8(name) {
		return unicode.UTF8, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", name)
	}
	return enc, nil
}

// Encode converts s into bytes of the named charset.
func Encode(s, name string) ([]byte, error) {
	if isUTF8(name) {
		return []byte(s), nil
	}
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	out, err := enc.NewEncoder().String(s)
	if err != nil {
		return nil, fmt.Errorf("cannot encode text as %s: %w", name, err)
	}
	return []byte(out), nil
}

// Decode converts bytes of the named charset into a Go string.
func Decode(b []byte, name string) (string, error) {
	if isUTF8(name) {
		return string(b), nil
	}
	enc, err := Lookup(name)
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("cannot decode %s text: %w", name, err)
	}
	return string(out), nil
}

func isUTF8(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	return n == "" || n == "utf-8" || n == "utf8"
}
