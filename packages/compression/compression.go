// Package compression negotiates response content encodings. A Negotiator
// advertises its tokens in Accept-Encoding and transparently decompresses
// matching responses.
package compression

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
)

const (
	// TokenGzip is the gzip content-coding token
	TokenGzip = "gzip"
	// TokenDeflate is the deflate content-coding token
	TokenDeflate = "deflate"
)

// Encoding is a content coding that can be undone on a response body.
type Encoding interface {
	// Token is the Accept-Encoding / Content-Encoding value.
	Token() string
	// Decompress wraps r with a decoding reader.
	Decompress(r io.Reader) (io.ReadCloser, error)
}

// Gzip decodes gzip bodies.
type Gzip struct{}

func (Gzip) Token() string { return TokenGzip }

func (Gzip) Decompress(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// Deflate decodes deflate bodies. Servers disagree on whether "deflate" means
// a zlib stream or raw DEFLATE data; NoWrap selects raw DEFLATE.
type Deflate struct {
	NoWrap bool
}

func (Deflate) Token() string { return TokenDeflate }

func (d Deflate) Decompress(r io.Reader) (io.ReadCloser, error) {
	if d.NoWrap {
		return flate.NewReader(r), nil
	}
	return zlib.NewReader(r)
}

// Registry holds the encodings a client can negotiate.
type Registry struct {
	encodings map[string]Encoding
}

// NewRegistry returns a registry with gzip and deflate registered.
func NewRegistry(deflateNoWrap bool) *Registry {
	r := &Registry{encodings: make(map[string]Encoding)}
	r.Register(Gzip{})
	r.Register(Deflate{NoWrap: deflateNoWrap})
	return r
}

// Register adds or replaces an encoding.
func (r *Registry) Register(enc Encoding) {
	r.encodings[strings.ToLower(enc.Token())] = enc
}

// Lookup returns the encoding registered under token.
func (r *Registry) Lookup(token string) (Encoding, bool) {
	enc, ok := r.encodings[strings.ToLower(strings.TrimSpace(token))]
	return enc, ok
}

// WithEncodings returns a Negotiator for the given tokens. Unknown tokens are
// skipped and duplicates collapse to the first occurrence.
func (r *Registry) WithEncodings(tokens ...string) *Negotiator {
	n := &Negotiator{}
	for _, token := range tokens {
		enc, ok := r.Lookup(token)
		if !ok || slices.Contains(n.tokens, strings.ToLower(enc.Token())) {
			continue
		}
		n.encodings = append(n.encodings, enc)
		n.tokens = append(n.tokens, strings.ToLower(enc.Token()))
	}
	return n
}

// Negotiator is the request/response interceptor pair for a fixed set of
// encodings.
type Negotiator struct {
	encodings []Encoding
	tokens    []string
}

// Tokens returns the negotiated tokens in preference order.
func (n *Negotiator) Tokens() []string {
	if n == nil {
		return nil
	}
	return slices.Clone(n.tokens)
}

// PrepareRequest merges the negotiated tokens into the request's
// Accept-Encoding header. Values already present are kept and nothing is
// listed twice.
func (n *Negotiator) PrepareRequest(req *http.Request) {
	if n == nil || len(n.tokens) == 0 {
		return
	}
	var merged []string
	seen := make(map[string]bool)
	add := func(token string) {
		token = strings.TrimSpace(token)
		key := strings.ToLower(token)
		if token == "" || seen[key] {
			return
		}
		seen[key] = true
		merged = append(merged, token)
	}
	for _, value := range req.Header.Values("Accept-Encoding") {
		for _, token := range strings.Split(value, ",") {
			add(token)
		}
	}
	for _, token := range n.tokens {
		add(token)
	}
	req.Header.Set("Accept-Encoding", strings.Join(merged, ", "))
}

// WrapResponse replaces the body of a response encoded with a negotiated
// token by a decompressing reader. The length headers are cleared since they
// describe the encoded payload. Empty bodies are left alone.
func (n *Negotiator) WrapResponse(resp *http.Response) error {
	if n == nil || resp == nil || resp.Body == nil {
		return nil
	}
	token := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	if token == "" {
		return nil
	}
	idx := slices.Index(n.tokens, token)
	if idx < 0 {
		return nil
	}

	if resp.ContentLength == 0 {
		return nil
	}
	buffered := bufio.NewReader(resp.Body)
	if _, err := buffered.Peek(1); err != nil {
		if err == io.EOF {
			resp.Body = readCloser{Reader: buffered, Closer: resp.Body}
			return nil
		}
		return fmt.Errorf("compression: read %s body: %w", token, err)
	}

	decoded, err := n.encodings[idx].Decompress(buffered)
	if err != nil {
		return fmt.Errorf("compression: decode %s body: %w", token, err)
	}
	resp.Body = &decodingBody{decoded: decoded, raw: resp.Body}
	resp.ContentLength = -1
	resp.Header.Del("Content-Length")
	resp.Header.Del("Content-Encoding")
	resp.Uncompressed = true
	return nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

type decodingBody struct {
	decoded io.ReadCloser
	raw     io.Closer
}

func (b *decodingBody) Read(p []byte) (int, error) {
	return b.decoded.Read(p)
}

func (b *decodingBody) Close() error {
	err := b.decoded.Close()
	if rawErr := b.raw.Close(); err == nil {
		err = rawErr
	}
	return err
}
