package uri

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/hitwire/packages/charset"
)

var (
	schemePattern      = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*$`)
	placeholderPattern = regexp.MustCompile(`\{([^}]+)\}`)
)

// SyntaxError reports a malformed URI or URI component.
type SyntaxError struct {
	Input  string
	Reason string
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("uri: invalid %q: %s", e.Input, e.Reason)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Builder is an immutable URI value. Every mutator returns a new Builder; the
// encoding policy and query charset are fixed when the Builder is created.
type Builder struct {
	u       url.URL
	encode  bool
	charset string
}

// Option configures a Builder at construction time.
type Option func(*Builder)

// WithEncoding enables or disables percent-encoding of query parameters.
// When disabled, names and values are assumed to be valid already.
func WithEncoding(enabled bool) Option {
	return func(b *Builder) {
		b.encode = enabled
	}
}

// WithCharset sets the charset used when percent-encoding query parameters.
func WithCharset(name string) Option {
	return func(b *Builder) {
		if name != "" {
			b.charset = name
		}
	}
}

// Parse creates a Builder from a URI string.
func Parse(raw string, opts ...Option) (Builder, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Builder{}, &SyntaxError{Input: raw, Reason: "cannot parse URI", Err: err}
	}
	return FromURL(u, opts...), nil
}

// FromURL creates a Builder from a copy of u.
func FromURL(u *url.URL, opts ...Option) Builder {
	b := Builder{encode: true, charset: charset.UTF8}
	if u != nil {
		b.u = *u
		if u.User != nil {
			user := *u.User
			b.u.User = &user
		}
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Reconfigure returns a Builder over the same URI with a different encoding
// policy and charset.
func (b Builder) Reconfigure(opts ...Option) Builder {
	return FromURL(&b.u, append([]Option{WithEncoding(b.encode), WithCharset(b.charset)}, opts...)...)
}

// EncodingEnabled reports whether query parameters are percent-encoded.
func (b Builder) EncodingEnabled() bool {
	return b.encode
}

// Charset returns the query parameter charset.
func (b Builder) Charset() string {
	return b.charset
}

// IsZero reports whether the Builder holds no URI at all.
func (b Builder) IsZero() bool {
	return b.u == (url.URL{})
}

// IsAbs reports whether the URI has a scheme.
func (b Builder) IsAbs() bool {
	return b.u.IsAbs()
}

// URL returns a copy of the underlying URL.
func (b Builder) URL() *url.URL {
	u := b.u
	return &u
}

func (b Builder) String() string {
	return b.u.String()
}

// WithScheme replaces the scheme.
func (b Builder) WithScheme(scheme string) (Builder, error) {
	if !schemePattern.MatchString(scheme) {
		return b, &SyntaxError{Input: scheme, Reason: "illegal character in scheme"}
	}
	next := b
	next.u.Scheme = strings.ToLower(scheme)
	return next, nil
}

// WithHost replaces the host, keeping any port.
func (b Builder) WithHost(host string) (Builder, error) {
	if host == "" || strings.ContainsAny(host, " /?#@\\%") {
		return b, &SyntaxError{Input: host, Reason: "illegal character in host"}
	}
	next := b
	if port := b.u.Port(); port != "" {
		next.u.Host = net.JoinHostPort(strings.Trim(host, "[]"), port)
	} else {
		next.u.Host = host
	}
	return next, nil
}

// WithPort replaces the port. A port of -1 removes it.
func (b Builder) WithPort(port int) (Builder, error) {
	if port < -1 || port > 65535 {
		return b, &SyntaxError{Input: strconv.Itoa(port), Reason: "port out of range"}
	}
	next := b
	host := b.u.Hostname()
	if port == -1 {
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
		next.u.Host = host
		return next, nil
	}
	next.u.Host = net.JoinHostPort(host, strconv.Itoa(port))
	return next, nil
}

// WithPath resolves path against the current URI the way a browser resolves a
// link, carrying the current query and fragment along.
func (b Builder) WithPath(path string) (Builder, error) {
	var sb strings.Builder
	sb.WriteString(path)
	if b.u.RawQuery != "" {
		sb.WriteByte('?')
		sb.WriteString(b.u.RawQuery)
	}
	if b.u.Fragment != "" {
		sb.WriteByte('#')
		sb.WriteString(b.u.EscapedFragment())
	}
	ref, err := url.Parse(sb.String())
	if err != nil {
		return b, &SyntaxError{Input: path, Reason: "cannot parse path", Err: err}
	}
	next := b
	next.u = *b.u.ResolveReference(ref)
	return next, nil
}

// WithFragment replaces the fragment.
func (b Builder) WithFragment(fragment string) (Builder, error) {
	next := b
	next.u.Fragment = fragment
	next.u.RawFragment = ""
	return next, nil
}

// SetQuery replaces the query string with params. An empty params list
// leaves the query untouched; use ClearQuery to drop it.
func (b Builder) SetQuery(params Params) (Builder, error) {
	if len(params) == 0 {
		return b, nil
	}
	raw, err := b.format(params)
	if err != nil {
		return b, err
	}
	next := b
	next.u.RawQuery = raw
	next.u.ForceQuery = false
	return next, nil
}

// ClearQuery removes the query string entirely.
func (b Builder) ClearQuery() Builder {
	next := b
	next.u.RawQuery = ""
	next.u.ForceQuery = false
	return next
}

// AddQueryParams appends params after the existing query. Existing pairs are
// kept byte-for-byte so that they are never encoded twice.
func (b Builder) AddQueryParams(params Params) (Builder, error) {
	if len(params) == 0 {
		return b, nil
	}
	raw, err := b.format(params)
	if err != nil {
		return b, err
	}
	next := b
	if next.u.RawQuery == "" {
		next.u.RawQuery = raw
	} else {
		next.u.RawQuery = next.u.RawQuery + "&" + raw
	}
	return next, nil
}

// RemoveQueryParam removes the first parameter called name.
func (b Builder) RemoveQueryParam(name string) (Builder, error) {
	tokens := splitQuery(b.u.RawQuery)
	encoded, err := b.encodeComponent(name)
	if err != nil {
		return b, err
	}
	for i, token := range tokens {
		tokenName, _, _ := strings.Cut(token, "=")
		tokenName = strings.TrimSpace(tokenName)
		if tokenName == name || tokenName == encoded {
			next := b
			next.u.RawQuery = strings.Join(append(tokens[:i:i], tokens[i+1:]...), "&")
			return next, nil
		}
	}
	return b, fmt.Errorf("uri: query parameter %q not found", name)
}

// HasQueryParam reports whether the query contains a parameter called name.
// The name matches either as given or in its encoded wire form.
func (b Builder) HasQueryParam(name string) bool {
	query := b.Query()
	if query.Has(name) {
		return true
	}
	encoded, err := b.encodeComponent(name)
	return err == nil && query.Has(encoded)
}

// Query splits the raw query string into parameters. Names and values are
// returned exactly as they appear on the wire; nothing is decoded.
func (b Builder) Query() Params {
	var params Params
	for _, token := range splitQuery(b.u.RawQuery) {
		name, value, found := strings.Cut(token, "=")
		if !found {
			params = append(params, Param{Name: strings.TrimSpace(name), NoValue: true})
			continue
		}
		params = append(params, Param{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	}
	return params
}

func (b Builder) format(params Params) (string, error) {
	var sb strings.Builder
	for _, p := range params {
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		name, err := b.encodeComponent(p.Name)
		if err != nil {
			return "", err
		}
		sb.WriteString(name)
		if p.NoValue {
			continue
		}
		value, err := b.encodeComponent(p.Value)
		if err != nil {
			return "", err
		}
		sb.WriteByte('=')
		sb.WriteString(value)
	}
	return sb.String(), nil
}

func (b Builder) encodeComponent(s string) (string, error) {
	if !b.encode {
		return s, nil
	}
	return Encode(s, b.charset)
}

// Encode form-escapes s in the named charset and writes spaces as %20
// instead of "+", which some servers refuse to decode.
func Encode(s, charsetName string) (string, error) {
	raw, err := charset.Encode(s, charsetName)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(url.QueryEscape(string(raw)), "+", "%20"), nil
}

// Expand substitutes {name} placeholders in path with path-escaped values.
func Expand(path string, params map[string]any) (string, error) {
	var missing string
	expanded := placeholderPattern.ReplaceAllStringFunc(path, func(match string) string {
		name := strings.TrimSpace(match[1 : len(match)-1])
		value, ok := params[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return match
		}
		return url.PathEscape(fmt.Sprint(value))
	})
	if missing != "" {
		return path, &SyntaxError{Input: path, Reason: fmt.Sprintf("no value for path parameter %q", missing)}
	}
	return expanded, nil
}

func splitQuery(raw string) []string {
	if raw == "" {
		return nil
	}
	var tokens []string
	for _, token := range strings.Split(raw, "&") {
		if strings.TrimSpace(token) != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
