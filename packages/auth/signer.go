package auth

import (
	"net/http"
	"net/url"
	"strings"

	hithttp "github.com/abdul-hamid-achik/hitwire/packages/http"
)

// KindOAuth is reported by every signer in this package, so installing one
// on a client replaces whichever was there before.
const KindOAuth = "oauth"

// Placement selects where signing material goes.
type Placement int

const (
	// Header places credentials in the Authorization header.
	Header Placement = iota
	// QueryString appends credentials to the request URL.
	QueryString
)

func (p Placement) String() string {
	if p == QueryString {
		return "query"
	}
	return "header"
}

// ParsePlacement accepts "header" or "query".
func ParsePlacement(s string) (Placement, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "header":
		return Header, true
	case "query", "querystring":
		return QueryString, true
	}
	return Header, false
}

var (
	_ hithttp.Signer = (*OAuth1Signer)(nil)
	_ hithttp.Signer = (*BearerSigner)(nil)
)

func requireAbsolute(req *http.Request) error {
	if req.URL == nil || !req.URL.IsAbs() || req.URL.Host == "" {
		return &hithttp.StateError{Op: "sign", Reason: "request URL is not absolute"}
	}
	return nil
}

// setQueryParams drops every existing parameter matching drop and appends
// pairs, leaving the remaining query untouched.
func setQueryParams(u *url.URL, drop func(name string) bool, pairs [][2]string) {
	var parts []string
	for _, part := range strings.Split(u.RawQuery, "&") {
		if part == "" {
			continue
		}
		name, _, _ := strings.Cut(part, "=")
		if decoded, err := url.QueryUnescape(name); err == nil {
			name = decoded
		}
		if drop(name) {
			continue
		}
		parts = append(parts, part)
	}
	for _, p := range pairs {
		parts = append(parts, percentEncode(p[0])+"="+percentEncode(p[1]))
	}
	u.RawQuery = strings.Join(parts, "&")
	u.ForceQuery = false
}

// percentEncode escapes everything outside the RFC 3986 unreserved set.
func percentEncode(s string) string {
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&0x0f])
	}
	return sb.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}
