package auth

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abdul-hamid-achik/hitwire/packages/charset"
	"github.com/abdul-hamid-achik/hitwire/packages/codec"
)

const (
	oauthVersion         = "1.0"
	oauthSignatureMethod = "HMAC-SHA1"
)

// Credentials are the OAuth 1.0a consumer and access token pairs.
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	Token          string
	TokenSecret    string
}

// OAuth1Signer signs requests with OAuth 1.0a HMAC-SHA1 over the final URL
// and, for form bodies, the encoded form parameters.
type OAuth1Signer struct {
	creds      Credentials
	placement  Placement
	now        func() time.Time
	nonce      func() string
	emptyToken bool
}

// OAuth1Option configures an OAuth1Signer.
type OAuth1Option func(*OAuth1Signer)

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) OAuth1Option {
	return func(s *OAuth1Signer) {
		s.now = now
	}
}

// WithNonce sets the nonce source.
func WithNonce(nonce func() string) OAuth1Option {
	return func(s *OAuth1Signer) {
		s.nonce = nonce
	}
}

// WithEmptyToken controls whether an empty oauth_token is still sent and
// signed. It is off by default.
func WithEmptyToken(include bool) OAuth1Option {
	return func(s *OAuth1Signer) {
		s.emptyToken = include
	}
}

func NewOAuth1Signer(creds Credentials, placement Placement, opts ...OAuth1Option) *OAuth1Signer {
	s := &OAuth1Signer{
		creds:     creds,
		placement: placement,
		now:       time.Now,
		nonce:     newNonce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *OAuth1Signer) Kind() string { return KindOAuth }

// Sign replaces any OAuth material already on req with a fresh signature.
func (s *OAuth1Signer) Sign(req *http.Request) error {
	if err := requireAbsolute(req); err != nil {
		return err
	}

	oauthParams := s.protocolParams()
	params, err := signableParams(req)
	if err != nil {
		return err
	}
	for k, v := range oauthParams {
		params = append(params, [2]string{k, v})
	}
	oauthParams["oauth_signature"] = s.signature(s.baseString(req.Method, req.URL, params))

	switch s.placement {
	case QueryString:
		setQueryParams(req.URL, isOAuthParam, sortedPairs(oauthParams))
		req.Header.Del("Authorization")
	default:
		req.Header.Set("Authorization", authorizationHeader(oauthParams))
	}
	return nil
}

func (s *OAuth1Signer) protocolParams() map[string]string {
	params := map[string]string{
		"oauth_consumer_key":     s.creds.ConsumerKey,
		"oauth_nonce":            s.nonce(),
		"oauth_signature_method": oauthSignatureMethod,
		"oauth_timestamp":        strconv.FormatInt(s.now().Unix(), 10),
		"oauth_version":          oauthVersion,
	}
	if s.creds.Token != "" || s.emptyToken {
		params["oauth_token"] = s.creds.Token
	}
	return params
}

// signableParams collects the decoded query of the final URL plus the form
// body, read through GetBody so req.Body is left for the transport.
func signableParams(req *http.Request) ([][2]string, error) {
	var params [][2]string
	query, err := url.ParseQuery(req.URL.RawQuery)
	if err != nil {
		return nil, fmt.Errorf("parse query for signing: %w", err)
	}
	params = appendValues(params, query, isOAuthParam)

	contentType := req.Header.Get("Content-Type")
	if !codec.SameKey(contentType, codec.URLEnc.String()) || req.GetBody == nil {
		return params, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("read form body for signing: %w", err)
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read form body for signing: %w", err)
	}
	form, err := url.ParseQuery(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse form body for signing: %w", err)
	}
	form, err = formToUTF8(form, codec.DefaultCharsets().Resolve(contentType))
	if err != nil {
		return nil, fmt.Errorf("decode form body for signing: %w", err)
	}
	return appendValues(params, form, func(string) bool { return false }), nil
}

// formToUTF8 re-encodes decoded form octets from the body charset to UTF-8,
// which the signature base string requires.
func formToUTF8(form url.Values, name string) (url.Values, error) {
	if strings.EqualFold(name, charset.UTF8) {
		return form, nil
	}
	out := make(url.Values, len(form))
	for key, values := range form {
		k, err := charset.Decode([]byte(key), name)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			decoded, err := charset.Decode([]byte(v), name)
			if err != nil {
				return nil, err
			}
			out[k] = append(out[k], decoded)
		}
	}
	return out, nil
}

func appendValues(params [][2]string, values url.Values, skip func(string) bool) [][2]string {
	for name, vs := range values {
		if skip(name) {
			continue
		}
		for _, v := range vs {
			params = append(params, [2]string{name, v})
		}
	}
	return params
}

func isOAuthParam(name string) bool {
	return strings.HasPrefix(name, "oauth_")
}

func (s *OAuth1Signer) baseString(method string, u *url.URL, params [][2]string) string {
	encoded := make([]string, len(params))
	for i, p := range params {
		encoded[i] = percentEncode(p[0]) + "=" + percentEncode(p[1])
	}
	sort.Strings(encoded)

	return strings.ToUpper(method) + "&" +
		percentEncode(baseURL(u)) + "&" +
		percentEncode(strings.Join(encoded, "&"))
}

// baseURL is scheme://host[:port]/path with default ports dropped.
func baseURL(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && !(scheme == "http" && port == "80") && !(scheme == "https" && port == "443") {
		host += ":" + port
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return scheme + "://" + host + path
}

func (s *OAuth1Signer) signature(base string) string {
	key := percentEncode(s.creds.ConsumerSecret) + "&" + percentEncode(s.creds.TokenSecret)
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func sortedPairs(m map[string]string) [][2]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([][2]string, len(keys))
	for i, k := range keys {
		pairs[i] = [2]string{k, m[k]}
	}
	return pairs
}

func authorizationHeader(params map[string]string) string {
	pairs := sortedPairs(params)
	fields := make([]string, len(pairs))
	for i, p := range pairs {
		fields[i] = fmt.Sprintf(`%s="%s"`, percentEncode(p[0]), percentEncode(p[1]))
	}
	return "OAuth " + strings.Join(fields, ", ")
}
