package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hithttp "github.com/abdul-hamid-achik/hitwire/packages/http"
)

func fixedSigner(creds Credentials, placement Placement, opts ...OAuth1Option) *OAuth1Signer {
	opts = append([]OAuth1Option{
		WithClock(func() time.Time { return time.Unix(1191242096, 0) }),
		WithNonce(func() string { return "kllo9940pd9333jh" }),
	}, opts...)
	return NewOAuth1Signer(creds, placement, opts...)
}

var photoCreds = Credentials{
	ConsumerKey:    "dpf43f3p2l4k3l03",
	ConsumerSecret: "kd94hf93k423kf44",
	Token:          "nnch734d00sl2jdk",
	TokenSecret:    "pfkkdhi9sl3r4s00",
}

func oauthFields(t *testing.T, header string) map[string]string {
	t.Helper()
	require.True(t, strings.HasPrefix(header, "OAuth "), header)
	fields := make(map[string]string)
	for _, field := range strings.Split(strings.TrimPrefix(header, "OAuth "), ", ") {
		name, value, ok := strings.Cut(field, "=")
		require.True(t, ok, field)
		decoded, err := url.PathUnescape(strings.Trim(value, `"`))
		require.NoError(t, err)
		fields[name] = decoded
	}
	return fields
}

func TestOAuth1Signer_BaseString(t *testing.T) {
	s := fixedSigner(photoCreds, Header)
	u, _ := url.Parse("http://photos.example.net/photos?file=vacation.jpg&size=original")
	req := &http.Request{Method: "GET", URL: u, Header: http.Header{}}

	params, err := signableParams(req)
	require.NoError(t, err)
	for k, v := range s.protocolParams() {
		params = append(params, [2]string{k, v})
	}

	want := "GET&http%3A%2F%2Fphotos.example.net%2Fphotos&file%3Dvacation.jpg" +
		"%26oauth_consumer_key%3Ddpf43f3p2l4k3l03%26oauth_nonce%3Dkllo9940pd9333jh" +
		"%26oauth_signature_method%3DHMAC-SHA1%26oauth_timestamp%3D1191242096" +
		"%26oauth_token%3Dnnch734d00sl2jdk%26oauth_version%3D1.0%26size%3Doriginal"
	assert.Equal(t, want, s.baseString(req.Method, req.URL, params))
}

func TestOAuth1Signer_Header(t *testing.T) {
	req := httptest.NewRequest("GET", "http://photos.example.net/photos?file=vacation.jpg&size=original", nil)

	require.NoError(t, fixedSigner(photoCreds, Header).Sign(req))

	fields := oauthFields(t, req.Header.Get("Authorization"))
	assert.Equal(t, "tR3+Ty81lMeYAr/Fid0kMTYa/WM=", fields["oauth_signature"])
	assert.Equal(t, "dpf43f3p2l4k3l03", fields["oauth_consumer_key"])
	assert.Equal(t, "HMAC-SHA1", fields["oauth_signature_method"])
	assert.Equal(t, "file=vacation.jpg&size=original", req.URL.RawQuery)
}

func TestOAuth1Signer_QueryString(t *testing.T) {
	req := httptest.NewRequest("GET", "http://photos.example.net/photos?file=vacation.jpg&size=original", nil)

	require.NoError(t, fixedSigner(photoCreds, QueryString).Sign(req))

	assert.Empty(t, req.Header.Get("Authorization"))
	query := req.URL.Query()
	assert.Equal(t, "tR3+Ty81lMeYAr/Fid0kMTYa/WM=", query.Get("oauth_signature"))
	assert.Equal(t, "vacation.jpg", query.Get("file"))

	// Signing again replaces the oauth fields instead of stacking them.
	require.NoError(t, fixedSigner(photoCreds, QueryString).Sign(req))
	assert.Len(t, req.URL.Query()["oauth_signature"], 1)
	assert.Equal(t, "tR3+Ty81lMeYAr/Fid0kMTYa/WM=", req.URL.Query().Get("oauth_signature"))
}

func TestOAuth1Signer_FormBodyIsSigned(t *testing.T) {
	creds := Credentials{ConsumerKey: "key", ConsumerSecret: "secret"}
	signer := fixedSigner(creds, Header)

	client, err := hithttp.NewClient(hithttp.WithDefaultURI("http://api.test/"), hithttp.WithSigner(signer))
	require.NoError(t, err)

	formReq, err := client.Prepare(context.Background(), &hithttp.Request{
		Method: "POST",
		Path:   "/status",
		Body:   map[string]string{"status": "hello world"},
	})
	require.NoError(t, err)

	queryReq, err := client.Prepare(context.Background(), &hithttp.Request{
		Method: "POST",
		URI:    "http://api.test/status?status=hello%20world",
	})
	require.NoError(t, err)

	plainReq, err := client.Prepare(context.Background(), &hithttp.Request{Method: "POST", Path: "/status"})
	require.NoError(t, err)

	formSig := oauthFields(t, formReq.Header.Get("Authorization"))["oauth_signature"]
	querySig := oauthFields(t, queryReq.Header.Get("Authorization"))["oauth_signature"]
	plainSig := oauthFields(t, plainReq.Header.Get("Authorization"))["oauth_signature"]
	assert.Equal(t, querySig, formSig, "form parameters sign like query parameters")
	assert.NotEqual(t, plainSig, formSig)

	body, err := io.ReadAll(formReq.Body)
	require.NoError(t, err)
	assert.Equal(t, "status=hello+world", string(body), "signing leaves the body readable")
}

func TestOAuth1Signer_FormBodySignsAsUTF8(t *testing.T) {
	creds := Credentials{ConsumerKey: "key", ConsumerSecret: "secret"}
	client, err := hithttp.NewClient(hithttp.WithDefaultURI("http://api.test/"), hithttp.WithSigner(fixedSigner(creds, Header)))
	require.NoError(t, err)

	formReq, err := client.Prepare(context.Background(), &hithttp.Request{
		Method: "POST",
		Path:   "/status",
		Body:   map[string]string{"status": "café"},
	})
	require.NoError(t, err)
	assert.Equal(t, "application/x-www-form-urlencoded; charset=ISO-8859-1", formReq.Header.Get("Content-Type"))

	queryReq, err := client.Prepare(context.Background(), &hithttp.Request{
		Method: "POST",
		URI:    "http://api.test/status?status=caf%C3%A9",
	})
	require.NoError(t, err)

	formSig := oauthFields(t, formReq.Header.Get("Authorization"))["oauth_signature"]
	querySig := oauthFields(t, queryReq.Header.Get("Authorization"))["oauth_signature"]
	assert.Equal(t, querySig, formSig)

	body, err := io.ReadAll(formReq.Body)
	require.NoError(t, err)
	assert.Equal(t, "status=caf%E9", string(body))
}

func TestOAuth1Signer_EmptyToken(t *testing.T) {
	creds := Credentials{ConsumerKey: "key", ConsumerSecret: "secret"}

	tests := []struct {
		name    string
		opts    []OAuth1Option
		include bool
	}{
		{"omitted by default", nil, false},
		{"included", []OAuth1Option{WithEmptyToken(true)}, true},
		{"explicitly omitted", []OAuth1Option{WithEmptyToken(false)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "http://api.test/", nil)
			require.NoError(t, fixedSigner(creds, Header, tt.opts...).Sign(req))
			_, has := oauthFields(t, req.Header.Get("Authorization"))["oauth_token"]
			assert.Equal(t, tt.include, has)
		})
	}
}

func TestOAuth1Signer_ResigningIsIdempotent(t *testing.T) {
	var authHeaders []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeaders = r.Header.Values("Authorization")
	}))
	defer server.Close()

	client, err := hithttp.NewClient(hithttp.WithDefaultURI(server.URL))
	require.NoError(t, err)
	require.NoError(t, client.SetSigner(fixedSigner(Credentials{ConsumerKey: "first", ConsumerSecret: "a"}, Header)))
	require.NoError(t, client.SetSigner(fixedSigner(Credentials{ConsumerKey: "second", ConsumerSecret: "b"}, Header)))

	_, err = client.Get(context.Background(), &hithttp.Request{})
	require.NoError(t, err)

	require.Len(t, authHeaders, 1)
	assert.Equal(t, "second", oauthFields(t, authHeaders[0])["oauth_consumer_key"])
}

func TestOAuth1Signer_NonceDefault(t *testing.T) {
	nonce := newNonce()
	assert.Len(t, nonce, 32)
	assert.NotContains(t, nonce, "-")
	assert.NotEqual(t, nonce, newNonce())
}

func TestSigners_RequireAbsoluteURL(t *testing.T) {
	signers := []hithttp.Signer{
		NewOAuth1Signer(photoCreds, Header),
		NewBearerSigner("token", Header),
	}
	for _, s := range signers {
		req := &http.Request{Method: "GET", URL: &url.URL{Path: "/relative"}, Header: http.Header{}}
		err := s.Sign(req)
		var stateErr *hithttp.StateError
		assert.ErrorAs(t, err, &stateErr)
	}
}

func TestBearerSigner(t *testing.T) {
	tests := []struct {
		name       string
		placement  Placement
		url        string
		wantHeader string
		wantQuery  string
	}{
		{"header", Header, "http://api.test/items?a=1", "Bearer abc", "a=1"},
		{"query", QueryString, "http://api.test/items?a=1", "", "a=1&access_token=abc"},
		{"query replaces existing token", QueryString, "http://api.test/items?access_token=old&a=1", "", "a=1&access_token=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.url, nil)
			require.NoError(t, NewBearerSigner("abc", tt.placement).Sign(req))
			assert.Equal(t, tt.wantHeader, req.Header.Get("Authorization"))
			assert.Equal(t, tt.wantQuery, req.URL.RawQuery)
		})
	}
}

type failingSource struct{}

func (failingSource) AccessToken(context.Context) (string, error) {
	return "", errors.New("token endpoint down")
}

func TestBearerSigner_SourceError(t *testing.T) {
	client, err := hithttp.NewClient(
		hithttp.WithDefaultURI("http://api.test/"),
		hithttp.WithSigner(NewBearerSignerFrom(failingSource{}, Header)),
	)
	require.NoError(t, err)

	_, err = client.Prepare(context.Background(), &hithttp.Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token endpoint down")
	assert.Contains(t, err.Error(), "sign request (oauth)")
}

func TestBearerSigner_ReplacesOAuth1(t *testing.T) {
	client, err := hithttp.NewClient(
		hithttp.WithDefaultURI("http://api.test/"),
		hithttp.WithSigner(NewOAuth1Signer(photoCreds, Header)),
		hithttp.WithSigner(NewBearerSigner("abc", Header)),
	)
	require.NoError(t, err)

	req, err := client.Prepare(context.Background(), &hithttp.Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bearer abc"}, req.Header.Values("Authorization"))
}

func TestPercentEncode(t *testing.T) {
	tests := map[string]string{
		"abcABC123-._~": "abcABC123-._~",
		"a b":           "a%20b",
		"a+b":           "a%2Bb",
		"ü":             "%C3%BC",
		"=&/":           "%3D%26%2F",
	}
	for in, want := range tests {
		assert.Equal(t, want, percentEncode(in), in)
	}
}

func TestBaseURL(t *testing.T) {
	tests := map[string]string{
		"HTTP://Example.COM:80/a?b=c":  "http://example.com/a",
		"https://example.com:443/":     "https://example.com/",
		"https://example.com:8443/x#y": "https://example.com:8443/x",
		"http://example.com":           "http://example.com/",
	}
	for in, want := range tests {
		u, err := url.Parse(in)
		require.NoError(t, err)
		assert.Equal(t, want, baseURL(u), in)
	}
}

func TestParsePlacement(t *testing.T) {
	p, ok := ParsePlacement("query")
	assert.True(t, ok)
	assert.Equal(t, QueryString, p)

	p, ok = ParsePlacement("")
	assert.True(t, ok)
	assert.Equal(t, Header, p)

	_, ok = ParsePlacement("cookie")
	assert.False(t, ok)
}
