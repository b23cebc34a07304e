package jwt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitwire/packages/auth"
	hithttp "github.com/abdul-hamid-achik/hitwire/packages/http"
)

func parseClaims(t *testing.T, token, secret string, at time.Time) *gojwt.RegisteredClaims {
	t.Helper()
	claims := &gojwt.RegisteredClaims{}
	parsed, err := gojwt.ParseWithClaims(token, claims, func(*gojwt.Token) (any, error) {
		return []byte(secret), nil
	}, gojwt.WithTimeFunc(func() time.Time { return at }))
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	return claims
}

func TestSource_Claims(t *testing.T) {
	now := time.Unix(1700000000, 0)
	src, err := NewSource(Config{
		Secret:   "shh",
		Method:   HS384,
		Subject:  "svc-reporting",
		Issuer:   "hitwire",
		Audience: []string{"api"},
		TTL:      time.Minute,
	}, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	token, err := src.AccessToken(context.Background())
	require.NoError(t, err)

	claims := parseClaims(t, token, "shh", now)
	assert.Equal(t, "svc-reporting", claims.Subject)
	assert.Equal(t, "hitwire", claims.Issuer)
	assert.Equal(t, gojwt.ClaimStrings{"api"}, claims.Audience)
	assert.Equal(t, now.Add(time.Minute).Unix(), claims.ExpiresAt.Unix())

	parsed, _, err := gojwt.NewParser().ParseUnverified(token, &gojwt.RegisteredClaims{})
	require.NoError(t, err)
	assert.Equal(t, "HS384", parsed.Method.Alg())
}

func TestSource_ReusesUntilNearExpiry(t *testing.T) {
	now := time.Unix(1700000000, 0)
	src, err := NewSource(Config{Secret: "k", Subject: "a", TTL: 2 * time.Minute}, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	first, err := src.AccessToken(context.Background())
	require.NoError(t, err)

	now = now.Add(time.Minute)
	second, err := src.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	now = now.Add(45 * time.Second)
	third, err := src.AccessToken(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestNewSource_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing secret", Config{}},
		{"negative ttl", Config{Secret: "k", TTL: -time.Second}},
		{"asymmetric method", Config{Secret: "k", Method: "RS256"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSource(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestSource_CanceledContext(t *testing.T) {
	src, err := NewSource(Config{Secret: "k"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.AccessToken(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSource_FeedsBearerSigner(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer server.Close()

	src, err := NewSource(Config{Secret: "k", Subject: "cli"})
	require.NoError(t, err)

	client, err := hithttp.NewClient(
		hithttp.WithDefaultURI(server.URL),
		hithttp.WithSigner(auth.NewBearerSignerFrom(src, auth.Header)),
	)
	require.NoError(t, err)

	_, err = client.Get(context.Background(), hithttp.NewRequest(http.MethodGet, "/"))
	require.NoError(t, err)

	token, ok := strings.CutPrefix(got, "Bearer ")
	require.True(t, ok, got)
	claims := parseClaims(t, token, "k", time.Now())
	assert.Equal(t, "cli", claims.Subject)
}
