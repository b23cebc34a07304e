// Package jwt mints HMAC-signed JSON Web Tokens for the bearer signer.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/abdul-hamid-achik/hitwire/packages/auth"
)

// SigningMethod names a supported HMAC algorithm.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
)

// renewBefore is how long before expiry a cached token is replaced.
const renewBefore = 30 * time.Second

type Config struct {
	// Secret is the HMAC signing key.
	Secret   string
	Method   SigningMethod
	Subject  string
	Issuer   string
	Audience []string
	// TTL is the lifetime of each minted token (default: 5m).
	TTL time.Duration
}

func (c *Config) applyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.TTL == 0 {
		c.TTL = 5 * time.Minute
	}
}

func (c *Config) validate() error {
	if c.Secret == "" {
		return errors.New("jwt: secret is required")
	}
	if c.TTL < 0 {
		return errors.New("jwt: ttl must not be negative")
	}
	if _, err := c.signingMethod(); err != nil {
		return err
	}
	return nil
}

func (c *Config) signingMethod() (gojwt.SigningMethod, error) {
	switch c.Method {
	case HS256:
		return gojwt.SigningMethodHS256, nil
	case HS384:
		return gojwt.SigningMethodHS384, nil
	case HS512:
		return gojwt.SigningMethodHS512, nil
	}
	return nil, fmt.Errorf("jwt: unsupported signing method %q", c.Method)
}

// Source is an auth.TokenSource that signs a fresh token whenever the cached
// one is close to expiry.
type Source struct {
	cfg    Config
	method gojwt.SigningMethod
	now    func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

var _ auth.TokenSource = (*Source)(nil)

type Option func(*Source)

// WithClock replaces time.Now for issued-at and expiry claims.
func WithClock(now func() time.Time) Option {
	return func(s *Source) {
		s.now = now
	}
}

func NewSource(cfg Config, opts ...Option) (*Source, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	method, _ := cfg.signingMethod()
	s := &Source{
		cfg:    cfg,
		method: method,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Source) AccessToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(renewBefore).Before(s.expires) {
		return s.token, nil
	}

	expires := now.Add(s.cfg.TTL)
	claims := gojwt.RegisteredClaims{
		Subject:   s.cfg.Subject,
		Issuer:    s.cfg.Issuer,
		IssuedAt:  gojwt.NewNumericDate(now),
		NotBefore: gojwt.NewNumericDate(now),
		ExpiresAt: gojwt.NewNumericDate(expires),
	}
	if len(s.cfg.Audience) > 0 {
		claims.Audience = gojwt.ClaimStrings(s.cfg.Audience)
	}

	signed, err := gojwt.NewWithClaims(s.method, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	s.token, s.expires = signed, expires
	return signed, nil
}
