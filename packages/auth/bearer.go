package auth

import (
	"context"
	"fmt"
	"net/http"
)

// AccessTokenParam is the query parameter used for query-placed bearer
// tokens.
const AccessTokenParam = "access_token"

// TokenSource supplies bearer tokens. It is asked once per signed request.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns itself.
type StaticToken string

func (t StaticToken) AccessToken(context.Context) (string, error) {
	return string(t), nil
}

// BearerSigner adds an OAuth2 bearer token to requests.
type BearerSigner struct {
	source    TokenSource
	placement Placement
}

func NewBearerSigner(token string, placement Placement) *BearerSigner {
	return NewBearerSignerFrom(StaticToken(token), placement)
}

func NewBearerSignerFrom(source TokenSource, placement Placement) *BearerSigner {
	return &BearerSigner{source: source, placement: placement}
}

func (s *BearerSigner) Kind() string { return KindOAuth }

func (s *BearerSigner) Sign(req *http.Request) error {
	if err := requireAbsolute(req); err != nil {
		return err
	}
	token, err := s.source.AccessToken(req.Context())
	if err != nil {
		return fmt.Errorf("obtain bearer token: %w", err)
	}

	switch s.placement {
	case QueryString:
		setQueryParams(req.URL, func(name string) bool { return name == AccessTokenParam },
			[][2]string{{AccessTokenParam, token}})
	default:
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}
