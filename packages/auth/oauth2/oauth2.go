// Package oauth2 fetches OAuth2 access tokens for the bearer signer.
package oauth2

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/hitwire/packages/auth"
)

// GrantType represents the OAuth2 grant type
type GrantType string

const (
	// ClientCredentials is the client_credentials grant type
	ClientCredentials GrantType = "client_credentials"
	// Password is the password (resource owner) grant type
	Password GrantType = "password"
	// RefreshToken is the refresh_token grant type
	RefreshToken GrantType = "refresh_token"
)

// Config holds OAuth2 configuration
type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Username     string // For password grant
	Password     string // For password grant
	GrantType    GrantType
}

// Token represents an OAuth2 access token
type Token struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresAt    time.Time `json:"-"`
}

// expirySkew treats tokens as expired slightly early to absorb clock drift.
const expirySkew = 30 * time.Second

// IsExpired checks if the token is expired
func (t *Token) IsExpired() bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(expirySkew).After(t.ExpiresAt)
}

// Doer sends token requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Provider handles OAuth2 token acquisition. It is safe for concurrent use
// and fetches at most one token at a time.
type Provider struct {
	config     *Config
	httpClient Doer
	cache      *TokenCache

	mu sync.Mutex
}

var _ auth.TokenSource = (*Provider)(nil)

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithHTTPClient replaces the client used for token requests.
func WithHTTPClient(d Doer) ProviderOption {
	return func(p *Provider) {
		p.httpClient = d
	}
}

// WithCache replaces the token cache, which defaults to GlobalCache.
func WithCache(c *TokenCache) ProviderOption {
	return func(p *Provider) {
		p.cache = c
	}
}

// NewProvider creates a new OAuth2 provider
func NewProvider(config *Config, opts ...ProviderOption) *Provider {
	p := &Provider{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: GlobalCache,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AccessToken returns a valid access token string.
func (p *Provider) AccessToken(ctx context.Context) (string, error) {
	token, err := p.GetToken(ctx)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// GetToken retrieves a valid access token, refreshing or fetching a new one
// if necessary.
func (p *Provider) GetToken(ctx context.Context) (*Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cacheKey := p.getCacheKey()
	cached := p.cache.Get(cacheKey)
	if cached != nil && !cached.IsExpired() {
		return cached, nil
	}

	var (
		token *Token
		err   error
	)
	if cached != nil && cached.RefreshToken != "" {
		token, err = p.refresh(ctx, cached.RefreshToken)
	}
	if token == nil {
		token, err = p.fetchToken(ctx)
	}
	if err != nil {
		p.cache.Delete(cacheKey)
		return nil, err
	}

	p.cache.Set(cacheKey, token)
	return token, nil
}

// RefreshAccessToken refreshes the access token using a refresh token
func (p *Provider) RefreshAccessToken(ctx context.Context, refreshToken string) (*Token, error) {
	token, err := p.refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	p.cache.Set(p.getCacheKey(), token)
	return token, nil
}

func (p *Provider) refresh(ctx context.Context, refreshToken string) (*Token, error) {
	data := url.Values{}
	data.Set("grant_type", string(RefreshToken))
	data.Set("refresh_token", refreshToken)
	token, err := p.doTokenRequest(ctx, data)
	if err != nil {
		return nil, err
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	return token, nil
}

func (p *Provider) getCacheKey() string {
	return fmt.Sprintf("%s:%s:%s", p.config.TokenURL, p.config.ClientID, strings.Join(p.config.Scopes, ","))
}

func (p *Provider) fetchToken(ctx context.Context) (*Token, error) {
	data := url.Values{}
	switch p.config.GrantType {
	case Password:
		data.Set("grant_type", string(Password))
		data.Set("username", p.config.Username)
		data.Set("password", p.config.Password)
	default:
		data.Set("grant_type", string(ClientCredentials))
	}
	if len(p.config.Scopes) > 0 {
		data.Set("scope", strings.Join(p.config.Scopes, " "))
	}
	return p.doTokenRequest(ctx, data)
}

func (p *Provider) doTokenRequest(ctx context.Context, data url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	if p.config.ClientID != "" && p.config.ClientSecret != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(p.config.ClientID + ":" + p.config.ClientSecret))
		req.Header.Set("Authorization", "Basic "+creds)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("token request failed: %s - %s", errResp.Error, errResp.ErrorDescription)
		}
		return nil, fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var token Token
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token")
	}

	if token.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	return &token, nil
}

// ParseGrant builds a Config from a compact grant description, as accepted
// by the CLI's --oauth2 flag.
// Format: client_credentials tokenUrl clientId clientSecret [scope1,scope2]
// Or: password tokenUrl clientId clientSecret username password [scope1,scope2]
func ParseGrant(params []string) (*Config, error) {
	if len(params) < 4 {
		return nil, fmt.Errorf("oauth2 requires at least: grant_type tokenUrl clientId clientSecret")
	}

	config := &Config{
		GrantType:    GrantType(params[0]),
		TokenURL:     params[1],
		ClientID:     params[2],
		ClientSecret: params[3],
	}

	switch config.GrantType {
	case ClientCredentials:
		if len(params) > 4 {
			config.Scopes = strings.Split(params[4], ",")
		}
	case Password:
		if len(params) < 6 {
			return nil, fmt.Errorf("oauth2 password grant requires: tokenUrl clientId clientSecret username password [scopes]")
		}
		config.Username = params[4]
		config.Password = params[5]
		if len(params) > 6 {
			config.Scopes = strings.Split(params[6], ",")
		}
	default:
		return nil, fmt.Errorf("unsupported OAuth2 grant type: %s", config.GrantType)
	}

	return config, nil
}
