package config

import "github.com/abdul-hamid-achik/hitwire/packages/charset"

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		URLEncoding:     BoolPtr(true),
		QueryCharset:    charset.UTF8,
		ContentCharset:  charset.ISO88591,
		AppendCharset:   BoolPtr(true),
		DeflateNoWrap:   BoolPtr(false),
		ContentType:     "*/*",
		Timeout:         30000, // 30 seconds
		FollowRedirects: BoolPtr(true),
		MaxRedirects:    10,
		ValidateSSL:     BoolPtr(true),
		OAuthEmptyToken: BoolPtr(false),
		LogLevel:        "info",
		LogFormat:       "console",
		Verbose:         BoolPtr(false),
		NoColor:         BoolPtr(false),
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.BaseURI == defaults.BaseURI &&
		c.GetURLEncoding() == defaults.GetURLEncoding() &&
		c.QueryCharset == defaults.QueryCharset &&
		c.ContentCharset == defaults.ContentCharset &&
		len(c.Charsets) == 0 &&
		len(c.EncodeAs) == 0 &&
		len(c.Compression) == 0 &&
		len(c.Headers) == 0 &&
		c.ContentType == defaults.ContentType &&
		c.RequestContentType == defaults.RequestContentType &&
		c.Timeout == defaults.Timeout &&
		c.GetFollowRedirects() == defaults.GetFollowRedirects() &&
		c.MaxRedirects == defaults.MaxRedirects &&
		c.GetValidateSSL() == defaults.GetValidateSSL() &&
		c.Proxy == defaults.Proxy &&
		c.GetDeflateNoWrap() == defaults.GetDeflateNoWrap() &&
		c.GetOAuthEmptyToken() == defaults.GetOAuthEmptyToken()
}
