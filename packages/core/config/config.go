package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/hitwire/packages/charset"
	"github.com/abdul-hamid-achik/hitwire/packages/codec"
)

// Config represents the hitwire configuration
type Config struct {
	BaseURI            string            `json:"baseUri,omitempty" yaml:"baseUri,omitempty"`
	URLEncoding        *bool             `json:"urlEncoding,omitempty" yaml:"urlEncoding,omitempty"`
	QueryCharset       string            `json:"queryCharset,omitempty" yaml:"queryCharset,omitempty"`
	ContentCharset     string            `json:"contentCharset,omitempty" yaml:"contentCharset,omitempty"`
	Charsets           map[string]string `json:"charsets,omitempty" yaml:"charsets,omitempty"` // content type -> default charset
	AppendCharset      *bool             `json:"appendCharset,omitempty" yaml:"appendCharset,omitempty"`
	EncodeAs           map[string]string `json:"encodeAs,omitempty" yaml:"encodeAs,omitempty"` // content type -> family
	Compression        []string          `json:"compression,omitempty" yaml:"compression,omitempty"`
	DeflateNoWrap      *bool             `json:"deflateNoWrap,omitempty" yaml:"deflateNoWrap,omitempty"`
	Headers            map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"` // Default headers for all requests
	ContentType        string            `json:"contentType,omitempty" yaml:"contentType,omitempty"`
	RequestContentType string            `json:"requestContentType,omitempty" yaml:"requestContentType,omitempty"`
	Timeout            int               `json:"timeout,omitempty" yaml:"timeout,omitempty" validate:"min=0"` // milliseconds
	FollowRedirects    *bool             `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty"`
	MaxRedirects       int               `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty" validate:"min=0"`
	ValidateSSL        *bool             `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty"`
	Proxy              string            `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	OAuthEmptyToken    *bool             `json:"oauthEmptyToken,omitempty" yaml:"oauthEmptyToken,omitempty"`
	LogLevel           string            `json:"logLevel,omitempty" yaml:"logLevel,omitempty" validate:"omitempty,oneof=trace debug info warn error disabled"`
	LogFormat          string            `json:"logFormat,omitempty" yaml:"logFormat,omitempty" validate:"omitempty,oneof=console json pretty"`
	Verbose            *bool             `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor            *bool             `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetURLEncoding returns the query encoding setting, defaulting to true
func (c *Config) GetURLEncoding() bool {
	return getBool(c.URLEncoding, true)
}

// GetAppendCharset returns whether textual content types get a charset
// parameter appended, defaulting to true
func (c *Config) GetAppendCharset() bool {
	return getBool(c.AppendCharset, true)
}

// GetDeflateNoWrap returns the raw deflate setting, defaulting to false
func (c *Config) GetDeflateNoWrap() bool {
	return getBool(c.DeflateNoWrap, false)
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetOAuthEmptyToken returns whether an empty oauth_token takes part in the
// signature base string, defaulting to false
func (c *Config) GetOAuthEmptyToken() bool {
	return getBool(c.OAuthEmptyToken, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// TimeoutDuration returns Timeout as a duration
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// ContentCharsets builds the charset defaults for the content codec.
func (c *Config) ContentCharsets() codec.Charsets {
	cs := codec.DefaultCharsets()
	if c.ContentCharset != "" {
		cs.Default = c.ContentCharset
	}
	if c.QueryCharset != "" {
		cs.Query = c.QueryCharset
	}
	cs.AppendDefault = c.GetAppendCharset()
	for _, ct := range slices.Sorted(maps.Keys(c.Charsets)) {
		cs = cs.With(ct, c.Charsets[ct])
	}
	return cs
}

// Validate checks charset names, encodeAs families and numeric ranges.
func (c *Config) Validate() error {
	for _, name := range []string{c.QueryCharset, c.ContentCharset} {
		if name == "" {
			continue
		}
		if _, err := charset.Lookup(name); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	for ct, name := range c.Charsets {
		if _, err := charset.Lookup(name); err != nil {
			return fmt.Errorf("config: charset for %s: %w", ct, err)
		}
	}
	for ct, family := range c.EncodeAs {
		if _, ok := codec.ParseFamily(family); !ok {
			return fmt.Errorf("config: encodeAs %s: unknown content type family %q", ct, family)
		}
	}
	return validateFields(c)
}

var (
	fieldValidator *validator.Validate
	validatorOnce  sync.Once
)

func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		fieldValidator = validator.New(validator.WithRequiredStructEnabled())
		// Report fields under their file names.
		fieldValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return fieldValidator
}

// validateFields checks the validate struct tags.
func validateFields(c *Config) error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config: %w", err)
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		messages = append(messages, e.Field()+" "+describeFieldError(e))
	}
	return fmt.Errorf("config: %s", strings.Join(messages, "; "))
}

func describeFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "min":
		return "must be at least " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".hitwire.json",
	"hitwire.config.json",
	".hitwire.yml",
	".hitwire.yaml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yml" || ext == ".yaml"
}

// Merge merges another config into a copy of this one, with other taking
// precedence. Neither input is modified.
func (c *Config) Merge(other *Config) *Config {
	result := *c // Copy
	result.Headers = maps.Clone(c.Headers)
	result.Charsets = maps.Clone(c.Charsets)
	result.EncodeAs = maps.Clone(c.EncodeAs)
	result.Compression = slices.Clone(c.Compression)

	if other == nil {
		return &result
	}

	if other.BaseURI != "" {
		result.BaseURI = other.BaseURI
	}
	if other.QueryCharset != "" {
		result.QueryCharset = other.QueryCharset
	}
	if other.ContentCharset != "" {
		result.ContentCharset = other.ContentCharset
	}
	if other.ContentType != "" {
		result.ContentType = other.ContentType
	}
	if other.RequestContentType != "" {
		result.RequestContentType = other.RequestContentType
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.LogLevel != "" {
		result.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		result.LogFormat = other.LogFormat
	}

	// Boolean flags - only override if explicitly set in other config
	if other.URLEncoding != nil {
		result.URLEncoding = other.URLEncoding
	}
	if other.AppendCharset != nil {
		result.AppendCharset = other.AppendCharset
	}
	if other.DeflateNoWrap != nil {
		result.DeflateNoWrap = other.DeflateNoWrap
	}
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.OAuthEmptyToken != nil {
		result.OAuthEmptyToken = other.OAuthEmptyToken
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	result.Headers = mergeMap(result.Headers, other.Headers)
	result.Charsets = mergeMap(result.Charsets, other.Charsets)
	result.EncodeAs = mergeMap(result.EncodeAs, other.EncodeAs)

	if len(other.Compression) > 0 {
		result.Compression = slices.Clone(other.Compression)
	}

	return &result
}

func mergeMap(dst, src map[string]string) map[string]string {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// SaveConfig saves the configuration to a file, as YAML when the path ends in
// .yml or .yaml
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
