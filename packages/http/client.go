package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/abdul-hamid-achik/hitwire/packages/codec"
	"github.com/abdul-hamid-achik/hitwire/packages/compression"
	"github.com/abdul-hamid-achik/hitwire/packages/core/config"
	"github.com/abdul-hamid-achik/hitwire/packages/logging"
	"github.com/abdul-hamid-achik/hitwire/packages/uri"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
)

// Transport sends an assembled request. *http.Client satisfies it.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// Signer decorates an outgoing request with credentials. Signers are keyed
// by Kind; installing one replaces any signer of the same kind.
type Signer interface {
	Kind() string
	Sign(req *http.Request) error
}

// Client assembles, sends and dispatches requests. Its configuration is fixed
// by NewClient; SetSigner and SetEncodings may be called concurrently with
// Execute.
type Client struct {
	transport      Transport
	timeout        time.Duration
	followRedirect bool
	maxRedirects   int
	validateSSL    bool
	proxyURL       string
	defaultHeaders http.Header

	cfg                *config.Config
	rawURI             string
	defaultURI         uri.Builder
	contentType        string
	requestContentType string

	encoders         *codec.Registry
	parsers          *codec.Parsers
	encoderOverrides []func(*codec.Registry)
	parserOverrides  []func(*codec.Parsers)
	compression      *compression.Registry
	encodings        []string
	handlers         HandlerTable
	logger           zerolog.Logger
	tracer           trace.Tracer
	propagator       propagation.TextMapPropagator

	mu         sync.RWMutex
	negotiator *compression.Negotiator
	signers    []Signer
	pending    []Signer
}

type ClientOption func(*Client)

// NewClient builds a client. Options are applied in order, so options after
// WithConfig override the configuration's values.
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := config.DefaultConfig()
	c := &Client{
		cfg:            cfg,
		timeout:        DefaultTimeout,
		followRedirect: true,
		maxRedirects:   DefaultMaxRedirects,
		validateSSL:    true,
		defaultHeaders: make(http.Header),
		contentType:    codec.Any.String(),
		handlers:       make(HandlerTable),
		logger:         zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}

	uriOpts := []uri.Option{uri.WithEncoding(c.cfg.GetURLEncoding()), uri.WithCharset(c.cfg.QueryCharset)}
	if c.rawURI != "" {
		b, err := uri.Parse(c.rawURI, uriOpts...)
		if err != nil {
			return nil, err
		}
		if !b.IsAbs() {
			return nil, &StateError{Op: "new client", Reason: fmt.Sprintf("default URI %q is not absolute", c.rawURI)}
		}
		c.defaultURI = b
	} else {
		c.defaultURI = uri.FromURL(nil, uriOpts...)
	}

	c.encoders = codec.NewRegistry(c.cfg.ContentCharsets())
	for ct, name := range c.cfg.EncodeAs {
		family, _ := codec.ParseFamily(name)
		c.encoders.EncodeAs(ct, family)
	}
	for _, override := range c.encoderOverrides {
		override(c.encoders)
	}
	c.parsers = codec.NewParsers("")
	for _, override := range c.parserOverrides {
		override(c.parsers)
	}

	c.compression = compression.NewRegistry(c.cfg.GetDeflateNoWrap())
	c.negotiator = c.compression.WithEncodings(c.encodings...)

	if c.transport == nil {
		c.transport = c.buildHTTPClient()
	}
	defaultTracing(c)

	for _, s := range c.pending {
		if err := c.SetSigner(s); err != nil {
			return nil, err
		}
	}
	c.pending = nil

	return c, nil
}

func (c *Client) buildHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
		// Compression is negotiated explicitly.
		DisableCompression: true,
	}

	// Configure TLS verification
	if !c.validateSSL {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	// Configure proxy if specified
	if c.proxyURL != "" {
		proxyURL, err := neturl.Parse(c.proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		} else {
			c.logger.Warn().Err(err).Str("proxy", c.proxyURL).Msg("ignoring invalid proxy URL")
		}
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !c.followRedirect {
			return http.ErrUseLastResponse
		}
		if len(via) >= c.maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}

	return &http.Client{
		Transport:     transport,
		Timeout:       c.timeout,
		CheckRedirect: redirectPolicy,
	}
}

// WithConfig applies a configuration value. Later options override it.
func WithConfig(cfg *config.Config) ClientOption {
	return func(c *Client) {
		if cfg == nil {
			return
		}
		c.cfg = config.DefaultConfig().Merge(cfg)
		if c.cfg.Timeout > 0 {
			c.timeout = c.cfg.TimeoutDuration()
		}
		c.followRedirect = c.cfg.GetFollowRedirects()
		if c.cfg.MaxRedirects > 0 {
			c.maxRedirects = c.cfg.MaxRedirects
		}
		c.validateSSL = c.cfg.GetValidateSSL()
		c.proxyURL = c.cfg.Proxy
		for k, v := range c.cfg.Headers {
			c.defaultHeaders.Set(k, v)
		}
		if c.cfg.BaseURI != "" {
			c.rawURI = c.cfg.BaseURI
		}
		if c.cfg.ContentType != "" {
			c.contentType = c.cfg.ContentType
		}
		c.requestContentType = c.cfg.RequestContentType
		c.encodings = slices.Clone(c.cfg.Compression)
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithFollowRedirects(follow bool) ClientOption {
	return func(c *Client) {
		c.followRedirect = follow
	}
}

func WithMaxRedirects(max int) ClientOption {
	return func(c *Client) {
		c.maxRedirects = max
	}
}

func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.defaultHeaders.Set(key, value)
	}
}

// WithDefaultHeaders sets multiple default headers for all requests
func WithDefaultHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.defaultHeaders.Set(k, v)
		}
	}
}

// WithValidateSSL enables or disables SSL certificate validation
func WithValidateSSL(validate bool) ClientOption {
	return func(c *Client) {
		c.validateSSL = validate
	}
}

// WithProxy sets the proxy URL for all requests
func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		c.proxyURL = proxyURL
	}
}

// WithTransport replaces the HTTP transport. Timeout, redirect, TLS and proxy
// options are then up to the transport.
func WithTransport(t Transport) ClientOption {
	return func(c *Client) {
		c.transport = t
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logging.WithComponent(l, "http")
	}
}

// WithDefaultURI sets the absolute URI requests are resolved against.
func WithDefaultURI(raw string) ClientOption {
	return func(c *Client) {
		c.rawURI = raw
	}
}

// WithURLEncoding enables or disables query parameter encoding.
func WithURLEncoding(enabled bool) ClientOption {
	return func(c *Client) {
		c.cfg = c.cfg.Merge(&config.Config{URLEncoding: config.BoolPtr(enabled)})
	}
}

// WithContentType sets the default content type for requests and response
// parsing.
func WithContentType(ct string) ClientOption {
	return func(c *Client) {
		c.contentType = ct
	}
}

// WithRequestContentType sets the default request body content type
// independently of response parsing.
func WithRequestContentType(ct string) ClientOption {
	return func(c *Client) {
		c.requestContentType = ct
	}
}

// WithEncoder registers a body encoder for a content type.
func WithEncoder(ct string, enc codec.Encoder) ClientOption {
	return func(c *Client) {
		c.encoderOverrides = append(c.encoderOverrides, func(r *codec.Registry) {
			r.Register(ct, enc)
		})
	}
}

// WithParser registers a response parser for a content type.
func WithParser(ct string, p codec.Parser) ClientOption {
	return func(c *Client) {
		c.parserOverrides = append(c.parserOverrides, func(r *codec.Parsers) {
			r.Register(ct, p)
		})
	}
}

// WithHandler installs a client-wide status handler.
func WithHandler(key StatusKey, h Handler) ClientOption {
	return func(c *Client) {
		c.handlers[key] = h
	}
}

// WithEncodings negotiates the given content codings, e.g. "gzip".
func WithEncodings(tokens ...string) ClientOption {
	return func(c *Client) {
		c.encodings = slices.Clone(tokens)
	}
}

// WithSigner installs a signer once the client is built. It requires a
// default URI.
func WithSigner(s Signer) ClientOption {
	return func(c *Client) {
		c.pending = append(c.pending, s)
	}
}

// SetSigner installs s, first removing any signer of the same kind. A nil
// signer removes every signer.
func (c *Client) SetSigner(s Signer) error {
	if c.defaultURI.IsZero() {
		return &StateError{Op: "set signer", Reason: "client has no default URI"}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if s == nil {
		c.signers = nil
		return nil
	}
	signers := slices.DeleteFunc(slices.Clone(c.signers), func(existing Signer) bool {
		return existing.Kind() == s.Kind()
	})
	c.signers = append(signers, s)
	c.logger.Debug().Str("kind", s.Kind()).Int("signers", len(c.signers)).Msg("signer installed")
	return nil
}

// SetEncodings replaces the negotiated content codings.
func (c *Client) SetEncodings(tokens ...string) {
	n := c.compression.WithEncodings(tokens...)
	c.mu.Lock()
	c.negotiator = n
	c.mu.Unlock()
}

// Encodings returns the negotiated content codings.
func (c *Client) Encodings() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.negotiator.Tokens()
}

// DefaultURI returns the URI requests are resolved against.
func (c *Client) DefaultURI() uri.Builder {
	return c.defaultURI
}

// Encoders returns the client's body encoder registry.
func (c *Client) Encoders() *codec.Registry {
	return c.encoders
}

// Execute assembles req, sends it, and returns the value produced by the
// selected status handler. The response body is closed before returning.
func (c *Client) Execute(ctx context.Context, req *Request) (result any, err error) {
	if req == nil {
		req = &Request{}
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	ctx, span := c.startSpan(ctx, req.method())
	status := 0
	defer func() { endSpan(span, status, err) }()

	httpReq, err := c.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	c.injectTrace(ctx, httpReq)
	negotiator := c.currentNegotiator()

	log := c.logger.With().Str(logging.FieldMethod, httpReq.Method).Str(logging.FieldURL, httpReq.URL.String()).Logger()
	log.Debug().Msg("sending request")

	start := time.Now()
	httpResp, err := c.transport.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		return nil, err
	}
	defer func() { httpResp.Body.Close() }()

	if err := negotiator.WrapResponse(httpResp); err != nil {
		return nil, err
	}
	if httpResp.Uncompressed {
		log.Debug().Msg("response decompressed")
	}
	if httpResp.Request == nil {
		httpResp.Request = httpReq
	}

	header := httpResp.Header.Get("Content-Type")
	parseType, err := resolveParseType(responseContentType(req, c.contentType), header)
	if err != nil {
		log.Debug().Str("header", header).Msg("falling back to binary parsing")
	}

	resp := newResponse(httpResp, parseType, c.parsers, duration)
	status = resp.StatusCode
	table := c.handlers.Merge(req.Handlers)
	_, key, err := table.Lookup(resp.StatusCode)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Int(logging.FieldStatus, resp.StatusCode).
		Str(logging.FieldContentType, parseType).
		Dur(logging.FieldDuration, duration).
		Str("handler", key.String()).
		Bool("entity", resp.HasEntity()).
		Msg("dispatching response")

	return Dispatch(table, resp)
}

// Prepare assembles and signs the request Execute would send without sending
// it.
func (c *Client) Prepare(ctx context.Context, req *Request) (*http.Request, error) {
	if req == nil {
		req = &Request{}
	}
	method := req.method()

	body := codec.BodyOf(req.Body)
	if body != nil && bodylessMethods[method] && !req.AllowBody {
		return nil, &StateError{Op: method, Reason: "a request body is not allowed; set AllowBody to send one"}
	}

	target, err := c.buildURI(req)
	if err != nil {
		return nil, err
	}
	if err := ValidateURL(target.String()); err != nil {
		return nil, &StateError{Op: method, Reason: "invalid request URI", Err: err}
	}

	var entity *codec.Entity
	if body != nil {
		ct := requestContentType(req, c.requestContentType, c.contentType, body)
		if v := req.Headers.Get("Content-Type"); v != "" && req.RequestContentType == "" {
			ct = v
		}
		entity, err = c.encoders.Encode(ct, body)
		if err != nil {
			return nil, err
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return nil, err
	}
	if entity != nil {
		setEntity(httpReq, entity)
	}

	if !req.ClearHeaders {
		for k, v := range c.defaultHeaders {
			httpReq.Header[k] = slices.Clone(v)
		}
	}
	for k, v := range req.Headers {
		httpReq.Header[http.CanonicalHeaderKey(k)] = slices.Clone(v)
	}
	if entity != nil && needsEntityContentType(httpReq.Header.Get("Content-Type"), entity.ContentType) {
		httpReq.Header.Set("Content-Type", entity.ContentType)
	}
	if accept := acceptFor(responseContentType(req, c.contentType)); accept != "" && httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", accept)
	}

	c.mu.RLock()
	negotiator := c.negotiator
	signers := slices.Clone(c.signers)
	c.mu.RUnlock()

	negotiator.PrepareRequest(httpReq)
	for _, s := range signers {
		if err := s.Sign(httpReq); err != nil {
			if httpReq.Body != nil {
				httpReq.Body.Close()
			}
			return nil, fmt.Errorf("sign request (%s): %w", s.Kind(), err)
		}
	}
	return httpReq, nil
}

func (c *Client) currentNegotiator() *compression.Negotiator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.negotiator
}

func (c *Client) buildURI(req *Request) (uri.Builder, error) {
	b := c.defaultURI
	if req.URI != "" {
		parsed, err := uri.Parse(req.URI)
		if err != nil {
			return b, err
		}
		if parsed.IsAbs() || b.IsZero() {
			b = parsed.Reconfigure(uri.WithEncoding(c.defaultURI.EncodingEnabled()), uri.WithCharset(c.defaultURI.Charset()))
		} else {
			b, err = b.WithPath(req.URI)
			if err != nil {
				return b, err
			}
		}
	}
	if b.IsZero() || !b.IsAbs() {
		return b, &StateError{Op: req.method(), Reason: "no absolute URI; set a default URI or Request.URI"}
	}

	if req.Path != "" {
		path := req.Path
		if len(req.PathParams) > 0 {
			expanded, err := uri.Expand(path, req.PathParams)
			if err != nil {
				return b, err
			}
			path = expanded
		}
		var err error
		b, err = b.WithPath(path)
		if err != nil {
			return b, err
		}
	}

	var err error
	b, err = b.SetQuery(req.Query)
	if err != nil {
		return b, err
	}
	return b.AddQueryParams(req.AddQuery)
}

// needsEntityContentType reports whether the encoded entity's content type
// must replace the caller's header. Multipart entities carry the boundary the
// body was written with, so a bare multipart header is replaced.
func needsEntityContentType(header, entityType string) bool {
	if header == "" {
		return true
	}
	family, ok := codec.FamilyOf(entityType)
	return ok && family == codec.Multipart && codec.SameKey(header, entityType)
}

func setEntity(req *http.Request, entity *codec.Entity) {
	if entity.Replayable() {
		data := entity.Data
		req.Body = http.NoBody
		if len(data) > 0 {
			req.Body = readCloser(data)
			req.GetBody = func() (io.ReadCloser, error) {
				return readCloser(data), nil
			}
		}
		req.ContentLength = int64(len(data))
		return
	}
	if rc, ok := entity.Stream.(io.ReadCloser); ok {
		req.Body = rc
	} else {
		req.Body = io.NopCloser(entity.Stream)
	}
	req.ContentLength = entity.Length
	if req.ContentLength == 0 {
		// Zero would mean "no body" to the transport.
		req.ContentLength = -1
	}
}

func readCloser(data []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(data))
}

func acceptFor(ct string) string {
	if codec.IsAny(ct) {
		return ""
	}
	if family, ok := codec.FamilyOf(ct); ok && family != codec.Any {
		return strings.Join(family.Strings(), ", ")
	}
	return codec.Key(ct)
}

func (c *Client) Get(ctx context.Context, req *Request) (any, error) {
	return c.Execute(ctx, withMethod(req, http.MethodGet))
}

func (c *Client) Post(ctx context.Context, req *Request) (any, error) {
	return c.Execute(ctx, withMethod(req, http.MethodPost))
}

func (c *Client) Put(ctx context.Context, req *Request) (any, error) {
	return c.Execute(ctx, withMethod(req, http.MethodPut))
}

func (c *Client) Patch(ctx context.Context, req *Request) (any, error) {
	return c.Execute(ctx, withMethod(req, http.MethodPatch))
}

func (c *Client) Delete(ctx context.Context, req *Request) (any, error) {
	return c.Execute(ctx, withMethod(req, http.MethodDelete))
}

func (c *Client) Head(ctx context.Context, req *Request) (any, error) {
	return c.Execute(ctx, withMethod(req, http.MethodHead))
}

func (c *Client) Options(ctx context.Context, req *Request) (any, error) {
	return c.Execute(ctx, withMethod(req, http.MethodOptions))
}

func withMethod(req *Request, method string) *Request {
	var r Request
	if req != nil {
		r = *req
	}
	r.Method = method
	return &r
}

// ValidateURL checks that a URL is well-formed and uses an allowed scheme
func ValidateURL(rawURL string) error {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}

	// Check for valid scheme
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %s (only http and https are allowed)", u.Scheme)
	}

	// Check for valid host
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}

	return nil
}
