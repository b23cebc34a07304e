package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitwire/packages/auth"
	"github.com/abdul-hamid-achik/hitwire/packages/auth/jwt"
	"github.com/abdul-hamid-achik/hitwire/packages/auth/oauth2"
	"github.com/abdul-hamid-achik/hitwire/packages/capture"
	"github.com/abdul-hamid-achik/hitwire/packages/codec"
	"github.com/abdul-hamid-achik/hitwire/packages/core/config"
	"github.com/abdul-hamid-achik/hitwire/packages/core/env"
	hithttp "github.com/abdul-hamid-achik/hitwire/packages/http"
	"github.com/abdul-hamid-achik/hitwire/packages/logging"
	"github.com/abdul-hamid-achik/hitwire/packages/output"
	"github.com/abdul-hamid-achik/hitwire/packages/schema"
	"github.com/abdul-hamid-achik/hitwire/packages/uri"
)

type requestFlags struct {
	headers            []string
	query              []string
	data               string
	dataFile           string
	contentType        string
	requestContentType string
	compressed         []string
	bearer             string
	oauth2             string
	jwtSecret          string
	jwtMethod          string
	jwtSubject         string
	jwtIssuer          string
	jwtAudience        []string
	jwtTTL             time.Duration
	oauthConsumerKey   string
	oauthConsumerSec   string
	oauthToken         string
	oauthTokenSecret   string
	oauthQuery         bool
	noURLEncoding      bool
	extract            []string
	schemaFile         string
	dryRun             bool
	configFile         string
	timeout            string
	insecure           bool
	proxy              string
	verbose            bool
	noColor            bool
	output             string
	vars               []string
	envFile            string
}

var requestCmd = newRequestCmd()

func newRequestCmd() *cobra.Command {
	f := &requestFlags{}
	cmd := &cobra.Command{
		Use:   "request <METHOD> <URL>",
		Short: "Send an HTTP request and print the parsed response",
		Long: `Send one HTTP request. The body is encoded according to its content
type and the response is decompressed and parsed by content type.

Examples:
  hitwire request GET https://api.example.com/users -q page=2
  hitwire request POST /users -d '{"name":"Ann"}' --content-type application/json
  hitwire request POST /login -d 'user=ann&pass=x' --request-content-type application/x-www-form-urlencoded
  hitwire request GET /me --bearer $TOKEN --extract data.id
  hitwire request GET /photos --oauth-consumer-key k --oauth-consumer-secret s --dry-run
  hitwire request GET 'https://{{host}}/me' --var host=api.example.com --bearer '{{$API_TOKEN}}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, f, args[0], args[1])
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&f.headers, "header", "H", nil, "Request header as 'Name: value' (repeatable)")
	flags.StringArrayVarP(&f.query, "query", "q", nil, "Query parameter as name=value, or a bare name (repeatable)")
	flags.StringVarP(&f.data, "data", "d", "", "Request body")
	flags.StringVar(&f.dataFile, "data-file", "", "Send the contents of a file as the request body")
	flags.StringVar(&f.contentType, "content-type", "", "Content type for the request body and response parsing")
	flags.StringVar(&f.requestContentType, "request-content-type", "", "Content type for the request body only")
	flags.StringSliceVar(&f.compressed, "compressed", nil, "Negotiate content codings, e.g. gzip,deflate")
	flags.StringVar(&f.bearer, "bearer", getEnvString("HITWIRE_BEARER", ""), "Bearer token (env: HITWIRE_BEARER)")
	flags.StringVar(&f.oauth2, "oauth2", "", "Fetch a bearer token: 'grant tokenUrl clientId clientSecret [user pass] [scopes]'")
	flags.StringVar(&f.jwtSecret, "jwt-secret", getEnvString("HITWIRE_JWT_SECRET", ""), "Sign a bearer JWT with this HMAC secret (env: HITWIRE_JWT_SECRET)")
	flags.StringVar(&f.jwtMethod, "jwt-method", "HS256", "JWT signing method: HS256, HS384, HS512")
	flags.StringVar(&f.jwtSubject, "jwt-subject", "", "JWT sub claim")
	flags.StringVar(&f.jwtIssuer, "jwt-issuer", "", "JWT iss claim")
	flags.StringSliceVar(&f.jwtAudience, "jwt-audience", nil, "JWT aud claim (repeatable)")
	flags.DurationVar(&f.jwtTTL, "jwt-ttl", 5*time.Minute, "JWT lifetime")
	flags.StringVar(&f.oauthConsumerKey, "oauth-consumer-key", "", "OAuth 1.0a consumer key")
	flags.StringVar(&f.oauthConsumerSec, "oauth-consumer-secret", "", "OAuth 1.0a consumer secret")
	flags.StringVar(&f.oauthToken, "oauth-token", "", "OAuth 1.0a access token")
	flags.StringVar(&f.oauthTokenSecret, "oauth-token-secret", "", "OAuth 1.0a access token secret")
	flags.BoolVar(&f.oauthQuery, "oauth-query", false, "Place OAuth credentials in the query string instead of the Authorization header")
	flags.BoolVar(&f.noURLEncoding, "no-url-encoding", false, "Send query parameters exactly as given")
	flags.StringArrayVar(&f.extract, "extract", nil, "Print only captured values: [name=]path, header:Name, status (repeatable)")
	flags.StringVar(&f.schemaFile, "schema", "", "Validate the response body against a JSON schema file")
	flags.BoolVar(&f.dryRun, "dry-run", false, "Print the assembled request without sending it")
	flags.StringVar(&f.configFile, "config", getEnvString("HITWIRE_CONFIG", ""), "Path to config file (env: HITWIRE_CONFIG)")
	flags.StringVar(&f.timeout, "timeout", getEnvString("HITWIRE_TIMEOUT", ""), "Request timeout (e.g., 30s, 1m) (env: HITWIRE_TIMEOUT)")
	flags.BoolVarP(&f.insecure, "insecure", "k", getEnvBool("HITWIRE_INSECURE", false), "Disable SSL certificate validation (env: HITWIRE_INSECURE)")
	flags.StringVar(&f.proxy, "proxy", getEnvString("HITWIRE_PROXY", ""), "Proxy URL for HTTP requests (env: HITWIRE_PROXY)")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "Print response headers and debug logs")
	flags.BoolVar(&f.noColor, "no-color", getEnvBool("HITWIRE_NO_COLOR", false), "Disable colored output (env: HITWIRE_NO_COLOR)")
	flags.StringVarP(&f.output, "output", "o", "console", "Output format: console, json")
	flags.StringArrayVar(&f.vars, "var", nil, "Variable for {{name}} references as name=value (repeatable)")
	flags.StringVar(&f.envFile, "env-file", getEnvString("HITWIRE_ENV_FILE", ""), "Read {{$NAME}} references from a .env file (env: HITWIRE_ENV_FILE)")
	registerRequestCompletions(cmd)
	return cmd
}

func runRequest(cmd *cobra.Command, f *requestFlags, method, target string) error {
	cfg, err := config.LoadConfig(f.configFile)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	verbose := f.verbose || cfg.GetVerbose()
	noColor := f.noColor || cfg.GetNoColor()

	formatter, err := newFormatter(f.output, cmd.OutOrStdout(), verbose, noColor)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	logger := newLogger(cfg, cmd.ErrOrStderr(), verbose, noColor)

	resolver, err := newResolver(f, logger)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	f, target = resolveReferences(resolver, f, target)
	cfg = resolveConfig(resolver, cfg)

	opts, err := clientOptions(cfg, f, logger, target)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	client, err := hithttp.NewClient(opts...)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	req, err := buildRequest(f, method, target)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	if f.dryRun {
		httpReq, err := client.Prepare(cmd.Context(), req)
		if err != nil {
			formatter.FormatError(err)
			return &exitError{code: exitCodeFor(err), err: err, reported: true}
		}
		formatter.FormatRequest(httpReq)
		return nil
	}

	success, err := successHandler(f)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	var exchange *output.Exchange
	req.Handle(hithttp.Success, recordExchange(success, &exchange))

	if _, err := client.Execute(cmd.Context(), req); err != nil {
		formatter.FormatError(err)
		return &exitError{code: exitCodeFor(err), err: err, reported: true}
	}
	if exchange != nil {
		formatter.FormatExchange(exchange)
	}
	return nil
}

func newFormatter(format string, out io.Writer, verbose, noColor bool) (output.Formatter, error) {
	switch strings.ToLower(format) {
	case "", "console":
		return output.NewConsoleFormatter(
			output.WithWriter(out),
			output.WithVerbose(verbose),
			output.WithNoColor(noColor),
		), nil
	case "json":
		return output.NewJSONFormatter(output.WithJSONWriter(out)), nil
	}
	return nil, fmt.Errorf("unknown output format %q (use console or json)", format)
}

func newLogger(cfg *config.Config, out io.Writer, verbose, noColor bool) zerolog.Logger {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	return logging.New(logging.Config{
		Level:   level,
		Format:  cfg.LogFormat,
		NoColor: noColor,
	}, out)
}

func newResolver(f *requestFlags, logger zerolog.Logger) (*env.Resolver, error) {
	vars, err := env.ParseVariables(f.vars)
	if err != nil {
		return nil, err
	}
	opts := []env.Option{
		env.WithVariables(vars),
		env.WithMissingFunc(func(ref string) {
			logger.Warn().Str("reference", ref).Msg("unresolved reference left as written")
		}),
	}
	if f.envFile != "" {
		fileVars, err := env.LoadDotEnv(f.envFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, env.WithLookup(env.FileLookup(fileVars)))
	}
	return env.NewResolver(opts...), nil
}

// resolveReferences returns a copy of the flags with every value that goes on
// the wire expanded.
func resolveReferences(r *env.Resolver, f *requestFlags, target string) (*requestFlags, string) {
	resolved := *f
	resolved.headers = r.ResolveAll(f.headers)
	resolved.query = r.ResolveAll(f.query)
	resolved.data = r.Resolve(f.data)
	resolved.bearer = r.Resolve(f.bearer)
	resolved.oauth2 = r.Resolve(f.oauth2)
	resolved.jwtSecret = r.Resolve(f.jwtSecret)
	resolved.jwtSubject = r.Resolve(f.jwtSubject)
	resolved.oauthConsumerKey = r.Resolve(f.oauthConsumerKey)
	resolved.oauthConsumerSec = r.Resolve(f.oauthConsumerSec)
	resolved.oauthToken = r.Resolve(f.oauthToken)
	resolved.oauthTokenSecret = r.Resolve(f.oauthTokenSecret)
	resolved.proxy = r.Resolve(f.proxy)
	return &resolved, r.Resolve(target)
}

func resolveConfig(r *env.Resolver, cfg *config.Config) *config.Config {
	return cfg.Merge(&config.Config{
		BaseURI: r.Resolve(cfg.BaseURI),
		Proxy:   r.Resolve(cfg.Proxy),
		Headers: r.ResolveMap(cfg.Headers),
	})
}

func clientOptions(cfg *config.Config, f *requestFlags, logger zerolog.Logger, target string) ([]hithttp.ClientOption, error) {
	opts := []hithttp.ClientOption{
		hithttp.WithConfig(cfg),
		hithttp.WithLogger(logger),
	}

	if isAbsoluteURL(target) {
		opts = append(opts, hithttp.WithDefaultURI(target))
	}
	if f.timeout != "" {
		d, err := time.ParseDuration(f.timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout: %w", err)
		}
		opts = append(opts, hithttp.WithTimeout(d))
	}
	if f.insecure {
		opts = append(opts, hithttp.WithValidateSSL(false))
	}
	if f.proxy != "" {
		opts = append(opts, hithttp.WithProxy(f.proxy))
	}
	if f.noURLEncoding {
		opts = append(opts, hithttp.WithURLEncoding(false))
	}
	if len(f.compressed) > 0 {
		opts = append(opts, hithttp.WithEncodings(f.compressed...))
	}
	if f.contentType != "" {
		opts = append(opts, hithttp.WithContentType(f.contentType))
	}

	signer, err := signerFor(cfg, f)
	if err != nil {
		return nil, err
	}
	if signer != nil {
		opts = append(opts, hithttp.WithSigner(signer))
	}
	return opts, nil
}

func signerFor(cfg *config.Config, f *requestFlags) (hithttp.Signer, error) {
	placement := auth.Header
	if f.oauthQuery {
		placement = auth.QueryString
	}

	switch {
	case f.oauthConsumerKey != "":
		return auth.NewOAuth1Signer(auth.Credentials{
			ConsumerKey:    f.oauthConsumerKey,
			ConsumerSecret: f.oauthConsumerSec,
			Token:          f.oauthToken,
			TokenSecret:    f.oauthTokenSecret,
		}, placement, auth.WithEmptyToken(cfg.GetOAuthEmptyToken())), nil
	case f.oauth2 != "":
		grant, err := oauth2.ParseGrant(strings.Fields(f.oauth2))
		if err != nil {
			return nil, err
		}
		return auth.NewBearerSignerFrom(oauth2.NewProvider(grant), placement), nil
	case f.jwtSecret != "":
		src, err := jwt.NewSource(jwt.Config{
			Secret:   f.jwtSecret,
			Method:   jwt.SigningMethod(strings.ToUpper(f.jwtMethod)),
			Subject:  f.jwtSubject,
			Issuer:   f.jwtIssuer,
			Audience: f.jwtAudience,
			TTL:      f.jwtTTL,
		})
		if err != nil {
			return nil, err
		}
		return auth.NewBearerSignerFrom(src, placement), nil
	case f.bearer != "":
		return auth.NewBearerSigner(f.bearer, placement), nil
	}
	return nil, nil
}

func buildRequest(f *requestFlags, method, target string) (*hithttp.Request, error) {
	req := hithttp.NewRequest(method, "")
	if !isAbsoluteURL(target) {
		req.Path = target
	}
	req.ContentType = f.contentType
	req.RequestContentType = f.requestContentType
	// The command line is explicit about bodies, so any verb may carry one.
	req.AllowBody = true

	for _, h := range f.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q (expected 'Name: value')", h)
		}
		req.AddHeader(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	for _, q := range f.query {
		name, value, ok := strings.Cut(q, "=")
		if !ok {
			req.SetQueryParam(name, uri.NoValue)
			continue
		}
		req.SetQueryParam(name, value)
	}

	switch {
	case f.data != "" && f.dataFile != "":
		return nil, fmt.Errorf("--data and --data-file are mutually exclusive")
	case f.data != "":
		req.SetBody(codec.Text(f.data))
	case f.dataFile != "":
		if _, err := os.Stat(f.dataFile); err != nil {
			return nil, fmt.Errorf("data file: %w", err)
		}
		req.SetBody(codec.File{Path: f.dataFile})
	}
	return req, nil
}

func successHandler(f *requestFlags) (hithttp.Handler, error) {
	var handler hithttp.Handler = hithttp.HandlerFunc(hithttp.DefaultSuccess)
	if len(f.extract) > 0 {
		captures := make([]*capture.Capture, 0, len(f.extract))
		for _, expr := range f.extract {
			c, err := capture.Parse(expr)
			if err != nil {
				return nil, err
			}
			captures = append(captures, c)
		}
		handler = capture.Handler(captures)
	}
	if f.schemaFile != "" {
		validator, err := schema.Load(f.schemaFile, "")
		if err != nil {
			return nil, err
		}
		handler = validator.Handler(handler)
	}
	return handler, nil
}

func recordExchange(next hithttp.Handler, into **output.Exchange) hithttp.Handler {
	return hithttp.HandlerFunc(func(resp *hithttp.Response) (any, error) {
		v, err := next.Handle(resp)
		if err != nil {
			return nil, err
		}
		ex := &output.Exchange{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Headers:    resp.Headers,
			Duration:   resp.Duration,
			Value:      v,
		}
		if resp.Request != nil {
			ex.Method = resp.Request.Method
			ex.URL = resp.Request.URL.String()
		}
		*into = ex
		return v, nil
	})
}

func isAbsoluteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
