package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitwire/packages/auth"
	"github.com/abdul-hamid-achik/hitwire/packages/codec"
	"github.com/abdul-hamid-achik/hitwire/packages/core/config"
	hithttp "github.com/abdul-hamid-achik/hitwire/packages/http"
	"github.com/abdul-hamid-achik/hitwire/packages/schema"
	"github.com/abdul-hamid-achik/hitwire/packages/uri"
)

// runCLI executes a fresh request command and returns what it printed.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRequestCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decodeJSONOutput(t *testing.T, out string) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc), out)
	return doc
}

func TestRequest_JSONOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":7,"name":"ann"}`)
	}))
	defer server.Close()

	out, err := runCLI(t, "GET", server.URL+"/users", "-q", "page=2", "-H", "X-Test: yes", "-o", "json")
	require.NoError(t, err)

	doc := decodeJSONOutput(t, out)
	assert.Equal(t, float64(200), doc["statusCode"])
	assert.Equal(t, "GET", doc["method"])
	body, ok := doc["body"].(map[string]any)
	require.True(t, ok, "body should be decoded JSON, got %T", doc["body"])
	assert.Equal(t, "ann", body["name"])
}

func TestRequest_ConsoleOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "pong")
	}))
	defer server.Close()

	out, err := runCLI(t, "GET", server.URL+"/ping", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "200 OK")
	assert.Contains(t, out, "pong")
}

func TestRequest_Extract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Trace", "abc123")
		fmt.Fprint(w, `{"data":{"id":42}}`)
	}))
	defer server.Close()

	out, err := runCLI(t, "GET", server.URL,
		"--extract", "uid=data.id",
		"--extract", "trace=header:X-Trace",
		"--extract", "code=status",
		"-o", "json")
	require.NoError(t, err)

	body, ok := decodeJSONOutput(t, out)["body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(42), body["uid"])
	assert.Equal(t, "abc123", body["trace"])
	assert.Equal(t, float64(200), body["code"])
}

func TestRequest_DryRunDoesNotSend(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	out, err := runCLI(t, "POST", server.URL+"/users",
		"-q", "flag",
		"-d", `{"name":"ann"}`,
		"--content-type", "application/json",
		"--dry-run", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))

	doc := decodeJSONOutput(t, out)
	assert.Equal(t, "POST", doc["method"])
	assert.Equal(t, server.URL+"/users?flag", doc["url"])
	headers, ok := doc["headers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"application/json; charset=UTF-8"}, headers["Content-Type"])
}

func TestRequest_StatusFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"missing"}`)
	}))
	defer server.Close()

	out, err := runCLI(t, "GET", server.URL+"/nope", "-o", "json")
	require.Error(t, err)

	var exitErr *exitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, ExitStatusFailure, exitErr.code)
	assert.True(t, exitErr.reported)

	doc := decodeJSONOutput(t, out)
	assert.Equal(t, float64(404), doc["statusCode"])
	body, ok := doc["body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "missing", body["error"])
}

func TestRequest_BearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	_, err := runCLI(t, "GET", server.URL, "--bearer", "s3cret")
	require.NoError(t, err)
}

func TestRequest_OAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Authorization"), `oauth_consumer_key="ck"`)
		assert.Contains(t, r.Header.Get("Authorization"), `oauth_signature_method="HMAC-SHA1"`)
	}))
	defer server.Close()

	_, err := runCLI(t, "GET", server.URL,
		"--oauth-consumer-key", "ck",
		"--oauth-consumer-secret", "cs",
		"--oauth-token", "tk",
		"--oauth-token-secret", "ts")
	require.NoError(t, err)
}

func TestRequest_SchemaValidation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"not-a-number"}`)
	}))
	defer server.Close()

	schemaFile := filepath.Join(t.TempDir(), "user.json")
	require.NoError(t, os.WriteFile(schemaFile, []byte(`{
		"type": "object",
		"required": ["id"],
		"properties": {"id": {"type": "integer"}}
	}`), 0644))

	_, err := runCLI(t, "GET", server.URL, "--schema", schemaFile, "-o", "json")
	require.Error(t, err)
	assert.Equal(t, ExitValidationError, exitCodeFor(err))
}

func TestRequest_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad output format", []string{"GET", "http://localhost", "-o", "xml"}},
		{"bad timeout", []string{"GET", "http://localhost", "--timeout", "soon"}},
		{"bad header", []string{"GET", "http://localhost", "-H", "no-colon"}},
		{"bad capture", []string{"GET", "http://localhost", "--extract", " "}},
		{"bad oauth2 grant", []string{"GET", "http://localhost", "--oauth2", "magic http://x id secret"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			require.Error(t, err)
			var exitErr *exitError
			require.True(t, errors.As(err, &exitErr))
			assert.Equal(t, ExitUsageError, exitErr.code)
		})
	}
}

func TestRequest_MissingConfigFile(t *testing.T) {
	_, err := runCLI(t, "GET", "http://localhost", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	var exitErr *exitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, ExitConfigError, exitErr.code)
}

func TestRequest_ConfigBaseURI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/items", r.URL.Path)
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "items")
	}))
	defer server.Close()

	cfgFile := filepath.Join(t.TempDir(), ".hitwire.yaml")
	cfg := config.DefaultConfig()
	cfg.BaseURI = server.URL + "/api/"
	require.NoError(t, cfg.SaveConfig(cfgFile))

	out, err := runCLI(t, "GET", "items", "--config", cfgFile, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "items")
}

func TestRequest_References(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/42", r.URL.Path)
		assert.Equal(t, "Bearer from-file", r.Header.Get("Authorization"))
		assert.Equal(t, "{{unknown}}", r.Header.Get("X-Kept"))
	}))
	defer server.Close()

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("HITWIRE_TEST_TOKEN=from-file\n"), 0644))

	_, err := runCLI(t, "GET", server.URL+"/users/{{id}}",
		"--var", "id=42",
		"--env-file", envFile,
		"--bearer", "{{$HITWIRE_TEST_TOKEN}}",
		"-H", "X-Kept: {{unknown}}")
	require.NoError(t, err)
}

func TestRequest_InvalidVariable(t *testing.T) {
	_, err := runCLI(t, "GET", "http://localhost", "--var", "novalue")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, exitCodeFor(err))
}

func TestBuildRequest(t *testing.T) {
	f := &requestFlags{
		headers:            []string{"Accept: text/csv", "X-Empty:"},
		query:              []string{"q=a b", "flag"},
		data:               "a=1",
		requestContentType: "application/x-www-form-urlencoded",
	}
	req, err := buildRequest(f, "PUT", "/items/{id}")
	require.NoError(t, err)

	assert.Equal(t, "PUT", req.Method)
	assert.Equal(t, "/items/{id}", req.Path)
	assert.True(t, req.AllowBody)
	assert.Equal(t, "text/csv", req.Headers.Get("Accept"))
	assert.Equal(t, []string{""}, req.Headers.Values("X-Empty"))
	assert.Equal(t, "application/x-www-form-urlencoded", req.RequestContentType)
	assert.Equal(t, codec.Text("a=1"), req.Body)
}

func TestBuildRequest_AbsoluteTargetLeavesPathEmpty(t *testing.T) {
	req, err := buildRequest(&requestFlags{}, "GET", "https://api.example.com/x")
	require.NoError(t, err)
	assert.Empty(t, req.Path)
	assert.Nil(t, req.Body)
}

func TestBuildRequest_Errors(t *testing.T) {
	tests := []struct {
		name  string
		flags *requestFlags
	}{
		{"header without colon", &requestFlags{headers: []string{"Accept"}}},
		{"header without name", &requestFlags{headers: []string{": value"}}},
		{"data and data file", &requestFlags{data: "x", dataFile: "y"}},
		{"missing data file", &requestFlags{dataFile: filepath.Join(os.TempDir(), "hitwire-does-not-exist")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildRequest(tt.flags, "POST", "/x")
			assert.Error(t, err)
		})
	}
}

func TestSignerFor(t *testing.T) {
	cfg := config.DefaultConfig()

	s, err := signerFor(cfg, &requestFlags{})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = signerFor(cfg, &requestFlags{bearer: "tok"})
	require.NoError(t, err)
	assert.IsType(t, &auth.BearerSigner{}, s)

	s, err = signerFor(cfg, &requestFlags{jwtSecret: "k", jwtMethod: "hs512", bearer: "tok"})
	require.NoError(t, err)
	assert.IsType(t, &auth.BearerSigner{}, s)

	_, err = signerFor(cfg, &requestFlags{jwtSecret: "k", jwtMethod: "RS256"})
	assert.Error(t, err)

	s, err = signerFor(cfg, &requestFlags{bearer: "tok", oauthConsumerKey: "ck"})
	require.NoError(t, err)
	assert.IsType(t, &auth.OAuth1Signer{}, s)
	assert.Equal(t, auth.KindOAuth, s.Kind())
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"status", &hithttp.StatusError{StatusCode: 500}, ExitStatusFailure},
		{"wrapped status", fmt.Errorf("call: %w", &hithttp.StatusError{StatusCode: 404}), ExitStatusFailure},
		{"parse", &hithttp.ParseError{ContentType: "application/json", Err: io.ErrUnexpectedEOF}, ExitParseError},
		{"validation", &schema.ValidationError{Errors: []string{"id: required"}}, ExitValidationError},
		{"state", &hithttp.StateError{Op: "GET", Reason: "body not allowed"}, ExitUsageError},
		{"unencodable", &codec.UnencodableError{ContentType: "application/pdf"}, ExitUsageError},
		{"uri syntax", &uri.SyntaxError{Input: "::", Reason: "bad"}, ExitUsageError},
		{"network", errors.New("dial tcp: connection refused"), ExitNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCodeFor(tt.err))
		})
	}
}

func TestInitWritesConfig(t *testing.T) {
	dir := t.TempDir()
	forceInit, initBaseURI, initJSON = false, "https://api.example.com", false
	defer func() { forceInit, initBaseURI, initJSON = false, "", false }()

	var out bytes.Buffer
	initCmd.SetOut(&out)
	defer initCmd.SetOut(nil)

	require.NoError(t, writeInitConfig(initCmd, dir))
	assert.Contains(t, out.String(), "Created:")

	cfg, err := config.FindAndLoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.BaseURI)
	assert.Equal(t, []string{"gzip", "deflate"}, cfg.Compression)

	err = writeInitConfig(initCmd, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	forceInit = true
	assert.NoError(t, writeInitConfig(initCmd, dir))
}

func TestRequestCompletions(t *testing.T) {
	cmd := newRequestCmd()

	methods, directive := cmd.ValidArgsFunction(cmd, nil, "")
	assert.Contains(t, methods, "PATCH")
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)

	rest, _ := cmd.ValidArgsFunction(cmd, []string{"GET"}, "")
	assert.Empty(t, rest)

}

func TestRequestFlagCompletion(t *testing.T) {
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs([]string{cobra.ShellCompRequestCmd, "request", "GET", "http://x", "--output", ""})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "console\n")
	assert.Contains(t, out.String(), "json\n")
}

func TestCompletionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"completion", "bash"})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	}()

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "hitwire")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version", "--short"})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		versionShort = false
	}()

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, version+"\n", out.String())
}
