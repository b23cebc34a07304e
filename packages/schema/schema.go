// Package schema validates response bodies against JSON Schema documents.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	hithttp "github.com/abdul-hamid-achik/hitwire/packages/http"
)

// ValidationError lists every schema violation found in a document.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: %s", strings.Join(e.Errors, "; "))
}

// Validator holds a compiled schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// New compiles a schema document.
func New(schemaData []byte) (*Validator, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaData))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Validator{schema: s}, nil
}

// Load reads and compiles a schema file. Relative paths resolve against
// baseDir, and the result must stay inside it.
func Load(path, baseDir string) (*Validator, error) {
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	if err := validatePathWithinBase(path, baseDir); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return New(data)
}

func validatePathWithinBase(path, baseDir string) error {
	if baseDir == "" {
		return nil
	}

	cleanBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %w", err)
	}

	cleanPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	if !strings.HasPrefix(cleanPath, cleanBase+string(filepath.Separator)) && cleanPath != cleanBase {
		return fmt.Errorf("path traversal detected: %s is outside allowed directory %s", path, baseDir)
	}

	return nil
}

// Validate checks a decoded value, such as the result of Response.Parse.
func (v *Validator) Validate(value any) error {
	doc, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return v.ValidateBytes(doc)
}

// ValidateBytes checks a raw JSON document.
func (v *Validator) ValidateBytes(doc []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return &ValidationError{Errors: violations}
}

// Handler wraps next so the raw body is validated before next runs. A nil
// next returns the parsed body.
func (v *Validator) Handler(next hithttp.Handler) hithttp.Handler {
	return hithttp.HandlerFunc(func(resp *hithttp.Response) (any, error) {
		data, err := resp.Buffer()
		if err != nil {
			return nil, err
		}
		if err := v.ValidateBytes(data); err != nil {
			return nil, err
		}
		if next == nil {
			return resp.Parse()
		}
		return next.Handle(resp)
	})
}
