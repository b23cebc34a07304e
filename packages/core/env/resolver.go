package env

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// LookupFunc reports the value of an environment reference.
type LookupFunc func(name string) (string, bool)

// Resolver replaces references in strings. It is not modified after
// construction and can be shared.
type Resolver struct {
	variables map[string]string
	lookup    LookupFunc
	onMissing func(ref string)
}

type Option func(*Resolver)

// WithVariables sets the values plain {{name}} references resolve to.
func WithVariables(vars map[string]string) Option {
	return func(r *Resolver) {
		for k, v := range vars {
			r.variables[k] = v
		}
	}
}

// WithLookup replaces the environment lookup, os.LookupEnv by default.
func WithLookup(fn LookupFunc) Option {
	return func(r *Resolver) {
		r.lookup = fn
	}
}

// WithMissingFunc is called with every reference that did not resolve.
func WithMissingFunc(fn func(ref string)) Option {
	return func(r *Resolver) {
		r.onMissing = fn
	}
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		variables: make(map[string]string),
		lookup:    os.LookupEnv,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Resolve(input string) string {
	if !strings.Contains(input, "{{") {
		return input
	}
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])

		if name, ok := strings.CutPrefix(expr, "$"); ok {
			if val, found := r.lookup(name); found {
				return val
			}
		} else if val, found := r.variables[expr]; found {
			return val
		}

		if r.onMissing != nil {
			r.onMissing(expr)
		}
		return match
	})
}

// ResolveAll resolves every element of values into a new slice.
func (r *Resolver) ResolveAll(values []string) []string {
	if values == nil {
		return nil
	}
	result := make([]string, len(values))
	for i, v := range values {
		result[i] = r.Resolve(v)
	}
	return result
}

// ResolveMap resolves the values of m into a new map. Keys are kept.
func (r *Resolver) ResolveMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	result := make(map[string]string, len(m))
	for k, v := range m {
		result[k] = r.Resolve(v)
	}
	return result
}

// Unresolved lists the references in input that have no value, in order of
// appearance.
func (r *Resolver) Unresolved(input string) []string {
	var missing []string
	for _, m := range variablePattern.FindAllStringSubmatch(input, -1) {
		expr := strings.TrimSpace(m[1])
		if name, ok := strings.CutPrefix(expr, "$"); ok {
			if _, found := r.lookup(name); found {
				continue
			}
		} else if _, found := r.variables[expr]; found {
			continue
		}
		missing = append(missing, expr)
	}
	return missing
}

// ParseVariables turns name=value pairs into a variable map.
func ParseVariables(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, &VariableError{Pair: p}
		}
		vars[name] = value
	}
	return vars, nil
}

// VariableError reports a variable flag that is not name=value.
type VariableError struct {
	Pair string
}

func (e *VariableError) Error() string {
	return fmt.Sprintf("invalid variable %q (expected name=value)", e.Pair)
}
