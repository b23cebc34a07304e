package uri

import (
	"fmt"
	"net/url"
	"sort"
)

type noValue struct{}

// NoValue marks a flag-style parameter that serializes as a bare name.
var NoValue = noValue{}

// Param is a single query parameter.
type Param struct {
	Name    string
	Value   string
	NoValue bool
}

// Params is an ordered multimap of query parameters. A name may repeat.
type Params []Param

// Add appends name with value. Slices expand into one pair per element,
// nil becomes an empty value and NoValue produces a bare name.
func (p Params) Add(name string, value any) Params {
	switch v := value.(type) {
	case noValue:
		return append(p, Param{Name: name, NoValue: true})
	case nil:
		return append(p, Param{Name: name})
	case []string:
		for _, s := range v {
			p = append(p, Param{Name: name, Value: s})
		}
		return p
	case []any:
		for _, item := range v {
			p = p.Add(name, item)
		}
		return p
	case []int:
		for _, n := range v {
			p = append(p, Param{Name: name, Value: fmt.Sprint(n)})
		}
		return p
	case string:
		return append(p, Param{Name: name, Value: v})
	default:
		return append(p, Param{Name: name, Value: fmt.Sprint(v)})
	}
}

// ParamsFromMap builds Params from a map. Names are emitted in sorted order
// since Go maps carry no insertion order.
func ParamsFromMap(m map[string]any) Params {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)

	var p Params
	for _, name := range names {
		p = p.Add(name, m[name])
	}
	return p
}

// ParamsFromValues builds Params from url.Values in sorted name order.
func ParamsFromValues(v url.Values) Params {
	names := make([]string, 0, len(v))
	for k := range v {
		names = append(names, k)
	}
	sort.Strings(names)

	var p Params
	for _, name := range names {
		p = p.Add(name, v[name])
	}
	return p
}

// Names returns the distinct parameter names, first inserted first.
func (p Params) Names() []string {
	seen := make(map[string]bool, len(p))
	var names []string
	for _, param := range p {
		if !seen[param.Name] {
			seen[param.Name] = true
			names = append(names, param.Name)
		}
	}
	return names
}

// Get returns all values for name in insertion order.
func (p Params) Get(name string) []string {
	var values []string
	for _, param := range p {
		if param.Name == name {
			values = append(values, param.Value)
		}
	}
	return values
}

// Has reports whether a parameter called name exists.
func (p Params) Has(name string) bool {
	for _, param := range p {
		if param.Name == name {
			return true
		}
	}
	return false
}

// Grouped merges repeated names into ordered value lists.
func (p Params) Grouped() map[string][]string {
	grouped := make(map[string][]string, len(p))
	for _, param := range p {
		grouped[param.Name] = append(grouped[param.Name], param.Value)
	}
	return grouped
}

// Decode percent-decodes every name and value.
func (p Params) Decode() (Params, error) {
	out := make(Params, 0, len(p))
	for _, param := range p {
		name, err := url.QueryUnescape(param.Name)
		if err != nil {
			return nil, fmt.Errorf("decode parameter name %q: %w", param.Name, err)
		}
		value, err := url.QueryUnescape(param.Value)
		if err != nil {
			return nil, fmt.Errorf("decode parameter %q value: %w", name, err)
		}
		out = append(out, Param{Name: name, Value: value, NoValue: param.NoValue})
	}
	return out, nil
}
