package pathrouter

import (
	"maps"
	"net/url"
	"slices"
	"strings"
)

// Params maps parameter names to their values. Most parameters carry a
// single value; list parameters (such as an item-key list) carry several,
// in order.
type Params map[string][]string

// Get returns the first value for name, or "".
func (p Params) Get(name string) string {
	if v := p[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Values returns all values for name.
func (p Params) Values(name string) []string {
	return p[name]
}

// Set replaces the values for name with a single value.
func (p Params) Set(name, value string) {
	p[name] = []string{value}
}

// SetValues replaces the values for name with a copy of values.
func (p Params) SetValues(name string, values []string) {
	p[name] = slices.Clone(values)
}

// Del removes name.
func (p Params) Del(name string) {
	delete(p, name)
}

// Has reports whether name is present with a non-empty first value.
func (p Params) Has(name string) bool {
	return p.Get(name) != ""
}

// Split replaces a single comma-separated value of name with its parts.
// Names that already hold several values are left untouched.
func (p Params) Split(name string) {
	v, ok := p[name]
	if !ok || len(v) != 1 {
		return
	}
	p[name] = strings.Split(v[0], ",")
}

// Clone returns a deep copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = slices.Clone(v)
	}
	return out
}

// Names returns the parameter names in sorted order.
func (p Params) Names() []string {
	return slices.Sorted(maps.Keys(p))
}

func (p Params) mergeQuery(q url.Values) {
	for k, v := range q {
		p[k] = slices.Clone(v)
	}
}
