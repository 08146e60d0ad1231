package pathrouter

import (
	"fmt"
	"net/url"
	"strings"
)

type segmentKind uint8

const (
	segLiteral segmentKind = iota
	segParam
	segCatchAll
)

type segment struct {
	value string
	kind  segmentKind
}

// Route is a compiled pattern. Routes are immutable after compilation.
type Route struct {
	onMatch  func(Params)
	pattern  string
	segments []segment
	names    []string
	optional bool // last segment may be absent
}

// Compile parses pattern into a Route.
func Compile(pattern string, onMatch func(Params)) (*Route, error) {
	r := &Route{pattern: pattern, onMatch: onMatch}

	parts := splitPath(pattern)
	seen := make(map[string]bool, len(parts))

	for i, part := range parts {
		last := i == len(parts)-1

		switch {
		case strings.HasPrefix(part, "*"):
			name := part[1:]
			if name == "" || !last {
				return nil, fmt.Errorf("%w: %q: catch-all must be last and named", ErrInvalidPattern, pattern)
			}
			r.segments = append(r.segments, segment{kind: segCatchAll, value: name})
			r.optional = true

		case strings.HasPrefix(part, ":"):
			name := part[1:]
			optional := strings.HasSuffix(name, "?")
			name = strings.TrimSuffix(name, "?")
			if name == "" {
				return nil, fmt.Errorf("%w: %q: empty parameter name", ErrInvalidPattern, pattern)
			}
			if optional && !last {
				return nil, fmt.Errorf("%w: %q: only the last parameter may be optional", ErrInvalidPattern, pattern)
			}
			r.segments = append(r.segments, segment{kind: segParam, value: name})
			r.optional = last && (optional || name == "subset")

		default:
			r.segments = append(r.segments, segment{kind: segLiteral, value: part})
			continue
		}

		name := r.segments[len(r.segments)-1].value
		if seen[name] {
			return nil, fmt.Errorf("%w: %q: duplicate parameter %q", ErrInvalidPattern, pattern, name)
		}
		seen[name] = true
		r.names = append(r.names, name)
	}

	return r, nil
}

// MustCompile is like Compile but panics on an invalid pattern.
func MustCompile(pattern string, onMatch func(Params)) *Route {
	r, err := Compile(pattern, onMatch)
	if err != nil {
		panic(err)
	}
	return r
}

// Pattern returns the source pattern.
func (r *Route) Pattern() string { return r.pattern }

// ParamNames returns the parameter names bound by the route, in pattern order.
func (r *Route) ParamNames() []string { return r.names }

// Match matches path (without query string) against the route. On success
// it returns the bound parameters and, for catch-all routes, the unmatched
// remainder of the path.
func (r *Route) Match(path string) (Params, string, bool) {
	parts := splitPath(path)
	n := len(r.segments)

	switch {
	case len(parts) == n:
	case r.optional && len(parts) == n-1:
	case n > 0 && r.segments[n-1].kind == segCatchAll && len(parts) >= n-1:
	default:
		return nil, "", false
	}

	params := make(Params, len(r.names))
	rest := ""

	for i, seg := range r.segments {
		if i >= len(parts) {
			// Absent optional tail.
			if seg.kind != segLiteral {
				params.Set(seg.value, "")
			}
			break
		}

		switch seg.kind {
		case segLiteral:
			if parts[i] != seg.value {
				return nil, "", false
			}
		case segParam:
			params.Set(seg.value, unescape(parts[i]))
		case segCatchAll:
			rest = strings.Join(parts[i:], "/")
			params.Set(seg.value, unescape(rest))
		}
	}

	return params, rest, true
}

func unescape(s string) string {
	if v, err := url.PathUnescape(s); err == nil {
		return v
	}
	return s
}

// splitPath trims surrounding slashes and splits on "/". The empty path and
// "/" both yield no segments.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
