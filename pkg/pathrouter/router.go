package pathrouter

import (
	"net/url"
	"strings"
)

// Router is an ordered list of routes sharing one parameter map.
// A Router is not safe for concurrent use; build one per request.
type Router struct {
	params  Params
	matched *Route
	routes  []*Route
}

// New returns a router that writes matched parameters into params.
// A nil params gets a fresh map.
func New(params Params) *Router {
	if params == nil {
		params = Params{}
	}
	return &Router{params: params}
}

// Add appends a route. The optional onMatch callback receives the shared
// parameter map after a successful match and may derive further values.
// Add panics if pattern is malformed.
func (r *Router) Add(pattern string, onMatch ...func(Params)) *Router {
	var fn func(Params)
	if len(onMatch) > 0 {
		fn = onMatch[0]
	}
	r.routes = append(r.routes, MustCompile(pattern, fn))
	return r
}

// Params returns the shared parameter map.
func (r *Router) Params() Params { return r.params }

// Routes returns the registered routes in order.
func (r *Router) Routes() []*Route { return r.routes }

// Matched returns the route accepted by the last successful Run, or nil.
func (r *Router) Matched() *Route { return r.matched }

// Run tries each route in registration order against path. The query
// string, if any, is merged into the parameter map before path parameters.
// It reports whether a route matched; on failure the map is left untouched.
func (r *Router) Run(path string) bool {
	path, rawQuery, _ := strings.Cut(path, "?")

	for _, route := range r.routes {
		bound, _, ok := route.Match(path)
		if !ok {
			continue
		}

		if rawQuery != "" {
			if q, err := url.ParseQuery(rawQuery); err == nil {
				r.params.mergeQuery(q)
			}
		}
		for k, v := range bound {
			r.params[k] = v
		}
		if route.onMatch != nil {
			route.onMatch(r.params)
		}
		r.matched = route
		return true
	}

	return false
}

// Parse is Run returning an *InvalidPathError when nothing matched.
func (r *Router) Parse(path string) error {
	if !r.Run(path) {
		return &InvalidPathError{Path: path}
	}
	return nil
}
