// Package pathrouter matches slash-separated request paths against
// declarative patterns and extracts named parameters.
//
// # Patterns
//
// A pattern is a sequence of segments separated by "/":
//
//   - Literal: "library" matches only that segment
//   - Parameter: ":controller" binds one segment to "controller"
//   - Optional parameter: ":objectKey?" binds the last segment if present
//   - Subset: a trailing ":subset" parameter is always optional
//   - Catch-all: "*rest" binds the remainder of the path (possibly empty)
//
// Matching is positional, segment by segment, with no backtracking. Each
// bound value receives a single URL unescape pass. The pattern "/" matches
// the empty path.
//
// # Usage
//
//	params := pathrouter.Params{}
//	router := pathrouter.New(params)
//	router.Add("library/:controller/top", func(p pathrouter.Params) {
//	    p.Set("libraryID", "0")
//	    p.Set("subset", "top")
//	})
//	router.Add("groups/:groupID/:controller")
//
//	if err := router.Parse("groups/4521/items?sort=title"); err != nil {
//	    // errors.Is(err, pathrouter.ErrInvalidPath)
//	}
//	params.Get("groupID") // "4521"
//	params.Get("sort")    // "title"
//
// Routes are tried in registration order and the first match wins, so
// more specific patterns must be registered before general ones.
package pathrouter
