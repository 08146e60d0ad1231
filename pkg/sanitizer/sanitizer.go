// Package sanitizer cleans untrusted strings before they are spliced into
// generated pages.
package sanitizer

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy   *bluemonday.Policy
	fragmentPolicy *bluemonday.Policy
	initOnce       sync.Once
)

func initPolicies() {
	initOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()

		// Notes and abstracts embedded in reports keep basic structure.
		fragmentPolicy = bluemonday.NewPolicy()
		fragmentPolicy.AllowStandardURLs()
		fragmentPolicy.AllowElements(
			"p", "br", "div", "span",
			"strong", "b", "em", "i", "u", "sub", "sup",
			"ul", "ol", "li",
			"h1", "h2", "h3", "h4",
			"table", "thead", "tbody", "tr", "th", "td",
			"code", "pre", "blockquote",
		)
		fragmentPolicy.AllowAttrs("href").OnElements("a")
		fragmentPolicy.RequireNoFollowOnLinks(true)
	})
}

// Text strips all markup and escapes what remains, so the result is safe
// as HTML text or attribute content.
func Text(s string) string {
	initPolicies()
	return strictPolicy.Sanitize(s)
}

// Title is Text with runs of whitespace collapsed to single spaces.
func Title(s string) string {
	return strings.Join(strings.Fields(Text(s)), " ")
}

// Fragment keeps basic formatting and links and removes everything else.
func Fragment(s string) string {
	initPolicies()
	return fragmentPolicy.Sanitize(s)
}

// Custom applies policy. Returns s unchanged if policy is nil.
func Custom(s string, policy *bluemonday.Policy) string {
	if policy == nil {
		return s
	}
	return policy.Sanitize(s)
}
