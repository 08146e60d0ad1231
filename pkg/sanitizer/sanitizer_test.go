package sanitizer_test

import (
	"strings"
	"testing"

	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterckelly/zotero/pkg/sanitizer"
)

func TestText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"strips script injection", `<p>Hello</p><script>alert('xss')</script>`, "Hello"},
		{"strips all tags", `<p>Hello <strong>world</strong></p>`, "Hello world"},
		{"strips event handlers", `<img src="x" onerror="alert('xss')">`, ""},
		{"strips style blocks", `Hello <style>.x{}</style>World`, "Hello World"},
		{"strips iframe", `<iframe src="https://evil.com"></iframe>content`, "content"},
		{"plain text", "My Library", "My Library"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, sanitizer.Text(tt.input))
		})
	}

	t.Run("escapes markup characters", func(t *testing.T) {
		t.Parallel()
		out := sanitizer.Text("a < b & c")
		require.NotContains(t, out, "<")
		require.Contains(t, out, "&amp;")
	})
}

func TestTitle(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Reading List", sanitizer.Title("  <b>Reading</b>\n\t List  "))
	require.Empty(t, sanitizer.Title("<script>x</script>"))
}

func TestFragment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"keeps paragraphs", "<p>Hello</p>", "<p>Hello</p>"},
		{"keeps tables", "<table><tr><td>x</td></tr></table>", "<table><tr><td>x</td></tr></table>"},
		{"drops scripts", "<p>a</p><script>alert(1)</script>", "<p>a</p>"},
		{"drops event handlers", `<p onclick="alert(1)">content</p>`, "<p>content</p>"},
		{"adds nofollow", `<a href="https://example.com">link</a>`, `<a href="https://example.com" rel="nofollow">link</a>`},
		{"drops javascript links", `<a href="javascript:alert(1)">click</a>`, "click"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, sanitizer.Fragment(tt.input))
		})
	}
}

func TestCustom(t *testing.T) {
	t.Parallel()

	t.Run("nil policy returns input", func(t *testing.T) {
		t.Parallel()
		in := `<script>alert('xss')</script>`
		require.Equal(t, in, sanitizer.Custom(in, nil))
	})

	t.Run("custom policy", func(t *testing.T) {
		t.Parallel()
		policy := bluemonday.NewPolicy()
		policy.AllowElements("img")
		policy.AllowAttrs("src", "alt").OnElements("img")
		out := sanitizer.Custom(`<img src="photo.jpg" alt="photo" onerror="alert('xss')">`, policy)
		require.Equal(t, `<img src="photo.jpg" alt="photo">`, out)
	})

	t.Run("xss vectors lose their payload", func(t *testing.T) {
		t.Parallel()
		for _, v := range []string{
			`<script src="https://evil.com/xss.js"></script>`,
			`<svg onload="alert(1)">`,
			`<body onload="alert(1)">`,
		} {
			out := sanitizer.Fragment(v)
			require.False(t, strings.Contains(out, "alert") && strings.Contains(out, "<"), out)
		}
	})
}
