package sanitizer_test

import (
	"net/url"
	"testing"

	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/pie/pkg/sanitizer"
)

func TestStripHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"strips tags", `<p>Hello <strong>world</strong></p>`, "Hello world"},
		{"drops scripts", `<p>Hello</p><script>alert(1)</script>`, "Hello"},
		{"drops event handlers", `<img src="x" onerror="alert(1)">`, ""},
		{"keeps link text", `<a href="javascript:alert(1)">click</a>`, "click"},
		{"plain text untouched", "normal text", "normal text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, sanitizer.StripHTML(tt.input))
		})
	}
}

func TestSanitizeHTML(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "<p>Hi <strong>there</strong></p>", sanitizer.SanitizeHTML(`<p>Hi <strong>there</strong></p>`))
	assert.Equal(t, "<p>x</p>", sanitizer.SanitizeHTML(`<p onclick="evil()">x</p><script>evil()</script>`))
}

func TestSanitizeHTMLCustom(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "<b>x</b>", sanitizer.SanitizeHTMLCustom("<b>x</b>", nil))

	p := bluemonday.NewPolicy()
	p.AllowElements("b")
	assert.Equal(t, "<b>x</b>y", sanitizer.SanitizeHTMLCustom("<b>x</b><i>y</i>", p))
}

func TestValues(t *testing.T) {
	t.Parallel()

	vals := url.Values{
		"comment":  {"<b>hi</b>", "<i>there</i>"},
		"password": {"<keep>"},
	}
	sanitizer.Values(vals, sanitizer.StripHTML, "password")

	assert.Equal(t, []string{"hi", "there"}, vals["comment"])
	assert.Equal(t, []string{"<keep>"}, vals["password"])
}
