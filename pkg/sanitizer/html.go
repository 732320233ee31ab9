// Package sanitizer cleans user-supplied text with bluemonday policies.
package sanitizer

import (
	"net/url"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy = sync.OnceValue(bluemonday.StrictPolicy)
	safePolicy   = sync.OnceValue(func() *bluemonday.Policy {
		p := bluemonday.NewPolicy()
		p.AllowStandardURLs()
		p.AllowElements(
			"p", "br",
			"strong", "b", "em", "i",
			"ul", "ol", "li",
			"code", "pre", "blockquote",
		)
		p.AllowAttrs("href").OnElements("a")
		p.RequireNoFollowOnLinks(true)
		return p
	})
)

// StripHTML removes all markup and returns plain text.
func StripHTML(s string) string {
	return strictPolicy().Sanitize(s)
}

// SanitizeHTML keeps basic formatting tags and safe links.
func SanitizeHTML(s string) string {
	return safePolicy().Sanitize(s)
}

// SanitizeHTMLCustom applies policy; a nil policy returns s unchanged.
func SanitizeHTMLCustom(s string, policy *bluemonday.Policy) string {
	if policy == nil {
		return s
	}
	return policy.Sanitize(s)
}

// Values applies clean to every value in place, skipping listed keys.
func Values(values url.Values, clean func(string) string, skip ...string) {
	for key, vals := range values {
		if contains(skip, key) {
			continue
		}
		for i, v := range vals {
			vals[i] = clean(v)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
