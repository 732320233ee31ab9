package middlewares

import (
	"github.com/dmitrymomot/pie/internal"
	"github.com/dmitrymomot/pie/pkg/sanitizer"
)

type sanitize struct {
	clean func(string) string
	skip  []string
}

// Sanitize returns middleware that strips HTML from every form body value
// before handlers bind them. Keys in skip are left as sent. JSON bodies and
// file uploads are not touched.
func Sanitize(skip ...string) internal.Middleware {
	return SanitizeWith(sanitizer.StripHTML, skip...)
}

// SanitizeWith is like Sanitize with a custom cleaning function, such as
// sanitizer.SanitizeHTML to keep basic formatting.
func SanitizeWith(clean func(string) string, skip ...string) internal.Middleware {
	return &sanitize{clean: clean, skip: skip}
}

func (m *sanitize) BeforeRequest(r *internal.Request) (*internal.Response, error) {
	body := r.Body()
	if len(body) == 0 {
		return nil, nil
	}
	sanitizer.Values(body, m.clean, m.skip...)
	for key, vals := range body {
		r.SetBodyValue(key, vals...)
	}
	return nil, nil
}

func (m *sanitize) AfterRequest(*internal.Request, *internal.Response) error { return nil }
