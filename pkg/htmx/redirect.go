package htmx

import (
	"net/http"
	"strings"

	"github.com/dmitrymomot/pie/internal"
)

// Redirect returns a redirect for both HTMX and regular requests.
func Redirect(r HeaderReader, url string) *internal.Response {
	return RedirectWithStatus(r, url, http.StatusFound)
}

// RedirectWithStatus is Redirect with a custom status for regular requests.
func RedirectWithStatus(r HeaderReader, url string, status int) *internal.Response {
	if IsHTMX(r) {
		// HTMX ignores 3xx; it follows the header on a 200
		return internal.Reply(http.StatusOK, nil, internal.Header{Name: HeaderHXRedirect, Value: url})
	}
	return internal.Reply(status, nil, internal.Header{Name: "Location", Value: url})
}

// RedirectBack redirects to the "redirect" query parameter, or fallback if
// it is absent or not a local path.
func RedirectBack(r *internal.Request, fallback string) *internal.Response {
	target := r.QueryValue("redirect")
	if !isLocalPath(target) {
		target = fallback
	}
	return Redirect(r, target)
}

func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, `/\`)
}
