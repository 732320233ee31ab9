package htmx

// HeaderReader is satisfied by *pie.Request.
type HeaderReader interface {
	Header(name string) string
}

// IsHTMX returns true if the request originated from HTMX.
func IsHTMX(r HeaderReader) bool {
	return r.Header(HeaderHXRequest) == "true"
}

// IsBoosted reports whether the request came from an hx-boost link or form.
func IsBoosted(r HeaderReader) bool {
	return r.Header(HeaderHXBoosted) == "true"
}

// IsHistoryRestore reports a history restore after a cache miss. Such
// requests need the full page.
func IsHistoryRestore(r HeaderReader) bool {
	return r.Header(HeaderHXHistoryRestoreRequest) == "true"
}

// IsPartial reports whether a fragment should be sent instead of a page.
func IsPartial(r HeaderReader) bool {
	return IsHTMX(r) && !IsBoosted(r) && !IsHistoryRestore(r)
}

// Target returns the id of the target element, if any.
func Target(r HeaderReader) string {
	return r.Header(HeaderHXTarget)
}

// Prompt returns the user's answer to hx-prompt.
func Prompt(r HeaderReader) string {
	return r.Header(HeaderHXPrompt)
}
