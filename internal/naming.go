package internal

import (
	"strings"
	"unicode"
)

// routeName converts a Go identifier to its snake_case route name:
// Index -> index, ShowPost -> show_post, APIStatus -> api_status.
func routeName(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if !unicode.IsUpper(r) {
			b.WriteRune(r)
			continue
		}
		if i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// socketName reports whether method is a WebSocket handler (WSChat) and
// returns its route name (chat).
func socketName(method string) (string, bool) {
	rest, ok := strings.CutPrefix(method, "WS")
	if !ok || rest == "" {
		return "", false
	}
	if r := []rune(rest)[0]; !unicode.IsUpper(r) {
		return "", false
	}
	return routeName(rest), true
}

// splitPath returns the non-empty segments of an URL path.
func splitPath(p string) []string {
	parts := strings.Split(p, "/")
	segments := parts[:0]
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}
