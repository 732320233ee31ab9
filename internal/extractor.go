package internal

import (
	"fmt"
	"net"
	"strings"
)

// ExtractorSource extracts a value from the request.
// Returns the value and true if found, or ("", false) if not present.
type ExtractorSource = func(*Request) (string, bool)

// Extractor tries multiple sources in order and returns the first match.
type Extractor struct {
	sources []ExtractorSource
}

// NewExtractor creates an Extractor that tries the given sources in order.
func NewExtractor(sources ...ExtractorSource) Extractor {
	return Extractor{sources: sources}
}

// Extract iterates sources in order and returns the first non-empty value.
// Returns ("", false) if all sources miss.
func (e Extractor) Extract(r *Request) (string, bool) {
	for _, src := range e.sources {
		if v, ok := src(r); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func present(v string) (string, bool) { return v, v != "" }

// FromHeader returns a source that reads from a request header.
func FromHeader(name string) ExtractorSource {
	return func(r *Request) (string, bool) { return present(r.Header(name)) }
}

// FromQuery returns a source that reads the first value of a query parameter.
func FromQuery(name string) ExtractorSource {
	return func(r *Request) (string, bool) { return present(r.QueryValue(name)) }
}

// FromBody returns a source that reads the first value of a body field.
func FromBody(name string) ExtractorSource {
	return func(r *Request) (string, bool) { return present(r.BodyValue(name)) }
}

// FromPathParam returns a source that reads the i-th path parameter.
func FromPathParam(i int) ExtractorSource {
	return func(r *Request) (string, bool) {
		params := r.PathParams()
		if i < 0 || i >= len(params) {
			return "", false
		}
		return present(params[i])
	}
}

// FromCookie returns a source that reads a cookie through the App's
// cookie manager, so signed and encrypted cookies are verified.
func FromCookie(name string) ExtractorSource {
	return func(r *Request) (string, bool) {
		v, err := r.Cookie(name)
		if err != nil {
			return "", false
		}
		return present(v)
	}
}

// FromSession returns a source that reads a value of an existing session.
// It never creates a session. Non-string values are formatted with fmt.Sprint.
func FromSession(key string) ExtractorSource {
	return func(r *Request) (string, bool) {
		sess := r.existingSession()
		if sess == nil {
			return "", false
		}
		val, ok := sess.Get(key)
		if !ok || val == nil {
			return "", false
		}
		if s, ok := val.(string); ok {
			return present(s)
		}
		return present(fmt.Sprint(val))
	}
}

// FromBearerToken returns a source that reads a Bearer token from the Authorization header.
// Uses case-insensitive comparison on the "Bearer " prefix.
func FromBearerToken() ExtractorSource {
	return func(r *Request) (string, bool) {
		auth := r.Header("Authorization")
		if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
			return "", false
		}
		return present(auth[7:])
	}
}

// FromRemoteAddr returns a source that reads the client address without port.
func FromRemoteAddr() ExtractorSource {
	return func(r *Request) (string, bool) {
		addr := r.HTTP().RemoteAddr
		if host, _, err := net.SplitHostPort(addr); err == nil {
			return present(host)
		}
		return present(addr)
	}
}
