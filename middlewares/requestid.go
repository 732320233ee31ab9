package middlewares

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/pie/internal"
	"github.com/dmitrymomot/pie/pkg/logger"
)

// requestIDKey is the request key for storing the request ID.
type requestIDKey struct{}

// DefaultRequestIDHeaders are the headers checked (in order) for an existing request ID.
var DefaultRequestIDHeaders = []string{"X-Request-ID", "X-Correlation-ID"}

// RequestIDConfig configures the request ID middleware.
type RequestIDConfig struct {
	Generator      func() string // ID generator function
	ResponseHeader string        // Response header name
	Headers        []string      // Headers to check for existing ID (in order)
}

// RequestIDOption configures RequestIDConfig.
type RequestIDOption func(*RequestIDConfig)

// WithRequestIDHeaders sets the headers to check for existing request IDs.
func WithRequestIDHeaders(headers ...string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		cfg.Headers = headers
	}
}

// WithRequestIDGenerator sets a custom ID generator function.
func WithRequestIDGenerator(gen func() string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		cfg.Generator = gen
	}
}

// WithRequestIDResponseHeader sets the response header name.
func WithRequestIDResponseHeader(header string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		cfg.ResponseHeader = header
	}
}

type requestID struct {
	extract internal.Extractor
	cfg     RequestIDConfig
}

// RequestID returns middleware that assigns a unique request ID to each request.
// The ID is taken from request headers (if present) or generated, stored on
// the request and echoed in a response header, error responses included.
func RequestID(opts ...RequestIDOption) internal.Middleware {
	cfg := RequestIDConfig{
		Headers:        DefaultRequestIDHeaders,
		Generator:      uuid.NewString,
		ResponseHeader: "X-Request-ID",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	sources := make([]internal.ExtractorSource, 0, len(cfg.Headers))
	for _, h := range cfg.Headers {
		sources = append(sources, internal.FromHeader(h))
	}
	return &requestID{cfg: cfg, extract: internal.NewExtractor(sources...)}
}

func (m *requestID) BeforeRequest(r *internal.Request) (*internal.Response, error) {
	// First match wins to preserve upstream tracing IDs
	id, ok := m.extract.Extract(r)
	if !ok {
		id = m.cfg.Generator()
	}
	r.Set(requestIDKey{}, id)
	return nil, nil
}

func (m *requestID) AfterRequest(r *internal.Request, resp *internal.Response) error {
	if id := GetRequestID(r); id != "" {
		resp.SetHeader(m.cfg.ResponseHeader, id)
	}
	return nil
}

// GetRequestID returns the request ID, or an empty string if none is set.
func GetRequestID(r *internal.Request) string {
	v, _ := r.Get(requestIDKey{}).(string)
	return v
}

// RequestIDExtractor returns a ContextExtractor for logger.New.
// Log calls made with the *Request as context get a "request_id" attribute.
func RequestIDExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if v, ok := ctx.Value(requestIDKey{}).(string); ok && v != "" {
			return slog.String("request_id", v), true
		}
		return slog.Attr{}, false
	}
}
