package middlewares

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/pie/internal"
)

type startedAtKey struct{}

// AccessLogOption configures the access log middleware.
type AccessLogOption func(*accessLog)

// WithAccessLogger logs to l instead of the application logger.
func WithAccessLogger(l *slog.Logger) AccessLogOption {
	return func(m *accessLog) {
		m.logger = l
	}
}

// WithAccessLogLevel sets the level for successful requests. Client errors
// are logged at Warn and server errors at Error regardless.
func WithAccessLogLevel(level slog.Level) AccessLogOption {
	return func(m *accessLog) {
		m.level = level
	}
}

type accessLog struct {
	logger *slog.Logger
	level  slog.Level
}

// AccessLog returns middleware that logs one line per request with the
// method, path, route, status and duration. Register it first so the
// duration covers the other hooks.
func AccessLog(opts ...AccessLogOption) internal.Middleware {
	m := &accessLog{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *accessLog) BeforeRequest(r *internal.Request) (*internal.Response, error) {
	r.Set(startedAtKey{}, time.Now())
	return nil, nil
}

func (m *accessLog) AfterRequest(r *internal.Request, resp *internal.Response) error {
	log := m.logger
	if log == nil {
		log = r.Logger()
	}

	level := m.level
	switch {
	case resp.Status >= 500:
		level = slog.LevelError
	case resp.Status >= 400:
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("method", r.Method()),
		slog.String("path", r.Path()),
		slog.Int("status", resp.Status),
	}
	if name, ok := r.RouteName(); ok {
		attrs = append(attrs, slog.String("route", name))
	}
	if started, ok := r.Get(startedAtKey{}).(time.Time); ok {
		attrs = append(attrs, slog.Duration("duration", time.Since(started)))
	}

	log.LogAttrs(r, level, "request", attrs...)
	return nil
}
