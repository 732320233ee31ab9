package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls the handler built by New.
type Config struct {
	Output            io.Writer `env:"-" yaml:"-"`
	Level             string    `env:"LOG_LEVEL" envDefault:"info" yaml:"level"`
	Format            string    `env:"LOG_FORMAT" envDefault:"json" yaml:"format"`
	SentryDSN         string    `env:"SENTRY_DSN" yaml:"sentry_dsn"`
	SentryEnvironment string    `env:"SENTRY_ENVIRONMENT" envDefault:"production" yaml:"sentry_environment"`
	// SentryMinLevel is "warn" (default) or "error".
	SentryMinLevel string `env:"SENTRY_MIN_LEVEL" envDefault:"warn" yaml:"sentry_min_level"`
}

// New builds a logger from cfg. Extractors add context attributes to every
// record, including the ones forwarded to Sentry.
func New(cfg Config, extractors ...ContextExtractor) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(out, opts)
	} else {
		h = slog.NewJSONHandler(out, opts)
	}

	if cfg.SentryDSN != "" {
		if sh, err := newSentryHandler(cfg); err != nil {
			slog.New(h).Error("failed to initialize Sentry", slog.String("error", err.Error()))
		} else {
			h = fanout{h, sh}
		}
	}

	return slog.New(NewLogHandlerDecorator(h, extractors...))
}

// NewNope returns a logger that discards everything.
func NewNope() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
// Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
