// Package logger builds *slog.Logger values for pie applications: JSON or
// text output, request-scoped attributes pulled from the context on every
// record, and optional fan-out to Sentry.
//
//	log := logger.New(logger.Config{Level: "debug", Format: "text"},
//	    middlewares.RequestIDExtractor(),
//	)
//
// With a Sentry DSN, errors become Sentry issues and warnings are kept as
// searchable logs:
//
//	log := logger.New(logger.Config{SentryDSN: os.Getenv("SENTRY_DSN")})
package logger
