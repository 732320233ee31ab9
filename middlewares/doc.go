// Package middlewares provides request hooks for pie applications.
//
// Every middleware here implements pie.Middleware: a before hook that may
// answer the request early and an after hook that sees every response,
// errors included.
//
// # Request ID
//
// RequestID assigns each request an ID, reusing X-Request-ID or
// X-Correlation-ID when the client sent one, and echoes it in the response.
// RequestIDExtractor adds it to log records written with the request as
// context:
//
//	log := logger.New(cfg.Log, middlewares.RequestIDExtractor())
//	app := pie.MustNew(&Site{},
//	    pie.WithLogger(log),
//	    pie.WithMiddleware(middlewares.RequestID()),
//	)
//
// # Access log
//
// AccessLog writes one record per request with status and duration.
//
// # CORS
//
// CORS answers preflight requests and adds Access-Control-* headers:
//
//	middlewares.CORS(
//	    middlewares.WithAllowOrigins("https://app.example.com"),
//	    middlewares.WithAllowCredentials(),
//	)
//
// # Rate limiting
//
// RateLimit keeps a token bucket per client in a pkg/cache store:
//
//	limiter := middlewares.MustRateLimit(100,
//	    middlewares.WithRefill(10, time.Second),
//	    middlewares.WithRateLimitStore(cache.NewRedis[middlewares.RateBucket](client, nil)),
//	)
//
// # CSRF
//
// CSRF checks unsafe requests against a token kept in the session. Handlers
// put the token from CSRFToken into their forms.
//
// # Sanitize
//
// Sanitize strips HTML from form values before handlers bind them.
//
// # Explicit routes
//
// Router maps URL patterns such as /api/users/{user} to handler names,
// next to convention dispatch.
//
// Order matters: before hooks run in registration order, so put RequestID
// and AccessLog first and Router last.
package middlewares
