package internal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/pie/pkg/cookie"
	"github.com/dmitrymomot/pie/pkg/health"
	"github.com/dmitrymomot/pie/pkg/render"
	"github.com/dmitrymomot/pie/pkg/session"
	"github.com/dmitrymomot/pie/pkg/storage"
)

// Option configures the application.
type Option func(*App)

// WithMiddleware adds request middleware. Before hooks run in the order
// provided, as do after hooks.
func WithMiddleware(mw ...Middleware) Option {
	return func(a *App) {
		a.middlewares = append(a.middlewares, mw...)
	}
}

// WithWSMiddleware adds WebSocket middleware.
func WithWSMiddleware(mw ...WSMiddleware) Option {
	return func(a *App) {
		a.wsMiddlewares = append(a.wsMiddlewares, mw...)
	}
}

// WithHTTPMiddleware adds net/http middleware to the outer router. It wraps
// everything the App serves: static files, mounts, health checks and
// dispatch.
//
// Example:
//
//	pie.WithHTTPMiddleware(middleware.RealIP, middleware.Timeout(10*time.Second))
func WithHTTPMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(a *App) {
		a.httpMiddlewares = append(a.httpMiddlewares, mw...)
	}
}

// WithHandler registers a function as the handler for name. It follows the
// same signature rules as methods and replaces a method of the same name.
// Names starting with "_" are rejected.
//
// Example:
//
//	pie.WithHandler("ping", func() string { return "pong" })
func WithHandler(name string, fn any) Option {
	return func(a *App) {
		a.handlers = append(a.handlers, namedHandler{name: name, fn: fn})
	}
}

// WithWebSocketHandler registers a function as the WebSocket handler for
// name. The function must accept *WebSocket.
func WithWebSocketHandler(name string, fn any) Option {
	return func(a *App) {
		a.handlers = append(a.handlers, namedHandler{name: name, fn: fn, socket: true})
	}
}

// WithWebSocketOrigins sets the host patterns allowed to open WebSocket
// connections from another origin. Same-origin requests are always allowed.
func WithWebSocketOrigins(patterns ...string) Option {
	return func(a *App) {
		a.wsOrigins = append(a.wsOrigins, patterns...)
	}
}

// WithMount serves h under prefix. Another App can be mounted this way;
// it dispatches on the path relative to prefix.
//
// Example:
//
//	admin := pie.MustNew(&Admin{})
//	pie.New(&Site{}, pie.WithMount("/admin", admin))
func WithMount(prefix string, h http.Handler) Option {
	return func(a *App) {
		if prefix == "" || !strings.HasPrefix(prefix, "/") || h == nil {
			a.err = errors.Join(a.err, fmt.Errorf("pie: invalid mount %q", prefix))
			return
		}
		a.mounts = append(a.mounts, mount{handler: h, pattern: strings.TrimSuffix(prefix, "/")})
	}
}

// WithStaticFiles mounts a static file handler at the given pattern.
// Directory listings are disabled. Files are served with default cache headers.
//
// Example:
//
//	//go:embed public
//	var assets embed.FS
//
//	pie.New(&Site{},
//	    pie.WithStaticFiles("/static", assets, "public"),
//	)
func WithStaticFiles(pattern string, fsys fs.FS, subDir string) Option {
	return func(a *App) {
		subFS, err := fs.Sub(fsys, subDir)
		if err != nil {
			a.err = errors.Join(a.err, fmt.Errorf("pie: static files: %w", err))
			return
		}

		fileServer := http.StripPrefix(strings.TrimSuffix(pattern, "/"), http.FileServerFS(subFS))

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Block directory listings
			if strings.HasSuffix(r.URL.Path, "/") {
				http.NotFound(w, r)
				return
			}

			w.Header().Set("Cache-Control", "public, max-age=3600")
			w.Header().Set("X-Content-Type-Options", "nosniff")

			fileServer.ServeHTTP(w, r)
		})

		WithMount(pattern, handler)(a)
	}
}

// WithErrorHandler sets a custom renderer for error responses.
//
// Example:
//
//	pie.WithErrorHandler(func(r *pie.Request, err *pie.HTTPError) *pie.Response {
//	    return pie.Reply(err.Code, map[string]string{"error": err.Error()})
//	})
func WithErrorHandler(h ErrorHandler) Option {
	return func(a *App) {
		a.errorHandler = h
	}
}

// WithLogger sets the application logger.
// Use pkg/logger to build one with context extractors and Sentry.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMaxBodySize limits buffered request bodies and multipart fields.
// Larger bodies are rejected with 413. Defaults to 10 MiB.
func WithMaxBodySize(n int64) Option {
	return func(a *App) {
		if n > 0 {
			a.maxBodySize = n
		}
	}
}

// WithRenderer sets the template renderer used by Request.Render.
func WithRenderer(r render.Renderer) Option {
	return func(a *App) {
		a.renderer = r
	}
}

// WithStorage configures object storage for Request.SaveFile.
func WithStorage(s storage.Storage) Option {
	return func(a *App) {
		a.storage = s
	}
}

// WithCookieOptions configures the cookie manager. With a secret, the
// session cookie and Request.SetCookie values are signed.
//
// Example:
//
//	pie.WithCookieOptions(
//	    cookie.WithSecret(os.Getenv("COOKIE_SECRET")),
//	    cookie.WithSecure(false),
//	)
func WithCookieOptions(opts ...cookie.Option) Option {
	return func(a *App) {
		a.cookieOpts = append(a.cookieOpts, opts...)
	}
}

// WithSessionStore sets the session backend. Defaults to an in-memory store.
//
// Example:
//
//	pie.WithSessionStore(session.NewRedisStore(client))
func WithSessionStore(store session.Store) Option {
	return func(a *App) {
		if store != nil {
			a.sessionStore = store
		}
	}
}

// WithSessionTimeout sets how long an untouched session lives.
// Defaults to 8 hours.
func WithSessionTimeout(d time.Duration) Option {
	return func(a *App) {
		a.sessionOpts = append(a.sessionOpts, SessionTimeout(d))
	}
}

// WithSessionOptions applies session manager options.
//
// Example:
//
//	pie.WithSessionOptions(pie.SessionCookieName("sid"))
func WithSessionOptions(opts ...SessionOption) Option {
	return func(a *App) {
		a.sessionOpts = append(a.sessionOpts, opts...)
	}
}

// WithSessionSweep removes expired sessions on a cron schedule while the
// App runs. The store must implement session.Sweeper.
//
// Example:
//
//	pie.WithSessionSweep("@every 15m")
func WithSessionSweep(schedule string) Option {
	return func(a *App) {
		if schedule == "" {
			schedule = session.DefaultSweepSchedule
		}
		a.sweepSchedule = schedule
	}
}

// WithLifecycle registers startup and shutdown hooks run by Run.
// Either may be nil.
func WithLifecycle(startup, shutdown func(context.Context) error) Option {
	return func(a *App) {
		if startup != nil {
			a.startupHooks = append(a.startupHooks, startup)
		}
		if shutdown != nil {
			a.shutdownHooks = append(a.shutdownHooks, shutdown)
		}
	}
}

// healthConfig holds health check endpoint configuration.
type healthConfig struct {
	checks        health.Checks
	livenessPath  string
	readinessPath string
}

// Default health check paths.
const (
	defaultLivenessPath  = "/health/live"
	defaultReadinessPath = "/health/ready"
)

// HealthOption configures health check endpoints.
type HealthOption func(*healthConfig)

// WithLivenessPath sets a custom liveness endpoint path.
// Defaults to "/health/live".
func WithLivenessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.livenessPath = path
		}
	}
}

// WithReadinessPath sets a custom readiness endpoint path.
// Defaults to "/health/ready".
func WithReadinessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.readinessPath = path
		}
	}
}

// WithReadinessCheck adds a named readiness check.
// Checks run in parallel during readiness probe.
//
// Example:
//
//	pie.WithReadinessCheck("db", db.Healthcheck(pool))
func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return func(c *healthConfig) {
		c.checks[name] = fn
	}
}

// WithHealthChecks enables health check endpoints with optional configuration.
// Liveness (/health/live): Always returns OK if process is running.
// Readiness (/health/ready): Runs all configured checks.
//
// Example:
//
//	pie.WithHealthChecks(
//	    pie.WithReadinessCheck("db", db.Healthcheck(pool)),
//	    pie.WithReadinessCheck("redis", redis.Healthcheck(client)),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return func(a *App) {
		cfg := &healthConfig{
			livenessPath:  defaultLivenessPath,
			readinessPath: defaultReadinessPath,
			checks:        make(health.Checks),
		}
		for _, opt := range opts {
			opt(cfg)
		}
		a.healthConfig = cfg
	}
}
