package pie

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/pie/internal"
	"github.com/dmitrymomot/pie/pkg/cookie"
	"github.com/dmitrymomot/pie/pkg/health"
	"github.com/dmitrymomot/pie/pkg/render"
	"github.com/dmitrymomot/pie/pkg/session"
	"github.com/dmitrymomot/pie/pkg/storage"
)

// Type aliases - public API
type (
	// App dispatches requests to the exported methods of an application value.
	// It is an http.Handler.
	App = internal.App

	// Request is the per-request bundle handed to handlers and middleware.
	Request = internal.Request

	// Response is a handler result with an explicit status and headers.
	Response = internal.Response

	// Header is one response header.
	Header = internal.Header

	// FileUpload is a streamed file part of a multipart body.
	FileUpload = internal.FileUpload

	// WebSocket wraps one WebSocket connection.
	WebSocket = internal.WebSocket

	// Middleware hooks before and after every HTTP request.
	Middleware = internal.Middleware

	// WSMiddleware hooks before and after every WebSocket connection.
	WSMiddleware = internal.WSMiddleware

	// BeforeFunc adapts a function to a Middleware with a no-op after hook.
	BeforeFunc = internal.BeforeFunc

	// AfterFunc adapts a function to a Middleware with a no-op before hook.
	AfterFunc = internal.AfterFunc

	// ErrorHandler renders error responses.
	ErrorHandler = internal.ErrorHandler

	// Component renders HTML to a writer. templ components satisfy it.
	Component = internal.Component

	// Option configures the application.
	Option = internal.Option

	// RunOption configures the server runtime.
	RunOption = internal.RunOption

	// HealthOption configures health check endpoints.
	HealthOption = internal.HealthOption

	// HTTPError is an error carrying an HTTP status.
	HTTPError = internal.HTTPError

	// HTTPErrorOption configures an HTTPError.
	HTTPErrorOption = internal.HTTPErrorOption

	// StreamError reports a failure after the response status was committed.
	StreamError = internal.StreamError

	// Extractor reads a value from the first matching request source.
	Extractor = internal.Extractor

	// ExtractorSource reads one value from a request.
	ExtractorSource = internal.ExtractorSource

	// SessionManager loads and persists sessions.
	SessionManager = internal.SessionManager

	// SessionOption configures the session manager.
	SessionOption = internal.SessionOption

	// Session is a client's server-side key/value state.
	Session = session.Session

	// SessionStore persists session data.
	SessionStore = session.Store

	// CookieOption configures the cookie manager.
	CookieOption = cookie.Option

	// Renderer renders named templates.
	Renderer = render.Renderer

	// Storage stores uploaded objects.
	Storage = storage.Storage

	// ResponseWriter tracks the status and size of a response.
	ResponseWriter = internal.ResponseWriter
)

// Constructors

// New creates an application serving the exported methods of target.
// The App is immutable after creation.
//
// Example:
//
//	type Site struct{}
//
//	func (Site) Index() string { return "hello" }
//	func (Site) Greet(name string) string { return "hi " + name }
//
//	app, err := pie.New(&Site{},
//	    pie.WithMiddleware(middlewares.RequestID()),
//	)
//	err = app.Run(":8080")
func New(target any, opts ...Option) (*App, error) {
	return internal.New(target, opts...)
}

// MustNew is like New but panics on error.
func MustNew(target any, opts ...Option) *App {
	return internal.MustNew(target, opts...)
}

// Reply builds a Response.
func Reply(status int, body any, headers ...Header) *Response {
	return internal.Reply(status, body, headers...)
}

// Redirect builds a 302 response to location.
func Redirect(location string, headers ...Header) *Response {
	return internal.Redirect(location, headers...)
}

// App options

// WithMiddleware adds request middleware.
// Before hooks run in the order provided, as do after hooks.
func WithMiddleware(mw ...Middleware) Option {
	return internal.WithMiddleware(mw...)
}

// WithWSMiddleware adds WebSocket middleware.
func WithWSMiddleware(mw ...WSMiddleware) Option {
	return internal.WithWSMiddleware(mw...)
}

// WithHTTPMiddleware adds net/http middleware around everything the App serves.
//
// Example:
//
//	pie.WithHTTPMiddleware(middleware.RealIP)
func WithHTTPMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return internal.WithHTTPMiddleware(mw...)
}

// WithHandler registers fn as the handler for name.
func WithHandler(name string, fn any) Option {
	return internal.WithHandler(name, fn)
}

// WithWebSocketHandler registers fn as the WebSocket handler for name.
func WithWebSocketHandler(name string, fn any) Option {
	return internal.WithWebSocketHandler(name, fn)
}

// WithWebSocketOrigins allows cross-origin WebSocket connections from the
// given host patterns.
func WithWebSocketOrigins(patterns ...string) Option {
	return internal.WithWebSocketOrigins(patterns...)
}

// WithMount serves h under prefix.
func WithMount(prefix string, h http.Handler) Option {
	return internal.WithMount(prefix, h)
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
	return internal.WithStaticFiles(pattern, fsys, subDir)
}

// WithErrorHandler sets a custom renderer for error responses.
func WithErrorHandler(h ErrorHandler) Option {
	return internal.WithErrorHandler(h)
}

// WithLogger sets the application logger.
//
// Example:
//
//	pie.New(&Site{},
//	    pie.WithLogger(logger.New(cfg.Log, middlewares.RequestIDExtractor())),
//	)
func WithLogger(l *slog.Logger) Option {
	return internal.WithLogger(l)
}

// WithMaxBodySize limits buffered request bodies and multipart fields.
func WithMaxBodySize(n int64) Option {
	return internal.WithMaxBodySize(n)
}

// WithRenderer sets the template renderer used by Request.Render.
func WithRenderer(r Renderer) Option {
	return internal.WithRenderer(r)
}

// WithStorage sets the object storage used by Request.SaveFile.
func WithStorage(s Storage) Option {
	return internal.WithStorage(s)
}

// WithCookieOptions configures the cookie manager.
//
// Example:
//
//	pie.New(&Site{},
//	    pie.WithCookieOptions(
//	        pie.WithCookieSecret(os.Getenv("COOKIE_SECRET")),
//	        pie.WithCookieSecure(true),
//	    ),
//	)
func WithCookieOptions(opts ...CookieOption) Option {
	return internal.WithCookieOptions(opts...)
}

// WithLifecycle registers startup and shutdown hooks run by Run.
func WithLifecycle(startup, shutdown func(context.Context) error) Option {
	return internal.WithLifecycle(startup, shutdown)
}

// Health check options

// WithHealthChecks enables health check endpoints with optional configuration.
// Liveness (/health/live): Always returns OK if process is running.
// Readiness (/health/ready): Runs all configured checks.
//
// Example:
//
//	pie.WithHealthChecks(
//	    pie.WithReadinessCheck("db", db.Healthcheck(pool)),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return internal.WithHealthChecks(opts...)
}

// WithLivenessPath sets a custom liveness endpoint path.
// Defaults to "/health/live".
func WithLivenessPath(path string) HealthOption {
	return internal.WithLivenessPath(path)
}

// WithReadinessPath sets a custom readiness endpoint path.
// Defaults to "/health/ready".
func WithReadinessPath(path string) HealthOption {
	return internal.WithReadinessPath(path)
}

// WithReadinessCheck adds a named readiness check.
func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return internal.WithReadinessCheck(name, fn)
}

// Run options

// Logger sets the server logger. Defaults to the App logger.
func Logger(l *slog.Logger) RunOption {
	return internal.Logger(l)
}

// ReadTimeout bounds reading a whole request, body included. Unset by default.
func ReadTimeout(d time.Duration) RunOption {
	return internal.ReadTimeout(d)
}

// ShutdownTimeout sets the timeout for graceful shutdown.
// Defaults to 30 seconds.
func ShutdownTimeout(d time.Duration) RunOption {
	return internal.ShutdownTimeout(d)
}

// StartupHook registers a function to run before the server accepts connections.
func StartupHook(fn func(context.Context) error) RunOption {
	return internal.StartupHook(fn)
}

// ShutdownHook registers a cleanup function to run during shutdown.
//
// Example:
//
//	app.Run(":8080", pie.ShutdownHook(db.Shutdown(pool)))
func ShutdownHook(fn func(context.Context) error) RunOption {
	return internal.ShutdownHook(fn)
}

// WithContext sets a custom base context for signal handling.
func WithContext(ctx context.Context) RunOption {
	return internal.WithContext(ctx)
}

// Cookie options

// WithCookieSecret enables HMAC signing of every cookie.
func WithCookieSecret(secret string) CookieOption {
	return cookie.WithSecret(secret)
}

// WithCookieDomain sets the cookie domain.
func WithCookieDomain(domain string) CookieOption {
	return cookie.WithDomain(domain)
}

// WithCookiePath sets the cookie path.
func WithCookiePath(path string) CookieOption {
	return cookie.WithPath(path)
}

// WithCookieSecure sets the Secure flag.
func WithCookieSecure(secure bool) CookieOption {
	return cookie.WithSecure(secure)
}

// WithCookieHTTPOnly sets the HttpOnly flag.
func WithCookieHTTPOnly(httpOnly bool) CookieOption {
	return cookie.WithHTTPOnly(httpOnly)
}

// WithCookieSameSite sets the SameSite attribute.
func WithCookieSameSite(ss http.SameSite) CookieOption {
	return cookie.WithSameSite(ss)
}

// Session options

// WithSessionStore sets the session backend. Defaults to an in-memory store.
//
// Example:
//
//	pie.New(&Site{},
//	    pie.WithSessionStore(session.NewPostgresStore(pool)),
//	    pie.WithSessionSweep("@every 15m"),
//	)
func WithSessionStore(store SessionStore) Option {
	return internal.WithSessionStore(store)
}

// WithSessionTimeout sets how long an untouched session lives.
// Defaults to 8 hours.
func WithSessionTimeout(d time.Duration) Option {
	return internal.WithSessionTimeout(d)
}

// WithSessionOptions applies session manager options.
func WithSessionOptions(opts ...SessionOption) Option {
	return internal.WithSessionOptions(opts...)
}

// WithSessionSweep removes expired sessions on a cron schedule while the App runs.
func WithSessionSweep(schedule string) Option {
	return internal.WithSessionSweep(schedule)
}

// SessionCookieName sets the session cookie name. Defaults to "session_id".
func SessionCookieName(name string) SessionOption {
	return internal.SessionCookieName(name)
}

// SessionValue returns the typed value stored under key.
//
// Example:
//
//	theme, ok := pie.SessionValue[string](sess, "theme")
func SessionValue[T any](sess *Session, key string) (T, bool) {
	return session.Value[T](sess, key)
}

// SessionValueOr returns the typed value stored under key, or def.
func SessionValueOr[T any](sess *Session, key string, def T) T {
	return session.ValueOr(sess, key, def)
}

// Errors

// Sentinel errors.
var (
	ErrRendererNotConfigured = internal.ErrRendererNotConfigured
	ErrStorageNotConfigured  = internal.ErrStorageNotConfigured
	ErrInvalidHandlerName    = internal.ErrInvalidHandlerName
	ErrInvalidHandler        = internal.ErrInvalidHandler
	ErrConnectionClosed      = internal.ErrConnectionClosed
	ErrNotAccepted           = internal.ErrNotAccepted
	ErrAlreadyAccepted       = internal.ErrAlreadyAccepted
	ErrUploadNotFound        = internal.ErrUploadNotFound
)

// Cookie errors for checking return values.
var (
	ErrCookieNotFound  = cookie.ErrNotFound
	ErrCookieBadSecret = cookie.ErrBadSecret
	ErrCookieBadSig    = cookie.ErrBadSig
)

// NewHTTPError creates an HTTPError with the given status.
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.NewHTTPError(code, message, opts...)
}

// WithError attaches the underlying cause to an HTTPError.
func WithError(err error) HTTPErrorOption {
	return internal.WithError(err)
}

// ErrBadRequest creates a 400 error.
func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrBadRequest(message, opts...)
}

// ErrForbidden creates a 403 error.
func ErrForbidden(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrForbidden(message, opts...)
}

// ErrNotFound creates a 404 error.
func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrNotFound(message, opts...)
}

// ErrMethodNotAllowed creates a 405 error.
func ErrMethodNotAllowed(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrMethodNotAllowed(message, opts...)
}

// ErrPayloadTooLarge creates a 413 error.
func ErrPayloadTooLarge(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrPayloadTooLarge(message, opts...)
}

// ErrTooManyRequests creates a 429 error.
func ErrTooManyRequests(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrTooManyRequests(message, opts...)
}

// ErrInternal creates a 500 error.
func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrInternal(message, opts...)
}

// AsHTTPError returns the HTTPError in err's chain, or nil.
func AsHTTPError(err error) *HTTPError {
	return internal.AsHTTPError(err)
}

// IsHTTPError reports whether err's chain contains an HTTPError.
func IsHTTPError(err error) bool {
	return internal.IsHTTPError(err)
}

// Extractors

// NewExtractor creates an Extractor that tries the given sources in order.
func NewExtractor(sources ...ExtractorSource) Extractor {
	return internal.NewExtractor(sources...)
}

// FromHeader reads a request header.
func FromHeader(name string) ExtractorSource { return internal.FromHeader(name) }

// FromQuery reads a query parameter.
func FromQuery(name string) ExtractorSource { return internal.FromQuery(name) }

// FromBody reads a body parameter.
func FromBody(name string) ExtractorSource { return internal.FromBody(name) }

// FromPathParam reads the i-th path parameter.
func FromPathParam(i int) ExtractorSource { return internal.FromPathParam(i) }

// FromCookie reads a cookie.
func FromCookie(name string) ExtractorSource { return internal.FromCookie(name) }

// FromSession reads a value of an existing session.
func FromSession(key string) ExtractorSource { return internal.FromSession(key) }

// FromBearerToken reads a Bearer token from the Authorization header.
func FromBearerToken() ExtractorSource { return internal.FromBearerToken() }

// FromRemoteAddr reads the client address without port.
func FromRemoteAddr() ExtractorSource { return internal.FromRemoteAddr() }
