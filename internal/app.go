package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"runtime/debug"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/pie/pkg/cookie"
	"github.com/dmitrymomot/pie/pkg/health"
	"github.com/dmitrymomot/pie/pkg/logger"
	"github.com/dmitrymomot/pie/pkg/render"
	"github.com/dmitrymomot/pie/pkg/session"
	"github.com/dmitrymomot/pie/pkg/storage"
)

// Default server timeouts (hardcoded, opinionated).
const (
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20 // 1MB
	defaultShutdownTimeout   = 30 * time.Second
)

// App dispatches requests to the exported methods of an application value.
// App is immutable after creation - all configuration is done via New().
type App struct {
	router          chi.Router
	registry        *registry
	errorHandler    ErrorHandler
	healthConfig    *healthConfig
	logger          *slog.Logger
	cookies         *cookie.Manager
	sessions        *SessionManager
	sessionStore    session.Store
	renderer        render.Renderer
	storage         storage.Storage
	err             error
	sweepSchedule   string
	cookieOpts      []cookie.Option
	sessionOpts     []SessionOption
	middlewares     []Middleware
	wsMiddlewares   []WSMiddleware
	httpMiddlewares []func(http.Handler) http.Handler
	handlers        []namedHandler
	mounts          []mount
	wsOrigins       []string
	startupHooks    []func(context.Context) error
	shutdownHooks   []func(context.Context) error
	maxBodySize     int64
}

// mount is an http.Handler mounted under a path prefix.
type mount struct {
	handler http.Handler
	pattern string
}

// New creates an application serving the exported methods of target.
//
// Method names map to snake_case routes: Index serves "/", ShowPost serves
// "/show_post/...", WSChat serves WebSocket handshakes on "/chat". target may
// be nil when every handler is registered with WithHandler.
//
// A target implementing OnStartup(context.Context) error or
// OnShutdown(context.Context) error gets them run by Run; one implementing
// Middleware or WSMiddleware runs before any other middleware.
//
// Example:
//
//	type Site struct{}
//
//	func (Site) Index() string { return "hello" }
//	func (Site) Greet(name string) string { return "hi " + name }
//
//	app, err := pie.New(&Site{}, pie.WithMiddleware(middlewares.RequestID()))
func New(target any, opts ...Option) (*App, error) {
	a := &App{
		router:      chi.NewRouter(),
		logger:      logger.NewNope(),
		maxBodySize: defaultMaxBodySize,
	}

	if mw, ok := target.(Middleware); ok {
		a.middlewares = append(a.middlewares, mw)
	}
	if mw, ok := target.(WSMiddleware); ok {
		a.wsMiddlewares = append(a.wsMiddlewares, mw)
	}
	if h, ok := target.(interface{ OnStartup(context.Context) error }); ok {
		a.startupHooks = append(a.startupHooks, h.OnStartup)
	}
	if h, ok := target.(interface{ OnShutdown(context.Context) error }); ok {
		a.shutdownHooks = append(a.shutdownHooks, h.OnShutdown)
	}

	for _, opt := range opts {
		opt(a)
	}
	if a.err != nil {
		return nil, a.err
	}

	cookies, err := cookie.New(a.cookieOpts...)
	if err != nil {
		return nil, fmt.Errorf("pie: cookies: %w", err)
	}
	a.cookies = cookies

	if a.sessionStore == nil {
		a.sessionStore = session.NewMemoryStore()
	}
	a.sessions = NewSessionManager(a.sessionStore, cookies, a.sessionOpts...)
	a.sessions.SetLogger(a.logger)

	reg, err := buildRegistry(target, a.handlers, a.logger)
	if err != nil {
		return nil, err
	}
	a.registry = reg

	a.setupRoutes()
	return a, nil
}

// MustNew is like New but panics on error.
func MustNew(target any, opts ...Option) *App {
	a, err := New(target, opts...)
	if err != nil {
		panic(err)
	}
	return a
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Sessions returns the session manager.
func (a *App) Sessions() *SessionManager {
	return a.sessions
}

// setupRoutes configures the outer router: HTTP middleware, static files,
// mounts and health endpoints first, convention dispatch for everything else.
func (a *App) setupRoutes() {
	for _, mw := range a.httpMiddlewares {
		a.router.Use(mw)
	}

	for _, m := range a.mounts {
		a.router.Mount(m.pattern, m.handler)
	}

	if a.healthConfig != nil {
		a.router.Get(a.healthConfig.livenessPath, health.LivenessHandler())
		a.router.Get(a.healthConfig.readinessPath, health.ReadinessHandler(a.healthConfig.checks, health.WithLogger(a.logger)))
	}

	a.router.Handle("/*", http.HandlerFunc(a.dispatch))
}

// dispatch runs the request pipeline: before hooks, route resolution,
// binding, handler, session persistence, after hooks, emission.
func (a *App) dispatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	rw := NewResponseWriter(w)
	req := newRequest(a, rw, r.WithContext(ctx), routePath(r))
	defer func() {
		cancel()
		req.waitMultipart()
	}()

	if isWebSocketUpgrade(r) {
		a.serveWebSocket(rw, req)
		return
	}

	a.emit(rw, req, a.handle(req))
}

// routePath returns the path relative to the App, honoring chi mounts.
func routePath(r *http.Request) string {
	p := chi.URLParam(r, "*")
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(p); err == nil {
			p = unescaped
		}
	}
	return "/" + p
}

func (a *App) handle(req *Request) *Response {
	resp, err := a.process(req)
	if err != nil {
		resp = a.errorResponse(req, err)
	}
	if err := a.runAfterHooks(req, resp); err != nil {
		return a.errorResponse(req, err)
	}
	return resp
}

func (a *App) process(req *Request) (resp *Response, err error) {
	defer a.recoverFault(req, &err)

	for _, mw := range a.middlewares {
		short, err := mw.BeforeRequest(req)
		if err != nil {
			return nil, err
		}
		if short != nil {
			resp = toResponse(short)
			a.persistSession(req, resp)
			return resp, nil
		}
	}

	rt, err := a.route(req, false)
	if err != nil {
		return nil, err
	}
	if err := req.parseBody(); err != nil {
		return nil, err
	}
	args, err := rt.bind(req, nil)
	if err != nil {
		return nil, err
	}
	result, err := rt.call(args)
	if err != nil {
		return nil, err
	}

	resp = toResponse(result)
	a.persistSession(req, resp)
	return resp, nil
}

func (a *App) runAfterHooks(req *Request, resp *Response) (err error) {
	defer a.recoverFault(req, &err)
	for _, mw := range a.middlewares {
		if err := mw.AfterRequest(req, resp); err != nil {
			return err
		}
	}
	return nil
}

// route resolves the handler: an explicit Request.Route wins over
// convention dispatch.
func (a *App) route(req *Request, socket bool) (*route, error) {
	if name, ok := req.RouteName(); ok {
		rt := a.registry.lookup(name, socket)
		if rt == nil {
			return nil, ErrNotFound("")
		}
		return rt, nil
	}
	rt, params, err := a.registry.resolve(req.segments, socket)
	if err != nil {
		return nil, err
	}
	req.pathParams = params
	return rt, nil
}

func (rt *route) call(args []reflect.Value) (any, error) {
	var out []reflect.Value
	if rt.variadic {
		out = rt.fn.CallSlice(args)
	} else {
		out = rt.fn.Call(args)
	}

	switch rt.result {
	case resultValue:
		return out[0].Interface(), nil
	case resultError:
		return nil, asError(out[0])
	case resultValueError:
		if err := asError(out[1]); err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	default:
		return nil, nil
	}
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

// persistSession saves a materialized session and adds the cookie for a
// new one. Failures are logged; the response still goes out.
func (a *App) persistSession(req *Request, resp *Response) {
	sess := req.loadedSession()
	if sess == nil {
		return
	}
	c, err := a.sessions.Persist(req, sess)
	if err != nil {
		a.logger.ErrorContext(req, "failed to save session", slog.Any("error", err))
		return
	}
	if c != nil {
		resp.AddHeader("Set-Cookie", c.String())
	}
}

// recoverFault turns a panic into an internal error. Aborted streams keep
// propagating to the server.
func (a *App) recoverFault(req *Request, err *error) {
	rec := recover()
	if rec == nil {
		return
	}
	if rec == http.ErrAbortHandler {
		panic(rec)
	}
	a.logger.ErrorContext(req, "panic recovered",
		slog.Any("panic", rec),
		slog.String("path", req.Path()),
		slog.String("stack", string(debug.Stack())),
	)
	*err = ErrInternal("", WithError(fmt.Errorf("panic: %v", rec)))
}

// errorResponse converts an error into a response. Errors that are not
// HTTPErrors become 500s.
func (a *App) errorResponse(req *Request, err error) *Response {
	httpErr := AsHTTPError(err)
	if httpErr == nil {
		httpErr = ErrInternal("", WithError(err))
	}

	if httpErr.Code >= http.StatusInternalServerError {
		a.logger.ErrorContext(req, "request failed",
			slog.String("method", req.Method()),
			slog.String("path", req.Path()),
			slog.Any("error", err),
		)
	} else {
		a.logger.DebugContext(req, "request rejected",
			slog.Int("status", httpErr.Code),
			slog.String("path", req.Path()),
			slog.Any("error", err),
		)
	}

	if a.errorHandler != nil {
		if resp := a.errorHandler(req, httpErr); resp != nil {
			return toResponse(resp)
		}
	}
	return &Response{Status: httpErr.Code, Body: httpErr.Body()}
}

func (a *App) serveWebSocket(w *ResponseWriter, req *Request) {
	for _, mw := range a.wsMiddlewares {
		if err := mw.BeforeWebSocket(req); err != nil {
			if !IsHTTPError(err) {
				err = ErrForbidden("", WithError(err))
			}
			a.emit(w, req, a.errorResponse(req, err))
			return
		}
	}
	defer func() {
		for _, mw := range a.wsMiddlewares {
			mw.AfterWebSocket(req)
		}
	}()

	ws := newWebSocket(w, req, a.wsOrigins)
	err := a.runWebSocket(req, ws)
	switch {
	case err == nil || errors.Is(err, ErrConnectionClosed):
		if ws.Accepted() {
			_ = ws.Close(int(websocket.StatusNormalClosure), "")
		} else if !w.Written() {
			_ = ws.Close(0, "")
		}
	case !ws.Accepted():
		if !w.Written() {
			a.emit(w, req, a.errorResponse(req, err))
		}
	default:
		a.logger.ErrorContext(req, "websocket handler failed", slog.Any("error", err))
		_ = ws.Close(int(websocket.StatusInternalError), "internal error")
	}

	if sess := req.loadedSession(); sess != nil {
		if _, err := a.sessions.Persist(req, sess); err != nil {
			a.logger.ErrorContext(req, "failed to save session", slog.Any("error", err))
		}
	}
}

func (a *App) runWebSocket(req *Request, ws *WebSocket) (err error) {
	defer a.recoverFault(req, &err)

	rt, err := a.route(req, true)
	if err != nil {
		return err
	}
	args, err := rt.bind(req, ws)
	if err != nil {
		return err
	}
	_, err = rt.call(args)
	return err
}
