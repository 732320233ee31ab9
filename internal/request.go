package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/pie/pkg/session"
	"github.com/dmitrymomot/pie/pkg/storage"
)

// Request is the per-request bundle handed to handlers and middleware.
// It implements context.Context; the context is cancelled when the
// response is finished.
type Request struct {
	r      *http.Request
	w      *ResponseWriter
	app    *App
	logger *slog.Logger

	path       string
	query      url.Values
	segments   []string
	pathParams []string
	route      string
	routeSet   bool

	bodyOnce sync.Once
	bodyErr  error
	rawJSON  []byte
	json     any

	// Guarded by mu: filled progressively by the multipart parser.
	mu        sync.Mutex
	body      url.Values
	files     map[string]*FileUpload
	multipart *multipartState
	values    map[any]any

	sessMu      sync.Mutex
	session     *session.Session
	sessChecked bool
}

func newRequest(app *App, w *ResponseWriter, r *http.Request, path string) *Request {
	return &Request{
		r:        r,
		w:        w,
		app:      app,
		logger:   app.logger,
		path:     path,
		query:    parseQuery(r.URL.RawQuery),
		segments: splitPath(path),
		body:     make(url.Values),
		files:    make(map[string]*FileUpload),
	}
}

// Context methods delegate to the underlying request context.

func (r *Request) Deadline() (time.Time, bool) { return r.r.Context().Deadline() }
func (r *Request) Done() <-chan struct{}       { return r.r.Context().Done() }
func (r *Request) Err() error                  { return r.r.Context().Err() }

// Value returns a value stored with Set, else the request context's value.
func (r *Request) Value(key any) any {
	r.mu.Lock()
	v, ok := r.values[key]
	r.mu.Unlock()
	if ok {
		return v
	}
	return r.r.Context().Value(key)
}

// Set stores a request-scoped value, visible through Get and Value.
func (r *Request) Set(key, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.values == nil {
		r.values = make(map[any]any)
	}
	r.values[key] = value
}

// Get returns a value stored with Set.
func (r *Request) Get(key any) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values[key]
}

// HTTP returns the underlying *http.Request.
func (r *Request) HTTP() *http.Request {
	return r.r
}

// Logger returns the application logger.
func (r *Request) Logger() *slog.Logger {
	return r.logger
}

func (r *Request) Method() string {
	return r.r.Method
}

// Path returns the request path relative to where the App is mounted.
func (r *Request) Path() string {
	return r.path
}

// PathParams returns the path segments after the handler name. It is empty
// until the route is resolved. Binding reads them without consuming, so the
// full list is always returned.
func (r *Request) PathParams() []string {
	return slices.Clone(r.pathParams)
}

// Route selects the handler and its path parameters explicitly, bypassing
// convention dispatch. Call it from a before-request hook.
func (r *Request) Route(name string, params ...string) {
	r.route = name
	r.routeSet = true
	r.pathParams = slices.Clone(params)
}

// RouteName returns the explicitly selected route, if any.
func (r *Request) RouteName() (string, bool) {
	return r.route, r.routeSet
}

// Query returns a copy of the parsed query string. Blank values are dropped.
func (r *Request) Query() url.Values {
	return cloneValues(r.query)
}

// QueryValue returns the first value of a query parameter.
func (r *Request) QueryValue(name string) string {
	if vals := r.query[name]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Body returns a copy of the body parameters parsed so far. For multipart
// bodies fields after the first file appear as the upload stream is read.
func (r *Request) Body() url.Values {
	_ = r.parseBody()
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneValues(r.body)
}

// BodyValue returns the first value of a body parameter.
func (r *Request) BodyValue(name string) string {
	v, _ := r.bodyValue(name)
	return v
}

// SetBodyValue replaces a body parameter. Middleware uses it to rewrite
// input before binding.
func (r *Request) SetBodyValue(name string, values ...string) {
	_ = r.parseBody()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(values) == 0 {
		delete(r.body, name)
		return
	}
	r.body[name] = slices.Clone(values)
}

func (r *Request) bodyValue(name string) (string, bool) {
	vals := r.bodyValues(name)
	if len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

func (r *Request) bodyValues(name string) []string {
	_ = r.parseBody()
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.body[name])
}

// JSON returns the decoded JSON body, or nil when the request had none.
func (r *Request) JSON() any {
	_ = r.parseBody()
	return r.json
}

// BindJSON decodes the JSON body into v.
func (r *Request) BindJSON(v any) error {
	if err := r.parseBody(); err != nil {
		return err
	}
	if r.rawJSON == nil {
		return ErrBadRequest("Missing JSON body")
	}
	if err := json.Unmarshal(r.rawJSON, v); err != nil {
		return ErrBadRequest("Bad JSON", WithError(err))
	}
	return nil
}

// Header returns the first value of a request header.
func (r *Request) Header(name string) string {
	return r.r.Header.Get(name)
}

// Headers returns the request headers.
func (r *Request) Headers() http.Header {
	return r.r.Header
}

// Cookie returns the value of a request cookie. Signed cookies are verified
// when the application has a cookie secret.
func (r *Request) Cookie(name string) (string, error) {
	return r.app.cookies.Read(r.r, name)
}

// SetCookie adds a cookie to the response, signed when a cookie secret is
// configured.
func (r *Request) SetCookie(name, value string, maxAge int) {
	http.SetCookie(r.w, r.app.cookies.Cookie(name, value, maxAge))
}

// Files returns the uploads received so far.
func (r *Request) Files() map[string]*FileUpload {
	_ = r.parseBody()
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.files)
}

// File returns an upload received so far, or nil.
func (r *Request) File(name string) *FileUpload {
	_ = r.parseBody()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.files[name]
}

// WaitFile blocks until the named upload arrives or the body ends. Earlier
// uploads must be drained first since they share the request stream.
func (r *Request) WaitFile(ctx context.Context, name string) (*FileUpload, error) {
	if err := r.parseBody(); err != nil {
		return nil, err
	}
	for {
		r.mu.Lock()
		up, ok := r.files[name]
		mp := r.multipart
		r.mu.Unlock()
		if ok {
			return up, nil
		}
		if mp == nil {
			return nil, ErrUploadNotFound
		}

		changed, finished, err := mp.snapshot()
		if finished {
			if err != nil {
				return nil, err
			}
			if up := r.File(name); up != nil {
				return up, nil
			}
			return nil, ErrUploadNotFound
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Session returns the client's session, loading it on first use. A client
// without a valid session token gets a new, empty session; it is persisted
// and its cookie set once the handler returns.
func (r *Request) Session() (*session.Session, error) {
	r.sessMu.Lock()
	defer r.sessMu.Unlock()
	if r.session != nil {
		return r.session, nil
	}
	sess, err := r.app.sessions.Get(r, r.r)
	if err != nil {
		return nil, err
	}
	r.session = sess
	r.sessChecked = true
	return sess, nil
}

// existingSession returns the session only if the client already has one.
// It never mints a token.
func (r *Request) existingSession() *session.Session {
	r.sessMu.Lock()
	defer r.sessMu.Unlock()
	if r.session != nil || r.sessChecked {
		return r.session
	}
	r.sessChecked = true
	sess, err := r.app.sessions.Existing(r, r.r)
	if err != nil {
		r.logger.WarnContext(r, "session lookup failed", slog.Any("error", err))
		return nil
	}
	r.session = sess
	return sess
}

// loadedSession returns the session if something materialized it.
func (r *Request) loadedSession() *session.Session {
	r.sessMu.Lock()
	defer r.sessMu.Unlock()
	return r.session
}

// Render renders a template with the application renderer.
func (r *Request) Render(name string, data any) (string, error) {
	if r.app.renderer == nil {
		return "", ErrRendererNotConfigured
	}
	return r.app.renderer.Render(r, name, data)
}

// Storage returns the configured object storage.
func (r *Request) Storage() (storage.Storage, error) {
	if r.app.storage == nil {
		return nil, ErrStorageNotConfigured
	}
	return r.app.storage, nil
}

// SaveFile streams an upload into the configured storage.
func (r *Request) SaveFile(up *FileUpload, opts ...storage.Option) (*storage.Object, error) {
	s, err := r.Storage()
	if err != nil {
		return nil, err
	}
	if up == nil {
		return nil, ErrUploadNotFound
	}
	opts = append([]storage.Option{
		storage.WithFilename(up.Filename),
		storage.WithContentType(up.ContentType),
	}, opts...)
	obj, err := s.Put(r, up.Reader(r), opts...)
	if err != nil {
		return nil, fmt.Errorf("save upload %s: %w", up.Field, err)
	}
	return obj, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = slices.Clone(vals)
	}
	return out
}

var _ context.Context = (*Request)(nil)
