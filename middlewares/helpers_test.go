package middlewares_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pie/internal"
	"github.com/dmitrymomot/pie/middlewares"
	"github.com/dmitrymomot/pie/pkg/logger"
)

type site struct{}

func (site) Index() string                     { return "home" }
func (site) Echo(comment, raw string) string   { return comment + "|" + raw }
func (site) Record(user, record string) string { return user + "/" + record }
func (site) Submit() string                    { return "ok" }
func (site) Fail() error                       { return internal.ErrBadRequest("bad input") }
func (site) ID(r *internal.Request) string     { return middlewares.GetRequestID(r) }

func (site) Token(r *internal.Request) (string, error) {
	return middlewares.CSRFToken(r)
}

func (site) Log(r *internal.Request) string {
	r.Logger().InfoContext(r, "inside handler")
	return "logged"
}

type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testLogger(extractors ...logger.ContextExtractor) (*slog.Logger, *logBuffer) {
	buf := &logBuffer{}
	return logger.New(logger.Config{Output: buf, Level: "debug"}, extractors...), buf
}

func newApp(t *testing.T, opts ...internal.Option) *internal.App {
	t.Helper()
	opts = append([]internal.Option{internal.WithLogger(logger.NewNope())}, opts...)
	app, err := internal.New(&site{}, opts...)
	require.NoError(t, err)
	return app
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	return do(h, httptest.NewRequest(http.MethodGet, target, nil))
}

func formRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "session_id" {
			return c
		}
	}
	return nil
}
