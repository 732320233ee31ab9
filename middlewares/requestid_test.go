package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pie/internal"
	"github.com/dmitrymomot/pie/middlewares"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	t.Run("generates new request ID when not present", func(t *testing.T) {
		t.Parallel()
		app := newApp(t, internal.WithMiddleware(middlewares.RequestID()))

		w := get(app, "/id")
		require.Equal(t, http.StatusOK, w.Code)

		id := w.Header().Get("X-Request-ID")
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		require.Equal(t, id, w.Body.String())
	})

	t.Run("reuses incoming header", func(t *testing.T) {
		t.Parallel()
		app := newApp(t, internal.WithMiddleware(middlewares.RequestID()))

		req := httptest.NewRequest(http.MethodGet, "/id", nil)
		req.Header.Set("X-Request-ID", "upstream-id")
		w := do(app, req)

		require.Equal(t, "upstream-id", w.Body.String())
		require.Equal(t, "upstream-id", w.Header().Get("X-Request-ID"))
	})

	t.Run("falls back to correlation header", func(t *testing.T) {
		t.Parallel()
		app := newApp(t, internal.WithMiddleware(middlewares.RequestID()))

		req := httptest.NewRequest(http.MethodGet, "/id", nil)
		req.Header.Set("X-Correlation-ID", "corr-1")
		require.Equal(t, "corr-1", do(app, req).Body.String())
	})

	t.Run("custom generator and headers", func(t *testing.T) {
		t.Parallel()
		app := newApp(t, internal.WithMiddleware(middlewares.RequestID(
			middlewares.WithRequestIDGenerator(func() string { return "fixed" }),
			middlewares.WithRequestIDHeaders("X-Trace"),
			middlewares.WithRequestIDResponseHeader("X-Trace"),
		)))

		w := get(app, "/id")
		require.Equal(t, "fixed", w.Header().Get("X-Trace"))
		require.Empty(t, w.Header().Get("X-Request-ID"))

		req := httptest.NewRequest(http.MethodGet, "/id", nil)
		req.Header.Set("X-Request-ID", "ignored")
		require.Equal(t, "fixed", do(app, req).Body.String())
	})

	t.Run("error responses carry the ID", func(t *testing.T) {
		t.Parallel()
		app := newApp(t, internal.WithMiddleware(middlewares.RequestID()))

		w := get(app, "/missing")
		require.Equal(t, http.StatusNotFound, w.Code)
		require.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})
}

func TestRequestIDExtractor(t *testing.T) {
	t.Parallel()

	log, buf := testLogger(middlewares.RequestIDExtractor())
	app, err := internal.New(&site{},
		internal.WithLogger(log),
		internal.WithMiddleware(middlewares.RequestID()),
	)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/log", nil)
	req.Header.Set("X-Request-ID", "trace-42")
	require.Equal(t, "logged", do(app, req).Body.String())

	require.Contains(t, buf.String(), `"msg":"inside handler"`)
	require.Contains(t, buf.String(), `"request_id":"trace-42"`)
}
