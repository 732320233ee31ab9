package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pie/internal"
	"github.com/dmitrymomot/pie/middlewares"
)

func TestRouter(t *testing.T) {
	t.Parallel()

	rt := middlewares.NewRouter().
		Get("/api/users/{user}/records/{record}", "record").
		Post("/api/submit", "submit").
		Handle("", "/any/{id:[0-9]+}", "id").
		Get("/api/ghost", "ghost")
	app := newApp(t, internal.WithMiddleware(middlewares.RequestID(), rt))

	t.Run("pattern parameters become path params", func(t *testing.T) {
		t.Parallel()
		w := get(app, "/api/users/7/records/9")
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "7/9", w.Body.String())
	})

	t.Run("method must match", func(t *testing.T) {
		t.Parallel()
		w := do(app, httptest.NewRequest(http.MethodPost, "/api/submit", nil))
		require.Equal(t, "ok", w.Body.String())

		require.Equal(t, http.StatusNotFound, get(app, "/api/submit").Code)
	})

	t.Run("any method and regexp parameters", func(t *testing.T) {
		t.Parallel()
		w := do(app, httptest.NewRequest(http.MethodDelete, "/any/42", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.NotEmpty(t, w.Body.String())

		require.Equal(t, http.StatusNotFound, get(app, "/any/abc").Code)
	})

	t.Run("unmatched requests use convention dispatch", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, "a/b", get(app, "/record/a/b").Body.String())
	})

	t.Run("unknown handler name is not found", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, http.StatusNotFound, get(app, "/api/ghost").Code)
	})
}
