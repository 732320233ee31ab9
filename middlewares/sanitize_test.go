package middlewares_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pie/internal"
	"github.com/dmitrymomot/pie/middlewares"
	"github.com/dmitrymomot/pie/pkg/sanitizer"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	form := url.Values{
		"comment": {`<script>alert(1)</script><b>hello</b>`},
		"raw":     {"<i>kept</i>"},
	}

	t.Run("strips markup except skipped keys", func(t *testing.T) {
		t.Parallel()
		app := newApp(t, internal.WithMiddleware(middlewares.Sanitize("raw")))

		w := do(app, formRequest("/echo", form))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "hello|<i>kept</i>", w.Body.String())
	})

	t.Run("custom cleaner", func(t *testing.T) {
		t.Parallel()
		app := newApp(t, internal.WithMiddleware(middlewares.SanitizeWith(sanitizer.SanitizeHTML)))

		w := do(app, formRequest("/echo", form))
		require.Equal(t, "<b>hello</b>|<i>kept</i>", w.Body.String())
	})

	t.Run("requests without a body pass", func(t *testing.T) {
		t.Parallel()
		app := newApp(t, internal.WithMiddleware(middlewares.Sanitize()))

		w := get(app, "/echo?comment=%3Cb%3Ex%3C%2Fb%3E&raw=y")
		require.Equal(t, "<b>x</b>|y", w.Body.String())
	})
}
