package middlewares_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pie/internal"
	"github.com/dmitrymomot/pie/middlewares"
	"github.com/dmitrymomot/pie/pkg/cache"
)

func fromClient(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = addr
	return req
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (middlewares.RateBucket, error) {
	return middlewares.RateBucket{}, errors.New("store down")
}

func (brokenStore) Set(context.Context, string, middlewares.RateBucket, time.Duration) error {
	return errors.New("store down")
}
func (brokenStore) Touch(context.Context, string, time.Duration) error { return nil }
func (brokenStore) Delete(context.Context, string) error               { return nil }
func (brokenStore) Close() error                                       { return nil }

func TestRateLimit(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests over capacity", func(t *testing.T) {
		t.Parallel()
		app := newApp(t, internal.WithMiddleware(middlewares.MustRateLimit(2)))

		for want := 1; want >= 0; want-- {
			w := do(app, fromClient("10.0.0.1:1234"))
			require.Equal(t, http.StatusOK, w.Code)
			require.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
			require.Equal(t, strconv.Itoa(want), w.Header().Get("X-RateLimit-Remaining"))
		}

		w := do(app, fromClient("10.0.0.1:5678"))
		require.Equal(t, http.StatusTooManyRequests, w.Code)
		require.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		require.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))

		retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
		require.NoError(t, err)
		require.GreaterOrEqual(t, retry, 1)
		require.LessOrEqual(t, retry, 60)
	})

	t.Run("clients have separate buckets", func(t *testing.T) {
		t.Parallel()
		app := newApp(t, internal.WithMiddleware(middlewares.MustRateLimit(1)))

		require.Equal(t, http.StatusOK, do(app, fromClient("10.0.0.1:1")).Code)
		require.Equal(t, http.StatusTooManyRequests, do(app, fromClient("10.0.0.1:1")).Code)
		require.Equal(t, http.StatusOK, do(app, fromClient("10.0.0.2:1")).Code)
	})

	t.Run("bucket refills", func(t *testing.T) {
		t.Parallel()
		app := newApp(t, internal.WithMiddleware(middlewares.MustRateLimit(1,
			middlewares.WithRefill(1, 20*time.Millisecond),
		)))

		require.Equal(t, http.StatusOK, do(app, fromClient("10.0.0.1:1")).Code)
		require.Equal(t, http.StatusTooManyRequests, do(app, fromClient("10.0.0.1:1")).Code)
		time.Sleep(40 * time.Millisecond)
		require.Equal(t, http.StatusOK, do(app, fromClient("10.0.0.1:1")).Code)
	})

	t.Run("custom key and shared store", func(t *testing.T) {
		t.Parallel()
		store := cache.NewMemory[middlewares.RateBucket]()
		t.Cleanup(func() { _ = store.Close() })

		app := newApp(t, internal.WithMiddleware(middlewares.MustRateLimit(1,
			middlewares.WithRateLimitKey(internal.FromHeader("X-API-Key")),
			middlewares.WithRateLimitStore(store),
		)))

		keyed := func(key string) *http.Request {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if key != "" {
				req.Header.Set("X-API-Key", key)
			}
			return req
		}

		require.Equal(t, http.StatusOK, do(app, keyed("a")).Code)
		require.Equal(t, http.StatusTooManyRequests, do(app, keyed("a")).Code)
		require.Equal(t, http.StatusOK, do(app, keyed("b")).Code)

		_, err := store.Get(context.Background(), "a")
		require.NoError(t, err)

		// Requests without a key are not limited.
		w := do(app, keyed(""))
		require.Equal(t, http.StatusOK, w.Code)
		require.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	})

	t.Run("store failure lets requests through", func(t *testing.T) {
		t.Parallel()
		app := newApp(t, internal.WithMiddleware(middlewares.MustRateLimit(1,
			middlewares.WithRateLimitStore(brokenStore{}),
		)))

		for range 3 {
			require.Equal(t, http.StatusOK, do(app, fromClient("10.0.0.1:1")).Code)
		}
	})

	t.Run("invalid configuration", func(t *testing.T) {
		t.Parallel()
		_, err := middlewares.RateLimit(0)
		require.Error(t, err)

		_, err = middlewares.RateLimit(5, middlewares.WithRefill(0, time.Second))
		require.Error(t, err)

		require.Panics(t, func() { middlewares.MustRateLimit(-1) })
	})
}
