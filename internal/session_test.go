package internal_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pie/internal"
	"github.com/dmitrymomot/pie/pkg/cookie"
	"github.com/dmitrymomot/pie/pkg/session"
)

// counter increments a per-session visit counter.
func counter(r *internal.Request) (int, error) {
	sess, err := r.Session()
	if err != nil {
		return 0, err
	}
	n := session.ValueOr(sess, "visits", 0) + 1
	sess.Set("visits", n)
	return n, nil
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "session_id" {
			return c
		}
	}
	return nil
}

func withCookie(target string, c *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if c != nil {
		req.AddCookie(c)
	}
	return req
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("untouched session sets no cookie", func(t *testing.T) {
		t.Parallel()
		app := newApp(t, &site{})
		w := get(t, app, "/")
		require.Nil(t, sessionCookie(t, w))
	})

	t.Run("parameter lookup does not mint a session", func(t *testing.T) {
		t.Parallel()
		app := newApp(t, &site{})
		w := get(t, app, "/echo")
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Nil(t, sessionCookie(t, w))
	})

	t.Run("new session gets a cookie", func(t *testing.T) {
		t.Parallel()
		app := newApp(t, nil, internal.WithHandler("count", counter))
		w := get(t, app, "/count")
		require.Equal(t, "1", w.Body.String())

		c := sessionCookie(t, w)
		require.NotNil(t, c)
		require.NotEmpty(t, c.Value)
		require.Equal(t, int((8 * time.Hour).Seconds()), c.MaxAge)
		require.True(t, c.HttpOnly)
	})

	t.Run("returning client keeps its session", func(t *testing.T) {
		t.Parallel()
		app := newApp(t, nil, internal.WithHandler("count", counter))
		c := sessionCookie(t, get(t, app, "/count"))
		require.NotNil(t, c)

		w := do(t, app, withCookie("/count", c))
		require.Equal(t, "2", w.Body.String())
		require.Nil(t, sessionCookie(t, w))

		w = do(t, app, withCookie("/count", c))
		require.Equal(t, "3", w.Body.String())
	})

	t.Run("unknown token starts over", func(t *testing.T) {
		t.Parallel()
		app := newApp(t, nil, internal.WithHandler("count", counter))
		w := do(t, app, withCookie("/count", &http.Cookie{Name: "session_id", Value: "forged"}))
		require.Equal(t, "1", w.Body.String())

		c := sessionCookie(t, w)
		require.NotNil(t, c)
		require.NotEqual(t, "forged", c.Value)
	})

	t.Run("expired session is treated as absent", func(t *testing.T) {
		t.Parallel()
		app := newApp(t, nil,
			internal.WithHandler("count", counter),
			internal.WithSessionTimeout(30*time.Millisecond),
		)
		c := sessionCookie(t, get(t, app, "/count"))
		require.NotNil(t, c)

		time.Sleep(80 * time.Millisecond)

		w := do(t, app, withCookie("/count", c))
		require.Equal(t, "1", w.Body.String())
		fresh := sessionCookie(t, w)
		require.NotNil(t, fresh)
		require.NotEqual(t, c.Value, fresh.Value)
	})

	t.Run("custom cookie name", func(t *testing.T) {
		t.Parallel()
		app := newApp(t, nil,
			internal.WithHandler("count", counter),
			internal.WithSessionOptions(internal.SessionCookieName("sid")),
		)
		w := get(t, app, "/count")
		require.Contains(t, w.Header().Get("Set-Cookie"), "sid=")
	})

	t.Run("signed cookie rejects tampering", func(t *testing.T) {
		t.Parallel()
		app := newApp(t, nil,
			internal.WithHandler("count", counter),
			internal.WithCookieOptions(cookie.WithSecret(strings.Repeat("k", 32))),
		)
		c := sessionCookie(t, get(t, app, "/count"))
		require.NotNil(t, c)

		require.Equal(t, "2", do(t, app, withCookie("/count", c)).Body.String())

		c.Value = "x" + c.Value
		require.Equal(t, "1", do(t, app, withCookie("/count", c)).Body.String())
	})

	t.Run("custom store", func(t *testing.T) {
		t.Parallel()
		store := session.NewMemoryStore()
		app := newApp(t, nil,
			internal.WithHandler("count", counter),
			internal.WithSessionStore(store),
		)
		c := sessionCookie(t, get(t, app, "/count"))
		require.NotNil(t, c)

		data, err := store.Load(t.Context(), c.Value)
		require.NoError(t, err)
		require.EqualValues(t, 1, data["visits"])
	})
}

func TestSessionManager(t *testing.T) {
	t.Parallel()

	cookies, err := cookie.New()
	require.NoError(t, err)
	sm := internal.NewSessionManager(session.NewMemoryStore(), cookies, internal.SessionTimeout(time.Minute))
	require.Equal(t, time.Minute, sm.Timeout())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Existing(t.Context(), req)
	require.NoError(t, err)
	require.Nil(t, sess)

	sess, err = sm.Get(t.Context(), req)
	require.NoError(t, err)
	require.True(t, sess.IsNew())

	c, err := sm.Persist(t.Context(), sess)
	require.NoError(t, err)
	require.NotNil(t, c)
	require.Equal(t, 60, c.MaxAge)

	// Saved and unchanged: nothing to do.
	c, err = sm.Persist(t.Context(), sess)
	require.NoError(t, err)
	require.Nil(t, c)

	req.AddCookie(sm.Cookie(sess))
	loaded, err := sm.Existing(t.Context(), req)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, sess.Token(), loaded.Token())
	require.False(t, loaded.IsNew())
}

func TestClearedSessionIsDeleted(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	app := newApp(t, nil,
		internal.WithHandler("count", counter),
		internal.WithHandler("logout", func(r *internal.Request) (string, error) {
			sess, err := r.Session()
			if err != nil {
				return "", err
			}
			sess.Clear()
			return "bye", nil
		}),
		internal.WithSessionStore(store),
	)

	c := sessionCookie(t, get(t, app, "/count"))
	require.NotNil(t, c)
	_, err := store.Load(t.Context(), c.Value)
	require.NoError(t, err)

	w := do(t, app, withCookie("/logout", c))
	require.Equal(t, "bye", w.Body.String())
	expired := sessionCookie(t, w)
	require.NotNil(t, expired)
	require.Empty(t, expired.Value)
	require.Less(t, expired.MaxAge, 0)

	_, err = store.Load(t.Context(), c.Value)
	require.ErrorIs(t, err, session.ErrNotFound)
}
