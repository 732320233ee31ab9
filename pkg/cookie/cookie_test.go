package cookie_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pie/pkg/cookie"
)

const secret = "0123456789abcdef0123456789abcdef"

func requestWith(c *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if c != nil {
		req.AddCookie(c)
	}
	return req
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := cookie.New(cookie.WithSecret("short"))
	require.ErrorIs(t, err, cookie.ErrBadSecret)

	m, err := cookie.New()
	require.NoError(t, err)
	require.False(t, m.Signed())
}

func TestManager_Cookie(t *testing.T) {
	t.Parallel()

	m, err := cookie.New(cookie.WithDomain("example.com"), cookie.WithSecure(false))
	require.NoError(t, err)

	c := m.Cookie("session_id", "abc", 3600)
	require.Equal(t, "session_id", c.Name)
	require.Equal(t, "abc", c.Value)
	require.Equal(t, "/", c.Path)
	require.Equal(t, "example.com", c.Domain)
	require.Equal(t, 3600, c.MaxAge)
	require.True(t, c.HttpOnly)
	require.False(t, c.Secure)
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)

	s := c.String()
	require.True(t, strings.HasPrefix(s, "session_id=abc"))
	require.Contains(t, s, "SameSite=Lax")
}

func TestManager_Read(t *testing.T) {
	t.Parallel()

	t.Run("missing cookie", func(t *testing.T) {
		t.Parallel()

		m, _ := cookie.New()
		_, err := m.Read(requestWith(nil), "session_id")
		require.ErrorIs(t, err, cookie.ErrNotFound)
	})

	t.Run("plain round trip", func(t *testing.T) {
		t.Parallel()

		m, _ := cookie.New()
		v, err := m.Read(requestWith(m.Cookie("a", "value", 0)), "a")
		require.NoError(t, err)
		require.Equal(t, "value", v)
	})

	t.Run("signed round trip", func(t *testing.T) {
		t.Parallel()

		m, err := cookie.New(cookie.WithSecret(secret))
		require.NoError(t, err)

		c := m.Cookie("a", "value", 0)
		require.NotEqual(t, "value", c.Value)

		v, err := m.Read(requestWith(c), "a")
		require.NoError(t, err)
		require.Equal(t, "value", v)
	})

	t.Run("tampered signature", func(t *testing.T) {
		t.Parallel()

		m, _ := cookie.New(cookie.WithSecret(secret))
		c := m.Cookie("a", "value", 0)
		c.Value = "dGFtcGVyZWQ." + strings.SplitN(c.Value, ".", 2)[1]

		_, err := m.Read(requestWith(c), "a")
		require.ErrorIs(t, err, cookie.ErrBadSig)
	})

	t.Run("unsigned value with signing enabled", func(t *testing.T) {
		t.Parallel()

		m, _ := cookie.New(cookie.WithSecret(secret))
		_, err := m.Read(requestWith(&http.Cookie{Name: "a", Value: "plain"}), "a")
		require.ErrorIs(t, err, cookie.ErrBadSig)
	})
}

func TestManager_Expire(t *testing.T) {
	t.Parallel()

	m, _ := cookie.New(cookie.WithSecret(secret))
	c := m.Expire("a")
	require.Equal(t, -1, c.MaxAge)
	require.Empty(t, c.Value)
	require.Contains(t, c.String(), "Max-Age=0")
}
