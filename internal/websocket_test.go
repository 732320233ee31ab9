package internal_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pie/internal"
)

type chat struct {
	left atomic.Int32
}

func (c *chat) Index() string { return "lobby" }

// WSIndex echoes messages in upper case until the peer leaves.
func (c *chat) WSIndex(ctx context.Context, ws *internal.WebSocket) error {
	if err := ws.Accept(); err != nil {
		return err
	}
	for {
		msg, err := ws.ReceiveText(ctx)
		if err != nil {
			return err
		}
		if err := ws.SendText(ctx, strings.ToUpper(msg)); err != nil {
			return err
		}
	}
}

// WSRoom greets with the room name taken from the path.
func (c *chat) WSRoom(ws *internal.WebSocket, room string) error {
	if err := ws.Accept(); err != nil {
		return err
	}
	return ws.SendText(context.Background(), "welcome to "+room)
}

// WSPrivate refuses every connection.
func (c *chat) WSPrivate(ws *internal.WebSocket) error {
	return ws.Close(0, "members only")
}

// WSBroken fails after the handshake.
func (c *chat) WSBroken(ws *internal.WebSocket) error {
	if err := ws.Accept(); err != nil {
		return err
	}
	return errors.New("handler failed")
}

func (c *chat) BeforeWebSocket(r *internal.Request) error {
	if r.QueryValue("ban") != "" {
		return errors.New("banned")
	}
	return nil
}

func (c *chat) AfterWebSocket(*internal.Request) {
	c.left.Add(1)
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func dial(t *testing.T, srv *httptest.Server, path string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	t.Cleanup(cancel)
	return websocket.Dial(ctx, wsURL(srv, path), nil)
}

func TestWebSocket(t *testing.T) {
	t.Parallel()

	c := &chat{}
	app := newApp(t, c)
	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)

	t.Run("plain request still served", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("echo on index", func(t *testing.T) {
		conn, _, err := dial(t, srv, "/")
		require.NoError(t, err)
		defer conn.CloseNow()

		ctx := t.Context()
		require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("hello")))
		typ, data, err := conn.Read(ctx)
		require.NoError(t, err)
		require.Equal(t, websocket.MessageText, typ)
		require.Equal(t, "HELLO", string(data))

		require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	})

	t.Run("session cookie on handshake", func(t *testing.T) {
		conn, resp, err := dial(t, srv, "/")
		require.NoError(t, err)
		defer conn.CloseNow()

		var found bool
		for _, ck := range resp.Cookies() {
			found = found || ck.Name == "session_id"
		}
		require.True(t, found)
	})

	t.Run("path arguments", func(t *testing.T) {
		conn, _, err := dial(t, srv, "/room/general")
		require.NoError(t, err)
		defer conn.CloseNow()

		_, data, err := conn.Read(t.Context())
		require.NoError(t, err)
		require.Equal(t, "welcome to general", string(data))

		_, _, err = conn.Read(t.Context())
		require.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
	})

	t.Run("rejected before accept", func(t *testing.T) {
		_, resp, err := dial(t, srv, "/private")
		require.Error(t, err)
		require.NotNil(t, resp)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("middleware rejects", func(t *testing.T) {
		_, resp, err := dial(t, srv, "/?ban=1")
		require.Error(t, err)
		require.NotNil(t, resp)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("unknown socket route", func(t *testing.T) {
		_, resp, err := dial(t, srv, "/nope")
		require.Error(t, err)
		require.NotNil(t, resp)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("handler error closes with internal error", func(t *testing.T) {
		conn, _, err := dial(t, srv, "/broken")
		require.NoError(t, err)
		defer conn.CloseNow()

		_, _, err = conn.Read(t.Context())
		require.Equal(t, websocket.StatusInternalError, websocket.CloseStatus(err))
	})

	t.Run("after hook runs", func(t *testing.T) {
		require.Eventually(t, func() bool { return c.left.Load() > 0 }, time.Second, 10*time.Millisecond)
	})
}

func TestWebSocketHandlerOption(t *testing.T) {
	t.Parallel()

	app := newApp(t, nil, internal.WithWebSocketHandler("ping", func(ws *internal.WebSocket) error {
		if err := ws.Accept(); err != nil {
			return err
		}
		if _, err := ws.ReceiveText(context.Background()); err != nil {
			return err
		}
		return ws.SendText(context.Background(), "pong")
	}))
	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)

	conn, _, err := dial(t, srv, "/ping")
	require.NoError(t, err)
	defer conn.CloseNow()

	require.NoError(t, conn.Write(t.Context(), websocket.MessageText, []byte("ping")))
	_, data, err := conn.Read(t.Context())
	require.NoError(t, err)
	require.Equal(t, "pong", string(data))

	_, err = internal.New(nil, internal.WithWebSocketHandler("bad", func() error { return nil }))
	require.ErrorIs(t, err, internal.ErrInvalidHandler)
}
