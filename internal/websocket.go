package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/coder/websocket"
)

// WebSocket wraps one WebSocket connection. Handlers call Accept to finish
// the handshake, then exchange messages until the peer closes. A closed
// peer surfaces as ErrConnectionClosed.
type WebSocket struct {
	conn     *websocket.Conn
	req      *Request
	w        http.ResponseWriter
	origins  []string
	mu       sync.Mutex
	accepted bool
	closed   bool
}

func newWebSocket(w http.ResponseWriter, req *Request, origins []string) *WebSocket {
	return &WebSocket{w: w, req: req, origins: origins}
}

// Accept completes the handshake. The session cookie is sent with the
// handshake response when the session is new.
func (ws *WebSocket) Accept(subprotocols ...string) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.accepted {
		return ErrAlreadyAccepted
	}
	if ws.closed {
		return ErrConnectionClosed
	}

	if sess, err := ws.req.Session(); err == nil {
		c, err := ws.req.app.sessions.Persist(ws.req, sess)
		if err != nil {
			ws.req.logger.ErrorContext(ws.req, "failed to save session", slog.Any("error", err))
		} else if c != nil {
			http.SetCookie(ws.w, c)
		}
	}

	conn, err := websocket.Accept(ws.w, ws.req.r, &websocket.AcceptOptions{
		Subprotocols:   subprotocols,
		OriginPatterns: ws.origins,
	})
	if err != nil {
		ws.closed = true
		return fmt.Errorf("websocket accept: %w", err)
	}
	ws.conn = conn
	ws.accepted = true
	return nil
}

// Accepted reports whether the handshake completed.
func (ws *WebSocket) Accepted() bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.accepted
}

// Subprotocol returns the negotiated subprotocol.
func (ws *WebSocket) Subprotocol() string {
	conn, err := ws.connection()
	if err != nil {
		return ""
	}
	return conn.Subprotocol()
}

// Conn returns the underlying connection, nil before Accept.
func (ws *WebSocket) Conn() *websocket.Conn {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.conn
}

// ReceiveText reads the next message as text. Binary messages are returned
// as their raw bytes.
func (ws *WebSocket) ReceiveText(ctx context.Context) (string, error) {
	data, err := ws.read(ctx)
	return string(data), err
}

// ReceiveBytes reads the next message as bytes.
func (ws *WebSocket) ReceiveBytes(ctx context.Context) ([]byte, error) {
	return ws.read(ctx)
}

// SendText sends a text message.
func (ws *WebSocket) SendText(ctx context.Context, text string) error {
	return ws.write(ctx, websocket.MessageText, []byte(text))
}

// SendBytes sends a binary message.
func (ws *WebSocket) SendBytes(ctx context.Context, data []byte) error {
	return ws.write(ctx, websocket.MessageBinary, data)
}

// Close closes the connection with a status code and reason. Before Accept
// it rejects the handshake with 403 instead.
func (ws *WebSocket) Close(code int, reason string) error {
	ws.mu.Lock()
	if ws.closed {
		ws.mu.Unlock()
		return nil
	}
	ws.closed = true
	conn, accepted := ws.conn, ws.accepted
	ws.mu.Unlock()

	if !accepted {
		http.Error(ws.w, ErrForbidden(reason).Body(), http.StatusForbidden)
		return nil
	}
	err := conn.Close(websocket.StatusCode(code), reason)
	if err != nil && isClosed(err) {
		return nil
	}
	return err
}

func (ws *WebSocket) connection() (*websocket.Conn, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if !ws.accepted {
		return nil, ErrNotAccepted
	}
	return ws.conn, nil
}

func (ws *WebSocket) read(ctx context.Context) ([]byte, error) {
	conn, err := ws.connection()
	if err != nil {
		return nil, err
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		return nil, wrapClosed(err)
	}
	return data, nil
}

func (ws *WebSocket) write(ctx context.Context, typ websocket.MessageType, data []byte) error {
	conn, err := ws.connection()
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, typ, data); err != nil {
		return wrapClosed(err)
	}
	return nil
}

func wrapClosed(err error) error {
	if isClosed(err) {
		return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}
	return err
}

func isClosed(err error) bool {
	return websocket.CloseStatus(err) != -1 ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed)
}

// isWebSocketUpgrade reports whether r asks for a WebSocket handshake.
func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		headerContainsToken(r.Header, "Connection", "upgrade")
}

func headerContainsToken(h http.Header, name, token string) bool {
	for _, v := range h.Values(name) {
		for part := range strings.SplitSeq(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}
