package internal

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/pie/pkg/cookie"
	"github.com/dmitrymomot/pie/pkg/session"
)

// Default session configuration.
const (
	defaultSessionCookieName = "session_id"
	defaultSessionTimeout    = session.DefaultTimeout
)

// SessionManager loads sessions from the store by the token in the session
// cookie and writes them back after the handler.
type SessionManager struct {
	store      session.Store
	cookies    *cookie.Manager
	logger     *slog.Logger
	loads      singleflight.Group
	newToken   func() string
	cookieName string
	timeout    time.Duration
}

// SessionOption configures the SessionManager.
type SessionOption func(*SessionManager)

// NewSessionManager creates a SessionManager. cookies builds the session
// cookie and carries its attributes.
func NewSessionManager(store session.Store, cookies *cookie.Manager, opts ...SessionOption) *SessionManager {
	sm := &SessionManager{
		store:      store,
		cookies:    cookies,
		logger:     slog.New(slog.DiscardHandler),
		newToken:   uuid.NewString,
		cookieName: defaultSessionCookieName,
		timeout:    defaultSessionTimeout,
	}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

// SessionCookieName sets the session cookie name. Defaults to "session_id".
func SessionCookieName(name string) SessionOption {
	return func(sm *SessionManager) {
		if name != "" {
			sm.cookieName = name
		}
	}
}

// SessionTimeout sets how long an untouched session lives.
func SessionTimeout(d time.Duration) SessionOption {
	return func(sm *SessionManager) {
		if d > 0 {
			sm.timeout = d
		}
	}
}

// SetLogger sets the logger for session events. Called by App after initialization.
func (sm *SessionManager) SetLogger(l *slog.Logger) {
	if l != nil {
		sm.logger = l
	}
}

// Store returns the underlying session store.
func (sm *SessionManager) Store() session.Store {
	return sm.store
}

// Timeout returns the session timeout.
func (sm *SessionManager) Timeout() time.Duration {
	return sm.timeout
}

// Existing returns the session named by the request cookie. It returns
// nil, nil when the cookie is missing, forged, unknown or expired.
func (sm *SessionManager) Existing(ctx context.Context, r *http.Request) (*session.Session, error) {
	token, err := sm.cookies.Read(r, sm.cookieName)
	if err != nil {
		if errors.Is(err, cookie.ErrBadSig) {
			sm.logger.WarnContext(ctx, "session cookie signature mismatch")
		}
		return nil, nil
	}
	if token == "" {
		return nil, nil
	}

	// Concurrent requests of one client share a single store round-trip.
	// Each still gets its own copy of the data.
	v, err, _ := sm.loads.Do(token, func() (any, error) {
		return sm.store.Load(ctx, token)
	})
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrInvalidToken) {
			return nil, nil
		}
		return nil, err
	}
	data, _ := v.(map[string]any)
	return session.Restore(token, data), nil
}

// Get returns the existing session or a new one with a fresh token.
func (sm *SessionManager) Get(ctx context.Context, r *http.Request) (*session.Session, error) {
	sess, err := sm.Existing(ctx, r)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		sess = session.New(sm.newToken())
	}
	return sess, nil
}

// Persist saves a new or mutated session. It returns the cookie to send
// when the session was new or removed, nil otherwise. A stored session that
// was emptied is deleted when the store supports it.
func (sm *SessionManager) Persist(ctx context.Context, sess *session.Session) (*http.Cookie, error) {
	if sess == nil || !sess.NeedsSave() {
		return nil, nil
	}
	isNew := sess.IsNew()
	if d, ok := sm.store.(session.Deleter); ok && !isNew && sess.Len() == 0 {
		if err := d.Delete(ctx, sess.Token()); err != nil {
			return nil, err
		}
		sess.MarkSaved()
		return sm.cookies.Expire(sm.cookieName), nil
	}
	if err := sm.store.Save(ctx, sess.Token(), sess.Values(), sm.timeout); err != nil {
		return nil, err
	}
	sess.MarkSaved()
	if !isNew {
		return nil, nil
	}
	return sm.Cookie(sess), nil
}

// Cookie builds the session cookie for sess.
func (sm *SessionManager) Cookie(sess *session.Session) *http.Cookie {
	return sm.cookies.Cookie(sm.cookieName, sess.Token(), int(sm.timeout.Seconds()))
}
