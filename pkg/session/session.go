package session

import (
	"maps"
	"sync"
	"time"
)

// DefaultTimeout is how long a session survives without being touched.
const DefaultTimeout = 8 * time.Hour

// Session is the working copy of one client's session for the duration of
// a request. Changes are persisted by the application after the handler
// returns, and only when the session is new or was mutated.
type Session struct {
	touched time.Time
	values  map[string]any
	token   string
	mu      sync.RWMutex
	isNew   bool
	dirty   bool
}

// New creates an empty session for a freshly minted token.
func New(token string) *Session {
	return &Session{
		token:   token,
		values:  make(map[string]any),
		touched: time.Now(),
		isNew:   true,
	}
}

// Restore wraps data loaded from a store. The map is copied.
func Restore(token string, data map[string]any) *Session {
	values := maps.Clone(data)
	if values == nil {
		values = make(map[string]any)
	}
	return &Session{
		token:   token,
		values:  values,
		touched: time.Now(),
	}
}

// Token returns the opaque token carried by the session cookie.
func (s *Session) Token() string {
	return s.token
}

// Get returns the value stored under key.
func (s *Session) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores a value and marks the session dirty.
func (s *Session) Set(key string, val any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = val
	s.dirty = true
}

// Delete removes a key. The session becomes dirty only if the key existed.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.dirty = true
	}
}

// Clear removes all values.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) > 0 {
		clear(s.values)
		s.dirty = true
	}
}

// Len returns the number of stored values.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Values returns a copy of the session data.
func (s *Session) Values() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

// Touched returns when the session was created or loaded.
func (s *Session) Touched() time.Time {
	return s.touched
}

// IsNew reports whether the session was minted during this request.
func (s *Session) IsNew() bool {
	return s.isNew
}

// IsDirty reports whether the data changed during this request.
func (s *Session) IsDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// NeedsSave reports whether the session must be written back to the store.
func (s *Session) NeedsSave() bool {
	return s.IsNew() || s.IsDirty()
}

// MarkSaved clears the new and dirty flags after a successful save.
func (s *Session) MarkSaved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isNew = false
	s.dirty = false
}

// Value returns a typed value from the session.
func Value[T any](s *Session, key string) (T, bool) {
	var zero T
	v, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// ValueOr returns a typed value or def when missing or of another type.
func ValueOr[T any](s *Session, key string, def T) T {
	if v, ok := Value[T](s, key); ok {
		return v
	}
	return def
}
