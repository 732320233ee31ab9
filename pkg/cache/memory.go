package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type item[V any] struct {
	deadline time.Time // zero = never expires
	value    V
	key      string
}

func (it *item[V]) expired(now time.Time) bool {
	return !it.deadline.IsZero() && now.After(it.deadline)
}

// Memory is an in-memory cache with sliding TTL expiration and optional
// LRU eviction. Values are stored as given; callers storing mutable values
// (maps, slices) must copy them on the way in and out.
type Memory[V any] struct {
	items  map[string]*list.Element
	lru    *list.List
	opts   memoryOptions
	done   chan struct{}
	now    func() time.Time
	mu     sync.Mutex
	closed bool
}

// NewMemory creates a new in-memory cache. A janitor goroutine sweeps
// expired entries every cleanup interval until Close is called.
func NewMemory[V any](opts ...MemoryOption) *Memory[V] {
	o := memoryOptions{
		defaultTTL:      time.Hour,
		cleanupInterval: time.Minute,
	}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Memory[V]{
		items: make(map[string]*list.Element),
		lru:   list.New(),
		opts:  o,
		done:  make(chan struct{}),
		now:   time.Now,
	}

	if o.cleanupInterval > 0 {
		go m.janitor()
	}

	return m
}

// Get retrieves a value by key and marks it as recently used.
func (m *Memory[V]) Get(_ context.Context, key string) (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	if m.closed {
		return zero, ErrClosed
	}

	elem, ok := m.items[key]
	if !ok {
		return zero, ErrNotFound
	}

	it := elem.Value.(*item[V])
	if it.expired(m.now()) {
		m.remove(elem)
		return zero, ErrNotFound
	}

	m.lru.MoveToFront(elem)
	return it.value, nil
}

// Set stores a value with the given TTL.
func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	deadline := m.deadline(ttl)

	if elem, ok := m.items[key]; ok {
		it := elem.Value.(*item[V])
		it.value = value
		it.deadline = deadline
		m.lru.MoveToFront(elem)
		return nil
	}

	if m.opts.maxEntries > 0 && len(m.items) >= m.opts.maxEntries {
		if oldest := m.lru.Back(); oldest != nil {
			m.remove(oldest)
		}
	}

	m.items[key] = m.lru.PushFront(&item[V]{key: key, value: value, deadline: deadline})
	return nil
}

// Touch resets the deadline of an existing, unexpired entry.
func (m *Memory[V]) Touch(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	elem, ok := m.items[key]
	if !ok {
		return ErrNotFound
	}

	it := elem.Value.(*item[V])
	if it.expired(m.now()) {
		m.remove(elem)
		return ErrNotFound
	}

	it.deadline = m.deadline(ttl)
	m.lru.MoveToFront(elem)
	return nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if elem, ok := m.items[key]; ok {
		m.remove(elem)
	}
	return nil
}

// Len returns the number of entries, expired ones included until swept.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Sweep removes all expired entries.
func (m *Memory[V]) Sweep(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	now := m.now()
	removed := 0
	for elem := m.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*item[V]).expired(now) {
			m.remove(elem)
			removed++
		}
		elem = prev
	}
	return removed, nil
}

// Close stops the janitor. Close is idempotent.
func (m *Memory[V]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	return nil
}

func (m *Memory[V]) janitor() {
	ticker := time.NewTicker(m.opts.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, _ = m.Sweep(context.Background())
		}
	}
}

// deadline converts a TTL into an absolute time. Caller holds the mutex.
func (m *Memory[V]) deadline(ttl time.Duration) time.Time {
	ttl = resolveTTL(ttl, m.opts.defaultTTL)
	if ttl < 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

// remove drops an element. Caller holds the mutex.
func (m *Memory[V]) remove(elem *list.Element) {
	m.lru.Remove(elem)
	delete(m.items, elem.Value.(*item[V]).key)
}

var (
	_ Cache[any] = (*Memory[any])(nil)
	_ Sweeper    = (*Memory[any])(nil)
)
