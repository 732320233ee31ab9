package session

import (
	"context"
	"errors"
	"maps"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/pie/pkg/cache"
)

// Record is the persisted form of a session in cache-backed stores.
type Record struct {
	Data    map[string]any `json:"data"`
	Touched time.Time      `json:"touched"`
	Timeout time.Duration  `json:"timeout"`
}

func (r Record) expired(now time.Time) bool {
	return r.Timeout > 0 && now.Sub(r.Touched) > r.Timeout
}

// CacheStore keeps sessions in a cache.Cache. With the in-memory backend it is
// the reference store; concurrent saves of one token are last-writer-wins.
type CacheStore struct {
	cache cache.Cache[Record]
	now   func() time.Time
}

// NewCacheStore wraps an arbitrary cache backend.
func NewCacheStore(c cache.Cache[Record]) *CacheStore {
	return &CacheStore{cache: c, now: time.Now}
}

// NewMemoryStore returns an in-process store. Expired records are swept by
// the cache janitor and by Sweep.
func NewMemoryStore(opts ...cache.MemoryOption) *CacheStore {
	return NewCacheStore(cache.NewMemory[Record](opts...))
}

// NewRedisStore returns a store whose records live under the "session"
// key prefix unless another prefix is given. Redis expires records itself.
func NewRedisStore(client goredis.UniversalClient, opts ...cache.RedisOption) *CacheStore {
	opts = append([]cache.RedisOption{cache.WithPrefix("session")}, opts...)
	return NewCacheStore(cache.NewRedis[Record](client, nil, opts...))
}

// Load returns a copy of the session data and refreshes its last-touched time.
func (s *CacheStore) Load(ctx context.Context, token string) (map[string]any, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	rec, err := s.cache.Get(ctx, token)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	now := s.now()
	if rec.expired(now) {
		_ = s.cache.Delete(ctx, token)
		return nil, ErrNotFound
	}

	rec.Touched = now
	if err := s.cache.Set(ctx, token, rec, ttl(rec.Timeout)); err != nil {
		return nil, err
	}

	return maps.Clone(rec.Data), nil
}

// Save stores a copy of data under token.
func (s *CacheStore) Save(ctx context.Context, token string, data map[string]any, timeout time.Duration) error {
	if token == "" {
		return ErrInvalidToken
	}
	rec := Record{
		Data:    maps.Clone(data),
		Touched: s.now(),
		Timeout: timeout,
	}
	return s.cache.Set(ctx, token, rec, ttl(timeout))
}

// Delete removes the Record for token.
func (s *CacheStore) Delete(ctx context.Context, token string) error {
	return s.cache.Delete(ctx, token)
}

// Sweep removes expired records when the backend holds them until swept.
func (s *CacheStore) Sweep(ctx context.Context) (int, error) {
	sw, ok := s.cache.(cache.Sweeper)
	if !ok {
		return 0, nil
	}
	return sw.Sweep(ctx)
}

// Close releases the backend.
func (s *CacheStore) Close() error {
	return s.cache.Close()
}

// ttl maps a session timeout to a cache TTL; no timeout never expires.
func ttl(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return -1
	}
	return timeout
}

var (
	_ Store   = (*CacheStore)(nil)
	_ Deleter = (*CacheStore)(nil)
	_ Sweeper = (*CacheStore)(nil)
)
