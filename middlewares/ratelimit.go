package middlewares

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrymomot/pie/internal"
	"github.com/dmitrymomot/pie/pkg/cache"
)

// RateBucket is the stored state of one client's token bucket.
type RateBucket struct {
	LastRefill time.Time `json:"last_refill"`
	Tokens     int       `json:"tokens"`
}

// RateLimitConfig configures the rate limit middleware.
type RateLimitConfig struct {
	Store          cache.Cache[RateBucket] // Bucket storage; in-memory when nil
	Key            internal.Extractor      // Client key; remote address by default
	Capacity       int                     // Burst size
	RefillRate     int                     // Tokens added per interval
	RefillInterval time.Duration
}

// RateLimitOption configures RateLimitConfig.
type RateLimitOption func(*RateLimitConfig)

// WithRateLimitStore sets the bucket storage, e.g. a cache.NewRedis
// instance shared by several processes.
func WithRateLimitStore(store cache.Cache[RateBucket]) RateLimitOption {
	return func(cfg *RateLimitConfig) {
		cfg.Store = store
	}
}

// WithRateLimitKey sets how clients are told apart.
func WithRateLimitKey(sources ...internal.ExtractorSource) RateLimitOption {
	return func(cfg *RateLimitConfig) {
		cfg.Key = internal.NewExtractor(sources...)
	}
}

// WithRefill sets how many tokens are added back per interval.
func WithRefill(rate int, interval time.Duration) RateLimitOption {
	return func(cfg *RateLimitConfig) {
		cfg.RefillRate = rate
		cfg.RefillInterval = interval
	}
}

type rateLimit struct {
	cfg RateLimitConfig
	mu  sync.Mutex
}

// RateLimit returns middleware that allows capacity requests per client
// before answering 429. By default the bucket refills completely every
// minute. Every response carries X-RateLimit-Limit, X-RateLimit-Remaining
// and X-RateLimit-Reset; rejected ones also get Retry-After.
//
// Buckets are updated read-modify-write, so limits shared across processes
// through Redis are approximate.
func RateLimit(capacity int, opts ...RateLimitOption) (internal.Middleware, error) {
	cfg := RateLimitConfig{
		Capacity:       capacity,
		RefillRate:     capacity,
		RefillInterval: time.Minute,
		Key:            internal.NewExtractor(internal.FromRemoteAddr()),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Capacity <= 0 {
		return nil, errors.New("rate limit: capacity must be positive")
	}
	if cfg.RefillRate <= 0 || cfg.RefillInterval <= 0 {
		return nil, errors.New("rate limit: refill rate and interval must be positive")
	}
	if cfg.Store == nil {
		cfg.Store = cache.NewMemory[RateBucket](cache.WithDefaultTTL(time.Hour))
	}
	return &rateLimit{cfg: cfg}, nil
}

// MustRateLimit is like RateLimit but panics on an invalid configuration.
func MustRateLimit(capacity int, opts ...RateLimitOption) internal.Middleware {
	mw, err := RateLimit(capacity, opts...)
	if err != nil {
		panic(err)
	}
	return mw
}

type rateResult struct {
	resetAt   time.Time
	remaining int
}

type rateResultKey struct{}

func (m *rateLimit) BeforeRequest(r *internal.Request) (*internal.Response, error) {
	key, ok := m.cfg.Key.Extract(r)
	if !ok {
		return nil, nil
	}

	res, err := m.consume(r, key)
	if err != nil {
		// A broken store must not take the site down.
		r.Logger().WarnContext(r, "rate limit store failed", slog.Any("error", err))
		return nil, nil
	}
	r.Set(rateResultKey{}, res)

	if res.remaining >= 0 {
		return nil, nil
	}
	retry := max(1, int(time.Until(res.resetAt).Round(time.Second).Seconds()))
	return internal.Reply(http.StatusTooManyRequests, "Too Many Requests",
		internal.Header{Name: "Retry-After", Value: strconv.Itoa(retry)},
	), nil
}

func (m *rateLimit) AfterRequest(r *internal.Request, resp *internal.Response) error {
	res, ok := r.Get(rateResultKey{}).(rateResult)
	if !ok {
		return nil
	}
	resp.SetHeader("X-RateLimit-Limit", strconv.Itoa(m.cfg.Capacity))
	resp.SetHeader("X-RateLimit-Remaining", strconv.Itoa(max(0, res.remaining)))
	resp.SetHeader("X-RateLimit-Reset", strconv.FormatInt(res.resetAt.Unix(), 10))
	return nil
}

// consume takes one token. A negative remaining count means the request is
// over the limit.
func (m *rateLimit) consume(r *internal.Request, key string) (rateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	b, err := m.cfg.Store.Get(r, key)
	switch {
	case errors.Is(err, cache.ErrNotFound):
		b = RateBucket{Tokens: m.cfg.Capacity, LastRefill: now}
	case err != nil:
		return rateResult{}, fmt.Errorf("load bucket: %w", err)
	}

	// Cap intervals to avoid overflow after long idle periods
	maxIntervals := int64(m.cfg.Capacity/m.cfg.RefillRate + 1)
	intervals := int(min(int64(now.Sub(b.LastRefill)/m.cfg.RefillInterval), maxIntervals))
	if intervals > 0 {
		b.Tokens = min(b.Tokens+intervals*m.cfg.RefillRate, m.cfg.Capacity)
		b.LastRefill = now
	}

	res := rateResult{resetAt: b.LastRefill.Add(m.cfg.RefillInterval), remaining: b.Tokens - 1}
	if b.Tokens > 0 {
		b.Tokens--
	}

	// Keep the bucket until it would be full again
	ttl := time.Duration(m.cfg.Capacity/m.cfg.RefillRate+1) * m.cfg.RefillInterval
	if err := m.cfg.Store.Set(r, key, b, ttl); err != nil {
		return rateResult{}, fmt.Errorf("save bucket: %w", err)
	}
	return res, nil
}
