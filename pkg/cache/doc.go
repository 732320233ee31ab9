// Package cache provides a small generic TTL store with in-memory and Redis
// backends. It backs the session stores and the rate limiter.
//
// Entries have sliding expiration: [Cache.Touch] pushes the deadline of an
// existing entry forward without rewriting the value.
//
//	c := cache.NewMemory[int](cache.WithDefaultTTL(time.Minute))
//	defer c.Close()
//
//	_ = c.Set(ctx, "hits", 1, 0)
//	n, err := c.Get(ctx, "hits")
//	if errors.Is(err, cache.ErrNotFound) {
//	    // miss or expired
//	}
//
// The Redis backend namespaces keys with a prefix and delegates expiry to
// Redis itself:
//
//	c := cache.NewRedis[map[string]any](client, nil, cache.WithPrefix("session"))
package cache
