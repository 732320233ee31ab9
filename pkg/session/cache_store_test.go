package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pie/pkg/cache"
)

func newTestStore(t *testing.T) (*CacheStore, *time.Time) {
	t.Helper()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(cache.WithCleanupInterval(0))
	store.now = func() time.Time { return now }
	t.Cleanup(func() { _ = store.Close() })
	return store, &now
}

func TestCacheStore_RoundTrip(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "tok", map[string]any{"k": 1}, time.Hour))

	data, err := store.Load(ctx, "tok")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"k": 1}, data)

	data["k"] = 2
	again, err := store.Load(ctx, "tok")
	require.NoError(t, err)
	require.Equal(t, 1, again["k"], "loaded data must be a copy")
}

func TestCacheStore_UnknownToken(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	_, err := store.Load(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.Load(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestCacheStore_Expiry(t *testing.T) {
	t.Parallel()

	store, now := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "tok", map[string]any{"k": 1}, time.Hour))

	*now = now.Add(59 * time.Minute)
	_, err := store.Load(ctx, "tok")
	require.NoError(t, err, "load inside the timeout succeeds and touches the record")

	*now = now.Add(59 * time.Minute)
	_, err = store.Load(ctx, "tok")
	require.NoError(t, err, "touch on load extends the lifetime")

	*now = now.Add(61 * time.Minute)
	_, err = store.Load(ctx, "tok")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCacheStore_Delete(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "tok", map[string]any{"k": 1}, time.Hour))
	require.NoError(t, store.Delete(ctx, "tok"))

	_, err := store.Load(ctx, "tok")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCacheStore_Sweep(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(cache.WithCleanupInterval(0))
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "old", map[string]any{}, time.Millisecond))
	require.NoError(t, store.Save(ctx, "fresh", map[string]any{}, time.Hour))
	time.Sleep(5 * time.Millisecond)

	n, err := store.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = store.Load(ctx, "fresh")
	require.NoError(t, err)
}
