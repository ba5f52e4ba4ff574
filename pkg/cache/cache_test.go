package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache[int], *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c := newCache[int](ttl, clock.Now)
	t.Cleanup(c.Stop)
	return c, clock
}

func TestCache_Expiry(t *testing.T) {
	c, clock := newTestCache(t, time.Minute)

	c.Set("a", 1)
	c.SetWithTTL("b", 2, 10*time.Second)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	clock.Advance(10 * time.Second)
	_, ok = c.Get("b")
	assert.False(t, ok, "entry expires exactly at its deadline")

	v, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	c.Invalidate("")
	assert.Equal(t, 1, c.Len())
}

func TestCache_InvalidatePrefix(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	c.Set("engagement:alice", 1)
	c.Set("engagement:bob", 2)
	c.Set("streams:active", 3)

	c.Invalidate("engagement:")
	_, ok := c.Get("engagement:alice")
	assert.False(t, ok)
	_, ok = c.Get("streams:active")
	assert.True(t, ok)

	c.Delete("streams:active")
	assert.Zero(t, c.Len())
}

func TestCache_GetOrLoad(t *testing.T) {
	c, clock := newTestCache(t, time.Second)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (int, error) {
		calls++
		return calls * 10, nil
	}

	v, err := c.GetOrLoad(ctx, "k", load)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	v, err = c.GetOrLoad(ctx, "k", load)
	require.NoError(t, err)
	assert.Equal(t, 10, v)
	assert.Equal(t, 1, calls)

	clock.Advance(time.Second)
	v, err = c.GetOrLoad(ctx, "k", load)
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	boom := errors.New("boom")
	_, err = c.GetOrLoad(ctx, "bad", func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get("bad")
	assert.False(t, ok, "errors are not cached")
}

func TestCache_StopIsIdempotent(t *testing.T) {
	c := New[string](time.Millisecond)
	c.Stop()
	c.Stop()
}
