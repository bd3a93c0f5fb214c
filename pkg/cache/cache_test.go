package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClockedCache(capacity int, ttl time.Duration) (*LRUCache, *time.Time) {
	now := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache(capacity, ttl)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCacheSetGet(t *testing.T) {
	c, _ := newClockedCache(4, time.Minute)

	c.Set("fedex|49022|90210|2026-03-04|48", []byte(`{"price":"10.30"}`))

	got, ok := c.Get("fedex|49022|90210|2026-03-04|48")
	require.True(t, ok)
	assert.Equal(t, `{"price":"10.30"}`, string(got))

	_, ok = c.Get("fedex|49022|90210|2026-03-04|64")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	c, now := newClockedCache(4, time.Minute)

	c.Set("quote", []byte("a"))
	*now = now.Add(61 * time.Second)

	_, ok := c.Get("quote")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size(), "expired entry should be evicted on access")
}

func TestCacheUpdateResetsTTL(t *testing.T) {
	c, now := newClockedCache(4, time.Minute)

	c.Set("quote", []byte("a"))
	*now = now.Add(45 * time.Second)
	c.Set("quote", []byte("b"))
	*now = now.Add(45 * time.Second)

	got, ok := c.Get("quote")
	require.True(t, ok)
	assert.Equal(t, "b", string(got))
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newClockedCache(2, time.Minute)

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", []byte("3"))

	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Size())
}

func TestCacheSweep(t *testing.T) {
	c, now := newClockedCache(8, time.Minute)

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("old-%d", i), []byte("x"))
	}
	*now = now.Add(30 * time.Second)
	c.Set("fresh", []byte("y"))
	*now = now.Add(45 * time.Second)

	c.sweep()

	assert.Equal(t, 1, c.Size())
	_, ok := c.Get("fresh")
	assert.True(t, ok)
}

func TestCacheJanitorStopsOnCancel(t *testing.T) {
	c, _ := newClockedCache(2, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	c.StartJanitor(ctx)
	cancel()

	c.Set("a", []byte("1"))
	_, ok := c.Get("a")
	assert.True(t, ok)
}
