// Package cache provides a small in-memory LRU with per-entry TTL.
// Carrier clients use it to reuse rate quotes for repeated
// origin/destination/weight lookups within a batch.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const sweepInterval = 2 * time.Minute

type item struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// LRUCache is safe for concurrent use. Entries expire after the
// configured TTL and the least recently used entry is dropped once
// the capacity is exceeded.
type LRUCache struct {
	mu       sync.Mutex
	order    *list.List
	items    map[string]*list.Element
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

func NewLRUCache(capacity int, ttl time.Duration) *LRUCache {
	return &LRUCache{
		order:    list.New(),
		items:    make(map[string]*list.Element),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the cached value for key. Expired entries are evicted
// on access and reported as a miss.
func (c *LRUCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	it := el.Value.(*item)
	if c.expired(it) {
		c.evict(el)
		return nil, false
	}
	c.order.MoveToFront(el)
	return it.value, true
}

// Set stores value under key, resetting its TTL if the key already
// exists.
func (c *LRUCache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		it := el.Value.(*item)
		it.value = value
		it.expiresAt = c.now().Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}

	c.items[key] = c.order.PushFront(&item{
		key:       key,
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	})

	for c.order.Len() > c.capacity {
		if el := c.order.Back(); el != nil {
			c.evict(el)
		}
	}
}

func (c *LRUCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// StartJanitor sweeps expired entries in the background until ctx is
// cancelled.
func (c *LRUCache) StartJanitor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sweep()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (c *LRUCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if c.expired(el.Value.(*item)) {
			c.evict(el)
		}
		el = prev
	}
}

func (c *LRUCache) expired(it *item) bool {
	return c.now().After(it.expiresAt)
}

func (c *LRUCache) evict(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*item).key)
}
