package storage

import (
	"container/list"
	"sync"

	"github.com/hyperjump/diachron/internal/space"
)

// SpaceCache is an LRU cache of loaded spaces keyed by period.
type SpaceCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value *space.Space
}

// NewSpaceCache creates a cache holding at most capacity spaces. A capacity below 1
// disables caching.
func NewSpaceCache(capacity int) *SpaceCache {
	return &SpaceCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the cached space for key if present.
func (c *SpaceCache) Get(key string) (*space.Space, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true
	}
	return nil, false
}

// Set stores the space for key, evicting the least recently used entry if at capacity.
func (c *SpaceCache) Set(key string, value *space.Space) {
	if c.capacity < 1 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	entry := &cacheEntry{key: key, value: value}
	elem := c.lru.PushFront(entry)
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Remove drops key. It reports whether the key was cached.
func (c *SpaceCache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[key]
	if !ok {
		return false
	}
	c.lru.Remove(elem)
	delete(c.cache, key)
	return true
}

// Keys returns the cached keys, most recently used first.
func (c *SpaceCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.lru.Len())
	for e := c.lru.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(*cacheEntry).key)
	}
	return keys
}

// Len returns the number of cached spaces.
func (c *SpaceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
