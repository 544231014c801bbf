package cache

import (
	"container/list"
	"sync"
)

type entry[K comparable, V any] struct {
	key   K
	value V
}

// LRU is a fixed-capacity map with least-recently-used eviction. All
// methods are safe for concurrent use.
type LRU[K comparable, V any] struct {
	capacity int
	onEvict  func(K, V)

	mu    sync.Mutex
	index map[K]*list.Element
	order *list.List // front is most recently used
}

// Option configures an LRU.
type Option[K comparable, V any] func(*LRU[K, V])

// WithOnEvict sets the hook that runs for every entry removed by
// capacity eviction or Purge. It runs under the cache lock, so it must
// not call back into the cache.
func WithOnEvict[K comparable, V any](fn func(K, V)) Option[K, V] {
	return func(c *LRU[K, V]) {
		c.onEvict = fn
	}
}

// NewLRU creates a cache holding at most capacity entries. Panics on a
// non-positive capacity.
func NewLRU[K comparable, V any](capacity int, opts ...Option[K, V]) *LRU[K, V] {
	if capacity <= 0 {
		panic("cache: capacity must be positive")
	}

	c := &LRU[K, V]{
		capacity: capacity,
		index:    make(map[K]*list.Element),
		order:    list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key and marks it recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*entry[K, V]).value, true
}

// Set stores the value under key, evicting the oldest entry when the
// cache is full. An existing key is updated in place without running
// the eviction hook on the old value.
func (c *LRU[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value)
}

// GetOrSet returns the value for key, creating it with make when
// absent. The lookup and insert happen under one lock acquisition, so
// concurrent callers for the same key observe the same value.
func (c *LRU[K, V]) GetOrSet(key K, make func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*entry[K, V]).value
	}

	v := make()
	c.set(key, v)
	return v
}

// Delete removes key without running the eviction hook. The removed
// value is returned so the caller can release it.
func (c *LRU[K, V]) Delete(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	e := elem.Value.(*entry[K, V])
	c.order.Remove(elem)
	delete(c.index, e.key)
	return e.value, true
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Purge removes every entry, running the eviction hook for each.
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onEvict != nil {
		for elem := c.order.Front(); elem != nil; elem = elem.Next() {
			e := elem.Value.(*entry[K, V])
			c.onEvict(e.key, e.value)
		}
	}
	c.index = make(map[K]*list.Element)
	c.order.Init()
}

func (c *LRU[K, V]) set(key K, value V) {
	if elem, ok := c.index[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*entry[K, V]).value = value
		return
	}

	c.index[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		e := oldest.Value.(*entry[K, V])
		c.order.Remove(oldest)
		delete(c.index, e.key)
		if c.onEvict != nil {
			c.onEvict(e.key, e.value)
		}
	}
}
