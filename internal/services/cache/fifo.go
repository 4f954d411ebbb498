// Package cache provides a bounded store that evicts strictly in insertion order.
package cache

import (
	"container/list"
	"reflect"
)

type entry[K comparable, V any] struct {
	key   K
	value V
}

// FIFO is a bounded map whose oldest inserted entry is evicted first. Reads never
// change the eviction order. FIFO is not safe for concurrent use.
type FIFO[K comparable, V any] struct {
	capacity int
	items    map[K]*list.Element
	queue    *list.List // front = oldest insertion
	onEvict  func(K, V)
}

// NewFIFO creates a cache holding at most capacity entries. onEvict, if not nil,
// receives every value that leaves the cache (eviction, replacement or Purge).
func NewFIFO[K comparable, V any](capacity int, onEvict func(K, V)) *FIFO[K, V] {
	if capacity < 0 {
		capacity = 0
	}
	return &FIFO[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element),
		queue:    list.New(),
		onEvict:  onEvict,
	}
}

// Get returns the cached value for key.
func (c *FIFO[K, V]) Get(key K) (V, bool) {
	if el, ok := c.items[key]; ok {
		return el.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// GetOrCompute returns the cached value on a hit. On a miss it returns the result
// of compute without inserting it; the caller owns that value.
func (c *FIFO[K, V]) GetOrCompute(key K, compute func() (V, error)) (V, bool, error) {
	if value, ok := c.Get(key); ok {
		return value, true, nil
	}
	value, err := compute()
	return value, false, err
}

// Put inserts key at the tail of the queue. An existing key keeps its position and
// gets the new value; the replaced value goes to onEvict unless it is value itself.
// Returns the number of entries evicted to respect capacity.
func (c *FIFO[K, V]) Put(key K, value V) int {
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		old := e.value
		e.value = value
		if !same(old, value) {
			c.evicted(key, old)
		}
		return 0
	}

	c.items[key] = c.queue.PushBack(&entry[K, V]{key: key, value: value})

	evicted := 0
	for c.queue.Len() > c.capacity {
		c.removeOldest()
		evicted++
	}
	return evicted
}

// Contains reports whether key is cached.
func (c *FIFO[K, V]) Contains(key K) bool {
	_, ok := c.items[key]
	return ok
}

// Len returns the number of cached entries.
func (c *FIFO[K, V]) Len() int {
	return c.queue.Len()
}

// Capacity returns the maximum number of entries.
func (c *FIFO[K, V]) Capacity() int {
	return c.capacity
}

// Keys returns the cached keys from oldest to newest insertion.
func (c *FIFO[K, V]) Keys() []K {
	keys := make([]K, 0, c.queue.Len())
	for el := c.queue.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[K, V]).key)
	}
	return keys
}

// Purge removes every entry in insertion order.
func (c *FIFO[K, V]) Purge() {
	for c.queue.Len() > 0 {
		c.removeOldest()
	}
}

// removeOldest drops the queue head and its map entry together.
func (c *FIFO[K, V]) removeOldest() {
	el := c.queue.Front()
	e := el.Value.(*entry[K, V])
	c.queue.Remove(el)
	delete(c.items, e.key)
	c.evicted(e.key, e.value)
}

func (c *FIFO[K, V]) evicted(key K, value V) {
	if c.onEvict != nil {
		c.onEvict(key, value)
	}
}

// same reports whether a and b are equal comparable values, such as the same pointer.
func same[V any](a, b V) bool {
	va, vb := reflect.ValueOf(&a).Elem(), reflect.ValueOf(&b).Elem()
	return va.Comparable() && vb.Comparable() && va.Equal(vb)
}
