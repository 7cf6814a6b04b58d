// Package lru provides a fixed-capacity key/value cache with
// least-recently-used eviction. It is not safe for concurrent use.
package lru

import (
	"fmt"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Cache is a bounded recency cache. Get promotes an entry to most recently
// used; Set evicts the least recently used entry once capacity is exceeded.
// Has and Keys never change recency.
type Cache[K comparable, V any] struct {
	lru *simplelru.LRU[K, V]
}

// New creates a Cache holding at most size entries.
func New[K comparable, V any](size int) (*Cache[K, V], error) {
	l, err := simplelru.NewLRU[K, V](size, nil)
	if err != nil {
		return nil, fmt.Errorf("lru: new cache of size %d: %w", size, err)
	}
	return &Cache[K, V]{lru: l}, nil
}

// MustNew is New for sizes known to be positive.
func MustNew[K comparable, V any](size int) *Cache[K, V] {
	c, err := New[K, V](size)
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the value stored for key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

// Set stores value under key, evicting the oldest entry when full.
// It reports whether an eviction happened.
func (c *Cache[K, V]) Set(key K, value V) bool {
	return c.lru.Add(key, value)
}

// Has reports whether key is present without touching its recency.
func (c *Cache[K, V]) Has(key K) bool {
	return c.lru.Contains(key)
}

// Delete removes key, reporting whether it was present.
func (c *Cache[K, V]) Delete(key K) bool {
	return c.lru.Remove(key)
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}

// Keys returns the keys from least to most recently used.
func (c *Cache[K, V]) Keys() []K {
	return c.lru.Keys()
}

// DeleteFunc removes every entry whose key satisfies fn and returns how
// many were removed.
func (c *Cache[K, V]) DeleteFunc(fn func(K) bool) int {
	n := 0
	for _, k := range c.lru.Keys() {
		if fn(k) {
			c.lru.Remove(k)
			n++
		}
	}
	return n
}
