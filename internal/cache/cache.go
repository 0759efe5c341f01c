package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMaxEntries = 512

// Cache is a bounded in-memory cache with per-entry TTL.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
	Purge()
	Len() int
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type ttlCache[K comparable, V any] struct {
	lru *lru.Cache[K, entry[V]]
}

// Option configures a TTL cache.
type Option func(*options)

type options struct {
	maxEntries int
}

// WithMaxEntries bounds the number of cached entries.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEntries = n
		}
	}
}

// NewTTLCache returns an LRU-evicting cache. Entries written with a
// positive ttl expire lazily on read.
func NewTTLCache[K comparable, V any](opts ...Option) Cache[K, V] {
	o := options{maxEntries: defaultMaxEntries}
	for _, opt := range opts {
		opt(&o)
	}

	backing, err := lru.New[K, entry[V]](o.maxEntries)
	if err != nil {
		backing, _ = lru.New[K, entry[V]](defaultMaxEntries)
	}
	return &ttlCache[K, V]{lru: backing}
}

func (c *ttlCache[K, V]) Get(key K) (V, bool) {
	var zero V
	e, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.lru.Remove(key)
		return zero, false
	}
	return e.value, true
}

func (c *ttlCache[K, V]) Set(key K, value V, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	c.lru.Add(key, entry[V]{value: value, expiresAt: expiresAt})
}

func (c *ttlCache[K, V]) Delete(key K) {
	c.lru.Remove(key)
}

func (c *ttlCache[K, V]) Purge() {
	c.lru.Purge()
}

func (c *ttlCache[K, V]) Len() int {
	return c.lru.Len()
}
