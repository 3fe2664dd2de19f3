package fieldfile

import (
	"context"
	"sync"
	"time"

	"github.com/couchcryptid/rainfall-verification/internal/domain"
	"github.com/couchcryptid/rainfall-verification/internal/exceedance"
)

// CacheStats receives hit/miss notifications.
type CacheStats interface {
	ObserveFieldCache(hit bool)
}

// CachedReader wraps a FieldReader with an in-memory LRU cache of observation
// fields. One valid time recurs for every (base date, step) pair that ends on
// it and for every system, so observations are read far more often than
// forecasts. Forecasts pass through uncached.
type CachedReader struct {
	inner exceedance.FieldReader
	cache *lruCache[obsKey, exceedance.ObservationField]
	stats CacheStats
}

// NewCachedReader creates a cache decorator around a reader. stats may be nil.
func NewCachedReader(inner exceedance.FieldReader, maxEntries int, stats CacheStats) *CachedReader {
	return &CachedReader{
		inner: inner,
		cache: newLRUCache[obsKey, exceedance.ObservationField](maxEntries),
		stats: stats,
	}
}

func (c *CachedReader) ReadForecast(ctx context.Context, sys domain.ForecastSystem, base time.Time, step, acc int) (exceedance.EnsembleField, error) {
	return c.inner.ReadForecast(ctx, sys, base, step, acc)
}

func (c *CachedReader) ReadObservations(ctx context.Context, valid time.Time, acc int) (exceedance.ObservationField, error) {
	key := obsKey{valid: valid.Unix(), acc: acc}
	if obs, ok := c.cache.get(key); ok {
		c.observe(true)
		return obs, nil
	}
	c.observe(false)
	obs, err := c.inner.ReadObservations(ctx, valid, acc)
	if err != nil {
		return nil, err // errors, including missing files, are not cached
	}
	c.cache.put(key, obs)
	return obs, nil
}

func (c *CachedReader) observe(hit bool) {
	if c.stats != nil {
		c.stats.ObserveFieldCache(hit)
	}
}

type obsKey struct {
	valid int64
	acc   int
}

// lruCache is a thread-safe LRU cache: a map into a doubly linked list
// ordered from most to least recently used.
type lruCache[K comparable, V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[K]*entry[K, V]
	head       *entry[K, V]
	tail       *entry[K, V]
}

type entry[K comparable, V any] struct {
	key   K
	value V
	prev  *entry[K, V]
	next  *entry[K, V]
}

func newLRUCache[K comparable, V any](maxEntries int) *lruCache[K, V] {
	return &lruCache[K, V]{
		maxEntries: max(maxEntries, 1),
		entries:    make(map[K]*entry[K, V]),
	}
}

func (c *lruCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.touch(e)
	return e.value, true
}

func (c *lruCache[K, V]) put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.touch(e)
		return
	}

	e := &entry[K, V]{key: key, value: value}
	c.entries[key] = e
	c.pushFront(e)

	for len(c.entries) > c.maxEntries {
		victim := c.tail
		c.unlink(victim)
		delete(c.entries, victim.key)
	}
}

func (c *lruCache[K, V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[K, V]) touch(e *entry[K, V]) {
	if c.head == e {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *lruCache[K, V]) pushFront(e *entry[K, V]) {
	e.prev, e.next = nil, c.head
	if c.head != nil {
		c.head.prev = e
	} else {
		c.tail = e
	}
	c.head = e
}

func (c *lruCache[K, V]) unlink(e *entry[K, V]) {
	if e.prev == nil {
		c.head = e.next
	} else {
		e.prev.next = e.next
	}
	if e.next == nil {
		c.tail = e.prev
	} else {
		e.next.prev = e.prev
	}
	e.prev, e.next = nil, nil
}
