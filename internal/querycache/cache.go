// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package querycache provides a concurrency-safe, memory-bounded LRU store for
// SQL execution results, shared by every in-flight request. Entries are keyed
// by a fingerprint of the normalized statement; eviction removes the
// least-recently-used entries first, ties broken by insertion order, until the
// byte budget holds again.
//
// All operations are pure in-memory bookkeeping behind one mutex, so callers
// must never hold the cache across a database or model call.
package querycache

import (
	"container/list"
	"encoding/json"
	"sync"

	"sqlpilot/cli/internal/gateway"
)

// DefaultCapacity is the byte budget used when none is configured.
const DefaultCapacity = 100 * 1024 * 1024 // 100 MiB

// SizeEstimator computes the byte footprint attributed to a cached result.
// The formula is a tuning concern, not a correctness concern: the eviction
// algorithm only needs it to be stable for a given payload.
type SizeEstimator func(*gateway.Result) int64

// JSONSize is the default estimator: the length of the JSON serialization.
func JSONSize(r *gateway.Result) int64 {
	b, err := json.Marshal(r)
	if err != nil {
		return 0
	}
	return int64(len(b))
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Entries   int    `json:"entries"`
	BytesUsed int64  `json:"bytes_used"`
	Capacity  int64  `json:"capacity"`
}

// HitRate returns hits/(hits+misses) in [0,1], or -1 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return -1
	}
	return float64(s.Hits) / float64(total)
}

type entry struct {
	fp      Fingerprint
	payload *gateway.Result
	size    int64
}

// Cache is a thread-safe LRU store with a byte-size budget.
type Cache struct {
	mu        sync.Mutex
	capacity  int64
	used      int64
	order     *list.List // front = most recently used
	items     map[Fingerprint]*list.Element
	estimator SizeEstimator

	hits      uint64
	misses    uint64
	evictions uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithEstimator replaces the default JSON-length size estimator.
func WithEstimator(e SizeEstimator) Option {
	return func(c *Cache) { c.estimator = e }
}

// New creates a cache with the given byte capacity. A non-positive capacity
// falls back to DefaultCapacity. Capacity is immutable after construction.
func New(capacity int64, opts ...Option) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache{
		capacity:  capacity,
		order:     list.New(),
		items:     make(map[Fingerprint]*list.Element),
		estimator: JSONSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the cached payload for fp. A hit marks the entry most
// recently used and bumps the hit counter; a miss bumps the miss counter.
func (c *Cache) Lookup(fp Fingerprint) (*gateway.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[fp]
	if !ok {
		c.misses++
		return nil, false
	}
	c.order.MoveToFront(el)
	c.hits++
	return el.Value.(*entry).payload, true
}

// Insert stores payload under fp. An entry larger than the whole capacity is
// never stored (the caller still uses the result, it just is not cached).
// Re-inserting an existing fingerprint replaces the payload and resets
// recency. LRU entries are evicted until the budget holds.
func (c *Cache) Insert(fp Fingerprint, payload *gateway.Result) {
	size := c.estimator(payload)

	c.mu.Lock()
	defer c.mu.Unlock()

	if size > c.capacity {
		return
	}

	if el, ok := c.items[fp]; ok {
		old := el.Value.(*entry)
		c.used -= old.size
		old.payload = payload
		old.size = size
		c.used += size
		c.order.MoveToFront(el)
		c.evictUntilFitLocked()
		return
	}

	for c.used+size > c.capacity && c.order.Len() > 0 {
		c.evictOldestLocked()
	}

	el := c.order.PushFront(&entry{fp: fp, payload: payload, size: size})
	c.items[fp] = el
	c.used += size
}

// evictUntilFitLocked trims LRU entries after a replacement grew an entry.
func (c *Cache) evictUntilFitLocked() {
	for c.used > c.capacity && c.order.Len() > 1 {
		c.evictOldestLocked()
	}
}

func (c *Cache) evictOldestLocked() {
	back := c.order.Back()
	if back == nil {
		return
	}
	e := back.Value.(*entry)
	c.order.Remove(back)
	delete(c.items, e.fp)
	c.used -= e.size
	c.evictions++
}

// Stats returns a read-only snapshot of the counters. No side effects.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Entries:   c.order.Len(),
		BytesUsed: c.used,
		Capacity:  c.capacity,
	}
}

// Clear flushes every entry and resets all counters. Operator action only.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[Fingerprint]*list.Element)
	c.used = 0
	c.hits, c.misses, c.evictions = 0, 0, 0
}
