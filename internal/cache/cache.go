// Package cache holds derived values keyed by string, with explicit eviction.
//
// Entries never expire on their own. The only way out is Evict, which the
// owner calls when the source data changes.
//
// A naive get-or-compute cache has a race. A reader misses, starts
// computing from the database, and meanwhile a writer commits and evicts the
// key. The reader then stores its pre-write result and every later read
// serves stale data. Versioned closes that window with a per-key generation
// counter: readers note the generation before computing and SetIfCurrent
// refuses the store if an Evict bumped it in between.
//
// Generations are kept for every key ever evicted, including keys with no
// cached value. Dropping one would reset its counter, and a reader holding
// the old number could then store stale data. Memory therefore grows with the
// number of distinct keys: one string and one uint64 per user who has written.
package cache

import "sync"

// Versioned is a concurrency-safe map from key to T with generation-checked
// stores. The zero value is not usable; call NewVersioned.
type Versioned[T any] struct {
	mu          sync.Mutex
	items       map[string]T
	generations map[string]uint64
}

// NewVersioned creates an empty cache.
func NewVersioned[T any]() *Versioned[T] {
	return &Versioned[T]{
		items:       make(map[string]T),
		generations: make(map[string]uint64),
	}
}

// Get returns the cached value for key, if present.
func (c *Versioned[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.items[key]
	return v, ok
}

// Generation returns the key's current generation. Capture it before reading
// the source data and pass it to SetIfCurrent afterwards.
func (c *Versioned[T]) Generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.generations[key]
}

// SetIfCurrent stores value under key only if no Evict has happened for key
// since gen was read. It reports whether the value was stored.
func (c *Versioned[T]) SetIfCurrent(key string, gen uint64, value T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generations[key] != gen {
		return false
	}
	c.items[key] = value
	return true
}

// Evict removes key and invalidates any computation that started before this
// call. For a key that was never cached it only bumps the generation, which
// still stops an in-flight reader from storing.
func (c *Versioned[T]) Evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	c.generations[key]++
}

// Len returns the number of cached entries.
func (c *Versioned[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}
