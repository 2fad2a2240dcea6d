// Package cache provides bounded, TTL-aware caches for the query pipeline
// and for UI-adapter row-height memoization (spec §5 Resource Policy).
// Grounded on the teacher's pkg/resource/infrastructure/cache.QueryCache
// (hand-rolled map + access-count LRU), upgraded to use ristretto for its
// proper admission/eviction policy — ristretto is already present in the
// example corpus as badger's dependency.
package cache

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Bounded is a generic bounded, TTL-evicting cache. Eviction never
// invalidates an in-flight read: ristretto's Get returns a value snapshot,
// not a pointer into internal state, so a concurrent eviction cannot corrupt
// a read already in progress (spec §5 "eviction must not invalidate an
// in-flight read").
type Bounded[K comparable, V any] struct {
	c   *ristretto.Cache[K, V]
	ttl time.Duration
}

// NewBounded creates a Bounded cache sized for approximately maxItems
// entries with the given TTL. A TTL of 0 means entries never expire on
// their own (only eviction under memory pressure removes them).
func NewBounded[K comparable, V any](maxItems int64, ttl time.Duration) (*Bounded[K, V], error) {
	if maxItems <= 0 {
		maxItems = 1
	}
	c, err := ristretto.NewCache(&ristretto.Config[K, V]{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
		// Count only the cost passed to Set, so maxItems is an entry count.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &Bounded[K, V]{c: c, ttl: ttl}, nil
}

// Get returns the cached value for key, if present and not expired.
func (b *Bounded[K, V]) Get(key K) (V, bool) {
	return b.c.Get(key)
}

// Set stores value under key with cost 1 (every entry counts equally
// towards MaxItems, matching the teacher's "access count" bookkeeping
// rather than a byte-size cost model).
func (b *Bounded[K, V]) Set(key K, value V) {
	if b.ttl > 0 {
		b.c.SetWithTTL(key, value, 1, b.ttl)
	} else {
		b.c.Set(key, value, 1)
	}
	b.c.Wait()
}

// Del removes key from the cache, if present.
func (b *Bounded[K, V]) Del(key K) {
	b.c.Del(key)
}

// Clear empties the cache.
func (b *Bounded[K, V]) Clear() {
	b.c.Clear()
}

// Close releases cache resources.
func (b *Bounded[K, V]) Close() {
	b.c.Close()
}
