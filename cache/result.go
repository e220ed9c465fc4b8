package cache

import (
	sg "github.com/schemaguard/validator"
)

// ResultCache memoizes successful validation outcomes keyed by Key. Failed
// results are never stored: failure paths are the ones an attacker controls,
// and letting them occupy cache slots would evict the legitimate entries.
type ResultCache struct {
	lru *Cache[string, *sg.Result]
}

// NewResultCache creates a result cache bounded to capacity entries.
func NewResultCache(capacity int) *ResultCache {
	return &ResultCache{lru: New[string, *sg.Result](capacity)}
}

// Get returns a private copy of the cached result for key, if any. Callers
// own the returned result and may release it to the pool.
func (rc *ResultCache) Get(key string) (*sg.Result, bool) {
	r, ok := rc.lru.Get(key)
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// Put stores a copy of r under key. Only valid results without errors are
// kept; anything else is dropped silently.
func (rc *ResultCache) Put(key string, r *sg.Result) {
	if r == nil || !r.Valid || r.HasErrors() {
		return
	}
	rc.lru.Set(key, r.Clone())
}

// Len returns the number of cached results.
func (rc *ResultCache) Len() int {
	return rc.lru.Len()
}

// Clear drops all cached results.
func (rc *ResultCache) Clear() {
	rc.lru.Clear()
}

// Stats reports hit, miss, and eviction counters for the underlying store.
func (rc *ResultCache) Stats() Stats {
	return rc.lru.Stats()
}
