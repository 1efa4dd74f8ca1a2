// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

package recommend

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// cacheKey identifies one memoized ranking. Two requests differing in any
// field must not collide.
type cacheKey struct {
	userID    int
	queryHash uint64
	limit     int
}

// hashQuery hashes the query text into the cache key. An absent query is
// a distinguished value, not equal to any real string (including "").
func hashQuery(query string, present bool) uint64 {
	h := fnv.New64a()
	if present {
		_, _ = h.Write([]byte{1})
		_, _ = h.Write([]byte(query))
	} else {
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// resultCache memoizes ranked lists per (user, query, limit) with lazy
// TTL expiry. Entries are independent; a single mutex keeps per-entry
// read-check-then-write atomic, and singleflight collapses concurrent
// recomputes of the same key.
type resultCache struct {
	mu         sync.Mutex
	entries    map[cacheKey]resultEntry
	ttl        time.Duration
	maxEntries int

	group singleflight.Group

	// now is injected so expiry is deterministic in tests.
	now func() time.Time
}

type resultEntry struct {
	items     []ScoredCandidate
	createdAt time.Time
}

func newResultCache(cfg CacheConfig, now func() time.Time) *resultCache {
	if now == nil {
		now = time.Now
	}
	return &resultCache{
		entries:    make(map[cacheKey]resultEntry),
		ttl:        cfg.TTL,
		maxEntries: cfg.MaxEntries,
		now:        now,
	}
}

// GetOrCompute returns the cached ranking for key when fresh, otherwise
// invokes compute, stores the result with a fresh timestamp, and returns
// it. forceRefresh always recomputes. Expiry is checked lazily at read
// time; an expired entry is a miss and is overwritten on the next
// successful compute. Failed computes are not cached.
func (c *resultCache) GetOrCompute(key cacheKey, forceRefresh bool, compute func() ([]ScoredCandidate, error)) ([]ScoredCandidate, bool, error) {
	if !forceRefresh {
		if items, ok := c.get(key); ok {
			return items, true, nil
		}
	}

	v, err, _ := c.group.Do(fmt.Sprintf("%d:%x:%d", key.userID, key.queryHash, key.limit), func() (interface{}, error) {
		items, err := compute()
		if err != nil {
			return nil, err
		}
		c.put(key, items)
		return items, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]ScoredCandidate), false, nil
}

// get returns a copy of the entry's items when present and fresh.
func (c *resultCache) get(key cacheKey) ([]ScoredCandidate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.createdAt) >= c.ttl {
		return nil, false
	}

	items := make([]ScoredCandidate, len(entry.items))
	copy(items, entry.items)
	return items, true
}

func (c *resultCache) put(key cacheKey, items []ScoredCandidate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictExpiredLocked()
	}

	stored := make([]ScoredCandidate, len(items))
	copy(stored, items)
	c.entries[key] = resultEntry{items: stored, createdAt: c.now()}
}

// evictExpiredLocked removes expired entries. Must be called with mu held.
func (c *resultCache) evictExpiredLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.Sub(entry.createdAt) >= c.ttl {
			delete(c.entries, key)
		}
	}
}

// Clear removes all cached rankings.
func (c *resultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]resultEntry)
}

// Len returns the number of cached rankings, expired entries included.
func (c *resultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
