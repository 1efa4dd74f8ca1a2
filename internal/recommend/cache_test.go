// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

package recommend

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is an adjustable time source for deterministic expiry.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func testCache(clock *fakeClock) *resultCache {
	return newResultCache(CacheConfig{Enabled: true, TTL: 5 * time.Minute, MaxEntries: 10}, clock.Now)
}

func TestCacheHitSkipsCompute(t *testing.T) {
	clock := newFakeClock()
	cache := testCache(clock)
	key := cacheKey{userID: 1, queryHash: hashQuery("go", true), limit: 10}

	var calls int32
	compute := func() ([]ScoredCandidate, error) {
		atomic.AddInt32(&calls, 1)
		return []ScoredCandidate{{Candidate: Candidate{ID: "a"}, Score: 0.9}}, nil
	}

	first, hit, err := cache.GetOrCompute(key, false, compute)
	if err != nil || hit {
		t.Fatalf("first call: hit=%v err=%v", hit, err)
	}

	second, hit, err := cache.GetOrCompute(key, false, compute)
	if err != nil || !hit {
		t.Fatalf("second call: hit=%v err=%v", hit, err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached result differs: %v vs %v", first, second)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("compute invoked %d times, want 1", got)
	}
}

func TestCacheForceRefreshRecomputes(t *testing.T) {
	clock := newFakeClock()
	cache := testCache(clock)
	key := cacheKey{userID: 1, queryHash: hashQuery("go", true), limit: 10}

	var calls int32
	compute := func() ([]ScoredCandidate, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}

	if _, _, err := cache.GetOrCompute(key, false, compute); err != nil {
		t.Fatal(err)
	}
	_, hit, err := cache.GetOrCompute(key, true, compute)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("force refresh reported a cache hit")
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("compute invoked %d times, want 2", got)
	}
}

func TestCacheExpiry(t *testing.T) {
	clock := newFakeClock()
	cache := testCache(clock)
	key := cacheKey{userID: 2, queryHash: hashQuery("", false), limit: 5}

	var calls int32
	compute := func() ([]ScoredCandidate, error) {
		atomic.AddInt32(&calls, 1)
		return []ScoredCandidate{{Candidate: Candidate{ID: "b"}}}, nil
	}

	if _, _, err := cache.GetOrCompute(key, false, compute); err != nil {
		t.Fatal(err)
	}

	clock.Advance(4 * time.Minute)
	if _, hit, _ := cache.GetOrCompute(key, false, compute); !hit {
		t.Error("entry expired before TTL")
	}

	clock.Advance(2 * time.Minute)
	if _, hit, _ := cache.GetOrCompute(key, false, compute); hit {
		t.Error("entry survived past TTL")
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("compute invoked %d times, want 2", got)
	}
}

func TestCacheFailedComputeNotCached(t *testing.T) {
	clock := newFakeClock()
	cache := testCache(clock)
	key := cacheKey{userID: 3, queryHash: hashQuery("x", true), limit: 10}

	boom := errors.New("retrieval failed")
	if _, _, err := cache.GetOrCompute(key, false, func() ([]ScoredCandidate, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}
	if cache.Len() != 0 {
		t.Errorf("failed compute was cached, len=%d", cache.Len())
	}

	// A later successful compute fills the entry.
	if _, hit, err := cache.GetOrCompute(key, false, func() ([]ScoredCandidate, error) {
		return []ScoredCandidate{}, nil
	}); err != nil || hit {
		t.Fatalf("recovery call: hit=%v err=%v", hit, err)
	}
	if cache.Len() != 1 {
		t.Errorf("successful compute not cached, len=%d", cache.Len())
	}
}

func TestCacheKeyDistinguishesAbsentQuery(t *testing.T) {
	if hashQuery("", true) == hashQuery("", false) {
		t.Error("empty query and absent query hash identically")
	}
	if hashQuery("go", true) == hashQuery("go ", true) {
		t.Error("distinct queries hash identically")
	}
}

func TestCacheEvictsExpiredAtCapacity(t *testing.T) {
	clock := newFakeClock()
	cache := newResultCache(CacheConfig{Enabled: true, TTL: time.Minute, MaxEntries: 2}, clock.Now)

	fill := func(user int) {
		key := cacheKey{userID: user, queryHash: hashQuery("q", true), limit: 10}
		if _, _, err := cache.GetOrCompute(key, false, func() ([]ScoredCandidate, error) {
			return []ScoredCandidate{}, nil
		}); err != nil {
			t.Fatal(err)
		}
	}

	fill(1)
	fill(2)
	clock.Advance(2 * time.Minute)
	fill(3)
	if got := cache.Len(); got != 1 {
		t.Errorf("expired entries not evicted at capacity, len=%d", got)
	}
}

func TestCacheReturnsCopies(t *testing.T) {
	clock := newFakeClock()
	cache := testCache(clock)
	key := cacheKey{userID: 4, queryHash: hashQuery("go", true), limit: 10}

	if _, _, err := cache.GetOrCompute(key, false, func() ([]ScoredCandidate, error) {
		return []ScoredCandidate{{Candidate: Candidate{ID: "orig"}, Score: 1}}, nil
	}); err != nil {
		t.Fatal(err)
	}

	got, _, _ := cache.GetOrCompute(key, false, nil)
	got[0].ID = "mutated"

	again, _, _ := cache.GetOrCompute(key, false, nil)
	if again[0].ID != "orig" {
		t.Error("cache entry mutated through returned slice")
	}
}
