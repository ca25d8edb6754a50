package ratelimit

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestLimiter_SlidingWindow(t *testing.T) {
	store := NewMemoryStore(0, 0)
	defer store.Close()

	limiter, err := NewLimiter(store, 3, time.Minute)
	if err != nil {
		t.Fatalf("Failed to create limiter: %v", err)
	}
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	limiter.SetClock(clock.Now)

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow("10.0.0.1")
		if err != nil || !d.Allowed {
			t.Fatalf("Hit %d should be allowed: %+v %v", i, d, err)
		}
		if d.Remaining != 2-i {
			t.Errorf("Hit %d: expected remaining %d, got %d", i, 2-i, d.Remaining)
		}
		clock.Advance(10 * time.Second)
	}

	d, _ := limiter.Allow("10.0.0.1")
	if d.Allowed {
		t.Fatal("Fourth hit within the window should be rejected")
	}
	if d.RetryAfter != 30*time.Second {
		t.Errorf("Expected retry after 30s, got %v", d.RetryAfter)
	}

	if d, _ := limiter.Allow("10.0.0.2"); !d.Allowed {
		t.Error("Other keys must not be affected")
	}

	clock.Advance(31 * time.Second)
	if d, _ := limiter.Allow("10.0.0.1"); !d.Allowed {
		t.Error("Hit should be allowed once the oldest timestamp expires")
	}
}

func TestLimiter_RejectedHitsAreNotRecorded(t *testing.T) {
	store := NewMemoryStore(0, 0)
	defer store.Close()
	limiter, _ := NewLimiter(store, 1, time.Second)
	clock := &fakeClock{now: time.Unix(1000, 0)}
	limiter.SetClock(clock.Now)

	limiter.Allow("k")
	for i := 0; i < 5; i++ {
		limiter.Allow("k")
	}
	count, _, _ := store.Count("k", clock.Now(), time.Second)
	if count != 1 {
		t.Errorf("Expected 1 recorded hit, got %d", count)
	}
}

func TestNewLimiter_InvalidArguments(t *testing.T) {
	store := NewMemoryStore(0, 0)
	defer store.Close()

	if _, err := NewLimiter(nil, 1, time.Second); err == nil {
		t.Error("Expected error for nil store")
	}
	if _, err := NewLimiter(store, 0, time.Second); err == nil {
		t.Error("Expected error for zero limit")
	}
	if _, err := NewLimiter(store, 1, 0); err == nil {
		t.Error("Expected error for zero window")
	}
}

func TestMemoryStore_PurgeDropsExpiredKeys(t *testing.T) {
	store := NewMemoryStore(0, 0)
	defer store.Close()
	base := time.Unix(5000, 0)

	store.Add("a", base, time.Minute)
	store.Add("b", base.Add(50*time.Second), time.Minute)
	store.Purge(base.Add(70*time.Second), time.Minute)

	if store.Keys() != 1 {
		t.Errorf("Expected 1 live key after purge, got %d", store.Keys())
	}
	if n, _, _ := store.Count("b", base.Add(70*time.Second), time.Minute); n != 1 {
		t.Errorf("Expected key b to survive, got %d hits", n)
	}
}

func TestMemoryStore_ConcurrentAdds(t *testing.T) {
	store := NewMemoryStore(10*time.Millisecond, time.Hour)
	defer store.Close()
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Add("shared", now, time.Hour)
		}()
	}
	wg.Wait()

	if n, _, _ := store.Count("shared", now, time.Hour); n != 50 {
		t.Errorf("Expected 50 hits, got %d", n)
	}
}
