package cache

import (
	"context"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(t *testing.T, size int, ttl time.Duration) (*LRUCache[int], *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUCacheGetSet(t *testing.T) {
	c, _ := newTestCache(t, 2, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.Set("a", 1)
	c.Set("a", 2)
	if v, ok := c.Get("a"); !ok || v != 2 {
		t.Fatalf("Get(a) = %d, %v; want 2, true", v, ok)
	}
	if c.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", c.Size())
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(t, 2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to survive, it was used most recently")
	}
	if c.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c, clk := newTestCache(t, 10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	clk.t = clk.t.Add(30 * time.Second)
	c.Set("b", 3)

	clk.t = clk.t.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a to have expired")
	}
	if v, ok := c.Get("b"); !ok || v != 3 {
		t.Fatalf("expected b refreshed by its last write, got %d, %v", v, ok)
	}

	clk.t = clk.t.Add(time.Hour)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCacheUpdate(t *testing.T) {
	c, clk := newTestCache(t, 10, time.Minute)
	incr := func(cur int, found bool) int {
		if !found {
			return 1
		}
		return cur + 1
	}

	c.Update("ip", incr)
	if got := c.Update("ip", incr); got != 2 {
		t.Fatalf("Update() = %d, want 2", got)
	}

	clk.t = clk.t.Add(2 * time.Minute)
	if got := c.Update("ip", incr); got != 1 {
		t.Fatalf("expected expired entry to restart the count, got %d", got)
	}
}

func TestManagerSweep(t *testing.T) {
	a, clk := newTestCache(t, 10, time.Minute)
	b := NewLRUCache[string](10, time.Hour)
	a.Set("x", 1)
	a.Set("y", 2)
	b.Set("z", "kept")

	m := NewManager(nil)
	m.Register(a)
	m.Register(b)

	clk.t = clk.t.Add(2 * time.Minute)
	if n := m.Sweep(); n != 2 {
		t.Fatalf("Sweep() = %d, want 2", n)
	}
	if b.Size() != 1 {
		t.Fatal("expected the long-lived cache to keep its entry")
	}
}

func TestManagerRunStopsOnCancel(t *testing.T) {
	m := NewManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
