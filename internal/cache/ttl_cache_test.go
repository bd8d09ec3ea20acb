package cache

import (
	"testing"
	"time"
)

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

func TestTTLCacheExpiresOnClock(t *testing.T) {
	clk := &manualClock{now: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	c := NewTTLCache[string, int](clk)

	c.Set("stats", 42, 30*time.Second)
	if v, ok := c.Get("stats"); !ok || v != 42 {
		t.Fatalf("expected cached 42, got %v (%v)", v, ok)
	}

	clk.now = clk.now.Add(29 * time.Second)
	if _, ok := c.Get("stats"); !ok {
		t.Fatalf("expected entry to survive before ttl")
	}

	clk.now = clk.now.Add(time.Second)
	if _, ok := c.Get("stats"); ok {
		t.Fatalf("expected entry to expire at ttl")
	}
}

func TestTTLCacheWithoutTTLAndPurge(t *testing.T) {
	c := NewTTLCache[string, int](nil)
	c.Set("a", 1, 0)
	c.Set("b", 2, time.Hour)

	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected entry without ttl to stay")
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected deleted entry to miss")
	}

	c.Purge()
	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected purge to drop every entry")
	}
}

func TestNoopCacheAlwaysMisses(t *testing.T) {
	var c Cache[string, int] = NoopCache[string, int]{}
	c.Set("a", 1, time.Hour)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected noop cache to miss")
	}
}
