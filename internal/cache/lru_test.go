package cache

import (
	"testing"
	"time"
)

func TestLRU_Eviction(t *testing.T) {
	c := New[string, int](2, 0)
	c.Add("a", 1)
	c.Add("b", 2)
	c.Get("a") // a is now MRU
	c.Add("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("LRU entry b survived")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("a = %d, %v", v, ok)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestLRU_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[string, string](4, time.Minute)
	c.now = func() time.Time { return now }

	c.Add("k", "v")
	now = now.Add(30 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired early")
	}
	now = now.Add(31 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry returned")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not dropped, Len = %d", c.Len())
	}
}

func TestLRU_UpdateAndRemove(t *testing.T) {
	c := New[int, string](2, 0)
	c.Add(1, "x")
	c.Add(1, "y")
	if v, _ := c.Get(1); v != "y" {
		t.Fatalf("Get(1) = %q", v)
	}
	c.Remove(1)
	if _, ok := c.Get(1); ok {
		t.Fatal("removed entry returned")
	}
}
