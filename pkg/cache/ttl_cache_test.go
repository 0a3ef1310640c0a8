package cache

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestTTLCacheExpiry(t *testing.T) {
	clk := clock.NewMock()
	c := NewWithClock[string, int](clk, time.Minute, time.Hour)
	defer c.Close()

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get = %v %v, want 1 true", v, ok)
	}

	clk.Add(59 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Error("entry expired early")
	}

	clk.Add(2 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("entry still present after ttl")
	}
}

func TestTTLCacheSetResetsExpiry(t *testing.T) {
	clk := clock.NewMock()
	c := NewWithClock[string, string](clk, time.Minute, time.Hour)
	defer c.Close()

	c.Set("a", "x")
	clk.Add(50 * time.Second)
	c.Set("a", "y")
	clk.Add(50 * time.Second)

	if v, ok := c.Get("a"); !ok || v != "y" {
		t.Errorf("Get = %q %v, want y true", v, ok)
	}
}

func TestTTLCacheEviction(t *testing.T) {
	clk := clock.NewMock()
	c := NewWithClock[string, int](clk, time.Minute, time.Hour)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("b")
	clk.Add(2 * time.Minute)
	c.evictExpired()

	if n := c.Len(); n != 0 {
		t.Errorf("Len = %d, want 0", n)
	}
	c.Close()
}
