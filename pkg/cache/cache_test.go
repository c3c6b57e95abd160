package cache

import (
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New[string]()
	c.Set("k", "v", time.Minute)

	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("expected v, got %q (ok=%v)", got, ok)
	}
}

func TestExpiry(t *testing.T) {
	c := New[int]()
	c.Set("k", 1, -time.Second)

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected expired entry to be absent")
	}
	if c.Len() != 0 {
		t.Fatalf("expected expired entry to be evicted on read, len=%d", c.Len())
	}
}

func TestInvalidatePrefix(t *testing.T) {
	c := New[int]()
	c.Set("biz-1:products", 1, time.Minute)
	c.Set("biz-1:contacts", 2, time.Minute)
	c.Set("biz-2:products", 3, time.Minute)

	c.Invalidate("biz-1:")

	if _, ok := c.Get("biz-1:products"); ok {
		t.Fatalf("expected biz-1 keys invalidated")
	}
	if _, ok := c.Get("biz-2:products"); !ok {
		t.Fatalf("expected biz-2 key untouched")
	}
}

func TestDelete(t *testing.T) {
	c := New[string]()
	c.Set("k", "v", time.Minute)
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected deleted key to be absent")
	}
}
