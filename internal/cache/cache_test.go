package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New()

	c.Set("k", "v", time.Minute)
	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit for live entry")
	}
	if got != "v" {
		t.Fatalf("expected v, got %v", got)
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestExpiry(t *testing.T) {
	c := New()

	c.Set("k", "v", 30*time.Millisecond)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected entry to be live before its TTL")
	}

	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected entry to expire after its TTL")
	}
	if n := c.Len(); n != 0 {
		t.Fatalf("expected no live entries, got %d", n)
	}
}

func TestDeleteAndClear(t *testing.T) {
	c := New()

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	if !c.Delete("a") {
		t.Fatal("expected delete of present key to report true")
	}
	if c.Delete("a") {
		t.Fatal("expected delete of absent key to report false")
	}
	if n := c.Len(); n != 1 {
		t.Fatalf("expected 1 entry, got %d", n)
	}

	c.Clear()
	if n := c.Len(); n != 0 {
		t.Fatalf("expected empty cache after clear, got %d", n)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", n)
			for j := 0; j < 100; j++ {
				c.Set(key, j, time.Minute)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if n := c.Len(); n != 10 {
		t.Fatalf("expected 10 entries, got %d", n)
	}
}
