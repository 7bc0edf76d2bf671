package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to be cached")
	}
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("areas", 3)
	c.Set("operators", 4)
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("areas"); ok {
		t.Fatal("expected areas to be expired")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Fatalf("CleanExpired() = %d, want 1", removed)
	}
	if c.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCache_Purge(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("Size() = %d after Purge", c.Size())
	}
	c.Set("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("Get(c) = %d, %v", v, ok)
	}
}

func TestGetOrLoad(t *testing.T) {
	c := NewLRUCache[[]string](10, time.Minute)
	calls := 0
	load := func() ([]string, error) {
		calls++
		return []string{"الحي الأول"}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := GetOrLoad[[]string](c, "areas", load)
		if err != nil {
			t.Fatalf("GetOrLoad: %v", err)
		}
		if len(v) != 1 {
			t.Fatalf("got %v", v)
		}
	}
	if calls != 1 {
		t.Fatalf("load called %d times, want 1", calls)
	}

	boom := errors.New("boom")
	_, err := GetOrLoad[[]string](c, "operators", func() ([]string, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if _, ok := c.Get("operators"); ok {
		t.Fatal("errors must not be cached")
	}
}

func TestGetOrLoad_ConcurrentMissesLoadOnce(t *testing.T) {
	c := NewLRUCache[[]string](4, time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})
	load := func() ([]string, error) {
		calls.Add(1)
		<-release
		return []string{"كفيل"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, err := GetOrLoad[[]string](c, "sponsors", load); err != nil || len(v) != 1 {
				t.Errorf("GetOrLoad = %v, %v", v, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("load called %d times, want 1", n)
	}
}

func TestManager_CleanAll(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	a := NewLRUCache[int](10, time.Second)
	a.now = func() time.Time { return now }
	a.Set("x", 1)

	m := NewManager()
	m.Register(a)
	now = now.Add(time.Minute)
	if got := m.CleanAll(); got != 1 {
		t.Fatalf("CleanAll() = %d, want 1", got)
	}
	m.Stop()
}
