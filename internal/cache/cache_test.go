package cache

import (
	"testing"
	"time"
)

func TestLRUGetSet(t *testing.T) {
	c := NewLRU[string](10, time.Minute)

	if _, ok := c.Get("2024-06"); ok {
		t.Error("empty cache returned a hit")
	}

	c.Set("2024-06", "summary")
	got, ok := c.Get("2024-06")
	if !ok || got != "summary" {
		t.Errorf("Get = (%q, %v), want (summary, true)", got, ok)
	}

	c.Set("2024-06", "updated")
	if got, _ := c.Get("2024-06"); got != "updated" {
		t.Errorf("Get after overwrite = %q, want updated", got)
	}
	if c.Size() != 1 {
		t.Errorf("Size = %d, want 1", c.Size())
	}
}

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRU[int](2, time.Minute)
	c.Set("2024-04", 1)
	c.Set("2024-05", 2)

	// Touch 2024-04 so 2024-05 becomes the eviction candidate.
	c.Get("2024-04")
	c.Set("2024-06", 3)

	if _, ok := c.Get("2024-05"); ok {
		t.Error("least recently used entry survived eviction")
	}
	if _, ok := c.Get("2024-04"); !ok {
		t.Error("recently used entry was evicted")
	}
	if c.Size() != 2 {
		t.Errorf("Size = %d, want 2", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRU[int](10, 10*time.Millisecond)
	c.Set("2024-06", 1)

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("2024-06"); ok {
		t.Error("expired entry returned")
	}
	if c.Size() != 0 {
		t.Errorf("Size after expired Get = %d, want 0", c.Size())
	}
}

func TestLRUClearAndDelete(t *testing.T) {
	c := NewLRU[int](10, time.Minute)
	c.Set("2024-05", 1)
	c.Set("2024-06", 2)

	c.Delete("2024-05")
	if _, ok := c.Get("2024-05"); ok {
		t.Error("deleted entry returned")
	}

	c.Clear()
	if c.Size() != 0 {
		t.Errorf("Size after Clear = %d, want 0", c.Size())
	}
}

func TestCleanExpired(t *testing.T) {
	c := NewLRU[int](10, 10*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)

	time.Sleep(20 * time.Millisecond)
	c.Set("c", 3)

	if removed := c.CleanExpired(); removed != 2 {
		t.Errorf("CleanExpired = %d, want 2", removed)
	}
	if c.Size() != 1 {
		t.Errorf("Size = %d, want 1", c.Size())
	}
}

func TestJanitorSweeps(t *testing.T) {
	c := NewLRU[int](10, 5*time.Millisecond)
	c.Set("a", 1)

	j := NewJanitor(c)
	j.Start(10 * time.Millisecond)
	defer j.Stop()

	deadline := time.After(time.Second)
	for c.Size() > 0 {
		select {
		case <-deadline:
			t.Fatal("janitor never removed the expired entry")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
