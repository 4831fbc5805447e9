package game

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCreateRejectsSecondSession(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create("u1", "room1", "Alice"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := r.Create("u1", "room2", "Alice"); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", r.Len())
	}
}

func TestRemoveIdempotent(t *testing.T) {
	r := NewRegistry()
	s, err := r.Create("u1", "room1", "Alice")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !r.Remove("u1") {
		t.Fatalf("first Remove should report true")
	}
	if r.Remove("u1") {
		t.Fatalf("second Remove should report false")
	}
	if !s.Removed() {
		t.Fatalf("session should be flagged removed")
	}
	if _, ok := r.Get("u1"); ok {
		t.Fatalf("removed session still reachable")
	}
}

func TestSessionIDsUnique(t *testing.T) {
	r := NewRegistry()
	a, err := r.Create("u1", "room", "A")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := r.Create("u2", "room", "B")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.ID == "" || b.ID == "" {
		t.Fatalf("session without id: %q %q", a.ID, b.ID)
	}
	if a.ID == b.ID {
		t.Fatalf("duplicate session id %q", a.ID)
	}
}

func TestCreateAfterRemove(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create("u1", "room1", "Alice"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	r.Remove("u1")
	if _, err := r.Create("u1", "room1", "Alice"); err != nil {
		t.Fatalf("Create after Remove: %v", err)
	}
}

func TestIdleBeyond(t *testing.T) {
	r := NewRegistry()
	base := time.Now()
	r.now = func() time.Time { return base }

	if _, err := r.Create("idle", "room1", "A"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := r.Create("fresh", "room1", "B"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Only "fresh" answers within the window.
	r.now = func() time.Time { return base.Add(6 * time.Minute) }
	if fresh, ok := r.Get("fresh"); ok {
		fresh.Lock()
		fresh.Touch(base.Add(5 * time.Minute))
		fresh.Unlock()
	}

	idle := r.IdleBeyond(5 * time.Minute)
	if len(idle) != 1 || idle[0] != "idle" {
		t.Fatalf("IdleBeyond = %v, want [idle]", idle)
	}
}

func TestConcurrentCreateDistinctUsers(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := r.Create(fmt.Sprintf("u%d", n), "room", "X"); err != nil {
				t.Errorf("Create u%d: %v", n, err)
			}
		}(i)
	}
	wg.Wait()
	if r.Len() != 32 {
		t.Fatalf("expected 32 sessions, got %d", r.Len())
	}
}

func TestConcurrentCreateSameUser(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Create("u1", "room", "X"); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if created != 1 {
		t.Fatalf("expected exactly 1 successful create, got %d", created)
	}
}
