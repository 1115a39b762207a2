package useragent

import (
	"sync"
	"testing"
)

func TestPool_Next(t *testing.T) {
	p := NewPool([]string{"A", "B", "C"})

	for _, want := range []string{"A", "B", "C", "A"} {
		if got := p.Next(); got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	}
}

func TestPool_Default(t *testing.T) {
	p := NewPool(nil)
	if len(p.All()) != len(DefaultPool) {
		t.Errorf("expected pool length %d, got %d", len(DefaultPool), len(p.All()))
	}
	if got := p.Next(); got != DefaultPool[0] {
		t.Errorf("expected %s, got %s", DefaultPool[0], got)
	}
}

func TestPool_DropsBlankEntries(t *testing.T) {
	p := NewPool([]string{"  ", "A", ""})
	if all := p.All(); len(all) != 1 || all[0] != "A" {
		t.Errorf("expected [A], got %v", all)
	}

	p = NewPool([]string{" ", ""})
	if len(p.All()) != len(DefaultPool) {
		t.Errorf("expected fallback to DefaultPool when every entry is blank")
	}
}

func TestPool_Random(t *testing.T) {
	p := NewPool([]string{"A", "B"})

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		got := p.Random()
		if got != "A" && got != "B" {
			t.Fatalf("unexpected UA: %s", got)
		}
		seen[got] = true
	}

	if !seen["A"] || !seen["B"] {
		t.Errorf("expected to see both A and B, saw %v", seen)
	}
}

func TestPool_Picker(t *testing.T) {
	p := NewPool([]string{"A", "B"})
	next := p.Picker(false)
	if next() != "A" || next() != "B" {
		t.Errorf("sequential picker should round-robin")
	}
	if got := p.Picker(true)(); got != "A" && got != "B" {
		t.Errorf("random picker returned %q", got)
	}
}

func TestPool_ConcurrentNext(t *testing.T) {
	p := NewPool([]string{"A", "B"})

	var wg sync.WaitGroup
	var mu sync.Mutex
	counts := map[string]int{}

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ua := p.Next()
			mu.Lock()
			counts[ua]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if counts["A"] != 50 || counts["B"] != 50 {
		t.Errorf("expected an even split, got %v", counts)
	}
}

func TestPool_AllReturnsCopy(t *testing.T) {
	p := NewPool([]string{"A"})
	all := p.All()
	all[0] = "mutated"
	if p.Next() != "A" {
		t.Errorf("All must not expose internal state")
	}
}
