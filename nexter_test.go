package feedgen_test

import (
	"sync"
	"testing"

	"github.com/pilosa/feedgen"
)

func TestNexter(t *testing.T) {
	n := feedgen.NewNexter(feedgen.NexterStartFrom(19))
	if num := n.Next(); num != 19 {
		t.Fatalf("expected 19 for Next, but %d", num)
	}
	if num := n.Last(); num != 19 {
		t.Fatalf("expected 19 for Last, but %d", num)
	}
}

func TestNexterUniqueID(t *testing.T) {
	n := feedgen.NewNexter(feedgen.NexterPrefix("feed-"))
	if id := n.UniqueID(); id != "feed-0" {
		t.Fatalf("expected feed-0, got %s", id)
	}
	if id := n.UniqueID(); id != "feed-1" {
		t.Fatalf("expected feed-1, got %s", id)
	}
}

func TestNexterConcurrent(t *testing.T) {
	n := feedgen.NewNexter()
	seen := make(map[string]struct{})
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := n.UniqueID()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != 800 {
		t.Fatalf("expected 800 unique ids, got %d", len(seen))
	}
}

func TestUUIDGenerator(t *testing.T) {
	g := feedgen.UUIDGenerator{}
	a, b := g.UniqueID(), g.UniqueID()
	if a == b {
		t.Fatalf("expected distinct ids, got %s twice", a)
	}
	if len(a) != 36 {
		t.Fatalf("unexpected uuid form %s", a)
	}
}
