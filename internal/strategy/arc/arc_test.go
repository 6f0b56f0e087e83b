package arc

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/hoardkv/hoard/internal/backend/membackend"
)

func TestStrategy_PromotesT1HitToT2(t *testing.T) {
	s := New(membackend.New(), 10, nil, nil)
	ctx := context.Background()

	s.Set(ctx, "k", []byte("v"), 0)

	t1, t2, _, _ := s.ListLens()
	if t1 != 1 || t2 != 0 {
		t.Fatalf("after Set: |T1|=%d |T2|=%d, want 1, 0", t1, t2)
	}

	if _, err := s.Get(ctx, "k"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	t1, t2, _, _ = s.ListLens()
	if t1 != 0 || t2 != 1 {
		t.Errorf("after hit: |T1|=%d |T2|=%d, want 0, 1", t1, t2)
	}
}

func TestStrategy_CapacityInvariant(t *testing.T) {
	const maxSize = 8
	s := New(membackend.New(), maxSize, nil, nil)
	ctx := context.Background()

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		key := fmt.Sprintf("k%d", rng.Intn(40))
		if rng.Intn(2) == 0 {
			s.Set(ctx, key, []byte("v"), 0)
		} else {
			s.Get(ctx, key)
		}

		t1, t2, b1, b2 := s.ListLens()
		if t1+t2 > maxSize {
			t.Fatalf("op %d: |T1|+|T2| = %d, want <= %d", i, t1+t2, maxSize)
		}
		if t1+t2+b1+b2 > 2*maxSize {
			t.Fatalf("op %d: total list size = %d, want <= %d", i, t1+t2+b1+b2, 2*maxSize)
		}
		if p := s.P(); p < 0 || p > float64(maxSize) {
			t.Fatalf("op %d: p = %v, want in [0, %d]", i, p, maxSize)
		}
	}
}

func TestStrategy_KeyInAtMostOneList(t *testing.T) {
	const maxSize = 4
	s := New(membackend.New(), maxSize, nil, nil)
	ctx := context.Background()

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		key := fmt.Sprintf("k%d", rng.Intn(12))
		if rng.Intn(2) == 0 {
			s.Set(ctx, key, []byte("v"), 0)
		} else {
			s.Get(ctx, key)
		}

		s.mu.Lock()
		for j := 0; j < 12; j++ {
			k := fmt.Sprintf("k%d", j)
			n := 0
			for _, l := range []*keyList{s.t1, s.t2, s.b1, s.b2} {
				if l.contains(k) {
					n++
				}
			}
			if n > 1 {
				s.mu.Unlock()
				t.Fatalf("op %d: key %s present in %d lists", i, k, n)
			}
		}
		s.mu.Unlock()
	}
}

func TestStrategy_GhostHitAdaptsP(t *testing.T) {
	const maxSize = 3
	s := New(membackend.New(), maxSize, nil, nil)
	ctx := context.Background()

	// Fill the cache, then push k1 out of T1 into the B1 ghost list.
	for i := 1; i <= maxSize+1; i++ {
		s.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), 0)
	}

	_, _, b1, _ := s.ListLens()
	if b1 == 0 {
		t.Fatal("expected a ghost entry in B1 after overflow")
	}

	before := s.P()
	s.Get(ctx, "k1") // ghost hit in B1
	if s.P() <= before {
		t.Errorf("p = %v after B1 ghost hit, want > %v (adaptation toward recency)", s.P(), before)
	}

	// The ghost key moved to T2; a following Set must not duplicate it.
	s.Set(ctx, "k1", []byte("v2"), 0)
	_, t2, b1, _ := s.ListLens()
	if b1 != 0 {
		t.Errorf("|B1| = %d after ghost hit, want 0", b1)
	}
	if t2 == 0 {
		t.Error("ghost-hit key should be in T2")
	}
}

func TestStrategy_EvictedValueRemovedFromBackend(t *testing.T) {
	mem := membackend.New()
	s := New(mem, 2, nil, nil)
	ctx := context.Background()

	s.Set(ctx, "a", []byte("1"), 0)
	s.Set(ctx, "b", []byte("2"), 0)
	s.Set(ctx, "c", []byte("3"), 0)

	// Two of the three values remain; one was evicted and deleted.
	if mem.Len() != 2 {
		t.Errorf("backend holds %d values, want 2", mem.Len())
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestStrategy_FrequencyHeavyWorkloadShrinksP(t *testing.T) {
	const maxSize = 4
	s := New(membackend.New(), maxSize, nil, nil)
	ctx := context.Background()

	// Build up B2 ghosts: cycle keys through T2, then evict them.
	for round := 0; round < 6; round++ {
		for i := 0; i < maxSize*2; i++ {
			key := fmt.Sprintf("f%d", i)
			s.Set(ctx, key, []byte("v"), 0)
			s.Get(ctx, key) // promote to T2
		}
	}

	// Re-access evicted frequent keys: B2 ghost hits push p down.
	s.mu.Lock()
	s.p = float64(maxSize)
	s.mu.Unlock()

	for i := 0; i < maxSize*2; i++ {
		s.Get(ctx, fmt.Sprintf("f%d", i))
	}

	if s.P() >= float64(maxSize) {
		t.Errorf("p = %v after B2 ghost hits, want < %d (adaptation toward frequency)", s.P(), maxSize)
	}
}
