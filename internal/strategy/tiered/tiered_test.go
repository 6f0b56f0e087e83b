package tiered

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hoardkv/hoard/internal/backend"
	"github.com/hoardkv/hoard/internal/backend/membackend"
)

func newTwoTier(t *testing.T) (*Strategy, *membackend.Backend, *membackend.Backend) {
	t.Helper()
	l1 := membackend.New()
	l2 := membackend.New()
	s := New([]Tier{
		{Backend: l1},
		{Backend: l2},
	}, nil, nil)
	t.Cleanup(func() { s.Close() })
	return s, l1, l2
}

func TestStrategy_PromotionOnLowerTierHit(t *testing.T) {
	s, l1, l2 := newTwoTier(t)
	ctx := context.Background()

	// Value present only in tier 1.
	if err := l2.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("seeding l2: %v", err)
	}

	value, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(value) != "v" {
		t.Errorf("Get() = %q, want %q", value, "v")
	}

	// The promotion write is asynchronous.
	waitFor(t, func() bool {
		_, err := l1.Get(ctx, "k")
		return err == nil
	})

	// A second Get now hits tier 0 directly.
	if _, err := s.Get(ctx, "k"); err != nil {
		t.Fatalf("second Get() error = %v", err)
	}
	ts := s.TierStats()
	if ts[0].Hits != 1 {
		t.Errorf("tier 0 hits = %d, want 1", ts[0].Hits)
	}
}

func TestStrategy_SetWritesAllAdmittingTiers(t *testing.T) {
	s, l1, l2 := newTwoTier(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	for name, b := range map[string]*membackend.Backend{"l1": l1, "l2": l2} {
		if _, err := b.Get(ctx, "k"); err != nil {
			t.Errorf("%s missing value after Set: %v", name, err)
		}
	}
}

func TestStrategy_SizeBounds(t *testing.T) {
	l1 := membackend.New()
	l2 := membackend.New()
	// Tier 0 only admits small values; tier 1 only large ones.
	s := New([]Tier{
		{Backend: l1, Config: TierConfig{MaxValueSize: 10}},
		{Backend: l2, Config: TierConfig{MinValueSize: 11}},
	}, nil, nil)
	defer s.Close()
	ctx := context.Background()

	small := []byte("tiny")
	large := []byte("this value is larger than ten bytes")

	if err := s.Set(ctx, "small", small, 0); err != nil {
		t.Fatalf("Set(small) error = %v", err)
	}
	if err := s.Set(ctx, "large", large, 0); err != nil {
		t.Fatalf("Set(large) error = %v", err)
	}

	if _, err := l1.Get(ctx, "small"); err != nil {
		t.Error("small value should be in tier 0")
	}
	if _, err := l1.Get(ctx, "large"); !errors.Is(err, backend.ErrNotFound) {
		t.Error("large value should not be in tier 0")
	}
	if _, err := l2.Get(ctx, "large"); err != nil {
		t.Error("large value should be in tier 1")
	}
	if _, err := l2.Get(ctx, "small"); !errors.Is(err, backend.ErrNotFound) {
		t.Error("small value should not be in tier 1")
	}
}

func TestStrategy_TierTTLMultiplier(t *testing.T) {
	s := New([]Tier{
		{Backend: membackend.New()},
		{Backend: membackend.New(), Config: TierConfig{TTLMultiplier: 3}},
	}, nil, nil)
	defer s.Close()

	if got := s.tierTTL(0, time.Minute); got != time.Minute {
		t.Errorf("tierTTL(0) = %v, want %v", got, time.Minute)
	}
	if got := s.tierTTL(1, time.Minute); got != 3*time.Minute {
		t.Errorf("tierTTL(1) = %v, want %v", got, 3*time.Minute)
	}
}

func TestStrategy_MissCountsEveryTier(t *testing.T) {
	s, _, _ := newTwoTier(t)

	if _, err := s.Get(context.Background(), "absent"); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}

	for _, ts := range s.TierStats() {
		if ts.Misses != 1 {
			t.Errorf("tier %d misses = %d, want 1", ts.Tier, ts.Misses)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
