package localtier

import (
	"fmt"
	"testing"
	"time"
)

func TestTier_SetGet(t *testing.T) {
	tier, err := New(10)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tier.Set("k", []byte("v"), time.Minute)

	got, ok := tier.Get("k")
	if !ok {
		t.Fatal("Get() = miss, want hit")
	}
	if string(got) != "v" {
		t.Errorf("Get() = %q, want %q", got, "v")
	}
}

func TestTier_Expiry(t *testing.T) {
	tier, err := New(10)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tier.Set("k", []byte("v"), 20*time.Millisecond)

	if _, ok := tier.Get("k"); !ok {
		t.Fatal("Get() before expiry = miss, want hit")
	}

	time.Sleep(40 * time.Millisecond)

	if _, ok := tier.Get("k"); ok {
		t.Error("Get() after expiry = hit, want miss")
	}
	if tier.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after expired entry dropped", tier.Len())
	}
}

func TestTier_CapacityBound(t *testing.T) {
	tier, err := New(3)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		tier.Set(fmt.Sprintf("k%d", i), []byte("v"), time.Minute)
	}

	if tier.Len() != 3 {
		t.Errorf("Len() = %d, want 3", tier.Len())
	}

	// Oldest entries are evicted first.
	if _, ok := tier.Get("k0"); ok {
		t.Error("k0 should have been evicted")
	}
	if _, ok := tier.Get("k4"); !ok {
		t.Error("k4 should be present")
	}

	if got := tier.Evictions(); got != 2 {
		t.Errorf("Evictions() = %d, want 2", got)
	}
}

func TestTier_DeleteIsNotAnEviction(t *testing.T) {
	tier, err := New(3)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tier.Set("k", []byte("v"), time.Minute)
	tier.Delete("k")

	if got := tier.Evictions(); got != 0 {
		t.Errorf("Evictions() = %d, want 0", got)
	}
}

func TestTier_InvalidateSubstring(t *testing.T) {
	tier, err := New(10)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tier.Set("user:1", []byte("a"), time.Minute)
	tier.Set("user:2", []byte("b"), time.Minute)
	tier.Set("doc:1", []byte("c"), time.Minute)

	count := tier.InvalidateSubstring("user:")
	if count != 2 {
		t.Errorf("InvalidateSubstring() = %d, want 2", count)
	}
	if _, ok := tier.Get("doc:1"); !ok {
		t.Error("doc:1 should survive user invalidation")
	}
}

func TestTier_Clear(t *testing.T) {
	tier, err := New(10)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tier.Set("a", []byte("1"), time.Minute)
	tier.Set("b", []byte("2"), time.Minute)
	tier.Clear()

	if tier.Len() != 0 {
		t.Errorf("Len() = %d after Clear(), want 0", tier.Len())
	}
}
