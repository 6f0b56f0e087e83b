package refreshahead

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hoardkv/hoard/internal/backend/membackend"
)

func TestStrategy_RefreshTriggeredPastThreshold(t *testing.T) {
	mem := membackend.New()
	s := New(mem, 0.5, nil, nil)
	defer s.Close()
	ctx := context.Background()

	var calls atomic.Int32
	refresh := func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("fresh"), nil
	}

	if err := s.SetWithRefresh(ctx, "k", []byte("stale"), 100*time.Millisecond, refresh); err != nil {
		t.Fatalf("SetWithRefresh() error = %v", err)
	}

	// Before the threshold a read must not refresh.
	if _, err := s.Get(ctx, "k"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("refresh calls = %d before threshold, want 0", calls.Load())
	}

	// Past the threshold the read returns the old value and refreshes
	// in the background.
	time.Sleep(60 * time.Millisecond)
	value, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(value) != "stale" {
		t.Errorf("Get() = %q, want the pre-refresh value", value)
	}

	waitFor(t, func() bool { return calls.Load() == 1 })

	waitFor(t, func() bool {
		v, err := mem.Get(ctx, "k")
		return err == nil && string(v) == "fresh"
	})
}

func TestStrategy_AtMostOneRefreshInFlight(t *testing.T) {
	mem := membackend.New()
	s := New(mem, 0.1, nil, nil)
	defer s.Close()
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	refresh := func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("fresh"), nil
	}

	if err := s.SetWithRefresh(ctx, "k", []byte("v"), 50*time.Millisecond, refresh); err != nil {
		t.Fatalf("SetWithRefresh() error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	// Many concurrent reads past the threshold.
	for i := 0; i < 20; i++ {
		go s.Get(ctx, "k")
	}

	waitFor(t, func() bool { return calls.Load() >= 1 })
	time.Sleep(20 * time.Millisecond)

	if calls.Load() != 1 {
		t.Errorf("refresh calls = %d with one in flight, want 1", calls.Load())
	}
	close(release)
}

func TestStrategy_NoCallbackNoRefresh(t *testing.T) {
	mem := membackend.New()
	s := New(mem, 0.1, nil, nil)
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v"), 30*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, err := s.Get(ctx, "k"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	// Nothing to wait for; just make sure Close returns promptly.
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestStrategy_CloseWaitsForInflightRefresh(t *testing.T) {
	mem := membackend.New()
	s := New(mem, 0.1, nil, nil)
	ctx := context.Background()

	started := make(chan struct{})
	var finished atomic.Bool
	refresh := func(ctx context.Context) ([]byte, error) {
		close(started)
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
		return []byte("fresh"), nil
	}

	s.SetWithRefresh(ctx, "k", []byte("v"), 50*time.Millisecond, refresh)
	time.Sleep(20 * time.Millisecond)
	s.Get(ctx, "k")

	<-started
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !finished.Load() {
		t.Error("Close() returned before the in-flight refresh finished")
	}
}

// waitFor polls cond for up to a second.
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
