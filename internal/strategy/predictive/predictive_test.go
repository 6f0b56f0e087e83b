package predictive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hoardkv/hoard/internal/backend"
	"github.com/hoardkv/hoard/internal/backend/membackend"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

type recordingFetcher struct {
	mu      sync.Mutex
	fetched []string
	values  map[string][]byte
}

func (f *recordingFetcher) fetch(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, key)
	v, ok := f.values[key]
	if !ok {
		return nil, errors.New("origin: no such key")
	}
	return v, nil
}

func (f *recordingFetcher) fetchedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.fetched))
	copy(out, f.fetched)
	return out
}

func TestStrategy_PrefetchesFollower(t *testing.T) {
	mem := membackend.New()
	fetcher := &recordingFetcher{values: map[string][]byte{
		"page:2": []byte("two"),
	}}
	s := New(mem, fetcher.fetch)
	defer s.Close()

	ctx := context.Background()
	if err := s.Set(ctx, "page:1", []byte("one"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Establish the pattern page:1 -> page:2 in the history.
	for i := 0; i < 3; i++ {
		s.record("page:1")
		s.record("page:2")
	}

	if _, err := s.Get(ctx, "page:1"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	waitFor(t, time.Second, func() bool {
		exists, err := mem.Exists(ctx, "page:2")
		return err == nil && exists
	})

	got, err := mem.Get(ctx, "page:2")
	if err != nil {
		t.Fatalf("Get(page:2) error = %v", err)
	}
	if string(got) != "two" {
		t.Fatalf("prefetched value = %q, want %q", got, "two")
	}
}

func TestStrategy_SkipsCachedKeys(t *testing.T) {
	mem := membackend.New()
	fetcher := &recordingFetcher{values: map[string][]byte{}}
	s := New(mem, fetcher.fetch)
	defer s.Close()

	ctx := context.Background()
	if err := s.Set(ctx, "a", []byte("1"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(ctx, "b", []byte("2"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	s.record("a")
	s.record("b")
	if _, err := s.Get(ctx, "a"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	// b is already cached, so the worker must not call the fetcher.
	time.Sleep(50 * time.Millisecond)
	if got := fetcher.fetchedKeys(); len(got) != 0 {
		t.Fatalf("fetched keys = %v, want none", got)
	}
}

func TestStrategy_MissRecordsNoPrediction(t *testing.T) {
	mem := membackend.New()
	fetcher := &recordingFetcher{values: map[string][]byte{"b": []byte("2")}}
	s := New(mem, fetcher.fetch)
	defer s.Close()

	ctx := context.Background()
	s.record("a")
	s.record("b")

	// a is not cached; a miss must not trigger prefetching.
	if _, err := s.Get(ctx, "a"); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}

	time.Sleep(50 * time.Millisecond)
	if got := fetcher.fetchedKeys(); len(got) != 0 {
		t.Fatalf("fetched keys = %v, want none", got)
	}
}

type fixedPredictor struct {
	predictions []Prediction
}

func (p *fixedPredictor) Predict(string, []Access) []Prediction {
	return p.predictions
}

func TestStrategy_ThresholdFiltersLowConfidence(t *testing.T) {
	mem := membackend.New()
	fetcher := &recordingFetcher{values: map[string][]byte{
		"high": []byte("h"),
		"low":  []byte("l"),
	}}
	s := New(mem, fetcher.fetch, WithPredictor(&fixedPredictor{predictions: []Prediction{
		{Key: "high", Confidence: 0.9},
		{Key: "low", Confidence: 0.2},
	}}))
	defer s.Close()

	ctx := context.Background()
	if err := s.Set(ctx, "a", []byte("1"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := s.Get(ctx, "a"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	waitFor(t, time.Second, func() bool {
		exists, err := mem.Exists(ctx, "high")
		return err == nil && exists
	})
	if exists, _ := mem.Exists(ctx, "low"); exists {
		t.Fatal("low-confidence key was prefetched")
	}
}

func TestStrategy_HistoryBounded(t *testing.T) {
	mem := membackend.New()
	s := New(mem, func(context.Context, string) ([]byte, error) { return nil, nil })
	defer s.Close()

	for i := 0; i < maxHistory+100; i++ {
		s.record(fmt.Sprintf("k%d", i))
	}

	if got := s.HistoryLen(); got > maxHistory {
		t.Fatalf("HistoryLen() = %d, want <= %d", got, maxHistory)
	}
}

func TestSequentialPredictor_RanksByFrequency(t *testing.T) {
	p := NewSequentialPredictor()

	var history []Access
	add := func(keys ...string) {
		for _, k := range keys {
			history = append(history, Access{Key: k, At: time.Now()})
		}
	}
	add("a", "b", "a", "b", "a", "c")

	got := p.Predict("a", history)
	if len(got) != 2 {
		t.Fatalf("Predict() returned %d predictions, want 2", len(got))
	}
	if got[0].Key != "b" || got[1].Key != "c" {
		t.Fatalf("Predict() order = [%s %s], want [b c]", got[0].Key, got[1].Key)
	}
	if got[0].Confidence <= DefaultThreshold {
		t.Fatalf("confidence = %v, want above threshold %v", got[0].Confidence, DefaultThreshold)
	}
}
