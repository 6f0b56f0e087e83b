// Package predictive implements a strategy that learns access patterns and
// prefetches likely-next keys in the background.
//
// Every Get is recorded in a bounded access history. After a hit, an
// injectable predictor proposes likely-next keys from the history; those
// above a confidence threshold are queued for a supervised prefetch worker,
// which fetches and stores keys not already cached.
package predictive

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hoardkv/hoard/internal/backend"
	"github.com/hoardkv/hoard/internal/stats"
	"github.com/hoardkv/hoard/internal/strategy"
)

// Compile-time check that Strategy implements strategy.Strategy.
var _ strategy.Strategy = (*Strategy)(nil)

const (
	// maxHistory bounds the access history; when reached it is trimmed to
	// half so trimming stays amortized O(1).
	maxHistory = 10000

	// DefaultThreshold is the minimum confidence for a prediction to be
	// prefetched.
	DefaultThreshold = 0.5

	// prefetchTTL is how long prefetched values are stored.
	prefetchTTL = 5 * time.Minute

	// queueSize bounds the prefetch queue; predictions beyond it are
	// dropped rather than blocking reads.
	queueSize = 256
)

// Access is one recorded cache access.
type Access struct {
	Key string
	At  time.Time
}

// Prediction is a candidate next key with a confidence in [0, 1].
type Prediction struct {
	Key        string
	Confidence float64
}

// Predictor proposes likely-next keys given the current key and the access
// history, most recent last.
type Predictor interface {
	Predict(current string, history []Access) []Prediction
}

// FetchFunc loads the value for a predicted key from the origin.
type FetchFunc func(ctx context.Context, key string) ([]byte, error)

// Strategy implements predictive prefetching.
type Strategy struct {
	backend   backend.Backend
	predictor Predictor
	fetch     FetchFunc
	threshold float64
	collector stats.Collector
	logger    *zap.Logger

	mu      sync.Mutex
	history []Access

	queue  chan string
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Strategy.
type Option func(*Strategy)

// WithPredictor replaces the default sequential-pattern predictor.
func WithPredictor(p Predictor) Option {
	return func(s *Strategy) { s.predictor = p }
}

// WithThreshold sets the prefetch confidence threshold.
func WithThreshold(threshold float64) Option {
	return func(s *Strategy) { s.threshold = threshold }
}

// WithStats sets the stats collector.
func WithStats(c stats.Collector) Option {
	return func(s *Strategy) { s.collector = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Strategy) { s.logger = l }
}

// New creates a predictive strategy over the given backend. fetch loads
// predicted keys from the origin; the prefetch worker starts immediately
// and runs until Close.
func New(b backend.Backend, fetch FetchFunc, opts ...Option) *Strategy {
	s := &Strategy{
		backend:   b,
		predictor: NewSequentialPredictor(),
		fetch:     fetch,
		threshold: DefaultThreshold,
		collector: stats.NewNoop(),
		logger:    zap.NewNop(),
		queue:     make(chan string, queueSize),
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.prefetchWorker(ctx)

	return s
}

// Get records the access, retrieves the value, and on a hit enqueues
// predicted next keys for prefetch.
func (s *Strategy) Get(ctx context.Context, key string) ([]byte, error) {
	s.record(key)

	value, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	s.enqueuePredictions(key)
	return value, nil
}

// Set stores a value.
func (s *Strategy) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.backend.Set(ctx, key, value, ttl)
}

// HistoryLen returns the current length of the access history.
func (s *Strategy) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// Name returns "predictive".
func (s *Strategy) Name() string {
	return "predictive"
}

// Close stops the prefetch worker and waits for it to exit.
func (s *Strategy) Close() error {
	s.cancel()
	s.wg.Wait()
	return nil
}

func (s *Strategy) record(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, Access{Key: key, At: time.Now()})
	if len(s.history) > maxHistory {
		trimmed := make([]Access, maxHistory/2)
		copy(trimmed, s.history[len(s.history)-maxHistory/2:])
		s.history = trimmed
	}
}

func (s *Strategy) enqueuePredictions(current string) {
	s.mu.Lock()
	history := make([]Access, len(s.history))
	copy(history, s.history)
	s.mu.Unlock()

	for _, p := range s.predictor.Predict(current, history) {
		if p.Confidence <= s.threshold {
			continue
		}
		select {
		case s.queue <- p.Key:
		default:
			// Queue full; dropping a prediction is always safe.
		}
	}
}

func (s *Strategy) prefetchWorker(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case key := <-s.queue:
			s.prefetch(ctx, key)
		}
	}
}

func (s *Strategy) prefetch(ctx context.Context, key string) {
	exists, err := s.backend.Exists(ctx, key)
	if err != nil {
		s.logger.Warn("prefetch existence check failed", zap.String("key", key), zap.Error(err))
		return
	}
	if exists {
		return
	}

	value, err := s.fetch(ctx, key)
	if err != nil {
		s.logger.Warn("prefetch fetch failed", zap.String("key", key), zap.Error(err))
		return
	}
	if value == nil {
		return
	}

	if err := s.backend.Set(ctx, key, value, prefetchTTL); err != nil {
		s.logger.Warn("prefetch store failed", zap.String("key", key), zap.Error(err))
		return
	}

	s.collector.IncCounter(stats.MetricPrefetches, 1)
	s.logger.Debug("prefetched key", zap.String("key", key))
}
