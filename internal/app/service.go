// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	gobreaker "github.com/sony/gobreaker/v2"

	indexqueue "github.com/okian/expertgraph/internal/adapters/mq/queue"
	workerpool "github.com/okian/expertgraph/internal/adapters/mq/worker"
	"github.com/okian/expertgraph/internal/adapters/repository"
	"github.com/okian/expertgraph/internal/adapters/search"
	"github.com/okian/expertgraph/internal/domain/dedupe"
	"github.com/okian/expertgraph/internal/domain/scoring"
	"github.com/okian/expertgraph/pkg/logger"
	"github.com/okian/expertgraph/pkg/metrics"
)

const (
	breakerName          = "repository"
	cacheName            = "recommendations"
	defaultCacheTTL      = 5 * time.Minute
	defaultCacheMaxCost  = 10_000
	defaultCacheCounters = 100_000
	cacheBufferItems     = 64
	stopTimeout          = 10 * time.Second
)

// Service implements the API dependencies for the expertise recommender.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	scorer  *scoring.Scorer
	breaker *gobreaker.CircuitBreaker[any]
	cache   *ristretto.Cache
	index   *search.Index
	deduper dedupe.Deduper
	queue   *indexqueue.InMemoryQueue
	pool    *workerpool.Pool

	// Configuration
	cacheTTL         time.Duration
	cacheMaxCost     int64
	cacheCounters    int64
	breakerThreshold uint32
	breakerTimeout   time.Duration
	workerCount      int
	queueSize        int
	dedupeSize       int
	searchCacheSize  int
	refreshInterval  time.Duration

	// State
	started bool
	stopCh  chan struct{}
	loopWG  sync.WaitGroup

	// Logging
	logger logger.Logger
}

// New constructs a Service over store. The store is owned by the caller.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:            store,
		scorer:           scoring.New(),
		cacheTTL:         defaultCacheTTL,
		cacheMaxCost:     defaultCacheMaxCost,
		cacheCounters:    defaultCacheCounters,
		breakerThreshold: 5,
		breakerTimeout:   30 * time.Second,
		workerCount:      runtime.NumCPU(),
		queueSize:        10_000,
		dedupeSize:       50_000,
		searchCacheSize:  10_000,
		refreshInterval:  time.Hour,
		logger:           logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    breakerName,
		Timeout: s.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.breakerThreshold
		},
		IsSuccessful: func(err error) bool {
			// Misses and caller cancellations say nothing about the store's health.
			return err == nil ||
				errors.Is(err, repository.ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateBreakerState(name, int(to))
			s.logger.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})
	metrics.UpdateBreakerState(breakerName, int(gobreaker.StateClosed))
	return s
}

// Start builds the cache and the search pipeline, then indexes the store's
// articles and schedules periodic refreshes. The initial refresh runs without
// holding the service lock so queries are served while it reads the store.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if err := s.startLocked(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	// Stop waits on loopWG, so it cannot tear the pipeline down mid-refresh.
	s.loopWG.Add(1)
	s.mu.Unlock()

	if _, err := s.refreshIndex(ctx); err != nil {
		s.logger.Warn(ctx, "initial index refresh failed", logger.Error(err))
	}
	s.loopWG.Done()

	s.logger.Info(ctx, "expertise service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Duration("refreshInterval", s.refreshInterval),
	)
	return nil
}

// startLocked builds the pipeline and starts the workers and the refresh
// loop. The caller holds s.mu.
func (s *Service) startLocked(ctx context.Context) error {
	s.logger.Info(ctx, "starting expertise service...")

	if s.cacheTTL > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: s.cacheCounters,
			MaxCost:     s.cacheMaxCost,
			BufferItems: cacheBufferItems,
		})
		if err != nil {
			return fmt.Errorf("create recommendation cache: %w", err)
		}
		s.cache = cache
	}

	index, err := search.New(
		search.WithCacheSize(s.searchCacheSize),
		search.WithLogger(s.logger.Named("search")),
	)
	if err != nil {
		s.closeCache()
		return fmt.Errorf("create search index: %w", err)
	}
	s.index = index
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = indexqueue.NewInMemoryQueue(indexqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.index,
		workerpool.WithFailureHandler(s.indexFailed),
	)

	// Workers outlive the Start call; Stop ends them.
	s.pool.Start(context.WithoutCancel(ctx))
	s.stopCh = make(chan struct{})
	s.started = true

	if s.refreshInterval > 0 {
		s.loopWG.Add(1)
		go s.refreshLoop(context.WithoutCancel(ctx), s.stopCh)
	}
	return nil
}

// Stop gracefully shuts down the background components. The store is left
// open for its owner to close.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping expertise service...")

	close(s.stopCh)
	s.loopWG.Wait()

	_ = s.queue.Close()
	shutdownCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	if err := s.pool.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	if err := s.index.Close(); err != nil {
		s.logger.Warn(ctx, "closing search index failed", logger.Error(err))
	}
	s.closeCache()

	s.started = false
	s.logger.Info(ctx, "expertise service stopped")
}

func (s *Service) closeCache() {
	if s.cache != nil {
		s.cache.Close()
		s.cache = nil
	}
}

// Ready reports whether the store answers.
func (s *Service) Ready(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"dedupeSize":   s.dedupeSize,
		"breakerState": s.breaker.State().String(),
	}

	if s.started {
		queueLen := s.queue.Len()
		stats["queueLength"] = queueLen
		stats["indexedIds"] = s.deduper.Size()
		stats["search"] = s.index.Stats()
		stats["workers"] = s.pool.Stats()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
	}
	metrics.UpdateSystemMetrics()

	return stats
}

// call runs one repository operation through the circuit breaker and records
// its latency. Not-found errors are tagged ErrNotFound, breaker rejections
// ErrUnavailable; everything else is returned wrapped with the operation name.
func call[T any](ctx context.Context, s *Service, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	start := time.Now()
	v, err := s.breaker.Execute(func() (any, error) {
		return fn(ctx)
	})
	metrics.RecordRepositoryQuery(op, float64(time.Since(start).Milliseconds()), err)

	switch {
	case err == nil:
		out, _ := v.(T)
		return out, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordBreakerRejection(breakerName)
		return zero, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	case errors.Is(err, repository.ErrNotFound):
		return zero, fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	default:
		metrics.RecordErrorByComponent("repository", op)
		return zero, fmt.Errorf("%s: %w", op, err)
	}
}
