package service

import (
	"time"

	"github.com/okian/expertgraph/internal/domain/scoring"
	"github.com/okian/expertgraph/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithScorer replaces the default collaborator scorer.
func WithScorer(sc *scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithCache sizes the recommendation cache. A zero ttl disables caching.
func WithCache(ttl time.Duration, maxCost, numCounters int64) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.cacheTTL = ttl
		}
		if maxCost > 0 {
			s.cacheMaxCost = maxCost
		}
		if numCounters > 0 {
			s.cacheCounters = numCounters
		}
	}
}

// WithBreaker sets how many consecutive repository failures open the breaker
// and how long it stays open.
func WithBreaker(failureThreshold uint32, timeout time.Duration) Option {
	return func(s *Service) {
		if failureThreshold > 0 {
			s.breakerThreshold = failureThreshold
		}
		if timeout > 0 {
			s.breakerTimeout = timeout
		}
	}
}

// WithWorkerCount sets the number of index workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending index jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many indexed article ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		s.dedupeSize = size
	}
}

// WithSearchCacheSize sets how many articles the search index keeps for hit resolution.
func WithSearchCacheSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.searchCacheSize = size
		}
	}
}

// WithRefreshInterval sets how often the search index is refreshed from the
// store. Zero refreshes only at start.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshInterval = d
		}
	}
}
