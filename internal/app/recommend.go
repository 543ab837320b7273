package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/expertgraph/internal/domain/model"
	"github.com/okian/expertgraph/internal/domain/scoring"
	"github.com/okian/expertgraph/internal/domain/types"
	"github.com/okian/expertgraph/pkg/logger"
	"github.com/okian/expertgraph/pkg/metrics"
)

// Recommend ranks collaborators for person within domain. The last row is
// always the person with zero counts.
func (s *Service) Recommend(ctx context.Context, person, domain string) ([]types.Recommendation, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRecommendationLatency(float64(time.Since(start).Milliseconds()))
	}()

	p, d, err := scoring.Validate(person, domain)
	if err != nil {
		metrics.RecordRecommendation(metrics.OutcomeInvalid)
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	key := p + "\x00" + d
	if rows, ok := s.cached(key); ok {
		metrics.RecordRecommendation(metrics.OutcomeCached)
		return rows, nil
	}

	contributions, err := call(ctx, s, "domain_contributions", func(ctx context.Context) ([]model.ContributionFact, error) {
		return s.store.DomainContributions(ctx, d)
	})
	if err != nil {
		metrics.RecordRecommendation(metrics.OutcomeError)
		return nil, fmt.Errorf("recommend: %w", err)
	}
	collaborations, err := call(ctx, s, "person_collaborations", func(ctx context.Context) ([]model.CollaborationFact, error) {
		return s.store.PersonCollaborations(ctx, p)
	})
	if err != nil {
		metrics.RecordRecommendation(metrics.OutcomeError)
		return nil, fmt.Errorf("recommend: %w", err)
	}

	ranked, err := s.scorer.Rank(ctx, scoring.Input{
		Person:         p,
		Domain:         d,
		Contributions:  contributions,
		Collaborations: collaborations,
	})
	if err != nil {
		metrics.RecordRecommendation(metrics.OutcomeError)
		return nil, fmt.Errorf("recommend: %w", err)
	}

	rows := make([]types.Recommendation, len(ranked))
	for i, r := range ranked {
		rows[i] = types.Recommendation{
			Name:           r.Name,
			Collaborations: r.Collaborations,
			TitleCount:     r.TitleCount,
			Score:          r.Score,
		}
	}
	metrics.RecordRecommendationCandidates(len(rows) - 1)
	metrics.RecordRecommendation(metrics.OutcomeOK)
	s.remember(key, rows)

	s.logger.Debug(ctx, "recommendation computed",
		logger.String("person", p),
		logger.String("domain", d),
		logger.Int("contributors", len(contributions)),
		logger.Int("collaborations", len(collaborations)),
	)
	return copyRows(rows), nil
}

func (s *Service) cached(key string) ([]types.Recommendation, bool) {
	s.mu.RLock()
	cache := s.cache
	s.mu.RUnlock()
	if cache == nil {
		return nil, false
	}

	v, ok := cache.Get(key)
	rows, typed := v.([]types.Recommendation)
	if !ok || !typed {
		metrics.RecordCacheMiss(cacheName)
		return nil, false
	}
	metrics.RecordCacheHit(cacheName)
	return copyRows(rows), true
}

func (s *Service) remember(key string, rows []types.Recommendation) {
	s.mu.RLock()
	cache := s.cache
	s.mu.RUnlock()
	if cache == nil {
		return
	}
	cache.SetWithTTL(key, rows, int64(len(rows)), s.cacheTTL)
}

func copyRows(rows []types.Recommendation) []types.Recommendation {
	return append([]types.Recommendation(nil), rows...)
}
