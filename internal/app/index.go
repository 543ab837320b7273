package service

import (
	"context"
	"errors"
	"time"

	indexqueue "github.com/okian/expertgraph/internal/adapters/mq/queue"
	"github.com/okian/expertgraph/pkg/logger"
	"github.com/okian/expertgraph/pkg/metrics"
)

// RefreshReport summarizes one index refresh.
type RefreshReport struct {
	Fetched    int `json:"fetched"`
	Enqueued   int `json:"enqueued"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected"`
}

// RefreshIndex queues every article the search index has not seen yet.
// Indexing itself happens asynchronously in the worker pool.
func (s *Service) RefreshIndex(ctx context.Context) (RefreshReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return RefreshReport{}, ErrNotStarted
	}
	return s.refreshIndex(ctx)
}

// refreshIndex expects the pipeline to be running; callers hold s.mu or run
// inside the refresh loop, which Stop waits for.
func (s *Service) refreshIndex(ctx context.Context) (RefreshReport, error) {
	var report RefreshReport

	articles, err := call(ctx, s, "articles", s.store.Articles)
	if err != nil {
		metrics.RecordIndexRefresh(metrics.OutcomeError)
		return report, err
	}
	report.Fetched = len(articles)

	for i, a := range articles {
		if a.ID == "" || s.deduper.SeenAndRecord(ctx, a.ID) {
			report.Duplicates++
			continue
		}
		err := s.queue.Enqueue(ctx, indexqueue.Job{Article: a, EnqueuedAt: time.Now()})
		if err != nil {
			s.deduper.Unrecord(ctx, a.ID)
			report.Rejected++
			if errors.Is(err, indexqueue.ErrFull) || errors.Is(err, indexqueue.ErrClosed) {
				continue
			}
			// The context ended; the remaining articles wait for the next refresh.
			report.Rejected += len(articles) - i - 1
			break
		}
		report.Enqueued++
	}

	metrics.RecordIndexSkipped("duplicate", report.Duplicates)
	metrics.RecordIndexSkipped("rejected", report.Rejected)
	metrics.RecordIndexRefresh(metrics.OutcomeOK)
	s.logger.Info(ctx, "search index refreshed",
		logger.Int("fetched", report.Fetched),
		logger.Int("enqueued", report.Enqueued),
		logger.Int("duplicates", report.Duplicates),
		logger.Int("rejected", report.Rejected),
	)
	return report, nil
}

func (s *Service) refreshLoop(ctx context.Context, stop <-chan struct{}) {
	defer s.loopWG.Done()

	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := s.refreshIndex(ctx); err != nil {
				s.logger.Warn(ctx, "periodic index refresh failed", logger.Error(err))
			}
		}
	}
}

// indexFailed forgets the article so the next refresh retries it.
func (s *Service) indexFailed(ctx context.Context, j indexqueue.Job, err error) {
	s.deduper.Unrecord(ctx, j.Article.ID)
	s.logger.Warn(ctx, "article not indexed", logger.String("article", j.Article.ID), logger.Error(err))
}
