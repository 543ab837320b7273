package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/expertgraph/internal/adapters/http/api"
	"github.com/okian/expertgraph/internal/adapters/http/site"
	"github.com/okian/expertgraph/internal/adapters/http/swagger"
	"github.com/okian/expertgraph/internal/adapters/repository"
	"github.com/okian/expertgraph/internal/adapters/repository/neo4jstore"
	app "github.com/okian/expertgraph/internal/app"
	"github.com/okian/expertgraph/internal/config"
	"github.com/okian/expertgraph/internal/domain/scoring"
	"github.com/okian/expertgraph/pkg/logger"
)

// openStore builds the configured repository. The caller closes it.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	log := logger.Get().Named("repository")

	switch cfg.Store.Backend {
	case config.BackendNeo4j:
		store, err := neo4jstore.Open(ctx, cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password,
			neo4jstore.WithDatabase(cfg.Neo4j.Database),
			neo4jstore.WithQueryTimeout(cfg.Neo4j.QueryTimeout()),
			neo4jstore.WithLogger(log),
		)
		if err != nil {
			return nil, fmt.Errorf("open neo4j store: %w", err)
		}
		return store, nil
	default:
		var (
			fx  *repository.Fixture
			err error
		)
		if cfg.Store.FixturePath != "" {
			fx, err = repository.LoadFixture(cfg.Store.FixturePath)
		} else {
			fx, err = repository.SampleFixture()
		}
		if err != nil {
			return nil, fmt.Errorf("load fixture: %w", err)
		}
		return repository.NewMemoryStore(fx, repository.WithLogger(log)), nil
	}
}

// newService applies cfg to a service over store.
func newService(cfg *config.Config, store repository.Store) *app.Service {
	return app.New(store,
		app.WithLogger(logger.Get().Named("service")),
		app.WithScorer(scoring.New(
			scoring.WithWeights(cfg.Scoring.ContributionWeight, cfg.Scoring.CollaborationWeight),
			scoring.WithLimit(cfg.Scoring.Limit),
		)),
		app.WithCache(cfg.Cache.TTL(), cfg.Cache.MaxCost, cfg.Cache.NumCounters),
		app.WithBreaker(cfg.Breaker.FailureThreshold, cfg.Breaker.Timeout()),
		app.WithWorkerCount(cfg.Index.WorkerCount),
		app.WithQueueSize(cfg.Index.QueueSize),
		app.WithDedupeSize(cfg.Index.DedupeSize),
		app.WithSearchCacheSize(cfg.Index.CacheSize),
		app.WithRefreshInterval(cfg.Index.RefreshInterval()),
	)
}

// newHandler mounts the API, the API docs and the landing page.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service) http.Handler {
	server := api.NewServer(svc, svc,
		api.WithLogger(logger.Get().Named("http")),
		api.WithCORSOrigins(cfg.HTTP.CORSOrigins),
		api.WithRateLimit(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow()),
	)
	r := server.Router(ctx)
	swagger.Register(ctx, r)
	site.Register(ctx, r)
	return r
}
