// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/okian/expertgraph/internal/domain/graph"
	"github.com/okian/expertgraph/internal/domain/model"
	"github.com/okian/expertgraph/internal/domain/types"
	"github.com/okian/expertgraph/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Recommend(ctx context.Context, person, domain string) ([]types.Recommendation, error)

	DomainGraph(ctx context.Context, domain string) (graph.Graph, error)
	DepartmentGraph(ctx context.Context, department string) (graph.Graph, error)
	CollaborationGraph(ctx context.Context, person string) (graph.Graph, error)
	DepartmentExperts(ctx context.Context, department, domain string) (types.DepartmentExperts, error)

	DomainTitles(ctx context.Context, domainID string) ([]string, error)
	CollaborationTitles(ctx context.Context, collaborationID string) ([]string, error)
	DepartmentPeople(ctx context.Context, department string) ([]string, error)
	Domains(ctx context.Context) ([]string, error)
	DomainTrends(ctx context.Context, domains []string) ([]model.YearCount, error)
	Search(ctx context.Context, query string, page, limit int) (types.SearchPage, error)
	Similar(ctx context.Context, id string, exclude []string, limit int) ([]types.ArticleHit, error)

	// Ready reports whether the backing store answers.
	Ready(ctx context.Context) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps          Dependencies
	statsProvider StatsProvider
	logger        logger.Logger

	corsOrigins []string
	rateLimit   rateLimit
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:          deps,
		statsProvider: statsProvider,
		logger:        logger.Get().Named("http"),
		corsOrigins:   []string{"*"},
		rateLimit:     defaultRateLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns a chi router with the middleware stack and every API route
// installed. Callers may mount further routes on it.
func (s *Server) Router(ctx context.Context) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestID)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))
	s.Register(ctx, r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic("router is nil")
	}

	r.Get("/healthz", s.HandleHealth)
	r.Handle("/metrics", MetricsHandler())
	r.Get("/stats", s.HandleStats)

	r.Route("/api", func(r chi.Router) {
		if s.rateLimit.requests > 0 {
			r.Use(httprate.LimitByIP(s.rateLimit.requests, s.rateLimit.window))
		}

		r.Get("/recommendations", s.HandleRecommendations)

		r.Get("/graph", s.HandleDomainGraph)
		r.Get("/graph/{department}", s.HandleDepartmentGraph)
		r.Get("/collaborations/{name}", s.HandleCollaborationGraph)
		r.Post("/query", s.HandleDepartmentExperts)

		r.Get("/titles/{domainId}", s.HandleDomainTitles)
		r.Get("/collaboration/{id}/titles", s.HandleCollaborationTitles)
		r.Get("/persons/{department}", s.HandleDepartmentPeople)
		r.Get("/domains", s.HandleDomains)
		r.Get("/domainData", s.HandleDomainTrends)

		r.Post("/keyword-search", s.HandleKeywordSearch)
		r.Get("/similar", s.HandleSimilar)
	})
}
