package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/expertgraph/internal/adapters/search"
	"github.com/okian/expertgraph/internal/domain/graph"
	"github.com/okian/expertgraph/internal/domain/model"
	"github.com/okian/expertgraph/internal/domain/types"
	"github.com/okian/expertgraph/pkg/metrics"
)

func required(name, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidArgument, name)
	}
	return v, nil
}

func buildGraph(kind string, triples []graph.Triple) graph.Graph {
	g, dropped := graph.Build(triples)
	metrics.RecordGraph(kind, len(g.Nodes), dropped)
	return g
}

// DomainGraph links every expert of domain to the domain node.
func (s *Service) DomainGraph(ctx context.Context, domain string) (graph.Graph, error) {
	d, err := required("domain", domain)
	if err != nil {
		return graph.Graph{}, err
	}
	triples, err := call(ctx, s, "domain_experts", func(ctx context.Context) ([]graph.Triple, error) {
		return s.store.DomainExperts(ctx, model.NormalizeDomain(d))
	})
	if err != nil {
		return graph.Graph{}, err
	}
	return buildGraph("domain", triples), nil
}

// DepartmentGraph links the people of department to their domains. Domain
// nodes carry the number of department experts.
func (s *Service) DepartmentGraph(ctx context.Context, department string) (graph.Graph, error) {
	dept, err := required("department", department)
	if err != nil {
		return graph.Graph{}, err
	}
	triples, err := call(ctx, s, "department_domains", func(ctx context.Context) ([]graph.Triple, error) {
		return s.store.DepartmentDomains(ctx, dept)
	})
	if err != nil {
		return graph.Graph{}, err
	}
	return buildGraph("department", triples), nil
}

// CollaborationGraph links person to each collaborator. Edges carry the joint
// article count and titles.
func (s *Service) CollaborationGraph(ctx context.Context, person string) (graph.Graph, error) {
	p, err := required("person", person)
	if err != nil {
		return graph.Graph{}, err
	}
	triples, err := call(ctx, s, "collaboration_network", func(ctx context.Context) ([]graph.Triple, error) {
		return s.store.CollaborationNetwork(ctx, p)
	})
	if err != nil {
		return graph.Graph{}, err
	}
	return buildGraph("collaboration", triples), nil
}

// DepartmentExperts lists the direct and indirect experts of department in domain.
func (s *Service) DepartmentExperts(ctx context.Context, department, domain string) (types.DepartmentExperts, error) {
	dept, err := required("department", department)
	if err != nil {
		return types.DepartmentExperts{}, err
	}
	d, err := required("domain", domain)
	if err != nil {
		return types.DepartmentExperts{}, err
	}

	type lists struct{ direct, indirect []model.ExpertRecord }
	res, err := call(ctx, s, "department_experts", func(ctx context.Context) (lists, error) {
		direct, indirect, err := s.store.DepartmentExperts(ctx, dept, model.NormalizeDomain(d))
		return lists{direct, indirect}, err
	})
	if err != nil {
		return types.DepartmentExperts{}, err
	}
	return types.NewDepartmentExperts(res.direct, res.indirect), nil
}

// DomainTitles returns the titles behind a domain node.
func (s *Service) DomainTitles(ctx context.Context, domainID string) ([]string, error) {
	id, err := required("domain id", domainID)
	if err != nil {
		return nil, err
	}
	return nonNilStrings(call(ctx, s, "domain_titles", func(ctx context.Context) ([]string, error) {
		return s.store.DomainTitles(ctx, id)
	}))
}

// CollaborationTitles returns the titles behind a collaboration edge.
func (s *Service) CollaborationTitles(ctx context.Context, collaborationID string) ([]string, error) {
	id, err := required("collaboration id", collaborationID)
	if err != nil {
		return nil, err
	}
	return nonNilStrings(call(ctx, s, "collaboration_titles", func(ctx context.Context) ([]string, error) {
		return s.store.CollaborationTitles(ctx, id)
	}))
}

// DepartmentPeople returns the names of a department's people.
func (s *Service) DepartmentPeople(ctx context.Context, department string) ([]string, error) {
	dept, err := required("department", department)
	if err != nil {
		return nil, err
	}
	return nonNilStrings(call(ctx, s, "department_people", func(ctx context.Context) ([]string, error) {
		return s.store.DepartmentPeople(ctx, dept)
	}))
}

// Domains returns every domain name.
func (s *Service) Domains(ctx context.Context) ([]string, error) {
	return nonNilStrings(call(ctx, s, "domains", s.store.Domains))
}

// DomainTrends returns yearly article counts for each requested domain.
func (s *Service) DomainTrends(ctx context.Context, domains []string) ([]model.YearCount, error) {
	keys := make([]string, 0, len(domains))
	for _, d := range domains {
		if k := model.NormalizeDomain(d); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: at least one domain is required", ErrInvalidArgument)
	}
	rows, err := call(ctx, s, "domain_trends", func(ctx context.Context) ([]model.YearCount, error) {
		return s.store.DomainTrends(ctx, keys)
	})
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.YearCount{}
	}
	return rows, nil
}

// Search returns one page of the articles matching query, best first.
func (s *Service) Search(ctx context.Context, query string, page, limit int) (types.SearchPage, error) {
	index, err := s.searchIndex()
	if err != nil {
		return types.SearchPage{}, err
	}
	res, err := index.Search(ctx, query, page, limit)
	if err != nil {
		return types.SearchPage{}, searchError("search", err)
	}
	return res, nil
}

// Similar returns the articles closest to the article id, leaving out id
// and the exclude ids.
func (s *Service) Similar(ctx context.Context, id string, exclude []string, limit int) ([]types.ArticleHit, error) {
	index, err := s.searchIndex()
	if err != nil {
		return nil, err
	}
	hits, err := index.Similar(ctx, id, exclude, limit)
	if err != nil {
		return nil, searchError("similar", err)
	}
	return hits, nil
}

func (s *Service) searchIndex() (*search.Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.index, nil
}

// searchError maps index errors to service error kinds.
func searchError(op string, err error) error {
	switch {
	case errors.Is(err, search.ErrInvalidArgument):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	case errors.Is(err, search.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, search.ErrClosed):
		return fmt.Errorf("%w: %w", ErrNotStarted, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// nonNilStrings turns a nil list into an empty one so responses encode as [].
func nonNilStrings(list []string, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	if list == nil {
		return []string{}, nil
	}
	return list, nil
}
