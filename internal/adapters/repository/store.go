// Package repository defines the read-only fact store the service queries and
// an in-memory implementation backed by a YAML fixture.
package repository

import (
	"context"

	"github.com/okian/expertgraph/internal/domain/graph"
	"github.com/okian/expertgraph/internal/domain/model"
)

// Store provides read access to people, domains, articles and their relationships.
// Domain arguments are compared case-insensitively after trimming.
type Store interface {
	// DomainContributions returns one fact per person with at least one
	// article in domain.
	DomainContributions(ctx context.Context, domain string) ([]model.ContributionFact, error)
	// PersonCollaborations returns every collaboration of person, in any domain.
	PersonCollaborations(ctx context.Context, person string) ([]model.CollaborationFact, error)

	// DomainExperts returns person -> domain expertise triples for domain.
	DomainExperts(ctx context.Context, domain string) ([]graph.Triple, error)
	// DepartmentExperts lists the direct and indirect experts of a department in domain.
	DepartmentExperts(ctx context.Context, department, domain string) (direct, indirect []model.ExpertRecord, err error)
	// DepartmentDomains returns person -> domain triples for every person of
	// department. Domain entities carry the number of department experts as Count.
	DepartmentDomains(ctx context.Context, department string) ([]graph.Triple, error)
	// DomainTitles returns the article titles of the domain with the given id.
	// Returns ErrNotFound if the id is unknown.
	DomainTitles(ctx context.Context, domainID string) ([]string, error)

	// CollaborationNetwork returns person -> collaborator triples for person.
	CollaborationNetwork(ctx context.Context, person string) ([]graph.Triple, error)
	// CollaborationTitles returns the joint titles of a collaboration.
	// Returns ErrNotFound if the id is unknown.
	CollaborationTitles(ctx context.Context, collaborationID string) ([]string, error)

	// DepartmentPeople returns the sorted names of a department's people.
	DepartmentPeople(ctx context.Context, department string) ([]string, error)
	// Domains returns every domain name, sorted.
	Domains(ctx context.Context) ([]string, error)
	// DomainTrends returns yearly article counts for the given domains.
	DomainTrends(ctx context.Context, domains []string) ([]model.YearCount, error)
	// Articles returns every article, used to feed the search index.
	Articles(ctx context.Context) ([]model.Article, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// CountTargets sets each target's Count to the number of distinct sources
// pointing at it.
func CountTargets(triples []graph.Triple) []graph.Triple {
	sources := make(map[string]map[string]struct{})
	key := func(e graph.Entity) string {
		if e.ID != "" {
			return e.ID
		}
		return e.Type + ":" + e.Name
	}
	for _, t := range triples {
		k := key(t.Target)
		if sources[k] == nil {
			sources[k] = make(map[string]struct{})
		}
		sources[k][key(t.Source)] = struct{}{}
	}
	out := make([]graph.Triple, len(triples))
	for i, t := range triples {
		t.Target.Count = len(sources[key(t.Target)])
		out[i] = t
	}
	return out
}
