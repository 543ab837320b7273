// Package neo4jstore implements repository.Store on top of a Neo4j graph.
//
// Graph layout:
//
//	(:Person {name, Department, domain[], expertid})
//	(:Domain {name, counts[], years[]})
//	(:Title {name, year, keywords, abstract})
//	(:Person)-[:AUTHORED]->(:Title)-[:BELONGS_TO]->(:Domain)
//	(:Person)-[:EXPERT_IN_DIRECT|EXPERT_IN_INDIRECT]->(:Domain)
//	(:Person)-[:COLLABORATED_WITH {count, titles[]}]-(:Person)
package neo4jstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/okian/expertgraph/internal/adapters/repository"
	"github.com/okian/expertgraph/internal/domain/graph"
	"github.com/okian/expertgraph/internal/domain/model"
	"github.com/okian/expertgraph/pkg/logger"
)

const defaultQueryTimeout = 10 * time.Second

type queryFunc func(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)

// Store reads facts with one read session per query.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	timeout  time.Duration
	log      logger.Logger
	query    queryFunc
}

var _ repository.Store = (*Store)(nil)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithDatabase selects the database; empty uses the server default.
func WithDatabase(name string) Option {
	return func(s *Store) {
		s.database = strings.TrimSpace(name)
	}
}

// WithQueryTimeout bounds every query.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger for query diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// Open creates a driver for uri, verifies connectivity and returns the store.
// The caller owns the store and must Close it.
func Open(ctx context.Context, uri, username, password string, opts ...Option) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return New(driver, opts...), nil
}

// New wraps an existing driver.
func New(driver neo4j.DriverWithContext, opts ...Option) *Store {
	s := &Store{
		driver:  driver,
		timeout: defaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.query = s.collect
	return s
}

func (s *Store) collect(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return result.Collect(ctx)
}

func (s *Store) run(ctx context.Context, op, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	records, err := s.query(ctx, cypher, params)
	if err != nil {
		if s.log != nil {
			s.log.Warn(ctx, "neo4j query failed", logger.String("operation", op), logger.Error(err))
		}
		return nil, fmt.Errorf("neo4j %s: %w", op, err)
	}
	return records, nil
}

// DomainContributions implements repository.Store.
func (s *Store) DomainContributions(ctx context.Context, domain string) ([]model.ContributionFact, error) {
	key := model.NormalizeDomain(domain)
	records, err := s.run(ctx, "domain_contributions", queryDomainContributions, map[string]any{"domain": key})
	if err != nil {
		return nil, err
	}
	out := make([]model.ContributionFact, 0, len(records))
	for _, rec := range records {
		out = append(out, contributionFact(rec, key))
	}
	return out, nil
}

// PersonCollaborations implements repository.Store.
func (s *Store) PersonCollaborations(ctx context.Context, person string) ([]model.CollaborationFact, error) {
	records, err := s.run(ctx, "person_collaborations", queryPersonCollaborations,
		map[string]any{"person": strings.TrimSpace(person)})
	if err != nil {
		return nil, err
	}
	out := make([]model.CollaborationFact, 0, len(records))
	for _, rec := range records {
		out = append(out, collaborationFact(rec))
	}
	return out, nil
}

// DomainExperts implements repository.Store.
func (s *Store) DomainExperts(ctx context.Context, domain string) ([]graph.Triple, error) {
	records, err := s.run(ctx, "domain_experts", queryDomainExperts,
		map[string]any{"domain": model.NormalizeDomain(domain)})
	if err != nil {
		return nil, err
	}
	out := make([]graph.Triple, 0, len(records))
	for _, rec := range records {
		out = append(out, expertiseTriple(rec))
	}
	return out, nil
}

// DepartmentExperts implements repository.Store.
func (s *Store) DepartmentExperts(ctx context.Context, department, domain string) ([]model.ExpertRecord, []model.ExpertRecord, error) {
	params := map[string]any{"department": department, "domain": model.NormalizeDomain(domain)}
	direct, err := s.experts(ctx, "department_direct_experts", queryDepartmentDirectExperts, params)
	if err != nil {
		return nil, nil, err
	}
	indirect, err := s.experts(ctx, "department_indirect_experts", queryDepartmentIndirectExperts, params)
	if err != nil {
		return nil, nil, err
	}
	return direct, indirect, nil
}

func (s *Store) experts(ctx context.Context, op, cypher string, params map[string]any) ([]model.ExpertRecord, error) {
	records, err := s.run(ctx, op, cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]model.ExpertRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, expertRecord(rec))
	}
	return out, nil
}

// DepartmentDomains implements repository.Store.
func (s *Store) DepartmentDomains(ctx context.Context, department string) ([]graph.Triple, error) {
	records, err := s.run(ctx, "department_domains", queryDepartmentDomains, map[string]any{"department": department})
	if err != nil {
		return nil, err
	}
	out := make([]graph.Triple, 0, len(records))
	for _, rec := range records {
		out = append(out, expertiseTriple(rec))
	}
	return repository.CountTargets(out), nil
}

// DomainTitles implements repository.Store.
func (s *Store) DomainTitles(ctx context.Context, domainID string) ([]string, error) {
	records, err := s.run(ctx, "domain_titles", queryDomainTitles, map[string]any{"id": domainID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("domain %q: %w", domainID, repository.ErrNotFound)
	}
	return stringList(records[0], "titles"), nil
}

// CollaborationNetwork implements repository.Store.
func (s *Store) CollaborationNetwork(ctx context.Context, person string) ([]graph.Triple, error) {
	records, err := s.run(ctx, "collaboration_network", queryCollaborationNetwork,
		map[string]any{"person": strings.TrimSpace(person)})
	if err != nil {
		return nil, err
	}
	out := make([]graph.Triple, 0, len(records))
	for _, rec := range records {
		out = append(out, collaborationTriple(rec))
	}
	return out, nil
}

// CollaborationTitles implements repository.Store.
func (s *Store) CollaborationTitles(ctx context.Context, collaborationID string) ([]string, error) {
	records, err := s.run(ctx, "collaboration_titles", queryCollaborationTitles, map[string]any{"id": collaborationID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("collaboration %q: %w", collaborationID, repository.ErrNotFound)
	}
	return stringList(records[0], "titles"), nil
}

// DepartmentPeople implements repository.Store.
func (s *Store) DepartmentPeople(ctx context.Context, department string) ([]string, error) {
	return s.names(ctx, "department_people", queryDepartmentPeople, map[string]any{"department": department}, "name")
}

// Domains implements repository.Store.
func (s *Store) Domains(ctx context.Context) ([]string, error) {
	return s.names(ctx, "domains", queryDomains, nil, "domain")
}

func (s *Store) names(ctx context.Context, op, cypher string, params map[string]any, column string) ([]string, error) {
	records, err := s.run(ctx, op, cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(records))
	for _, rec := range records {
		if v := str(rec, column); v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}

// DomainTrends implements repository.Store. Rows follow the order of the
// requested domains, then year.
func (s *Store) DomainTrends(ctx context.Context, domains []string) ([]model.YearCount, error) {
	order := make(map[string]int, len(domains))
	keys := make([]string, 0, len(domains))
	for _, d := range domains {
		key := model.NormalizeDomain(d)
		if _, dup := order[key]; dup || key == "" {
			continue
		}
		order[key] = len(keys)
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return []model.YearCount{}, nil
	}

	records, err := s.run(ctx, "domain_trends", queryDomainTrends, map[string]any{"domains": keys})
	if err != nil {
		return nil, err
	}
	out := make([]model.YearCount, 0, len(records))
	for _, rec := range records {
		out = append(out, yearCount(rec))
	}
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := order[model.NormalizeDomain(out[i].Domain)], order[model.NormalizeDomain(out[j].Domain)]
		if oi != oj {
			return oi < oj
		}
		return out[i].Year < out[j].Year
	})
	return out, nil
}

// Articles implements repository.Store.
func (s *Store) Articles(ctx context.Context) ([]model.Article, error) {
	records, err := s.run(ctx, "articles", queryArticles, nil)
	if err != nil {
		return nil, err
	}
	out := make([]model.Article, 0, len(records))
	for _, rec := range records {
		out = append(out, article(rec))
	}
	return out, nil
}

// Ping implements repository.Store.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("neo4j ping: %w", err)
	}
	return nil
}

// Close implements repository.Store.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
