package repository

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/okian/expertgraph/internal/domain/graph"
	"github.com/okian/expertgraph/internal/domain/model"
	"github.com/okian/expertgraph/pkg/logger"
)

// Identity prefixes used by the memory store.
const (
	personIDPrefix        = "person:"
	domainIDPrefix        = "domain:"
	collaborationIDPrefix = "collab:"
)

// MemoryStore serves a fixture from memory. All derived facts are computed
// once at construction, so reads need no locking.
type MemoryStore struct {
	log    logger.Logger
	closed atomic.Bool

	people      []model.Person
	peopleIndex map[string]int
	domainNames map[string]string // normalized -> display
	indirect    []FixtureExpertise

	contributions  map[string]map[string]int // domain -> person -> articles
	collaborations map[string]*model.CollaborationFact
	byPerson       map[string][]string // person -> collaboration ids
	domainTitles   map[string][]string
	trends         map[string]map[int]int
	articles       []model.Article
}

// NewMemoryStore derives every fact of fx.
func NewMemoryStore(fx *Fixture, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		peopleIndex:    make(map[string]int),
		domainNames:    make(map[string]string),
		contributions:  make(map[string]map[string]int),
		collaborations: make(map[string]*model.CollaborationFact),
		byPerson:       make(map[string][]string),
		domainTitles:   make(map[string][]string),
		trends:         make(map[string]map[int]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	if fx == nil {
		fx = &Fixture{}
	}
	s.load(fx)
	if s.log != nil {
		s.log.Info(context.Background(), "memory store loaded",
			logger.Int("people", len(s.people)),
			logger.Int("domains", len(s.domainNames)),
			logger.Int("articles", len(s.articles)),
			logger.Int("collaborations", len(s.collaborations)),
		)
	}
	return s
}

func (s *MemoryStore) addDomain(name string) string {
	key := model.NormalizeDomain(name)
	if key == "" {
		return ""
	}
	if _, ok := s.domainNames[key]; !ok {
		s.domainNames[key] = strings.TrimSpace(name)
	}
	return key
}

func (s *MemoryStore) load(fx *Fixture) {
	for _, p := range fx.People {
		name := strings.TrimSpace(p.Name)
		person := model.Person{
			ID:         personIDPrefix + name,
			Name:       name,
			Department: strings.TrimSpace(p.Department),
			ExpertID:   p.ExpertID,
		}
		for _, d := range p.Domains {
			if key := s.addDomain(d); key != "" {
				person.Domains = append(person.Domains, key)
			}
		}
		s.peopleIndex[name] = len(s.people)
		s.people = append(s.people, person)
	}
	for _, d := range fx.Domains {
		s.addDomain(d)
	}
	for _, e := range fx.Indirect {
		if key := s.addDomain(e.Domain); key != "" {
			s.indirect = append(s.indirect, FixtureExpertise{Person: strings.TrimSpace(e.Person), Domain: key})
		}
	}

	for _, a := range fx.Articles {
		article := model.Article{
			ID:       a.ID,
			Title:    strings.TrimSpace(a.Title),
			Authors:  uniqueTrimmed(a.Authors),
			Keywords: a.Keywords,
			Abstract: a.Abstract,
			Year:     a.Year,
		}
		for _, d := range a.Domains {
			if key := s.addDomain(d); key != "" && !contains(article.Domains, key) {
				article.Domains = append(article.Domains, key)
			}
		}
		s.articles = append(s.articles, article)

		for _, key := range article.Domains {
			if s.contributions[key] == nil {
				s.contributions[key] = make(map[string]int)
			}
			for _, author := range article.Authors {
				s.contributions[key][author]++
			}
			if article.Title != "" {
				s.domainTitles[key] = append(s.domainTitles[key], article.Title)
			}
			if article.Year > 0 {
				if s.trends[key] == nil {
					s.trends[key] = make(map[int]int)
				}
				s.trends[key][article.Year]++
			}
		}

		for i := 0; i < len(article.Authors); i++ {
			for j := i + 1; j < len(article.Authors); j++ {
				s.addCollaboration(article.Authors[i], article.Authors[j], article.Title)
			}
		}
	}
}

func (s *MemoryStore) addCollaboration(a, b, title string) {
	if a > b {
		a, b = b, a
	}
	id := collaborationIDPrefix + a + "|" + b
	c, ok := s.collaborations[id]
	if !ok {
		c = &model.CollaborationFact{ID: id, PersonA: a, PersonB: b}
		s.collaborations[id] = c
		s.byPerson[a] = append(s.byPerson[a], id)
		s.byPerson[b] = append(s.byPerson[b], id)
	}
	c.Count++
	if title != "" {
		c.Titles = append(c.Titles, title)
	}
}

func (s *MemoryStore) check(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return ctx.Err()
}

func (s *MemoryStore) personEntity(name string) graph.Entity {
	e := graph.Entity{ID: personIDPrefix + name, Name: name, Type: graph.TypePerson}
	if i, ok := s.peopleIndex[name]; ok {
		p := s.people[i]
		e.Properties = map[string]any{"department": p.Department}
		if p.ExpertID > 0 {
			e.Properties["expertId"] = p.ExpertID
		}
	}
	return e
}

func (s *MemoryStore) domainEntity(key string) graph.Entity {
	return graph.Entity{ID: domainIDPrefix + key, Name: s.domainNames[key], Type: graph.TypeDomain}
}

// DomainContributions implements Store.
func (s *MemoryStore) DomainContributions(ctx context.Context, domain string) ([]model.ContributionFact, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	key := model.NormalizeDomain(domain)
	byPerson := s.contributions[key]
	out := make([]model.ContributionFact, 0, len(byPerson))
	for person, n := range byPerson {
		out = append(out, model.ContributionFact{Person: person, Domain: key, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Person < out[j].Person })
	return out, nil
}

// PersonCollaborations implements Store.
func (s *MemoryStore) PersonCollaborations(ctx context.Context, person string) ([]model.CollaborationFact, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	ids := s.byPerson[strings.TrimSpace(person)]
	out := make([]model.CollaborationFact, 0, len(ids))
	for _, id := range ids {
		c := *s.collaborations[id]
		c.Titles = append([]string(nil), c.Titles...)
		out = append(out, c)
	}
	return out, nil
}

// DomainExperts implements Store.
func (s *MemoryStore) DomainExperts(ctx context.Context, domain string) ([]graph.Triple, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	key := model.NormalizeDomain(domain)
	if _, ok := s.domainNames[key]; !ok {
		return []graph.Triple{}, nil
	}
	target := s.domainEntity(key)
	var out []graph.Triple
	for _, p := range s.people {
		if contains(p.Domains, key) {
			out = append(out, graph.Triple{Source: s.personEntity(p.Name), Target: target, Kind: graph.KindExpertDirect})
		}
	}
	for _, e := range s.indirect {
		if e.Domain == key {
			out = append(out, graph.Triple{Source: s.personEntity(e.Person), Target: target, Kind: graph.KindExpertIndirect})
		}
	}
	return out, nil
}

// DepartmentExperts implements Store.
func (s *MemoryStore) DepartmentExperts(ctx context.Context, department, domain string) ([]model.ExpertRecord, []model.ExpertRecord, error) {
	if err := s.check(ctx); err != nil {
		return nil, nil, err
	}
	key := model.NormalizeDomain(domain)
	direct := []model.ExpertRecord{}
	indirect := []model.ExpertRecord{}
	for _, p := range s.people {
		if p.Department == department && contains(p.Domains, key) {
			direct = append(direct, expertRecord(p))
		}
	}
	for _, e := range s.indirect {
		i, ok := s.peopleIndex[e.Person]
		if !ok || e.Domain != key || s.people[i].Department != department {
			continue
		}
		indirect = append(indirect, expertRecord(s.people[i]))
	}
	return direct, indirect, nil
}

// DepartmentDomains implements Store.
func (s *MemoryStore) DepartmentDomains(ctx context.Context, department string) ([]graph.Triple, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	var out []graph.Triple
	for _, p := range s.people {
		if p.Department != department {
			continue
		}
		for _, key := range p.Domains {
			out = append(out, graph.Triple{Source: s.personEntity(p.Name), Target: s.domainEntity(key), Kind: graph.KindExpertDirect})
		}
		for _, e := range s.indirect {
			if e.Person == p.Name {
				out = append(out, graph.Triple{Source: s.personEntity(p.Name), Target: s.domainEntity(e.Domain), Kind: graph.KindExpertIndirect})
			}
		}
	}
	return CountTargets(out), nil
}

// DomainTitles implements Store.
func (s *MemoryStore) DomainTitles(ctx context.Context, domainID string) ([]string, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	key := strings.TrimPrefix(domainID, domainIDPrefix)
	if _, ok := s.domainNames[key]; !ok || !strings.HasPrefix(domainID, domainIDPrefix) {
		return nil, ErrNotFound
	}
	return append([]string{}, s.domainTitles[key]...), nil
}

// CollaborationNetwork implements Store.
func (s *MemoryStore) CollaborationNetwork(ctx context.Context, person string) ([]graph.Triple, error) {
	collabs, err := s.PersonCollaborations(ctx, person)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(person)
	sort.SliceStable(collabs, func(i, j int) bool {
		if collabs[i].Count != collabs[j].Count {
			return collabs[i].Count > collabs[j].Count
		}
		return collabs[i].Other(name) < collabs[j].Other(name)
	})
	out := make([]graph.Triple, 0, len(collabs))
	for _, c := range collabs {
		out = append(out, graph.Triple{
			Source:         s.personEntity(name),
			Target:         s.personEntity(c.Other(name)),
			Kind:           graph.KindCollaborated,
			Count:          c.Count,
			Titles:         c.Titles,
			RelationshipID: c.ID,
		})
	}
	return out, nil
}

// CollaborationTitles implements Store.
func (s *MemoryStore) CollaborationTitles(ctx context.Context, collaborationID string) ([]string, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	c, ok := s.collaborations[collaborationID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]string{}, c.Titles...), nil
}

// DepartmentPeople implements Store.
func (s *MemoryStore) DepartmentPeople(ctx context.Context, department string) ([]string, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out := []string{}
	for _, p := range s.people {
		if p.Department == department {
			out = append(out, p.Name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Domains implements Store.
func (s *MemoryStore) Domains(ctx context.Context) ([]string, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(s.domainNames))
	for _, name := range s.domainNames {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// DomainTrends implements Store. Rows are ordered by the requested domains,
// then by year.
func (s *MemoryStore) DomainTrends(ctx context.Context, domains []string) ([]model.YearCount, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out := []model.YearCount{}
	seen := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		key := model.NormalizeDomain(d)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		years := make([]int, 0, len(s.trends[key]))
		for y := range s.trends[key] {
			years = append(years, y)
		}
		sort.Ints(years)
		for _, y := range years {
			out = append(out, model.YearCount{Domain: s.domainNames[key], Year: y, Count: s.trends[key][y]})
		}
	}
	return out, nil
}

// Articles implements Store.
func (s *MemoryStore) Articles(ctx context.Context) ([]model.Article, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return append([]model.Article(nil), s.articles...), nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return s.check(ctx)
}

// Close implements Store. Later calls fail with ErrClosed.
func (s *MemoryStore) Close(_ context.Context) error {
	s.closed.Store(true)
	return nil
}

func expertRecord(p model.Person) model.ExpertRecord {
	r := model.ExpertRecord{Name: p.Name}
	if p.ExpertID > 0 {
		id := p.ExpertID
		r.ExpertID = &id
	}
	return r
}

func uniqueTrimmed(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v != "" && !contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
