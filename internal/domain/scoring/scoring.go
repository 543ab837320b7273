// Package scoring ranks candidate collaborators for a person within a domain.
//
// A candidate is anyone with at least one contribution in the domain other than
// the person. Each candidate scores
//
//	wc * titleCount/maxTitleCount + wk * collaborations/maxCollaborations
//
// where maxTitleCount is taken over the candidates and maxCollaborations over
// every collaboration of the person, inside or outside the domain.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/okian/expertgraph/internal/domain/model"
)

// Input is the fact snapshot for one ranking.
type Input struct {
	Person string
	Domain string

	// Contributions in the domain. Facts for other domains are ignored.
	Contributions []model.ContributionFact
	// Collaborations of the person. Facts not involving the person are ignored.
	Collaborations []model.CollaborationFact
}

// Result is one ranked row.
type Result struct {
	Name           string
	Collaborations int
	TitleCount     int
	Score          float64
}

// Scorer is stateless after construction and safe for concurrent use.
type Scorer struct {
	contributionWeight  float64
	collaborationWeight float64
	limit               int
}

// New creates a scorer with the 70/30 weighting and a limit of five.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		contributionWeight:  defaultContributionWeight,
		collaborationWeight: defaultCollaborationWeight,
		limit:               defaultLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Limit returns the number of ranked rows before the self record.
func (s *Scorer) Limit() int { return s.limit }

// Validate normalizes and checks a (person, domain) request. It is exported so
// callers can reject bad input before fetching any facts.
func Validate(person, domain string) (string, string, error) {
	p := strings.TrimSpace(person)
	d := model.NormalizeDomain(domain)
	if p == "" {
		return "", "", fmt.Errorf("%w: person is required", ErrInvalidArgument)
	}
	if d == "" {
		return "", "", fmt.Errorf("%w: domain is required", ErrInvalidArgument)
	}
	return p, d, nil
}

// Rank scores every candidate, returns the best ones and appends a zero
// record for the person so the caller can always show who was queried.
func (s *Scorer) Rank(ctx context.Context, in Input) ([]Result, error) {
	person, domain, err := Validate(in.Person, in.Domain)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rank cancelled: %w", err)
	}

	titles := s.titleCounts(person, domain, in.Contributions)
	collabs, maxCollab := collaborationCounts(person, in.Collaborations)

	maxTitle := 0
	for _, n := range titles {
		if n > maxTitle {
			maxTitle = n
		}
	}

	ranked := make([]Result, 0, len(titles))
	for name, t := range titles {
		c := collabs[name]
		ranked = append(ranked, Result{
			Name:           name,
			Collaborations: c,
			TitleCount:     t,
			Score:          s.score(t, maxTitle, c, maxCollab),
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > s.limit {
		ranked = ranked[:s.limit]
	}

	return append(ranked, Result{Name: person}), nil
}

// titleCounts keeps positive contributions in domain by anyone but person.
// Duplicate facts for the same person keep the largest count.
func (s *Scorer) titleCounts(person, domain string, facts []model.ContributionFact) map[string]int {
	out := make(map[string]int, len(facts))
	for _, f := range facts {
		name := strings.TrimSpace(f.Person)
		if name == "" || name == person || f.Count <= 0 {
			continue
		}
		if model.NormalizeDomain(f.Domain) != domain {
			continue
		}
		if f.Count > out[name] {
			out[name] = f.Count
		}
	}
	return out
}

// collaborationCounts maps each collaborator of person to the joint count and
// returns the largest count seen across all of them.
func collaborationCounts(person string, facts []model.CollaborationFact) (map[string]int, int) {
	out := make(map[string]int, len(facts))
	maxCount := 0
	for _, f := range facts {
		other := strings.TrimSpace(f.Other(person))
		if other == "" || other == person || f.Count <= 0 {
			continue
		}
		if f.Count > out[other] {
			out[other] = f.Count
		}
		if f.Count > maxCount {
			maxCount = f.Count
		}
	}
	return out, maxCount
}

func (s *Scorer) score(titles, maxTitles, collabs, maxCollabs int) float64 {
	var v float64
	if maxTitles > 0 {
		v += s.contributionWeight * float64(titles) / float64(maxTitles)
	}
	if maxCollabs > 0 {
		v += s.collaborationWeight * float64(collabs) / float64(maxCollabs)
	}
	return math.Max(0, math.Min(1, v))
}
