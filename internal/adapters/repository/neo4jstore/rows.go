package neo4jstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/okian/expertgraph/internal/domain/graph"
	"github.com/okian/expertgraph/internal/domain/model"
)

// str returns the string in column key, or "" when it is null or missing.
func str(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// integer converts the driver's numeric types to int64. Missing, null and
// unparsable values are 0.
func integer(rec *neo4j.Record, key string) int64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// stringList returns the non-empty strings of a list column. A plain string
// column is split on commas.
func stringList(rec *neo4j.Record, key string) []string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return []string{}
	}
	out := []string{}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range t {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.Split(t, ",") {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}

func contributionFact(rec *neo4j.Record, domain string) model.ContributionFact {
	return model.ContributionFact{
		Person: str(rec, "person"),
		Domain: domain,
		Count:  int(integer(rec, "titleCount")),
	}
}

func collaborationFact(rec *neo4j.Record) model.CollaborationFact {
	return model.CollaborationFact{
		ID:      str(rec, "id"),
		PersonA: str(rec, "person"),
		PersonB: str(rec, "collaborator"),
		Count:   int(integer(rec, "count")),
		Titles:  stringList(rec, "titles"),
	}
}

func expertRecord(rec *neo4j.Record) model.ExpertRecord {
	r := model.ExpertRecord{Name: str(rec, "name")}
	if v, ok := rec.Get("expertId"); ok && v != nil {
		id := integer(rec, "expertId")
		r.ExpertID = &id
	}
	return r
}

// personEntity reads the person columns shared by the expertise queries.
func personEntity(rec *neo4j.Record) graph.Entity {
	e := graph.Entity{
		ID:         str(rec, "personId"),
		Name:       str(rec, "person"),
		Type:       graph.TypePerson,
		Properties: map[string]any{},
	}
	if d := str(rec, "department"); d != "" {
		e.Properties["department"] = d
	}
	if id := integer(rec, "expertId"); id > 0 {
		e.Properties["expertId"] = id
	}
	return e
}

func expertiseTriple(rec *neo4j.Record) graph.Triple {
	return graph.Triple{
		Source: personEntity(rec),
		Target: graph.Entity{ID: str(rec, "domainId"), Name: str(rec, "domain"), Type: graph.TypeDomain},
		Kind:   str(rec, "kind"),
	}
}

func collaborationTriple(rec *neo4j.Record) graph.Triple {
	return graph.Triple{
		Source:         graph.Entity{ID: str(rec, "personId"), Name: str(rec, "person"), Type: graph.TypePerson},
		Target:         graph.Entity{ID: str(rec, "collaboratorId"), Name: str(rec, "collaborator"), Type: graph.TypePerson},
		Kind:           graph.KindCollaborated,
		Count:          int(integer(rec, "count")),
		Titles:         stringList(rec, "titles"),
		RelationshipID: str(rec, "id"),
	}
}

func yearCount(rec *neo4j.Record) model.YearCount {
	return model.YearCount{
		Domain: str(rec, "domain"),
		Year:   int(integer(rec, "year")),
		Count:  int(integer(rec, "count")),
	}
}

func article(rec *neo4j.Record) model.Article {
	domains := stringList(rec, "domains")
	for i, d := range domains {
		domains[i] = model.NormalizeDomain(d)
	}
	return model.Article{
		ID:       str(rec, "id"),
		Title:    str(rec, "title"),
		Authors:  stringList(rec, "authors"),
		Domains:  domains,
		Keywords: stringList(rec, "keywords"),
		Abstract: str(rec, "abstract"),
		Year:     int(integer(rec, "year")),
	}
}
