// Package model contains the read models shared between the repository,
// the scorer and the service.
package model

import "strings"

// Person is a faculty member.
type Person struct {
	ID         string   // opaque repository identity
	Name       string   // display name; also the identifier used for ranking
	Department string   // department the person belongs to
	Domains    []string // domain tags as recorded on the person
	ExpertID   int64    // external profile identifier, 0 when unknown
}

// Domain is a tagged research area.
type Domain struct {
	ID   string
	Name string
}

// ContributionFact counts the articles a person authored in a domain.
type ContributionFact struct {
	Person string
	Domain string
	Count  int
}

// CollaborationFact counts the articles two people wrote together.
// The pair is unordered.
type CollaborationFact struct {
	ID      string
	PersonA string
	PersonB string
	Count   int
	Titles  []string
}

// Involves reports whether person is one side of the collaboration.
func (c CollaborationFact) Involves(person string) bool {
	return c.PersonA == person || c.PersonB == person
}

// Other returns the side of the pair that is not person, or "" when person
// is not part of the collaboration.
func (c CollaborationFact) Other(person string) string {
	switch person {
	case c.PersonA:
		return c.PersonB
	case c.PersonB:
		return c.PersonA
	default:
		return ""
	}
}

// Article is an authored publication.
type Article struct {
	ID       string
	Title    string
	Authors  []string
	Domains  []string
	Keywords []string
	Abstract string
	Year     int
}

// YearCount is the number of articles published in a domain in one year.
type YearCount struct {
	Domain string `json:"domain"`
	Year   int    `json:"year"`
	Count  int    `json:"count"`
}

// ExpertRecord is a person listed as an expert for a domain.
type ExpertRecord struct {
	Name     string `json:"name"`
	ExpertID *int64 `json:"expertId"`
}

// NormalizeDomain folds a domain name into its lookup key.
func NormalizeDomain(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SameDomain reports whether two domain names refer to the same domain.
func SameDomain(a, b string) bool {
	return NormalizeDomain(a) == NormalizeDomain(b)
}
