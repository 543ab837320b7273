// Package types contains the response shapes shared by the service and the HTTP API.
package types

import "github.com/okian/expertgraph/internal/domain/model"

// Recommendation is one row of a collaborator ranking.
type Recommendation struct {
	Name           string  `json:"name"`
	Collaborations int     `json:"collaborations"`
	TitleCount     int     `json:"titleCount"`
	Score          float64 `json:"score"`
}

// DepartmentExperts lists the people of a department who are experts in a domain,
// split by how the expertise was established.
type DepartmentExperts struct {
	DirectRecords   []model.ExpertRecord `json:"directRecords"`
	IndirectRecords []model.ExpertRecord `json:"indirectRecords"`
	DirectCount     int                  `json:"directCount"`
	IndirectCount   int                  `json:"indirectCount"`
}

// NewDepartmentExperts builds the response and fills in the counts.
func NewDepartmentExperts(direct, indirect []model.ExpertRecord) DepartmentExperts {
	if direct == nil {
		direct = []model.ExpertRecord{}
	}
	if indirect == nil {
		indirect = []model.ExpertRecord{}
	}
	return DepartmentExperts{
		DirectRecords:   direct,
		IndirectRecords: indirect,
		DirectCount:     len(direct),
		IndirectCount:   len(indirect),
	}
}

// ArticleHit is an article matched by keyword search.
type ArticleHit struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Domains  []string `json:"domains"`
	Keywords []string `json:"keywords"`
	Abstract string   `json:"abstract"`
	Year     int      `json:"year"`
	Score    float64  `json:"score"`
}

// SearchPage is one page of keyword search results. Total counts every match.
type SearchPage struct {
	Articles []ArticleHit `json:"articles"`
	Total    uint64       `json:"total"`
	Page     int          `json:"page"`
	Limit    int          `json:"limit"`
}
