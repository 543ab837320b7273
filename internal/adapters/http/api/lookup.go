package api

import (
	"net/http"
	"strings"
)

type titlesResponse struct {
	Titles []string `json:"titles"`
}

type peopleResponse struct {
	PersonNames []string `json:"personNames"`
}

type domainsResponse struct {
	Domains []string `json:"domains"`
}

// HandleDomainTitles handles GET /api/titles/{domainId} requests.
func (s *Server) HandleDomainTitles(w http.ResponseWriter, r *http.Request) {
	titles, err := s.deps.DomainTitles(r.Context(), pathParam(r, "domainId"))
	if err != nil {
		s.fail(w, r, "api.domain_titles", err)
		return
	}
	writeJSON(w, http.StatusOK, titlesResponse{Titles: titles})
}

// HandleCollaborationTitles handles GET /api/collaboration/{id}/titles requests.
func (s *Server) HandleCollaborationTitles(w http.ResponseWriter, r *http.Request) {
	titles, err := s.deps.CollaborationTitles(r.Context(), pathParam(r, "id"))
	if err != nil {
		s.fail(w, r, "api.collaboration_titles", err)
		return
	}
	writeJSON(w, http.StatusOK, titlesResponse{Titles: titles})
}

// HandleDepartmentPeople handles GET /api/persons/{department} requests.
func (s *Server) HandleDepartmentPeople(w http.ResponseWriter, r *http.Request) {
	names, err := s.deps.DepartmentPeople(r.Context(), pathParam(r, "department"))
	if err != nil {
		s.fail(w, r, "api.department_people", err)
		return
	}
	writeJSON(w, http.StatusOK, peopleResponse{PersonNames: names})
}

// HandleDomains handles GET /api/domains requests.
func (s *Server) HandleDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := s.deps.Domains(r.Context())
	if err != nil {
		s.fail(w, r, "api.domains", err)
		return
	}
	writeJSON(w, http.StatusOK, domainsResponse{Domains: domains})
}

// HandleDomainTrends handles GET /api/domainData?domains=a,b requests.
// The parameter may also be repeated.
func (s *Server) HandleDomainTrends(w http.ResponseWriter, r *http.Request) {
	var domains []string
	for _, v := range r.URL.Query()["domains"] {
		domains = append(domains, strings.Split(v, ",")...)
	}
	rows, err := s.deps.DomainTrends(r.Context(), domains)
	if err != nil {
		s.fail(w, r, "api.domain_trends", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
