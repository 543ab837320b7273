package api

import (
	"net/http"
)

// HandleDomainGraph handles GET /api/graph?domain= requests.
func (s *Server) HandleDomainGraph(w http.ResponseWriter, r *http.Request) {
	const op = "api.domain_graph"
	g, err := s.deps.DomainGraph(r.Context(), r.URL.Query().Get("domain"))
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// HandleDepartmentGraph handles GET /api/graph/{department} requests.
func (s *Server) HandleDepartmentGraph(w http.ResponseWriter, r *http.Request) {
	const op = "api.department_graph"
	g, err := s.deps.DepartmentGraph(r.Context(), pathParam(r, "department"))
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// HandleCollaborationGraph handles GET /api/collaborations/{name} requests.
func (s *Server) HandleCollaborationGraph(w http.ResponseWriter, r *http.Request) {
	const op = "api.collaboration_graph"
	g, err := s.deps.CollaborationGraph(r.Context(), pathParam(r, "name"))
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}
