package api

import (
	"net/http"
)

// HandleRecommendations handles GET /api/recommendations?person=&domain= requests.
func (s *Server) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	const op = "api.recommendations"
	q := r.URL.Query()
	rows, err := s.deps.Recommend(r.Context(), q.Get("person"), q.Get("domain"))
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
