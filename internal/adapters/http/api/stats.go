package api

import (
	"net/http"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// HandleStats handles GET /stats requests.
func (s *Server) HandleStats(w http.ResponseWriter, _ *http.Request) {
	if s.statsProvider == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{})
		return
	}
	writeJSON(w, http.StatusOK, s.statsProvider.GetStats())
}
