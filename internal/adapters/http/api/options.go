package api

import (
	"time"

	"github.com/okian/expertgraph/pkg/logger"
)

type rateLimit struct {
	requests int
	window   time.Duration
}

var defaultRateLimit = rateLimit{requests: 100, window: time.Second}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for failed requests.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = append([]string(nil), origins...)
		}
	}
}

// WithRateLimit limits each client IP to requests per window on /api routes.
// Zero requests disables the limit.
func WithRateLimit(requests int, window time.Duration) Option {
	return func(s *Server) {
		if requests >= 0 && window > 0 {
			s.rateLimit = rateLimit{requests: requests, window: window}
		}
	}
}
