// Package config defines service configuration and its defaults.
package config

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"
	"time"
)

// Store backends.
const (
	BackendNeo4j  = "neo4j"
	BackendMemory = "memory"
)

var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ShutdownTimeoutSeconds bounds graceful shutdown.
	ShutdownTimeoutSeconds int `koanf:"shutdown_timeout_seconds"`

	Store   StoreConfig   `koanf:"store"`
	Neo4j   Neo4jConfig   `koanf:"neo4j"`
	Scoring ScoringConfig `koanf:"scoring"`
	Cache   CacheConfig   `koanf:"cache"`
	Breaker BreakerConfig `koanf:"breaker"`
	Index   IndexConfig   `koanf:"index"`
	HTTP    HTTPConfig    `koanf:"http"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// StoreConfig selects the fact repository.
type StoreConfig struct {
	// Backend is "neo4j" or "memory".
	Backend string `koanf:"backend"`

	// FixturePath is a YAML fixture for the memory backend. Empty uses the
	// embedded sample.
	FixturePath string `koanf:"fixture_path"`
}

// Neo4jConfig holds the graph database connection.
type Neo4jConfig struct {
	URI                 string `koanf:"uri"`
	Username            string `koanf:"username"`
	Password            string `koanf:"password"`
	Database            string `koanf:"database"`
	QueryTimeoutSeconds int    `koanf:"query_timeout_seconds"`
}

// ScoringConfig tunes the collaborator ranking.
type ScoringConfig struct {
	ContributionWeight  float64 `koanf:"contribution_weight"`
	CollaborationWeight float64 `koanf:"collaboration_weight"`
	Limit               int     `koanf:"limit"`
}

// CacheConfig sizes the recommendation cache.
type CacheConfig struct {
	TTLSeconds  int   `koanf:"ttl_seconds"`
	MaxCost     int64 `koanf:"max_cost"`
	NumCounters int64 `koanf:"num_counters"`
}

// BreakerConfig tunes the circuit breaker around repository calls.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32 `koanf:"failure_threshold"`
	// TimeoutSeconds is how long the breaker stays open before probing.
	TimeoutSeconds int `koanf:"timeout_seconds"`
}

// IndexConfig sizes the search index pipeline.
type IndexConfig struct {
	QueueSize              int `koanf:"queue_size"`
	WorkerCount            int `koanf:"worker_count"`
	DedupeSize             int `koanf:"dedupe_size"`
	CacheSize              int `koanf:"cache_size"`
	RefreshIntervalSeconds int `koanf:"refresh_interval_seconds"`
}

// HTTPConfig holds the API surface settings.
type HTTPConfig struct {
	CORSOrigins            []string `koanf:"cors_origins"`
	RateLimitRequests      int      `koanf:"rate_limit_requests"`
	RateLimitWindowSeconds int      `koanf:"rate_limit_window_seconds"`
}

// MetricsConfig names the Prometheus series.
// LatencyBucketsMs, when set, replaces the latency histogram buckets.
type MetricsConfig struct {
	Namespace        string            `koanf:"namespace"`
	Subsystem        string            `koanf:"subsystem"`
	ConstLabels      map[string]string `koanf:"const_labels"`
	LatencyBucketsMs []float64         `koanf:"latency_buckets_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "json",
		Addr:                   ":9080",
		ShutdownTimeoutSeconds: 15,
		Store: StoreConfig{
			Backend: BackendMemory,
		},
		Neo4j: Neo4jConfig{
			URI:                 "neo4j://localhost:7687",
			Username:            "neo4j",
			Database:            "neo4j",
			QueryTimeoutSeconds: 10,
		},
		Scoring: ScoringConfig{
			ContributionWeight:  0.7,
			CollaborationWeight: 0.3,
			Limit:               5,
		},
		Cache: CacheConfig{
			TTLSeconds:  300,
			MaxCost:     10_000,
			NumCounters: 100_000,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			TimeoutSeconds:   30,
		},
		Index: IndexConfig{
			QueueSize:              10_000,
			WorkerCount:            runtime.NumCPU(),
			DedupeSize:             50_000,
			CacheSize:              10_000,
			RefreshIntervalSeconds: 3600,
		},
		HTTP: HTTPConfig{
			CORSOrigins:            []string{"*"},
			RateLimitRequests:      100,
			RateLimitWindowSeconds: 1,
		},
		Metrics: MetricsConfig{
			Namespace: "expertgraph",
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
	}

	if strings.TrimSpace(c.Addr) == "" {
		return invalid("addr must not be empty")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return invalid("unknown log_level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return invalid("unknown log_format %q", c.LogFormat)
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendNeo4j:
		if strings.TrimSpace(c.Neo4j.URI) == "" {
			return invalid("neo4j.uri must not be empty")
		}
	default:
		return invalid("unknown store.backend %q", c.Store.Backend)
	}

	w1, w2 := c.Scoring.ContributionWeight, c.Scoring.CollaborationWeight
	if w1 < 0 || w2 < 0 || !closeTo(w1+w2, 1) {
		return invalid("scoring weights must be non-negative and sum to 1, got %v and %v", w1, w2)
	}
	if c.Scoring.Limit < 1 {
		return invalid("scoring.limit must be positive")
	}
	if c.Cache.TTLSeconds < 0 || c.Cache.MaxCost < 1 || c.Cache.NumCounters < 1 {
		return invalid("cache sizes must be positive")
	}
	if c.Breaker.FailureThreshold < 1 || c.Breaker.TimeoutSeconds < 1 {
		return invalid("breaker settings must be positive")
	}
	if c.Index.QueueSize < 1 || c.Index.WorkerCount < 1 || c.Index.CacheSize < 1 {
		return invalid("index queue_size, worker_count and cache_size must be positive")
	}
	if c.Index.RefreshIntervalSeconds < 0 {
		return invalid("index.refresh_interval_seconds must not be negative")
	}
	if c.HTTP.RateLimitRequests < 0 || c.HTTP.RateLimitWindowSeconds < 1 {
		return invalid("http rate limit settings out of range")
	}
	if !metricName.MatchString(c.Metrics.Namespace) {
		return invalid("metrics.namespace %q is not a valid metric name prefix", c.Metrics.Namespace)
	}
	if c.Metrics.Subsystem != "" && !metricName.MatchString(c.Metrics.Subsystem) {
		return invalid("metrics.subsystem %q is not a valid metric name segment", c.Metrics.Subsystem)
	}
	for i := 1; i < len(c.Metrics.LatencyBucketsMs); i++ {
		if c.Metrics.LatencyBucketsMs[i] <= c.Metrics.LatencyBucketsMs[i-1] {
			return invalid("metrics.latency_buckets_ms must be strictly increasing")
		}
	}
	return nil
}

func closeTo(a, b float64) bool {
	const eps = 1e-9
	d := a - b
	return d < eps && d > -eps
}

// ShutdownTimeout returns the graceful shutdown bound.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// QueryTimeout returns the per-query bound.
func (c Neo4jConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// Timeout returns the open-state duration.
func (c BreakerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RefreshInterval returns the index refresh period; zero disables periodic refresh.
func (c IndexConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// RateLimitWindow returns the rate limit window.
func (c HTTPConfig) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}
