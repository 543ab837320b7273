package search

import "github.com/okian/expertgraph/pkg/logger"

// Option applies a configuration option to the Index.
type Option func(*Index)

// WithCacheSize bounds the number of articles kept for hit resolution.
func WithCacheSize(n int) Option {
	return func(ix *Index) {
		if n > 0 {
			ix.cacheSize = n
		}
	}
}

// WithDefaultLimit sets the number of hits returned when the caller passes
// a non-positive limit.
func WithDefaultLimit(n int) Option {
	return func(ix *Index) {
		if n > 0 {
			ix.defaultLimit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(ix *Index) {
		if l != nil {
			ix.log = l
		}
	}
}
