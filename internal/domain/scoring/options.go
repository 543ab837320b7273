package scoring

import "math"

// Default scoring configuration constants.
const (
	defaultContributionWeight  = 0.7
	defaultCollaborationWeight = 0.3
	defaultLimit               = 5
	weightSumTolerance         = 1e-9
)

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithWeights sets the contribution and collaboration weights.
// The pair is ignored unless both are non-negative and they sum to 1.
func WithWeights(contribution, collaboration float64) Option {
	return func(s *Scorer) {
		if contribution < 0 || collaboration < 0 {
			return
		}
		if math.Abs(contribution+collaboration-1) > weightSumTolerance {
			return
		}
		s.contributionWeight = contribution
		s.collaborationWeight = collaboration
	}
}

// WithLimit sets how many ranked candidates are returned before the self record.
func WithLimit(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.limit = n
		}
	}
}
