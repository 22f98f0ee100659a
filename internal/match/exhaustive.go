package match

import (
	"context"
)

// Exhaustive compares every query against every candidate
type Exhaustive struct {
	opts Options
}

// NewExhaustive creates the all-pairs strategy
func NewExhaustive(opts ...Option) *Exhaustive {
	return &Exhaustive{opts: newOptions(opts)}
}

// Name implements Strategy
func (e *Exhaustive) Name() string { return StrategyExhaustive }

// Match implements Strategy
func (e *Exhaustive) Match(ctx context.Context, queries []Query, candidates []Candidate) ([]Result, error) {
	sorted := SortCandidates(candidates)
	all := make([]int, len(sorted))
	for i := range all {
		all[i] = i
	}

	return run(ctx, e.Name(), queries, e.opts.Workers, func(q Query) Result {
		return Best(q, sorted, all, e.opts.Scorer, e.opts.Threshold)
	})
}
