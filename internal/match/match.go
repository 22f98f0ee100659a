// Package match links catalog books without a direct identifier match to
// community books by approximate title and author similarity.
package match

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"
)

// scoreTolerance absorbs floating error so that a score printed as the
// threshold value is treated as meeting it
const scoreTolerance = 1e-9

// Query is a record looking for a partner
type Query struct {
	Key  string
	Text string
}

// Candidate is a record that may be chosen as a partner
type Candidate struct {
	Identifier string
	Text       string
}

// Result is the best candidate for one query. Identifier is empty when no
// candidate met the threshold; Score is then the best score the strategy
// examined, which the blocked strategy may report lower.
type Result struct {
	Key        string
	Identifier string
	Score      float64
	Matched    bool
}

// Report summarizes one matching pass
type Report struct {
	Strategy   string  `yaml:"strategy" json:"strategy"`
	Threshold  float64 `yaml:"threshold" json:"threshold"`
	Queries    int     `yaml:"queries" json:"queries"`
	Candidates int     `yaml:"candidates" json:"candidates"`
	Matched    int     `yaml:"matched" json:"matched"`
	Unresolved int     `yaml:"unresolved" json:"unresolved"`
}

// Strategy finds the best candidate for every query. Results are returned in
// query order and must not depend on worker scheduling.
type Strategy interface {
	Name() string
	Match(ctx context.Context, queries []Query, candidates []Candidate) ([]Result, error)
}

// Options configures a strategy
type Options struct {
	Threshold float64
	Workers   int
	Scorer    Scorer

	// form is the text the scorer feeds to EditRatio, nil for custom scorers
	form func(string) string
}

// Option mutates Options
type Option func(*Options)

// WithThreshold sets the minimum accepted score
func WithThreshold(threshold float64) Option {
	return func(o *Options) { o.Threshold = threshold }
}

// WithWorkers sets the number of concurrent scoring goroutines
func WithWorkers(workers int) Option {
	return func(o *Options) {
		if workers > 0 {
			o.Workers = workers
		}
	}
}

// WithScorer replaces the similarity function with a custom one. The
// blocked strategy cannot prune candidates for custom scorers.
func WithScorer(s Scorer) Option {
	return func(o *Options) {
		if s != nil {
			o.Scorer = s
			o.form = nil
		}
	}
}

// WithScorerName selects one of the named scorers. Unknown names are ignored.
func WithScorerName(name string) Option {
	return func(o *Options) {
		if m, ok := scorers[name]; ok {
			o.Scorer = m.scorer
			o.form = m.form
		}
	}
}

func newOptions(opts []Option) Options {
	o := Options{Threshold: 0.85, Workers: 1, Scorer: TokenSortRatio, form: tokenSortForm}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Strategy names accepted by New
const (
	StrategyExhaustive = "exhaustive"
	StrategyBlocked    = "blocked"
)

// New builds the named strategy
func New(name string, opts ...Option) (Strategy, error) {
	switch name {
	case StrategyExhaustive, "":
		return NewExhaustive(opts...), nil
	case StrategyBlocked:
		return NewBlocked(opts...), nil
	default:
		return nil, fmt.Errorf("unknown match strategy: %s", name)
	}
}

// Meets reports whether score clears threshold. The comparison is inclusive.
func Meets(score, threshold float64) bool {
	return score >= threshold-scoreTolerance
}

// Best scores q against the candidates at positions idx (ascending) and
// returns the highest scorer meeting the threshold. Ties keep the earliest
// candidate, so candidate order decides them.
func Best(q Query, candidates []Candidate, idx []int, scorer Scorer, threshold float64) Result {
	res := Result{Key: q.Key}
	if q.Text == "" {
		return res
	}

	bestScore := -1.0
	bestIdx := -1
	for _, i := range idx {
		c := candidates[i]
		if c.Text == "" {
			continue
		}
		score := scorer(q.Text, c.Text)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		return res
	}
	res.Score = bestScore
	if Meets(bestScore, threshold) {
		res.Identifier = candidates[bestIdx].Identifier
		res.Matched = true
	}
	return res
}

// SortCandidates orders candidates by identifier, which fixes tie-breaking
func SortCandidates(candidates []Candidate) []Candidate {
	sorted := append([]Candidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Identifier < sorted[j].Identifier
	})
	return sorted
}

// Summarize counts matched and unresolved results
func Summarize(s Strategy, threshold float64, results []Result, candidates int) Report {
	r := Report{
		Strategy:   s.Name(),
		Threshold:  threshold,
		Queries:    len(results),
		Candidates: candidates,
	}
	for _, res := range results {
		if res.Matched {
			r.Matched++
		} else {
			r.Unresolved++
		}
	}
	return r
}

// run partitions queries across workers. Each worker fills its own slice of
// results, so no locking is needed and the output order is the query order.
func run(ctx context.Context, name string, queries []Query, workers int, score func(Query) Result) ([]Result, error) {
	results := make([]Result, len(queries))
	if len(queries) == 0 {
		return results, nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(queries) {
		workers = len(queries)
	}

	chunk := (len(queries) + workers - 1) / workers
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < len(queries); start += chunk {
		start := start
		end := start + chunk
		if end > len(queries) {
			end = len(queries)
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if i%256 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				results[i] = score(queries[i])
			}
			slog.Debug("Scored query partition", "strategy", name, "from", start, "to", end)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fuzzy matching interrupted: %w", err)
	}
	return results, nil
}
