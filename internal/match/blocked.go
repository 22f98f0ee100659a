package match

import (
	"context"
	"math"
	"sort"
	"unicode/utf8"
)

// gramSize is the q of the q-gram index
const gramSize = 3

// Blocked indexes candidates by character 3-grams of the form the scorer
// compares and only scores candidates that can still reach the threshold.
//
// For edit-ratio scorers a pair scoring at least T over strings of length m
// and n is at most d = floor((1-T) * max(m, n)) edits apart. Such strings
// share at least max(m, n) - 2 - 3d 3-grams and differ in length by at most
// d, so every candidate failing either bound is skipped without changing the
// result. Candidates for which the bound is not positive are always scored.
// With a custom scorer the form is unknown and every candidate is scored.
type Blocked struct {
	opts Options
}

// NewBlocked creates the q-gram blocking strategy
func NewBlocked(opts ...Option) *Blocked {
	return &Blocked{opts: newOptions(opts)}
}

// Name implements Strategy
func (b *Blocked) Name() string { return StrategyBlocked }

// Match implements Strategy
func (b *Blocked) Match(ctx context.Context, queries []Query, candidates []Candidate) ([]Result, error) {
	sorted := SortCandidates(candidates)

	if b.opts.form == nil {
		all := make([]int, len(sorted))
		for i := range all {
			all[i] = i
		}
		return run(ctx, b.Name(), queries, b.opts.Workers, func(q Query) Result {
			return Best(q, sorted, all, b.opts.Scorer, b.opts.Threshold)
		})
	}

	index := buildGramIndex(sorted, b.opts.form)
	return run(ctx, b.Name(), queries, b.opts.Workers, func(q Query) Result {
		return Best(q, sorted, index.lookup(b.opts.form(q.Text), b.opts.Threshold), b.opts.Scorer, b.opts.Threshold)
	})
}

type posting struct {
	candidate int
	count     int
}

type gramIndex struct {
	postings map[string][]posting
	byLength map[int][]int // rune length -> ascending candidate positions
	lengths  []int         // distinct lengths, ascending
	length   []int         // rune length per candidate
}

func buildGramIndex(candidates []Candidate, form func(string) string) *gramIndex {
	idx := &gramIndex{
		postings: make(map[string][]posting),
		byLength: make(map[int][]int),
		length:   make([]int, len(candidates)),
	}

	for i, c := range candidates {
		f := form(c.Text)
		n := utf8.RuneCountInString(f)
		idx.length[i] = n
		if _, ok := idx.byLength[n]; !ok {
			idx.lengths = append(idx.lengths, n)
		}
		idx.byLength[n] = append(idx.byLength[n], i)

		for g, count := range grams(f) {
			idx.postings[g] = append(idx.postings[g], posting{candidate: i, count: count})
		}
	}

	sort.Ints(idx.lengths)
	return idx
}

// lookup returns the ascending positions of candidates that may score at
// least threshold against the query form f
func (idx *gramIndex) lookup(f string, threshold float64) []int {
	m := utf8.RuneCountInString(f)

	// Minimum shared grams required per candidate length. Lengths whose
	// bound is not positive are scored unconditionally.
	need := make(map[int]int)
	include := make(map[int]struct{})
	for _, n := range idx.lengths {
		l := max(m, n)
		d := maxEdits(l, threshold)
		if abs(m-n) > d {
			continue
		}
		bound := l - gramSize + 1 - gramSize*d
		if bound <= 0 {
			for _, i := range idx.byLength[n] {
				include[i] = struct{}{}
			}
			continue
		}
		need[n] = bound
	}

	if len(need) > 0 {
		shared := make(map[int]int)
		for g, qc := range grams(f) {
			for _, p := range idx.postings[g] {
				shared[p.candidate] += min(qc, p.count)
			}
		}
		for i, s := range shared {
			if bound, ok := need[idx.length[i]]; ok && s >= bound {
				include[i] = struct{}{}
			}
		}
	}

	out := make([]int, 0, len(include))
	for i := range include {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// maxEdits is the largest edit distance between strings of max length l
// whose edit ratio still meets threshold. It errs on the high side.
func maxEdits(l int, threshold float64) int {
	d := int(math.Floor((1-threshold+scoreTolerance)*float64(l) + 1e-6))
	if d < 0 {
		return 0
	}
	return d
}

// grams counts the character 3-grams of s
func grams(s string) map[string]int {
	r := []rune(s)
	out := make(map[string]int, len(r))
	for i := 0; i+gramSize <= len(r); i++ {
		out[string(r[i:i+gramSize])]++
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
