package match

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestEditRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "the hobbit", b: "the hobbit", want: 1.0},
		{name: "completely different", a: "abc", b: "xyz", want: 0.0},
		{name: "one substitution in four", a: "abcd", b: "abce", want: 0.75},
		{name: "both empty", a: "", b: "", want: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EditRatio(tt.a, tt.b); got != tt.want {
				t.Errorf("EditRatio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestTokenSortRatioIgnoresOrderAndPunctuation(t *testing.T) {
	a := "Gatsby, The Great  F. Scott Fitzgerald"
	b := "the great gatsby f scott fitzgerald"
	if got := TokenSortRatio(a, b); got != 1.0 {
		t.Errorf("TokenSortRatio = %v, want 1.0", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"Les Misérables":              "les miserables",
		"  Harry Potter (Book #1)   ": "harry potter book 1",
		"Ender's Game":                "ender s game",
		"":                            "",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestText(t *testing.T) {
	got := Text("The Hobbit", "J.R.R. Tolkien/Alan Lee")
	if got != "the hobbit j r r tolkien" {
		t.Errorf("Text = %q", got)
	}
}

func TestBestIdenticalStringsMatch(t *testing.T) {
	candidates := []Candidate{{Identifier: "0001", Text: "the hobbit tolkien"}}
	res := Best(Query{Key: "k", Text: "the hobbit tolkien"}, candidates, []int{0}, TokenSortRatio, 0.85)
	if !res.Matched || res.Score != 1.0 || res.Identifier != "0001" {
		t.Errorf("expected exact match with score 1.0, got %+v", res)
	}
}

func TestBestThresholdInclusive(t *testing.T) {
	fixed := func(score float64) Scorer {
		return func(a, b string) float64 { return score }
	}
	candidates := []Candidate{{Identifier: "0001", Text: "x"}}

	tests := []struct {
		name      string
		score     float64
		wantMatch bool
	}{
		{name: "exactly at threshold", score: 0.85, wantMatch: true},
		{name: "just below threshold", score: 0.8499, wantMatch: false},
		{name: "above threshold", score: 0.9, wantMatch: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Best(Query{Key: "k", Text: "y"}, candidates, []int{0}, fixed(tt.score), 0.85)
			if res.Matched != tt.wantMatch {
				t.Errorf("Matched = %v, want %v (score %v)", res.Matched, tt.wantMatch, res.Score)
			}
			if !tt.wantMatch && res.Identifier != "" {
				t.Errorf("unresolved result carries identifier %q", res.Identifier)
			}
		})
	}
}

func TestEditRatioAtThresholdMatches(t *testing.T) {
	a := "abcdefghijklmnopqrst"
	b := "abcdefghijklmnopqXYZ"
	score := EditRatio(a, b)
	if !Meets(score, 0.85) {
		t.Errorf("score %v for 3 edits in 20 should meet 0.85", score)
	}
}

func TestExhaustiveTieBreakIsDeterministic(t *testing.T) {
	candidates := []Candidate{
		{Identifier: "0000000003", Text: "dune frank herbert"},
		{Identifier: "0000000001", Text: "dune frank herbert"},
		{Identifier: "0000000002", Text: "dune frank herbert"},
	}
	queries := []Query{{Key: "book", Text: "dune frank herbert"}}

	for i := 0; i < 3; i++ {
		res, err := NewExhaustive().Match(context.Background(), queries, candidates)
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		if res[0].Identifier != "0000000001" {
			t.Errorf("tie should resolve to lowest identifier, got %s", res[0].Identifier)
		}
	}
}

func TestStrategiesAgreeAcrossWorkerCounts(t *testing.T) {
	titles := []string{
		"the great gatsby f scott fitzgerald",
		"to kill a mockingbird harper lee",
		"pride and prejudice jane austen",
		"the catcher in the rye j d salinger",
		"brave new world aldous huxley",
	}

	var candidates []Candidate
	for i, title := range titles {
		candidates = append(candidates, Candidate{Identifier: fmt.Sprintf("%010d", i), Text: title})
	}

	queries := []Query{
		{Key: "q1", Text: "great gatsby the f scott fitzgerald"},
		{Key: "q2", Text: "to kill a mockingbird harper lee"},
		{Key: "q3", Text: "pride & prejudice jane austen"},
		{Key: "q4", Text: "a completely unrelated title nobody"},
		{Key: "q5", Text: ""},
	}

	baseline, err := NewExhaustive(WithWorkers(1)).Match(context.Background(), queries, candidates)
	if err != nil {
		t.Fatalf("baseline failed: %v", err)
	}

	strategies := []Strategy{
		NewExhaustive(WithWorkers(3)),
		NewExhaustive(WithWorkers(16)),
		NewBlocked(WithWorkers(1)),
		NewBlocked(WithWorkers(4)),
	}

	for _, s := range strategies {
		got, err := s.Match(context.Background(), queries, candidates)
		if err != nil {
			t.Fatalf("%s failed: %v", s.Name(), err)
		}
		for i := range baseline {
			if got[i].Key != baseline[i].Key || got[i].Identifier != baseline[i].Identifier || got[i].Matched != baseline[i].Matched {
				t.Errorf("%s result %d = %+v, want %+v", s.Name(), i, got[i], baseline[i])
			}
		}
	}

	if !baseline[0].Matched || baseline[0].Identifier != "0000000000" {
		t.Errorf("expected reordered title to match, got %+v", baseline[0])
	}
	if baseline[3].Matched || baseline[4].Matched {
		t.Errorf("expected unrelated and empty queries to stay unresolved")
	}

	report := Summarize(strategies[0], 0.85, baseline, len(candidates))
	if report.Queries != 5 || report.Matched+report.Unresolved != 5 {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestBlockedKeepsMisspelledMatches(t *testing.T) {
	candidates := []Candidate{{Identifier: "0000000001", Text: "color purpl walkr"}}
	queries := []Query{{Key: "book", Text: "colour purple walker"}}

	exhaustive, err := NewExhaustive().Match(context.Background(), queries, candidates)
	if err != nil {
		t.Fatalf("exhaustive failed: %v", err)
	}
	blocked, err := NewBlocked().Match(context.Background(), queries, candidates)
	if err != nil {
		t.Fatalf("blocked failed: %v", err)
	}

	if !exhaustive[0].Matched {
		t.Fatalf("expected exhaustive match at the threshold, got %+v", exhaustive[0])
	}
	if blocked[0] != exhaustive[0] {
		t.Errorf("blocked = %+v, want %+v", blocked[0], exhaustive[0])
	}
}

// typoVariants derives deterministic misspellings of s: dropped, replaced
// and swapped characters at several positions
func typoVariants(s string) []string {
	r := []rune(s)
	var out []string
	for _, pos := range []int{1, len(r) / 3, len(r) / 2, len(r) - 2} {
		if pos < 0 || pos+1 >= len(r) {
			continue
		}
		dropped := append(append([]rune{}, r[:pos]...), r[pos+1:]...)
		replaced := append([]rune{}, r...)
		replaced[pos] = 'x'
		swapped := append([]rune{}, r...)
		swapped[pos], swapped[pos+1] = swapped[pos+1], swapped[pos]
		twice := append([]rune{}, replaced...)
		twice[len(twice)-1] = 'q'
		out = append(out, string(dropped), string(replaced), string(swapped), string(twice))
	}
	return out
}

func TestBlockedAgreesWithExhaustiveOnTypos(t *testing.T) {
	titles := []string{
		"the colour purple alice walker",
		"dune frank herbert",
		"emma jane austen",
		"persuasion jane austen",
		"the great gatsby f scott fitzgerald",
		"it stephen king",
		"beloved toni morrison",
		"the road cormac mccarthy",
	}

	var candidates []Candidate
	var queries []Query
	for i, title := range titles {
		candidates = append(candidates, Candidate{Identifier: fmt.Sprintf("%010d", i), Text: title})
		for j, v := range typoVariants(title) {
			queries = append(queries, Query{Key: fmt.Sprintf("%d-%d", i, j), Text: v})
		}
	}
	queries = append(queries, Query{Key: "short", Text: "it"}, Query{Key: "punct", Text: "!!!"})

	for _, scorer := range []string{ScorerTokenSort, ScorerEdit} {
		for _, threshold := range []float64{0.6, 0.75, 0.85, 0.95} {
			t.Run(fmt.Sprintf("%s/%.2f", scorer, threshold), func(t *testing.T) {
				opts := []Option{WithScorerName(scorer), WithThreshold(threshold), WithWorkers(2)}
				want, err := NewExhaustive(opts...).Match(context.Background(), queries, candidates)
				if err != nil {
					t.Fatalf("exhaustive failed: %v", err)
				}
				got, err := NewBlocked(opts...).Match(context.Background(), queries, candidates)
				if err != nil {
					t.Fatalf("blocked failed: %v", err)
				}

				for i := range want {
					if got[i].Matched != want[i].Matched || got[i].Identifier != want[i].Identifier {
						t.Errorf("query %q: blocked = %+v, exhaustive = %+v", queries[i].Text, got[i], want[i])
					}
					if want[i].Matched && got[i].Score != want[i].Score {
						t.Errorf("query %q: blocked score %v, exhaustive %v", queries[i].Text, got[i].Score, want[i].Score)
					}
				}
			})
		}
	}
}

func TestBlockedCustomScorerScoresEveryCandidate(t *testing.T) {
	always := func(a, b string) float64 { return 1 }
	candidates := []Candidate{{Identifier: "0000000002", Text: "zzz"}, {Identifier: "0000000001", Text: "yyy"}}

	res, err := NewBlocked(WithScorer(always)).Match(context.Background(), []Query{{Key: "k", Text: "abc"}}, candidates)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if !res[0].Matched || res[0].Identifier != "0000000001" {
		t.Errorf("expected lowest identifier with a custom scorer, got %+v", res[0])
	}
}

func TestMatchHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	queries := []Query{{Key: "a", Text: "x"}}
	_, err := NewExhaustive().Match(ctx, queries, []Candidate{{Identifier: "1", Text: "x"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewUnknownStrategy(t *testing.T) {
	if _, err := New("quantum"); err == nil {
		t.Error("expected error for unknown strategy")
	}
	if s, err := New(StrategyBlocked); err != nil || s.Name() != StrategyBlocked {
		t.Errorf("New(blocked) = %v, %v", s, err)
	}
}
