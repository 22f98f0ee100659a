package pipeline

import (
	"context"

	"github.com/lehigh-university-libraries/bookjoin/internal/join"
	"github.com/lehigh-university-libraries/bookjoin/internal/match"
	"github.com/lehigh-university-libraries/bookjoin/internal/models"
)

// LinkUnmatched fuzzy-matches books without a direct identifier match
// against rated community books that no book claimed directly. The returned
// links are keyed by book key.
func LinkUnmatched(ctx context.Context, strategy match.Strategy, threshold float64, books []models.BookRecord, ix join.Index, community []models.CommunityBook) (map[string]models.MatchLink, match.Report, error) {
	claimed := make(map[string]struct{})
	var queries []match.Query
	for _, b := range books {
		if a, ok := ix.Direct(b); ok {
			claimed[a.Identifier] = struct{}{}
			continue
		}
		queries = append(queries, match.Query{Key: b.BookKey, Text: match.Text(b.Title, b.Authors)})
	}

	var candidates []match.Candidate
	for _, c := range community {
		if _, rated := ix[c.Identifier]; !rated {
			continue
		}
		if _, taken := claimed[c.Identifier]; taken {
			continue
		}
		candidates = append(candidates, match.Candidate{Identifier: c.Identifier, Text: match.Text(c.Title, c.Author)})
	}

	results, err := strategy.Match(ctx, queries, candidates)
	if err != nil {
		return nil, match.Report{}, err
	}

	links := make(map[string]models.MatchLink, len(results))
	for _, r := range results {
		if !r.Matched {
			continue
		}
		links[r.Key] = models.MatchLink{BookKey: r.Key, Identifier: r.Identifier, Score: r.Score}
	}

	return links, match.Summarize(strategy, threshold, results, len(candidates)), nil
}
