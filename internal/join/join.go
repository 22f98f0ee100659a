// Package join builds the master table: every cleaned catalog book, left
// joined to at most one aggregated community rating.
package join

import (
	"log/slog"
	"math"
	"sort"

	"github.com/lehigh-university-libraries/bookjoin/internal/models"
)

// Options holds the category thresholds
type Options struct {
	HighRating      float64
	LowRating       float64
	ExposureReviews int

	// RequireUKOrRated keeps only UK-published or community-rated books
	RequireUKOrRated bool
}

// DefaultOptions returns the standard category thresholds
func DefaultOptions() Options {
	return Options{
		HighRating:      4.0,
		LowRating:       3.0,
		ExposureReviews: 500,
	}
}

// Report counts how each book was linked
type Report struct {
	Books      int                     `yaml:"books" json:"books"`
	Direct     int                     `yaml:"direct" json:"direct"`
	Fuzzy      int                     `yaml:"fuzzy" json:"fuzzy"`
	Unmatched  int                     `yaml:"unmatched" json:"unmatched"`
	Filtered   int                     `yaml:"filtered,omitempty" json:"filtered,omitempty"`
	Categories map[models.Category]int `yaml:"categories" json:"categories"`
}

// Index looks aggregated ratings up by identifier
type Index map[string]models.AggregatedRating

// NewIndex indexes aggregated ratings
func NewIndex(aggs []models.AggregatedRating) Index {
	idx := make(Index, len(aggs))
	for _, a := range aggs {
		idx[a.Identifier] = a
	}
	return idx
}

// Direct finds the aggregated rating sharing an ISBN with b, trying the
// ISBN-13 form before the ISBN-10 form
func (ix Index) Direct(b models.BookRecord) (models.AggregatedRating, bool) {
	for _, id := range []string{b.ISBN13, b.ISBN10, b.ISBN} {
		if id == "" {
			continue
		}
		if a, ok := ix[id]; ok {
			return a, true
		}
	}
	return models.AggregatedRating{}, false
}

// Categorize applies the category rules in priority order
func Categorize(community *models.AggregatedRating, reviews int, opts Options) models.Category {
	if community == nil {
		return models.CategoryUnrated
	}

	rating := community.RescaledMean
	switch {
	case rating >= opts.HighRating && reviews < opts.ExposureReviews:
		return models.CategoryHiddenGem
	case rating >= opts.HighRating:
		return models.CategoryPopularFavorite
	case rating < opts.LowRating:
		return models.CategoryUnderperformer
	default:
		return models.CategoryAverage
	}
}

// EngagementScore is rating * log10(reviews + 1)
func EngagementScore(rating float64, reviews int) float64 {
	if reviews < 0 {
		reviews = 0
	}
	return rating * math.Log10(float64(reviews)+1)
}

// Join links every book to community evidence, preferring a direct
// identifier match over a fuzzy link. Output is ordered by engagement score
// descending, then book key.
func Join(books []models.BookRecord, ix Index, links map[string]models.MatchLink, opts Options) ([]models.MasterRecord, Report) {
	report := Report{Books: len(books), Categories: map[models.Category]int{}}
	out := make([]models.MasterRecord, 0, len(books))

	for _, b := range books {
		rec := models.MasterRecord{
			Book:            b,
			MatchMethod:     models.MatchNone,
			EngagementScore: EngagementScore(b.SourceRating, b.SourceReviewCount),
		}

		if a, ok := ix.Direct(b); ok {
			rec.Community = &a
			rec.MatchMethod = models.MatchDirect
		} else if link, ok := links[b.BookKey]; ok {
			if a, ok := ix[link.Identifier]; ok {
				score := link.Score
				rec.Community = &a
				rec.MatchMethod = models.MatchFuzzy
				rec.MatchScore = &score
			}
		}

		if rec.Community != nil {
			gap := rec.Community.RescaledMean - b.SourceRating
			rec.RatingGap = &gap
		}
		rec.Category = Categorize(rec.Community, b.SourceReviewCount, opts)

		if opts.RequireUKOrRated && !b.IsUKPublisher && rec.Community == nil {
			report.Filtered++
			continue
		}

		switch rec.MatchMethod {
		case models.MatchDirect:
			report.Direct++
		case models.MatchFuzzy:
			report.Fuzzy++
		default:
			report.Unmatched++
		}
		report.Categories[rec.Category]++
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EngagementScore != out[j].EngagementScore {
			return out[i].EngagementScore > out[j].EngagementScore
		}
		return out[i].Book.BookKey < out[j].Book.BookKey
	})

	slog.Info("Built master table",
		"books", report.Books,
		"direct", report.Direct,
		"fuzzy", report.Fuzzy,
		"unmatched", report.Unmatched,
		"filtered", report.Filtered)

	return out, report
}
