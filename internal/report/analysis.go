package report

import (
	"math"
	"sort"

	"github.com/lehigh-university-libraries/bookjoin/internal/models"
)

// Analysis holds the business tables derived from a master table
type Analysis struct {
	Summary            Summary                  `yaml:"summary" json:"summary"`
	Publishers         []PublisherStat          `yaml:"publishers,omitempty" json:"publishers,omitempty"`
	UKPublishers       []PublisherStat          `yaml:"uk_publishers,omitempty" json:"uk_publishers,omitempty"`
	HiddenGems         []BookRating             `yaml:"hidden_gems,omitempty" json:"hidden_gems,omitempty"`
	CommunityFavorites []BookRating             `yaml:"community_favorites,omitempty" json:"community_favorites,omitempty"`
	CatalogFavorites   []BookRating             `yaml:"catalog_favorites,omitempty" json:"catalog_favorites,omitempty"`
	AgeGroups          []models.AgeGroupInsight `yaml:"age_groups,omitempty" json:"age_groups,omitempty"`
}

// BookRating sets one book's catalog rating beside its rescaled community
// rating. Difference is community minus catalog.
type BookRating struct {
	BookKey         string  `yaml:"book_key" json:"book_key"`
	Title           string  `yaml:"title" json:"title"`
	Authors         string  `yaml:"authors" json:"authors"`
	CatalogRating   float64 `yaml:"catalog_rating" json:"catalog_rating"`
	CatalogReviews  int     `yaml:"catalog_reviews" json:"catalog_reviews"`
	CommunityRating float64 `yaml:"community_rating" json:"community_rating"`
	CommunityCount  int     `yaml:"community_count" json:"community_count"`
	Difference      float64 `yaml:"difference" json:"difference"`
}

// GemCriteria selects well-rated books that few catalog readers reviewed
type GemCriteria struct {
	MinCommunityRating  float64
	MaxCatalogReviews   int
	MinCommunityRatings int
}

// DefaultGemCriteria requires a rescaled community rating of at least 4,
// fewer than 500 catalog reviews and at least 20 community ratings
func DefaultGemCriteria() GemCriteria {
	return GemCriteria{MinCommunityRating: 4.0, MaxCatalogReviews: 500, MinCommunityRatings: 20}
}

// Analyze derives every business table from records. ageGroups comes from
// the materialized store and is carried through unchanged.
func Analyze(records []models.MasterRecord, ageGroups []models.AgeGroupInsight) Analysis {
	community, catalog := RatingComparison(records)
	return Analysis{
		Summary:            Summarize(records),
		Publishers:         PublisherPerformance(records),
		UKPublishers:       UKPublisherPerformance(records),
		HiddenGems:         HiddenGems(records, DefaultGemCriteria()),
		CommunityFavorites: community,
		CatalogFavorites:   catalog,
		AgeGroups:          ageGroups,
	}
}

func bookRating(r models.MasterRecord) BookRating {
	br := BookRating{
		BookKey:        r.Book.BookKey,
		Title:          r.Book.Title,
		Authors:        r.Book.Authors,
		CatalogRating:  r.Book.SourceRating,
		CatalogReviews: r.Book.SourceReviewCount,
	}
	if r.HasCommunityRating() {
		br.CommunityRating = r.Community.RescaledMean
		br.CommunityCount = r.Community.Count
		br.Difference = r.Community.RescaledMean - r.Book.SourceRating
	}
	if r.RatingGap != nil {
		br.Difference = *r.RatingGap
	}
	return br
}

// HiddenGems lists the rated books meeting c, highest community rating first
func HiddenGems(records []models.MasterRecord, c GemCriteria) []BookRating {
	var gems []BookRating
	for _, r := range records {
		if !r.HasCommunityRating() {
			continue
		}
		if r.Community.RescaledMean < c.MinCommunityRating ||
			r.Book.SourceReviewCount >= c.MaxCatalogReviews ||
			r.Community.Count < c.MinCommunityRatings {
			continue
		}
		gems = append(gems, bookRating(r))
	}
	sort.SliceStable(gems, func(i, j int) bool {
		if gems[i].CommunityRating != gems[j].CommunityRating {
			return gems[i].CommunityRating > gems[j].CommunityRating
		}
		return gems[i].BookKey < gems[j].BookKey
	})
	return gems
}

// RatingComparison splits the rated books whose ratings disagree by more than
// the gap threshold. community holds books the community rates higher,
// largest difference first; catalog holds books the catalog rates higher,
// most negative difference first.
func RatingComparison(records []models.MasterRecord) (community, catalog []BookRating) {
	for _, r := range records {
		if !r.HasCommunityRating() {
			continue
		}
		br := bookRating(r)
		switch {
		case br.Difference > gapThreshold:
			community = append(community, br)
		case br.Difference < -gapThreshold:
			catalog = append(catalog, br)
		}
	}
	byDifference := func(rows []BookRating, desc bool) {
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].Difference != rows[j].Difference {
				return (rows[i].Difference > rows[j].Difference) == desc
			}
			return rows[i].BookKey < rows[j].BookKey
		})
	}
	byDifference(community, true)
	byDifference(catalog, false)
	return community, catalog
}

// UKPublisherPerformance is PublisherPerformance restricted to UK publishers
func UKPublisherPerformance(records []models.MasterRecord) []PublisherStat {
	var uk []models.MasterRecord
	for _, r := range records {
		if r.Book.IsUKPublisher {
			uk = append(uk, r)
		}
	}
	return PublisherPerformance(uk)
}

// sampleStdDev is the n-1 standard deviation; nil below two values
func sampleStdDev(values []float64) *float64 {
	if len(values) < 2 {
		return nil
	}
	m := mean(values)
	var sq float64
	for _, v := range values {
		sq += (v - m) * (v - m)
	}
	sd := round(math.Sqrt(sq/float64(len(values)-1)), 4)
	return &sd
}
