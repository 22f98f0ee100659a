package report

import (
	"math"
	"sort"

	"github.com/lehigh-university-libraries/bookjoin/internal/models"
)

// gapThreshold is the absolute rating gap counted as a notable disagreement
const gapThreshold = 0.5

// Summary holds the headline metrics of a master table
type Summary struct {
	TotalBooks          int                     `yaml:"total_books" json:"total_books"`
	WithCommunityRating int                     `yaml:"with_community_rating" json:"with_community_rating"`
	DirectMatches       int                     `yaml:"direct_matches" json:"direct_matches"`
	FuzzyMatches        int                     `yaml:"fuzzy_matches" json:"fuzzy_matches"`
	UKPublisherBooks    int                     `yaml:"uk_publisher_books" json:"uk_publisher_books"`
	MeanCatalogRating   float64                 `yaml:"mean_catalog_rating" json:"mean_catalog_rating"`
	MeanCommunityRating float64                 `yaml:"mean_community_rating" json:"mean_community_rating"`
	CommunityHigher     int                     `yaml:"community_higher" json:"community_higher"`
	CatalogHigher       int                     `yaml:"catalog_higher" json:"catalog_higher"`
	HiddenGems          int                     `yaml:"hidden_gems" json:"hidden_gems"`
	Categories          map[models.Category]int `yaml:"categories" json:"categories"`
}

// Metric is a labelled value for tabular summaries
type Metric struct {
	Name  string
	Value float64
}

// PublisherStat aggregates master records per canonical publisher.
// RatingStdDev is nil for a single book; MeanCommunityRating is nil when
// none of the books has a community rating.
type PublisherStat struct {
	Publisher           string   `yaml:"publisher" json:"publisher"`
	Books               int      `yaml:"books" json:"books"`
	IsUK                bool     `yaml:"is_uk" json:"is_uk"`
	MeanRating          float64  `yaml:"mean_rating" json:"mean_rating"`
	RatingStdDev        *float64 `yaml:"rating_stddev,omitempty" json:"rating_stddev,omitempty"`
	MeanReviews         float64  `yaml:"mean_reviews" json:"mean_reviews"`
	MeanCommunityRating *float64 `yaml:"mean_community_rating,omitempty" json:"mean_community_rating,omitempty"`
	MeanEngagement      float64  `yaml:"mean_engagement" json:"mean_engagement"`
}

// Summarize computes the headline metrics of records
func Summarize(records []models.MasterRecord) Summary {
	s := Summary{TotalBooks: len(records), Categories: map[models.Category]int{}}

	var catalogSum, communitySum float64
	for _, r := range records {
		catalogSum += r.Book.SourceRating
		if r.Book.IsUKPublisher {
			s.UKPublisherBooks++
		}
		s.Categories[r.Category]++

		switch r.MatchMethod {
		case models.MatchDirect:
			s.DirectMatches++
		case models.MatchFuzzy:
			s.FuzzyMatches++
		}

		if !r.HasCommunityRating() {
			continue
		}
		s.WithCommunityRating++
		communitySum += r.Community.RescaledMean

		if r.RatingGap != nil {
			switch {
			case *r.RatingGap > gapThreshold:
				s.CommunityHigher++
			case *r.RatingGap < -gapThreshold:
				s.CatalogHigher++
			}
		}
	}

	s.HiddenGems = len(HiddenGems(records, DefaultGemCriteria()))

	if s.TotalBooks > 0 {
		s.MeanCatalogRating = round(catalogSum/float64(s.TotalBooks), 4)
	}
	if s.WithCommunityRating > 0 {
		s.MeanCommunityRating = round(communitySum/float64(s.WithCommunityRating), 4)
	}
	return s
}

// Metrics lists the summary as labelled values in display order
func (s Summary) Metrics() []Metric {
	metrics := []Metric{
		{Name: "Total Books", Value: float64(s.TotalBooks)},
		{Name: "Books With Community Ratings", Value: float64(s.WithCommunityRating)},
		{Name: "Direct Matches", Value: float64(s.DirectMatches)},
		{Name: "Fuzzy Matches", Value: float64(s.FuzzyMatches)},
		{Name: "UK Publisher Books", Value: float64(s.UKPublisherBooks)},
		{Name: "Mean Catalog Rating", Value: s.MeanCatalogRating},
		{Name: "Mean Community Rating (rescaled)", Value: s.MeanCommunityRating},
		{Name: "Community Rates Higher (gap > 0.5)", Value: float64(s.CommunityHigher)},
		{Name: "Catalog Rates Higher (gap < -0.5)", Value: float64(s.CatalogHigher)},
		{Name: "Hidden Gems Identified", Value: float64(s.HiddenGems)},
	}
	for _, c := range models.Categories {
		metrics = append(metrics, Metric{Name: string(c), Value: float64(s.Categories[c])})
	}
	return metrics
}

// PublisherPerformance groups records by canonical publisher, ordered by
// mean engagement descending then publisher name
func PublisherPerformance(records []models.MasterRecord) []PublisherStat {
	type acc struct {
		books      int
		uk         bool
		ratings    []float64
		reviews    float64
		community  []float64
		engagement float64
	}
	groups := make(map[string]*acc)
	for _, r := range records {
		a, ok := groups[r.Book.Publisher]
		if !ok {
			a = &acc{}
			groups[r.Book.Publisher] = a
		}
		a.books++
		a.uk = a.uk || r.Book.IsUKPublisher
		a.ratings = append(a.ratings, r.Book.SourceRating)
		a.reviews += float64(r.Book.SourceReviewCount)
		if r.HasCommunityRating() {
			a.community = append(a.community, r.Community.RescaledMean)
		}
		a.engagement += r.EngagementScore
	}

	stats := make([]PublisherStat, 0, len(groups))
	for name, a := range groups {
		n := float64(a.books)
		stat := PublisherStat{
			Publisher:      name,
			Books:          a.books,
			IsUK:           a.uk,
			MeanRating:     round(mean(a.ratings), 4),
			RatingStdDev:   sampleStdDev(a.ratings),
			MeanReviews:    round(a.reviews/n, 2),
			MeanEngagement: round(a.engagement/n, 4),
		}
		if len(a.community) > 0 {
			m := round(mean(a.community), 4)
			stat.MeanCommunityRating = &m
		}
		stats = append(stats, stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].MeanEngagement != stats[j].MeanEngagement {
			return stats[i].MeanEngagement > stats[j].MeanEngagement
		}
		return stats[i].Publisher < stats[j].Publisher
	})
	return stats
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
