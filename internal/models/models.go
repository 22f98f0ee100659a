package models

// BookRecord represents one catalog entry after identifier normalization
type BookRecord struct {
	BookKey         string   `json:"book_key"`
	ISBN            string   `json:"isbn,omitempty"`  // preferred valid ISBN, empty when keyed by composite
	ISBN10          string   `json:"isbn10,omitempty"`
	ISBN13          string   `json:"isbn13,omitempty"`
	Title           string   `json:"title"`
	Authors         string   `json:"authors"`
	PublisherRaw    string   `json:"publisher_raw,omitempty"`
	Publisher       string   `json:"publisher"`
	IsUKPublisher   bool     `json:"is_uk_publisher"`
	PublicationDate string   `json:"publication_date,omitempty"`
	PublicationYear *int     `json:"publication_year,omitempty"`
	PageCount       *float64 `json:"page_count,omitempty"`
	Language        string   `json:"language,omitempty"`

	// Catalog scale is 0-5
	SourceRating      float64 `json:"source_rating"`
	SourceReviewCount int     `json:"source_review_count"`
}

// HasCompositeKey reports whether the book is keyed by title/author instead of ISBN
func (b BookRecord) HasCompositeKey() bool {
	return b.ISBN == ""
}

// CommunityBook is a book row from the community dataset
type CommunityBook struct {
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Publisher  string `json:"publisher,omitempty"`
	Year       *int   `json:"year,omitempty"`
}

// CommunityRating is one user's explicit rating of a book on the 1-10 scale
type CommunityRating struct {
	UserID        int64   `json:"user_id"`
	RawIdentifier string  `json:"raw_identifier"`
	Identifier    string  `json:"identifier"`
	Rating        float64 `json:"rating"`
}

// UserProfile holds the demographic attributes of a community user
type UserProfile struct {
	UserID   int64    `json:"user_id"`
	Location string   `json:"location,omitempty"`
	Age      *float64 `json:"age,omitempty"`
	AgeGroup string   `json:"age_group"`
	Country  string   `json:"country"`
	IsUK     bool     `json:"is_uk"`
}

// AggregatedRating summarizes all accepted ratings for one identifier
type AggregatedRating struct {
	Identifier   string   `json:"identifier"`
	Count        int      `json:"count"`
	Mean         float64  `json:"mean"`
	StdDev       *float64 `json:"std_dev,omitempty"` // nil when Count < 2
	Median       float64  `json:"median"`
	RescaledMean float64  `json:"rescaled_mean"` // on the catalog 1-5 scale
}

// DemographicRating summarizes ratings for one identifier within one age group
type DemographicRating struct {
	Identifier string  `json:"identifier"`
	AgeGroup   string  `json:"age_group"`
	Mean       float64 `json:"mean"`
	Count      int     `json:"count"`
}

// AgeGroupInsight summarizes the demographic ratings of one age group.
// MeanRating is the unweighted mean of the per-book means, on the 1-10 scale.
type AgeGroupInsight struct {
	AgeGroup     string  `json:"age_group" yaml:"age_group"`
	BookCount    int     `json:"book_count" yaml:"book_count"`
	MeanRating   float64 `json:"mean_rating" yaml:"mean_rating"`
	TotalRatings int     `json:"total_ratings" yaml:"total_ratings"`
}

// MatchMethod records how a catalog book was linked to community ratings
type MatchMethod string

const (
	MatchDirect MatchMethod = "direct"
	MatchFuzzy  MatchMethod = "fuzzy"
	MatchNone   MatchMethod = "none"
)

// MatchLink maps a catalog book key to a community identifier found by fuzzy matching
type MatchLink struct {
	BookKey    string  `json:"book_key"`
	Identifier string  `json:"identifier"`
	Score      float64 `json:"score"`
}

// Category buckets a book by rating and exposure
type Category string

const (
	CategoryHiddenGem       Category = "Hidden Gem"
	CategoryPopularFavorite Category = "Popular Favorite"
	CategoryUnderperformer  Category = "Underperformer"
	CategoryAverage         Category = "Average"
	CategoryUnrated         Category = "Unrated"
)

// Categories lists every category in report order
var Categories = []Category{
	CategoryHiddenGem,
	CategoryPopularFavorite,
	CategoryUnderperformer,
	CategoryAverage,
	CategoryUnrated,
}

// MasterRecord is one row of the unified table: the catalog book plus whatever
// community evidence was linked to it
type MasterRecord struct {
	Book            BookRecord        `json:"book"`
	Community       *AggregatedRating `json:"community,omitempty"`
	MatchMethod     MatchMethod       `json:"match_method"`
	MatchScore      *float64          `json:"match_score,omitempty"`
	RatingGap       *float64          `json:"rating_gap,omitempty"`
	EngagementScore float64           `json:"engagement_score"`
	Category        Category          `json:"category"`
}

// HasCommunityRating reports whether community evidence was linked
func (m MasterRecord) HasCommunityRating() bool {
	return m.Community != nil
}
