package export

import (
	"strconv"

	"github.com/lehigh-university-libraries/bookjoin/internal/models"
)

// Columns is the flat master table layout shared by every export format
var Columns = []string{
	"book_key",
	"isbn",
	"title",
	"authors",
	"publisher",
	"is_uk_publisher",
	"publication_year",
	"page_count",
	"language",
	"source_rating",
	"source_review_count",
	"community_rating",
	"community_rating_count",
	"community_rating_stddev",
	"community_rating_median",
	"rating_gap",
	"engagement_score",
	"category",
	"match_method",
	"match_score",
}

// values returns the typed cell values of r in Columns order. Absent values
// are nil.
func values(r models.MasterRecord) []any {
	b := r.Book
	v := []any{
		b.BookKey,
		emptyNil(b.ISBN),
		b.Title,
		b.Authors,
		b.Publisher,
		b.IsUKPublisher,
		intOrNil(b.PublicationYear),
		floatOrNil(b.PageCount),
		emptyNil(b.Language),
		b.SourceRating,
		b.SourceReviewCount,
		nil, nil, nil, nil,
		floatOrNil(r.RatingGap),
		r.EngagementScore,
		string(r.Category),
		string(r.MatchMethod),
		floatOrNil(r.MatchScore),
	}
	if c := r.Community; c != nil {
		v[11] = c.RescaledMean
		v[12] = c.Count
		v[13] = floatOrNil(c.StdDev)
		v[14] = c.Median
	}
	return v
}

// stringValues renders values for text formats. Nulls become empty strings
// and floats use the shortest exact representation.
func stringValues(r models.MasterRecord) []string {
	raw := values(r)
	out := make([]string, len(raw))
	for i, v := range raw {
		switch x := v.(type) {
		case nil:
			out[i] = ""
		case string:
			out[i] = x
		case bool:
			out[i] = strconv.FormatBool(x)
		case int:
			out[i] = strconv.Itoa(x)
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		}
	}
	return out
}

func emptyNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func intOrNil(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
