package export

import (
	"context"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/lehigh-university-libraries/bookjoin/internal/models"
	"github.com/lehigh-university-libraries/bookjoin/internal/storage"
)

// MasterRow is the columnar layout of the master table
type MasterRow struct {
	BookKey               string   `parquet:"book_key"`
	ISBN                  *string  `parquet:"isbn,optional"`
	Title                 string   `parquet:"title"`
	Authors               string   `parquet:"authors"`
	Publisher             string   `parquet:"publisher"`
	IsUKPublisher         bool     `parquet:"is_uk_publisher"`
	PublicationYear       *int64   `parquet:"publication_year,optional"`
	PageCount             *float64 `parquet:"page_count,optional"`
	Language              *string  `parquet:"language,optional"`
	SourceRating          float64  `parquet:"source_rating"`
	SourceReviewCount     int64    `parquet:"source_review_count"`
	CommunityRating       *float64 `parquet:"community_rating,optional"`
	CommunityRatingCount  *int64   `parquet:"community_rating_count,optional"`
	CommunityRatingStdDev *float64 `parquet:"community_rating_stddev,optional"`
	CommunityRatingMedian *float64 `parquet:"community_rating_median,optional"`
	RatingGap             *float64 `parquet:"rating_gap,optional"`
	EngagementScore       float64  `parquet:"engagement_score"`
	Category              string   `parquet:"category"`
	MatchMethod           string   `parquet:"match_method"`
	MatchScore            *float64 `parquet:"match_score,optional"`
}

// NewMasterRow flattens a master record
func NewMasterRow(r models.MasterRecord) MasterRow {
	b := r.Book
	row := MasterRow{
		BookKey:           b.BookKey,
		ISBN:              strPtr(b.ISBN),
		Title:             b.Title,
		Authors:           b.Authors,
		Publisher:         b.Publisher,
		IsUKPublisher:     b.IsUKPublisher,
		PublicationYear:   int64Ptr(b.PublicationYear),
		PageCount:         b.PageCount,
		Language:          strPtr(b.Language),
		SourceRating:      b.SourceRating,
		SourceReviewCount: int64(b.SourceReviewCount),
		RatingGap:         r.RatingGap,
		EngagementScore:   r.EngagementScore,
		Category:          string(r.Category),
		MatchMethod:       string(r.MatchMethod),
		MatchScore:        r.MatchScore,
	}
	if c := r.Community; c != nil {
		rating := c.RescaledMean
		count := int64(c.Count)
		median := c.Median
		row.CommunityRating = &rating
		row.CommunityRatingCount = &count
		row.CommunityRatingStdDev = c.StdDev
		row.CommunityRatingMedian = &median
	}
	return row
}

// Parquet writes the master table as a Parquet file
func (e *Exporter) Parquet(ctx context.Context, records []models.MasterRecord) error {
	rows := make([]MasterRow, len(records))
	for i, r := range records {
		rows[i] = NewMasterRow(r)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path := e.Path(FormatParquet)
	err := storage.WriteFile(path, func(w io.Writer) error {
		writer := parquet.NewGenericWriter[MasterRow](w)
		if _, err := writer.Write(rows); err != nil {
			return fmt.Errorf("parquet write: %w", err)
		}
		if err := writer.Close(); err != nil {
			return fmt.Errorf("parquet close: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.artifacts.Set(storage.Artifact{Name: FormatParquet, Path: path, Rows: len(records)})
	return nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func int64Ptr(v *int) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}
