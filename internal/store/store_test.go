package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/bookjoin/internal/models"
)

func sampleSnapshot() Snapshot {
	pages := 412.0
	year := 1965
	age := 34.0
	std := 1.25

	return Snapshot{
		Books: []models.BookRecord{
			{BookKey: "9780441172719", ISBN: "9780441172719", ISBN13: "9780441172719", Title: "Dune", Authors: "Frank Herbert",
				PublisherRaw: "Ace Books", Publisher: "Ace Books", PublicationYear: &year, PageCount: &pages, SourceRating: 4.25, SourceReviewCount: 900},
			{BookKey: "COMP_untitled_unknown", Title: "Untitled", Publisher: "Penguin", IsUKPublisher: true, SourceRating: 3.0},
		},
		Ratings: []models.AggregatedRating{
			{Identifier: "0441172717", Count: 12, Mean: 8.5, StdDev: &std, Median: 9, RescaledMean: 4.11},
			{Identifier: "0000000001", Count: 10, Mean: 5.5, Median: 5.5, RescaledMean: 3},
		},
		Users: []models.UserProfile{
			models.NewUserProfile(1, "london, england", &age),
			models.NewUserProfile(2, "", nil),
		},
		Demographics: []models.DemographicRating{
			{Identifier: "0441172717", AgeGroup: "26-35", Mean: 8, Count: 6},
			{Identifier: "0441172717", AgeGroup: "Unknown", Mean: 9, Count: 6},
		},
	}
}

func TestWriteCreatesAllTables(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out", "bookjoin.db")

	require.NoError(t, Write(ctx, path, sampleSnapshot()))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary database should be renamed away")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	counts, err := s.TableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		"books":               2,
		"community_ratings":   2,
		"users":               2,
		"demographic_ratings": 2,
	}, counts)

	var pages sql.NullFloat64
	var uk int
	require.NoError(t, s.DB().QueryRowContext(ctx,
		"SELECT page_count, is_uk_publisher FROM books WHERE book_key = ?", "COMP_untitled_unknown").Scan(&pages, &uk))
	assert.False(t, pages.Valid, "missing page count must be stored as NULL")
	assert.Equal(t, 1, uk)

	var std sql.NullFloat64
	require.NoError(t, s.DB().QueryRowContext(ctx,
		"SELECT std_rating FROM community_ratings WHERE isbn = ?", "0000000001").Scan(&std))
	assert.False(t, std.Valid)

	var ids []int64
	rows, err := s.DB().QueryContext(ctx, "SELECT id FROM demographic_ratings ORDER BY id")
	require.NoError(t, err)
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Close())
	assert.Equal(t, []int64{1, 2}, ids)

	var indexes int
	require.NoError(t, s.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name LIKE 'idx_%'").Scan(&indexes))
	assert.Equal(t, 6, indexes)

	groups, err := s.AgeGroupInsights(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.AgeGroupInsight{
		{AgeGroup: "Unknown", BookCount: 1, MeanRating: 9, TotalRatings: 6},
		{AgeGroup: "26-35", BookCount: 1, MeanRating: 8, TotalRatings: 6},
	}, groups)
}

func TestAgeGroupInsightsUseUnweightedMeans(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bookjoin.db")

	snap := sampleSnapshot()
	snap.Demographics = []models.DemographicRating{
		{Identifier: "0441172717", AgeGroup: "18-25", Mean: 9, Count: 30},
		{Identifier: "0000000001", AgeGroup: "18-25", Mean: 5, Count: 10},
		{Identifier: "0000000001", AgeGroup: "66+", Mean: 7.5, Count: 4},
	}
	require.NoError(t, Write(ctx, path, snap))

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	groups, err := s.AgeGroupInsights(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "66+", groups[0].AgeGroup)
	assert.Equal(t, "18-25", groups[1].AgeGroup)
	assert.Equal(t, 2, groups[1].BookCount)
	assert.InDelta(t, 7.0, groups[1].MeanRating, 1e-9)
	assert.Equal(t, 40, groups[1].TotalRatings)
}

func TestWriteReplacesExistingDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bookjoin.db")

	require.NoError(t, Write(ctx, path, sampleSnapshot()))

	smaller := sampleSnapshot()
	smaller.Books = smaller.Books[:1]
	require.NoError(t, Write(ctx, path, smaller))

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	counts, err := s.TableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["books"])
}

func TestWriteFailureLeavesPreviousDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bookjoin.db")
	require.NoError(t, Write(ctx, path, sampleSnapshot()))

	// Duplicate primary keys make the transaction fail
	broken := sampleSnapshot()
	broken.Books = append(broken.Books, broken.Books[0])
	require.Error(t, Write(ctx, path, broken))

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	counts, err := s.TableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["books"], "previous database must survive a failed write")
}
