package dataset

import (
	"log/slog"
	"strconv"
)

// CommunityBookRow is one row of the community books table
type CommunityBookRow struct {
	ISBN      string
	Title     string
	Author    string
	Publisher string
	Year      *int
}

// UserRow is one row of the community users table
type UserRow struct {
	UserID   int64
	Location string
	Age      *float64
}

// RatingRow is one row of the community ratings table
type RatingRow struct {
	UserID int64
	ISBN   string
	Rating float64
}

var (
	colUserID   = []string{"user_id", "userid"}
	colLocation = []string{"location"}
	colAge      = []string{"age"}
	colBookISBN = []string{"isbn"}
	colScore    = []string{"book_rating", "rating"}
)

// CommunityLoader reads the three community tables
type CommunityLoader struct {
	format Format
}

// NewCommunityLoader creates a loader for files in the given encoding
func NewCommunityLoader(encoding string) *CommunityLoader {
	f := CommunityFormat
	if encoding != "" {
		f.Encoding = encoding
	}
	return &CommunityLoader{format: f}
}

// LoadBooks reads the community books table
func (l *CommunityLoader) LoadBooks(path string) ([]CommunityBookRow, LoadReport, error) {
	var rows []CommunityBookRow
	report, err := readTable(path, l.format, [][]string{colBookISBN, colTitle}, func(r row) error {
		book := CommunityBookRow{
			ISBN:      r.value(colBookISBN...),
			Title:     r.value(colTitle...),
			Author:    r.value(colAuthors...),
			Publisher: r.value(colPublisher...),
		}
		if y := r.optionalInt(colPubDate...); y != nil && *y > 0 {
			book.Year = y
		}
		rows = append(rows, book)
		return nil
	})
	return rows, report, err
}

// LoadUsers reads the community users table
func (l *CommunityLoader) LoadUsers(path string) ([]UserRow, LoadReport, error) {
	var rows []UserRow
	report, err := readTable(path, l.format, [][]string{colUserID}, func(r row) error {
		id, err := strconv.ParseInt(r.value(colUserID...), 10, 64)
		if err != nil {
			return malformed(r.line, "bad_user_id")
		}
		rows = append(rows, UserRow{
			UserID:   id,
			Location: r.value(colLocation...),
			Age:      r.optionalFloat(colAge...),
		})
		return nil
	})
	return rows, report, err
}

// LoadRatings reads the community ratings table
func (l *CommunityLoader) LoadRatings(path string) ([]RatingRow, LoadReport, error) {
	var rows []RatingRow
	report, err := readTable(path, l.format, [][]string{colUserID, colBookISBN, colScore}, func(r row) error {
		id, err := strconv.ParseInt(r.value(colUserID...), 10, 64)
		if err != nil {
			return malformed(r.line, "bad_user_id")
		}
		rating, err := r.float("bad_rating", colScore...)
		if err != nil {
			return err
		}
		rows = append(rows, RatingRow{UserID: id, ISBN: r.value(colBookISBN...), Rating: rating})
		return nil
	})
	if err == nil {
		slog.Debug("Community ratings read", "path", path, "ratings", len(rows))
	}
	return rows, report, err
}
