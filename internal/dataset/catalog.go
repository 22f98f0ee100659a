package dataset

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// CatalogRow is one parsed catalog record before identifier normalization
type CatalogRow struct {
	Line            int
	ISBN            string
	ISBN13          string
	Title           string
	Authors         string
	Publisher       string
	PublicationDate string
	Language        string
	Rating          float64
	ReviewCount     int
	PageCount       *float64
}

// catalogParquetRow is the columnar layout of a catalog export
type catalogParquetRow struct {
	ISBN            string  `parquet:"isbn,optional"`
	ISBN13          string  `parquet:"isbn13,optional"`
	Title           string  `parquet:"title"`
	Authors         string  `parquet:"authors,optional"`
	Publisher       string  `parquet:"publisher,optional"`
	PublicationDate string  `parquet:"publication_date,optional"`
	Language        string  `parquet:"language_code,optional"`
	AverageRating   float64 `parquet:"average_rating"`
	RatingsCount    int64   `parquet:"ratings_count"`
	NumPages        *int64  `parquet:"num_pages,optional"`
}

var (
	colTitle     = []string{"title", "book_title"}
	colAuthors   = []string{"authors", "author", "book_author"}
	colISBN      = []string{"isbn", "isbn10"}
	colISBN13    = []string{"isbn13"}
	colRating    = []string{"average_rating", "rating"}
	colReviews   = []string{"ratings_count", "review_count", "reviews"}
	colPages     = []string{"num_pages", "page_count", "pages"}
	colLanguage  = []string{"language_code", "language"}
	colPubDate   = []string{"publication_date", "year_of_publication", "year"}
	colPublisher = []string{"publisher"}
)

// CatalogLoader reads the curated catalog dataset
type CatalogLoader struct {
	datasetPath string
}

// NewCatalogLoader creates a loader for a .csv or .parquet catalog file
func NewCatalogLoader(datasetPath string) *CatalogLoader {
	return &CatalogLoader{
		datasetPath: datasetPath,
	}
}

// Load reads all catalog rows, detecting the format from the file extension
func (l *CatalogLoader) Load() ([]CatalogRow, LoadReport, error) {
	ext := strings.ToLower(filepath.Ext(l.datasetPath))

	switch ext {
	case ".csv":
		return l.loadCSV()
	case ".parquet":
		return l.loadParquet()
	default:
		return nil, newLoadReport(l.datasetPath), fmt.Errorf("unsupported file format: %s (supported: .csv, .parquet)", ext)
	}
}

func (l *CatalogLoader) loadCSV() ([]CatalogRow, LoadReport, error) {
	slog.Debug("Opening catalog CSV", "path", l.datasetPath)

	required := [][]string{colTitle, append(append([]string{}, colISBN...), colISBN13...), colRating}

	var rows []CatalogRow
	report, err := readTable(l.datasetPath, CatalogFormat, required, func(r row) error {
		rating, err := r.float("bad_rating", colRating...)
		if err != nil {
			return err
		}

		reviews := 0
		if v := r.value(colReviews...); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return malformed(r.line, "bad_review_count")
			}
			reviews = n
		}

		rows = append(rows, CatalogRow{
			Line:            r.line,
			ISBN:            r.value(colISBN...),
			ISBN13:          r.value(colISBN13...),
			Title:           r.value(colTitle...),
			Authors:         r.value(colAuthors...),
			Publisher:       r.value(colPublisher...),
			PublicationDate: r.value(colPubDate...),
			Language:        r.value(colLanguage...),
			Rating:          rating,
			ReviewCount:     reviews,
			PageCount:       r.optionalFloat(colPages...),
		})
		return nil
	})
	if err != nil {
		return nil, report, err
	}

	return rows, report, nil
}

func (l *CatalogLoader) loadParquet() ([]CatalogRow, LoadReport, error) {
	slog.Debug("Opening Parquet file", "path", l.datasetPath)
	report := newLoadReport(l.datasetPath)

	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, report, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, report, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, report, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened successfully", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[catalogParquetRow](pf)
	defer reader.Close()

	var records []CatalogRow
	batch := make([]catalogParquetRow, 128)

	for {
		n, err := reader.Read(batch)
		for i := 0; i < n; i++ {
			report.Rows++
			p := batch[i]
			rec := CatalogRow{
				Line:            report.Rows,
				ISBN:            strings.TrimSpace(p.ISBN),
				ISBN13:          strings.TrimSpace(p.ISBN13),
				Title:           strings.TrimSpace(p.Title),
				Authors:         strings.TrimSpace(p.Authors),
				Publisher:       strings.TrimSpace(p.Publisher),
				PublicationDate: strings.TrimSpace(p.PublicationDate),
				Language:        strings.TrimSpace(p.Language),
				Rating:          p.AverageRating,
				ReviewCount:     int(p.RatingsCount),
			}
			if p.NumPages != nil {
				pages := float64(*p.NumPages)
				rec.PageCount = &pages
			}
			records = append(records, rec)
			report.Loaded++
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, report, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	logLoadReport(report)
	return records, report, nil
}

// PublicationYear extracts a four-digit year from dates such as "9/16/2006",
// "2006-09-16" or "2006". Zero and unparsable values yield nil.
func PublicationYear(date string) *int {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil
	}

	for _, part := range strings.FieldsFunc(date, func(r rune) bool { return r == '/' || r == '-' || r == '.' || r == ' ' }) {
		if len(part) != 4 {
			continue
		}
		year, err := strconv.Atoi(part)
		if err == nil && year > 0 {
			return &year
		}
	}
	return nil
}
