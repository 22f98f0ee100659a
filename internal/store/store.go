// Package store materializes the cleaned per-source tables into a SQLite
// database file.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/lehigh-university-libraries/bookjoin/internal/models"
)

// Snapshot is everything written to the relational store in one run
type Snapshot struct {
	Books        []models.BookRecord
	Ratings      []models.AggregatedRating
	Users        []models.UserProfile
	Demographics []models.DemographicRating
}

// Store wraps an open SQLite database
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps the transaction and pragmas on one handle
	db.SetMaxOpenConns(1)
	return &Store{db: db, path: path}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for read queries
func (s *Store) DB() *sql.DB {
	return s.db
}

// Write builds a fresh database at path containing snap. The database is
// assembled in a temporary file and renamed over path only after the
// transaction commits, so a failed run never leaves a partial database.
func Write(ctx context.Context, path string, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	tmp := path + ".tmp"
	_ = os.Remove(tmp)

	s, err := Open(tmp)
	if err != nil {
		return err
	}

	if err := s.load(ctx, snap); err != nil {
		s.Close()
		os.Remove(tmp)
		return err
	}
	if err := s.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close database: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move database into place: %w", err)
	}

	slog.Info("Wrote relational store",
		"path", path,
		"books", len(snap.Books),
		"community_ratings", len(snap.Ratings),
		"users", len(snap.Users),
		"demographic_ratings", len(snap.Demographics))
	return nil
}

func (s *Store) load(ctx context.Context, snap Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if err := insertBooks(ctx, tx, snap.Books); err != nil {
		return err
	}
	if err := insertRatings(ctx, tx, snap.Ratings); err != nil {
		return err
	}
	if err := insertUsers(ctx, tx, snap.Users); err != nil {
		return err
	}
	if err := insertDemographics(ctx, tx, snap.Demographics); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func insertBooks(ctx context.Context, tx *sql.Tx, books []models.BookRecord) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO books (
		book_key, isbn, isbn10, isbn13, title, authors, publisher_raw, publisher,
		is_uk_publisher, publication_date, publication_year, page_count, language,
		source_rating, source_review_count
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare books insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range books {
		if _, err := stmt.ExecContext(ctx,
			b.BookKey, nullString(b.ISBN), nullString(b.ISBN10), nullString(b.ISBN13),
			b.Title, b.Authors, b.PublisherRaw, b.Publisher,
			boolInt(b.IsUKPublisher), nullString(b.PublicationDate), nullInt(b.PublicationYear),
			nullFloat(b.PageCount), nullString(b.Language),
			b.SourceRating, b.SourceReviewCount,
		); err != nil {
			return fmt.Errorf("failed to insert book %s: %w", b.BookKey, err)
		}
	}
	return nil
}

func insertRatings(ctx context.Context, tx *sql.Tx, ratings []models.AggregatedRating) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO community_ratings (
		isbn, rating_count, mean_rating, std_rating, median_rating, rescaled_rating
	) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare community_ratings insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range ratings {
		if _, err := stmt.ExecContext(ctx,
			r.Identifier, r.Count, r.Mean, nullFloat(r.StdDev), r.Median, r.RescaledMean,
		); err != nil {
			return fmt.Errorf("failed to insert community rating %s: %w", r.Identifier, err)
		}
	}
	return nil
}

func insertUsers(ctx context.Context, tx *sql.Tx, users []models.UserProfile) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO users (
		user_id, location, age, age_group, country, is_uk
	) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare users insert: %w", err)
	}
	defer stmt.Close()

	for _, u := range users {
		if _, err := stmt.ExecContext(ctx,
			u.UserID, nullString(u.Location), nullFloat(u.Age), u.AgeGroup, u.Country, boolInt(u.IsUK),
		); err != nil {
			return fmt.Errorf("failed to insert user %d: %w", u.UserID, err)
		}
	}
	return nil
}

func insertDemographics(ctx context.Context, tx *sql.Tx, rows []models.DemographicRating) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO demographic_ratings (
		isbn, age_group, mean_rating, rating_count
	) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare demographic_ratings insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range rows {
		if _, err := stmt.ExecContext(ctx, d.Identifier, d.AgeGroup, d.Mean, d.Count); err != nil {
			return fmt.Errorf("failed to insert demographic rating %s/%s: %w", d.Identifier, d.AgeGroup, err)
		}
	}
	return nil
}

// TableCounts returns the row count of every table
func (s *Store) TableCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(Tables))
	for _, table := range Tables {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// AgeGroupInsights summarizes the demographic ratings per age group, highest
// mean rating first
func (s *Store) AgeGroupInsights(ctx context.Context) ([]models.AgeGroupInsight, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT age_group, COUNT(DISTINCT isbn), AVG(mean_rating), SUM(rating_count)
		FROM demographic_ratings
		GROUP BY age_group
		ORDER BY AVG(mean_rating) DESC, age_group`)
	if err != nil {
		return nil, fmt.Errorf("failed to query age groups: %w", err)
	}
	defer rows.Close()

	var out []models.AgeGroupInsight
	for rows.Next() {
		var g models.AgeGroupInsight
		if err := rows.Scan(&g.AgeGroup, &g.BookCount, &g.MeanRating, &g.TotalRatings); err != nil {
			return nil, fmt.Errorf("failed to scan age group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
