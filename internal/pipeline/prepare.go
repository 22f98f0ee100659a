package pipeline

import (
	"github.com/lehigh-university-libraries/bookjoin/internal/dataset"
	"github.com/lehigh-university-libraries/bookjoin/internal/identifier"
	"github.com/lehigh-university-libraries/bookjoin/internal/models"
	"github.com/lehigh-university-libraries/bookjoin/internal/publisher"
)

// Preparer turns parsed rows into normalized records
type Preparer struct {
	ids        identifier.Options
	publishers *publisher.Canonicalizer
}

// NewPreparer creates a preparer
func NewPreparer(ids identifier.Options, publishers *publisher.Canonicalizer) *Preparer {
	if publishers == nil {
		publishers = publisher.NewCanonicalizer(nil, nil)
	}
	return &Preparer{ids: ids, publishers: publishers}
}

// Book resolves the key and canonical publisher of one catalog row
func (p *Preparer) Book(row dataset.CatalogRow) models.BookRecord {
	id := p.ids.Resolve(row.Title, row.Authors, row.ISBN13, row.ISBN)
	pub := p.publishers.Resolve(row.Publisher)

	return models.BookRecord{
		BookKey:           id.Key,
		ISBN:              id.ISBN,
		ISBN10:            id.ISBN10,
		ISBN13:            id.ISBN13,
		Title:             row.Title,
		Authors:           row.Authors,
		PublisherRaw:      row.Publisher,
		Publisher:         pub.Canonical,
		IsUKPublisher:     pub.IsUK,
		PublicationDate:   row.PublicationDate,
		PublicationYear:   dataset.PublicationYear(row.PublicationDate),
		PageCount:         row.PageCount,
		Language:          row.Language,
		SourceRating:      row.Rating,
		SourceReviewCount: row.ReviewCount,
	}
}

// Books prepares every catalog row
func (p *Preparer) Books(rows []dataset.CatalogRow) []models.BookRecord {
	out := make([]models.BookRecord, len(rows))
	for i, row := range rows {
		out[i] = p.Book(row)
	}
	return out
}

// CommunityBooks normalizes community book identifiers. Rows whose
// identifier is not a valid ISBN keep an empty identifier and are dropped by
// the cleaner.
func (p *Preparer) CommunityBooks(rows []dataset.CommunityBookRow) []models.CommunityBook {
	out := make([]models.CommunityBook, len(rows))
	for i, row := range rows {
		isbn, _ := identifier.CleanISBN(row.ISBN)
		out[i] = models.CommunityBook{
			Identifier: isbn,
			Title:      row.Title,
			Author:     row.Author,
			Publisher:  p.publishers.Canonicalize(row.Publisher),
			Year:       row.Year,
		}
	}
	return out
}

// Users derives the demographic attributes of each user row
func (p *Preparer) Users(rows []dataset.UserRow) []models.UserProfile {
	out := make([]models.UserProfile, len(rows))
	for i, row := range rows {
		out[i] = models.NewUserProfile(row.UserID, row.Location, row.Age)
	}
	return out
}

// Ratings normalizes the identifier of each rating row
func (p *Preparer) Ratings(rows []dataset.RatingRow) []models.CommunityRating {
	out := make([]models.CommunityRating, len(rows))
	for i, row := range rows {
		isbn, _ := identifier.CleanISBN(row.ISBN)
		out[i] = models.CommunityRating{
			UserID:        row.UserID,
			RawIdentifier: row.ISBN,
			Identifier:    isbn,
			Rating:        row.Rating,
		}
	}
	return out
}
