// Package identifier derives the stable join key for a book: a cleaned ISBN
// when one is usable, otherwise a composite key built from title and author.
package identifier

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CompositePrefix marks keys that were not derived from an ISBN
const CompositePrefix = "COMP_"

const unknownPart = "unknown"

// Options bounds the title and author portions of a composite key
type Options struct {
	TitleLength  int
	AuthorLength int
}

// DefaultOptions returns the standard composite key bounds
func DefaultOptions() Options {
	return Options{TitleLength: 30, AuthorLength: 20}
}

// Result is the outcome of resolving a book's identifiers
type Result struct {
	Key       string // never empty
	ISBN      string // preferred ISBN, empty when Composite is true
	ISBN10    string
	ISBN13    string
	Composite bool
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CleanISBN strips every non-alphanumeric character and accepts the result
// only when it is 10 or 13 characters long. Check digits are not verified.
func CleanISBN(raw string) (string, bool) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}

	cleaned := b.String()
	if len(cleaned) != 10 && len(cleaned) != 13 {
		return "", false
	}
	return cleaned, true
}

// Resolve picks the key for a book. Every valid candidate ISBN is kept; a
// 13-character form is preferred over a 10-character one, and the composite
// key is used only when no candidate is valid.
func (o Options) Resolve(title, author string, candidates ...string) Result {
	var res Result
	for _, c := range candidates {
		isbn, ok := CleanISBN(c)
		if !ok {
			continue
		}
		switch len(isbn) {
		case 13:
			if res.ISBN13 == "" {
				res.ISBN13 = isbn
			}
		case 10:
			if res.ISBN10 == "" {
				res.ISBN10 = isbn
			}
		}
	}

	switch {
	case res.ISBN13 != "":
		res.ISBN = res.ISBN13
	case res.ISBN10 != "":
		res.ISBN = res.ISBN10
	default:
		res.Composite = true
		res.Key = o.CompositeKey(title, author)
		return res
	}

	res.Key = res.ISBN
	return res
}

// CompositeKey builds COMP_<title>_<author> from the lowercased, accent-folded,
// alphanumeric-only title and first author, each truncated to its bound.
func (o Options) CompositeKey(title, author string) string {
	t := keyPart(title, o.TitleLength)
	a := keyPart(FirstAuthor(author), o.AuthorLength)
	return CompositePrefix + t + "_" + a
}

// IsComposite reports whether key was produced by CompositeKey
func IsComposite(key string) bool {
	return strings.HasPrefix(key, CompositePrefix)
}

// FirstAuthor returns the first name of a multi-author field. Catalog exports
// separate authors with "/", community exports with ",".
func FirstAuthor(authors string) string {
	first := authors
	if i := strings.IndexAny(first, "/;"); i >= 0 {
		first = first[:i]
	}
	if i := strings.Index(first, ","); i >= 0 {
		first = first[:i]
	}
	return strings.TrimSpace(first)
}

// Fold lowercases s and removes diacritics
func Fold(s string) string {
	folded, _, err := transform.String(stripAccents, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return folded
}

func keyPart(s string, limit int) string {
	var b strings.Builder
	n := 0
	for _, r := range Fold(s) {
		if limit > 0 && n >= limit {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			n++
		}
	}
	if b.Len() == 0 {
		return unknownPart
	}
	return b.String()
}
