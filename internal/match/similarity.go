package match

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agext/levenshtein"
	"github.com/lehigh-university-libraries/bookjoin/internal/identifier"
)

// Scorer returns a similarity in [0,1] for two normalized strings
type Scorer func(a, b string) float64

// Scorer names accepted by ScorerByName
const (
	ScorerTokenSort = "token_sort"
	ScorerEdit      = "edit"
)

// namedScorer is an edit-ratio scorer and the form of the text it compares
type namedScorer struct {
	scorer Scorer
	form   func(string) string
}

var scorers = map[string]namedScorer{
	"":              {scorer: TokenSortRatio, form: tokenSortForm},
	ScorerTokenSort: {scorer: TokenSortRatio, form: tokenSortForm},
	ScorerEdit:      {scorer: EditRatio, form: identityForm},
}

// ScorerByName resolves a configured scorer name
func ScorerByName(name string) (Scorer, bool) {
	m, ok := scorers[name]
	if !ok {
		return nil, false
	}
	return m.scorer, true
}

// Normalize lowercases s, removes accents and punctuation, and collapses
// whitespace
func Normalize(s string) string {
	folded := identifier.Fold(s)
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded)
	return strings.Join(strings.Fields(cleaned), " ")
}

// Text builds the normalized matching text for a book
func Text(title, authors string) string {
	return Normalize(title + " " + identifier.FirstAuthor(authors))
}

// EditRatio is 1 - levenshtein(a, b) / max(len(a), len(b)) over runes
func EditRatio(a, b string) float64 {
	if a == b {
		return 1.0
	}

	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}

	dist := levenshtein.Distance(a, b, nil)
	return 1.0 - float64(dist)/float64(maxLen)
}

// TokenSortRatio compares the two strings after sorting their tokens, so
// word order does not affect the score
func TokenSortRatio(a, b string) float64 {
	return EditRatio(tokenSortForm(a), tokenSortForm(b))
}

func tokenSortForm(s string) string {
	return sortTokens(Normalize(s))
}

func identityForm(s string) string {
	return s
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
