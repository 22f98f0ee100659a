// Package clean enforces value-range rules on loaded records. A record that
// breaks a rule is excluded from its output and counted under that rule.
package clean

import (
	"log/slog"
	"sort"

	"github.com/lehigh-university-libraries/bookjoin/internal/models"
)

// Rule names a validation rule
type Rule string

const (
	RuleCatalogRating   Rule = "catalog_rating_out_of_range"
	RuleCommunityRating Rule = "community_rating_out_of_range"
	RulePageCount       Rule = "page_count_out_of_range"
	RuleAge             Rule = "age_out_of_range"
	RuleDuplicateKey    Rule = "duplicate_key"
	RuleInvalidID       Rule = "invalid_identifier"
)

// Range is an inclusive numeric interval
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Contains reports whether v lies in [Min, Max]
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Bounds holds the accepted range for every checked field
type Bounds struct {
	CatalogRating   Range
	CommunityRating Range
	PageCount       Range
	Age             Range
}

// DefaultBounds returns the standard accepted ranges
func DefaultBounds() Bounds {
	return Bounds{
		CatalogRating:   Range{Min: 0, Max: 5},
		CommunityRating: Range{Min: 1, Max: 10},
		PageCount:       Range{Min: 10, Max: 2000},
		Age:             Range{Min: 10, Max: 100},
	}
}

// Report counts what a cleaning pass kept and dropped
type Report struct {
	Input   int          `yaml:"input" json:"input"`
	Kept    int          `yaml:"kept" json:"kept"`
	Dropped map[Rule]int `yaml:"dropped,omitempty" json:"dropped,omitempty"`
}

func newReport(input int) Report {
	return Report{Input: input, Dropped: map[Rule]int{}}
}

func (r *Report) drop(rule Rule) {
	r.Dropped[rule]++
}

// TotalDropped sums drops across all rules
func (r Report) TotalDropped() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}

// Rules returns the rules that dropped at least one record, sorted by name
func (r Report) Rules() []Rule {
	rules := make([]Rule, 0, len(r.Dropped))
	for rule := range r.Dropped {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i] < rules[j] })
	return rules
}

// Cleaner applies Bounds to each record kind
type Cleaner struct {
	bounds Bounds
}

// NewCleaner creates a cleaner with the given bounds
func NewCleaner(bounds Bounds) *Cleaner {
	return &Cleaner{bounds: bounds}
}

// CheckBook returns the first rule b violates
func (c *Cleaner) CheckBook(b models.BookRecord) (Rule, bool) {
	if !c.bounds.CatalogRating.Contains(b.SourceRating) {
		return RuleCatalogRating, false
	}
	if b.PageCount != nil && !c.bounds.PageCount.Contains(*b.PageCount) {
		return RulePageCount, false
	}
	return "", true
}

// CheckUser returns the first rule u violates. A missing age is allowed.
func (c *Cleaner) CheckUser(u models.UserProfile) (Rule, bool) {
	if u.Age != nil && !c.bounds.Age.Contains(*u.Age) {
		return RuleAge, false
	}
	return "", true
}

// CheckRating returns the first rule r violates
func (c *Cleaner) CheckRating(r models.CommunityRating) (Rule, bool) {
	if r.Identifier == "" {
		return RuleInvalidID, false
	}
	if !c.bounds.CommunityRating.Contains(r.Rating) {
		return RuleCommunityRating, false
	}
	return "", true
}

// Books keeps in-range catalog records and the first record per book key
func (c *Cleaner) Books(in []models.BookRecord) ([]models.BookRecord, Report) {
	report := newReport(len(in))
	out := make([]models.BookRecord, 0, len(in))
	seen := make(map[string]struct{}, len(in))

	for _, b := range in {
		if rule, ok := c.CheckBook(b); !ok {
			report.drop(rule)
			continue
		}
		if _, dup := seen[b.BookKey]; dup {
			report.drop(RuleDuplicateKey)
			continue
		}
		seen[b.BookKey] = struct{}{}
		out = append(out, b)
	}

	report.Kept = len(out)
	logReport("books", report)
	return out, report
}

// Users keeps in-range user profiles, one per user id
func (c *Cleaner) Users(in []models.UserProfile) ([]models.UserProfile, Report) {
	report := newReport(len(in))
	out := make([]models.UserProfile, 0, len(in))
	seen := make(map[int64]struct{}, len(in))

	for _, u := range in {
		if rule, ok := c.CheckUser(u); !ok {
			report.drop(rule)
			continue
		}
		if _, dup := seen[u.UserID]; dup {
			report.drop(RuleDuplicateKey)
			continue
		}
		seen[u.UserID] = struct{}{}
		out = append(out, u)
	}

	report.Kept = len(out)
	logReport("users", report)
	return out, report
}

// Ratings keeps explicit in-range ratings that carry a valid identifier
func (c *Cleaner) Ratings(in []models.CommunityRating) ([]models.CommunityRating, Report) {
	report := newReport(len(in))
	out := make([]models.CommunityRating, 0, len(in))

	for _, r := range in {
		if rule, ok := c.CheckRating(r); !ok {
			report.drop(rule)
			continue
		}
		out = append(out, r)
	}

	report.Kept = len(out)
	logReport("ratings", report)
	return out, report
}

// CommunityBooks keeps the first community book per valid identifier
func (c *Cleaner) CommunityBooks(in []models.CommunityBook) ([]models.CommunityBook, Report) {
	report := newReport(len(in))
	out := make([]models.CommunityBook, 0, len(in))
	seen := make(map[string]struct{}, len(in))

	for _, b := range in {
		if b.Identifier == "" {
			report.drop(RuleInvalidID)
			continue
		}
		if _, dup := seen[b.Identifier]; dup {
			report.drop(RuleDuplicateKey)
			continue
		}
		seen[b.Identifier] = struct{}{}
		out = append(out, b)
	}

	report.Kept = len(out)
	logReport("community_books", report)
	return out, report
}

func logReport(kind string, r Report) {
	slog.Debug("Cleaned records", "kind", kind, "input", r.Input, "kept", r.Kept, "dropped", r.TotalDropped())
	for _, rule := range r.Rules() {
		slog.Debug("Validation drops", "kind", kind, "rule", rule, "count", r.Dropped[rule])
	}
}
