// Package publisher maps free-text publisher names onto canonical imprints.
package publisher

import (
	"strings"
)

// Unknown is the canonical name for an empty publisher field
const Unknown = "Unknown"

// Rule maps any publisher containing Keyword to Canonical
type Rule struct {
	Keyword   string `yaml:"keyword" json:"keyword"`
	Canonical string `yaml:"canonical" json:"canonical"`
}

// DefaultRules is the ordered rule table. Order matters: the first matching
// keyword wins, so "Penguin Random House" resolves to Penguin.
var DefaultRules = []Rule{
	{Keyword: "PENGUIN", Canonical: "Penguin"},
	{Keyword: "BLOOMSBURY", Canonical: "Bloomsbury"},
	{Keyword: "HARPERCOLLINS", Canonical: "HarperCollins"},
	{Keyword: "HARPER COLLINS", Canonical: "HarperCollins"},
	{Keyword: "HARPER", Canonical: "HarperCollins"},
	{Keyword: "MACMILLAN", Canonical: "Macmillan"},
	{Keyword: "ORION", Canonical: "Orion"},
	{Keyword: "FABER", Canonical: "Faber & Faber"},
	{Keyword: "RANDOM HOUSE", Canonical: "Random House"},
	{Keyword: "RANDOMHOUSE", Canonical: "Random House"},
}

// DefaultUKKeywords flag a canonical publisher as UK-based
var DefaultUKKeywords = []string{
	"PENGUIN",
	"BLOOMSBURY",
	"HARPERCOLLINS",
	"MACMILLAN",
	"ORION",
	"FABER",
	"CANONGATE",
	"HACHETTE UK",
}

// Result is the canonical form of one publisher string
type Result struct {
	Canonical string
	IsUK      bool
	Rule      int // index of the matching rule, -1 when passed through
}

// Canonicalizer applies an ordered rule table
type Canonicalizer struct {
	rules      []Rule
	keywords   []string // upper-cased rule keywords, same order as rules
	ukKeywords []string
}

// NewCanonicalizer creates a canonicalizer. Nil slices select the defaults.
func NewCanonicalizer(rules []Rule, ukKeywords []string) *Canonicalizer {
	if rules == nil {
		rules = DefaultRules
	}
	if ukKeywords == nil {
		ukKeywords = DefaultUKKeywords
	}

	c := &Canonicalizer{
		rules:      append([]Rule(nil), rules...),
		keywords:   make([]string, len(rules)),
		ukKeywords: make([]string, len(ukKeywords)),
	}
	for i, r := range rules {
		c.keywords[i] = strings.ToUpper(strings.TrimSpace(r.Keyword))
	}
	for i, k := range ukKeywords {
		c.ukKeywords[i] = strings.ToUpper(strings.TrimSpace(k))
	}
	return c
}

// Resolve canonicalizes raw and computes the UK flag
func (c *Canonicalizer) Resolve(raw string) Result {
	canonical, rule := c.canonicalize(raw)
	return Result{
		Canonical: canonical,
		IsUK:      c.IsUK(canonical),
		Rule:      rule,
	}
}

// Canonicalize returns the canonical publisher name for raw
func (c *Canonicalizer) Canonicalize(raw string) string {
	canonical, _ := c.canonicalize(raw)
	return canonical
}

// IsUK reports whether the canonical name contains a UK publisher keyword
func (c *Canonicalizer) IsUK(canonical string) bool {
	upper := strings.ToUpper(canonical)
	for _, k := range c.ukKeywords {
		if k != "" && strings.Contains(upper, k) {
			return true
		}
	}
	return false
}

func (c *Canonicalizer) canonicalize(raw string) (string, int) {
	cleaned := strings.Join(strings.Fields(raw), " ")
	if cleaned == "" {
		return Unknown, -1
	}

	upper := strings.ToUpper(cleaned)
	for i, k := range c.keywords {
		if k != "" && strings.Contains(upper, k) {
			return c.rules[i].Canonical, i
		}
	}

	// Unmatched names pass through with whitespace collapsed
	return cleaned, -1
}
