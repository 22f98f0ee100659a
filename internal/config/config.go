// Package config loads pipeline settings from defaults, an optional YAML
// file, BOOKJOIN_* environment variables and command-line flags, in that
// order of precedence.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/bookjoin/internal/aggregate"
	"github.com/lehigh-university-libraries/bookjoin/internal/clean"
	"github.com/lehigh-university-libraries/bookjoin/internal/dataset"
	"github.com/lehigh-university-libraries/bookjoin/internal/identifier"
	"github.com/lehigh-university-libraries/bookjoin/internal/join"
	"github.com/lehigh-university-libraries/bookjoin/internal/match"
	"github.com/lehigh-university-libraries/bookjoin/internal/publisher"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "bookjoin.schema.json"

// Community file names used when only a directory is configured
const (
	DefaultCommunityBooks   = "BX-Books.csv"
	DefaultCommunityUsers   = "BX-Users.csv"
	DefaultCommunityRatings = "BX-Book-Ratings.csv"
)

// Output formats
const (
	FormatCSV     = "csv"
	FormatXLSX    = "xlsx"
	FormatParquet = "parquet"
)

// Config is the complete pipeline configuration
type Config struct {
	Inputs     Inputs     `yaml:"inputs"`
	Output     Output     `yaml:"output"`
	Thresholds Thresholds `yaml:"thresholds"`
	Scales     Scales     `yaml:"scales"`
	Bounds     Bounds     `yaml:"bounds"`
	Composite  Composite  `yaml:"composite"`
	Match      Match      `yaml:"match"`
	Categories Categories `yaml:"categories"`
	Publishers Publishers `yaml:"publishers"`
	Master     Master     `yaml:"master"`
	Log        Log        `yaml:"log"`
}

// Inputs locates the source datasets
type Inputs struct {
	Catalog           string `yaml:"catalog"`
	CommunityDir      string `yaml:"community_dir"`
	CommunityBooks    string `yaml:"community_books"`
	CommunityUsers    string `yaml:"community_users"`
	CommunityRatings  string `yaml:"community_ratings"`
	CommunityEncoding string `yaml:"community_encoding"`
}

// Output controls where artifacts are written
type Output struct {
	Dir         string   `yaml:"dir"`
	Database    string   `yaml:"database"`
	Diagnostics string   `yaml:"diagnostics"`
	Formats     []string `yaml:"formats"`
}

// Thresholds are the minimum sample sizes and match confidence
type Thresholds struct {
	MinRatings            int     `yaml:"min_ratings"`
	DemographicMinRatings int     `yaml:"demographic_min_ratings"`
	MatchConfidence       float64 `yaml:"match_confidence"`
}

// Scales are the rating ranges of each source
type Scales struct {
	Catalog       clean.Range     `yaml:"catalog"`
	CatalogTarget aggregate.Scale `yaml:"catalog_target"`
	Community     clean.Range     `yaml:"community"`
}

// Bounds are the accepted ranges of numeric attributes
type Bounds struct {
	PageCount clean.Range `yaml:"page_count"`
	Age       clean.Range `yaml:"age"`
}

// Composite bounds the composite key parts
type Composite struct {
	TitleLength  int `yaml:"title_length"`
	AuthorLength int `yaml:"author_length"`
}

// Match selects the fuzzy matching strategy
type Match struct {
	Strategy string `yaml:"strategy"`
	Scorer   string `yaml:"scorer"`
	Workers  int    `yaml:"workers"`
}

// Categories holds the category thresholds
type Categories struct {
	HighRating      float64 `yaml:"high_rating"`
	LowRating       float64 `yaml:"low_rating"`
	ExposureReviews int     `yaml:"exposure_reviews"`
}

// Publishers holds the canonicalization rule table
type Publishers struct {
	Rules      []publisher.Rule `yaml:"rules"`
	UKKeywords []string         `yaml:"uk_keywords"`
}

// Master filters the master table
type Master struct {
	RequireUKOrRated bool `yaml:"require_uk_or_rated"`
}

// Log sets the log level
type Log struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	bounds := clean.DefaultBounds()
	agg := aggregate.DefaultOptions()
	ids := identifier.DefaultOptions()
	cats := join.DefaultOptions()

	workers := DefaultWorkers()

	return &Config{
		Inputs: Inputs{
			Catalog:           "data/books.csv",
			CommunityDir:      "data",
			CommunityEncoding: dataset.EncodingLatin1,
		},
		Output: Output{
			Dir:         "output",
			Database:    "bookjoin.db",
			Diagnostics: "diagnostics.yaml",
			Formats:     []string{FormatCSV, FormatXLSX, FormatParquet},
		},
		Thresholds: Thresholds{
			MinRatings:            agg.MinRatings,
			DemographicMinRatings: agg.DemographicMinRatings,
			MatchConfidence:       0.85,
		},
		Scales: Scales{
			Catalog:       bounds.CatalogRating,
			CatalogTarget: agg.To,
			Community:     bounds.CommunityRating,
		},
		Bounds: Bounds{
			PageCount: bounds.PageCount,
			Age:       bounds.Age,
		},
		Composite: Composite{
			TitleLength:  ids.TitleLength,
			AuthorLength: ids.AuthorLength,
		},
		Match: Match{
			Strategy: match.StrategyExhaustive,
			Scorer:   match.ScorerTokenSort,
			Workers:  workers,
		},
		Categories: Categories{
			HighRating:      cats.HighRating,
			LowRating:       cats.LowRating,
			ExposureReviews: cats.ExposureReviews,
		},
		Publishers: Publishers{
			Rules:      append([]publisher.Rule(nil), publisher.DefaultRules...),
			UKKeywords: append([]string(nil), publisher.DefaultUKKeywords...),
		},
		Log: Log{Level: "info"},
	}
}

// Load builds a configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment, then validates it
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &Error{Field: "file", Message: "failed to read " + path, Cause: err}
		}
		if err := validateDocument(data); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &Error{Field: "file", Message: "failed to parse " + path, Cause: err}
		}
		slog.Debug("Loaded config file", "path", path)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateDocument checks a YAML document against the embedded schema
func validateDocument(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return &Error{Field: "file", Message: "invalid YAML", Cause: err}
	}
	if doc == nil {
		return nil
	}

	// Round-trip through JSON so the validator sees json.Number values
	raw, err := json.Marshal(doc)
	if err != nil {
		return &Error{Field: "file", Message: "document cannot be represented as JSON", Cause: err}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return &Error{Field: "file", Message: "failed to decode document", Cause: err}
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("failed to add config schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return fmt.Errorf("failed to compile config schema: %w", err)
	}

	if err := schema.Validate(v); err != nil {
		return &Error{Field: "file", Message: "schema validation failed", Cause: err}
	}
	return nil
}

// ApplyEnv overrides fields from BOOKJOIN_* environment variables
func (c *Config) ApplyEnv() error {
	c.Inputs.Catalog = getEnv("BOOKJOIN_CATALOG", c.Inputs.Catalog)
	c.Inputs.CommunityDir = getEnv("BOOKJOIN_COMMUNITY_DIR", c.Inputs.CommunityDir)
	c.Inputs.CommunityEncoding = getEnv("BOOKJOIN_COMMUNITY_ENCODING", c.Inputs.CommunityEncoding)
	c.Output.Dir = getEnv("BOOKJOIN_OUTPUT_DIR", c.Output.Dir)
	c.Match.Strategy = getEnv("BOOKJOIN_MATCH_STRATEGY", c.Match.Strategy)
	c.Log.Level = getEnv("BOOKJOIN_LOG_LEVEL", c.Log.Level)

	if v := os.Getenv("BOOKJOIN_FORMATS"); v != "" {
		c.Output.Formats = ParseFormats(v)
	}

	var err error
	if c.Thresholds.MinRatings, err = getEnvAsInt("BOOKJOIN_MIN_RATINGS", c.Thresholds.MinRatings); err != nil {
		return err
	}
	workers, err := getEnvAsInt("BOOKJOIN_WORKERS", c.Match.Workers)
	if err != nil {
		return err
	}
	c.SetWorkers(workers)
	if c.Thresholds.MatchConfidence, err = getEnvAsFloat("BOOKJOIN_MATCH_CONFIDENCE", c.Thresholds.MatchConfidence); err != nil {
		return err
	}
	return nil
}

// DefaultWorkers is one fuzzy matching worker per CPU
func DefaultWorkers() int {
	return max(runtime.NumCPU(), 1)
}

// SetWorkers sets the fuzzy matching worker count. Zero selects
// DefaultWorkers; negative values are left for Validate to reject.
func (c *Config) SetWorkers(n int) {
	if n == 0 {
		n = DefaultWorkers()
	}
	c.Match.Workers = n
}

// ParseFormats splits a comma-separated format list
func ParseFormats(v string) []string {
	var formats []string
	for _, f := range strings.Split(v, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			formats = append(formats, f)
		}
	}
	return formats
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.Inputs.Catalog == "" {
		return newError("inputs.catalog", "catalog dataset path is required")
	}
	if c.Inputs.CommunityDir == "" && (c.Inputs.CommunityBooks == "" || c.Inputs.CommunityUsers == "" || c.Inputs.CommunityRatings == "") {
		return newError("inputs.community_dir", "community directory or all three community file paths are required")
	}
	if !dataset.ValidEncoding(c.Inputs.CommunityEncoding) {
		return newError("inputs.community_encoding", "unsupported encoding "+c.Inputs.CommunityEncoding)
	}
	if c.Output.Dir == "" {
		return newError("output.dir", "output directory is required")
	}
	for _, f := range c.Output.Formats {
		switch f {
		case FormatCSV, FormatXLSX, FormatParquet:
		default:
			return newError("output.formats", "unsupported format "+f)
		}
	}
	if c.Thresholds.MinRatings < 1 {
		return newError("thresholds.min_ratings", "must be at least 1")
	}
	if c.Thresholds.DemographicMinRatings < 1 {
		return newError("thresholds.demographic_min_ratings", "must be at least 1")
	}
	if c.Thresholds.MatchConfidence <= 0 || c.Thresholds.MatchConfidence > 1 {
		return newError("thresholds.match_confidence", "must be in (0, 1]")
	}

	ranges := []struct {
		field string
		min   float64
		max   float64
	}{
		{"scales.catalog", c.Scales.Catalog.Min, c.Scales.Catalog.Max},
		{"scales.catalog_target", c.Scales.CatalogTarget.Min, c.Scales.CatalogTarget.Max},
		{"scales.community", c.Scales.Community.Min, c.Scales.Community.Max},
		{"bounds.page_count", c.Bounds.PageCount.Min, c.Bounds.PageCount.Max},
		{"bounds.age", c.Bounds.Age.Min, c.Bounds.Age.Max},
	}
	for _, r := range ranges {
		if r.min >= r.max {
			return newError(r.field, fmt.Sprintf("min %v must be below max %v", r.min, r.max))
		}
	}

	if c.Composite.TitleLength < 1 || c.Composite.AuthorLength < 1 {
		return newError("composite", "title_length and author_length must be positive")
	}
	if _, err := match.New(c.Match.Strategy); err != nil {
		return &Error{Field: "match.strategy", Message: "unknown strategy", Cause: err}
	}
	if _, ok := match.ScorerByName(c.Match.Scorer); !ok {
		return newError("match.scorer", "unknown scorer "+c.Match.Scorer)
	}
	if c.Match.Workers < 1 {
		return newError("match.workers", "must be at least 1")
	}
	if c.Categories.LowRating > c.Categories.HighRating {
		return newError("categories", "low_rating must not exceed high_rating")
	}
	if c.Categories.ExposureReviews < 0 {
		return newError("categories.exposure_reviews", "must not be negative")
	}
	for i, r := range c.Publishers.Rules {
		if strings.TrimSpace(r.Keyword) == "" || strings.TrimSpace(r.Canonical) == "" {
			return newError(fmt.Sprintf("publishers.rules[%d]", i), "keyword and canonical are required")
		}
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return &Error{Field: "log.level", Message: "unknown level", Cause: err}
	}
	return nil
}

// ParseLevel maps a level name onto slog.Level
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, err
	}
	return l, nil
}

// CommunityBooksPath resolves the community books file
func (c *Config) CommunityBooksPath() string {
	return c.communityPath(c.Inputs.CommunityBooks, DefaultCommunityBooks)
}

// CommunityUsersPath resolves the community users file
func (c *Config) CommunityUsersPath() string {
	return c.communityPath(c.Inputs.CommunityUsers, DefaultCommunityUsers)
}

// CommunityRatingsPath resolves the community ratings file
func (c *Config) CommunityRatingsPath() string {
	return c.communityPath(c.Inputs.CommunityRatings, DefaultCommunityRatings)
}

func (c *Config) communityPath(explicit, name string) string {
	if explicit != "" {
		return explicit
	}
	return filepath.Join(c.Inputs.CommunityDir, name)
}

// OutputPath resolves a file name inside the output directory
func (c *Config) OutputPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Output.Dir, name)
}

// HasFormat reports whether an export format is enabled
func (c *Config) HasFormat(format string) bool {
	for _, f := range c.Output.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// CleanBounds returns the validation ranges for the cleaner
func (c *Config) CleanBounds() clean.Bounds {
	return clean.Bounds{
		CatalogRating:   c.Scales.Catalog,
		CommunityRating: c.Scales.Community,
		PageCount:       c.Bounds.PageCount,
		Age:             c.Bounds.Age,
	}
}

// AggregateOptions returns the aggregation settings
func (c *Config) AggregateOptions() aggregate.Options {
	return aggregate.Options{
		MinRatings:            c.Thresholds.MinRatings,
		DemographicMinRatings: c.Thresholds.DemographicMinRatings,
		From:                  aggregate.Scale{Min: c.Scales.Community.Min, Max: c.Scales.Community.Max},
		To:                    c.Scales.CatalogTarget,
	}
}

// IdentifierOptions returns the composite key bounds
func (c *Config) IdentifierOptions() identifier.Options {
	return identifier.Options{
		TitleLength:  c.Composite.TitleLength,
		AuthorLength: c.Composite.AuthorLength,
	}
}

// JoinOptions returns the category thresholds and master filter
func (c *Config) JoinOptions() join.Options {
	return join.Options{
		HighRating:       c.Categories.HighRating,
		LowRating:        c.Categories.LowRating,
		ExposureReviews:  c.Categories.ExposureReviews,
		RequireUKOrRated: c.Master.RequireUKOrRated,
	}
}

// MatchStrategy builds the configured fuzzy matching strategy
func (c *Config) MatchStrategy() (match.Strategy, error) {
	if _, ok := match.ScorerByName(c.Match.Scorer); !ok {
		return nil, newError("match.scorer", "unknown scorer "+c.Match.Scorer)
	}
	return match.New(c.Match.Strategy,
		match.WithThreshold(c.Thresholds.MatchConfidence),
		match.WithWorkers(c.Match.Workers),
		match.WithScorerName(c.Match.Scorer))
}

// Canonicalizer builds the publisher canonicalizer
func (c *Config) Canonicalizer() *publisher.Canonicalizer {
	return publisher.NewCanonicalizer(c.Publishers.Rules, c.Publishers.UKKeywords)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, &Error{Field: key, Message: "must be an integer", Cause: err}
	}
	return n, nil
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue, &Error{Field: key, Message: "must be a number", Cause: err}
	}
	return f, nil
}
