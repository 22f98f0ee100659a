package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bookjoin.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
inputs:
  catalog: in/goodreads.csv
  community_dir: in/bx
output:
  dir: out
  formats: [csv]
thresholds:
  min_ratings: 20
  match_confidence: 0.9
match:
  strategy: blocked
  workers: 2
publishers:
  rules:
    - keyword: tor
      canonical: Tor Books
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Inputs.Catalog != "in/goodreads.csv" || cfg.Output.Dir != "out" {
		t.Errorf("unexpected paths %+v %+v", cfg.Inputs, cfg.Output)
	}
	if cfg.Thresholds.MinRatings != 20 || cfg.Thresholds.MatchConfidence != 0.9 {
		t.Errorf("unexpected thresholds %+v", cfg.Thresholds)
	}
	if cfg.Thresholds.DemographicMinRatings != 5 {
		t.Errorf("unset fields should keep defaults, got %d", cfg.Thresholds.DemographicMinRatings)
	}
	if len(cfg.Output.Formats) != 1 || !cfg.HasFormat(FormatCSV) || cfg.HasFormat(FormatXLSX) {
		t.Errorf("unexpected formats %v", cfg.Output.Formats)
	}
	if len(cfg.Publishers.Rules) != 1 || cfg.Canonicalizer().Canonicalize("TOR Fantasy") != "Tor Books" {
		t.Errorf("publisher rules not replaced: %+v", cfg.Publishers.Rules)
	}
	if got := cfg.CommunityRatingsPath(); got != filepath.Join("in/bx", DefaultCommunityRatings) {
		t.Errorf("CommunityRatingsPath = %q", got)
	}

	s, err := cfg.MatchStrategy()
	if err != nil || s.Name() != "blocked" {
		t.Errorf("MatchStrategy = %v, %v", s, err)
	}
}

func TestLoadRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown top-level key", content: "inptus:\n  catalog: x.csv\n"},
		{name: "confidence above one", content: "thresholds:\n  match_confidence: 1.5\n"},
		{name: "zero minimum ratings", content: "thresholds:\n  min_ratings: 0\n"},
		{name: "unknown strategy", content: "match:\n  strategy: magic\n"},
		{name: "unknown format", content: "output:\n  formats: [pdf]\n"},
		{name: "rule missing canonical", content: "publishers:\n  rules:\n    - keyword: tor\n"},
		{name: "not yaml", content: "inputs: [unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected configuration error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestValidateSemanticRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "inverted page bounds", mutate: func(c *Config) { c.Bounds.PageCount.Min = 3000 }, field: "bounds.page_count"},
		{name: "low above high", mutate: func(c *Config) { c.Categories.LowRating = 4.5 }, field: "categories"},
		{name: "missing catalog", mutate: func(c *Config) { c.Inputs.Catalog = "" }, field: "inputs.catalog"},
		{name: "bad encoding", mutate: func(c *Config) { c.Inputs.CommunityEncoding = "ebcdic" }, field: "inputs.community_encoding"},
		{name: "zero workers", mutate: func(c *Config) { c.Match.Workers = 0 }, field: "match.workers"},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }, field: "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()

			var cfgErr *Error
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("BOOKJOIN_MIN_RATINGS", "25")
	t.Setenv("BOOKJOIN_MATCH_CONFIDENCE", "0.9")
	t.Setenv("BOOKJOIN_OUTPUT_DIR", "/tmp/bookjoin")
	t.Setenv("BOOKJOIN_FORMATS", "CSV, parquet")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Thresholds.MinRatings != 25 || cfg.Thresholds.MatchConfidence != 0.9 {
		t.Errorf("env overrides not applied: %+v", cfg.Thresholds)
	}
	if cfg.Output.Dir != "/tmp/bookjoin" {
		t.Errorf("Output.Dir = %q", cfg.Output.Dir)
	}
	if !cfg.HasFormat(FormatCSV) || !cfg.HasFormat(FormatParquet) || cfg.HasFormat(FormatXLSX) {
		t.Errorf("unexpected formats %v", cfg.Output.Formats)
	}
	if cfg.OutputPath("master.csv") != filepath.Join("/tmp/bookjoin", "master.csv") {
		t.Errorf("OutputPath = %q", cfg.OutputPath("master.csv"))
	}
}

func TestSetWorkers(t *testing.T) {
	cfg := Default()

	cfg.SetWorkers(3)
	if cfg.Match.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Match.Workers)
	}

	cfg.SetWorkers(0)
	if cfg.Match.Workers != DefaultWorkers() {
		t.Errorf("Workers = %d, want one per CPU (%d)", cfg.Match.Workers, DefaultWorkers())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("zero workers should resolve to a valid config: %v", err)
	}

	cfg.SetWorkers(-2)
	if err := cfg.Validate(); err == nil {
		t.Error("expected negative workers to be rejected")
	}
}

func TestApplyEnvZeroWorkersUsesCPUCount(t *testing.T) {
	t.Setenv("BOOKJOIN_WORKERS", "0")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Match.Workers != DefaultWorkers() {
		t.Errorf("Workers = %d, want %d", cfg.Match.Workers, DefaultWorkers())
	}
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("BOOKJOIN_WORKERS", "many")
	_, err := Load("")
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
