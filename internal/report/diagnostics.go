package report

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/bookjoin/internal/aggregate"
	"github.com/lehigh-university-libraries/bookjoin/internal/clean"
	"github.com/lehigh-university-libraries/bookjoin/internal/dataset"
	"github.com/lehigh-university-libraries/bookjoin/internal/join"
	"github.com/lehigh-university-libraries/bookjoin/internal/match"
	"github.com/lehigh-university-libraries/bookjoin/internal/storage"
)

// RunConfig records the parameters a run used
type RunConfig struct {
	MinRatings      int      `yaml:"min_ratings" json:"min_ratings"`
	MatchConfidence float64  `yaml:"match_confidence" json:"match_confidence"`
	MatchStrategy   string   `yaml:"match_strategy" json:"match_strategy"`
	MatchScorer     string   `yaml:"match_scorer" json:"match_scorer"`
	Workers         int      `yaml:"workers" json:"workers"`
	CatalogPath     string   `yaml:"catalog_path" json:"catalog_path"`
	CommunityPaths  []string `yaml:"community_paths" json:"community_paths"`
}

// Diagnostics is the per-stage account of one pipeline run. The analysis
// tables are inlined at the top level.
type Diagnostics struct {
	RunID       string                  `yaml:"run_id" json:"run_id"`
	GeneratedAt string                  `yaml:"generated_at" json:"generated_at"`
	Config      RunConfig               `yaml:"config" json:"config"`
	Inputs      []dataset.LoadReport    `yaml:"inputs" json:"inputs"`
	Cleaning    map[string]clean.Report `yaml:"cleaning" json:"cleaning"`
	Aggregation aggregate.Report        `yaml:"aggregation" json:"aggregation"`
	Matching    match.Report            `yaml:"matching" json:"matching"`
	Join        join.Report             `yaml:"join" json:"join"`
	Analysis    `yaml:",inline"`
	Artifacts   []storage.Artifact `yaml:"artifacts" json:"artifacts"`
}

// MalformedRows totals skipped input rows
func (d *Diagnostics) MalformedRows() int {
	total := 0
	for _, in := range d.Inputs {
		total += in.Malformed
	}
	return total
}

// ValidationDrops totals records excluded by the cleaner
func (d *Diagnostics) ValidationDrops() int {
	total := 0
	for _, r := range d.Cleaning {
		total += r.TotalDropped()
	}
	return total
}

// SaveYAML writes the diagnostics document to path
func SaveYAML(path string, d *Diagnostics) error {
	return storage.WriteFile(path, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("failed to marshal diagnostics: %w", err)
		}
		return enc.Close()
	})
}

// LoadYAML reads a diagnostics document written by SaveYAML
func LoadYAML(path string) (*Diagnostics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read diagnostics: %w", err)
	}

	var d Diagnostics
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse diagnostics: %w", err)
	}
	return &d, nil
}
