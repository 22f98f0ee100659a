package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/bookjoin/internal/config"
	"github.com/lehigh-university-libraries/bookjoin/internal/pipeline"
	"github.com/lehigh-university-libraries/bookjoin/internal/report"
)

func newRunCmd() *cobra.Command {
	var configPath string
	var catalog string
	var communityDir string
	var outputDir string
	var minRatings int
	var confidence float64
	var formats string
	var workers int
	var strategy string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full merge pipeline",
		Long: `Run loads both datasets, cleans and aggregates them, links the catalog to
community ratings and writes every output artifact.

Settings are read from defaults, the --config file, BOOKJOIN_* environment
variables and finally the flags below.`,
		Example: `  # Run with defaults (data/books.csv and data/BX-*.csv)
  bookjoin run

  # Use a config file and override the output directory
  bookjoin run --config bookjoin.yaml --out ./build

  # Only CSV output, stricter matching
  bookjoin run --formats csv --confidence 0.9 --strategy blocked`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("catalog") {
				cfg.Inputs.Catalog = catalog
			}
			if flags.Changed("community-dir") {
				cfg.Inputs.CommunityDir = communityDir
			}
			if flags.Changed("out") {
				cfg.Output.Dir = outputDir
			}
			if flags.Changed("min-ratings") {
				cfg.Thresholds.MinRatings = minRatings
			}
			if flags.Changed("confidence") {
				cfg.Thresholds.MatchConfidence = confidence
			}
			if flags.Changed("formats") {
				cfg.Output.Formats = config.ParseFormats(formats)
			}
			if flags.Changed("workers") {
				cfg.SetWorkers(workers)
			}
			if flags.Changed("strategy") {
				cfg.Match.Strategy = strategy
			}

			if !logLevelSet(cmd) {
				if err := setupLogging(cfg.Log.Level); err != nil {
					return err
				}
			}

			return executeRun(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	cmd.Flags().StringVar(&catalog, "catalog", "", "Catalog dataset (.csv or .parquet)")
	cmd.Flags().StringVar(&communityDir, "community-dir", "", "Directory holding the community BX-*.csv files")
	cmd.Flags().StringVar(&outputDir, "out", "", "Output directory")
	cmd.Flags().IntVar(&minRatings, "min-ratings", 10, "Minimum community ratings per book")
	cmd.Flags().Float64Var(&confidence, "confidence", 0.85, "Minimum fuzzy match score (0-1)")
	cmd.Flags().StringVar(&formats, "formats", "csv,xlsx,parquet", "Comma-separated export formats")
	cmd.Flags().IntVar(&workers, "workers", 0, "Fuzzy matching workers (0 uses one per CPU)")
	cmd.Flags().StringVar(&strategy, "strategy", "exhaustive", "Fuzzy matching strategy (exhaustive or blocked)")

	return cmd
}

func executeRun(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	printRunSummary(res.Diagnostics)
	return nil
}

func printRunSummary(d *report.Diagnostics) {
	s := d.Summary

	fmt.Println("\n=== Run Summary ===")
	fmt.Printf("Run ID:                  %s\n", d.RunID)
	fmt.Printf("Books:                   %d\n", s.TotalBooks)
	fmt.Printf("With community ratings:  %d (%d direct, %d fuzzy)\n", s.WithCommunityRating, s.DirectMatches, s.FuzzyMatches)
	fmt.Printf("UK publisher books:      %d\n", s.UKPublisherBooks)
	fmt.Printf("Hidden gems:             %d\n", s.HiddenGems)
	fmt.Printf("Malformed rows skipped:  %d\n", d.MalformedRows())
	fmt.Printf("Validation drops:        %d\n", d.ValidationDrops())

	fmt.Println("\nArtifacts:")
	for _, a := range d.Artifacts {
		fmt.Printf("  %-8s %s\n", a.Name, a.Path)
	}
}
