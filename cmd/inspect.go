package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/bookjoin/internal/clean"
	"github.com/lehigh-university-libraries/bookjoin/internal/config"
	"github.com/lehigh-university-libraries/bookjoin/internal/dataset"
	"github.com/lehigh-university-libraries/bookjoin/internal/pipeline"
)

func newInspectCmd() *cobra.Command {
	var configPath string
	var catalog string
	var limit int

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show how catalog rows are normalized",
		Long: `Inspect prints the book key, canonical publisher and cleaner verdict for
catalog rows, which is useful when tuning publisher rules and bounds.`,
		Example: `  # Inspect the first 10 rows
  bookjoin inspect --catalog data/books.csv

  # Inspect every row with the rules from a config file
  bookjoin inspect --catalog data/books.csv --config bookjoin.yaml --limit 0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if catalog == "" {
				return fmt.Errorf("--catalog is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return executeInspect(cfg, catalog, limit)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	cmd.Flags().StringVar(&catalog, "catalog", "", "Catalog dataset (.csv or .parquet) (required)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of rows to inspect (0 for all)")

	_ = cmd.MarkFlagRequired("catalog")

	return cmd
}

func executeInspect(cfg *config.Config, catalog string, limit int) error {
	rows, rep, err := dataset.NewCatalogLoader(catalog).Load()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	prep := pipeline.NewPreparer(cfg.IdentifierOptions(), cfg.Canonicalizer())
	cleaner := clean.NewCleaner(cfg.CleanBounds())

	for i, row := range rows {
		b := prep.Book(row)
		verdict := "keep"
		if rule, ok := cleaner.CheckBook(b); !ok {
			verdict = "drop (" + string(rule) + ")"
		}

		fmt.Printf("\n=== Row %d (line %d) ===\n", i+1, row.Line)
		fmt.Printf("Title:      %s\n", truncate(b.Title, 70))
		fmt.Printf("Authors:    %s\n", truncate(b.Authors, 70))
		if b.HasCompositeKey() {
			fmt.Printf("Book key:   %s (composite, no valid ISBN)\n", b.BookKey)
		} else {
			fmt.Printf("Book key:   %s\n", b.BookKey)
		}
		if b.ISBN10 != "" || b.ISBN13 != "" {
			fmt.Printf("ISBNs:      %s %s\n", b.ISBN13, b.ISBN10)
		}
		fmt.Printf("Publisher:  %s -> %s (UK: %t)\n", row.Publisher, b.Publisher, b.IsUKPublisher)
		fmt.Printf("Rating:     %.2f (%d reviews)\n", b.SourceRating, b.SourceReviewCount)
		fmt.Printf("Verdict:    %s\n", verdict)
	}

	fmt.Printf("\n%d rows read, %d malformed\n", rep.Rows, rep.Malformed)
	for _, reason := range rep.ReasonNames() {
		fmt.Printf("  %-20s %d\n", reason, rep.Reasons[reason])
	}
	for _, column := range rep.InvalidColumns() {
		fmt.Printf("  non-numeric %-8s %d\n", column, rep.Invalid[column])
	}
	return nil
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
