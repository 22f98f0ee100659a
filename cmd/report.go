package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/bookjoin/internal/report"
)

func newReportCmd() *cobra.Command {
	var diagnosticsPath string
	var format string
	var outputFile string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the diagnostics of a previous run",
		Long: `Report reads the diagnostics.yaml written by "bookjoin run" and renders it as
text, JSON or CSV.`,
		Example: `  # Print a text report
  bookjoin report --diagnostics output/diagnostics.yaml

  # Save the summary metrics as CSV
  bookjoin report --diagnostics output/diagnostics.yaml --format csv --output summary.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeReport(diagnosticsPath, format, outputFile)
		},
	}

	cmd.Flags().StringVar(&diagnosticsPath, "diagnostics", "output/diagnostics.yaml", "Path to a diagnostics file")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json, csv)")
	cmd.Flags().StringVar(&outputFile, "output", "", "Output file (default: stdout)")

	return cmd
}

func executeReport(diagnosticsPath, format, outputFile string) error {
	d, err := report.LoadYAML(diagnosticsPath)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := report.Render(w, d, format); err != nil {
		return err
	}

	if outputFile != "" {
		fmt.Printf("Report saved to: %s\n", outputFile)
	}
	return nil
}
