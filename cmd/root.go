package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/bookjoin/internal/config"
)

func NewRootCmd() *cobra.Command {
	var logLevel string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "bookjoin",
		Short: "Merge catalog and community book-rating datasets into one analytical table",
		Long: `Bookjoin links a curated book catalog with a community ratings dataset.

It normalizes identifiers and publishers, aggregates community ratings,
fuzzy-matches books that share no identifier, and exports the joined master
table to SQLite, CSV, XLSX and Parquet for visualization tools.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := logLevel
			if verbose {
				level = "debug"
			}
			if level == "" {
				level = os.Getenv("BOOKJOIN_LOG_LEVEL")
			}
			if level == "" {
				level = "info"
			}
			return setupLogging(level)
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging (same as --log-level debug)")

	// Add subcommands
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newScoreCmd())
	cmd.AddCommand(newReportCmd())

	return cmd
}

func setupLogging(level string) error {
	l, err := config.ParseLevel(level)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
	return nil
}

// logLevelSet reports whether the log level was chosen on the command line
func logLevelSet(cmd *cobra.Command) bool {
	for _, name := range []string{"log-level", "verbose"} {
		if f := cmd.Flag(name); f != nil && f.Changed {
			return true
		}
	}
	return false
}
