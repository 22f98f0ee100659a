// Package export materializes the master table into flat files for
// visualization tools.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/bookjoin/internal/models"
	"github.com/lehigh-university-libraries/bookjoin/internal/report"
	"github.com/lehigh-university-libraries/bookjoin/internal/storage"
)

// Formats
const (
	FormatCSV     = "csv"
	FormatXLSX    = "xlsx"
	FormatParquet = "parquet"
)

// BaseName is the file name stem of every master table export
const BaseName = "master_dataset"

// checkEvery is how many rows a writer emits between cancellation checks
const checkEvery = 1000

// Exporter writes master table exports into one directory
type Exporter struct {
	dir       string
	artifacts *storage.ArtifactStore
}

// NewExporter creates an exporter that records written files in artifacts
func NewExporter(dir string, artifacts *storage.ArtifactStore) *Exporter {
	if artifacts == nil {
		artifacts = storage.New()
	}
	return &Exporter{dir: dir, artifacts: artifacts}
}

// Path returns the destination of the given format
func (e *Exporter) Path(format string) string {
	return filepath.Join(e.dir, BaseName+"."+format)
}

// Export writes every requested format concurrently. Each file is written
// atomically; a failure in one format cancels the others and does not
// corrupt any previously written file.
func (e *Exporter) Export(ctx context.Context, formats []string, records []models.MasterRecord, analysis report.Analysis) error {
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	for _, format := range formats {
		format := format
		g.Go(func() error {
			var err error
			switch format {
			case FormatCSV:
				err = e.CSV(gctx, records)
			case FormatXLSX:
				err = e.XLSX(gctx, records, analysis)
			case FormatParquet:
				err = e.Parquet(gctx, records)
			default:
				err = fmt.Errorf("unsupported export format: %s", format)
			}
			if err != nil {
				return fmt.Errorf("%s export: %w", format, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("Exported master table", "formats", formats, "rows", len(records), "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

// CSV writes the master table as comma-separated text
func (e *Exporter) CSV(ctx context.Context, records []models.MasterRecord) error {
	path := e.Path(FormatCSV)
	err := storage.WriteFile(path, func(w io.Writer) error {
		writer := csv.NewWriter(w)
		if err := writer.Write(Columns); err != nil {
			return err
		}
		for i, r := range records {
			if i%checkEvery == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if err := writer.Write(stringValues(r)); err != nil {
				return err
			}
		}
		writer.Flush()
		return writer.Error()
	})
	if err != nil {
		return err
	}

	e.artifacts.Set(storage.Artifact{Name: FormatCSV, Path: path, Rows: len(records)})
	return nil
}
