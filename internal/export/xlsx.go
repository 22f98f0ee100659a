package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/lehigh-university-libraries/bookjoin/internal/models"
	"github.com/lehigh-university-libraries/bookjoin/internal/report"
	"github.com/lehigh-university-libraries/bookjoin/internal/storage"
)

// Sheet names
const (
	SheetMaster           = "Master Data"
	SheetSummary          = "Summary"
	SheetPublishers       = "Publisher Performance"
	SheetUKPublishers     = "UK Publishers"
	SheetHiddenGems       = "Hidden Gems"
	SheetRatingComparison = "Rating Comparison"
	SheetAgeGroups        = "Demographic Insights"
)

// Sheets lists every workbook sheet in order
var Sheets = []string{
	SheetMaster,
	SheetSummary,
	SheetPublishers,
	SheetUKPublishers,
	SheetHiddenGems,
	SheetRatingComparison,
	SheetAgeGroups,
}

type colWidth struct {
	from, to string
	width    float64
}

// workbook wraps an excelize file so each sheet is written as one table
type workbook struct {
	f *excelize.File
}

func (wb workbook) table(sheet string, header []any, rows [][]any, widths ...colWidth) error {
	if err := writeRow(wb.f, sheet, 1, header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := writeRow(wb.f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return wb.widths(sheet, widths...)
}

func (wb workbook) widths(sheet string, widths ...colWidth) error {
	for _, w := range widths {
		if err := wb.f.SetColWidth(sheet, w.from, w.to, w.width); err != nil {
			return fmt.Errorf("set width of %s!%s:%s: %w", sheet, w.from, w.to, err)
		}
	}
	return nil
}

// XLSX writes a workbook with the master table followed by one sheet per
// analysis table
func (e *Exporter) XLSX(ctx context.Context, records []models.MasterRecord, analysis report.Analysis) error {
	f := excelize.NewFile()
	defer f.Close()

	// The default sheet becomes the master sheet
	if err := f.SetSheetName("Sheet1", SheetMaster); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range Sheets[1:] {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	wb := workbook{f: f}

	if err := writeRow(f, SheetMaster, 1, toAny(Columns)); err != nil {
		return err
	}
	for i, r := range records {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := writeRow(f, SheetMaster, i+2, values(r)); err != nil {
			return err
		}
	}
	err := wb.widths(SheetMaster, colWidth{"A", "B", 16}, colWidth{"C", "D", 40}, colWidth{"E", "E", 24}, colWidth{"F", "T", 14})
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var summary [][]any
	for _, m := range analysis.Summary.Metrics() {
		summary = append(summary, []any{m.Name, m.Value})
	}
	if err := wb.table(SheetSummary, []any{"Metric", "Value"}, summary,
		colWidth{"A", "A", 38}, colWidth{"B", "B", 14}); err != nil {
		return err
	}

	if err := wb.table(SheetPublishers, publisherHeader, publisherRows(analysis.Publishers),
		colWidth{"A", "A", 32}, colWidth{"B", "H", 14}); err != nil {
		return err
	}
	if err := wb.table(SheetUKPublishers, publisherHeader, publisherRows(analysis.UKPublishers),
		colWidth{"A", "A", 32}, colWidth{"B", "H", 14}); err != nil {
		return err
	}

	if err := wb.table(SheetHiddenGems, bookRatingHeader, bookRatingRows(analysis.HiddenGems),
		colWidth{"A", "A", 16}, colWidth{"B", "C", 40}, colWidth{"D", "H", 14}); err != nil {
		return err
	}

	comparison := bookRatingRows(analysis.CommunityFavorites)
	comparison = append(comparison, bookRatingRows(analysis.CatalogFavorites)...)
	if err := wb.table(SheetRatingComparison, bookRatingHeader, comparison,
		colWidth{"A", "A", 16}, colWidth{"B", "C", 40}, colWidth{"D", "H", 14}); err != nil {
		return err
	}

	var ages [][]any
	for _, g := range analysis.AgeGroups {
		ages = append(ages, []any{g.AgeGroup, g.BookCount, g.MeanRating, g.TotalRatings})
	}
	if err := wb.table(SheetAgeGroups, []any{"Age Group", "Books", "Avg Rating", "Total Ratings"}, ages,
		colWidth{"A", "D", 14}); err != nil {
		return err
	}

	path := e.Path(FormatXLSX)
	err = storage.WriteFile(path, func(w io.Writer) error {
		if _, err := f.WriteTo(w); err != nil {
			return fmt.Errorf("xlsx write: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.artifacts.Set(storage.Artifact{Name: FormatXLSX, Path: path, Rows: len(records)})
	return nil
}

var publisherHeader = []any{"Publisher", "Books", "UK Publisher", "Avg Rating", "Rating Std Dev", "Avg Reviews", "Avg Community Rating", "Avg Engagement"}

func publisherRows(stats []report.PublisherStat) [][]any {
	rows := make([][]any, len(stats))
	for i, p := range stats {
		rows[i] = []any{p.Publisher, p.Books, p.IsUK, p.MeanRating, floatOrNil(p.RatingStdDev), p.MeanReviews, floatOrNil(p.MeanCommunityRating), p.MeanEngagement}
	}
	return rows
}

var bookRatingHeader = []any{"Book Key", "Title", "Authors", "Catalog Rating", "Catalog Reviews", "Community Rating", "Community Ratings", "Difference"}

func bookRatingRows(books []report.BookRating) [][]any {
	rows := make([][]any, len(books))
	for i, b := range books {
		rows[i] = []any{b.BookKey, b.Title, b.Authors, b.CatalogRating, b.CatalogReviews, b.CommunityRating, b.CommunityCount, b.Difference}
	}
	return rows
}

func writeRow(f *excelize.File, sheet string, row int, cells []any) error {
	for col, v := range cells {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("cell %d,%d: %w", col+1, row, err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func toAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
