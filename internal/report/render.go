package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Render writes d in the named format (text, json or csv)
func Render(w io.Writer, d *Diagnostics, format string) error {
	switch format {
	case "text", "":
		return printTextReport(w, d)
	case "json":
		return printJSONReport(w, d)
	case "csv":
		return printCSVReport(w, d)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printTextReport(w io.Writer, d *Diagnostics) error {
	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w, "Book Dataset Merge Report")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Run:       %s\n", d.RunID)
	fmt.Fprintf(w, "Generated: %s\n", d.GeneratedAt)
	fmt.Fprintf(w, "Matching:  %s (%s, threshold %.2f, %d workers)\n",
		d.Config.MatchStrategy, d.Config.MatchScorer, d.Config.MatchConfidence, d.Config.Workers)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Inputs:")
	for _, in := range d.Inputs {
		fmt.Fprintf(w, "  %s: %d rows, %d loaded, %d malformed\n", in.Path, in.Rows, in.Loaded, in.Malformed)
		for _, reason := range in.ReasonNames() {
			fmt.Fprintf(w, "    %s: %d\n", reason, in.Reasons[reason])
		}
		for _, column := range in.InvalidColumns() {
			fmt.Fprintf(w, "    non-numeric %s: %d\n", column, in.Invalid[column])
		}
	}

	fmt.Fprintln(w, "\nCleaning:")
	for _, kind := range sortedKeys(d.Cleaning) {
		r := d.Cleaning[kind]
		fmt.Fprintf(w, "  %s: %d in, %d kept\n", kind, r.Input, r.Kept)
		for _, rule := range r.Rules() {
			fmt.Fprintf(w, "    %s: %d\n", rule, r.Dropped[rule])
		}
	}

	fmt.Fprintln(w, "\nAggregation:")
	fmt.Fprintf(w, "  Identifiers: %d (%d kept, %d below minimum)\n",
		d.Aggregation.Identifiers, d.Aggregation.Kept, d.Aggregation.BelowMinimum)

	fmt.Fprintln(w, "\nFuzzy Matching:")
	fmt.Fprintf(w, "  Queries: %d  Candidates: %d  Matched: %d  Unresolved: %d\n",
		d.Matching.Queries, d.Matching.Candidates, d.Matching.Matched, d.Matching.Unresolved)

	fmt.Fprintln(w, "\nSummary:")
	for _, m := range d.Summary.Metrics() {
		fmt.Fprintf(w, "  %-36s %s\n", m.Name+":", formatValue(m.Value))
	}

	if len(d.Publishers) > 0 {
		fmt.Fprintln(w, "\nTop Publishers by Engagement:")
		for i, p := range d.Publishers {
			if i == 10 {
				break
			}
			fmt.Fprintf(w, "  %-30s books=%-5d rating=%.2f engagement=%.2f\n",
				truncate(p.Publisher, 30), p.Books, p.MeanRating, p.MeanEngagement)
		}
	}

	if len(d.UKPublishers) > 0 {
		fmt.Fprintln(w, "\nTop UK Publishers:")
		for i, p := range d.UKPublishers {
			if i == 10 {
				break
			}
			fmt.Fprintf(w, "  %-30s books=%-5d rating=%.2f stddev=%s community=%s engagement=%.2f\n",
				truncate(p.Publisher, 30), p.Books, p.MeanRating, optional(p.RatingStdDev), optional(p.MeanCommunityRating), p.MeanEngagement)
		}
	}

	printBookRatings(w, "Top Hidden Gems", d.HiddenGems)
	printBookRatings(w, "Community Rates Higher", d.CommunityFavorites)
	printBookRatings(w, "Catalog Rates Higher", d.CatalogFavorites)

	if len(d.AgeGroups) > 0 {
		fmt.Fprintln(w, "\nRatings by Age Group:")
		for _, g := range d.AgeGroups {
			fmt.Fprintf(w, "  %-8s books=%-5d rating=%.2f ratings=%d\n", g.AgeGroup, g.BookCount, g.MeanRating, g.TotalRatings)
		}
	}

	if len(d.Artifacts) > 0 {
		fmt.Fprintln(w, "\nArtifacts:")
		for _, a := range d.Artifacts {
			fmt.Fprintf(w, "  %-10s %s (%d rows)\n", a.Name, a.Path, a.Rows)
		}
	}

	return nil
}

func printBookRatings(w io.Writer, title string, rows []BookRating) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s (%d):\n", title, len(rows))
	for i, b := range rows {
		if i == 10 {
			break
		}
		fmt.Fprintf(w, "  %-40s catalog=%.2f (%d reviews) community=%.2f (%d ratings) diff=%+.2f\n",
			truncate(b.Title, 40), b.CatalogRating, b.CatalogReviews, b.CommunityRating, b.CommunityCount, b.Difference)
	}
}

func printJSONReport(w io.Writer, d *Diagnostics) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(d)
}

func printCSVReport(w io.Writer, d *Diagnostics) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"Section", "Metric", "Value"}); err != nil {
		return err
	}

	for _, in := range d.Inputs {
		if err := writer.Write([]string{"inputs", in.Path + " malformed", strconv.Itoa(in.Malformed)}); err != nil {
			return err
		}
	}
	for _, kind := range sortedKeys(d.Cleaning) {
		r := d.Cleaning[kind]
		for _, rule := range r.Rules() {
			if err := writer.Write([]string{"cleaning", kind + " " + string(rule), strconv.Itoa(r.Dropped[rule])}); err != nil {
				return err
			}
		}
	}
	rows := [][]string{
		{"matching", "matched", strconv.Itoa(d.Matching.Matched)},
		{"matching", "unresolved", strconv.Itoa(d.Matching.Unresolved)},
	}
	for _, m := range d.Summary.Metrics() {
		rows = append(rows, []string{"summary", m.Name, formatValue(m.Value)})
	}
	for _, g := range d.AgeGroups {
		rows = append(rows,
			[]string{"age_groups", g.AgeGroup + " books", strconv.Itoa(g.BookCount)},
			[]string{"age_groups", g.AgeGroup + " mean rating", formatValue(g.MeanRating)},
			[]string{"age_groups", g.AgeGroup + " ratings", strconv.Itoa(g.TotalRatings)},
		)
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}

	writer.Flush()
	return writer.Error()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

// truncate shortens s to maxLen characters
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
