package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Supported input encodings
const (
	EncodingUTF8        = "utf8"
	EncodingLatin1      = "latin1"
	EncodingWindows1252 = "windows1252"
)

// Format describes how a delimited file is laid out
type Format struct {
	Delimiter rune
	Encoding  string
}

// CatalogFormat is a comma-separated UTF-8 file
var CatalogFormat = Format{Delimiter: ',', Encoding: EncodingUTF8}

// CommunityFormat is a semicolon-separated Latin-1 file
var CommunityFormat = Format{Delimiter: ';', Encoding: EncodingLatin1}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "")) {
	case "", EncodingUTF8:
		return unicode.UTF8, nil
	case EncodingLatin1, "iso88591":
		return charmap.ISO8859_1, nil
	case EncodingWindows1252, "cp1252":
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", name)
	}
}

// ValidEncoding reports whether name is a supported input encoding
func ValidEncoding(name string) bool {
	_, err := lookupEncoding(name)
	return err == nil
}

// row gives by-name access to one parsed record
type row struct {
	line    int
	fields  []string
	header  map[string]int
	invalid map[string]int
}

// value returns the first non-empty field among the named columns
func (r row) value(names ...string) string {
	for _, name := range names {
		idx, ok := r.header[name]
		if !ok || idx >= len(r.fields) {
			continue
		}
		if v := strings.TrimSpace(r.fields[idx]); v != "" {
			return v
		}
	}
	return ""
}

func (r row) float(reason string, names ...string) (float64, error) {
	v := r.value(names...)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, malformed(r.line, reason)
	}
	return f, nil
}

// optionalFloat parses a numeric column without rounding, so range checks
// see the value as written. Empty and NULL values are absent. Unparsable
// values are absent too but counted against the column.
func (r row) optionalFloat(names ...string) *float64 {
	v := r.value(names...)
	if v == "" || strings.EqualFold(v, "null") {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		if r.invalid != nil {
			r.invalid[names[0]]++
		}
		return nil
	}
	return &f
}

// optionalInt is optionalFloat truncated to an integer
func (r row) optionalInt(names ...string) *int {
	f := r.optionalFloat(names...)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

func normalizeHeader(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.NewReplacer("-", "_", " ", "_").Replace(name)
	return name
}

func readHeader(fields []string) map[string]int {
	header := make(map[string]int, len(fields))
	for i, name := range fields {
		key := normalizeHeader(name)
		if _, exists := header[key]; !exists {
			header[key] = i
		}
	}
	return header
}

func requireColumns(path string, header map[string]int, groups ...[]string) error {
	for _, names := range groups {
		found := false
		for _, name := range names {
			if _, ok := header[name]; ok {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%s: missing required column (one of %s)", path, strings.Join(names, ", "))
		}
	}
	return nil
}

// readTable streams a delimited file through fn. Rows whose field count does
// not match the header, or for which fn returns ErrMalformedRow, are skipped
// and counted. Any other error aborts the read.
func readTable(path string, format Format, required [][]string, fn func(row) error) (LoadReport, error) {
	report := newLoadReport(path)

	enc, err := lookupEncoding(format.Encoding)
	if err != nil {
		return report, err
	}

	file, err := os.Open(path)
	if err != nil {
		return report, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	var decoder transform.Transformer = enc.NewDecoder()
	if enc == unicode.UTF8 {
		decoder = unicode.BOMOverride(enc.NewDecoder())
	}

	reader := csv.NewReader(transform.NewReader(file, decoder))
	reader.Comma = format.Delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	headerFields, err := reader.Read()
	if err != nil {
		return report, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	header := readHeader(headerFields)
	if err := requireColumns(path, header, required...); err != nil {
		return report, err
	}

	slog.Debug("Opened delimited file", "path", path, "columns", len(headerFields), "encoding", format.Encoding)

	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		report.Rows++

		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				report.skip(malformed(parseErr.Line, "parse_error"))
				continue
			}
			return report, fmt.Errorf("error reading %s: %w", path, err)
		}

		line, _ := reader.FieldPos(0)
		if len(fields) != len(headerFields) {
			report.skip(malformed(line, "field_count"))
			continue
		}

		if err := fn(row{line: line, fields: fields, header: header, invalid: report.Invalid}); err != nil {
			if errors.Is(err, ErrMalformedRow) {
				report.skip(err)
				continue
			}
			return report, err
		}
		report.Loaded++

		if report.Rows%100000 == 0 {
			slog.Debug("Reading rows", "path", path, "rows_read", report.Rows)
		}
	}

	logLoadReport(report)
	return report, nil
}

func logLoadReport(r LoadReport) {
	slog.Info("Loaded dataset", "path", r.Path, "rows", r.Rows, "loaded", r.Loaded, "malformed", r.Malformed)
	for _, reason := range r.ReasonNames() {
		slog.Debug("Skipped malformed rows", "path", r.Path, "reason", reason, "count", r.Reasons[reason])
	}
	for _, column := range r.InvalidColumns() {
		slog.Warn("Non-numeric values treated as missing", "path", r.Path, "column", column, "count", r.Invalid[column])
	}
}
