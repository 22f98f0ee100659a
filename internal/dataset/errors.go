package dataset

import (
	"errors"
	"fmt"
	"sort"
)

// ErrMalformedRow marks a row that could not be parsed. Such rows are
// skipped and counted, never fatal.
var ErrMalformedRow = errors.New("malformed row")

// RowError describes why a single input row was skipped
type RowError struct {
	Line   int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

func (e *RowError) Unwrap() error {
	return ErrMalformedRow
}

func malformed(line int, reason string) error {
	return &RowError{Line: line, Reason: reason}
}

// LoadReport counts the rows read from one input file. Invalid counts, per
// column, the non-numeric values that were read as missing in kept rows.
type LoadReport struct {
	Path      string         `yaml:"path" json:"path"`
	Rows      int            `yaml:"rows" json:"rows"`
	Loaded    int            `yaml:"loaded" json:"loaded"`
	Malformed int            `yaml:"malformed" json:"malformed"`
	Reasons   map[string]int `yaml:"reasons,omitempty" json:"reasons,omitempty"`
	Invalid   map[string]int `yaml:"invalid,omitempty" json:"invalid,omitempty"`
}

func newLoadReport(path string) LoadReport {
	return LoadReport{Path: path, Reasons: map[string]int{}, Invalid: map[string]int{}}
}

func (r *LoadReport) skip(err error) {
	r.Malformed++
	var rowErr *RowError
	if errors.As(err, &rowErr) {
		r.Reasons[rowErr.Reason]++
		return
	}
	r.Reasons["parse_error"]++
}

// ReasonNames returns the skip reasons sorted by name
func (r LoadReport) ReasonNames() []string {
	return sortedKeys(r.Reasons)
}

// InvalidColumns returns the columns with non-numeric values sorted by name
func (r LoadReport) InvalidColumns() []string {
	return sortedKeys(r.Invalid)
}

func sortedKeys(m map[string]int) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
