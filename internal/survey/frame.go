// Package survey holds the in-memory tabular form of survey exports and the
// tables derived from them. Cells are kept as strings so that values which
// fail numeric coercion survive untouched.
package survey

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrMissingColumn is returned when a required column is absent.
var ErrMissingColumn = eris.New("survey: missing column")

// Frame is a column-named table of string cells.
type Frame struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// NewFrame builds a Frame. Short rows are padded with empty cells and long
// rows are truncated to the header width.
func NewFrame(columns []string, rows [][]string) (*Frame, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, eris.Errorf("survey: duplicate column %q", c)
		}
		index[c] = i
	}

	out := make([][]string, len(rows))
	for i, r := range rows {
		row := make([]string, len(columns))
		copy(row, r)
		out[i] = row
	}

	return &Frame{
		columns: append([]string(nil), columns...),
		index:   index,
		rows:    out,
	}, nil
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.rows) }

// Has reports whether the frame has the named column.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Row returns the cells of row i. The slice is owned by the frame.
func (f *Frame) Row(i int) []string { return f.rows[i] }

// Require checks that every named column exists.
func (f *Frame) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if !f.Has(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return eris.Wrapf(ErrMissingColumn, "columns %s", strings.Join(missing, ", "))
	}
	return nil
}

// Get returns the cell at row i in the named column.
func (f *Frame) Get(i int, name string) (string, error) {
	j, ok := f.index[name]
	if !ok {
		return "", eris.Wrapf(ErrMissingColumn, "column %q", name)
	}
	return f.rows[i][j], nil
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]string, error) {
	j, ok := f.index[name]
	if !ok {
		return nil, eris.Wrapf(ErrMissingColumn, "column %q", name)
	}
	out := make([]string, len(f.rows))
	for i, r := range f.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Floats returns the named column parsed as numbers. Unparseable cells are NaN.
func (f *Frame) Floats(name string) ([]float64, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(col))
	for i, s := range col {
		v, ok := ParseNumber(s)
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out, nil
}

// Set adds or replaces the named column.
func (f *Frame) Set(name string, values []string) error {
	if len(values) != len(f.rows) {
		return eris.Errorf("survey: column %q has %d values, frame has %d rows", name, len(values), len(f.rows))
	}
	j, ok := f.index[name]
	if !ok {
		j = len(f.columns)
		f.columns = append(f.columns, name)
		f.index[name] = j
		for i := range f.rows {
			f.rows[i] = append(f.rows[i], values[i])
		}
		return nil
	}
	for i := range f.rows {
		f.rows[i][j] = values[i]
	}
	return nil
}

// Select returns a new frame holding only the named columns, in that order.
func (f *Frame) Select(names []string) (*Frame, error) {
	if err := f.Require(names...); err != nil {
		return nil, err
	}
	rows := make([][]string, len(f.rows))
	for i, r := range f.rows {
		row := make([]string, len(names))
		for k, n := range names {
			row[k] = r[f.index[n]]
		}
		rows[i] = row
	}
	return NewFrame(names, rows)
}

// DropRows returns a frame without its first n rows.
func (f *Frame) DropRows(n int) *Frame {
	if n > len(f.rows) {
		n = len(f.rows)
	}
	out, _ := NewFrame(f.columns, f.rows[n:])
	return out
}

// Replace rewrites every cell that exactly matches a key of mapping. When
// match is non-nil only columns it accepts are touched. Lookups use the
// original cell value, so chained mappings (a→b, b→c) are not applied twice.
func (f *Frame) Replace(mapping map[string]string, match func(column string) bool) int {
	if len(mapping) == 0 {
		return 0
	}
	var cols []int
	for j, c := range f.columns {
		if match == nil || match(c) {
			cols = append(cols, j)
		}
	}
	n := 0
	for _, r := range f.rows {
		for _, j := range cols {
			if v, ok := mapping[r[j]]; ok {
				r[j] = v
				n++
			}
		}
	}
	return n
}

// Filter returns a frame with the rows keep accepts.
func (f *Frame) Filter(keep func(i int) bool) *Frame {
	var rows [][]string
	for i, r := range f.rows {
		if keep(i) {
			rows = append(rows, r)
		}
	}
	out, _ := NewFrame(f.columns, rows)
	return out
}

// ParseNumber parses a numeric cell. Flags parse as 0 and 1.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	if b, err := strconv.ParseBool(s); err == nil {
		if b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// ParseFlag parses a boolean-ish cell: true/false or any number (non-zero is true).
func ParseFlag(s string) (bool, bool) {
	v, ok := ParseNumber(s)
	if !ok {
		return false, false
	}
	return v != 0, true
}

// FormatNumber renders a float in its shortest form; NaN renders empty.
func FormatNumber(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatFlag renders an indicator as 1 or 0.
func FormatFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
