// Package isa reads ISA-Tab archives: the zip layout, the investigation
// file's subtables and the tab-delimited study/assay/sample tables.
package isa

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	simple_util "github.com/liserjrqlxue/simple-util"
)

// Table is a header-ordered tabular file. Duplicate headers are preserved,
// ISA assay tables legitimately repeat columns like "Unit" and
// "Term Source REF".
type Table struct {
	Path    string
	Columns []string
	Rows    [][]string
}

// ReadTable parses a tab-delimited ISA table.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer simple_util.DeferClose(f)

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty table: %s", filepath.Base(path))
	}
	t := &Table{Path: path, Columns: records[0]}
	for _, row := range records[1:] {
		// ragged rows are padded so every cell lookup is in range
		for len(row) < len(t.Columns) {
			row = append(row, "")
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ColumnIndex returns the position of the first exact header match, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether an exact header match exists.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Column returns the ordered values of the first column with that header.
func (t *Table) Column(name string) ([]string, bool) {
	i := t.ColumnIndex(name)
	if i < 0 {
		return nil, false
	}
	return t.ColumnAt(i), true
}

// ColumnAt returns the ordered values at a header position.
func (t *Table) ColumnAt(i int) []string {
	values := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		values[r] = row[i]
	}
	return values
}

// Cell returns the value at (row, header position).
func (t *Table) Cell(row, col int) string {
	return t.Rows[row][col]
}

// Merge joins two tables on a shared key column, keeping the left table's
// row order and column order, then the right table's remaining columns. The
// key column appears once. Right-side rows are matched by key value.
func Merge(left, right *Table, key string) (*Table, error) {
	li := left.ColumnIndex(key)
	ri := right.ColumnIndex(key)
	if li < 0 || ri < 0 {
		return nil, fmt.Errorf("merge: both tables must carry column %q", key)
	}

	rightByKey := make(map[string][]string, len(right.Rows))
	for _, row := range right.Rows {
		if _, dup := rightByKey[row[ri]]; dup {
			return nil, fmt.Errorf("merge: duplicate %s %q in %s", key, row[ri], filepath.Base(right.Path))
		}
		rightByKey[row[ri]] = row
	}

	merged := &Table{Path: left.Path}
	merged.Columns = append(merged.Columns, left.Columns...)
	for i, col := range right.Columns {
		if i == ri {
			continue
		}
		merged.Columns = append(merged.Columns, col)
	}

	for _, lrow := range left.Rows {
		rrow, ok := rightByKey[lrow[li]]
		if !ok {
			return nil, fmt.Errorf("merge: %s %q has no row in %s", key, lrow[li], filepath.Base(right.Path))
		}
		row := make([]string, 0, len(merged.Columns))
		row = append(row, lrow...)
		for i, v := range rrow {
			if i == ri {
				continue
			}
			row = append(row, v)
		}
		merged.Rows = append(merged.Rows, row)
	}
	return merged, nil
}
