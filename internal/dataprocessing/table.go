package dataprocessing

import (
	"fmt"
	"strings"
)

// Sheet is a worksheet as read from the workbook, before any normalization.
type Sheet struct {
	Name string
	Rows [][]string
}

// Row is one data row together with its 1-based line in the source sheet.
type Row struct {
	Line  int
	Cells []string
}

// Table is a sheet with a resolved, normalized header and no blank rows.
// Several source columns may normalize to the same name; lookups return the
// first non-blank cell among them.
type Table struct {
	Columns []string
	Rows    []Row

	index map[string][]int
}

// NormalizeHeader collapses every run of whitespace to a single space and
// trims the ends, so "Sold\nQuantity" and "Sold   Quantity" compare equal.
func NormalizeHeader(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// isBlankRow reports whether every cell is empty or whitespace.
func isBlankRow(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// newTable builds a table from a raw header row and its data rows.
func newTable(header []string, rows []Row) *Table {
	t := &Table{
		Rows:  rows,
		index: make(map[string][]int, len(header)),
	}
	for i, raw := range header {
		name := NormalizeHeader(raw)
		if name == "" {
			name = fmt.Sprintf("Column %d", i+1)
		}
		if _, seen := t.index[name]; !seen {
			t.Columns = append(t.Columns, name)
		}
		t.index[name] = append(t.index[name], i)
	}
	return t
}

// Has reports whether the named column is present.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// HasAny reports whether at least one of the named columns is present.
func (t *Table) HasAny(names ...string) bool {
	for _, name := range names {
		if t.Has(name) {
			return true
		}
	}
	return false
}

// Cell returns the raw text of the named column in row, or "" when the column
// is absent or every source cell for it is blank.
func (t *Table) Cell(row Row, name string) string {
	for _, pos := range t.index[name] {
		if pos >= len(row.Cells) {
			continue
		}
		if v := row.Cells[pos]; strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Drop removes the named columns if present and returns the ones removed.
func (t *Table) Drop(names ...string) []string {
	var dropped []string
	for _, name := range names {
		name = NormalizeHeader(name)
		if _, ok := t.index[name]; !ok {
			continue
		}
		delete(t.index, name)
		dropped = append(dropped, name)
	}
	if len(dropped) == 0 {
		return nil
	}

	kept := t.Columns[:0]
	for _, col := range t.Columns {
		if _, ok := t.index[col]; ok {
			kept = append(kept, col)
		}
	}
	t.Columns = kept
	return dropped
}
