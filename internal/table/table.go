// Package table holds row-per-point result tables and writes them to
// parquet/CSV sinks. Tables are built fresh per run and written as full
// replacement files, never mutated in place.
package table

import (
	"sort"
)

// Table is a wide, ordered table. Columns appear in the order they are
// first declared; undeclared columns found in appended rows are added at
// the end in sorted order so output layout stays deterministic.
type Table struct {
	cols  []string
	index map[string]int
	rows  []map[string]any
}

// New creates an empty table.
func New() *Table {
	return &Table{index: make(map[string]int)}
}

// EnsureColumns declares columns in the given order, skipping known names.
func (t *Table) EnsureColumns(names ...string) {
	for _, n := range names {
		if _, ok := t.index[n]; ok {
			continue
		}
		t.index[n] = len(t.cols)
		t.cols = append(t.cols, n)
	}
}

// Append adds one row. Unknown keys become new columns (sorted).
func (t *Table) Append(row map[string]any) {
	var unseen []string
	for k := range row {
		if _, ok := t.index[k]; !ok {
			unseen = append(unseen, k)
		}
	}
	sort.Strings(unseen)
	t.EnsureColumns(unseen...)

	copied := make(map[string]any, len(row))
	for k, v := range row {
		copied[k] = v
	}
	t.rows = append(t.rows, copied)
}

// AppendTable appends every row of other, merging column sets.
func (t *Table) AppendTable(other *Table) {
	t.EnsureColumns(other.cols...)
	for _, r := range other.rows {
		t.Append(r)
	}
}

// Columns returns the column names in output order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.cols...)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Cell returns the value at (row, col), or nil when absent.
func (t *Table) Cell(row int, col string) any {
	if row < 0 || row >= len(t.rows) {
		return nil
	}
	return t.rows[row][col]
}
