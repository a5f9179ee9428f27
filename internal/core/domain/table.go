package domain

import "sort"

// Table is a file loaded into memory as rows of string cells.
type Table struct {
	// Name is the source file name without extension.
	Name string
	// Columns are the header cells, in file order.
	Columns []string
	// Rows excludes the header row. Every row has len(Columns) cells.
	Rows [][]string
}

// RowCount returns the number of data rows.
func (t *Table) RowCount() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the index of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Value returns the cell at row for the named column.
func (t *Table) Value(row int, column string) (string, bool) {
	idx := t.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return "", false
	}
	return t.Rows[row][idx], true
}

// Records returns the rows keyed by column name.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Columns))
		for i, c := range t.Columns {
			if i < len(row) {
				rec[c] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}

// TableSet maps table names to loaded tables.
type TableSet map[string]*Table

// Names returns the table names in sorted order.
func (s TableSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TotalRows returns the row count across all tables.
func (s TableSet) TotalRows() int {
	total := 0
	for _, t := range s {
		total += t.RowCount()
	}
	return total
}
