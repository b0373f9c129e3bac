// Package table provides the in-memory columnar table model consumed by
// the merge operations: typed columns with validity bitmaps, logical and
// physical data types, and schema comparison.
package table

import "fmt"

// Table is an ordered sequence of named columns sharing one row count.
// Tables handed to merge operations are treated as immutable.
type Table struct {
	cols   []*Column
	length int
}

// NewTable builds a table from columns, verifying that all columns share
// one length and that names are unique.
func NewTable(cols ...*Column) (*Table, error) {
	if len(cols) == 0 {
		return &Table{}, nil
	}
	length := cols[0].Length
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if c.Length != length {
			return nil, fmt.Errorf("%w: column %q has %d rows, expected %d",
				ErrLengthMismatch, c.Name, c.Length, length)
		}
		if _, ok := seen[c.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return &Table{cols: cols, length: length}, nil
}

// NewTableNoChecks builds a table without validating column lengths or
// names. The caller guarantees every column has height rows.
func NewTableNoChecks(height int, cols []*Column) *Table {
	return &Table{cols: cols, length: height}
}

// NumRows returns the row count
func (t *Table) NumRows() int {
	return t.length
}

// NumColumns returns the column count
func (t *Table) NumColumns() int {
	return len(t.cols)
}

// Column returns the column at position i
func (t *Table) Column(i int) *Column {
	return t.cols[i]
}

// Columns returns the columns in order. The returned slice is shared and
// must not be modified.
func (t *Table) Columns() []*Column {
	return t.cols
}

// ColumnByName returns the first column with the given name
func (t *Table) ColumnByName(name string) (*Column, error) {
	for _, c := range t.cols {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

// SchemaEqual verifies that two tables have identical column names and
// data types in identical order, returning a descriptive error naming the
// first difference.
func (t *Table) SchemaEqual(other *Table) error {
	if len(t.cols) != len(other.cols) {
		return fmt.Errorf("schema mismatch: %d columns vs %d columns", len(t.cols), len(other.cols))
	}
	for i, c := range t.cols {
		o := other.cols[i]
		if c.Name != o.Name {
			return fmt.Errorf("schema mismatch at position %d: column %q vs %q", i, c.Name, o.Name)
		}
		if !c.Type.Equal(o.Type) {
			return fmt.Errorf("schema mismatch: column %q has type %s vs %s", c.Name, c.Type, o.Type)
		}
	}
	return nil
}
