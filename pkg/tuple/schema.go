package tuple

import (
	"fmt"
	"strings"

	"relstore/pkg/types"
)

// Column describes one column of a table. DeclaredSize is the advisory
// VARCHAR(n) bound; the stored length of a text value is always
// per-value.
type Column struct {
	Name         string
	Type         types.Type
	DeclaredSize uint32
}

// Schema is the ordered, typed column declaration of a table. Column
// order is significant: it defines both the on-disk field order and the
// positional semantics of INSERT.
type Schema struct {
	Columns []Column
}

// NewSchema builds a schema from a column list. At least one column is
// required and names must be unique within the table.
func NewSchema(columns []Column) (*Schema, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("schema must have at least one column")
	}

	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("column name cannot be empty")
		}
		if seen[col.Name] {
			return nil, fmt.Errorf("duplicate column name %q", col.Name)
		}
		seen[col.Name] = true
	}

	cols := make([]Column, len(columns))
	copy(cols, columns)
	return &Schema{Columns: cols}, nil
}

// NumColumns returns the number of columns.
func (s *Schema) NumColumns() int {
	return len(s.Columns)
}

// ColumnIndex locates a column by name. The search is case-sensitive.
func (s *Schema) ColumnIndex(name string) (int, error) {
	for i, col := range s.Columns {
		if col.Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("column %s not found", name)
}

// TypeAt returns the type of the ith column.
func (s *Schema) TypeAt(i int) (types.Type, error) {
	if i < 0 || i >= len(s.Columns) {
		return 0, fmt.Errorf("column index %d out of bounds [0, %d)", i, len(s.Columns))
	}
	return s.Columns[i].Type, nil
}

// ColumnNames returns the column names in declaration order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}

// Equals reports whether two schemas have the same column types in the
// same order. Names and declared sizes are not compared.
func (s *Schema) Equals(other *Schema) bool {
	if other == nil || len(s.Columns) != len(other.Columns) {
		return false
	}
	for i, col := range s.Columns {
		if col.Type != other.Columns[i].Type {
			return false
		}
	}
	return true
}

// String returns a readable "name TYPE, ..." form of the schema.
func (s *Schema) String() string {
	parts := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		if col.Type == types.VarcharType && col.DeclaredSize > 0 {
			parts[i] = fmt.Sprintf("%s %s(%d)", col.Name, col.Type, col.DeclaredSize)
		} else {
			parts[i] = fmt.Sprintf("%s %s", col.Name, col.Type)
		}
	}
	return strings.Join(parts, ", ")
}
