package engine

import (
	"fmt"

	"relstore/pkg/tuple"
)

// Result is what a statement returns to the shell: column headers,
// stringified rows, and a short status message.
type Result struct {
	Columns      []string
	Rows         [][]string
	RowsAffected int
	Message      string
}

// resultFromTuples projects tuples onto the selected columns ("*" when
// selected is nil) and stringifies every cell. The tuple id is always
// the first output column.
func resultFromTuples(schema *tuple.Schema, tuples []*tuple.Tuple, selected []string) (*Result, error) {
	indices := make([]int, 0, schema.NumColumns())
	if selected == nil {
		for i := range schema.Columns {
			indices = append(indices, i)
		}
	} else {
		for _, name := range selected {
			idx, err := schema.ColumnIndex(name)
			if err != nil {
				return nil, err
			}
			indices = append(indices, idx)
		}
	}

	columns := make([]string, 0, len(indices)+1)
	columns = append(columns, "id")
	for _, idx := range indices {
		columns = append(columns, schema.Columns[idx].Name)
	}

	rows := make([][]string, 0, len(tuples))
	for _, tp := range tuples {
		row := make([]string, 0, len(indices)+1)
		row = append(row, fmt.Sprintf("%d", tp.ID))
		for _, idx := range indices {
			field, err := tp.Field(idx)
			if err != nil {
				return nil, err
			}
			if field == nil {
				row = append(row, "null")
			} else {
				row = append(row, field.String())
			}
		}
		rows = append(rows, row)
	}

	return &Result{
		Columns: columns,
		Rows:    rows,
		Message: fmt.Sprintf("%d row(s)", len(rows)),
	}, nil
}
