// Package tuple defines rows, table schemas and the binary codec that
// lays rows out inside data pages.
package tuple

import (
	"fmt"
	"strings"

	"relstore/pkg/primitives"
	"relstore/pkg/types"
)

// Tuple represents one row: a tuple id plus a schema-ordered sequence of
// typed values. ID zero means "unassigned"; the table hands out nonzero
// ids on insert.
type Tuple struct {
	ID     primitives.TupleID
	schema *Schema
	fields []types.Field
}

// NewTuple creates an empty tuple conforming to the given schema.
func NewTuple(schema *Schema) *Tuple {
	return &Tuple{
		schema: schema,
		fields: make([]types.Field, schema.NumColumns()),
	}
}

// Schema returns the schema this tuple conforms to.
func (t *Tuple) Schema() *Schema {
	return t.schema
}

// SetField stores a value at column position i, enforcing the schema's
// type at that position.
func (t *Tuple) SetField(i int, field types.Field) error {
	if i < 0 || i >= len(t.fields) {
		return fmt.Errorf("field index %d out of bounds [0, %d)", i, len(t.fields))
	}

	expected, _ := t.schema.TypeAt(i)
	if field.Type() != expected {
		return fmt.Errorf("field type mismatch at index %d: expected %v, got %v",
			i, expected, field.Type())
	}

	t.fields[i] = field
	return nil
}

// Field returns the value at column position i.
func (t *Tuple) Field(i int) (types.Field, error) {
	if i < 0 || i >= len(t.fields) {
		return nil, fmt.Errorf("field index %d out of bounds [0, %d)", i, len(t.fields))
	}
	return t.fields[i], nil
}

// Fields returns the values in schema order. The slice is shared; do not
// mutate it.
func (t *Tuple) Fields() []types.Field {
	return t.fields
}

// Equals reports whether two tuples carry the same id and field-wise
// equal values.
func (t *Tuple) Equals(other *Tuple) bool {
	if other == nil || t.ID != other.ID || len(t.fields) != len(other.fields) {
		return false
	}
	for i, f := range t.fields {
		if f == nil || other.fields[i] == nil {
			if f != other.fields[i] {
				return false
			}
			continue
		}
		if !f.Equals(other.fields[i]) {
			return false
		}
	}
	return true
}

// String renders the tuple as "id | v1 | v2 | ...".
func (t *Tuple) String() string {
	parts := make([]string, 0, len(t.fields)+1)
	parts = append(parts, fmt.Sprintf("%d", t.ID))
	for _, f := range t.fields {
		if f != nil {
			parts = append(parts, f.String())
		} else {
			parts = append(parts, "null")
		}
	}
	return strings.Join(parts, " | ")
}
