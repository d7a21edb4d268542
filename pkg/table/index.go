package table

import (
	"log/slog"
	"sort"

	"relstore/pkg/dberr"
	"relstore/pkg/index/btree"
	"relstore/pkg/logging"
	"relstore/pkg/tuple"
)

// CreateIndex builds a B-tree over the named column by scanning the
// table once. Creating an index that already exists is a no-op;
// subsequent inserts keep the index live.
func (t *Table) CreateIndex(column string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	colIdx, err := t.schema.ColumnIndex(column)
	if err != nil {
		return dberr.NotFound("table %s has no column %s", t.name, column).
			WithComponent("Table").WithOperation("CreateIndex")
	}

	if _, exists := t.indexes[column]; exists {
		return nil
	}

	idx := btree.New()
	tuples, err := t.scan(nil)
	if err != nil {
		return err
	}
	for _, tp := range tuples {
		field, err := tp.Field(colIdx)
		if err != nil {
			return err
		}
		idx.Insert(field.String(), tp.ID)
	}

	t.indexes[column] = idx
	logging.Get().Info("index created",
		slog.String("table", t.name),
		slog.String("column", column),
		slog.Int("keys", idx.Len()))
	return nil
}

// HasIndex reports whether the column carries an index.
func (t *Table) HasIndex(column string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.indexes[column]
	return ok
}

// IndexedColumns returns the indexed column names in sorted order, for
// the catalog to persist.
func (t *Table) IndexedColumns() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	cols := make([]string, 0, len(t.indexes))
	for col := range t.indexes {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// RebuildIndexes recreates the indexes recorded in the catalog after a
// reopen. Unknown columns are skipped with a warning rather than
// failing the whole load.
func (t *Table) RebuildIndexes(columns []string) error {
	for _, col := range columns {
		if _, err := t.schema.ColumnIndex(col); err != nil {
			logging.Get().Warn("skipping index on unknown column",
				slog.String("table", t.name),
				slog.String("column", col))
			continue
		}
		if err := t.CreateIndex(col); err != nil {
			return err
		}
	}
	return nil
}

// updateIndexes pushes the tuple's keys into every column index. Must
// be called with the table mutex held and after the tuple has its id.
func (t *Table) updateIndexes(tp *tuple.Tuple) {
	for col, idx := range t.indexes {
		colIdx, err := t.schema.ColumnIndex(col)
		if err != nil {
			continue
		}
		field, err := tp.Field(colIdx)
		if err != nil || field == nil {
			continue
		}
		idx.Insert(field.String(), tp.ID)
	}
}
