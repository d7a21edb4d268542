package table

import (
	"relstore/pkg/dberr"
	"relstore/pkg/primitives"
	"relstore/pkg/storage/page"
	"relstore/pkg/tuple"
	"relstore/pkg/types"
)

// SelectAll follows the chain from the head page and decodes every
// tuple, page by page, in stored order.
func (t *Table) SelectAll() ([]*tuple.Tuple, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scan(nil)
}

// SelectWhere returns the tuples whose named column equals value. With
// an index on the column the lookup collapses to a single exact B-tree
// probe (duplicate keys return only the most recent insertion);
// otherwise every tuple is compared with type-strict equality.
func (t *Table) SelectWhere(column string, value types.Field) ([]*tuple.Tuple, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	colIdx, err := t.schema.ColumnIndex(column)
	if err != nil {
		return nil, dberr.NotFound("table %s has no column %s", t.name, column).
			WithComponent("Table").WithOperation("SelectWhere")
	}

	if idx, ok := t.indexes[column]; ok {
		id, found := idx.Search(value.String())
		if !found {
			return nil, nil
		}
		return t.scan(func(tp *tuple.Tuple) bool {
			return tp.ID == id
		})
	}

	return t.scan(func(tp *tuple.Tuple) bool {
		field, err := tp.Field(colIdx)
		if err != nil || field == nil {
			return false
		}
		return field.Equals(value)
	})
}

// scan walks the page chain collecting tuples that pass keep (nil keeps
// everything). Must be called with the table mutex held.
func (t *Table) scan(keep func(*tuple.Tuple) bool) ([]*tuple.Tuple, error) {
	var out []*tuple.Tuple

	cur := t.headPageID
	for cur != primitives.InvalidPageID {
		tuples, next, err := t.readPage(cur)
		if err != nil {
			return nil, err
		}
		for _, tp := range tuples {
			if keep == nil || keep(tp) {
				out = append(out, tp)
			}
		}
		cur = next
	}
	return out, nil
}

// readPage decodes every tuple on one page and returns the chain's next
// page id. The pin is held only for the duration of the decode.
func (t *Table) readPage(pid primitives.PageID) ([]*tuple.Tuple, primitives.PageID, error) {
	ref, err := t.pool.GetPage(pid)
	if err != nil {
		return nil, 0, err
	}
	defer ref.Release()

	data := ref.Data()
	header := page.ReadHeader(data)

	tuples := make([]*tuple.Tuple, 0, header.TupleCount)
	offset := uint32(page.HeaderSize)
	for i := uint32(0); i < header.TupleCount; i++ {
		tp, consumed, err := tuple.Decode(data[offset:], t.schema)
		if err != nil {
			return nil, 0, err
		}
		tuples = append(tuples, tp)
		offset += consumed
	}

	return tuples, header.NextPage, nil
}
