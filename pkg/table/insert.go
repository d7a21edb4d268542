package table

import (
	"fmt"

	"relstore/pkg/dberr"
	"relstore/pkg/primitives"
	"relstore/pkg/storage/page"
	"relstore/pkg/tuple"
)

// Insert appends a tuple to the first chain page with room, allocating
// and linking a new page when every page is full. The tuple gets the
// next nonzero id if unassigned, and every column index is updated with
// the stringified key once the tuple is on a page.
func (t *Table) Insert(tp *tuple.Tuple) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.validate(tp); err != nil {
		return err
	}

	encoded, err := tuple.Encode(tpWithID(t, tp))
	if err != nil {
		return err
	}

	cur := t.headPageID
	for cur != primitives.InvalidPageID {
		inserted, next, err := t.tryInsertAt(cur, encoded)
		if err != nil {
			return err
		}
		if inserted {
			t.updateIndexes(tp)
			return nil
		}
		cur = next
	}

	// Every page in the chain is full: allocate a fresh page, insert
	// there, then link it by rewriting the head's next_page. The chain's
	// second link is therefore the newest page; physical order is not
	// insertion order.
	newPID, err := t.allocatePage()
	if err != nil {
		return err
	}
	inserted, _, err := t.tryInsertAt(newPID, encoded)
	if err != nil {
		return err
	}
	if !inserted {
		return fmt.Errorf("table %s: tuple does not fit on an empty page", t.name)
	}

	if err := t.linkAfterHead(newPID); err != nil {
		return err
	}

	t.updateIndexes(tp)
	return nil
}

// tpWithID assigns the next tuple id when the tuple arrives unassigned.
func tpWithID(t *Table, tp *tuple.Tuple) *tuple.Tuple {
	if tp.ID == 0 {
		tp.ID = t.nextTupleID
		t.nextTupleID++
	}
	return tp
}

// validate checks arity and per-position types against the schema.
func (t *Table) validate(tp *tuple.Tuple) error {
	if tp.Schema().NumColumns() != t.schema.NumColumns() {
		return dberr.SchemaMismatch("table %s expects %d values, got %d",
			t.name, t.schema.NumColumns(), tp.Schema().NumColumns()).
			WithComponent("Table").WithOperation("Insert")
	}
	for i := 0; i < t.schema.NumColumns(); i++ {
		want, _ := t.schema.TypeAt(i)
		field, err := tp.Field(i)
		if err != nil {
			return err
		}
		if field == nil {
			return dberr.SchemaMismatch("table %s: value %d is missing", t.name, i).
				WithComponent("Table").WithOperation("Insert")
		}
		if field.Type() != want {
			return dberr.SchemaMismatch("table %s: value %d is %v, column %s is %v",
				t.name, i, field.Type(), t.schema.Columns[i].Name, want).
				WithComponent("Table").WithOperation("Insert")
		}
	}
	return nil
}

// tryInsertAt appends the encoded tuple to the page when its free space
// allows, returning (inserted, next page in chain).
func (t *Table) tryInsertAt(pid primitives.PageID, encoded []byte) (bool, primitives.PageID, error) {
	ref, err := t.pool.GetPage(pid)
	if err != nil {
		return false, 0, err
	}
	defer ref.Release()

	data := ref.Data()
	header := page.ReadHeader(data)

	size := uint32(len(encoded))
	if size > header.FreeSpace {
		return false, header.NextPage, nil
	}

	// Insertion point: after the header and every existing tuple.
	offset := uint32(page.HeaderSize)
	for i := uint32(0); i < header.TupleCount; i++ {
		offset += tuple.SizeAt(data, offset)
	}

	copy(data[offset:], encoded)
	header.TupleCount++
	header.FreeSpace -= size
	header.Write(data)

	ref.MarkDirty()
	return true, header.NextPage, nil
}

// linkAfterHead splices a newly allocated page into the chain right
// behind the head page.
func (t *Table) linkAfterHead(newPID primitives.PageID) error {
	ref, err := t.pool.GetPage(t.headPageID)
	if err != nil {
		return err
	}
	defer ref.Release()

	data := ref.Data()
	header := page.ReadHeader(data)
	newHeader := header
	newHeader.NextPage = newPID

	// Preserve the rest of the chain: the fresh page inherits the head's
	// old successor.
	pref, err := t.pool.GetPage(newPID)
	if err != nil {
		return err
	}
	ph := page.ReadHeader(pref.Data())
	ph.NextPage = header.NextPage
	ph.Write(pref.Data())
	pref.MarkDirty()
	pref.Release()

	newHeader.Write(data)
	ref.MarkDirty()
	return nil
}
