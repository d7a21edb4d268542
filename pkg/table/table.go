// Package table implements the page-chain table: an ordered
// singly-linked list of data pages with append-only tuple insertion,
// full and filtered scans, and per-column in-memory B-tree indexes.
package table

import (
	"fmt"
	"log/slog"
	"sync"

	"relstore/pkg/index/btree"
	"relstore/pkg/logging"
	"relstore/pkg/memory"
	"relstore/pkg/primitives"
	"relstore/pkg/storage/page"
	"relstore/pkg/tuple"
)

// Table owns one page chain inside a buffer pool plus the in-memory
// B-tree indexes over its columns. All operations serialize on the
// table mutex; page-level access goes through the pool's pin contract.
type Table struct {
	name   string
	schema *tuple.Schema
	pool   *memory.BufferPool

	headPageID  primitives.PageID
	nextPageID  primitives.PageID
	nextTupleID primitives.TupleID

	indexes map[string]*btree.BTree

	mu sync.Mutex
}

// NewTable constructs a table over the given pool, adopting existing
// on-disk data when page 1 carries tuples and otherwise allocating a
// fresh head page.
func NewTable(name string, schema *tuple.Schema, pool *memory.BufferPool) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("table name cannot be empty")
	}
	if schema == nil || schema.NumColumns() == 0 {
		return nil, fmt.Errorf("table %s: schema cannot be empty", name)
	}

	t := &Table{
		name:        name,
		schema:      schema,
		pool:        pool,
		nextPageID:  1,
		nextTupleID: 1,
		indexes:     make(map[string]*btree.BTree),
	}

	if err := t.loadExisting(); err != nil {
		return nil, fmt.Errorf("table %s: failed to load existing data: %v", name, err)
	}

	if t.headPageID == primitives.InvalidPageID {
		pid, err := t.allocatePage()
		if err != nil {
			return nil, fmt.Errorf("table %s: failed to allocate head page: %v", name, err)
		}
		t.headPageID = pid
	}

	return t, nil
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Schema returns the table's schema.
func (t *Table) Schema() *tuple.Schema {
	return t.schema
}

// Pool returns the buffer pool backing this table.
func (t *Table) Pool() *memory.BufferPool {
	return t.pool
}

// allocatePage takes the next page id and initializes an empty page
// under it. The caller links it into the chain.
func (t *Table) allocatePage() (primitives.PageID, error) {
	pid := t.nextPageID
	t.nextPageID++

	ref, err := t.pool.GetPage(pid)
	if err != nil {
		return 0, err
	}
	defer ref.Release()

	page.NewHeader(pid).Write(ref.Data())
	ref.MarkDirty()

	logging.Get().Debug("allocated page",
		slog.String("table", t.name),
		slog.Uint64("page", uint64(pid)))
	return pid, nil
}

// HeadPageID returns the id of the chain's head page.
func (t *Table) HeadPageID() primitives.PageID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.headPageID
}

// PageCount walks the chain and returns the number of linked pages.
func (t *Table) PageCount() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	cur := t.headPageID
	for cur != primitives.InvalidPageID {
		ref, err := t.pool.GetPage(cur)
		if err != nil {
			return 0, err
		}
		next := page.ReadHeader(ref.Data()).NextPage
		ref.Release()
		count++
		cur = next
	}
	return count, nil
}
