package memory

import "relstore/pkg/primitives"

// PageRef is the borrow guard handed out by GetPage. It holds the pin on
// the underlying frame: the frame cannot be evicted until Release is
// called. Mutations to the page bytes must be followed by MarkDirty
// before the matching Release; mutating after Release is undefined.
//
// Release is idempotent, so `defer ref.Release()` is always safe.
type PageRef struct {
	pool     *BufferPool
	pageID   primitives.PageID
	frame    *Frame
	released bool
}

// PageID returns the id of the borrowed page.
func (r *PageRef) PageID() primitives.PageID {
	return r.pageID
}

// Data returns the frame's page bytes. The slice aliases pool-owned
// memory and is only valid until Release.
func (r *PageRef) Data() []byte {
	return r.frame.data
}

// MarkDirty flags the borrowed frame as modified. Must be called before
// Release for any mutation that should reach disk.
func (r *PageRef) MarkDirty() {
	r.pool.MarkDirty(r.pageID)
}

// Release unpins the frame, making it evictable again. Safe to call more
// than once.
func (r *PageRef) Release() {
	if r.released {
		return
	}
	r.released = true
	r.pool.ReleasePage(r.pageID)
}
