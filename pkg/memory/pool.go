// Package memory implements the buffer pool: a bounded set of in-memory
// frames caching disk pages, with LRU eviction and dirty-page
// write-back.
package memory

import (
	"fmt"
	"sync"

	"relstore/pkg/dberr"
	"relstore/pkg/primitives"
	"relstore/pkg/storage/pagefile"
)

// DefaultPoolSize is the default number of frames (about 4 MB of cache).
const DefaultPoolSize = 1000

// BufferPool mediates every read and write between the table layer and
// the page file. One mutex covers the frames, the page table, the LRU
// list and the hit/miss counters for the duration of each public call;
// pins extend across calls but not across mutex regions.
type BufferPool struct {
	file *pagefile.PageFile

	frames    []*Frame
	pageTable map[primitives.PageID]int
	lru       *lruList
	free      []int

	hits   uint64
	misses uint64

	mu sync.Mutex
}

// Stats is a snapshot of the pool's cache counters.
type Stats struct {
	Hits     uint64
	Misses   uint64
	Resident int
	Size     int
}

// NewBufferPool creates a pool of size frames backed by the given page
// file. A non-positive size falls back to DefaultPoolSize.
func NewBufferPool(file *pagefile.PageFile, size int) *BufferPool {
	if size <= 0 {
		size = DefaultPoolSize
	}

	frames := make([]*Frame, size)
	free := make([]int, size)
	for i := range frames {
		frames[i] = newFrame()
		// Hand out low frame ids first so ties break by insertion order.
		free[i] = size - 1 - i
	}

	return &BufferPool{
		file:      file,
		frames:    frames,
		pageTable: make(map[primitives.PageID]int),
		lru:       newLRUList(),
		free:      free,
	}
}

// GetPage returns a pinned reference to the frame holding the page,
// loading it from disk on a miss. If every frame is pinned the call
// fails with NO_EVICTABLE_FRAME.
func (bp *BufferPool) GetPage(pid primitives.PageID) (*PageRef, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if idx, ok := bp.pageTable[pid]; ok {
		bp.hits++
		bp.lru.moveToFront(idx)
		frame := bp.frames[idx]
		frame.pinned = true
		return &PageRef{pool: bp, pageID: pid, frame: frame}, nil
	}

	bp.misses++

	idx, err := bp.claimFrame()
	if err != nil {
		return nil, err
	}

	data, err := bp.file.ReadPage(pid)
	if err != nil {
		// Put the frame back rather than leaking it.
		bp.free = append(bp.free, idx)
		return nil, fmt.Errorf("failed to load page %d: %v", pid, err)
	}

	frame := bp.frames[idx]
	copy(frame.data, data)
	frame.pageID = pid
	frame.pinned = true
	frame.dirty = false

	bp.pageTable[pid] = idx
	bp.lru.pushFront(idx)

	return &PageRef{pool: bp, pageID: pid, frame: frame}, nil
}

// claimFrame returns a frame ready to carry a new page: a never-used
// frame if one remains, otherwise the evicted LRU victim. Must be called
// with the pool mutex held.
func (bp *BufferPool) claimFrame() (int, error) {
	if n := len(bp.free); n > 0 {
		idx := bp.free[n-1]
		bp.free = bp.free[:n-1]
		return idx, nil
	}

	idx, ok := bp.lru.victim(func(i int) bool { return !bp.frames[i].pinned })
	if !ok {
		return 0, dberr.NoEvictableFrame("all %d frames are pinned", len(bp.frames)).
			WithComponent("BufferPool").WithOperation("GetPage")
	}
	if err := bp.evict(idx); err != nil {
		// Eviction failed mid-way; the victim is already out of the LRU
		// list, so reinsert it before surfacing the error.
		bp.lru.pushFront(idx)
		return 0, err
	}
	return idx, nil
}

// evict writes the frame back if dirty, removes its mapping and resets
// it. Must be called with the pool mutex held.
func (bp *BufferPool) evict(idx int) error {
	frame := bp.frames[idx]
	if frame.dirty {
		if err := bp.file.WritePage(frame.pageID, frame.data); err != nil {
			return fmt.Errorf("failed to write back page %d on eviction: %v", frame.pageID, err)
		}
	}
	delete(bp.pageTable, frame.pageID)
	frame.reset()
	return nil
}

// ReleasePage unpins the frame holding the page. Idempotent on an
// already-unpinned frame and a no-op for non-resident pages.
func (bp *BufferPool) ReleasePage(pid primitives.PageID) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if idx, ok := bp.pageTable[pid]; ok {
		bp.frames[idx].pinned = false
	}
}

// MarkDirty flags the resident frame holding the page as modified. A
// no-op if the page is not resident: callers dirty a page while they
// still hold the pin, so a non-resident page here is a caller bug that
// surfaces as a lost write rather than a crash.
func (bp *BufferPool) MarkDirty(pid primitives.PageID) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if idx, ok := bp.pageTable[pid]; ok {
		bp.frames[idx].dirty = true
	}
}

// FlushPage writes the page to disk if resident and dirty, then clears
// the dirty flag. Idempotent.
func (bp *BufferPool) FlushPage(pid primitives.PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.flushFrameLocked(pid)
}

func (bp *BufferPool) flushFrameLocked(pid primitives.PageID) error {
	idx, ok := bp.pageTable[pid]
	if !ok {
		return nil
	}
	frame := bp.frames[idx]
	if !frame.dirty {
		return nil
	}
	if err := bp.file.WritePage(pid, frame.data); err != nil {
		return fmt.Errorf("failed to flush page %d: %v", pid, err)
	}
	frame.dirty = false
	return nil
}

// FlushAll writes every dirty resident frame to disk and syncs the
// file. Idempotent when no mutations occur between calls.
func (bp *BufferPool) FlushAll() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for pid := range bp.pageTable {
		if err := bp.flushFrameLocked(pid); err != nil {
			return err
		}
	}
	return bp.file.Flush()
}

// Close flushes all dirty frames before the pool is abandoned. The
// underlying page file stays open; its owner closes it.
func (bp *BufferPool) Close() error {
	return bp.FlushAll()
}

// Stats returns a snapshot of the hit/miss counters and residency.
func (bp *BufferPool) Stats() Stats {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	return Stats{
		Hits:     bp.hits,
		Misses:   bp.misses,
		Resident: len(bp.pageTable),
		Size:     len(bp.frames),
	}
}

// Resident reports whether the page currently occupies a frame.
func (bp *BufferPool) Resident(pid primitives.PageID) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	_, ok := bp.pageTable[pid]
	return ok
}

// CheckInvariants verifies the pool's internal consistency: the page
// table and frames agree bidirectionally, and every mapped frame appears
// in the LRU list exactly once. Used by tests after every public
// operation.
func (bp *BufferPool) CheckInvariants() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for pid, idx := range bp.pageTable {
		if bp.frames[idx].pageID != pid {
			return fmt.Errorf("page table maps %d to frame %d holding page %d",
				pid, idx, bp.frames[idx].pageID)
		}
	}

	seen := make(map[int]bool)
	for _, idx := range bp.lru.frames() {
		if seen[idx] {
			return fmt.Errorf("frame %d appears in LRU list more than once", idx)
		}
		seen[idx] = true
	}

	if bp.lru.len() != len(bp.pageTable) {
		return fmt.Errorf("LRU list has %d entries but page table has %d",
			bp.lru.len(), len(bp.pageTable))
	}
	return nil
}
