// Package lock implements the page lock table: a shared/exclusive
// compatibility check without a wait queue. A conflicting request
// simply fails; retry is the caller's problem, and the engine documents
// single-writer usage accordingly.
package lock

import (
	"sync"

	"relstore/pkg/primitives"
)

// Mode is the lock strength.
type Mode int

const (
	// Shared locks are compatible with other shared locks.
	Shared Mode = iota
	// Exclusive locks conflict with any other lock.
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "EXCLUSIVE"
	}
	return "SHARED"
}

type entry struct {
	tid  primitives.TransactionID
	mode Mode
}

// Table maps pages to their current lock holders. It is a value owned
// by the transaction manager, never a process-wide singleton.
type Table struct {
	pages map[primitives.PageID][]entry
	mu    sync.Mutex
}

// NewTable creates an empty lock table.
func NewTable() *Table {
	return &Table{pages: make(map[primitives.PageID][]entry)}
}

// Acquire attempts to take a lock on the page for the transaction,
// returning false on conflict. A transaction holding SHARED upgrades to
// EXCLUSIVE when it is the sole holder. Re-acquiring an equal or weaker
// lock succeeds.
func (t *Table) Acquire(tid primitives.TransactionID, pid primitives.PageID, mode Mode) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	holders := t.pages[pid]

	for i, e := range holders {
		if e.tid != tid {
			continue
		}
		if e.mode == Exclusive || e.mode == mode {
			return true
		}
		// Shared held, exclusive requested: upgrade if sole holder.
		if len(holders) == 1 {
			holders[i].mode = Exclusive
			return true
		}
		return false
	}

	for _, e := range holders {
		if mode == Exclusive || e.mode == Exclusive {
			return false
		}
	}

	t.pages[pid] = append(holders, entry{tid: tid, mode: mode})
	return true
}

// ReleaseAll removes every lock owned by the transaction.
func (t *Table) ReleaseAll(tid primitives.TransactionID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for pid, holders := range t.pages {
		kept := holders[:0]
		for _, e := range holders {
			if e.tid != tid {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(t.pages, pid)
		} else {
			t.pages[pid] = kept
		}
	}
}

// Holds returns the mode the transaction holds on the page, if any.
func (t *Table) Holds(tid primitives.TransactionID, pid primitives.PageID) (Mode, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.pages[pid] {
		if e.tid == tid {
			return e.mode, true
		}
	}
	return 0, false
}

// IsLocked reports whether any transaction holds a lock on the page.
func (t *Table) IsLocked(pid primitives.PageID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pages[pid]) > 0
}
