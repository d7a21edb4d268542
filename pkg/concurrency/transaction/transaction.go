// Package transaction tracks transaction lifecycle and frames it in the
// write-ahead log.
package transaction

import (
	"fmt"
	"sync"
	"time"

	"relstore/pkg/concurrency/lock"
	"relstore/pkg/primitives"
	"relstore/pkg/wal"
)

// State is the lifecycle position of a transaction.
type State int

const (
	Active State = iota
	Committed
	Aborted
)

func (s State) String() string {
	switch s {
	case Active:
		return "ACTIVE"
	case Committed:
		return "COMMITTED"
	case Aborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Transaction is one unit of work. Begin/commit/abort transitions are
// framed in the WAL before they are acknowledged.
type Transaction struct {
	ID    primitives.TransactionID
	State State
	Start time.Time
}

// Manager assigns transaction ids, tracks states and owns the lock
// table. Its mutex is independent of the buffer pool's and WAL's and is
// never held while calling into either.
type Manager struct {
	next  primitives.TransactionID
	txns  map[primitives.TransactionID]*Transaction
	locks *lock.Table
	wal   *wal.WAL
	mu    sync.Mutex
}

// NewManager creates a manager logging to the given WAL.
func NewManager(w *wal.WAL) *Manager {
	return &Manager{
		next:  1,
		txns:  make(map[primitives.TransactionID]*Transaction),
		locks: lock.NewTable(),
		wal:   w,
	}
}

// Locks exposes the lock table owned by this manager.
func (m *Manager) Locks() *lock.Table {
	return m.locks
}

// Begin starts a new transaction, durably logging BEGIN before
// returning its id.
func (m *Manager) Begin() (primitives.TransactionID, error) {
	m.mu.Lock()
	tid := m.next
	m.next++
	m.txns[tid] = &Transaction{ID: tid, State: Active, Start: time.Now()}
	m.mu.Unlock()

	if err := m.wal.LogBegin(tid); err != nil {
		return 0, fmt.Errorf("failed to log BEGIN: %v", err)
	}
	return tid, nil
}

// Commit durably logs COMMIT, marks the transaction committed and
// releases its locks.
func (m *Manager) Commit(tid primitives.TransactionID) error {
	if err := m.transition(tid, Committed); err != nil {
		return err
	}
	if err := m.wal.LogCommit(tid); err != nil {
		return fmt.Errorf("failed to log COMMIT: %v", err)
	}
	m.locks.ReleaseAll(tid)
	return nil
}

// Abort durably logs ABORT, marks the transaction aborted and releases
// its locks.
func (m *Manager) Abort(tid primitives.TransactionID) error {
	if err := m.transition(tid, Aborted); err != nil {
		return err
	}
	if err := m.wal.LogAbort(tid); err != nil {
		return fmt.Errorf("failed to log ABORT: %v", err)
	}
	m.locks.ReleaseAll(tid)
	return nil
}

func (m *Manager) transition(tid primitives.TransactionID, to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn, exists := m.txns[tid]
	if !exists {
		return fmt.Errorf("transaction %d not found", tid)
	}
	if txn.State != Active {
		return fmt.Errorf("transaction %d is %v, not active", tid, txn.State)
	}
	txn.State = to
	return nil
}

// StateOf returns the recorded state of a transaction.
func (m *Manager) StateOf(tid primitives.TransactionID) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn, exists := m.txns[tid]
	if !exists {
		return 0, false
	}
	return txn.State, true
}

// ActiveCount returns the number of transactions still active.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, txn := range m.txns {
		if txn.State == Active {
			count++
		}
	}
	return count
}
