package transaction

import (
	"os"
	"path/filepath"
	"testing"

	"relstore/pkg/concurrency/lock"
	"relstore/pkg/wal"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "txn.log")
	w, err := wal.Open(path)
	if err != nil {
		t.Fatalf("wal.Open failed: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return NewManager(w), path
}

func TestBeginCommitFramesWAL(t *testing.T) {
	m, path := newTestManager(t)

	tid, err := m.Begin()
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if tid != 1 {
		t.Errorf("first tid = %d, want 1", tid)
	}
	if err := m.Commit(tid); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "BEGIN 1\nCOMMIT 1\n" {
		t.Errorf("log = %q", data)
	}

	if state, ok := m.StateOf(tid); !ok || state != Committed {
		t.Errorf("StateOf = %v, %v", state, ok)
	}
}

func TestAbortFramesWAL(t *testing.T) {
	m, path := newTestManager(t)

	tid, _ := m.Begin()
	if err := m.Abort(tid); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "BEGIN 1\nABORT 1\n" {
		t.Errorf("log = %q", data)
	}
	if state, _ := m.StateOf(tid); state != Aborted {
		t.Errorf("state = %v, want ABORTED", state)
	}
}

func TestMonotonicTransactionIDs(t *testing.T) {
	m, _ := newTestManager(t)

	a, _ := m.Begin()
	b, _ := m.Begin()
	c, _ := m.Begin()
	if a != 1 || b != 2 || c != 3 {
		t.Errorf("tids = %d, %d, %d; want 1, 2, 3", a, b, c)
	}
	if m.ActiveCount() != 3 {
		t.Errorf("ActiveCount = %d, want 3", m.ActiveCount())
	}
}

func TestDoubleCommitFails(t *testing.T) {
	m, _ := newTestManager(t)

	tid, _ := m.Begin()
	if err := m.Commit(tid); err != nil {
		t.Fatal(err)
	}
	if err := m.Commit(tid); err == nil {
		t.Error("second commit succeeded")
	}
	if err := m.Abort(tid); err == nil {
		t.Error("abort of committed transaction succeeded")
	}
}

func TestCommitReleasesLocks(t *testing.T) {
	m, _ := newTestManager(t)

	tid, _ := m.Begin()
	if !m.Locks().Acquire(tid, 5, lock.Exclusive) {
		t.Fatal("lock refused")
	}
	if err := m.Commit(tid); err != nil {
		t.Fatal(err)
	}
	if m.Locks().IsLocked(5) {
		t.Error("locks survived commit")
	}
}

func TestUnknownTransaction(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.Commit(99); err == nil {
		t.Error("commit of unknown transaction succeeded")
	}
	if _, ok := m.StateOf(99); ok {
		t.Error("StateOf reported unknown transaction")
	}
}
