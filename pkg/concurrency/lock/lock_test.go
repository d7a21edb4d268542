package lock

import "testing"

func TestSharedLocksAreCompatible(t *testing.T) {
	lt := NewTable()

	if !lt.Acquire(1, 10, Shared) {
		t.Fatal("first shared lock refused")
	}
	if !lt.Acquire(2, 10, Shared) {
		t.Error("second shared lock refused")
	}
	if !lt.IsLocked(10) {
		t.Error("page should report locked")
	}
}

func TestExclusiveConflictsWithAny(t *testing.T) {
	lt := NewTable()

	if !lt.Acquire(1, 10, Exclusive) {
		t.Fatal("exclusive lock on free page refused")
	}
	if lt.Acquire(2, 10, Shared) {
		t.Error("shared lock granted over exclusive holder")
	}
	if lt.Acquire(2, 10, Exclusive) {
		t.Error("exclusive lock granted over exclusive holder")
	}
}

func TestSharedBlocksExclusiveFromOthers(t *testing.T) {
	lt := NewTable()

	if !lt.Acquire(1, 10, Shared) {
		t.Fatal("shared lock refused")
	}
	if lt.Acquire(2, 10, Exclusive) {
		t.Error("exclusive lock granted over shared holder")
	}
}

func TestReacquireIsGranted(t *testing.T) {
	lt := NewTable()

	if !lt.Acquire(1, 10, Exclusive) {
		t.Fatal("exclusive lock refused")
	}
	if !lt.Acquire(1, 10, Exclusive) {
		t.Error("re-acquire of held exclusive refused")
	}
	if !lt.Acquire(1, 10, Shared) {
		t.Error("weaker lock refused to exclusive holder")
	}
}

func TestUpgradeWhenSoleHolder(t *testing.T) {
	lt := NewTable()

	if !lt.Acquire(1, 10, Shared) {
		t.Fatal("shared lock refused")
	}
	if !lt.Acquire(1, 10, Exclusive) {
		t.Error("upgrade refused to sole shared holder")
	}
	if mode, held := lt.Holds(1, 10); !held || mode != Exclusive {
		t.Errorf("after upgrade Holds = %v, %v", mode, held)
	}
}

func TestUpgradeRefusedWithOtherHolders(t *testing.T) {
	lt := NewTable()

	lt.Acquire(1, 10, Shared)
	lt.Acquire(2, 10, Shared)

	if lt.Acquire(1, 10, Exclusive) {
		t.Error("upgrade granted while another shared holder exists")
	}
}

func TestReleaseAll(t *testing.T) {
	lt := NewTable()

	lt.Acquire(1, 10, Exclusive)
	lt.Acquire(1, 11, Shared)
	lt.Acquire(2, 11, Shared)

	lt.ReleaseAll(1)

	if _, held := lt.Holds(1, 10); held {
		t.Error("transaction 1 still holds page 10")
	}
	if lt.IsLocked(10) {
		t.Error("page 10 still locked after sole holder released")
	}
	if _, held := lt.Holds(2, 11); !held {
		t.Error("transaction 2 lost its lock on page 11")
	}

	// Page 10 is free again.
	if !lt.Acquire(2, 10, Exclusive) {
		t.Error("exclusive lock refused on released page")
	}
}
