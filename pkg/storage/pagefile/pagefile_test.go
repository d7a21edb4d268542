package pagefile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"relstore/pkg/primitives"
	"relstore/pkg/storage/page"
)

func openTemp(t *testing.T) *PageFile {
	t.Helper()
	pf, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { pf.Close() })
	return pf
}

func TestReadPastEOFIsZero(t *testing.T) {
	pf := openTemp(t)

	data, err := pf.ReadPage(5)
	if err != nil {
		t.Fatalf("ReadPage failed: %v", err)
	}
	if len(data) != page.PageSize {
		t.Fatalf("read %d bytes, want %d", len(data), page.PageSize)
	}
	for i, b := range data {
		if b != 0 {
			t.Fatalf("byte %d is %d, want 0", i, b)
		}
	}
	if !page.IsUnallocated(data) {
		t.Error("unwritten page should read as unallocated")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	pf := openTemp(t)

	data := page.NewPageData(1)
	copy(data[page.HeaderSize:], []byte("hello page"))

	if err := pf.WritePage(1, data); err != nil {
		t.Fatalf("WritePage failed: %v", err)
	}
	got, err := pf.ReadPage(1)
	if err != nil {
		t.Fatalf("ReadPage failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("read bytes differ from written bytes")
	}
}

// Writing past end-of-file must zero-fill the gap so skipped pages read
// back as unallocated.
func TestWriteExtendsWithZeroFill(t *testing.T) {
	pf := openTemp(t)

	if err := pf.WritePage(4, page.NewPageData(4)); err != nil {
		t.Fatalf("WritePage failed: %v", err)
	}

	size, err := pf.Size()
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 5*page.PageSize {
		t.Errorf("file size %d, want %d", size, 5*page.PageSize)
	}

	for pid := uint32(0); pid < 4; pid++ {
		data, err := pf.ReadPage(primitives.PageID(pid))
		if err != nil {
			t.Fatalf("ReadPage(%d) failed: %v", pid, err)
		}
		if !page.IsUnallocated(data) {
			t.Errorf("gap page %d should be unallocated", pid)
		}
	}
}

func TestWriteRejectsWrongSize(t *testing.T) {
	pf := openTemp(t)
	if err := pf.WritePage(1, []byte("short")); err == nil {
		t.Error("expected error writing undersized page")
	}
}

func TestFlushPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "persist.db")

	pf, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	data := page.NewPageData(1)
	copy(data[page.HeaderSize:], []byte("durable"))
	if err := pf.WritePage(1, data); err != nil {
		t.Fatalf("WritePage failed: %v", err)
	}
	if err := pf.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if err := pf.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(raw[page.PageSize:2*page.PageSize], data) {
		t.Error("on-disk bytes differ from written page")
	}
}
