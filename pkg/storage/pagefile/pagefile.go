// Package pagefile provides durable positioned access to 4 KiB pages
// inside one host file.
package pagefile

import (
	"fmt"
	"io"
	"os"
	"sync"

	"relstore/pkg/primitives"
	"relstore/pkg/storage/page"
)

// PageFile reads and writes whole pages at page_id * PageSize offsets.
// Reads past end-of-file return zero bytes: page ids come from a
// monotonically increasing counter, so an unwritten page must look like
// an unallocated page (zero header) rather than an error.
type PageFile struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// Open creates the file if absent, otherwise opens it read/write.
func Open(path string) (*PageFile, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open page file %s: %v", path, err)
	}
	return &PageFile{path: path, file: file}, nil
}

// Path returns the underlying file path.
func (pf *PageFile) Path() string {
	return pf.path
}

// ReadPage returns the 4096 bytes at the page's offset. Ranges partially
// or fully past end-of-file read back zero-filled.
func (pf *PageFile) ReadPage(pid primitives.PageID) ([]byte, error) {
	pf.mu.Lock()
	defer pf.mu.Unlock()

	data := make([]byte, page.PageSize)
	offset := int64(pid) * page.PageSize

	n, err := pf.file.ReadAt(data, offset)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read page %d: %v", pid, err)
	}
	// Short read at EOF leaves the tail zeroed, which is exactly the
	// "never written" representation.
	for i := n; i < len(data); i++ {
		data[i] = 0
	}
	return data, nil
}

// WritePage writes the 4096-byte payload at the page's offset, first
// zero-filling any gap between the current end-of-file and the target
// offset so intermediate pages read back as unallocated.
func (pf *PageFile) WritePage(pid primitives.PageID, data []byte) error {
	if len(data) != page.PageSize {
		return fmt.Errorf("invalid page data size: expected %d, got %d", page.PageSize, len(data))
	}

	pf.mu.Lock()
	defer pf.mu.Unlock()

	offset := int64(pid) * page.PageSize

	info, err := pf.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat page file: %v", err)
	}
	if size := info.Size(); size < offset {
		padding := make([]byte, offset-size)
		if _, err := pf.file.WriteAt(padding, size); err != nil {
			return fmt.Errorf("failed to extend page file: %v", err)
		}
	}

	if _, err := pf.file.WriteAt(data, offset); err != nil {
		return fmt.Errorf("failed to write page %d: %v", pid, err)
	}
	return nil
}

// Flush forces buffered writes to stable storage.
func (pf *PageFile) Flush() error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	return pf.file.Sync()
}

// Size returns the current file size in bytes.
func (pf *PageFile) Size() (int64, error) {
	pf.mu.Lock()
	defer pf.mu.Unlock()

	info, err := pf.file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Close syncs and closes the underlying file.
func (pf *PageFile) Close() error {
	pf.mu.Lock()
	defer pf.mu.Unlock()

	if err := pf.file.Sync(); err != nil {
		pf.file.Close()
		return err
	}
	return pf.file.Close()
}
