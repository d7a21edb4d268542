// Package page defines the fixed 4 KiB page layout shared by the page
// file, the buffer pool and the table layer.
package page

import (
	"encoding/binary"
	"fmt"

	"relstore/pkg/primitives"
)

const (
	// PageSize is the fixed size of every on-disk and in-memory page.
	PageSize = 4096

	// HeaderSize is the size of the page header at the start of each page.
	HeaderSize = 16

	// MaxTupleBytes is the largest encoded tuple a page can hold.
	MaxTupleBytes = PageSize - HeaderSize
)

// Header is the 16-byte metadata block at the start of every page,
// little-endian on disk:
//
//	[0:4)   page_id
//	[4:8)   free_space
//	[8:12)  tuple_count
//	[12:16) next_page (0 terminates the chain)
type Header struct {
	PageID     primitives.PageID
	FreeSpace  uint32
	TupleCount uint32
	NextPage   primitives.PageID
}

// NewHeader returns the header of a freshly allocated, empty page.
func NewHeader(pid primitives.PageID) Header {
	return Header{
		PageID:    pid,
		FreeSpace: PageSize - HeaderSize,
	}
}

// ReadHeader decodes the header from the start of a page buffer.
func ReadHeader(data []byte) Header {
	return Header{
		PageID:     primitives.PageID(binary.LittleEndian.Uint32(data[0:4])),
		FreeSpace:  binary.LittleEndian.Uint32(data[4:8]),
		TupleCount: binary.LittleEndian.Uint32(data[8:12]),
		NextPage:   primitives.PageID(binary.LittleEndian.Uint32(data[12:16])),
	}
}

// Write encodes the header into the start of a page buffer.
func (h Header) Write(data []byte) {
	binary.LittleEndian.PutUint32(data[0:4], uint32(h.PageID))
	binary.LittleEndian.PutUint32(data[4:8], h.FreeSpace)
	binary.LittleEndian.PutUint32(data[8:12], h.TupleCount)
	binary.LittleEndian.PutUint32(data[12:16], uint32(h.NextPage))
}

// NewPageData returns a zeroed page buffer carrying an initialized
// empty-page header.
func NewPageData(pid primitives.PageID) []byte {
	data := make([]byte, PageSize)
	NewHeader(pid).Write(data)
	return data
}

// IsUnallocated reports whether a page buffer has never been written:
// page id 0 is reserved, so an all-zero header means the underlying file
// range was past end-of-file.
func IsUnallocated(data []byte) bool {
	return binary.LittleEndian.Uint32(data[0:4]) == 0
}

// Validate checks the in-memory consistency of a header against the page
// layout constants.
func (h Header) Validate() error {
	if h.FreeSpace > PageSize-HeaderSize {
		return fmt.Errorf("page %d: free space %d exceeds page capacity", h.PageID, h.FreeSpace)
	}
	return nil
}
