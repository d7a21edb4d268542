// Package primitives holds the scalar identifier types shared by every
// storage component.
package primitives

// PageID identifies a 4 KiB page within a single table's file.
// Page 0 is reserved; the first real page is id 1.
type PageID uint32

// TupleID identifies a row within one table. Zero means "unassigned";
// the table hands out nonzero ids on insert.
type TupleID uint64

// TransactionID identifies a transaction for its lifetime.
type TransactionID uint32

// InvalidPageID terminates a page chain.
const InvalidPageID PageID = 0
