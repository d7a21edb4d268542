// Package wal implements the append-only write-ahead log framing
// transaction lifecycle events, plus the startup scanner that parses an
// existing log.
//
// Records are newline-terminated text lines:
//
//	BEGIN <tid>
//	COMMIT <tid>
//	ABORT <tid>
//	WRITE <tid> <page_id> <old||new>   (two raw 4096-byte page images)
//	CHECKPOINT
//
// Every record is synced to stable storage before the operation it
// represents is considered durable.
package wal

import (
	"fmt"
	"os"
	"sync"

	"relstore/pkg/primitives"
	"relstore/pkg/storage/page"
)

// WAL appends records to one log file. A single mutex spans an entire
// record write including the sync, so records never interleave.
type WAL struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// Open opens the log in append mode, creating it if absent.
func Open(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file %s: %v", path, err)
	}
	return &WAL{path: path, file: file}, nil
}

// Path returns the log file path.
func (w *WAL) Path() string {
	return w.path
}

// LogBegin appends a BEGIN record for the transaction.
func (w *WAL) LogBegin(tid primitives.TransactionID) error {
	return w.appendLine(fmt.Sprintf("BEGIN %d", tid))
}

// LogCommit appends a COMMIT record for the transaction.
func (w *WAL) LogCommit(tid primitives.TransactionID) error {
	return w.appendLine(fmt.Sprintf("COMMIT %d", tid))
}

// LogAbort appends an ABORT record for the transaction.
func (w *WAL) LogAbort(tid primitives.TransactionID) error {
	return w.appendLine(fmt.Sprintf("ABORT %d", tid))
}

// LogCheckpoint appends a CHECKPOINT record.
func (w *WAL) LogCheckpoint() error {
	return w.appendLine("CHECKPOINT")
}

// LogPageWrite appends a WRITE record carrying the page's before and
// after images, each exactly one page of raw bytes.
func (w *WAL) LogPageWrite(tid primitives.TransactionID, pid primitives.PageID, before, after []byte) error {
	if len(before) != page.PageSize || len(after) != page.PageSize {
		return fmt.Errorf("page images must be %d bytes, got %d and %d",
			page.PageSize, len(before), len(after))
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := fmt.Fprintf(w.file, "WRITE %d %d ", tid, pid); err != nil {
		return fmt.Errorf("failed to write WAL record: %v", err)
	}
	if _, err := w.file.Write(before); err != nil {
		return fmt.Errorf("failed to write before image: %v", err)
	}
	if _, err := w.file.Write(after); err != nil {
		return fmt.Errorf("failed to write after image: %v", err)
	}
	if _, err := w.file.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to terminate WAL record: %v", err)
	}
	return w.file.Sync()
}

func (w *WAL) appendLine(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("failed to write WAL record: %v", err)
	}
	return w.file.Sync()
}

// Truncate discards the log's contents. Only done on explicit request.
func (w *WAL) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate WAL: %v", err)
	}
	_, err := w.file.Seek(0, 0)
	return err
}

// Close syncs and closes the log file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
