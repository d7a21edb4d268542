// Package engine coordinates the storage components behind the query
// surface: tables and their buffer pools, the catalog, the transaction
// manager and the WAL.
//
// The lock table has no wait queue (a conflicting acquire fails), so
// the engine is a single-writer system: one statement mutates at a
// time.
package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"relstore/pkg/catalog"
	"relstore/pkg/concurrency/lock"
	"relstore/pkg/concurrency/transaction"
	"relstore/pkg/dberr"
	"relstore/pkg/logging"
	"relstore/pkg/memory"
	"relstore/pkg/primitives"
	"relstore/pkg/storage/pagefile"
	"relstore/pkg/table"
	"relstore/pkg/tuple"
	"relstore/pkg/types"
	"relstore/pkg/wal"
)

// Config parameterizes Open.
type Config struct {
	Name    string // database name; also the file prefix
	DataDir string
	// PoolSize is the per-table buffer pool frame count; zero means the
	// default.
	PoolSize int
	// LogPageWrites enables WRITE records carrying page images.
	LogPageWrites bool
}

// tableHandle bundles a table with the pool and file backing it. Each
// table owns its own buffer pool over its own page file.
type tableHandle struct {
	table *table.Table
	pool  *memory.BufferPool
	file  *pagefile.PageFile
}

// Engine is the top-level database object.
type Engine struct {
	name    string
	dataDir string
	cfg     Config

	tables map[string]*tableHandle
	wal    *wal.WAL
	txns   *transaction.Manager

	// current is the explicitly opened transaction, or 0. The SQL
	// surface is single-session, so one suffices.
	current primitives.TransactionID

	queries int64
	errors  int64

	mu sync.RWMutex
}

// Open initializes the engine: create the data directory, open the
// WAL (scanning any existing log), load the catalog, and reopen every
// table it names, rebuilding recorded indexes.
func Open(cfg Config) (*Engine, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("database name cannot be empty")
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "."
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %v", err)
	}

	e := &Engine{
		name:    cfg.Name,
		dataDir: cfg.DataDir,
		cfg:     cfg,
		tables:  make(map[string]*tableHandle),
	}

	records, err := wal.Scan(e.walPath())
	if err != nil {
		return nil, fmt.Errorf("failed to scan WAL: %v", err)
	}
	summary := wal.Summarize(records)
	if summary.Started > 0 {
		logging.Get().Info("scanned write-ahead log",
			slog.String("db", cfg.Name),
			slog.Int("records", len(records)),
			slog.Int("committed", summary.Committed),
			slog.Int("in_flight", len(summary.InFlight)))
	}

	w, err := wal.Open(e.walPath())
	if err != nil {
		return nil, err
	}
	e.wal = w
	e.txns = transaction.NewManager(w)

	metas, err := catalog.Load(e.metaPath())
	if err != nil {
		w.Close()
		return nil, err
	}
	for _, meta := range metas {
		if err := e.openTable(meta); err != nil {
			e.closeTables()
			w.Close()
			return nil, fmt.Errorf("failed to open table %s: %v", meta.Name, err)
		}
	}

	logging.Get().Info("database opened",
		slog.String("db", cfg.Name),
		slog.Int("tables", len(e.tables)))
	return e, nil
}

func (e *Engine) walPath() string {
	return filepath.Join(e.dataDir, e.name+".log")
}

func (e *Engine) metaPath() string {
	return filepath.Join(e.dataDir, e.name+".meta")
}

func (e *Engine) tablePath(name string) string {
	return filepath.Join(e.dataDir, e.name+"."+name)
}

// openTable opens the page file and pool for a catalog entry and
// rebuilds its recorded indexes. Caller holds no locks (Open) or the
// write lock (CreateTable).
func (e *Engine) openTable(meta catalog.TableMeta) error {
	file, err := pagefile.Open(e.tablePath(meta.Name))
	if err != nil {
		return err
	}
	pool := memory.NewBufferPool(file, e.cfg.PoolSize)

	t, err := table.NewTable(meta.Name, meta.Schema, pool)
	if err != nil {
		file.Close()
		return err
	}
	if err := t.RebuildIndexes(meta.IndexedColumns); err != nil {
		file.Close()
		return err
	}

	e.tables[meta.Name] = &tableHandle{table: t, pool: pool, file: file}
	return nil
}

// Name returns the database name.
func (e *Engine) Name() string {
	return e.name
}

// Tables returns the table names in sorted order.
func (e *Engine) Tables() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.tables))
	for name := range e.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateTable creates a new table and persists the catalog.
func (e *Engine) CreateTable(name string, schema *tuple.Schema) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.tables[name]; exists {
		return dberr.AlreadyExists("table %s already exists", name).
			WithComponent("Engine").WithOperation("CreateTable")
	}

	meta := catalog.TableMeta{Name: name, Schema: schema}
	if err := e.openTable(meta); err != nil {
		return err
	}
	return e.saveCatalogLocked()
}

// DropTable closes and deletes a table's page file without flushing its
// buffer pool, then persists the catalog.
func (e *Engine) DropTable(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, exists := e.tables[name]
	if !exists {
		return dberr.NotFound("table %s does not exist", name).
			WithComponent("Engine").WithOperation("DropTable")
	}

	if err := h.file.Close(); err != nil {
		logging.Get().Warn("failed to close dropped table file",
			slog.String("table", name), slog.Any("error", err))
	}
	if err := os.Remove(e.tablePath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove table file: %v", err)
	}

	delete(e.tables, name)
	return e.saveCatalogLocked()
}

// Insert appends a row of positional values to the table. Without an
// open transaction the write is wrapped in its own BEGIN/COMMIT frame.
func (e *Engine) Insert(tableName string, values []types.Field) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, exists := e.tables[tableName]
	if !exists {
		return dberr.NotFound("table %s does not exist", tableName).
			WithComponent("Engine").WithOperation("Insert")
	}

	tp, err := buildTuple(h.table.Schema(), values)
	if err != nil {
		return err
	}

	tid := e.current
	autocommit := tid == 0
	if autocommit {
		tid, err = e.txns.Begin()
		if err != nil {
			return err
		}
	}

	// The degenerate lock table: take the head page exclusively for the
	// duration of the statement. A conflict is a hard failure.
	headPID := h.table.HeadPageID()
	if !e.txns.Locks().Acquire(tid, headPID, lock.Exclusive) {
		if autocommit {
			_ = e.txns.Abort(tid)
		}
		return dberr.New(dberr.CategoryConcurrency, dberr.CodeLockConflict,
			fmt.Sprintf("table %s is locked by another transaction", tableName)).
			WithComponent("Engine").WithOperation("Insert")
	}

	var before []byte
	if e.cfg.LogPageWrites {
		before, err = e.pageImage(h, headPID)
		if err != nil {
			before = nil
		}
	}

	if err := h.table.Insert(tp); err != nil {
		// An explicit transaction keeps its locks until commit/rollback.
		if autocommit {
			_ = e.txns.Abort(tid)
		}
		return err
	}

	if e.cfg.LogPageWrites && before != nil {
		after, aerr := e.pageImage(h, headPID)
		if aerr == nil {
			if werr := e.wal.LogPageWrite(tid, headPID, before, after); werr != nil {
				logging.Get().Warn("failed to log page write",
					slog.String("table", tableName), slog.Any("error", werr))
			}
		}
	}

	if autocommit {
		return e.txns.Commit(tid)
	}
	return nil
}

// pageImage copies a page's current bytes out of the pool.
func (e *Engine) pageImage(h *tableHandle, pid primitives.PageID) ([]byte, error) {
	ref, err := h.pool.GetPage(pid)
	if err != nil {
		return nil, err
	}
	defer ref.Release()

	img := make([]byte, len(ref.Data()))
	copy(img, ref.Data())
	return img, nil
}

// SelectAll returns every row of the table in stored order.
func (e *Engine) SelectAll(tableName string) ([]*tuple.Tuple, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	h, exists := e.tables[tableName]
	if !exists {
		return nil, dberr.NotFound("table %s does not exist", tableName).
			WithComponent("Engine").WithOperation("SelectAll")
	}
	return h.table.SelectAll()
}

// SelectWhere returns the rows whose column equals value.
func (e *Engine) SelectWhere(tableName, column string, value types.Field) ([]*tuple.Tuple, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	h, exists := e.tables[tableName]
	if !exists {
		return nil, dberr.NotFound("table %s does not exist", tableName).
			WithComponent("Engine").WithOperation("SelectWhere")
	}
	return h.table.SelectWhere(column, value)
}

// CreateIndex builds an index over table.column and records it in the
// catalog so it survives a reopen.
func (e *Engine) CreateIndex(tableName, column string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, exists := e.tables[tableName]
	if !exists {
		return dberr.NotFound("table %s does not exist", tableName).
			WithComponent("Engine").WithOperation("CreateIndex")
	}
	if err := h.table.CreateIndex(column); err != nil {
		return err
	}
	return e.saveCatalogLocked()
}

// Schema returns a table's schema.
func (e *Engine) Schema(tableName string) (*tuple.Schema, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	h, exists := e.tables[tableName]
	if !exists {
		return nil, dberr.NotFound("table %s does not exist", tableName).
			WithComponent("Engine").WithOperation("Schema")
	}
	return h.table.Schema(), nil
}

// Begin opens an explicit transaction. Nested transactions are not
// supported.
func (e *Engine) Begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != 0 {
		return fmt.Errorf("transaction %d already in progress", e.current)
	}
	tid, err := e.txns.Begin()
	if err != nil {
		return err
	}
	e.current = tid
	return nil
}

// Commit commits the open transaction.
func (e *Engine) Commit() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == 0 {
		return fmt.Errorf("no transaction in progress")
	}
	err := e.txns.Commit(e.current)
	e.current = 0
	return err
}

// Rollback aborts the open transaction. Data pages are not undone; the
// abort is recorded in the WAL and locks are released.
func (e *Engine) Rollback() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == 0 {
		return fmt.Errorf("no transaction in progress")
	}
	err := e.txns.Abort(e.current)
	e.current = 0
	return err
}

// Checkpoint flushes every table's dirty pages to disk in parallel,
// then appends a CHECKPOINT record.
func (e *Engine) Checkpoint() error {
	e.mu.RLock()
	handles := make([]*tableHandle, 0, len(e.tables))
	for _, h := range e.tables {
		handles = append(handles, h)
	}
	e.mu.RUnlock()

	var g errgroup.Group
	for _, h := range handles {
		g.Go(h.pool.FlushAll)
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("checkpoint flush failed: %v", err)
	}
	return e.wal.LogCheckpoint()
}

// Close flushes every pool, persists the catalog and closes all files.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var g errgroup.Group
	for _, h := range e.tables {
		g.Go(h.pool.FlushAll)
	}
	flushErr := g.Wait()

	saveErr := e.saveCatalogLocked()
	e.closeTables()
	walErr := e.wal.Close()

	logging.Get().Info("database closed", slog.String("db", e.name))

	if flushErr != nil {
		return flushErr
	}
	if saveErr != nil {
		return saveErr
	}
	return walErr
}

func (e *Engine) closeTables() {
	for name, h := range e.tables {
		if err := h.file.Close(); err != nil {
			logging.Get().Warn("failed to close table file",
				slog.String("table", name), slog.Any("error", err))
		}
	}
	e.tables = make(map[string]*tableHandle)
}

// saveCatalogLocked persists every table's schema and indexed columns.
// Caller holds the engine write lock.
func (e *Engine) saveCatalogLocked() error {
	metas := make([]catalog.TableMeta, 0, len(e.tables))
	names := make([]string, 0, len(e.tables))
	for name := range e.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h := e.tables[name]
		metas = append(metas, catalog.TableMeta{
			Name:           name,
			Schema:         h.table.Schema(),
			IndexedColumns: h.table.IndexedColumns(),
		})
	}
	return catalog.Save(e.metaPath(), metas)
}

// buildTuple validates arity and types positionally, coercing an
// integer literal into a DOUBLE column.
func buildTuple(schema *tuple.Schema, values []types.Field) (*tuple.Tuple, error) {
	if len(values) != schema.NumColumns() {
		return nil, dberr.SchemaMismatch("expected %d values, got %d",
			schema.NumColumns(), len(values)).
			WithComponent("Engine").WithOperation("Insert")
	}

	tp := tuple.NewTuple(schema)
	for i, v := range values {
		want, _ := schema.TypeAt(i)
		if want == types.FloatType && v.Type() == types.IntType {
			v = types.NewFloat64Field(float64(v.(*types.IntField).Value))
		}
		if v.Type() != want {
			return nil, dberr.SchemaMismatch("value %d is %v, column %s is %v",
				i+1, v.Type(), schema.Columns[i].Name, want).
				WithComponent("Engine").WithOperation("Insert")
		}
		if err := tp.SetField(i, v); err != nil {
			return nil, err
		}
	}
	return tp, nil
}
