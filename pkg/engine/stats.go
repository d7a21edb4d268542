package engine

import (
	"sort"
	"sync/atomic"

	"relstore/pkg/memory"
)

// TableStats pairs a table name with its buffer pool counters.
type TableStats struct {
	Table string
	Pool  memory.Stats
}

// EngineStats aggregates query counters and per-table cache counters.
type EngineStats struct {
	Queries            int64
	Errors             int64
	ActiveTransactions int
	Tables             []TableStats
}

// Stats snapshots the engine's statistics for the STATS command.
func (e *Engine) Stats() EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := EngineStats{
		Queries:            atomic.LoadInt64(&e.queries),
		Errors:             atomic.LoadInt64(&e.errors),
		ActiveTransactions: e.txns.ActiveCount(),
	}
	for _, name := range e.tablesSortedLocked() {
		stats.Tables = append(stats.Tables, TableStats{
			Table: name,
			Pool:  e.tables[name].pool.Stats(),
		})
	}
	return stats
}

func (e *Engine) tablesSortedLocked() []string {
	names := make([]string, 0, len(e.tables))
	for name := range e.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WALPath exposes the log file location for the LOGS command.
func (e *Engine) WALPath() string {
	return e.walPath()
}
