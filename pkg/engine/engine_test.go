package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"relstore/pkg/dberr"
)

func openTestEngine(t *testing.T, dir string) *Engine {
	t.Helper()
	e, err := Open(Config{Name: "testdb", DataDir: dir, PoolSize: 16})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return e
}

func exec(t *testing.T, e *Engine, sql string) *Result {
	t.Helper()
	result, err := e.ExecuteQuery(sql)
	if err != nil {
		t.Fatalf("ExecuteQuery(%q) failed: %v", sql, err)
	}
	return result
}

// Create, insert, scan: two rows with ids 1 and 2, field values intact,
// in insertion order.
func TestCreateInsertScan(t *testing.T) {
	e := openTestEngine(t, t.TempDir())
	defer e.Close()

	exec(t, e, "CREATE TABLE users (id INTEGER, name VARCHAR, age INTEGER, active BOOLEAN)")
	exec(t, e, "INSERT INTO users VALUES (1, 'Alice', 25, true)")
	exec(t, e, "INSERT INTO users VALUES (2, 'Bob', 30, false)")

	result := exec(t, e, "SELECT * FROM users")
	if len(result.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(result.Rows))
	}

	want := [][]string{
		{"1", "1", "Alice", "25", "true"},
		{"2", "2", "Bob", "30", "false"},
	}
	for i, row := range result.Rows {
		for j, cell := range row {
			if cell != want[i][j] {
				t.Errorf("row %d col %d = %q, want %q", i, j, cell, want[i][j])
			}
		}
	}
}

// Equality where: unindexed returns both age-25 rows; after CREATE
// INDEX the exact lookup returns at least one of them.
func TestSelectWhereWithAndWithoutIndex(t *testing.T) {
	e := openTestEngine(t, t.TempDir())
	defer e.Close()

	exec(t, e, "CREATE TABLE users (id INTEGER, name VARCHAR, age INTEGER, active BOOLEAN)")
	exec(t, e, "INSERT INTO users VALUES (1, 'A', 25, true)")
	exec(t, e, "INSERT INTO users VALUES (2, 'B', 25, false)")
	exec(t, e, "INSERT INTO users VALUES (3, 'C', 30, true)")

	result := exec(t, e, "SELECT * FROM users WHERE age = 25")
	if len(result.Rows) != 2 {
		t.Fatalf("unindexed where returned %d rows, want 2", len(result.Rows))
	}

	exec(t, e, "CREATE INDEX users.age")

	result = exec(t, e, "SELECT * FROM users WHERE age = 25")
	if len(result.Rows) < 1 {
		t.Fatal("indexed where returned no rows")
	}
	for _, row := range result.Rows {
		if row[0] != "1" && row[0] != "2" {
			t.Errorf("indexed where returned unexpected row id %s", row[0])
		}
	}
}

// Persistence: close the engine, reopen over the same directory, and
// the rows, schema and indexes are all back.
func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	e := openTestEngine(t, dir)
	exec(t, e, "CREATE TABLE users (id INTEGER, name VARCHAR, age INTEGER, active BOOLEAN)")
	exec(t, e, "INSERT INTO users VALUES (1, 'Alice', 25, true)")
	exec(t, e, "INSERT INTO users VALUES (2, 'Bob', 30, false)")
	exec(t, e, "CREATE INDEX users.age")
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	e2 := openTestEngine(t, dir)
	defer e2.Close()

	result := exec(t, e2, "SELECT * FROM users")
	if len(result.Rows) != 2 {
		t.Fatalf("reopened db has %d rows, want 2", len(result.Rows))
	}
	if result.Rows[0][2] != "Alice" || result.Rows[1][2] != "Bob" {
		t.Errorf("reopened rows = %v", result.Rows)
	}

	// The index definition survived the reopen and was rebuilt.
	result = exec(t, e2, "SELECT * FROM users WHERE age = 30")
	if len(result.Rows) != 1 || result.Rows[0][2] != "Bob" {
		t.Errorf("indexed lookup after reopen = %v", result.Rows)
	}
}

func TestCreateTableTwiceFails(t *testing.T) {
	e := openTestEngine(t, t.TempDir())
	defer e.Close()

	exec(t, e, "CREATE TABLE t (id INTEGER)")
	_, err := e.ExecuteQuery("CREATE TABLE t (id INTEGER)")
	if !dberr.HasCode(err, dberr.CodeAlreadyExists) {
		t.Errorf("expected ALREADY_EXISTS, got %v", err)
	}
}

func TestDropTable(t *testing.T) {
	dir := t.TempDir()
	e := openTestEngine(t, dir)
	defer e.Close()

	exec(t, e, "CREATE TABLE temp (id INTEGER)")
	exec(t, e, "INSERT INTO temp VALUES (1)")
	exec(t, e, "DROP TABLE temp")

	_, err := e.ExecuteQuery("SELECT * FROM temp")
	if !dberr.HasCode(err, dberr.CodeNotFound) {
		t.Errorf("expected NOT_FOUND after drop, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "testdb.temp")); !os.IsNotExist(err) {
		t.Error("table file survived the drop")
	}
}

func TestInsertSchemaMismatch(t *testing.T) {
	e := openTestEngine(t, t.TempDir())
	defer e.Close()

	exec(t, e, "CREATE TABLE t (id INTEGER, name VARCHAR)")

	_, err := e.ExecuteQuery("INSERT INTO t VALUES (1)")
	if !dberr.HasCode(err, dberr.CodeSchemaMismatch) {
		t.Errorf("expected SCHEMA_MISMATCH for wrong arity, got %v", err)
	}
	_, err = e.ExecuteQuery("INSERT INTO t VALUES ('x', 'y')")
	if !dberr.HasCode(err, dberr.CodeSchemaMismatch) {
		t.Errorf("expected SCHEMA_MISMATCH for wrong type, got %v", err)
	}
}

func TestIntegerLiteralCoercesToDouble(t *testing.T) {
	e := openTestEngine(t, t.TempDir())
	defer e.Close()

	exec(t, e, "CREATE TABLE m (score DOUBLE)")
	exec(t, e, "INSERT INTO m VALUES (5)")

	result := exec(t, e, "SELECT * FROM m")
	if len(result.Rows) != 1 || result.Rows[0][1] != "5" {
		t.Errorf("rows = %v", result.Rows)
	}
}

// Oversize rejection leaves the table unchanged.
func TestOversizeInsertLeavesTableIntact(t *testing.T) {
	e := openTestEngine(t, t.TempDir())
	defer e.Close()

	exec(t, e, "CREATE TABLE t (payload VARCHAR)")
	exec(t, e, "INSERT INTO t VALUES ('small')")

	big := "INSERT INTO t VALUES ('" + strings.Repeat("x", 5000) + "')"
	_, err := e.ExecuteQuery(big)
	if !dberr.HasCode(err, dberr.CodeOversizeTuple) {
		t.Fatalf("expected OVERSIZE_TUPLE, got %v", err)
	}

	result := exec(t, e, "SELECT * FROM t")
	if len(result.Rows) != 1 {
		t.Errorf("table has %d rows after failed insert, want 1", len(result.Rows))
	}
}

// WAL framing: BEGIN, INSERT, COMMIT leaves BEGIN <tid> then
// COMMIT <tid> in order in the log.
func TestWALFraming(t *testing.T) {
	dir := t.TempDir()
	e := openTestEngine(t, dir)

	exec(t, e, "CREATE TABLE t (id INTEGER)")
	exec(t, e, "BEGIN")
	exec(t, e, "INSERT INTO t VALUES (1)")
	exec(t, e, "COMMIT")
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "testdb.log"))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")

	beginAt, commitAt := -1, -1
	for i, line := range lines {
		switch line {
		case "BEGIN 1":
			beginAt = i
		case "COMMIT 1":
			commitAt = i
		}
	}
	if beginAt == -1 || commitAt == -1 || beginAt >= commitAt {
		t.Errorf("log lines = %v", lines)
	}
}

// An insert outside an explicit transaction is framed by its own
// BEGIN/COMMIT pair.
func TestAutoCommitFraming(t *testing.T) {
	dir := t.TempDir()
	e := openTestEngine(t, dir)

	exec(t, e, "CREATE TABLE t (id INTEGER)")
	exec(t, e, "INSERT INTO t VALUES (1)")
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(filepath.Join(dir, "testdb.log"))
	text := string(data)
	if !strings.Contains(text, "BEGIN 1\n") || !strings.Contains(text, "COMMIT 1\n") {
		t.Errorf("autocommit framing missing, log = %q", text)
	}
}

func TestRollbackWritesAbort(t *testing.T) {
	dir := t.TempDir()
	e := openTestEngine(t, dir)

	exec(t, e, "BEGIN")
	exec(t, e, "ROLLBACK")
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(filepath.Join(dir, "testdb.log"))
	if !strings.Contains(string(data), "ABORT 1\n") {
		t.Errorf("log = %q", data)
	}
}

func TestCheckpointFlushesAndLogs(t *testing.T) {
	dir := t.TempDir()
	e := openTestEngine(t, dir)
	defer e.Close()

	exec(t, e, "CREATE TABLE t (id INTEGER)")
	exec(t, e, "INSERT INTO t VALUES (42)")
	exec(t, e, "CHECKPOINT")

	data, _ := os.ReadFile(filepath.Join(dir, "testdb.log"))
	if !strings.Contains(string(data), "CHECKPOINT\n") {
		t.Errorf("log missing CHECKPOINT: %q", data)
	}

	// The data page reached disk: the raw table file carries the row.
	raw, err := os.ReadFile(filepath.Join(dir, "testdb.t"))
	if err != nil {
		t.Fatalf("table file missing: %v", err)
	}
	if len(raw) < 2*4096 {
		t.Errorf("table file is %d bytes, expected at least two pages", len(raw))
	}
}

func TestBeginTwiceFails(t *testing.T) {
	e := openTestEngine(t, t.TempDir())
	defer e.Close()

	exec(t, e, "BEGIN")
	if _, err := e.ExecuteQuery("BEGIN"); err == nil {
		t.Error("nested BEGIN succeeded")
	}
	exec(t, e, "COMMIT")
}

func TestCommitWithoutBeginFails(t *testing.T) {
	e := openTestEngine(t, t.TempDir())
	defer e.Close()

	if _, err := e.ExecuteQuery("COMMIT"); err == nil {
		t.Error("COMMIT without BEGIN succeeded")
	}
}

func TestStatsCountQueries(t *testing.T) {
	e := openTestEngine(t, t.TempDir())
	defer e.Close()

	exec(t, e, "CREATE TABLE t (id INTEGER)")
	exec(t, e, "INSERT INTO t VALUES (1)")
	if _, err := e.ExecuteQuery("SELECT * FROM missing"); err == nil {
		t.Fatal("expected error")
	}

	stats := e.Stats()
	if stats.Queries != 3 {
		t.Errorf("queries = %d, want 3", stats.Queries)
	}
	if stats.Errors != 1 {
		t.Errorf("errors = %d, want 1", stats.Errors)
	}
	if len(stats.Tables) != 1 || stats.Tables[0].Table != "t" {
		t.Errorf("table stats = %+v", stats.Tables)
	}
}

func TestSelectProjection(t *testing.T) {
	e := openTestEngine(t, t.TempDir())
	defer e.Close()

	exec(t, e, "CREATE TABLE users (id INTEGER, name VARCHAR, age INTEGER)")
	exec(t, e, "INSERT INTO users VALUES (1, 'Alice', 25)")

	result := exec(t, e, "SELECT name FROM users")
	if len(result.Columns) != 2 || result.Columns[1] != "name" {
		t.Fatalf("columns = %v", result.Columns)
	}
	if result.Rows[0][1] != "Alice" {
		t.Errorf("row = %v", result.Rows[0])
	}
}
