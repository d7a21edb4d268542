package catalog

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"relstore/pkg/tuple"
	"relstore/pkg/types"
)

func sampleMetas(t *testing.T) []TableMeta {
	t.Helper()
	users, err := tuple.NewSchema([]tuple.Column{
		{Name: "id", Type: types.IntType},
		{Name: "name", Type: types.VarcharType, DeclaredSize: 50},
		{Name: "score", Type: types.FloatType},
		{Name: "active", Type: types.BoolType},
	})
	if err != nil {
		t.Fatal(err)
	}
	items, err := tuple.NewSchema([]tuple.Column{
		{Name: "sku", Type: types.VarcharType, DeclaredSize: 20},
	})
	if err != nil {
		t.Fatal(err)
	}
	return []TableMeta{
		{Name: "users", Schema: users, IndexedColumns: []string{"name", "score"}},
		{Name: "items", Schema: items},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.meta")
	metas := sampleMetas(t)

	if err := Save(path, metas); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded) != 2 {
		t.Fatalf("loaded %d tables, want 2", len(loaded))
	}
	if loaded[0].Name != "users" || loaded[1].Name != "items" {
		t.Errorf("names = %s, %s", loaded[0].Name, loaded[1].Name)
	}

	users := loaded[0]
	if users.Schema.NumColumns() != 4 {
		t.Fatalf("users has %d columns, want 4", users.Schema.NumColumns())
	}
	if users.Schema.Columns[1].Name != "name" ||
		users.Schema.Columns[1].Type != types.VarcharType ||
		users.Schema.Columns[1].DeclaredSize != 50 {
		t.Errorf("column 1 = %+v", users.Schema.Columns[1])
	}
	if users.Schema.Columns[2].Type != types.FloatType {
		t.Errorf("column 2 type = %v, want DOUBLE", users.Schema.Columns[2].Type)
	}
	if len(users.IndexedColumns) != 2 || users.IndexedColumns[0] != "name" {
		t.Errorf("indexed columns = %v", users.IndexedColumns)
	}
	if len(loaded[1].IndexedColumns) != 0 {
		t.Errorf("items should have no indexes, got %v", loaded[1].IndexedColumns)
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	metas, err := Load(filepath.Join(t.TempDir(), "absent.meta"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if metas != nil {
		t.Errorf("expected empty catalog, got %d tables", len(metas))
	}
}

// A base-format file that ends right after the column list (no index
// section) still loads; the table simply has no recorded indexes.
func TestLoadBaseFormatWithoutIndexSection(t *testing.T) {
	var buf bytes.Buffer
	writeU32 := func(v uint32) {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, v)
		buf.Write(b)
	}
	writeStr := func(s string) {
		writeU32(uint32(len(s)))
		buf.WriteString(s)
	}

	writeU32(1)      // table_count
	writeStr("logs") // table name
	writeU32(1)      // column_count
	writeStr("msg")
	writeU32(1) // VARCHAR
	writeU32(0) // declared size
	// no index section

	path := filepath.Join(t.TempDir(), "base.meta")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	metas, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(metas) != 1 || metas[0].Name != "logs" {
		t.Fatalf("loaded %+v", metas)
	}
	if len(metas[0].IndexedColumns) != 0 {
		t.Errorf("expected no indexes, got %v", metas[0].IndexedColumns)
	}
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.meta")
	if err := os.WriteFile(path, []byte{1, 0, 0, 0, 255, 255, 255, 255}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error loading corrupt catalog")
	}
}

// Save replaces the file atomically: no .tmp remains and a rewrite is
// fully visible.
func TestSaveIsAtomicRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.meta")
	metas := sampleMetas(t)

	if err := Save(path, metas); err != nil {
		t.Fatal(err)
	}
	if err := Save(path, metas[:1]); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 {
		t.Errorf("rewritten catalog has %d tables, want 1", len(loaded))
	}
}
