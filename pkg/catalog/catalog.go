// Package catalog persists the binary metadata file describing every
// table: name, schema, and the set of indexed columns so indexes can be
// rebuilt after a reopen.
//
// Layout (little-endian):
//
//	u32 table_count
//	per table:
//	  u32 name_len, name bytes
//	  u32 column_count
//	  per column:
//	    u32 col_name_len, col name bytes
//	    u32 data_type (0=INTEGER, 1=VARCHAR, 2=BOOLEAN, 3=DOUBLE)
//	    u32 declared_size
//	  u32 index_count, per index: u32 len, column name bytes
//
// The index section extends the base format; a reader that stops after
// the columns still parses its prefix, and Load tolerates a file that
// ends there.
package catalog

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"relstore/pkg/tuple"
	"relstore/pkg/types"
)

// TableMeta is one table's catalog entry.
type TableMeta struct {
	Name           string
	Schema         *tuple.Schema
	IndexedColumns []string
}

// Save writes the catalog atomically: encode to a temporary file next
// to the target, sync, then rename over it.
func Save(path string, tables []TableMeta) error {
	var buf bytes.Buffer

	writeUint32(&buf, uint32(len(tables))) // #nosec G115
	for _, tm := range tables {
		writeString(&buf, tm.Name)

		writeUint32(&buf, uint32(tm.Schema.NumColumns())) // #nosec G115
		for _, col := range tm.Schema.Columns {
			writeString(&buf, col.Name)
			writeUint32(&buf, col.Type.Code())
			writeUint32(&buf, col.DeclaredSize)
		}

		writeUint32(&buf, uint32(len(tm.IndexedColumns))) // #nosec G115
		for _, col := range tm.IndexedColumns {
			writeString(&buf, col)
		}
	}

	tmp := path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create metadata temp file: %v", err)
	}
	if _, err := file.Write(buf.Bytes()); err != nil {
		file.Close()
		return fmt.Errorf("failed to write metadata: %v", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("failed to sync metadata: %v", err)
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads the catalog. A missing file is an empty catalog (first
// run), not an error.
func Load(path string) ([]TableMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read metadata file: %v", err)
	}

	r := bytes.NewReader(data)

	tableCount, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("metadata corrupt: %v", err)
	}

	tables := make([]TableMeta, 0, tableCount)
	for i := uint32(0); i < tableCount; i++ {
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("metadata corrupt at table %d: %v", i, err)
		}

		colCount, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("metadata corrupt at table %s: %v", name, err)
		}

		columns := make([]tuple.Column, 0, colCount)
		for j := uint32(0); j < colCount; j++ {
			colName, err := readString(r)
			if err != nil {
				return nil, fmt.Errorf("metadata corrupt at %s column %d: %v", name, j, err)
			}
			code, err := readUint32(r)
			if err != nil {
				return nil, fmt.Errorf("metadata corrupt at %s column %s: %v", name, colName, err)
			}
			colType, err := types.TypeFromCode(code)
			if err != nil {
				return nil, fmt.Errorf("metadata corrupt at %s column %s: %v", name, colName, err)
			}
			declared, err := readUint32(r)
			if err != nil {
				return nil, fmt.Errorf("metadata corrupt at %s column %s: %v", name, colName, err)
			}
			columns = append(columns, tuple.Column{Name: colName, Type: colType, DeclaredSize: declared})
		}

		schema, err := tuple.NewSchema(columns)
		if err != nil {
			return nil, fmt.Errorf("metadata for %s yields invalid schema: %v", name, err)
		}

		// The index section may be absent in a base-format file.
		var indexed []string
		idxCount, err := readUint32(r)
		if err == nil {
			for j := uint32(0); j < idxCount; j++ {
				col, err := readString(r)
				if err != nil {
					return nil, fmt.Errorf("metadata corrupt at %s index %d: %v", name, j, err)
				}
				indexed = append(indexed, col)
			}
		} else if err != io.EOF {
			return nil, fmt.Errorf("metadata corrupt at %s index section: %v", name, err)
		}

		tables = append(tables, TableMeta{Name: name, Schema: schema, IndexedColumns: indexed})
	}

	return tables, nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	buf.Write(b)
}

func writeString(buf *bytes.Buffer, s string) {
	writeUint32(buf, uint32(len(s))) // #nosec G115
	buf.WriteString(s)
}

func readUint32(r *bytes.Reader) (uint32, error) {
	b := make([]byte, 4)
	if _, err := io.ReadFull(r, b); err != nil {
		if err == io.ErrUnexpectedEOF {
			return 0, io.EOF
		}
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func readString(r *bytes.Reader) (string, error) {
	length, err := readUint32(r)
	if err != nil {
		return "", err
	}
	if int(length) > r.Len() {
		return "", fmt.Errorf("string length %d exceeds remaining %d bytes", length, r.Len())
	}
	b := make([]byte, length)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
