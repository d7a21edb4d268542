package tuple

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"relstore/pkg/dberr"
	"relstore/pkg/primitives"
	"relstore/pkg/storage/page"
	"relstore/pkg/types"
)

// HeaderSize is the size of the per-tuple header preceding the field
// data:
//
//	[0:4)   tuple_size (total, header included)
//	[4:8)   next_tuple_offset (reserved, written as 0)
//	[8:16)  tuple_id
const HeaderSize = 16

// Size returns the encoded size of a tuple: the header plus each field's
// encoded size in schema order. Unset fields contribute nothing, and
// Encode rejects them, so Size over a fully populated tuple is the
// authoritative value.
func Size(t *Tuple) uint32 {
	size := uint32(HeaderSize)
	for _, f := range t.fields {
		if f != nil {
			size += f.Size()
		}
	}
	return size
}

// Encode serializes a tuple into its on-disk form. Tuples that cannot
// fit on a single page, even an empty one, are rejected.
func Encode(t *Tuple) ([]byte, error) {
	for i, f := range t.fields {
		if f == nil {
			return nil, dberr.SchemaMismatch("field %d is unset", i).
				WithComponent("TupleCodec").WithOperation("Encode")
		}
	}

	size := Size(t)
	if size > page.MaxTupleBytes {
		return nil, dberr.OversizeTuple("tuple of %d bytes exceeds page capacity %d",
			size, page.MaxTupleBytes).
			WithComponent("TupleCodec").WithOperation("Encode")
	}

	buf := bytes.NewBuffer(make([]byte, 0, size))

	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], size)
	binary.LittleEndian.PutUint32(header[4:8], 0) // next_tuple_offset, reserved
	binary.LittleEndian.PutUint64(header[8:16], uint64(t.ID))
	buf.Write(header)

	for _, f := range t.fields {
		if err := f.Serialize(buf); err != nil {
			return nil, fmt.Errorf("failed to serialize field: %v", err)
		}
	}

	if uint32(buf.Len()) != size {
		return nil, fmt.Errorf("encoded tuple size %d does not match computed size %d", buf.Len(), size)
	}
	return buf.Bytes(), nil
}

// Decode deserializes one tuple from the start of data, returning the
// tuple and the number of bytes consumed (the stored tuple_size).
func Decode(data []byte, schema *Schema) (*Tuple, uint32, error) {
	if len(data) < HeaderSize {
		return nil, 0, fmt.Errorf("tuple data truncated: %d bytes", len(data))
	}

	size := binary.LittleEndian.Uint32(data[0:4])
	id := primitives.TupleID(binary.LittleEndian.Uint64(data[8:16]))
	if size < HeaderSize || uint32(len(data)) < size {
		return nil, 0, fmt.Errorf("invalid tuple size %d (have %d bytes)", size, len(data))
	}

	t := NewTuple(schema)
	t.ID = id

	reader := bytes.NewReader(data[HeaderSize:size])
	for i := 0; i < schema.NumColumns(); i++ {
		fieldType, err := schema.TypeAt(i)
		if err != nil {
			return nil, 0, err
		}
		field, err := types.ParseField(reader, fieldType)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to parse field %d: %v", i, err)
		}
		if err := t.SetField(i, field); err != nil {
			return nil, 0, err
		}
	}

	if reader.Len() != 0 {
		return nil, 0, fmt.Errorf("tuple %d: %d trailing bytes after last field", id, reader.Len())
	}
	return t, size, nil
}

// SizeAt reads the stored tuple_size of the tuple starting at off,
// letting callers walk a page's tuple region without decoding fields.
func SizeAt(data []byte, off uint32) uint32 {
	return binary.LittleEndian.Uint32(data[off : off+4])
}
