package types

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// ParseField reads one field of the given type from its on-disk
// encoding. It is the inverse of Field.Serialize.
func ParseField(r io.Reader, t Type) (Field, error) {
	switch t {
	case IntType:
		buf := make([]byte, 4)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("failed to read integer field: %v", err)
		}
		return NewIntField(int32(binary.LittleEndian.Uint32(buf))), nil // #nosec G115

	case FloatType:
		buf := make([]byte, 8)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("failed to read double field: %v", err)
		}
		return NewFloat64Field(math.Float64frombits(binary.LittleEndian.Uint64(buf))), nil

	case BoolType:
		buf := make([]byte, 1)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("failed to read boolean field: %v", err)
		}
		return NewBoolField(buf[0] != 0), nil

	case VarcharType:
		lenBuf := make([]byte, 4)
		if _, err := io.ReadFull(r, lenBuf); err != nil {
			return nil, fmt.Errorf("failed to read varchar length: %v", err)
		}
		length := binary.LittleEndian.Uint32(lenBuf)
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("failed to read varchar bytes: %v", err)
		}
		return NewStringField(string(data)), nil

	default:
		return nil, fmt.Errorf("unknown field type %v", t)
	}
}
