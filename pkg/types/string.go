package types

import (
	"encoding/binary"
	"io"
)

// StringField represents a variable-length text field. The on-disk
// encoding is a 4-byte little-endian length prefix followed by the raw
// UTF-8 bytes; the declared VARCHAR(n) size is advisory and not enforced
// here.
type StringField struct {
	Value string
}

func NewStringField(value string) *StringField {
	return &StringField{Value: value}
}

func (s *StringField) Serialize(w io.Writer) error {
	lengthBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(lengthBytes, uint32(len(s.Value))) // #nosec G115

	if _, err := w.Write(lengthBytes); err != nil {
		return err
	}
	_, err := w.Write([]byte(s.Value))
	return err
}

func (s *StringField) Type() Type {
	return VarcharType
}

func (s *StringField) String() string {
	return s.Value
}

func (s *StringField) Equals(other Field) bool {
	otherString, ok := other.(*StringField)
	if !ok {
		return false
	}
	return s.Value == otherString.Value
}

// Size returns the encoded size: the length prefix plus the byte length
// of the value.
func (s *StringField) Size() uint32 {
	return 4 + uint32(len(s.Value)) // #nosec G115
}
