package types

import "io"

// BoolField represents a boolean field, stored as a single byte:
// 0 is false, any other value reads back as true.
type BoolField struct {
	Value bool
}

func NewBoolField(value bool) *BoolField {
	return &BoolField{Value: value}
}

func (f *BoolField) Serialize(w io.Writer) error {
	b := byte(0)
	if f.Value {
		b = 1
	}
	_, err := w.Write([]byte{b})
	return err
}

func (f *BoolField) Type() Type {
	return BoolType
}

func (f *BoolField) String() string {
	if f.Value {
		return "true"
	}
	return "false"
}

func (f *BoolField) Equals(other Field) bool {
	otherBool, ok := other.(*BoolField)
	if !ok {
		return false
	}
	return f.Value == otherBool.Value
}

func (f *BoolField) Size() uint32 {
	return 1
}
