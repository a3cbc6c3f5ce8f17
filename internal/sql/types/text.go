package types

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// textType implements unbounded UTF-8 TEXT.
type textType struct{}

func (t *textType) ID() TypeID {
	return TypeIDText
}

func (t *textType) Name() string {
	return "TEXT"
}

func (t *textType) Size() int {
	return -1 // Variable size
}

func (t *textType) Compare(a, b Value) int {
	if a.Null || b.Null {
		return CompareValues(a, b)
	}
	return strings.Compare(a.Data.(string), b.Data.(string))
}

// Serialize writes the raw UTF-8 bytes; framing is the caller's concern.
func (t *textType) Serialize(v Value) ([]byte, error) {
	if v.Null {
		return nil, nil
	}

	str, ok := v.Data.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", v.Data)
	}
	return []byte(str), nil
}

func (t *textType) Deserialize(data []byte) (Value, error) {
	if data == nil {
		return NewNullValue(), nil
	}
	if !utf8.Valid(data) {
		return Value{}, fmt.Errorf("invalid UTF-8 in TEXT value")
	}
	return NewValue(string(data)), nil
}

func (t *textType) IsValid(v Value) bool {
	if v.Null {
		return true
	}
	str, ok := v.Data.(string)
	return ok && utf8.ValidString(str)
}

func (t *textType) Zero() Value {
	return NewValue("")
}

// NewTextValue creates a new TEXT value.
func NewTextValue(s string) Value {
	return NewValue(s)
}
