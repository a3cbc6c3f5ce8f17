package types

import (
	"encoding/binary"
	"fmt"
)

// integerType implements the INTEGER data type (32-bit)
type integerType struct{}

func (t *integerType) ID() TypeID {
	return TypeIDInteger
}

func (t *integerType) Name() string {
	return "INTEGER"
}

func (t *integerType) Size() int {
	return 4
}

func (t *integerType) Compare(a, b Value) int {
	if a.Null || b.Null {
		return CompareValues(a, b)
	}
	return compareOrdered(a.Data.(int32), b.Data.(int32))
}

func (t *integerType) Serialize(v Value) ([]byte, error) {
	if v.Null {
		return nil, nil
	}

	val, ok := v.Data.(int32)
	if !ok {
		return nil, fmt.Errorf("expected int32, got %T", v.Data)
	}

	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(val)) // nolint:gosec // two's complement round-trips
	return buf, nil
}

func (t *integerType) Deserialize(data []byte) (Value, error) {
	if data == nil {
		return NewNullValue(), nil
	}

	if len(data) != 4 {
		return Value{}, fmt.Errorf("expected 4 bytes for INTEGER, got %d", len(data))
	}

	return NewValue(int32(binary.BigEndian.Uint32(data))), nil // nolint:gosec // two's complement round-trips
}

func (t *integerType) IsValid(v Value) bool {
	if v.Null {
		return true
	}
	_, ok := v.Data.(int32)
	return ok
}

func (t *integerType) Zero() Value {
	return NewValue(int32(0))
}

// bigIntType implements the BIGINT data type (64-bit)
type bigIntType struct{}

func (t *bigIntType) ID() TypeID {
	return TypeIDBigInt
}

func (t *bigIntType) Name() string {
	return "BIGINT"
}

func (t *bigIntType) Size() int {
	return 8
}

func (t *bigIntType) Compare(a, b Value) int {
	if a.Null || b.Null {
		return CompareValues(a, b)
	}
	return compareOrdered(a.Data.(int64), b.Data.(int64))
}

func (t *bigIntType) Serialize(v Value) ([]byte, error) {
	if v.Null {
		return nil, nil
	}

	val, ok := v.Data.(int64)
	if !ok {
		return nil, fmt.Errorf("expected int64, got %T", v.Data)
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(val)) // nolint:gosec // two's complement round-trips
	return buf, nil
}

func (t *bigIntType) Deserialize(data []byte) (Value, error) {
	if data == nil {
		return NewNullValue(), nil
	}

	if len(data) != 8 {
		return Value{}, fmt.Errorf("expected 8 bytes for BIGINT, got %d", len(data))
	}

	return NewValue(int64(binary.BigEndian.Uint64(data))), nil // nolint:gosec // two's complement round-trips
}

func (t *bigIntType) IsValid(v Value) bool {
	if v.Null {
		return true
	}
	_, ok := v.Data.(int64)
	return ok
}

func (t *bigIntType) Zero() Value {
	return NewValue(int64(0))
}

// NewIntegerValue creates a new INTEGER value
func NewIntegerValue(v int32) Value {
	return NewValue(v)
}

// NewBigIntValue creates a new BIGINT value
func NewBigIntValue(v int64) Value {
	return NewValue(v)
}
