package types

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// doubleType implements the DOUBLE PRECISION data type (64-bit IEEE 754)
type doubleType struct{}

func (t *doubleType) ID() TypeID {
	return TypeIDDouble
}

func (t *doubleType) Name() string {
	return "DOUBLE"
}

func (t *doubleType) Size() int {
	return 8
}

func (t *doubleType) Compare(a, b Value) int {
	if a.Null || b.Null {
		return CompareValues(a, b)
	}
	return compareFloat(a.Data.(float64), b.Data.(float64))
}

func (t *doubleType) Serialize(v Value) ([]byte, error) {
	if v.Null {
		return nil, nil
	}

	val, ok := v.Data.(float64)
	if !ok {
		return nil, fmt.Errorf("expected float64, got %T", v.Data)
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(val))
	return buf, nil
}

func (t *doubleType) Deserialize(data []byte) (Value, error) {
	if data == nil {
		return NewNullValue(), nil
	}

	if len(data) != 8 {
		return Value{}, fmt.Errorf("expected 8 bytes for DOUBLE, got %d", len(data))
	}

	return NewValue(math.Float64frombits(binary.BigEndian.Uint64(data))), nil
}

func (t *doubleType) IsValid(v Value) bool {
	if v.Null {
		return true
	}
	_, ok := v.Data.(float64)
	return ok
}

func (t *doubleType) Zero() Value {
	return NewValue(float64(0))
}

// NewDoubleValue creates a new DOUBLE value
func NewDoubleValue(v float64) Value {
	return NewValue(v)
}

// FormatDouble renders a double the way result rows print it
func FormatDouble(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
