package types

import (
	"fmt"
	"math"
	"strings"
)

// DataType represents one member of the engine's closed type enumeration.
type DataType interface {
	// ID returns the stable type identifier used for dispatch and on the wire
	ID() TypeID

	// Name returns the SQL name of the type (e.g., "INTEGER", "TEXT")
	Name() string

	// Size returns the storage size in bytes (-1 for variable size)
	Size() int

	// Compare compares two values of this type
	// Returns: -1 if a < b, 0 if a == b, 1 if a > b
	Compare(a, b Value) int

	// Serialize converts a value to bytes for storage
	Serialize(v Value) ([]byte, error)

	// Deserialize converts bytes back to a value
	Deserialize(data []byte) (Value, error)

	// IsValid checks if a value is valid for this type
	IsValid(v Value) bool

	// Zero returns the zero value for this type
	Zero() Value
}

// TypeID represents the internal ID of a data type
type TypeID uint8

const (
	TypeIDInvalid TypeID = iota
	TypeIDBigInt
	TypeIDInteger
	TypeIDDouble
	TypeIDBoolean
	TypeIDText
	TypeIDNull
)

// Value represents a SQL value that can be NULL
type Value struct {
	Data interface{}
	Null bool
}

// NewValue creates a non-null value
func NewValue(data interface{}) Value {
	return Value{Data: data, Null: false}
}

// NewNullValue creates a null value
func NewNullValue() Value {
	return Value{Data: nil, Null: true}
}

// IsNull returns true if the value is NULL
func (v Value) IsNull() bool {
	return v.Null
}

// String returns a string representation of the value
func (v Value) String() string {
	if v.Null {
		return "NULL"
	}
	return fmt.Sprintf("%v", v.Data)
}

// AsBool returns the value as a boolean
func (v Value) AsBool() (bool, error) {
	if v.Null {
		return false, fmt.Errorf("cannot convert NULL to bool")
	}
	if b, ok := v.Data.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("cannot convert %T to bool", v.Data)
}

// AsInt64 returns an INTEGER or BIGINT value widened to int64
func (v Value) AsInt64() (int64, error) {
	if v.Null {
		return 0, fmt.Errorf("cannot convert NULL to int")
	}
	switch val := v.Data.(type) {
	case int64:
		return val, nil
	case int32:
		return int64(val), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v.Data)
	}
}

// AsString returns the value as a string
func (v Value) AsString() (string, error) {
	if v.Null {
		return "", fmt.Errorf("cannot convert NULL to string")
	}
	if s, ok := v.Data.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("cannot convert %T to string", v.Data)
}

// AsDouble returns the value as a float64
func (v Value) AsDouble() (float64, error) {
	if v.Null {
		return 0, fmt.Errorf("cannot convert NULL to double")
	}
	switch val := v.Data.(type) {
	case float64:
		return val, nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to double", v.Data)
	}
}

// Type returns the DataType of the value based on its underlying type
func (v Value) Type() DataType {
	if v.Null {
		return Null
	}
	switch v.Data.(type) {
	case int64:
		return BigInt
	case int32:
		return Integer
	case float64:
		return Double
	case bool:
		return Boolean
	case string:
		return Text
	default:
		return Null
	}
}

// Equal returns true if two values are equal
func (v Value) Equal(other Value) bool {
	return CompareValues(v, other) == 0
}

// CompareValues compares two values, handling NULLs
// NULL is considered less than any non-NULL value
func CompareValues(a, b Value) int {
	if a.Null && b.Null {
		return 0
	}
	if a.Null {
		return -1
	}
	if b.Null {
		return 1
	}
	switch v1 := a.Data.(type) {
	case int32:
		if v2, ok := b.Data.(int32); ok {
			return compareOrdered(v1, v2)
		}
	case int64:
		if v2, ok := b.Data.(int64); ok {
			return compareOrdered(v1, v2)
		}
	case float64:
		if v2, ok := b.Data.(float64); ok {
			return compareFloat(v1, v2)
		}
	case string:
		if v2, ok := b.Data.(string); ok {
			return strings.Compare(v1, v2)
		}
	case bool:
		if v2, ok := b.Data.(bool); ok {
			if !v1 && v2 {
				return -1
			} else if v1 && !v2 {
				return 1
			}
			return 0
		}
	}
	// For unsupported types or type mismatches, panic to catch bugs early
	panic(fmt.Sprintf("CompareValues: unsupported or mismatched types: %T vs %T", a.Data, b.Data))
}

func compareOrdered[T int32 | int64](a, b T) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

// compareFloat orders NaN after every other value
func compareFloat(a, b float64) int {
	switch {
	case math.IsNaN(a) && math.IsNaN(b):
		return 0
	case math.IsNaN(a):
		return 1
	case math.IsNaN(b):
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Engine types
var (
	BigInt  DataType = &bigIntType{}
	Integer DataType = &integerType{}
	Double  DataType = &doubleType{}
	Boolean DataType = &booleanType{}
	Text    DataType = &textType{}
	// Null is the type of an untyped NULL literal
	Null DataType = &nullType{}
)

var byID = map[TypeID]DataType{
	TypeIDBigInt:  BigInt,
	TypeIDInteger: Integer,
	TypeIDDouble:  Double,
	TypeIDBoolean: Boolean,
	TypeIDText:    Text,
	TypeIDNull:    Null,
}

// FromID returns the DataType with the given ID
func FromID(id TypeID) (DataType, error) {
	if dt, ok := byID[id]; ok {
		return dt, nil
	}
	return nil, fmt.Errorf("unknown type id %d", id)
}

// ParseTypeName resolves a SQL type name, accepting the common aliases
func ParseTypeName(name string) (DataType, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "BIGINT", "INT8", "LONG":
		return BigInt, nil
	case "INTEGER", "INT", "INT4":
		return Integer, nil
	case "DOUBLE", "DOUBLE PRECISION", "FLOAT8", "FLOAT", "REAL":
		return Double, nil
	case "BOOLEAN", "BOOL":
		return Boolean, nil
	case "TEXT", "VARCHAR", "STRING", "KEYWORD":
		return Text, nil
	case "NULL", "UNKNOWN":
		return Null, nil
	default:
		return nil, fmt.Errorf("unknown type name %q", name)
	}
}

// IsInteger reports whether dt is INTEGER or BIGINT
func IsInteger(dt DataType) bool {
	if dt == nil {
		return false
	}
	id := dt.ID()
	return id == TypeIDInteger || id == TypeIDBigInt
}

// IsNumeric reports whether dt is an integer type or DOUBLE
func IsNumeric(dt DataType) bool {
	return IsInteger(dt) || (dt != nil && dt.ID() == TypeIDDouble)
}

// IsNull reports whether dt is the untyped NULL type
func IsNull(dt DataType) bool {
	return dt != nil && dt.ID() == TypeIDNull
}

// Same reports whether two types are the same member of the enumeration
func Same(a, b DataType) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID() == b.ID()
}

// Row represents a row of data
type Row struct {
	Values []Value
}

// NewRow creates a new row with the given values
func NewRow(values ...Value) Row {
	return Row{Values: values}
}

// Get returns the value at the given index
func (r Row) Get(index int) Value {
	if index < 0 || index >= len(r.Values) {
		return NewNullValue()
	}
	return r.Values[index]
}
