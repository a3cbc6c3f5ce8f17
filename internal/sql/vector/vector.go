package vector

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/dshills/QuantaEval/internal/sql/types"
)

// DefaultBatchSize is the number of rows sources put in one batch unless
// configured otherwise.
const DefaultBatchSize = 1024

// Vector is an immutable column of values of a single type. Only the data
// slice matching the type is populated. Null positions are tracked in a
// roaring bitmap; the data slot of a null row holds the zero value.
type Vector struct {
	dataType types.DataType
	length   int

	int64Data   []int64
	int32Data   []int32
	float64Data []float64
	boolData    []bool
	stringData  []string

	nulls *roaring.Bitmap
}

// Type returns the declared type of the vector.
func (v *Vector) Type() types.DataType {
	return v.dataType
}

// Len returns the number of rows in the vector.
func (v *Vector) Len() int {
	return v.length
}

// IsNull reports whether the value at row is NULL.
func (v *Vector) IsNull(row int) bool {
	return v.nulls.Contains(uint32(row)) // nolint:gosec // row < Len
}

// NullCount returns the number of NULL rows.
func (v *Vector) NullCount() int {
	return int(v.nulls.GetCardinality()) // nolint:gosec // bounded by Len
}

// NullBitmap returns a copy of the null positions.
func (v *Vector) NullBitmap() *roaring.Bitmap {
	return v.nulls.Clone()
}

// Int64 returns the BIGINT at row. The result is undefined for NULL rows.
func (v *Vector) Int64(row int) int64 {
	return v.int64Data[row]
}

// Int32 returns the INTEGER at row.
func (v *Vector) Int32(row int) int32 {
	return v.int32Data[row]
}

// Float64 returns the DOUBLE at row.
func (v *Vector) Float64(row int) float64 {
	return v.float64Data[row]
}

// Bool returns the BOOLEAN at row.
func (v *Vector) Bool(row int) bool {
	return v.boolData[row]
}

// Text returns the TEXT at row.
func (v *Vector) Text(row int) string {
	return v.stringData[row]
}

// Get returns the value at row as a types.Value.
func (v *Vector) Get(row int) types.Value {
	if v.IsNull(row) {
		return types.NewNullValue()
	}
	switch v.dataType.ID() {
	case types.TypeIDBigInt:
		return types.NewBigIntValue(v.int64Data[row])
	case types.TypeIDInteger:
		return types.NewIntegerValue(v.int32Data[row])
	case types.TypeIDDouble:
		return types.NewDoubleValue(v.float64Data[row])
	case types.TypeIDBoolean:
		return types.NewBooleanValue(v.boolData[row])
	case types.TypeIDText:
		return types.NewTextValue(v.stringData[row])
	default:
		return types.NewNullValue()
	}
}

// Values returns every row as a types.Value. Intended for tests and output.
func (v *Vector) Values() []types.Value {
	out := make([]types.Value, v.length)
	for i := range out {
		out[i] = v.Get(i)
	}
	return out
}

func (v *Vector) String() string {
	return fmt.Sprintf("Vector[%s, rows=%d, nulls=%d]", v.dataType.Name(), v.length, v.NullCount())
}

// Builder accumulates values for a Vector. A Builder is not safe for
// concurrent use; Build hands its buffers to the Vector and resets it.
type Builder struct {
	dataType types.DataType
	length   int

	int64Data   []int64
	int32Data   []int32
	float64Data []float64
	boolData    []bool
	stringData  []string

	nulls *roaring.Bitmap
}

// NewBuilder creates a builder for dataType with room for capacity rows.
func NewBuilder(dataType types.DataType, capacity int) *Builder {
	b := &Builder{dataType: dataType}
	b.alloc(capacity)
	return b
}

func (b *Builder) alloc(capacity int) {
	b.length = 0
	b.nulls = roaring.New()
	b.int64Data, b.int32Data, b.float64Data, b.boolData, b.stringData = nil, nil, nil, nil, nil

	switch b.dataType.ID() {
	case types.TypeIDBigInt:
		b.int64Data = make([]int64, 0, capacity)
	case types.TypeIDInteger:
		b.int32Data = make([]int32, 0, capacity)
	case types.TypeIDDouble:
		b.float64Data = make([]float64, 0, capacity)
	case types.TypeIDBoolean:
		b.boolData = make([]bool, 0, capacity)
	case types.TypeIDText:
		b.stringData = make([]string, 0, capacity)
	}
}

// Type returns the type of the vector being built.
func (b *Builder) Type() types.DataType {
	return b.dataType
}

// Len returns the number of rows appended so far.
func (b *Builder) Len() int {
	return b.length
}

// AppendNull appends a NULL row.
func (b *Builder) AppendNull() {
	b.nulls.Add(uint32(b.length)) // nolint:gosec // batches are far below 2^32 rows
	switch b.dataType.ID() {
	case types.TypeIDBigInt:
		b.int64Data = append(b.int64Data, 0)
	case types.TypeIDInteger:
		b.int32Data = append(b.int32Data, 0)
	case types.TypeIDDouble:
		b.float64Data = append(b.float64Data, 0)
	case types.TypeIDBoolean:
		b.boolData = append(b.boolData, false)
	case types.TypeIDText:
		b.stringData = append(b.stringData, "")
	}
	b.length++
}

func (b *Builder) mustBe(id types.TypeID, method string) {
	if b.dataType.ID() != id {
		panic(fmt.Sprintf("vector: %s on %s builder", method, b.dataType.Name()))
	}
}

// AppendInt64 appends a BIGINT. It panics on a builder of another type.
func (b *Builder) AppendInt64(val int64) {
	b.mustBe(types.TypeIDBigInt, "AppendInt64")
	b.int64Data = append(b.int64Data, val)
	b.length++
}

// AppendInt32 appends an INTEGER.
func (b *Builder) AppendInt32(val int32) {
	b.mustBe(types.TypeIDInteger, "AppendInt32")
	b.int32Data = append(b.int32Data, val)
	b.length++
}

// AppendFloat64 appends a DOUBLE.
func (b *Builder) AppendFloat64(val float64) {
	b.mustBe(types.TypeIDDouble, "AppendFloat64")
	b.float64Data = append(b.float64Data, val)
	b.length++
}

// AppendBool appends a BOOLEAN.
func (b *Builder) AppendBool(val bool) {
	b.mustBe(types.TypeIDBoolean, "AppendBool")
	b.boolData = append(b.boolData, val)
	b.length++
}

// AppendText appends a TEXT value.
func (b *Builder) AppendText(val string) {
	b.mustBe(types.TypeIDText, "AppendText")
	b.stringData = append(b.stringData, val)
	b.length++
}

// AppendValue appends v, returning an error when its type does not match
// the builder. NULL is accepted by every builder.
func (b *Builder) AppendValue(v types.Value) error {
	if v.IsNull() {
		b.AppendNull()
		return nil
	}

	switch b.dataType.ID() {
	case types.TypeIDBigInt:
		if val, ok := v.Data.(int64); ok {
			b.AppendInt64(val)
			return nil
		}
	case types.TypeIDInteger:
		if val, ok := v.Data.(int32); ok {
			b.AppendInt32(val)
			return nil
		}
	case types.TypeIDDouble:
		if val, ok := v.Data.(float64); ok {
			b.AppendFloat64(val)
			return nil
		}
	case types.TypeIDBoolean:
		if val, ok := v.Data.(bool); ok {
			b.AppendBool(val)
			return nil
		}
	case types.TypeIDText:
		if val, ok := v.Data.(string); ok {
			b.AppendText(val)
			return nil
		}
	}
	return fmt.Errorf("cannot append %T to %s vector", v.Data, b.dataType.Name())
}

// Build freezes the appended values into a Vector and resets the builder.
func (b *Builder) Build() *Vector {
	v := &Vector{
		dataType:    b.dataType,
		length:      b.length,
		int64Data:   b.int64Data,
		int32Data:   b.int32Data,
		float64Data: b.float64Data,
		boolData:    b.boolData,
		stringData:  b.stringData,
		nulls:       b.nulls,
	}
	v.nulls.RunOptimize()
	b.alloc(0)
	return v
}

// FromValues builds a vector of dataType from values.
func FromValues(dataType types.DataType, values ...types.Value) (*Vector, error) {
	b := NewBuilder(dataType, len(values))
	for i, val := range values {
		if err := b.AppendValue(val); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return b.Build(), nil
}

// Repeat builds a vector holding val in each of n rows.
func Repeat(dataType types.DataType, val types.Value, n int) (*Vector, error) {
	b := NewBuilder(dataType, n)
	for i := 0; i < n; i++ {
		if err := b.AppendValue(val); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}
