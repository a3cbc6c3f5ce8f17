package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/QuantaEval/internal/errors"
	"github.com/dshills/QuantaEval/internal/sql/types"
)

func TestBuilder(t *testing.T) {
	t.Run("typed appends", func(t *testing.T) {
		b := NewBuilder(types.BigInt, 4)
		b.AppendInt64(1)
		b.AppendNull()
		b.AppendInt64(-3)

		v := b.Build()
		assert.Equal(t, 3, v.Len())
		assert.Same(t, types.BigInt, v.Type())
		assert.Equal(t, int64(1), v.Int64(0))
		assert.True(t, v.IsNull(1))
		assert.False(t, v.IsNull(2))
		assert.Equal(t, int64(-3), v.Int64(2))
		assert.Equal(t, 1, v.NullCount())

		assert.Equal(t, 0, b.Len(), "builder resets after Build")
	})

	t.Run("append value checks type", func(t *testing.T) {
		b := NewBuilder(types.Text, 0)
		require.NoError(t, b.AppendValue(types.NewTextValue("a")))
		require.NoError(t, b.AppendValue(types.NewNullValue()))
		assert.Error(t, b.AppendValue(types.NewBigIntValue(1)))
		assert.Equal(t, 2, b.Len())
	})

	t.Run("typed append on wrong builder panics", func(t *testing.T) {
		b := NewBuilder(types.Integer, 0)
		assert.Panics(t, func() { b.AppendText("x") })
	})

	t.Run("null type only holds nulls", func(t *testing.T) {
		b := NewBuilder(types.Null, 0)
		b.AppendNull()
		assert.Error(t, b.AppendValue(types.NewBooleanValue(true)))
		v := b.Build()
		assert.Equal(t, 1, v.Len())
		assert.True(t, v.Get(0).IsNull())
	})
}

func TestVectorGet(t *testing.T) {
	tests := []struct {
		name   string
		typ    types.DataType
		values []types.Value
	}{
		{"bigint", types.BigInt, []types.Value{types.NewBigIntValue(7), types.NewNullValue()}},
		{"integer", types.Integer, []types.Value{types.NewNullValue(), types.NewIntegerValue(-2)}},
		{"double", types.Double, []types.Value{types.NewDoubleValue(1.5)}},
		{"boolean", types.Boolean, []types.Value{types.NewBooleanValue(true), types.NewBooleanValue(false)}},
		{"text", types.Text, []types.Value{types.NewTextValue("a \U0001F309"), types.NewNullValue(), types.NewTextValue("")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FromValues(tt.typ, tt.values...)
			require.NoError(t, err)
			assert.Equal(t, tt.values, v.Values())
		})
	}
}

func TestFromValuesError(t *testing.T) {
	_, err := FromValues(types.Integer, types.NewIntegerValue(1), types.NewBigIntValue(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
}

func TestRepeat(t *testing.T) {
	v, err := Repeat(types.Text, types.NewTextValue("x"), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Len())
	assert.Equal(t, "x", v.Text(2))

	nulls, err := Repeat(types.BigInt, types.NewNullValue(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, nulls.NullCount())
}

func TestNullBitmapIsCopy(t *testing.T) {
	v, err := FromValues(types.Boolean, types.NewNullValue(), types.NewBooleanValue(true))
	require.NoError(t, err)

	bm := v.NullBitmap()
	bm.Add(1)
	assert.False(t, v.IsNull(1))
}

func TestBatch(t *testing.T) {
	strs, err := FromValues(types.Text, types.NewTextValue("a"), types.NewTextValue("b"))
	require.NoError(t, err)
	ints, err := FromValues(types.Integer, types.NewIntegerValue(1), types.NewNullValue())
	require.NoError(t, err)

	t.Run("construction", func(t *testing.T) {
		b, err := NewBatch(strs, ints)
		require.NoError(t, err)
		assert.Equal(t, 2, b.RowCount())
		assert.Equal(t, 2, b.Width())
		assert.Same(t, ints, b.Vector(1))
		assert.Nil(t, b.Vector(2))
		assert.Nil(t, b.Vector(-1))

		row := b.Row(1)
		assert.Equal(t, "b", row.Get(0).Data)
		assert.True(t, row.Get(1).IsNull())
	})

	t.Run("shape mismatch", func(t *testing.T) {
		short, err := FromValues(types.Integer, types.NewIntegerValue(1))
		require.NoError(t, err)

		_, err = NewBatch(strs, short)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrShapeMismatch)
	})

	t.Run("empty", func(t *testing.T) {
		b, err := NewBatch()
		require.NoError(t, err)
		assert.Equal(t, 0, b.RowCount())

		assert.Equal(t, 5, EmptyBatch(5).RowCount())
		assert.Equal(t, 0, EmptyBatch(5).Width())
	})
}

func TestSchema(t *testing.T) {
	s := NewSchema(Field{Name: "s", Type: types.Text}, Field{Name: "n", Type: types.BigInt})
	assert.Equal(t, 1, s.Index("n"))
	assert.Equal(t, -1, s.Index("missing"))
	assert.Equal(t, "(s TEXT, n BIGINT)", s.String())

	strs, err := FromValues(types.Text, types.NewTextValue("a"))
	require.NoError(t, err)
	longs, err := FromValues(types.BigInt, types.NewBigIntValue(1))
	require.NoError(t, err)
	ints, err := FromValues(types.Integer, types.NewIntegerValue(1))
	require.NoError(t, err)

	ok, err := NewBatch(strs, longs)
	require.NoError(t, err)
	assert.NoError(t, s.Conforms(ok))

	bad, err := NewBatch(strs, ints)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Conforms(bad), errors.ErrFieldTypeMismatch)

	narrow, err := NewBatch(strs)
	require.NoError(t, err)
	assert.Error(t, s.Conforms(narrow))
}

func TestRowBuilder(t *testing.T) {
	s := NewSchema(Field{Name: "s", Type: types.Text}, Field{Name: "n", Type: types.Integer})
	rb := NewRowBuilder(s, 2)

	full, err := rb.Append(types.NewRow(types.NewTextValue("a"), types.NewIntegerValue(1)))
	require.NoError(t, err)
	assert.False(t, full)

	full, err = rb.Append(types.NewRow(types.NewNullValue(), types.NewIntegerValue(2)))
	require.NoError(t, err)
	assert.True(t, full)

	b, err := rb.Flush()
	require.NoError(t, err)
	assert.Equal(t, 2, b.RowCount())
	assert.True(t, b.Vector(0).IsNull(1))
	assert.Equal(t, 0, rb.Len())

	_, err = rb.Append(types.NewRow(types.NewTextValue("a")))
	assert.Error(t, err)

	_, err = rb.Append(types.NewRow(types.NewTextValue("a"), types.NewTextValue("b")))
	assert.Error(t, err)
}
