package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/QuantaEval/internal/errors"
	"github.com/dshills/QuantaEval/internal/log"
	"github.com/dshills/QuantaEval/internal/sql/expression"
	"github.com/dshills/QuantaEval/internal/sql/types"
	"github.com/dshills/QuantaEval/internal/sql/vector"
)

var (
	textV = types.NewTextValue
	intV  = types.NewIntegerValue
	longV = types.NewBigIntValue
	nullV = types.NewNullValue
)

// substringBatch has columns s TEXT, start INTEGER, len INTEGER.
func substringBatch(t *testing.T, rows ...[3]types.Value) *vector.Batch {
	t.Helper()
	cols := [3][]types.Value{}
	for _, r := range rows {
		for i := range r {
			cols[i] = append(cols[i], r[i])
		}
	}
	s, err := vector.FromValues(types.Text, cols[0]...)
	require.NoError(t, err)
	start, err := vector.FromValues(types.Integer, cols[1]...)
	require.NoError(t, err)
	length, err := vector.FromValues(types.Integer, cols[2]...)
	require.NoError(t, err)
	batch, err := vector.NewBatch(s, start, length)
	require.NoError(t, err)
	return batch
}

func substringLayout() Layout {
	return Layout{
		"s":     {Index: 0, Type: types.Text},
		"start": {Index: 1, Type: types.Integer},
		"len":   {Index: 2, Type: types.Integer},
	}
}

func field(name string, dt types.DataType) expression.Node {
	return expression.NewFieldRef(name, dt)
}

func lit(v types.Value) expression.Node {
	return expression.LiteralOf(v)
}

func fn(name string, dt types.DataType, args ...expression.Node) expression.Node {
	return expression.NewFunctionCall(name, dt, args...)
}

func newTestBinder() *Binder {
	return NewBinder(WithLogger(log.Discard()))
}

func TestExtractors(t *testing.T) {
	longs, err := vector.FromValues(types.BigInt, longV(5), nullV())
	require.NoError(t, err)
	ints, err := vector.FromValues(types.Integer, nullV(), intV(-1))
	require.NoError(t, err)
	doubles, err := vector.FromValues(types.Double, types.NewDoubleValue(0.5), nullV())
	require.NoError(t, err)
	bools, err := vector.FromValues(types.Boolean, types.NewBooleanValue(true), nullV())
	require.NoError(t, err)
	texts, err := vector.FromValues(types.Text, nullV(), textV("x"))
	require.NoError(t, err)

	batch, err := vector.NewBatch(longs, ints, doubles, bools, texts)
	require.NoError(t, err)

	tests := []struct {
		typ  types.DataType
		desc string
		want []types.Value
	}{
		{types.BigInt, "Long[channel=0]", []types.Value{longV(5), nullV()}},
		{types.Integer, "Int[channel=1]", []types.Value{nullV(), intV(-1)}},
		{types.Double, "Double[channel=2]", []types.Value{types.NewDoubleValue(0.5), nullV()}},
		{types.Boolean, "Boolean[channel=3]", []types.Value{types.NewBooleanValue(true), nullV()}},
		{types.Text, "Text[channel=4]", []types.Value{nullV(), textV("x")}},
	}

	for channel, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			ev, err := NewExtractor(channel, tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.desc, ev.String())
			assert.Same(t, tt.typ, ev.Type())

			for row, want := range tt.want {
				got, err := ev.EvalRow(batch, row)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}
		})
	}

	t.Run("channel out of range", func(t *testing.T) {
		ev, err := NewExtractor(9, types.Text)
		require.NoError(t, err)
		_, err = ev.EvalRow(batch, 0)
		assert.ErrorIs(t, err, errors.ErrChannelOutOfRange)
	})

	t.Run("vector type differs from binding", func(t *testing.T) {
		ev, err := NewExtractor(0, types.Text)
		require.NoError(t, err)
		_, err = ev.EvalRow(batch, 0)
		assert.ErrorIs(t, err, errors.ErrFieldTypeMismatch)
	})

	t.Run("no extractor for NULL type", func(t *testing.T) {
		_, err := NewExtractor(0, types.Null)
		assert.ErrorIs(t, err, errors.ErrFieldTypeMismatch)
	})

	t.Run("negative channel", func(t *testing.T) {
		_, err := NewExtractor(-1, types.Text)
		assert.ErrorIs(t, err, errors.ErrChannelOutOfRange)
	})
}

func TestConstant(t *testing.T) {
	c := NewConstant(textV("tiger"), types.Text)
	v, err := c.EvalRow(nil, 0)
	require.NoError(t, err)
	assert.Equal(t, textV("tiger"), v)
	assert.Equal(t, "Constant[tiger]", c.String())

	assert.Equal(t, "Constant[NULL]", NewConstant(nullV(), types.Text).String())
	assert.Equal(t, "Constant[0.25]", NewConstant(types.NewDoubleValue(0.25), types.Double).String())
	assert.Equal(t, "Constant[-3]", NewConstant(longV(-3), types.BigInt).String())
}

func TestSubstringOverBatch(t *testing.T) {
	b := newTestBinder()
	batch := substringBatch(t,
		[3]types.Value{textV("a tiger"), intV(3), nullV()},
		[3]types.Value{textV("a tiger"), intV(-3), nullV()},
		[3]types.Value{textV("a tiger"), intV(-300), intV(1)},
		[3]types.Value{textV("a tiger"), intV(0), nullV()},
		[3]types.Value{textV("a tiger"), intV(1), nullV()},
		[3]types.Value{nullV(), intV(1), intV(2)},
		[3]types.Value{textV("a tiger"), nullV(), intV(2)},
		[3]types.Value{textV("a\U0001F309tiger"), intV(3), intV(1000)},
		[3]types.Value{textV("a\U0001F309tiger"), intV(-6), nullV()},
	)

	ev, err := b.Bind(fn("substring", types.Text,
		field("s", types.Text), field("start", types.Integer), field("len", types.Integer),
	), substringLayout())
	require.NoError(t, err)
	assert.Equal(t, "Substring[str=Text[channel=0], start=Int[channel=1], length=Int[channel=2]]", ev.String())

	out, err := Compute(ev, batch)
	require.NoError(t, err)
	assert.Same(t, types.Text, out.Type())
	assert.Equal(t, batch.RowCount(), out.Len())
	assert.Equal(t, []types.Value{
		textV("tiger"),
		textV("ger"),
		textV("a"),
		textV("a tiger"),
		textV("a tiger"),
		nullV(),
		nullV(),
		textV("tiger"),
		textV("\U0001F309tiger"),
	}, out.Values())
}

func TestNullLengthMatchesAbsentLength(t *testing.T) {
	b := newTestBinder()
	batch := substringBatch(t,
		[3]types.Value{textV("a tiger"), intV(3), nullV()},
		[3]types.Value{textV("a tiger"), intV(-2), nullV()},
		[3]types.Value{textV("héllo wörld"), intV(5), nullV()},
	)

	withLength, err := b.Bind(fn("substring", types.Text,
		field("s", types.Text), field("start", types.Integer), field("len", types.Integer),
	), substringLayout())
	require.NoError(t, err)
	withoutLength, err := b.Bind(fn("substring", types.Text,
		field("s", types.Text), field("start", types.Integer),
	), substringLayout())
	require.NoError(t, err)
	assert.Equal(t, "Substring[str=Text[channel=0], start=Int[channel=1]]", withoutLength.String())

	a, err := Compute(withLength, batch)
	require.NoError(t, err)
	c, err := Compute(withoutLength, batch)
	require.NoError(t, err)
	assert.Equal(t, c.Values(), a.Values())
}

func TestPropagatingOptionalArgument(t *testing.T) {
	doubles, err := vector.FromValues(types.Double, types.NewDoubleValue(2.567), types.NewDoubleValue(2.567))
	require.NoError(t, err)
	precision, err := vector.FromValues(types.Integer, intV(1), nullV())
	require.NoError(t, err)
	batch, err := vector.NewBatch(doubles, precision)
	require.NoError(t, err)

	layout := Layout{"v": {Index: 0, Type: types.Double}, "p": {Index: 1, Type: types.Integer}}
	ev, err := newTestBinder().Bind(fn("round", types.Double, field("v", types.Double), field("p", types.Integer)), layout)
	require.NoError(t, err)
	assert.Equal(t, "Round[value=Double[channel=0], precision=Int[channel=1]]", ev.String())

	out, err := Compute(ev, batch)
	require.NoError(t, err)
	assert.Equal(t, []types.Value{types.NewDoubleValue(2.6), nullV()}, out.Values())
}

func TestNegativeLengthAtRuntime(t *testing.T) {
	batch := substringBatch(t,
		[3]types.Value{textV("a tiger"), intV(1), intV(2)},
		[3]types.Value{textV("a tiger"), intV(1), intV(-7)},
		[3]types.Value{textV("a tiger"), intV(1), intV(-1)},
	)

	ev, err := newTestBinder().Bind(fn("substring", types.Text,
		field("s", types.Text), field("start", types.Integer), field("len", types.Integer),
	), substringLayout())
	require.NoError(t, err, "non-constant length cannot fail at bind time")

	out, err := Compute(ev, batch)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Contains(t, err.Error(), "Length parameter cannot be negative, found [-7]")
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	e, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, "row 1", e.Detail)
	assert.Equal(t, int64(-7), e.Value)
}

func TestNestedCalls(t *testing.T) {
	batch := substringBatch(t,
		[3]types.Value{textV("a tiger"), intV(3), nullV()},
		[3]types.Value{textV("  x "), intV(1), nullV()},
	)

	node := fn("upper", types.Text,
		fn("trim", types.Text,
			fn("substr", types.Text, field("s", types.Text), field("start", types.Integer))))

	ev, err := newTestBinder().Bind(node, substringLayout())
	require.NoError(t, err)
	assert.Equal(t, "Upper[str=Trim[str=Substring[str=Text[channel=0], start=Int[channel=1]]]]", ev.String())

	out, err := Compute(ev, batch)
	require.NoError(t, err)
	assert.Equal(t, []types.Value{textV("TIGER"), textV("X")}, out.Values())
}

func TestComputeConstant(t *testing.T) {
	out, err := Compute(NewConstant(textV("k"), types.Text), vector.EmptyBatch(3))
	require.NoError(t, err)
	assert.Equal(t, []types.Value{textV("k"), textV("k"), textV("k")}, out.Values())

	out, err = Compute(NewConstant(nullV(), types.Null), vector.EmptyBatch(2))
	require.NoError(t, err)
	assert.Equal(t, 2, out.NullCount())
}

func TestLayoutOf(t *testing.T) {
	schema := vector.NewSchema(
		vector.Field{Name: "s", Type: types.Text},
		vector.Field{Name: "n", Type: types.BigInt},
	)
	l := LayoutOf(schema)
	assert.Equal(t, Channel{Index: 1, Type: types.BigInt}, l["n"])
	assert.Equal(t, `"n":1:BIGINT;"s":0:TEXT;`, l.Fingerprint())
}
