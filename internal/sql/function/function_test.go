package function

import (
	"math"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/QuantaEval/internal/errors"
	"github.com/dshills/QuantaEval/internal/sql/types"
)

func text(s string) types.Value  { return types.NewTextValue(s) }
func long(v int64) types.Value   { return types.NewBigIntValue(v) }
func int32v(v int32) types.Value { return types.NewIntegerValue(v) }

func call(t *testing.T, name string, args ...types.Value) (types.Value, error) {
	t.Helper()
	d, ok := Builtins().Lookup(name)
	require.True(t, ok, "function %s not registered", name)
	return d.Eval(args)
}

func TestSubstring(t *testing.T) {
	tests := []struct {
		name  string
		str   string
		start int64
		len   *int64
		want  string
	}{
		{"start 3", "a tiger", 3, nil, "tiger"},
		{"start -3", "a tiger", -3, nil, "ger"},
		{"start -300 length 1", "a tiger", -300, ptr(1), "a"},
		{"start 0", "a tiger", 0, nil, "a tiger"},
		{"start 1", "a tiger", 1, nil, "a tiger"},
		{"start 1 length 3", "a tiger", 1, ptr(3), "a t"},
		{"length past end", "a tiger", 3, ptr(1000), "tiger"},
		{"start past end", "a tiger", 100, nil, ""},
		{"start n+1", "a tiger", 8, ptr(2), ""},
		{"last code point", "a tiger", -1, nil, "r"},
		{"zero length", "a tiger", 2, ptr(0), ""},
		{"min start", "a tiger", math.MinInt64, ptr(2), "a "},
		{"max length", "a tiger", 2, ptr(math.MaxInt64), " tiger"},
		{"max start", "a tiger", math.MaxInt64, ptr(math.MaxInt64), ""},
		{"empty string", "", 1, ptr(5), ""},
		{"unicode start 3", "a\U0001F309tiger", 3, ptr(1000), "tiger"},
		{"unicode start -6", "a\U0001F309tiger", -6, nil, "\U0001F309tiger"},
		{"unicode single", "a\U0001F309tiger", 2, ptr(1), "\U0001F309"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := []types.Value{text(tt.str), long(tt.start)}
			if tt.len != nil {
				args = append(args, long(*tt.len))
			}
			got, err := call(t, "substring", args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Data)
		})
	}
}

func ptr(v int64) *int64 { return &v }

func TestSubstringIntegerArguments(t *testing.T) {
	got, err := call(t, "substr", text("a tiger"), int32v(3), int32v(2))
	require.NoError(t, err)
	assert.Equal(t, "ti", got.Data)
}

func TestSubstringNegativeLength(t *testing.T) {
	_, err := call(t, "substring", text("a tiger"), long(1), long(-1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Length parameter cannot be negative, found [-1]")
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	e, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, 2, e.ArgIndex)
	assert.Equal(t, "length", e.ArgName)
	assert.Equal(t, int64(-1), e.Value)
	assert.Equal(t, errors.SubstringError, e.Code)
}

func TestSubstringProperties(t *testing.T) {
	inputs := []string{"", "a", "a tiger", "a\U0001F309tiger", "éèê", "日本語のテキスト"}
	starts := []int64{-100, -8, -7, -3, -1, 0, 1, 2, 3, 7, 8, 100}
	lengths := []int64{0, 1, 2, 5, 100}

	for _, s := range inputs {
		n := int64(utf8.RuneCountInString(s))
		for _, start := range starts {
			begin := substringBegin(start, n)

			whole, err := evalSubstring([]types.Value{text(s), long(start)})
			require.NoError(t, err)
			got := whole.Data.(string)
			assert.Equal(t, n-begin, int64(utf8.RuneCountInString(got)), "%q from %d", s, start)

			if start < 0 {
				keep := -start
				if keep > n {
					keep = n
				}
				runes := []rune(s)
				assert.Equal(t, string(runes[n-keep:]), got, "%q tail %d", s, start)
			}

			for _, length := range lengths {
				part, err := evalSubstring([]types.Value{text(s), long(start), long(length)})
				require.NoError(t, err)
				want := length
				if rest := n - begin; rest < want {
					want = rest
				}
				assert.Equal(t, want, int64(utf8.RuneCountInString(part.Data.(string))),
					"%q from %d for %d", s, start, length)
			}
		}

		for _, start := range []int64{0, 1} {
			got, err := evalSubstring([]types.Value{text(s), long(start)})
			require.NoError(t, err)
			assert.Equal(t, s, got.Data)
		}
	}
}

func TestStringFunctions(t *testing.T) {
	tests := []struct {
		fn   string
		args []types.Value
		want types.Value
	}{
		{"length", []types.Value{text("a\U0001F309tiger")}, int32v(7)},
		{"len", []types.Value{text("")}, int32v(0)},
		{"upper", []types.Value{text("été")}, text("ÉTÉ")},
		{"ucase", []types.Value{text("abc")}, text("ABC")},
		{"lower", []types.Value{text("ÉTÉ")}, text("été")},
		{"trim", []types.Value{text("\t a b \n")}, text("a b")},
		{"ltrim", []types.Value{text("  x  ")}, text("x  ")},
		{"rtrim", []types.Value{text("  x  ")}, text("  x")},
		{"concat", []types.Value{text("a "), text("tiger")}, text("a tiger")},
	}

	for _, tt := range tests {
		t.Run(tt.fn, func(t *testing.T) {
			got, err := call(t, tt.fn, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumericFunctions(t *testing.T) {
	tests := []struct {
		fn   string
		args []types.Value
		want types.Value
	}{
		{"abs", []types.Value{long(-5)}, long(5)},
		{"abs", []types.Value{int32v(-5)}, int32v(5)},
		{"abs", []types.Value{types.NewDoubleValue(-1.5)}, types.NewDoubleValue(1.5)},
		{"mod", []types.Value{int32v(7), int32v(3)}, int32v(1)},
		{"mod", []types.Value{int32v(-7), long(3)}, long(-1)},
		{"mod", []types.Value{long(math.MinInt64), long(-1)}, long(0)},
		{"round", []types.Value{types.NewDoubleValue(2.5)}, types.NewDoubleValue(3)},
		{"round", []types.Value{types.NewDoubleValue(-2.5)}, types.NewDoubleValue(-3)},
		{"round", []types.Value{types.NewDoubleValue(3.14159), int32v(2)}, types.NewDoubleValue(3.14)},
		{"round", []types.Value{types.NewDoubleValue(1234.5), int32v(-2)}, types.NewDoubleValue(1200)},
		{"round", []types.Value{long(1250), int32v(-2)}, long(1300)},
		{"round", []types.Value{long(-1250), int32v(-2)}, long(-1300)},
		{"round", []types.Value{int32v(1249), int32v(-2)}, int32v(1200)},
		{"round", []types.Value{long(42), int32v(3)}, long(42)},
		{"round", []types.Value{long(42), long(-30)}, long(0)},
		{"sqrt", []types.Value{long(16)}, types.NewDoubleValue(4)},
		{"sqrt", []types.Value{types.NewDoubleValue(2.25)}, types.NewDoubleValue(1.5)},
	}

	for _, tt := range tests {
		t.Run(tt.fn, func(t *testing.T) {
			got, err := call(t, tt.fn, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumericErrors(t *testing.T) {
	t.Run("abs overflow", func(t *testing.T) {
		_, err := call(t, "abs", long(math.MinInt64))
		assert.ErrorIs(t, err, errors.ErrNumericOutOfRange)

		_, err = call(t, "abs", int32v(math.MinInt32))
		assert.ErrorIs(t, err, errors.ErrNumericOutOfRange)
	})

	t.Run("mod by zero", func(t *testing.T) {
		_, err := call(t, "mod", long(1), int32v(0))
		require.ErrorIs(t, err, errors.ErrDivisionByZero)
		e, _ := errors.As(err)
		assert.Equal(t, "divisor", e.ArgName)
	})

	t.Run("round overflow", func(t *testing.T) {
		_, err := call(t, "round", long(math.MaxInt64), int32v(-1))
		assert.ErrorIs(t, err, errors.ErrNumericOutOfRange)

		_, err = call(t, "round", int32v(math.MaxInt32), int32v(-1))
		assert.ErrorIs(t, err, errors.ErrNumericOutOfRange)

		_, err = call(t, "round", long(math.MaxInt64), int32v(-19))
		assert.ErrorIs(t, err, errors.ErrNumericOutOfRange)
	})

	t.Run("sqrt negative", func(t *testing.T) {
		_, err := call(t, "sqrt", int32v(-4))
		require.ErrorIs(t, err, errors.ErrInvalidArgument)
		e, _ := errors.As(err)
		assert.Equal(t, errors.InvalidArgumentForPower, e.Code)
		assert.Contains(t, err.Error(), "found [-4]")
	})
}

func TestResultTypes(t *testing.T) {
	mod, _ := Builtins().Lookup("mod")
	assert.Same(t, types.Integer, mod.ReturnType([]types.DataType{types.Integer, types.Integer}))
	assert.Same(t, types.BigInt, mod.ReturnType([]types.DataType{types.Integer, types.BigInt}))

	abs, _ := Builtins().Lookup("abs")
	assert.Same(t, types.Double, abs.ReturnType([]types.DataType{types.Double}))
}

func TestArgSpecAccepts(t *testing.T) {
	spec := ArgSpec{Name: "start", Type: IntegerArg}
	assert.True(t, spec.Accepts(types.Integer))
	assert.True(t, spec.Accepts(types.BigInt))
	assert.True(t, spec.Accepts(types.Null))
	assert.False(t, spec.Accepts(types.Text))
	assert.False(t, spec.Accepts(types.Double))
}

func TestRegistry(t *testing.T) {
	body := func([]types.Value) (types.Value, error) { return types.NewNullValue(), nil }

	t.Run("builtins", func(t *testing.T) {
		d, ok := Builtins().Lookup("SUBSTR")
		require.True(t, ok)
		assert.Equal(t, "substring", d.Name)
		assert.Equal(t, 2, d.MinArgs())
		assert.Equal(t, 3, d.MaxArgs())
		assert.Equal(t,
			"substring(str TEXT, start INTEGER or BIGINT, [length INTEGER or BIGINT]) -> TEXT",
			d.Signature())
		assert.Contains(t, Builtins().Names(), "round")

		_, ok = Builtins().Lookup("nope")
		assert.False(t, ok)
	})

	tests := []struct {
		name string
		desc *Descriptor
	}{
		{"no name", &Descriptor{Eval: body, ReturnType: Fixed(types.Text)}},
		{"no body", &Descriptor{Name: "f", ReturnType: Fixed(types.Text)}},
		{"no result rule", &Descriptor{Name: "f", Eval: body}},
		{"optional not last", &Descriptor{Name: "f", Eval: body, ReturnType: Fixed(types.Text), Args: []ArgSpec{
			{Name: "a", Type: TextArg, Optional: true},
			{Name: "b", Type: TextArg},
		}}},
		{"two optional", &Descriptor{Name: "f", Eval: body, ReturnType: Fixed(types.Text), Args: []ArgSpec{
			{Name: "a", Type: TextArg, Optional: true},
			{Name: "b", Type: TextArg, Optional: true},
		}}},
		{"absent on null required", &Descriptor{Name: "f", Eval: body, ReturnType: Fixed(types.Text), Args: []ArgSpec{
			{Name: "a", Type: TextArg, AbsentOnNull: true},
		}}},
		{"duplicate arg", &Descriptor{Name: "f", Eval: body, ReturnType: Fixed(types.Text), Args: []ArgSpec{
			{Name: "a", Type: TextArg},
			{Name: "a", Type: TextArg},
		}}},
		{"missing predicate", &Descriptor{Name: "f", Eval: body, ReturnType: Fixed(types.Text), Args: []ArgSpec{
			{Name: "a"},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, NewRegistry().Register(tt.desc))
		})
	}

	t.Run("duplicate name", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(&Descriptor{Name: "f", Aliases: []string{"g"}, Eval: body, ReturnType: Fixed(types.Text)}))
		assert.Error(t, r.Register(&Descriptor{Name: "G", Eval: body, ReturnType: Fixed(types.Text)}))
		assert.Panics(t, func() {
			r.MustRegister(&Descriptor{Name: "f", Eval: body, ReturnType: Fixed(types.Text)})
		})
		assert.Equal(t, []string{"f"}, r.Names())
	})
}
