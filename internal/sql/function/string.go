package function

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/QuantaEval/internal/errors"
	"github.com/dshills/QuantaEval/internal/sql/types"
)

func registerStringFunctions(r *Registry) {
	r.MustRegister(&Descriptor{
		Name:        "substring",
		DisplayName: "Substring",
		Aliases:     []string{"substr"},
		Args: []ArgSpec{
			{Name: "str", Type: TextArg},
			{Name: "start", Type: IntegerArg},
			{Name: "length", Type: IntegerArg, Optional: true, AbsentOnNull: true},
		},
		Returns:    "TEXT",
		ReturnType: Fixed(types.Text),
		Eval:       evalSubstring,
	})

	r.MustRegister(&Descriptor{
		Name:        "length",
		DisplayName: "Length",
		Aliases:     []string{"len", "char_length"},
		Args:        []ArgSpec{{Name: "str", Type: TextArg}},
		Returns:     "INTEGER",
		ReturnType:  Fixed(types.Integer),
		Eval:        evalLength,
	})

	unary := []struct {
		name, display string
		aliases       []string
		fn            func(string) string
	}{
		{"upper", "Upper", []string{"ucase"}, strings.ToUpper},
		{"lower", "Lower", []string{"lcase"}, strings.ToLower},
		{"trim", "Trim", nil, strings.TrimSpace},
		{"ltrim", "LTrim", nil, func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) }},
		{"rtrim", "RTrim", nil, func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) }},
	}
	for _, u := range unary {
		r.MustRegister(&Descriptor{
			Name:        u.name,
			DisplayName: u.display,
			Aliases:     u.aliases,
			Args:        []ArgSpec{{Name: "str", Type: TextArg}},
			Returns:     "TEXT",
			ReturnType:  Fixed(types.Text),
			Eval:        textMapper(u.fn),
		})
	}

	r.MustRegister(&Descriptor{
		Name:        "concat",
		DisplayName: "Concat",
		Args: []ArgSpec{
			{Name: "first", Type: TextArg},
			{Name: "second", Type: TextArg},
		},
		Returns:    "TEXT",
		ReturnType: Fixed(types.Text),
		Eval:       evalConcat,
	})
}

// evalSubstring extracts code points from str. A 1-based start counts from
// the front, a negative start from the end, and 0 is the first code point.
// The begin offset is clamped to [0, n]; length, when given, is clamped so
// the result never runs past the end.
func evalSubstring(args []types.Value) (types.Value, error) {
	str := args[0].Data.(string)
	start, err := args[1].AsInt64()
	if err != nil {
		return types.Value{}, err
	}

	runes := []rune(str)
	n := int64(len(runes))
	begin := substringBegin(start, n)
	end := n

	if len(args) > 2 {
		length, err := args[2].AsInt64()
		if err != nil {
			return types.Value{}, err
		}
		if length < 0 {
			return types.Value{}, errors.NegativeLengthError("Substring", 2, length)
		}
		// Compared against the remaining count so begin+length cannot overflow.
		if length < n-begin {
			end = begin + length
		}
	}

	if begin == 0 && end == n {
		return types.NewTextValue(str), nil
	}
	return types.NewTextValue(string(runes[begin:end])), nil
}

func substringBegin(start, n int64) int64 {
	var begin int64
	switch {
	case start > 0:
		begin = start - 1
	case start < 0:
		begin = n + start
	}

	if begin < 0 {
		return 0
	}
	if begin > n {
		return n
	}
	return begin
}

func evalLength(args []types.Value) (types.Value, error) {
	str := args[0].Data.(string)
	n := utf8.RuneCountInString(str)
	if n > 1<<31-1 {
		return types.Value{}, errors.NumericOutOfRangeError("Length", n, types.Integer.Name())
	}
	return types.NewIntegerValue(int32(n)), nil // nolint:gosec // checked above
}

func textMapper(fn func(string) string) EvalFunc {
	return func(args []types.Value) (types.Value, error) {
		return types.NewTextValue(fn(args[0].Data.(string))), nil
	}
}

func evalConcat(args []types.Value) (types.Value, error) {
	var b strings.Builder
	for _, arg := range args {
		b.WriteString(arg.Data.(string))
	}
	return types.NewTextValue(b.String()), nil
}
