package source

import (
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/dshills/QuantaEval/internal/errors"
	"github.com/dshills/QuantaEval/internal/sql/types"
)

// toValue converts a Go value produced by a driver or decoder into a value of
// type dt. nil becomes NULL.
func toValue(dt types.DataType, raw interface{}) (types.Value, error) {
	if raw == nil {
		return types.NewNullValue(), nil
	}
	if p, ok := raw.(*interface{}); ok {
		return toValue(dt, *p)
	}

	switch dt.ID() {
	case types.TypeIDBigInt:
		n, err := toInt64(raw)
		if err != nil {
			return types.Value{}, err
		}
		return types.NewBigIntValue(n), nil
	case types.TypeIDInteger:
		n, err := toInt64(raw)
		if err != nil {
			return types.Value{}, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return types.Value{}, fmt.Errorf("value %d out of range for INTEGER", n)
		}
		return types.NewIntegerValue(int32(n)), nil
	case types.TypeIDDouble:
		switch v := raw.(type) {
		case float64:
			return types.NewDoubleValue(v), nil
		case float32:
			return types.NewDoubleValue(float64(v)), nil
		case []byte:
			f, err := strconv.ParseFloat(string(v), 64)
			if err != nil {
				return types.Value{}, err
			}
			return types.NewDoubleValue(f), nil
		}
		n, err := toInt64(raw)
		if err != nil {
			return types.Value{}, err
		}
		return types.NewDoubleValue(float64(n)), nil
	case types.TypeIDBoolean:
		switch v := raw.(type) {
		case bool:
			return types.NewBooleanValue(v), nil
		case []byte:
			b, err := strconv.ParseBool(string(v))
			if err != nil {
				return types.Value{}, err
			}
			return types.NewBooleanValue(b), nil
		}
		n, err := toInt64(raw)
		if err != nil {
			return types.Value{}, err
		}
		return types.NewBooleanValue(n != 0), nil
	case types.TypeIDText:
		var str string
		switch v := raw.(type) {
		case string:
			str = v
		case []byte:
			str = string(v)
		default:
			str = fmt.Sprint(raw)
		}
		// TEXT functions index code points; invalid bytes never enter a vector.
		if !utf8.ValidString(str) {
			return types.Value{}, errors.Newf(errors.KindInvalidArgument, errors.CharacterNotInRepertoire,
				"invalid byte sequence for encoding \"UTF8\": %q", str)
		}
		return types.NewTextValue(str), nil
	default:
		return types.Value{}, fmt.Errorf("no conversion to %s", dt.Name())
	}
}

func toInt64(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to an integer", raw)
	}
}
