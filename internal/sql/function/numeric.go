package function

import (
	"math"

	"github.com/dshills/QuantaEval/internal/errors"
	"github.com/dshills/QuantaEval/internal/sql/types"
)

func registerNumericFunctions(r *Registry) {
	r.MustRegister(&Descriptor{
		Name:        "abs",
		DisplayName: "Abs",
		Args:        []ArgSpec{{Name: "value", Type: NumericArg}},
		Returns:     "type of value",
		ReturnType:  SameAsArg(0),
		Eval:        evalAbs,
	})

	r.MustRegister(&Descriptor{
		Name:        "mod",
		DisplayName: "Mod",
		Args: []ArgSpec{
			{Name: "dividend", Type: IntegerArg},
			{Name: "divisor", Type: IntegerArg},
		},
		Returns:    "BIGINT if either argument is BIGINT, else INTEGER",
		ReturnType: widerInteger,
		Eval:       evalMod,
	})

	r.MustRegister(&Descriptor{
		Name:        "round",
		DisplayName: "Round",
		Args: []ArgSpec{
			{Name: "value", Type: NumericArg},
			{Name: "precision", Type: IntegerArg, Optional: true},
		},
		Returns:    "type of value",
		ReturnType: SameAsArg(0),
		Eval:       evalRound,
	})

	r.MustRegister(&Descriptor{
		Name:        "sqrt",
		DisplayName: "Sqrt",
		Args:        []ArgSpec{{Name: "value", Type: NumericArg}},
		Returns:     "DOUBLE",
		ReturnType:  Fixed(types.Double),
		Eval:        evalSqrt,
	})
}

func widerInteger(args []types.DataType) types.DataType {
	for _, dt := range args {
		if types.Same(dt, types.BigInt) {
			return types.BigInt
		}
	}
	return types.Integer
}

func evalAbs(args []types.Value) (types.Value, error) {
	switch v := args[0].Data.(type) {
	case int64:
		if v == math.MinInt64 {
			return types.Value{}, errors.NumericOutOfRangeError("Abs", v, types.BigInt.Name())
		}
		if v < 0 {
			v = -v
		}
		return types.NewBigIntValue(v), nil
	case int32:
		if v == math.MinInt32 {
			return types.Value{}, errors.NumericOutOfRangeError("Abs", v, types.Integer.Name())
		}
		if v < 0 {
			v = -v
		}
		return types.NewIntegerValue(v), nil
	case float64:
		return types.NewDoubleValue(math.Abs(v)), nil
	default:
		return types.Value{}, errors.Newf(errors.KindInternal, errors.InternalError, "abs: unexpected %T", v)
	}
}

func evalMod(args []types.Value) (types.Value, error) {
	dividend, err := args[0].AsInt64()
	if err != nil {
		return types.Value{}, err
	}
	divisor, err := args[1].AsInt64()
	if err != nil {
		return types.Value{}, err
	}
	if divisor == 0 {
		return types.Value{}, errors.DivisionByZeroError("Mod", 1, "divisor")
	}

	// MinInt64 % -1 is 0 in Go, matching SQL.
	r := dividend % divisor

	_, wide0 := args[0].Data.(int64)
	_, wide1 := args[1].Data.(int64)
	if wide0 || wide1 {
		return types.NewBigIntValue(r), nil
	}
	return types.NewIntegerValue(int32(r)), nil // nolint:gosec // |r| < |divisor| <= MaxInt32+1
}

// evalRound rounds half away from zero. A negative precision rounds to tens,
// hundreds and so on; integers are unchanged for precision >= 0.
func evalRound(args []types.Value) (types.Value, error) {
	var precision int64
	if len(args) > 1 {
		p, err := args[1].AsInt64()
		if err != nil {
			return types.Value{}, err
		}
		precision = p
	}

	switch v := args[0].Data.(type) {
	case float64:
		return types.NewDoubleValue(roundDouble(v, precision)), nil
	case int64:
		r, ok := roundInt(v, precision)
		if !ok {
			return types.Value{}, errors.NumericOutOfRangeError("Round", v, types.BigInt.Name())
		}
		return types.NewBigIntValue(r), nil
	case int32:
		r, ok := roundInt(int64(v), precision)
		if !ok || r > math.MaxInt32 || r < math.MinInt32 {
			return types.Value{}, errors.NumericOutOfRangeError("Round", v, types.Integer.Name())
		}
		return types.NewIntegerValue(int32(r)), nil
	default:
		return types.Value{}, errors.Newf(errors.KindInternal, errors.InternalError, "round: unexpected %T", v)
	}
}

func roundDouble(v float64, precision int64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	if precision < 0 {
		div := math.Pow(10, float64(-precision))
		if math.IsInf(div, 0) {
			return math.Copysign(0, v)
		}
		return math.Round(v/div) * div
	}
	mult := math.Pow(10, float64(precision))
	scaled := v * mult
	if math.IsInf(mult, 0) || math.IsInf(scaled, 0) {
		return v
	}
	return math.Round(scaled) / mult
}

// roundInt rounds v to a multiple of 10^-precision. ok is false on overflow.
func roundInt(v int64, precision int64) (int64, bool) {
	if precision >= 0 {
		return v, true
	}
	if precision < -18 {
		// 10^19 exceeds int64; anything at least half of it would round up to it.
		if v >= 5e18 || v <= -5e18 {
			return 0, false
		}
		return 0, true
	}

	pow := int64(1)
	for i := int64(0); i < -precision; i++ {
		pow *= 10
	}

	q, rem := v/pow, v%pow
	if rem < 0 {
		rem = -rem
	}
	if rem >= pow-rem {
		if v < 0 {
			q--
		} else {
			q++
		}
	}

	r := q * pow
	if q != 0 && r/pow != q {
		return 0, false
	}
	return r, true
}

func evalSqrt(args []types.Value) (types.Value, error) {
	v, err := args[0].AsDouble()
	if err != nil {
		return types.Value{}, err
	}
	if v < 0 {
		return types.Value{}, errors.InvalidArgumentError("Sqrt", 0, "value", args[0].Data,
			"cannot take square root of a negative number").WithCode(errors.InvalidArgumentForPower)
	}
	return types.NewDoubleValue(math.Sqrt(v)), nil
}
