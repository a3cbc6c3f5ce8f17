package evaluator

import (
	"strings"

	"github.com/dshills/QuantaEval/internal/errors"
	"github.com/dshills/QuantaEval/internal/sql/function"
	"github.com/dshills/QuantaEval/internal/sql/types"
	"github.com/dshills/QuantaEval/internal/sql/vector"
)

// FunctionEvaluator applies a registered function to bound arguments.
//
// Null policy: a NULL in a required argument yields NULL without running the
// body. A NULL optional argument does the same unless it is declared
// AbsentOnNull, in which case the body runs as if it had been omitted.
type FunctionEvaluator struct {
	desc *function.Descriptor
	args []Evaluator
	typ  types.DataType
}

func newFunctionEvaluator(desc *function.Descriptor, args []Evaluator, typ types.DataType) *FunctionEvaluator {
	return &FunctionEvaluator{desc: desc, args: args, typ: typ}
}

// Descriptor returns the function being applied.
func (f *FunctionEvaluator) Descriptor() *function.Descriptor {
	return f.desc
}

// Args returns the bound argument evaluators.
func (f *FunctionEvaluator) Args() []Evaluator {
	out := make([]Evaluator, len(f.args))
	copy(out, f.args)
	return out
}

func (f *FunctionEvaluator) EvalRow(batch *vector.Batch, row int) (types.Value, error) {
	values := make([]types.Value, 0, len(f.args))
	for i, arg := range f.args {
		v, err := arg.EvalRow(batch, row)
		if err != nil {
			return types.Value{}, err
		}
		if v.IsNull() {
			if f.desc.Args[i].AbsentOnNull {
				// Only the trailing argument may be optional, so nothing follows.
				break
			}
			return types.NewNullValue(), nil
		}
		values = append(values, v)
	}

	result, err := f.desc.Eval(values)
	if err != nil {
		if _, ok := errors.As(err); !ok {
			err = errors.New(errors.KindInternal, errors.InternalError, err.Error()).
				WithFunction(f.desc.DisplayName)
		}
		return types.Value{}, err
	}
	if !result.IsNull() && !types.Same(result.Type(), f.typ) {
		return types.Value{}, errors.ResultTypeMismatchError(f.desc.DisplayName, f.typ.Name(), result.Type().Name())
	}
	return result, nil
}

func (f *FunctionEvaluator) Type() types.DataType {
	return f.typ
}

// String renders Name[arg=desc, ...]. Omitted optional arguments do not
// appear.
func (f *FunctionEvaluator) String() string {
	var b strings.Builder
	b.WriteString(f.desc.DisplayName)
	b.WriteByte('[')
	for i, arg := range f.args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.desc.Args[i].Name)
		b.WriteByte('=')
		b.WriteString(arg.String())
	}
	b.WriteByte(']')
	return b.String()
}
