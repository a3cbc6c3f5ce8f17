package evaluator

import (
	"log/slog"

	"github.com/dshills/QuantaEval/internal/errors"
	"github.com/dshills/QuantaEval/internal/log"
	"github.com/dshills/QuantaEval/internal/sql/expression"
	"github.com/dshills/QuantaEval/internal/sql/function"
	"github.com/dshills/QuantaEval/internal/sql/types"
)

// Binder compiles expression trees into evaluators. A Binder is immutable and
// safe for concurrent use.
type Binder struct {
	registry *function.Registry
	logger   log.Logger
}

// Option configures a Binder.
type Option func(*Binder)

// WithRegistry binds function calls against r instead of the built-ins.
func WithRegistry(r *function.Registry) Option {
	return func(b *Binder) {
		b.registry = r
	}
}

// WithLogger sets the logger used for binding diagnostics.
func WithLogger(l log.Logger) Option {
	return func(b *Binder) {
		b.logger = l
	}
}

// NewBinder creates a binder over the built-in functions.
func NewBinder(opts ...Option) *Binder {
	b := &Binder{
		registry: function.Builtins(),
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bind compiles node against layout. Calls whose arguments are all constant
// are evaluated once here and replaced by a Constant; an error from that
// evaluation is returned as the bind error. No evaluator is returned on error.
func (b *Binder) Bind(node expression.Node, layout Layout) (Evaluator, error) {
	v := &bindVisitor{binder: b, layout: layout}
	if err := node.Accept(v); err != nil {
		return nil, err
	}
	return v.result, nil
}

// bindVisitor binds a single node; function arguments get their own visitor.
type bindVisitor struct {
	binder *Binder
	layout Layout
	result Evaluator
}

func (v *bindVisitor) VisitLiteral(node *expression.Literal) error {
	dt := node.DataType()
	if dt == nil {
		return errors.New(errors.KindArgumentType, errors.IndeterminateDatatype,
			"literal has no type").WithValue(node.Value().Data)
	}
	if !dt.IsValid(node.Value()) {
		return errors.Newf(errors.KindArgumentType, errors.DatatypeMismatch,
			"literal %s is not a valid [%s]", node.String(), dt.Name()).
			WithTypes(dt.Name(), node.Value().Type().Name()).
			WithValue(node.Value().Data)
	}
	v.result = NewConstant(node.Value(), dt)
	return nil
}

func (v *bindVisitor) VisitFieldRef(node *expression.FieldRef) error {
	ch, ok := v.layout[node.Name()]
	if !ok {
		return errors.UndefinedFieldError(node.Name())
	}
	declared := node.DataType()
	if declared == nil || !types.Same(declared, ch.Type) {
		name := "?"
		if declared != nil {
			name = declared.Name()
		}
		return errors.FieldTypeMismatchError(node.Name(), name, ch.Type.Name())
	}

	ev, err := NewExtractor(ch.Index, ch.Type)
	if err != nil {
		if e, ok := errors.As(err); ok {
			e.WithField(node.Name())
		}
		return err
	}
	v.result = ev
	return nil
}

func (v *bindVisitor) VisitFunctionCall(node *expression.FunctionCall) error {
	desc, ok := v.binder.registry.Lookup(node.Name())
	if !ok {
		return errors.UndefinedFunctionError(node.Name())
	}
	fn := desc.DisplayName

	n := node.NumArgs()
	if n < desc.MinArgs() {
		return errors.MissingArgumentError(fn, n, desc.Args[n].Name)
	}
	if n > desc.MaxArgs() {
		return errors.TooManyArgumentsError(fn, desc.MaxArgs(), n)
	}

	for i := 0; i < n; i++ {
		spec := desc.Args[i]
		argType := node.Arg(i).DataType()
		if argType == nil {
			return errors.New(errors.KindArgumentType, errors.IndeterminateDatatype, "argument has no type").
				WithFunction(fn).
				WithArgument(i, spec.Name)
		}
		if !spec.Accepts(argType) {
			return errors.ArgumentTypeError(fn, i, spec.Name, spec.Type.Name, argType.Name())
		}
	}

	args := make([]Evaluator, n)
	argTypes := make([]types.DataType, n)
	constant := true
	for i := 0; i < n; i++ {
		sub := &bindVisitor{binder: v.binder, layout: v.layout}
		if err := node.Arg(i).Accept(sub); err != nil {
			return err
		}
		args[i] = sub.result
		argTypes[i] = sub.result.Type()
		if _, ok := sub.result.(*Constant); !ok {
			constant = false
		}
	}

	ret := desc.ReturnType(argTypes)
	declared := node.DataType()
	if types.IsNull(ret) && declared != nil {
		// An untyped NULL argument takes the call's declared type.
		ret = declared
	}
	if declared != nil && !types.Same(declared, ret) {
		return errors.ResultTypeMismatchError(fn, declared.Name(), ret.Name())
	}

	ev := newFunctionEvaluator(desc, args, ret)
	if !constant {
		v.result = ev
		return nil
	}
	return v.fold(ev)
}

// fold evaluates an all-constant call once and substitutes the result.
func (v *bindVisitor) fold(ev *FunctionEvaluator) error {
	debug := v.binder.logger.Enabled(slog.LevelDebug)

	value, err := ev.EvalRow(nil, 0)
	if err != nil {
		if debug {
			v.binder.logger.Debug("constant folding failed",
				log.String("evaluator", ev.String()),
				log.Err(err))
		}
		return err
	}

	folded := NewConstant(value, ev.Type())
	if debug {
		v.binder.logger.Debug("folded constant call",
			log.String("evaluator", ev.String()),
			log.String("result", folded.String()))
	}
	v.result = folded
	return nil
}
