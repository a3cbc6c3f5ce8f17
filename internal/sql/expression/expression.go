// Package expression defines the typed expression trees handed to the binder.
// Nodes are immutable once constructed and never refer back to their parents.
package expression

import (
	"fmt"
	"strings"

	"github.com/dshills/QuantaEval/internal/sql/types"
)

// Node is one node of an expression tree.
type Node interface {
	// String returns a SQL-like rendering of the subtree.
	String() string
	// DataType returns the resolved type of the node.
	DataType() types.DataType
	// Accept dispatches to the matching visitor method.
	Accept(visitor Visitor) error
}

// Visitor visits expression nodes.
type Visitor interface {
	VisitLiteral(node *Literal) error
	VisitFieldRef(node *FieldRef) error
	VisitFunctionCall(node *FunctionCall) error
}

// Literal is a constant value.
type Literal struct {
	value types.Value
	typ   types.DataType
}

// NewLiteral creates a literal of the given type.
func NewLiteral(value types.Value, typ types.DataType) *Literal {
	return &Literal{value: value, typ: typ}
}

// LiteralOf creates a literal whose type is inferred from the value.
func LiteralOf(value types.Value) *Literal {
	return &Literal{value: value, typ: value.Type()}
}

// NullLiteral creates an untyped NULL literal.
func NullLiteral() *Literal {
	return &Literal{value: types.NewNullValue(), typ: types.Null}
}

// Value returns the literal value.
func (l *Literal) Value() types.Value {
	return l.value
}

func (l *Literal) String() string {
	if l.value.IsNull() {
		return "NULL"
	}

	switch v := l.value.Data.(type) {
	case string:
		return fmt.Sprintf("'%s'", strings.ReplaceAll(v, "'", "''"))
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return types.FormatDouble(v)
	default:
		return fmt.Sprintf("%v", l.value.Data)
	}
}

func (l *Literal) DataType() types.DataType {
	return l.typ
}

func (l *Literal) Accept(visitor Visitor) error {
	return visitor.VisitLiteral(l)
}

// FieldRef references a named field of the input batch.
type FieldRef struct {
	name string
	typ  types.DataType
}

// NewFieldRef creates a reference to the named field with its declared type.
func NewFieldRef(name string, typ types.DataType) *FieldRef {
	return &FieldRef{name: name, typ: typ}
}

// Name returns the referenced field name.
func (f *FieldRef) Name() string {
	return f.name
}

func (f *FieldRef) String() string {
	return f.name
}

func (f *FieldRef) DataType() types.DataType {
	return f.typ
}

func (f *FieldRef) Accept(visitor Visitor) error {
	return visitor.VisitFieldRef(f)
}

// FunctionCall applies a scalar function to ordered arguments.
type FunctionCall struct {
	name string
	args []Node
	typ  types.DataType
}

// NewFunctionCall creates a call of name returning typ. The argument slice is
// copied.
func NewFunctionCall(name string, typ types.DataType, args ...Node) *FunctionCall {
	owned := make([]Node, len(args))
	copy(owned, args)
	return &FunctionCall{name: name, args: owned, typ: typ}
}

// Name returns the function name as written.
func (f *FunctionCall) Name() string {
	return f.name
}

// Args returns a copy of the arguments.
func (f *FunctionCall) Args() []Node {
	out := make([]Node, len(f.args))
	copy(out, f.args)
	return out
}

// NumArgs returns the number of arguments.
func (f *FunctionCall) NumArgs() int {
	return len(f.args)
}

// Arg returns the i-th argument.
func (f *FunctionCall) Arg(i int) Node {
	return f.args[i]
}

func (f *FunctionCall) String() string {
	argStrs := make([]string, len(f.args))
	for i, arg := range f.args {
		argStrs[i] = arg.String()
	}
	return fmt.Sprintf("%s(%s)", f.name, strings.Join(argStrs, ", "))
}

func (f *FunctionCall) DataType() types.DataType {
	return f.typ
}

func (f *FunctionCall) Accept(visitor Visitor) error {
	return visitor.VisitFunctionCall(f)
}
