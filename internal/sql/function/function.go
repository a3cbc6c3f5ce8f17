// Package function holds the scalar function registry: each function's
// argument specification, result type rule and row body.
package function

import (
	"fmt"
	"strings"

	"github.com/dshills/QuantaEval/internal/sql/types"
)

// Predicate decides whether an argument type is acceptable. Name is used in
// error messages ("must be [<Name>]").
type Predicate struct {
	Name    string
	Accepts func(types.DataType) bool
}

// Common argument predicates.
var (
	TextArg = Predicate{Name: "TEXT", Accepts: func(dt types.DataType) bool {
		return types.Same(dt, types.Text)
	}}
	IntegerArg = Predicate{Name: "INTEGER or BIGINT", Accepts: types.IsInteger}
	NumericArg = Predicate{Name: "INTEGER, BIGINT or DOUBLE", Accepts: types.IsNumeric}
)

// ArgSpec describes one formal argument.
type ArgSpec struct {
	Name     string
	Type     Predicate
	Optional bool
	// AbsentOnNull makes a NULL value behave as if the optional argument had
	// been omitted for that row instead of producing a NULL result.
	AbsentOnNull bool
}

// Accepts reports whether an argument of type dt satisfies the spec. The
// untyped NULL literal satisfies every predicate.
func (a ArgSpec) Accepts(dt types.DataType) bool {
	if types.IsNull(dt) {
		return true
	}
	return a.Type.Accepts(dt)
}

func (a ArgSpec) String() string {
	if a.Optional {
		return fmt.Sprintf("[%s %s]", a.Name, a.Type.Name)
	}
	return fmt.Sprintf("%s %s", a.Name, a.Type.Name)
}

// EvalFunc is a function body. It receives one value per supplied argument,
// never a NULL: the evaluator applies the null policy before calling it.
type EvalFunc func(args []types.Value) (types.Value, error)

// Descriptor bundles everything the binder needs to compile a call.
type Descriptor struct {
	// Name is the canonical lower-case name.
	Name string
	// DisplayName prefixes evaluator descriptions and error messages.
	DisplayName string
	Aliases     []string
	Args        []ArgSpec
	// Returns documents the result type for listings.
	Returns string
	// ReturnType computes the result type from the bound argument types.
	ReturnType func(args []types.DataType) types.DataType
	Eval       EvalFunc
}

// MinArgs returns the number of required arguments.
func (d *Descriptor) MinArgs() int {
	n := 0
	for _, a := range d.Args {
		if !a.Optional {
			n++
		}
	}
	return n
}

// MaxArgs returns the total number of formal arguments.
func (d *Descriptor) MaxArgs() int {
	return len(d.Args)
}

// Signature renders the descriptor for listings, e.g.
// substring(str TEXT, start INTEGER or BIGINT, [length INTEGER or BIGINT]) -> TEXT
func (d *Descriptor) Signature() string {
	args := make([]string, len(d.Args))
	for i, a := range d.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s) -> %s", d.Name, strings.Join(args, ", "), d.Returns)
}

// validate enforces the registration rules: a non-empty name, a body and a
// result rule, unique argument names, and at most one optional argument which
// must be the last one.
func (d *Descriptor) validate() error {
	if d.Name == "" {
		return fmt.Errorf("function descriptor has no name")
	}
	if d.Eval == nil {
		return fmt.Errorf("function %s has no body", d.Name)
	}
	if d.ReturnType == nil {
		return fmt.Errorf("function %s has no result type rule", d.Name)
	}

	seen := make(map[string]bool, len(d.Args))
	optional := 0
	for i, a := range d.Args {
		if a.Name == "" {
			return fmt.Errorf("function %s: argument %d has no name", d.Name, i+1)
		}
		if seen[a.Name] {
			return fmt.Errorf("function %s: duplicate argument name %q", d.Name, a.Name)
		}
		seen[a.Name] = true

		if a.Type.Accepts == nil {
			return fmt.Errorf("function %s: argument %s has no type predicate", d.Name, a.Name)
		}
		if a.AbsentOnNull && !a.Optional {
			return fmt.Errorf("function %s: required argument %s cannot be absent on null", d.Name, a.Name)
		}
		if a.Optional {
			optional++
			if i != len(d.Args)-1 {
				return fmt.Errorf("function %s: optional argument %s must be the last argument", d.Name, a.Name)
			}
		}
	}
	if optional > 1 {
		return fmt.Errorf("function %s: at most one optional argument is allowed", d.Name)
	}
	return nil
}

// SameAsArg returns a result rule yielding the type of argument i.
func SameAsArg(i int) func([]types.DataType) types.DataType {
	return func(args []types.DataType) types.DataType {
		return args[i]
	}
}

// Fixed returns a result rule yielding dt regardless of the arguments.
func Fixed(dt types.DataType) func([]types.DataType) types.DataType {
	return func([]types.DataType) types.DataType {
		return dt
	}
}
