package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind is the stable classification of an engine error. Callers match on it
// with errors.Is against the sentinel values below.
type Kind int

const (
	KindInternal Kind = iota
	KindMissingArgument
	KindTooManyArguments
	KindArgumentType
	KindUndefinedField
	KindFieldTypeMismatch
	KindUndefinedFunction
	KindInvalidArgument
	KindShapeMismatch
	KindDivisionByZero
	KindNumericOutOfRange
	KindChannelOutOfRange
	KindSyntax
)

var kindNames = map[Kind]string{
	KindInternal:          "internal",
	KindMissingArgument:   "missing_argument",
	KindTooManyArguments:  "too_many_arguments",
	KindArgumentType:      "argument_type",
	KindUndefinedField:    "undefined_field",
	KindFieldTypeMismatch: "field_type_mismatch",
	KindUndefinedFunction: "undefined_function",
	KindInvalidArgument:   "invalid_argument",
	KindShapeMismatch:     "shape_mismatch",
	KindDivisionByZero:    "division_by_zero",
	KindNumericOutOfRange: "numeric_out_of_range",
	KindChannelOutOfRange: "channel_out_of_range",
	KindSyntax:            "syntax",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinel errors, one per Kind.
var (
	ErrInternal          = &Error{Kind: KindInternal, Code: InternalError, Message: "internal error"}
	ErrMissingArgument   = &Error{Kind: KindMissingArgument, Code: UndefinedFunction, Message: "missing required argument"}
	ErrTooManyArguments  = &Error{Kind: KindTooManyArguments, Code: TooManyArguments, Message: "too many arguments"}
	ErrArgumentType      = &Error{Kind: KindArgumentType, Code: DatatypeMismatch, Message: "argument type mismatch"}
	ErrUndefinedField    = &Error{Kind: KindUndefinedField, Code: UndefinedColumn, Message: "undefined field"}
	ErrFieldTypeMismatch = &Error{Kind: KindFieldTypeMismatch, Code: DatatypeMismatch, Message: "field type mismatch"}
	ErrUndefinedFunction = &Error{Kind: KindUndefinedFunction, Code: UndefinedFunction, Message: "undefined function"}
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument, Code: InvalidParameterValue, Message: "invalid argument"}
	ErrShapeMismatch     = &Error{Kind: KindShapeMismatch, Code: DataException, Message: "shape mismatch"}
	ErrDivisionByZero    = &Error{Kind: KindDivisionByZero, Code: DivisionByZero, Message: "division by zero"}
	ErrNumericOutOfRange = &Error{Kind: KindNumericOutOfRange, Code: NumericValueOutOfRange, Message: "numeric value out of range"}
	ErrChannelOutOfRange = &Error{Kind: KindChannelOutOfRange, Code: InternalError, Message: "channel out of range"}
	ErrSyntax            = &Error{Kind: KindSyntax, Code: SyntaxError, Message: "syntax error"}
)

// Error is a SQLSTATE-coded engine error. Bind-time errors carry the function
// and argument they refer to; evaluation errors carry the offending value.
type Error struct {
	Kind     Kind   // Stable classification
	Code     string // SQLSTATE code
	Message  string // Primary error message
	Detail   string // Optional detailed error message
	Hint     string // Optional hint message
	Function string // Function name if applicable
	ArgIndex int    // 0-based argument position, -1 if not applicable
	ArgName  string // Argument name if applicable
	Field    string // Field (column) name if applicable
	Expected string // Expected type if applicable
	Actual   string // Actual type if applicable
	Value    any    // Offending value if applicable
	Position int    // Character position in expression text (0 if not applicable)
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	if e.Function != "" {
		b.WriteString(e.Function)
		if e.ArgName != "" {
			fmt.Fprintf(&b, "(%s)", e.ArgName)
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	fmt.Fprintf(&b, " (SQLSTATE %s)", e.Code)
	if e.Detail != "" {
		fmt.Fprintf(&b, " DETAIL: %s", e.Detail)
	}
	return b.String()
}

// Is matches errors of the same Kind, so errors.Is(err, ErrArgumentType)
// works for any argument type error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates a new Error with the given kind, code and message
func New(kind Kind, code string, message string) *Error {
	return &Error{
		Kind:     kind,
		Code:     code,
		Message:  message,
		ArgIndex: -1,
	}
}

// Newf creates a new Error with a formatted message
func Newf(kind Kind, code string, format string, args ...any) *Error {
	return New(kind, code, fmt.Sprintf(format, args...))
}

// WithCode overrides the SQLSTATE code
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithDetail adds detail to the error
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// WithDetailf adds formatted detail to the error
func (e *Error) WithDetailf(format string, args ...any) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithHint adds a hint to the error
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithFunction sets the function name
func (e *Error) WithFunction(name string) *Error {
	e.Function = name
	return e
}

// WithArgument sets the argument position and name
func (e *Error) WithArgument(index int, name string) *Error {
	e.ArgIndex = index
	e.ArgName = name
	return e
}

// WithField sets the field name
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithTypes sets the expected and actual type names
func (e *Error) WithTypes(expected, actual string) *Error {
	e.Expected = expected
	e.Actual = actual
	return e
}

// WithValue records the offending value
func (e *Error) WithValue(v any) *Error {
	e.Value = v
	return e
}

// WithPosition sets the expression text position
func (e *Error) WithPosition(pos int) *Error {
	e.Position = pos
	return e
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}
