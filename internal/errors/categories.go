package errors

// Category-specific error constructors

// Binder errors

func MissingArgumentError(function string, index int, name string) *Error {
	return Newf(KindMissingArgument, UndefinedFunction,
		"missing required argument [%s] at position %d", name, index+1).
		WithFunction(function).
		WithArgument(index, name)
}

func TooManyArgumentsError(function string, max, actual int) *Error {
	return Newf(KindTooManyArguments, TooManyArguments,
		"expected at most %d arguments, found %d", max, actual).
		WithFunction(function).
		WithArgument(max, "").
		WithValue(actual)
}

func ArgumentTypeError(function string, index int, name, expected, actual string) *Error {
	return Newf(KindArgumentType, DatatypeMismatch,
		"argument [%s] at position %d must be [%s], found [%s]", name, index+1, expected, actual).
		WithFunction(function).
		WithArgument(index, name).
		WithTypes(expected, actual)
}

func UndefinedFieldError(field string) *Error {
	return Newf(KindUndefinedField, UndefinedColumn, "field \"%s\" does not exist", field).
		WithField(field)
}

func FieldTypeMismatchError(field, expected, actual string) *Error {
	return Newf(KindFieldTypeMismatch, DatatypeMismatch,
		"field \"%s\" is declared as [%s] but bound to a [%s] column", field, expected, actual).
		WithField(field).
		WithTypes(expected, actual)
}

func UndefinedFunctionError(function string) *Error {
	return Newf(KindUndefinedFunction, UndefinedFunction, "function %s does not exist", function).
		WithFunction(function)
}

func ResultTypeMismatchError(function, declared, returned string) *Error {
	return Newf(KindArgumentType, DatatypeMismatch,
		"result declared as [%s] but function returns [%s]", declared, returned).
		WithFunction(function).
		WithTypes(returned, declared)
}

// Evaluation errors

func NegativeLengthError(function string, index int, length int64) *Error {
	return Newf(KindInvalidArgument, SubstringError,
		"Length parameter cannot be negative, found [%d]", length).
		WithFunction(function).
		WithArgument(index, "length").
		WithValue(length)
}

func InvalidArgumentError(function string, index int, name string, value any, reason string) *Error {
	return Newf(KindInvalidArgument, InvalidParameterValue, "%s, found [%v]", reason, value).
		WithFunction(function).
		WithArgument(index, name).
		WithValue(value)
}

func DivisionByZeroError(function string, index int, name string) *Error {
	return New(KindDivisionByZero, DivisionByZero, "division by zero").
		WithFunction(function).
		WithArgument(index, name).
		WithValue(0)
}

func NumericOutOfRangeError(function string, value any, typeName string) *Error {
	return Newf(KindNumericOutOfRange, NumericValueOutOfRange, "value [%v] out of range for [%s]", value, typeName).
		WithFunction(function).
		WithValue(value)
}

func ChannelOutOfRangeError(channel, width int) *Error {
	return Newf(KindChannelOutOfRange, InternalError, "channel %d out of range for batch of %d columns", channel, width).
		WithValue(channel)
}

func ChannelTypeError(channel int, expected, actual string) *Error {
	return Newf(KindFieldTypeMismatch, DatatypeMismatch,
		"channel %d expected [%s] vector, found [%s]", channel, expected, actual).
		WithTypes(expected, actual).
		WithValue(channel)
}

// Batch construction errors

func ShapeMismatchError(channel, expected, actual int) *Error {
	return Newf(KindShapeMismatch, DataException,
		"vector at channel %d has %d rows, batch has %d", channel, actual, expected).
		WithValue(actual)
}

// Frontend errors

func SyntaxErrorf(position int, format string, args ...any) *Error {
	return Newf(KindSyntax, SyntaxError, format, args...).WithPosition(position)
}
