package errors

// PostgreSQL Error Codes (SQLSTATE) used by the evaluation engine.
// Based on PostgreSQL error codes: https://www.postgresql.org/docs/current/errcodes-appendix.html

// Class 0A - Feature Not Supported
const (
	FeatureNotSupported = "0A000"
)

// Class 22 - Data Exception
const (
	DataException             = "22000"
	NumericValueOutOfRange    = "22003"
	SubstringError            = "22011"
	DivisionByZero            = "22012"
	CharacterNotInRepertoire  = "22021"
	InvalidParameterValue     = "22023"
	InvalidArgumentForPower   = "2201F"
	InvalidTextRepresentation = "22P02"
)

// Class 42 - Syntax Error or Access Rule Violation
const (
	SyntaxError           = "42601"
	DatatypeMismatch      = "42804"
	IndeterminateDatatype = "42P18"
	UndefinedColumn       = "42703"
	UndefinedFunction     = "42883"
)

// Class 54 - Program Limit Exceeded
const (
	TooManyArguments = "54023"
)

// Class XX - Internal Error
const (
	InternalError = "XX000"
	DataCorrupted = "XX001"
)

// IsDataException reports whether the code belongs to class 22.
func IsDataException(code string) bool {
	return len(code) == 5 && code[:2] == "22"
}

// IsBindError reports whether the code is raised while compiling an expression.
func IsBindError(code string) bool {
	if len(code) != 5 {
		return false
	}
	switch code[:2] {
	case "42", "54":
		return true
	}
	return false
}
