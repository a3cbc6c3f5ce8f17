package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/QuantaEval/internal/sql/types"
)

type countingVisitor struct {
	literals, fields, calls int
}

func (v *countingVisitor) VisitLiteral(*Literal) error           { v.literals++; return nil }
func (v *countingVisitor) VisitFieldRef(*FieldRef) error         { v.fields++; return nil }
func (v *countingVisitor) VisitFunctionCall(*FunctionCall) error { v.calls++; return nil }

func substringCall() *FunctionCall {
	return NewFunctionCall("substring", types.Text,
		NewFieldRef("s", types.Text),
		LiteralOf(types.NewIntegerValue(3)),
		NullLiteral(),
	)
}

func TestString(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"text literal", LiteralOf(types.NewTextValue("it's")), "'it''s'"},
		{"bool literal", LiteralOf(types.NewBooleanValue(true)), "TRUE"},
		{"double literal", LiteralOf(types.NewDoubleValue(0.5)), "0.5"},
		{"null literal", NullLiteral(), "NULL"},
		{"field", NewFieldRef("name", types.Text), "name"},
		{"call", substringCall(), "substring(s, 3, NULL)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.node.String())
		})
	}
}

func TestDataTypes(t *testing.T) {
	assert.Same(t, types.Integer, LiteralOf(types.NewIntegerValue(1)).DataType())
	assert.Same(t, types.BigInt, NewLiteral(types.NewNullValue(), types.BigInt).DataType())
	assert.Same(t, types.Null, NullLiteral().DataType())
	assert.Same(t, types.Text, substringCall().DataType())
}

func TestFunctionCallIsImmutable(t *testing.T) {
	args := []Node{NewFieldRef("s", types.Text)}
	call := NewFunctionCall("upper", types.Text, args...)

	args[0] = NullLiteral()
	assert.Equal(t, "upper(s)", call.String())

	got := call.Args()
	got[0] = NullLiteral()
	assert.Equal(t, "upper(s)", call.String())
	assert.Equal(t, 1, call.NumArgs())
	assert.Equal(t, "s", call.Arg(0).String())
}

func TestAccept(t *testing.T) {
	v := &countingVisitor{}
	Walk(substringCall(), func(n Node) bool {
		require.NoError(t, n.Accept(v))
		return true
	})
	assert.Equal(t, 2, v.literals)
	assert.Equal(t, 1, v.fields)
	assert.Equal(t, 1, v.calls)
}

func TestWalkSkipsChildren(t *testing.T) {
	outer := NewFunctionCall("upper", types.Text, substringCall())
	visited := 0
	Walk(outer, func(n Node) bool {
		visited++
		_, isCall := n.(*FunctionCall)
		return !isCall || n == Node(outer)
	})
	assert.Equal(t, 2, visited)
}

func TestFieldNames(t *testing.T) {
	call := NewFunctionCall("concat", types.Text,
		NewFieldRef("b", types.Text),
		NewFunctionCall("upper", types.Text, NewFieldRef("a", types.Text)),
		NewFieldRef("b", types.Text),
	)
	assert.Equal(t, []string{"a", "b"}, FieldNames(call))
	assert.False(t, IsConstant(call))

	constant := NewFunctionCall("upper", types.Text, LiteralOf(types.NewTextValue("x")))
	assert.Empty(t, FieldNames(constant))
	assert.True(t, IsConstant(constant))
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t,
		`substring("s"::TEXT, 3::INTEGER, NULL::NULL)::TEXT`,
		Fingerprint(substringCall()))

	asInt := NewFunctionCall("abs", types.Integer, LiteralOf(types.NewIntegerValue(3)))
	asLong := NewFunctionCall("ABS", types.BigInt, LiteralOf(types.NewBigIntValue(3)))
	assert.Equal(t, asInt.String(), NewFunctionCall("abs", types.BigInt, LiteralOf(types.NewBigIntValue(3))).String())
	assert.NotEqual(t, Fingerprint(asInt), Fingerprint(asLong))
	assert.Equal(t, "abs(3::BIGINT)::BIGINT", Fingerprint(asLong))

	untyped := NewFunctionCall("upper", nil, NewFieldRef(`a"b`, types.Text))
	assert.Equal(t, `upper("a""b"::TEXT)::?`, Fingerprint(untyped))
}
