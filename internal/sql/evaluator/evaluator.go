// Package evaluator compiles expression trees into channel-bound evaluators
// and runs them over row batches.
package evaluator

import (
	"fmt"

	"github.com/dshills/QuantaEval/internal/errors"
	"github.com/dshills/QuantaEval/internal/sql/types"
	"github.com/dshills/QuantaEval/internal/sql/vector"
)

// Evaluator computes one expression for a row of a batch. Evaluators hold no
// per-row state and may be shared between goroutines.
type Evaluator interface {
	// EvalRow returns the value for row, or a NULL value. An error aborts
	// evaluation of the whole batch.
	EvalRow(batch *vector.Batch, row int) (types.Value, error)
	// Type returns the result type.
	Type() types.DataType
	// String returns the canonical description, e.g. Text[channel=0].
	String() string
}

// Constant always returns the same value and ignores the batch.
type Constant struct {
	value types.Value
	typ   types.DataType
}

// NewConstant creates a constant evaluator.
func NewConstant(value types.Value, typ types.DataType) *Constant {
	return &Constant{value: value, typ: typ}
}

// Value returns the constant value.
func (c *Constant) Value() types.Value {
	return c.value
}

func (c *Constant) EvalRow(*vector.Batch, int) (types.Value, error) {
	return c.value, nil
}

func (c *Constant) Type() types.DataType {
	return c.typ
}

func (c *Constant) String() string {
	if c.value.IsNull() {
		return "Constant[NULL]"
	}
	if f, ok := c.value.Data.(float64); ok {
		return "Constant[" + types.FormatDouble(f) + "]"
	}
	return fmt.Sprintf("Constant[%v]", c.value.Data)
}

// channelRef resolves the vector an extractor reads from.
type channelRef struct {
	channel int
	typ     types.DataType
}

func (c channelRef) vector(batch *vector.Batch) (*vector.Vector, error) {
	v := batch.Vector(c.channel)
	if v == nil {
		return nil, errors.ChannelOutOfRangeError(c.channel, batch.Width())
	}
	if !types.Same(v.Type(), c.typ) {
		return nil, errors.ChannelTypeError(c.channel, c.typ.Name(), v.Type().Name())
	}
	return v, nil
}

// Channel returns the bound channel.
func (c channelRef) Channel() int {
	return c.channel
}

func (c channelRef) Type() types.DataType {
	return c.typ
}

// LongExtractor reads BIGINT values.
type LongExtractor struct{ channelRef }

func (e *LongExtractor) EvalRow(batch *vector.Batch, row int) (types.Value, error) {
	v, err := e.vector(batch)
	if err != nil || v.IsNull(row) {
		return types.NewNullValue(), err
	}
	return types.NewBigIntValue(v.Int64(row)), nil
}

func (e *LongExtractor) String() string {
	return fmt.Sprintf("Long[channel=%d]", e.channel)
}

// IntExtractor reads INTEGER values.
type IntExtractor struct{ channelRef }

func (e *IntExtractor) EvalRow(batch *vector.Batch, row int) (types.Value, error) {
	v, err := e.vector(batch)
	if err != nil || v.IsNull(row) {
		return types.NewNullValue(), err
	}
	return types.NewIntegerValue(v.Int32(row)), nil
}

func (e *IntExtractor) String() string {
	return fmt.Sprintf("Int[channel=%d]", e.channel)
}

// DoubleExtractor reads DOUBLE values.
type DoubleExtractor struct{ channelRef }

func (e *DoubleExtractor) EvalRow(batch *vector.Batch, row int) (types.Value, error) {
	v, err := e.vector(batch)
	if err != nil || v.IsNull(row) {
		return types.NewNullValue(), err
	}
	return types.NewDoubleValue(v.Float64(row)), nil
}

func (e *DoubleExtractor) String() string {
	return fmt.Sprintf("Double[channel=%d]", e.channel)
}

// BooleanExtractor reads BOOLEAN values.
type BooleanExtractor struct{ channelRef }

func (e *BooleanExtractor) EvalRow(batch *vector.Batch, row int) (types.Value, error) {
	v, err := e.vector(batch)
	if err != nil || v.IsNull(row) {
		return types.NewNullValue(), err
	}
	return types.NewBooleanValue(v.Bool(row)), nil
}

func (e *BooleanExtractor) String() string {
	return fmt.Sprintf("Boolean[channel=%d]", e.channel)
}

// TextExtractor reads TEXT values.
type TextExtractor struct{ channelRef }

func (e *TextExtractor) EvalRow(batch *vector.Batch, row int) (types.Value, error) {
	v, err := e.vector(batch)
	if err != nil || v.IsNull(row) {
		return types.NewNullValue(), err
	}
	return types.NewTextValue(v.Text(row)), nil
}

func (e *TextExtractor) String() string {
	return fmt.Sprintf("Text[channel=%d]", e.channel)
}

// NewExtractor returns the extractor for a column of type dt at channel.
func NewExtractor(channel int, dt types.DataType) (Evaluator, error) {
	if channel < 0 {
		return nil, errors.ChannelOutOfRangeError(channel, 0)
	}
	ref := channelRef{channel: channel, typ: dt}
	switch dt.ID() {
	case types.TypeIDBigInt:
		return &LongExtractor{ref}, nil
	case types.TypeIDInteger:
		return &IntExtractor{ref}, nil
	case types.TypeIDDouble:
		return &DoubleExtractor{ref}, nil
	case types.TypeIDBoolean:
		return &BooleanExtractor{ref}, nil
	case types.TypeIDText:
		return &TextExtractor{ref}, nil
	default:
		return nil, errors.Newf(errors.KindFieldTypeMismatch, errors.DatatypeMismatch,
			"no extractor for columns of type [%s]", dt.Name()).WithValue(channel)
	}
}
