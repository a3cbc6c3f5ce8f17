package evaluator

import (
	"github.com/dshills/QuantaEval/internal/errors"
	"github.com/dshills/QuantaEval/internal/sql/vector"
)

// Compute evaluates ev for every row of batch and returns a vector of ev's
// type with the same row count. The first row error aborts the batch.
func Compute(ev Evaluator, batch *vector.Batch) (*vector.Vector, error) {
	rows := batch.RowCount()

	if c, ok := ev.(*Constant); ok {
		return vector.Repeat(c.Type(), c.Value(), rows)
	}

	b := vector.NewBuilder(ev.Type(), rows)
	for row := 0; row < rows; row++ {
		v, err := ev.EvalRow(batch, row)
		if err != nil {
			if e, ok := errors.As(err); ok && e.Detail == "" {
				e.WithDetailf("row %d", row)
			}
			return nil, err
		}
		if err := b.AppendValue(v); err != nil {
			return nil, errors.Newf(errors.KindInternal, errors.InternalError,
				"%s produced a value of the wrong type: %v", ev.String(), err)
		}
	}
	return b.Build(), nil
}
