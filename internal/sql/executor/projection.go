package executor

import (
	"fmt"

	"github.com/dshills/QuantaEval/internal/errors"
	"github.com/dshills/QuantaEval/internal/sql/evaluator"
	"github.com/dshills/QuantaEval/internal/sql/expression"
	"github.com/dshills/QuantaEval/internal/sql/vector"
)

// Projection computes one output column per evaluator. It holds no per-batch
// state and is safe for concurrent use.
type Projection struct {
	evaluators []evaluator.Evaluator
	schema     *vector.Schema
}

// NewProjection pairs output column names with compiled evaluators.
func NewProjection(names []string, evaluators []evaluator.Evaluator) (*Projection, error) {
	if len(names) != len(evaluators) {
		return nil, fmt.Errorf("projection has %d names for %d evaluators", len(names), len(evaluators))
	}
	fields := make([]vector.Field, len(names))
	for i, ev := range evaluators {
		if ev == nil {
			return nil, fmt.Errorf("projection column %s has no evaluator", names[i])
		}
		fields[i] = vector.Field{Name: names[i], Type: ev.Type()}
	}
	return &Projection{
		evaluators: append([]evaluator.Evaluator(nil), evaluators...),
		schema:     vector.NewSchema(fields...),
	}, nil
}

// Expr is a named expression to project.
type Expr struct {
	Name string
	Node expression.Node
}

// Compile binds exprs against layout through cache and builds the projection.
func Compile(cache *evaluator.Cache, layout evaluator.Layout, exprs ...Expr) (*Projection, error) {
	names := make([]string, len(exprs))
	evs := make([]evaluator.Evaluator, len(exprs))
	for i, e := range exprs {
		ev, err := cache.Bind(e.Node, layout)
		if err != nil {
			return nil, err
		}
		names[i] = e.Name
		evs[i] = ev
	}
	return NewProjection(names, evs)
}

// Schema describes the output batches.
func (p *Projection) Schema() *vector.Schema {
	return p.schema
}

// Evaluators returns the compiled evaluators in output order.
func (p *Projection) Evaluators() []evaluator.Evaluator {
	return append([]evaluator.Evaluator(nil), p.evaluators...)
}

// Apply evaluates every column over batch. An error from any column aborts
// the whole batch.
func (p *Projection) Apply(batch *vector.Batch) (*vector.Batch, error) {
	out := make([]*vector.Vector, len(p.evaluators))
	for i, ev := range p.evaluators {
		v, err := evaluator.Compute(ev, batch)
		if err != nil {
			if e, ok := errors.As(err); ok && e.Field == "" {
				e.WithField(p.schema.Fields[i].Name)
			}
			return nil, err
		}
		out[i] = v
	}
	if len(out) == 0 {
		return vector.EmptyBatch(batch.RowCount()), nil
	}
	return vector.NewBatch(out...)
}
