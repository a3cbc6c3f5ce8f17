// Package source produces row batches for evaluation.
package source

import (
	"context"
	"fmt"
	"io"

	"github.com/dshills/QuantaEval/internal/sql/types"
	"github.com/dshills/QuantaEval/internal/sql/vector"
)

// Source yields batches conforming to a fixed schema. Next returns nil, io.EOF
// once the source is exhausted. Implementations are not safe for concurrent
// use.
type Source interface {
	Schema() *vector.Schema
	Next(ctx context.Context) (*vector.Batch, error)
	Close() error
}

// Memory serves batches held in memory.
type Memory struct {
	schema  *vector.Schema
	batches []*vector.Batch
	pos     int
}

// NewMemory creates a source over prebuilt batches. Every batch must conform
// to schema.
func NewMemory(schema *vector.Schema, batches ...*vector.Batch) (*Memory, error) {
	for i, b := range batches {
		if err := schema.Conforms(b); err != nil {
			return nil, fmt.Errorf("batch %d: %w", i, err)
		}
	}
	return &Memory{schema: schema, batches: batches}, nil
}

// FromRows splits rows into batches of batchSize and serves them.
func FromRows(schema *vector.Schema, batchSize int, rows ...types.Row) (*Memory, error) {
	rb := vector.NewRowBuilder(schema, batchSize)
	var batches []*vector.Batch
	for i, row := range rows {
		full, err := rb.Append(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if full {
			b, err := rb.Flush()
			if err != nil {
				return nil, err
			}
			batches = append(batches, b)
		}
	}
	if rb.Len() > 0 {
		b, err := rb.Flush()
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return &Memory{schema: schema, batches: batches}, nil
}

func (m *Memory) Schema() *vector.Schema { return m.schema }

func (m *Memory) Next(ctx context.Context) (*vector.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.pos >= len(m.batches) {
		return nil, io.EOF
	}
	b := m.batches[m.pos]
	m.pos++
	return b, nil
}

func (m *Memory) Close() error {
	m.batches = nil
	return nil
}

// ReadAll drains src. It does not close it.
func ReadAll(ctx context.Context, src Source) ([]*vector.Batch, error) {
	var out []*vector.Batch
	for {
		b, err := src.Next(ctx)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, b)
	}
}

// rowBatcher accumulates converted rows and hands back full batches. Sources
// that read row-at-a-time share it.
type rowBatcher struct {
	rb   *vector.RowBuilder
	rows int64
}

func newRowBatcher(schema *vector.Schema, size int) *rowBatcher {
	return &rowBatcher{rb: vector.NewRowBuilder(schema, size)}
}

func (b *rowBatcher) add(row types.Row) (*vector.Batch, error) {
	full, err := b.rb.Append(row)
	if err != nil {
		return nil, fmt.Errorf("row %d: %w", b.rows, err)
	}
	b.rows++
	if !full {
		return nil, nil
	}
	return b.rb.Flush()
}

// flush returns the trailing partial batch, or nil, io.EOF when none is pending.
func (b *rowBatcher) flush() (*vector.Batch, error) {
	if b.rb.Len() == 0 {
		return nil, io.EOF
	}
	return b.rb.Flush()
}
