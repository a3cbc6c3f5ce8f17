package vector

import (
	"fmt"
	"strings"

	"github.com/dshills/QuantaEval/internal/errors"
	"github.com/dshills/QuantaEval/internal/sql/types"
)

// Batch is an ordered set of equally long vectors. The position of a vector
// is its channel.
type Batch struct {
	vectors []*Vector
	rows    int
}

// NewBatch creates a batch from vectors. All vectors must have the same
// length.
func NewBatch(vectors ...*Vector) (*Batch, error) {
	b := &Batch{vectors: make([]*Vector, len(vectors))}
	copy(b.vectors, vectors)

	for i, v := range b.vectors {
		if v == nil {
			return nil, fmt.Errorf("vector at channel %d is nil", i)
		}
		if i == 0 {
			b.rows = v.Len()
			continue
		}
		if v.Len() != b.rows {
			return nil, errors.ShapeMismatchError(i, b.rows, v.Len())
		}
	}
	return b, nil
}

// EmptyBatch returns a batch with no columns and the given row count. It is
// used when every expression is constant.
func EmptyBatch(rows int) *Batch {
	return &Batch{rows: rows}
}

// RowCount returns the number of rows shared by every vector.
func (b *Batch) RowCount() int {
	return b.rows
}

// Width returns the number of channels.
func (b *Batch) Width() int {
	return len(b.vectors)
}

// Vector returns the vector at channel, or nil when out of range.
func (b *Batch) Vector(channel int) *Vector {
	if channel < 0 || channel >= len(b.vectors) {
		return nil
	}
	return b.vectors[channel]
}

// Row materializes one row across all channels.
func (b *Batch) Row(row int) types.Row {
	values := make([]types.Value, len(b.vectors))
	for i, v := range b.vectors {
		values[i] = v.Get(row)
	}
	return types.NewRow(values...)
}

// Field describes one channel of a batch.
type Field struct {
	Name string
	Type types.DataType
}

// Schema describes the channels of the batches a source produces.
type Schema struct {
	Fields []Field
}

// NewSchema creates a schema from fields.
func NewSchema(fields ...Field) *Schema {
	return &Schema{Fields: fields}
}

// Index returns the channel of the named field, or -1.
func (s *Schema) Index(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	return len(s.Fields)
}

// Conforms checks that batch has one vector per field with matching types.
func (s *Schema) Conforms(batch *Batch) error {
	if batch.Width() != len(s.Fields) {
		return fmt.Errorf("batch has %d columns, schema has %d", batch.Width(), len(s.Fields))
	}
	for i, f := range s.Fields {
		if got := batch.Vector(i).Type(); !types.Same(got, f.Type) {
			return errors.ChannelTypeError(i, f.Type.Name(), got.Name()).WithField(f.Name)
		}
	}
	return nil
}

func (s *Schema) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.Name + " " + f.Type.Name()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// RowBuilder turns rows into batches of at most size rows.
type RowBuilder struct {
	schema   *Schema
	size     int
	builders []*Builder
}

// NewRowBuilder creates a RowBuilder for schema. size <= 0 selects
// DefaultBatchSize.
func NewRowBuilder(schema *Schema, size int) *RowBuilder {
	if size <= 0 {
		size = DefaultBatchSize
	}
	rb := &RowBuilder{schema: schema, size: size, builders: make([]*Builder, len(schema.Fields))}
	for i, f := range schema.Fields {
		rb.builders[i] = NewBuilder(f.Type, size)
	}
	return rb
}

// Append adds one row. It reports whether the batch is full.
func (rb *RowBuilder) Append(row types.Row) (bool, error) {
	if len(row.Values) != len(rb.builders) {
		return false, fmt.Errorf("row has %d values, schema has %d", len(row.Values), len(rb.builders))
	}
	for i, val := range row.Values {
		if !val.IsNull() && !types.Same(val.Type(), rb.builders[i].Type()) {
			return false, fmt.Errorf("column %s: cannot append %s to %s vector",
				rb.schema.Fields[i].Name, val.Type().Name(), rb.builders[i].Type().Name())
		}
	}
	for i, val := range row.Values {
		if err := rb.builders[i].AppendValue(val); err != nil {
			return false, fmt.Errorf("column %s: %w", rb.schema.Fields[i].Name, err)
		}
	}
	return rb.Len() >= rb.size, nil
}

// Len returns the number of rows pending.
func (rb *RowBuilder) Len() int {
	if len(rb.builders) == 0 {
		return 0
	}
	return rb.builders[0].Len()
}

// Flush builds the pending rows into a batch and resets the builder.
func (rb *RowBuilder) Flush() (*Batch, error) {
	vectors := make([]*Vector, len(rb.builders))
	for i, b := range rb.builders {
		vectors[i] = b.Build()
	}
	return NewBatch(vectors...)
}
