package source

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dshills/QuantaEval/internal/codec"
	"github.com/dshills/QuantaEval/internal/sql/vector"
)

// Frames reads batches written by codec.Encoder. The schema is taken from the
// first frame; every later frame must match it.
type Frames struct {
	dec     *codec.Decoder
	closer  io.Closer
	schema  *vector.Schema
	pending *vector.Batch
}

// OpenFrames opens an encoded batch file.
func OpenFrames(path string) (*Frames, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	src, err := NewFrames(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	src.closer = f
	return src, nil
}

// NewFrames reads frames from r. An empty stream is an error because it has
// no schema.
func NewFrames(r io.Reader) (*Frames, error) {
	dec := codec.NewDecoder(r)
	schema, first, err := dec.Decode()
	if err == io.EOF {
		return nil, fmt.Errorf("no batches in stream")
	}
	if err != nil {
		return nil, err
	}
	return &Frames{dec: dec, schema: schema, pending: first}, nil
}

func (f *Frames) Schema() *vector.Schema { return f.schema }

func (f *Frames) Next(ctx context.Context) (*vector.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b := f.pending; b != nil {
		f.pending = nil
		return b, nil
	}
	schema, b, err := f.dec.Decode()
	if err != nil {
		return nil, err
	}
	if schema.String() != f.schema.String() {
		return nil, fmt.Errorf("frame schema %s differs from %s", schema, f.schema)
	}
	return b, nil
}

func (f *Frames) Close() error {
	f.dec.Close()
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}
