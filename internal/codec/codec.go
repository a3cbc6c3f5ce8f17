// Package codec serializes row batches into compressed, self-describing frames.
//
// A frame is
//
//	magic "QEB1" | compression byte | uvarint payload length | uvarint stored length | stored bytes
//
// and the uncompressed payload is
//
//	uvarint columns | uvarint rows | per column:
//	  uvarint name length | name | type ID byte |
//	  uvarint bitmap length | roaring null bitmap |
//	  per non-null row: uvarint value length | DataType.Serialize bytes
package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/dshills/QuantaEval/internal/errors"
	"github.com/dshills/QuantaEval/internal/sql/types"
	"github.com/dshills/QuantaEval/internal/sql/vector"
)

// Magic starts every frame.
var Magic = [4]byte{'Q', 'E', 'B', '1'}

// MaxPayloadSize bounds a single frame's uncompressed payload.
const MaxPayloadSize = 1 << 30

// MaxRows bounds the rows of one frame. It matches the largest engine batch.
const MaxRows = 1 << 20

// MaxCells bounds columns times rows of one frame. All-NULL columns cost a
// few payload bytes but a full vector once decoded.
const MaxCells = 1 << 24

var errIncompressible = stderrors.New("input is incompressible")

// Encoder writes frames to an underlying writer.
type Encoder struct {
	w          io.Writer
	compressor Compressor
	stats      CompressionStats
}

// NewEncoder creates an encoder compressing payloads with c.
func NewEncoder(w io.Writer, c CompressionType) (*Encoder, error) {
	comp, err := NewCompressor(c)
	if err != nil {
		return nil, err
	}
	return &Encoder{w: w, compressor: comp}, nil
}

// Stats returns the encoder's compression counters.
func (e *Encoder) Stats() *CompressionStats {
	return &e.stats
}

// Encode writes batch, whose columns are described by schema, as one frame.
func (e *Encoder) Encode(schema *vector.Schema, batch *vector.Batch) error {
	if err := schema.Conforms(batch); err != nil {
		return err
	}
	if err := checkShape(uint64(batch.Width()), uint64(batch.RowCount())); err != nil {
		return err
	}
	payload, err := marshalBatch(schema, batch)
	if err != nil {
		return err
	}
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("batch payload of %d bytes exceeds %d", len(payload), MaxPayloadSize)
	}

	kind := e.compressor.Type()
	stored, err := e.compressor.Compress(payload)
	switch {
	case err == errIncompressible:
		kind, stored = CompressionNone, payload
	case err != nil:
		return err
	case kind != CompressionNone && len(stored) >= len(payload):
		// Not beneficial; store the payload as is.
		kind, stored = CompressionNone, payload
	}

	var hdr bytes.Buffer
	hdr.Write(Magic[:])
	hdr.WriteByte(byte(kind))
	writeUvarint(&hdr, uint64(len(payload)))
	writeUvarint(&hdr, uint64(len(stored)))
	if _, err := e.w.Write(hdr.Bytes()); err != nil {
		return err
	}
	if _, err := e.w.Write(stored); err != nil {
		return err
	}
	e.stats.record(len(payload), len(stored))
	return nil
}

func marshalBatch(schema *vector.Schema, batch *vector.Batch) ([]byte, error) {
	var buf bytes.Buffer
	writeUvarint(&buf, uint64(batch.Width()))
	writeUvarint(&buf, uint64(batch.RowCount()))

	for ch, f := range schema.Fields {
		v := batch.Vector(ch)
		writeBytes(&buf, []byte(f.Name))
		buf.WriteByte(byte(v.Type().ID()))

		var bm bytes.Buffer
		if _, err := v.NullBitmap().WriteTo(&bm); err != nil {
			return nil, fmt.Errorf("column %s: %w", f.Name, err)
		}
		writeBytes(&buf, bm.Bytes())

		for row := 0; row < v.Len(); row++ {
			if v.IsNull(row) {
				continue
			}
			data, err := v.Type().Serialize(v.Get(row))
			if err != nil {
				return nil, fmt.Errorf("column %s row %d: %w", f.Name, row, err)
			}
			writeBytes(&buf, data)
		}
	}
	return buf.Bytes(), nil
}

func writeUvarint(buf *bytes.Buffer, x uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], x)
	buf.Write(tmp[:n])
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeUvarint(buf, uint64(len(b)))
	buf.Write(b)
}

// Decoder reads frames written by an Encoder.
type Decoder struct {
	r           *bufio.Reader
	compressors map[CompressionType]Compressor
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r), compressors: make(map[CompressionType]Compressor)}
}

// Decode reads the next frame. It returns io.EOF when r ends cleanly between
// frames and a DataCorrupted error for malformed input.
func (d *Decoder) Decode() (*vector.Schema, *vector.Batch, error) {
	var magic [4]byte
	if _, err := io.ReadFull(d.r, magic[:]); err != nil {
		if err == io.EOF {
			return nil, nil, io.EOF
		}
		return nil, nil, corrupt("reading frame header: %v", err)
	}
	if magic != Magic {
		return nil, nil, corrupt("bad magic %q", magic[:])
	}
	kindByte, err := d.r.ReadByte()
	if err != nil {
		return nil, nil, corrupt("reading compression: %v", err)
	}
	payloadLen, err := d.readLength()
	if err != nil {
		return nil, nil, err
	}
	storedLen, err := d.readLength()
	if err != nil {
		return nil, nil, err
	}

	stored := make([]byte, storedLen)
	if _, err := io.ReadFull(d.r, stored); err != nil {
		return nil, nil, corrupt("reading payload: %v", err)
	}

	comp, err := d.compressor(CompressionType(kindByte))
	if err != nil {
		return nil, nil, corrupt("%v", err)
	}
	payload, err := comp.Decompress(stored, payloadLen)
	if err != nil {
		return nil, nil, corrupt("%v", err)
	}
	return unmarshalBatch(payload)
}

func (d *Decoder) readLength() (int, error) {
	n, err := binary.ReadUvarint(d.r)
	if err != nil {
		return 0, corrupt("reading length: %v", err)
	}
	if n > MaxPayloadSize {
		return 0, corrupt("length %d exceeds %d", n, MaxPayloadSize)
	}
	return int(n), nil
}

func (d *Decoder) compressor(t CompressionType) (Compressor, error) {
	if c, ok := d.compressors[t]; ok {
		return c, nil
	}
	c, err := NewCompressor(t)
	if err != nil {
		return nil, err
	}
	d.compressors[t] = c
	return c, nil
}

// Close releases decompressor resources.
func (d *Decoder) Close() {
	for _, c := range d.compressors {
		if z, ok := c.(*ZstdCompressor); ok {
			z.Close()
		}
	}
}

// payloadReader walks an uncompressed payload.
type payloadReader struct {
	*bytes.Reader
}

func (p payloadReader) readUvarint(what string) (uint64, error) {
	n, err := binary.ReadUvarint(p)
	if err != nil {
		return 0, corrupt("reading %s: %v", what, err)
	}
	return n, nil
}

func (p payloadReader) readBytes(what string) ([]byte, error) {
	n, err := p.readUvarint(what + " length")
	if err != nil {
		return nil, err
	}
	if n > uint64(p.Len()) {
		return nil, corrupt("%s length %d exceeds remaining %d bytes", what, n, p.Len())
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(p, b); err != nil {
		return nil, corrupt("reading %s: %v", what, err)
	}
	return b, nil
}

func unmarshalBatch(payload []byte) (*vector.Schema, *vector.Batch, error) {
	p := payloadReader{bytes.NewReader(payload)}
	width, err := p.readUvarint("column count")
	if err != nil {
		return nil, nil, err
	}
	rows, err := p.readUvarint("row count")
	if err != nil {
		return nil, nil, err
	}
	if width > uint64(len(payload)) {
		return nil, nil, corrupt("implausible column count %d", width)
	}
	if err := checkShape(width, rows); err != nil {
		return nil, nil, corrupt("%v", err)
	}

	fields := make([]vector.Field, width)
	vectors := make([]*vector.Vector, width)
	for ch := range fields {
		name, err := p.readBytes("column name")
		if err != nil {
			return nil, nil, err
		}
		id, err := p.ReadByte()
		if err != nil {
			return nil, nil, corrupt("reading type of column %s: %v", name, err)
		}
		dt, err := types.FromID(types.TypeID(id))
		if err != nil {
			return nil, nil, corrupt("column %s: %v", name, err)
		}

		bmBytes, err := p.readBytes("null bitmap")
		if err != nil {
			return nil, nil, err
		}
		nulls := roaring.New()
		if _, err := nulls.ReadFrom(bytes.NewReader(bmBytes)); err != nil {
			return nil, nil, corrupt("column %s null bitmap: %v", name, err)
		}
		nullCount := nulls.GetCardinality()
		if nullCount > rows || (nullCount > 0 && uint64(nulls.Maximum()) >= rows) {
			return nil, nil, corrupt("column %s null bitmap exceeds %d rows", name, rows)
		}
		// Every non-null value takes at least its length byte.
		if rows-nullCount > uint64(p.Len()) {
			return nil, nil, corrupt("column %s needs %d values but %d bytes remain", name, rows-nullCount, p.Len())
		}

		b := vector.NewBuilder(dt, int(min(rows, uint64(p.Len()))))
		for row := uint64(0); row < rows; row++ {
			if nulls.Contains(uint32(row)) {
				b.AppendNull()
				continue
			}
			data, err := p.readBytes("value")
			if err != nil {
				return nil, nil, err
			}
			v, err := dt.Deserialize(data)
			if err != nil {
				return nil, nil, corrupt("column %s row %d: %v", name, row, err)
			}
			if err := b.AppendValue(v); err != nil {
				return nil, nil, corrupt("column %s row %d: %v", name, row, err)
			}
		}
		fields[ch] = vector.Field{Name: string(name), Type: dt}
		vectors[ch] = b.Build()
	}
	if p.Len() != 0 {
		return nil, nil, corrupt("%d trailing payload bytes", p.Len())
	}

	batch := vector.EmptyBatch(int(rows))
	if width > 0 {
		batch, err = vector.NewBatch(vectors...)
		if err != nil {
			return nil, nil, err
		}
	}
	return vector.NewSchema(fields...), batch, nil
}

func checkShape(width, rows uint64) error {
	if rows > MaxRows {
		return fmt.Errorf("%d rows exceed %d", rows, MaxRows)
	}
	if width*rows > MaxCells {
		return fmt.Errorf("%d columns x %d rows exceed %d cells", width, rows, MaxCells)
	}
	return nil
}

func corrupt(format string, args ...any) *errors.Error {
	return errors.Newf(errors.KindInternal, errors.DataCorrupted, "corrupt batch frame: "+format, args...)
}
