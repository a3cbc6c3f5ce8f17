package codec

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/QuantaEval/internal/errors"
	"github.com/dshills/QuantaEval/internal/sql/types"
	"github.com/dshills/QuantaEval/internal/sql/vector"
	"github.com/dshills/QuantaEval/internal/testutil"
)

func mixedBatch(t *testing.T) (*vector.Schema, *vector.Batch) {
	t.Helper()
	schema := vector.NewSchema(
		vector.Field{Name: "id", Type: types.BigInt},
		vector.Field{Name: "n", Type: types.Integer},
		vector.Field{Name: "score", Type: types.Double},
		vector.Field{Name: "ok", Type: types.Boolean},
		vector.Field{Name: "s", Type: types.Text},
	)
	var rows []types.Row
	for i := 0; i < 100; i++ {
		row := types.NewRow(
			types.NewBigIntValue(int64(i)<<40),
			types.NewIntegerValue(int32(-i)),
			types.NewDoubleValue(float64(i)/3),
			types.NewBooleanValue(i%2 == 0),
			types.NewTextValue(testutil.GenerateWord(i)),
		)
		row.Values[i%5] = types.NewNullValue()
		rows = append(rows, row)
	}
	return schema, testutil.Batch(t, schema, rows...)
}

func TestRoundTrip(t *testing.T) {
	schema, batch := mixedBatch(t)

	for _, c := range []CompressionType{CompressionNone, CompressionLZ4, CompressionSnappy, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			enc, err := NewEncoder(&buf, c)
			require.NoError(t, err)
			require.NoError(t, enc.Encode(schema, batch))
			require.NoError(t, enc.Encode(schema, batch))
			assert.Equal(t, int64(2), enc.Stats().Frames.Load())
			assert.Equal(t, Magic[:], buf.Bytes()[:4])

			dec := NewDecoder(&buf)
			defer dec.Close()
			for i := 0; i < 2; i++ {
				gotSchema, got, err := dec.Decode()
				require.NoError(t, err)
				assert.Equal(t, schema.String(), gotSchema.String())
				testutil.AssertBatchEqual(t, batch, got)
			}
			_, _, err = dec.Decode()
			assert.Equal(t, io.EOF, err)
		})
	}
}

func TestCompressionShrinksRepetitiveBatches(t *testing.T) {
	schema := testutil.SubstringSchema()
	rows := make([]types.Row, 2000)
	for i := range rows {
		rows[i] = types.NewRow(types.NewTextValue("a tiger"), types.NewIntegerValue(3), types.NewNullValue())
	}
	batch := testutil.Batch(t, schema, rows...)

	sizes := map[CompressionType]int{}
	for _, c := range []CompressionType{CompressionNone, CompressionLZ4, CompressionSnappy, CompressionZstd} {
		var buf bytes.Buffer
		enc, err := NewEncoder(&buf, c)
		require.NoError(t, err)
		require.NoError(t, enc.Encode(schema, batch))
		sizes[c] = buf.Len()
		if c != CompressionNone {
			assert.Less(t, enc.Stats().Ratio(), 0.5, c.String())
			assert.Equal(t, byte(c), buf.Bytes()[4])
		}
	}
	assert.Less(t, sizes[CompressionLZ4], sizes[CompressionNone])
	assert.Less(t, sizes[CompressionSnappy], sizes[CompressionNone])
	assert.Less(t, sizes[CompressionZstd], sizes[CompressionNone])
}

func TestEmptyBatches(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, CompressionLZ4)
	require.NoError(t, err)

	schema := testutil.SubstringSchema()
	require.NoError(t, enc.Encode(schema, testutil.Batch(t, schema)))
	require.NoError(t, enc.Encode(vector.NewSchema(), vector.EmptyBatch(3)))

	dec := NewDecoder(&buf)
	gotSchema, got, err := dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, 3, gotSchema.Len())
	assert.Equal(t, 0, got.RowCount())

	gotSchema, got, err = dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, 0, gotSchema.Len())
	assert.Equal(t, 3, got.RowCount())
}

func TestEncodeRejectsNonConformingBatch(t *testing.T) {
	_, batch := mixedBatch(t)
	enc, err := NewEncoder(io.Discard, CompressionNone)
	require.NoError(t, err)
	assert.Error(t, enc.Encode(testutil.SubstringSchema(), batch))
}

func TestDecodeCorruption(t *testing.T) {
	schema, batch := mixedBatch(t)
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, CompressionSnappy)
	require.NoError(t, err)
	require.NoError(t, enc.Encode(schema, batch))
	frame := buf.Bytes()

	tests := []struct {
		name  string
		input []byte
	}{
		{"bad magic", append([]byte("XEB1"), frame[4:]...)},
		{"unknown compression", append(append([]byte{}, frame[:4]...), append([]byte{9}, frame[5:]...)...)},
		{"truncated payload", frame[:len(frame)-10]},
		{"truncated header", frame[:5]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewDecoder(bytes.NewReader(tt.input)).Decode()
			require.Error(t, err)
			e, ok := errors.As(err)
			require.True(t, ok, "%v", err)
			assert.Equal(t, errors.DataCorrupted, e.Code)
		})
	}
}

// rawFrame wraps an uncompressed payload of the given shape in a frame header.
// Each column is INTEGER with the given null bitmap and no values.
func rawFrame(t *testing.T, columns int, rows uint64, nulls *roaring.Bitmap) []byte {
	t.Helper()
	var bm bytes.Buffer
	nulls.RunOptimize()
	_, err := nulls.WriteTo(&bm)
	require.NoError(t, err)

	var payload bytes.Buffer
	writeUvarint(&payload, uint64(columns))
	writeUvarint(&payload, rows)
	for i := 0; i < columns; i++ {
		writeBytes(&payload, []byte(fmt.Sprintf("c%d", i)))
		payload.WriteByte(byte(types.TypeIDInteger))
		writeBytes(&payload, bm.Bytes())
	}

	var frame bytes.Buffer
	frame.Write(Magic[:])
	frame.WriteByte(byte(CompressionNone))
	writeUvarint(&frame, uint64(payload.Len()))
	writeUvarint(&frame, uint64(payload.Len()))
	frame.Write(payload.Bytes())
	return frame.Bytes()
}

func allNull(rows uint64) *roaring.Bitmap {
	bm := roaring.New()
	bm.AddRange(0, rows)
	return bm
}

func TestDecodeRejectsImplausibleShapes(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"rows beyond limit", rawFrame(t, 1, 1<<30, allNull(MaxRows+1))},
		{"one row past limit", rawFrame(t, 1, MaxRows+1, allNull(MaxRows+1))},
		{"cells beyond limit", rawFrame(t, MaxCells/MaxRows+1, MaxRows, allNull(MaxRows))},
		{"null past last row", rawFrame(t, 1, 2, roaring.BitmapOf(5))},
		{"missing values", rawFrame(t, 1, 1000, roaring.New())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Less(t, len(tt.input), 1<<16)
			_, _, err := NewDecoder(bytes.NewReader(tt.input)).Decode()
			require.Error(t, err)
			e, ok := errors.As(err)
			require.True(t, ok, "%v", err)
			assert.Equal(t, errors.DataCorrupted, e.Code)
		})
	}

	schema, batch, err := NewDecoder(bytes.NewReader(rawFrame(t, 2, 3, allNull(3)))).Decode()
	require.NoError(t, err)
	assert.Equal(t, "(c0 INTEGER, c1 INTEGER)", schema.String())
	require.Equal(t, 3, batch.RowCount())
	assert.True(t, batch.Vector(1).IsNull(2))
}

func TestCheckShape(t *testing.T) {
	assert.NoError(t, checkShape(16, MaxRows))
	assert.Error(t, checkShape(1, MaxRows+1))
	assert.Error(t, checkShape(17, MaxRows))
}

func TestParseCompression(t *testing.T) {
	for in, want := range map[string]CompressionType{
		"":       CompressionNone,
		"none":   CompressionNone,
		"LZ4":    CompressionLZ4,
		"snappy": CompressionSnappy,
		" zstd ": CompressionZstd,
	} {
		got, err := ParseCompression(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseCompression("gzip")
	assert.Error(t, err)
	assert.Equal(t, "compression(9)", CompressionType(9).String())
}

func TestFileRoundTrip(t *testing.T) {
	path := testutil.TempFile(t, "batches.qeb")
	schema, batch := mixedBatch(t)

	f, err := os.Create(path)
	require.NoError(t, err)
	enc, err := NewEncoder(f, CompressionZstd)
	require.NoError(t, err)
	require.NoError(t, enc.Encode(schema, batch))
	require.NoError(t, f.Close())

	r, err := os.Open(path)
	require.NoError(t, err)
	defer r.Close()
	_, got, err := NewDecoder(r).Decode()
	require.NoError(t, err)
	testutil.AssertBatchEqual(t, batch, got)
}
