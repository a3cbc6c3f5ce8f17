package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/QuantaEval/internal/sql/vector"
)

// AssertBatchEqual checks that two batches hold the same typed values.
func AssertBatchEqual(t *testing.T, expected, actual *vector.Batch) {
	t.Helper()
	require.NotNil(t, actual)
	require.Equal(t, expected.Width(), actual.Width(), "width")
	require.Equal(t, expected.RowCount(), actual.RowCount(), "row count")
	for ch := 0; ch < expected.Width(); ch++ {
		AssertVectorEqual(t, expected.Vector(ch), actual.Vector(ch))
	}
}

// AssertVectorEqual checks type, length, null positions and values.
func AssertVectorEqual(t *testing.T, expected, actual *vector.Vector) {
	t.Helper()
	require.NotNil(t, actual)
	assert.Equal(t, expected.Type().Name(), actual.Type().Name())
	assert.Equal(t, expected.Len(), actual.Len())
	assert.True(t, expected.NullBitmap().Equals(actual.NullBitmap()), "null positions differ")
	assert.Equal(t, expected.Values(), actual.Values())
}
