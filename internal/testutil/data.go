package testutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/QuantaEval/internal/sql/types"
	"github.com/dshills/QuantaEval/internal/sql/vector"
)

var words = []string{"a tiger", "héllo wörld", "a\U0001F309tiger", "", "  padded  ", "ÉTÉ"}

// SubstringSchema is the (s TEXT, start INTEGER, len INTEGER) schema shared by
// evaluation tests.
func SubstringSchema() *vector.Schema {
	return vector.NewSchema(
		vector.Field{Name: "s", Type: types.Text},
		vector.Field{Name: "start", Type: types.Integer},
		vector.Field{Name: "len", Type: types.Integer},
	)
}

// GenerateWord returns a deterministic word for n.
func GenerateWord(n int) string {
	return fmt.Sprintf("%s#%d", words[n%len(words)], n)
}

// GenerateRows generates n rows for SubstringSchema. Every seventh string and
// every fifth length is NULL; lengths are never negative.
func GenerateRows(n int) []types.Row {
	rows := make([]types.Row, n)
	for i := 0; i < n; i++ {
		s := types.NewTextValue(GenerateWord(i))
		if i%7 == 6 {
			s = types.NewNullValue()
		}
		length := types.NewIntegerValue(int32(i % 4))
		if i%5 == 4 {
			length = types.NewNullValue()
		}
		rows[i] = types.NewRow(s, types.NewIntegerValue(int32(i%9-4)), length)
	}
	return rows
}

// Batch builds a single batch for schema from rows.
func Batch(t *testing.T, schema *vector.Schema, rows ...types.Row) *vector.Batch {
	t.Helper()
	rb := vector.NewRowBuilder(schema, len(rows)+1)
	for _, r := range rows {
		_, err := rb.Append(r)
		require.NoError(t, err)
	}
	b, err := rb.Flush()
	require.NoError(t, err)
	return b
}
