package evaluator

import (
	"sort"
	"strconv"
	"strings"

	"github.com/dshills/QuantaEval/internal/sql/types"
	"github.com/dshills/QuantaEval/internal/sql/vector"
)

// Channel is the batch position and column type a field name is bound to.
type Channel struct {
	Index int
	Type  types.DataType
}

// Layout maps field names to channels.
type Layout map[string]Channel

// LayoutOf derives a layout from a schema, one channel per field in order.
func LayoutOf(schema *vector.Schema) Layout {
	l := make(Layout, len(schema.Fields))
	for i, f := range schema.Fields {
		l[f.Name] = Channel{Index: i, Type: f.Type}
	}
	return l
}

// Fingerprint returns a stable rendering of the layout for cache keys.
func (l Layout) Fingerprint() string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		ch := l[name]
		b.WriteString(strconv.Quote(name))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(ch.Index))
		b.WriteByte(':')
		if ch.Type != nil {
			b.WriteString(ch.Type.Name())
		}
		b.WriteByte(';')
	}
	return b.String()
}
