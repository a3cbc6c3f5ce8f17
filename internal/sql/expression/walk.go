package expression

import (
	"sort"
	"strings"
)

// Walk calls fn for node and every descendant in depth-first pre-order.
// Returning false from fn skips the node's children.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	if call, ok := node.(*FunctionCall); ok {
		for _, arg := range call.args {
			Walk(arg, fn)
		}
	}
}

// FieldNames returns the distinct field names referenced by node, sorted.
func FieldNames(node Node) []string {
	seen := make(map[string]struct{})
	Walk(node, func(n Node) bool {
		if ref, ok := n.(*FieldRef); ok {
			seen[ref.name] = struct{}{}
		}
		return true
	})

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsConstant reports whether node contains no field references.
func IsConstant(node Node) bool {
	constant := true
	Walk(node, func(n Node) bool {
		if _, ok := n.(*FieldRef); ok {
			constant = false
		}
		return constant
	})
	return constant
}

// Fingerprint renders node with every type spelled out. Two trees with equal
// fingerprints bind identically against the same layout.
func Fingerprint(node Node) string {
	var b strings.Builder
	writeFingerprint(&b, node)
	return b.String()
}

func writeFingerprint(b *strings.Builder, node Node) {
	switch n := node.(type) {
	case *FunctionCall:
		b.WriteString(strings.ToLower(n.name))
		b.WriteByte('(')
		for i, arg := range n.args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeFingerprint(b, arg)
		}
		b.WriteByte(')')
	case *FieldRef:
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(n.name, `"`, `""`))
		b.WriteByte('"')
	default:
		b.WriteString(node.String())
	}
	b.WriteString("::")
	if dt := node.DataType(); dt != nil {
		b.WriteString(dt.Name())
	} else {
		b.WriteByte('?')
	}
}
