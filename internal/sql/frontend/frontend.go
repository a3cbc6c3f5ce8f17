// Package frontend turns PostgreSQL-syntax scalar expressions into typed
// expression trees. Names resolve against the batch schema and calls are
// typed with the function registry, so every node it returns carries a type.
package frontend

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/groupcache/lru"
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/dshills/QuantaEval/internal/errors"
	"github.com/dshills/QuantaEval/internal/sql/expression"
	"github.com/dshills/QuantaEval/internal/sql/function"
	"github.com/dshills/QuantaEval/internal/sql/types"
	"github.com/dshills/QuantaEval/internal/sql/vector"
)

// selectPrefix wraps expression text into a statement the parser accepts.
const selectPrefix = "SELECT "

// DefaultCacheEntries is the parse cache size used when none is configured.
const DefaultCacheEntries = 128

// Target is one named expression of a select list.
type Target struct {
	Name string
	Node expression.Node
}

// Parser parses expression lists and caches the typed results. It is safe
// for concurrent use.
type Parser struct {
	registry *function.Registry

	mu    sync.Mutex
	cache *lru.Cache
}

// NewParser creates a parser typing function calls against registry. A nil
// registry selects the built-ins.
func NewParser(registry *function.Registry, cacheEntries int) *Parser {
	if registry == nil {
		registry = function.Builtins()
	}
	if cacheEntries <= 0 {
		cacheEntries = DefaultCacheEntries
	}
	return &Parser{registry: registry, cache: lru.New(cacheEntries)}
}

type cacheKey struct {
	text   string
	schema string
}

// ParseTargets parses a comma separated list of expressions, each optionally
// followed by AS name.
func (p *Parser) ParseTargets(text string, schema *vector.Schema) ([]Target, error) {
	key := cacheKey{text: text, schema: schema.String()}

	p.mu.Lock()
	if v, ok := p.cache.Get(key); ok {
		p.mu.Unlock()
		return append([]Target(nil), v.([]Target)...), nil
	}
	p.mu.Unlock()

	targets, err := parseTargets(text, schema, p.registry)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache.Add(key, targets)
	p.mu.Unlock()
	return append([]Target(nil), targets...), nil
}

// Parse parses a single expression.
func (p *Parser) Parse(text string, schema *vector.Schema) (expression.Node, error) {
	targets, err := p.ParseTargets(text, schema)
	if err != nil {
		return nil, err
	}
	if len(targets) != 1 {
		return nil, errors.SyntaxErrorf(0, "expected one expression, found %d", len(targets))
	}
	return targets[0].Node, nil
}

// CacheLen reports the number of cached parse results.
func (p *Parser) CacheLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache.Len()
}

// Parse parses a single expression without caching.
func Parse(text string, schema *vector.Schema, registry *function.Registry) (expression.Node, error) {
	return NewParser(registry, 1).Parse(text, schema)
}

func parseTargets(text string, schema *vector.Schema, registry *function.Registry) ([]Target, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.SyntaxErrorf(0, "empty expression")
	}
	if strings.Contains(text, ";") {
		return nil, errors.SyntaxErrorf(strings.Index(text, ";")+1, "expression must not contain ';'")
	}

	result, err := pg_query.Parse(selectPrefix + text)
	if err != nil {
		return nil, errors.SyntaxErrorf(0, "%v", err)
	}
	if len(result.Stmts) != 1 {
		return nil, errors.SyntaxErrorf(0, "expected a single expression list")
	}
	sel := result.Stmts[0].Stmt.GetSelectStmt()
	if sel == nil || len(sel.FromClause) > 0 || sel.WhereClause != nil ||
		len(sel.GroupClause) > 0 || sel.LimitCount != nil || len(sel.SortClause) > 0 {
		return nil, errors.SyntaxErrorf(0, "only scalar expressions are supported")
	}

	c := &converter{schema: schema, registry: registry}
	targets := make([]Target, 0, len(sel.TargetList))
	for i, t := range sel.TargetList {
		res := t.GetResTarget()
		if res == nil || res.Val == nil {
			return nil, errors.SyntaxErrorf(0, "unsupported select item %d", i+1)
		}
		node, err := c.convert(res.Val)
		if err != nil {
			return nil, err
		}
		name := res.Name
		if name == "" {
			name = defaultName(node)
		}
		targets = append(targets, Target{Name: name, Node: node})
	}
	return targets, nil
}

// defaultName follows PostgreSQL's output column naming.
func defaultName(node expression.Node) string {
	switch n := node.(type) {
	case *expression.FieldRef:
		return n.Name()
	case *expression.FunctionCall:
		return strings.ToLower(n.Name())
	default:
		return "?column?"
	}
}

type converter struct {
	schema   *vector.Schema
	registry *function.Registry
}

// position maps a parser location onto the 1-based position in the
// expression text.
func position(location int32) int {
	if location < 0 {
		return 0
	}
	return int(location) - len(selectPrefix) + 1
}

func (c *converter) convert(n *pg_query.Node) (expression.Node, error) {
	switch {
	case n.GetColumnRef() != nil:
		return c.columnRef(n.GetColumnRef())
	case n.GetAConst() != nil:
		return constant(n.GetAConst())
	case n.GetFuncCall() != nil:
		return c.funcCall(n.GetFuncCall())
	case n.GetTypeCast() != nil:
		return c.typeCast(n.GetTypeCast())
	case n.GetAExpr() != nil:
		return c.negation(n.GetAExpr())
	default:
		return nil, errors.SyntaxErrorf(0, "unsupported expression %T", n.GetNode())
	}
}

func (c *converter) columnRef(ref *pg_query.ColumnRef) (expression.Node, error) {
	if len(ref.Fields) == 0 {
		return nil, errors.SyntaxErrorf(position(ref.Location), "empty column reference")
	}
	last := ref.Fields[len(ref.Fields)-1].GetString_()
	if last == nil {
		return nil, errors.SyntaxErrorf(position(ref.Location), "* is not a scalar expression")
	}
	name := last.Sval
	i := c.schema.Index(name)
	if i < 0 {
		return nil, errors.UndefinedFieldError(name).WithPosition(position(ref.Location))
	}
	return expression.NewFieldRef(name, c.schema.Fields[i].Type), nil
}

func constant(k *pg_query.A_Const) (expression.Node, error) {
	if k.Isnull {
		return expression.NullLiteral(), nil
	}
	if v := k.GetIval(); v != nil {
		return expression.LiteralOf(types.NewIntegerValue(v.Ival)), nil
	}
	if v := k.GetFval(); v != nil {
		return numericLiteral(v.Fval, position(k.Location))
	}
	if v := k.GetSval(); v != nil {
		return expression.LiteralOf(types.NewTextValue(v.Sval)), nil
	}
	if v := k.GetBoolval(); v != nil {
		return expression.LiteralOf(types.NewBooleanValue(v.Boolval)), nil
	}
	return nil, errors.SyntaxErrorf(position(k.Location), "unsupported constant")
}

// numericLiteral types integers too wide for INTEGER as BIGINT and everything
// else as DOUBLE.
func numericLiteral(text string, pos int) (expression.Node, error) {
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			return expression.LiteralOf(types.NewIntegerValue(int32(n))), nil
		}
		return expression.LiteralOf(types.NewBigIntValue(n)), nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, errors.SyntaxErrorf(pos, "invalid numeric constant %s", text)
	}
	return expression.LiteralOf(types.NewDoubleValue(f)), nil
}

func (c *converter) funcCall(call *pg_query.FuncCall) (expression.Node, error) {
	pos := position(call.Location)
	if call.AggStar || call.AggDistinct || call.Over != nil || len(call.AggOrder) > 0 || call.AggFilter != nil {
		return nil, errors.SyntaxErrorf(pos, "aggregate and window syntax is not supported")
	}
	if len(call.Funcname) == 0 {
		return nil, errors.SyntaxErrorf(pos, "function call without a name")
	}
	last := call.Funcname[len(call.Funcname)-1].GetString_()
	if last == nil {
		return nil, errors.SyntaxErrorf(pos, "unsupported function name")
	}
	name := last.Sval

	args := make([]expression.Node, len(call.Args))
	argTypes := make([]types.DataType, len(call.Args))
	for i, a := range call.Args {
		node, err := c.convert(a)
		if err != nil {
			return nil, err
		}
		args[i] = node
		argTypes[i] = node.DataType()
	}

	ret, err := c.resultType(name, argTypes)
	if err != nil {
		return nil, err.WithPosition(pos)
	}
	return expression.NewFunctionCall(name, ret, args...), nil
}

// resultType checks a call against its descriptor and computes its type.
func (c *converter) resultType(name string, argTypes []types.DataType) (types.DataType, *errors.Error) {
	desc, ok := c.registry.Lookup(name)
	if !ok {
		return nil, errors.UndefinedFunctionError(name)
	}
	n := len(argTypes)
	if n < desc.MinArgs() {
		return nil, errors.MissingArgumentError(desc.DisplayName, n, desc.Args[n].Name)
	}
	if n > desc.MaxArgs() {
		return nil, errors.TooManyArgumentsError(desc.DisplayName, desc.MaxArgs(), n)
	}
	for i, dt := range argTypes {
		spec := desc.Args[i]
		if !spec.Accepts(dt) {
			return nil, errors.ArgumentTypeError(desc.DisplayName, i, spec.Name, spec.Type.Name, dt.Name())
		}
	}
	return desc.ReturnType(argTypes), nil
}

func (c *converter) typeCast(tc *pg_query.TypeCast) (expression.Node, error) {
	pos := position(tc.Location)
	if tc.TypeName == nil || len(tc.TypeName.Names) == 0 {
		return nil, errors.SyntaxErrorf(pos, "cast without a type")
	}
	typeName := tc.TypeName.Names[len(tc.TypeName.Names)-1].GetString_()
	if typeName == nil {
		return nil, errors.SyntaxErrorf(pos, "unsupported cast type")
	}
	target, err := types.ParseTypeName(typeName.Sval)
	if err != nil {
		return nil, errors.SyntaxErrorf(pos, "%v", err)
	}

	arg, err := c.convert(tc.Arg)
	if err != nil {
		return nil, err
	}
	lit, ok := arg.(*expression.Literal)
	if !ok {
		return nil, errors.SyntaxErrorf(pos, "only constants can be cast")
	}
	v, err := castValue(lit.Value(), target)
	if err != nil {
		return nil, errors.Newf(errors.KindInvalidArgument, errors.InvalidTextRepresentation,
			"cannot cast %s to %s: %v", lit.String(), target.Name(), err).
			WithPosition(pos).
			WithValue(lit.Value().Data)
	}
	return expression.NewLiteral(v, target), nil
}

// negation accepts unary minus on numeric constants only.
func (c *converter) negation(e *pg_query.A_Expr) (expression.Node, error) {
	pos := position(e.Location)
	if e.Kind != pg_query.A_Expr_Kind_AEXPR_OP || e.Lexpr != nil || len(e.Name) != 1 ||
		e.Name[0].GetString_() == nil || e.Name[0].GetString_().Sval != "-" {
		return nil, errors.SyntaxErrorf(pos, "operators are not supported")
	}
	arg, err := c.convert(e.Rexpr)
	if err != nil {
		return nil, err
	}
	lit, ok := arg.(*expression.Literal)
	if !ok || lit.Value().IsNull() {
		return nil, errors.SyntaxErrorf(pos, "unary minus applies to numeric constants only")
	}
	switch v := lit.Value().Data.(type) {
	case int32:
		// A negative integer constant is already folded by the parser, so only
		// a cast such as '-2147483648'::integer reaches this point.
		if v == math.MinInt32 {
			return nil, errors.NumericOutOfRangeError("-", v, "INTEGER").WithPosition(pos)
		}
		return expression.NewLiteral(types.NewIntegerValue(-v), lit.DataType()), nil
	case int64:
		if v == math.MinInt64 {
			return nil, errors.NumericOutOfRangeError("-", v, "BIGINT").WithPosition(pos)
		}
		return expression.NewLiteral(types.NewBigIntValue(-v), lit.DataType()), nil
	case float64:
		return expression.NewLiteral(types.NewDoubleValue(-v), lit.DataType()), nil
	default:
		return nil, errors.SyntaxErrorf(pos, "unary minus applies to numeric constants only")
	}
}

// castValue converts a constant to target.
func castValue(v types.Value, target types.DataType) (types.Value, error) {
	if v.IsNull() {
		return v, nil
	}
	s := fmt.Sprint(v.Data)
	if f, ok := v.Data.(float64); ok {
		s = types.FormatDouble(f)
	}

	switch target.ID() {
	case types.TypeIDBigInt:
		if f, ok := v.Data.(float64); ok {
			return roundToInt(f, math.MinInt64, math.MaxInt64, types.NewBigIntValue)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return types.Value{}, err
		}
		return types.NewBigIntValue(n), nil
	case types.TypeIDInteger:
		if f, ok := v.Data.(float64); ok {
			return roundToInt(f, math.MinInt32, math.MaxInt32, func(n int64) types.Value {
				return types.NewIntegerValue(int32(n))
			})
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return types.Value{}, err
		}
		return types.NewIntegerValue(int32(n)), nil
	case types.TypeIDDouble:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return types.Value{}, err
		}
		return types.NewDoubleValue(f), nil
	case types.TypeIDBoolean:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "t", "true", "yes", "on", "1":
			return types.NewBooleanValue(true), nil
		case "f", "false", "no", "off", "0":
			return types.NewBooleanValue(false), nil
		}
		return types.Value{}, fmt.Errorf("invalid boolean %q", s)
	case types.TypeIDText:
		if b, ok := v.Data.(bool); ok {
			if b {
				return types.NewTextValue("true"), nil
			}
			return types.NewTextValue("false"), nil
		}
		return types.NewTextValue(s), nil
	default:
		return types.Value{}, fmt.Errorf("cannot cast to %s", target.Name())
	}
}

func roundToInt(f float64, lo, hi int64, mk func(int64) types.Value) (types.Value, error) {
	r := math.Round(f)
	if math.IsNaN(r) || r < float64(lo) || r >= -float64(lo) || r > float64(hi) {
		return types.Value{}, fmt.Errorf("value %s out of range", types.FormatDouble(f))
	}
	return mk(int64(r)), nil
}
