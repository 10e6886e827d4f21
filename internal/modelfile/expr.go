package modelfile

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gitrdm/goclafer/pkg/ast"
)

// locals maps the names bound by enclosing quantifiers.
type locals map[string]*ast.Local

func (l locals) with(names []string) (locals, []*ast.Local) {
	out := make(locals, len(l)+len(names))
	for k, v := range l {
		out[k] = v
	}
	bound := make([]*ast.Local, len(names))
	for i, n := range names {
		bound[i] = ast.NewLocal(n)
		out[n] = bound[i]
	}
	return out, bound
}

func nodeErr(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("line %d: %s", n.Line, fmt.Sprintf(format, args...))
}

var (
	binary = map[string]func(a, b ast.Expr) ast.Expr{
		"eq": ast.Equal, "ne": ast.NotEqual,
		"lt": ast.LessThan, "le": ast.LessThanEqual,
		"gt": ast.GreaterThan, "ge": ast.GreaterThanEqual,
		"implies": ast.Implies, "iff": ast.IfOnlyIf,
		"in": ast.In, "notin": ast.NotIn,
		"union": ast.Union, "intersection": ast.Intersection, "difference": ast.Difference,
		"prefix": ast.Prefix, "suffix": ast.Suffix,
	}
	variadic = map[string]func(...ast.Expr) ast.Expr{
		"add": ast.Add, "sub": ast.Sub, "mul": ast.Mul,
		"and": ast.And, "or": ast.Or, "xor": ast.Xor,
	}
	unary = map[string]func(ast.Expr) ast.Expr{
		"card": ast.CardOf, "sum": ast.Sum, "length": ast.Length,
		"minus": ast.Minus, "not": ast.Not,
		"some": ast.Some, "no": ast.No, "lone": ast.Lone, "one": ast.One,
	}
	quantifiers = map[string]ast.Quant{
		"all": ast.QuantAll, "some": ast.QuantSome, "no": ast.QuantNo,
		"lone": ast.QuantLone, "one": ast.QuantOne,
	}
)

// expr decodes one expression node.
func (b *builder) expr(n *yaml.Node, env locals) (ast.Expr, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return b.scalar(n, env)
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return nil, nodeErr(n, "an expression has exactly one operator")
		}
		return b.operator(n.Content[0].Value, n.Content[1], env)
	}
	return nil, nodeErr(n, "unexpected %s", kindName(n.Kind))
}

func (b *builder) scalar(n *yaml.Node, env locals) (ast.Expr, error) {
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		return ast.Str(n.Value), nil
	}
	switch n.Tag {
	case "!!int":
		v, err := strconv.Atoi(n.Value)
		if err != nil {
			return nil, nodeErr(n, "invalid integer %s", n.Value)
		}
		return ast.Const(v), nil
	case "!!bool":
		return ast.BoolConst(n.Value == "true"), nil
	}
	return b.path(n, env)
}

// path decodes dotted navigation: a start (this, a local or an entity)
// followed by child names, ref and parent.
func (b *builder) path(n *yaml.Node, env locals) (ast.Expr, error) {
	parts := strings.Split(n.Value, ".")
	var x ast.Expr
	switch head := parts[0]; {
	case head == "this":
		x = ast.This()
	case env[head] != nil:
		x = env[head]
	default:
		e, ok := b.m.Lookup(head)
		if !ok {
			return nil, nodeErr(n, "unknown name %s", head)
		}
		x = ast.Global(e)
	}
	for _, p := range parts[1:] {
		switch p {
		case "ref":
			x = ast.JoinRef(x)
		case "parent":
			x = ast.JoinParent(x)
		default:
			child, ok := b.m.Lookup(p)
			if !ok {
				return nil, nodeErr(n, "unknown child %s", p)
			}
			x = ast.Join(x, child)
		}
	}
	return x, nil
}

func (b *builder) operator(op string, v *yaml.Node, env locals) (ast.Expr, error) {
	if q, ok := quantifiers[op]; ok && v.Kind == yaml.MappingNode {
		return b.quantified(q, v, env)
	}
	if f, ok := unary[op]; ok {
		x, err := b.expr(v, env)
		if err != nil {
			return nil, err
		}
		return f(x), nil
	}
	switch op {
	case "str":
		return ast.Str(v.Value), nil
	case "upcast":
		if v.Kind != yaml.SequenceNode || len(v.Content) != 2 {
			return nil, nodeErr(v, "upcast takes an expression and a type")
		}
		base, err := b.expr(v.Content[0], env)
		if err != nil {
			return nil, err
		}
		target, ok := b.m.Lookup(v.Content[1].Value)
		if !ok {
			return nil, nodeErr(v, "unknown type %s", v.Content[1].Value)
		}
		return ast.Upcast(base, target), nil
	case "ite":
		args, err := b.args(v, env, 3)
		if err != nil {
			return nil, err
		}
		return ast.IfThenElse(args[0], args[1], args[2]), nil
	}
	if f, ok := binary[op]; ok {
		args, err := b.args(v, env, 2)
		if err != nil {
			return nil, err
		}
		return f(args[0], args[1]), nil
	}
	if f, ok := variadic[op]; ok {
		args, err := b.args(v, env, -1)
		if err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return nil, nodeErr(v, "%s needs operands", op)
		}
		return f(args...), nil
	}
	return nil, nodeErr(v, "unknown operator %s", op)
}

// args decodes a sequence of n operands, any number when n < 0.
func (b *builder) args(v *yaml.Node, env locals, n int) ([]ast.Expr, error) {
	if v.Kind != yaml.SequenceNode {
		return nil, nodeErr(v, "expected a list of operands")
	}
	if n >= 0 && len(v.Content) != n {
		return nil, nodeErr(v, "expected %d operands, got %d", n, len(v.Content))
	}
	out := make([]ast.Expr, len(v.Content))
	for i, c := range v.Content {
		x, err := b.expr(c, env)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

type declSpec struct {
	Vars []string  `yaml:"vars"`
	In   yaml.Node `yaml:"in"`
	Disj bool      `yaml:"disj"`
}

type quantSpec struct {
	Decls []declSpec `yaml:"decls"`
	Body  yaml.Node  `yaml:"body"`
}

func (b *builder) quantified(q ast.Quant, v *yaml.Node, env locals) (ast.Expr, error) {
	var spec quantSpec
	if err := v.Decode(&spec); err != nil {
		return nil, nodeErr(v, "%v", err)
	}
	if len(spec.Decls) == 0 {
		return nil, nodeErr(v, "a quantifier needs decls")
	}
	scope := env
	decls := make([]*ast.Decl, len(spec.Decls))
	for i, d := range spec.Decls {
		if len(d.Vars) == 0 {
			return nil, nodeErr(v, "a declaration needs vars")
		}
		// Later declarations may range over earlier locals.
		body, err := b.expr(&d.In, scope)
		if err != nil {
			return nil, err
		}
		var bound []*ast.Local
		scope, bound = scope.with(d.Vars)
		if d.Disj {
			decls[i] = ast.DisjDeclare(body, bound...)
		} else {
			decls[i] = ast.Declare(body, bound...)
		}
	}
	body, err := b.expr(&spec.Body, scope)
	if err != nil {
		return nil, err
	}
	return ast.Quantify(q, body, decls...), nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "list"
	case yaml.AliasNode:
		return "alias"
	case yaml.DocumentNode:
		return "document"
	}
	return "node"
}
