package compiler

import (
	"slices"

	"github.com/gitrdm/goclafer/pkg/analysis"
	"github.com/gitrdm/goclafer/pkg/ast"
	"github.com/gitrdm/goclafer/pkg/fd"
)

// frame binds "this" and the quantified locals while a constraint is
// unrolled for one slot of its owner.
type frame struct {
	owner  *ast.Entity
	this   int
	locals map[*ast.Local]int
}

func (f *frame) bind(l *ast.Local, v int) *frame {
	locals := make(map[*ast.Local]int, len(f.locals)+1)
	for k, x := range f.locals {
		locals[k] = x
	}
	locals[l] = v
	return &frame{owner: f.owner, this: f.this, locals: locals}
}

func (c *compiler) typeOf(x ast.Expr, ctx *frame) analysis.Type {
	if _, ok := x.(*ast.ThisExpr); ok {
		return analysis.Type{Kind: analysis.TypeSet, Elem: ctx.owner}
	}
	t, _ := c.r.Type(x)
	return t
}

var compareOps = map[ast.CompareOp]fd.Op{
	ast.OpEqual:            fd.OpEq,
	ast.OpNotEqual:         fd.OpNe,
	ast.OpLessThan:         fd.OpLt,
	ast.OpLessThanEqual:    fd.OpLe,
	ast.OpGreaterThan:      fd.OpGt,
	ast.OpGreaterThanEqual: fd.OpGe,
}

// compileInt compiles an integer expression. Sets of integers are summed.
func (c *compiler) compileInt(x ast.Expr, ctx *frame) (*fd.IntVar, error) {
	switch x := x.(type) {
	case *ast.Constant:
		return c.m.Const(x.Value), nil

	case *ast.CardExpr:
		t, err := c.compileSet(x.Set, ctx)
		if err != nil {
			return nil, err
		}
		return c.cardOf(t), nil

	case *ast.SumExpr:
		return c.sumOf(x.Set, ctx)

	case *ast.Arith:
		return c.arith(x, ctx)

	case *ast.MinusExpr:
		v, err := c.compileInt(x.Expr, ctx)
		if err != nil {
			return nil, err
		}
		return c.linear([]*fd.IntVar{v}, []int{-1})

	case *ast.IfThenElseExpr:
		cond, err := c.compileBool(x.Cond, ctx)
		if err != nil {
			return nil, err
		}
		then, err := c.compileInt(x.Then, ctx)
		if err != nil {
			return nil, err
		}
		els, err := c.compileInt(x.Else, ctx)
		if err != nil {
			return nil, err
		}
		return c.intITE(cond, then, els)

	case *ast.LengthExpr:
		s, err := c.compileString(x.Of, ctx)
		if err != nil {
			return nil, err
		}
		return c.stringLength(s)
	}
	if t := c.typeOf(x, ctx); t.IsIntLike() && t.Kind == analysis.TypeSet {
		return c.sumOf(x, ctx)
	}
	return nil, ast.Invariant(ctx.owner, "%s is not an integer", x)
}

// sumOf adds the values of an integer set.
func (c *compiler) sumOf(x ast.Expr, ctx *frame) (*fd.IntVar, error) {
	t, err := c.compileSet(x, ctx)
	if err != nil {
		return nil, err
	}
	if t.single != nil {
		return t.single, nil
	}
	lo, hi := 0, 0
	for _, v := range c.env(t) {
		if v < 0 {
			lo += v
		} else {
			hi += v
		}
	}
	if t.isConst() {
		return c.m.Const(lo + hi), nil
	}
	sum := c.intVar("sum", lo, hi)
	if err := c.post(fd.NewSetSum(t.set, sum)); err != nil {
		return nil, err
	}
	return sum, nil
}

// linear returns Σ coeffs[i]·vars[i] as a fresh variable.
func (c *compiler) linear(vars []*fd.IntVar, coeffs []int) (*fd.IntVar, error) {
	lo, hi := 0, 0
	for i, v := range vars {
		a, b := coeffs[i]*c.st.Min(v), coeffs[i]*c.st.Max(v)
		lo += min(a, b)
		hi += max(a, b)
	}
	if lo == hi {
		return c.m.Const(lo), nil
	}
	total := c.intVar("linear", lo, hi)
	if err := c.post(fd.NewLinear(vars, coeffs, total)); err != nil {
		return nil, err
	}
	return total, nil
}

func (c *compiler) arith(x *ast.Arith, ctx *frame) (*fd.IntVar, error) {
	vars := make([]*fd.IntVar, len(x.Operands))
	for i, op := range x.Operands {
		v, err := c.compileInt(op, ctx)
		if err != nil {
			return nil, err
		}
		vars[i] = v
	}
	switch x.Op {
	case ast.OpAdd, ast.OpSub:
		coeffs := make([]int, len(vars))
		for i := range coeffs {
			coeffs[i] = 1
			if x.Op == ast.OpSub && i > 0 {
				coeffs[i] = -1
			}
		}
		return c.linear(vars, coeffs)
	}
	k := 1
	var factor *fd.IntVar
	for i, op := range x.Operands {
		if cst, ok := op.(*ast.Constant); ok {
			k *= cst.Value
			continue
		}
		if factor != nil {
			return nil, ast.Invariant(ctx.owner, "%s multiplies two variables", x)
		}
		factor = vars[i]
	}
	if factor == nil {
		return c.m.Const(k), nil
	}
	return c.linear([]*fd.IntVar{factor}, []int{k})
}

// intITE returns r = cond ? then : els.
func (c *compiler) intITE(cond, then, els *fd.IntVar) (*fd.IntVar, error) {
	r := c.intVar("ite", min(c.st.Min(then), c.st.Min(els)), max(c.st.Max(then), c.st.Max(els)))
	isThen, isElse := c.boolVar("ite"), c.boolVar("ite")
	if err := c.postAll(
		func() (fd.Propagator, error) { return fd.NewCompareReif(isThen, r, fd.OpEq, then) },
		func() (fd.Propagator, error) { return fd.NewCompareReif(isElse, r, fd.OpEq, els) },
		func() (fd.Propagator, error) { return fd.NewIfThenElse(c.m.True(), cond, isThen, isElse) },
	); err != nil {
		return nil, err
	}
	return r, nil
}

// compileBool compiles a constraint into its reified boolean.
func (c *compiler) compileBool(x ast.Expr, ctx *frame) (*fd.IntVar, error) {
	switch x := x.(type) {
	case *ast.BoolConstant:
		return c.boolConst(x.Value), nil

	case *ast.Compare:
		return c.compare(x, ctx)

	case *ast.Bool:
		ops := make([]*fd.IntVar, len(x.Operands))
		for i, op := range x.Operands {
			b, err := c.compileBool(op, ctx)
			if err != nil {
				return nil, err
			}
			ops[i] = b
		}
		return c.connective(x.Op, ops)

	case *ast.NotExpr:
		b, err := c.compileBool(x.Expr, ctx)
		if err != nil {
			return nil, err
		}
		return c.not(b)

	case *ast.IfThenElseExpr:
		var ops [3]*fd.IntVar
		for i, op := range []ast.Expr{x.Cond, x.Then, x.Else} {
			b, err := c.compileBool(op, ctx)
			if err != nil {
				return nil, err
			}
			ops[i] = b
		}
		r := c.boolVar("ite")
		return r, c.post(fd.NewIfThenElse(r, ops[0], ops[1], ops[2]))

	case *ast.SetTest:
		t, err := c.compileSet(x.Set, ctx)
		if err != nil {
			return nil, err
		}
		var op fd.Op
		var k int
		switch x.Op {
		case ast.TestSome:
			op, k = fd.OpGe, 1
		case ast.TestNo:
			op, k = fd.OpEq, 0
		case ast.TestLone:
			op, k = fd.OpLe, 1
		case ast.TestOne:
			op, k = fd.OpEq, 1
		}
		return c.reify(c.cardOf(t), op, c.m.Const(k))

	case *ast.Membership:
		b, err := c.membership(x, ctx)
		if err != nil || !x.NotIn {
			return b, err
		}
		return c.not(b)

	case *ast.Quantified:
		return c.quantified(x, ctx)

	case *ast.StringTest:
		return c.stringTest(x, ctx)
	}
	return nil, ast.Invariant(ctx.owner, "%s is not a boolean", x)
}

// reify returns b ⇔ x op y, folding constant operands.
func (c *compiler) reify(x *fd.IntVar, op fd.Op, y *fd.IntVar) (*fd.IntVar, error) {
	if c.st.Instantiated(x) && c.st.Instantiated(y) {
		a, b := c.st.Value(x), c.st.Value(y)
		return c.boolConst(map[fd.Op]bool{
			fd.OpEq: a == b, fd.OpNe: a != b,
			fd.OpLt: a < b, fd.OpLe: a <= b,
			fd.OpGt: a > b, fd.OpGe: a >= b,
		}[op]), nil
	}
	b := c.boolVar("cmp")
	return b, c.post(fd.NewCompareReif(b, x, op, y))
}

func (c *compiler) connective(op ast.BoolOp, ops []*fd.IntVar) (*fd.IntVar, error) {
	switch op {
	case ast.OpAnd:
		return c.and(ops...)
	case ast.OpOr:
		return c.or(ops...)
	case ast.OpXor:
		acc := ops[0]
		for _, b := range ops[1:] {
			var err error
			if acc, err = c.reify(acc, fd.OpNe, b); err != nil {
				return nil, err
			}
		}
		return acc, nil
	case ast.OpImplies:
		na, err := c.not(ops[0])
		if err != nil {
			return nil, err
		}
		return c.or(na, ops[1])
	case ast.OpIfOnlyIf:
		return c.reify(ops[0], fd.OpEq, ops[1])
	}
	return nil, ast.Invariant(nil, "unknown connective %d", op)
}

func (c *compiler) and(ops ...*fd.IntVar) (*fd.IntVar, error) {
	if len(ops) == 1 {
		return ops[0], nil
	}
	r := c.boolVar("and")
	return r, c.post(fd.NewAndReif(r, ops...))
}

func (c *compiler) or(ops ...*fd.IntVar) (*fd.IntVar, error) {
	if len(ops) == 1 {
		return ops[0], nil
	}
	r := c.boolVar("or")
	return r, c.post(fd.NewOrReif(r, ops...))
}

// compare dispatches on the operand types: integers compare values, sets
// of instances and of reference values compare as sets, strings compare
// characters.
func (c *compiler) compare(x *ast.Compare, ctx *frame) (*fd.IntVar, error) {
	lt, rt := c.typeOf(x.Left, ctx), c.typeOf(x.Right, ctx)
	op := compareOps[x.Op]
	equality := x.Op == ast.OpEqual || x.Op == ast.OpNotEqual

	switch {
	case lt.Kind == analysis.TypeBool:
		a, err := c.compileBool(x.Left, ctx)
		if err != nil {
			return nil, err
		}
		b, err := c.compileBool(x.Right, ctx)
		if err != nil {
			return nil, err
		}
		return c.reify(a, op, b)

	case lt.IsStringLike() && equality:
		eq, err := c.stringEqual(x.Left, x.Right, ctx)
		if err != nil || x.Op == ast.OpEqual {
			return eq, err
		}
		return c.not(eq)

	case equality && (lt.Kind == analysis.TypeSet || rt.Kind == analysis.TypeSet) && c.setEquality(x, lt, rt):
		eq, err := c.setEqual(x.Left, x.Right, ctx)
		if err != nil || x.Op == ast.OpEqual {
			return eq, err
		}
		return c.not(eq)
	}

	a, err := c.compileInt(x.Left, ctx)
	if err != nil {
		return nil, err
	}
	b, err := c.compileInt(x.Right, ctx)
	if err != nil {
		return nil, err
	}
	return c.reify(a, op, b)
}

// setEquality reports whether an equality compares sets rather than sums:
// both sides are sets, or a set is compared with a literal.
func (c *compiler) setEquality(x *ast.Compare, lt, rt analysis.Type) bool {
	if lt.Kind == analysis.TypeSet && rt.Kind == analysis.TypeSet {
		return true
	}
	_, lc := x.Left.(*ast.Constant)
	_, rc := x.Right.(*ast.Constant)
	return lc || rc
}

// setEqual returns b ⇔ left = right with set semantics. A literal stands
// for the singleton holding it.
func (c *compiler) setEqual(left, right ast.Expr, ctx *frame) (*fd.IntVar, error) {
	term := func(x ast.Expr) (setTerm, error) {
		if k, ok := x.(*ast.Constant); ok {
			return setTerm{typ: ast.IntType, consts: []int{k.Value}}, nil
		}
		return c.compileSet(x, ctx)
	}
	a, err := term(left)
	if err != nil {
		return nil, err
	}
	b, err := term(right)
	if err != nil {
		return nil, err
	}
	if !a.typ.IsPrimitive() {
		super := commonSuper(a.typ, b.typ)
		if a, err = c.upcast(a, super); err != nil {
			return nil, err
		}
		if b, err = c.upcast(b, super); err != nil {
			return nil, err
		}
	}
	switch {
	case a.isConst() && b.isConst():
		return c.boolConst(equalInts(a.consts, b.consts)), nil
	case a.single != nil && b.single != nil:
		return c.reify(a.single, fd.OpEq, b.single)
	case a.single != nil && b.isConst() && len(b.consts) == 1:
		return c.reify(a.single, fd.OpEq, c.m.Const(b.consts[0]))
	case b.single != nil && a.isConst() && len(a.consts) == 1:
		return c.reify(b.single, fd.OpEq, c.m.Const(a.consts[0]))
	}
	r := c.boolVar("seteq")
	return r, c.post(fd.NewSetEqualReif(r, c.asSet(a), c.asSet(b)))
}

// membership returns b ⇔ left ⊆ right, or b ⇔ left ∈ right for a scalar
// integer left.
func (c *compiler) membership(x *ast.Membership, ctx *frame) (*fd.IntVar, error) {
	right, err := c.compileSet(x.Right, ctx)
	if err != nil {
		return nil, err
	}
	if lt := c.typeOf(x.Left, ctx); lt.Kind != analysis.TypeSet {
		v, err := c.compileInt(x.Left, ctx)
		if err != nil {
			return nil, err
		}
		b := c.boolVar("member")
		return b, c.post(fd.NewMemberReif(b, v, c.asSet(right)))
	}
	left, err := c.compileSet(x.Left, ctx)
	if err != nil {
		return nil, err
	}
	if !left.typ.IsPrimitive() {
		super := commonSuper(left.typ, right.typ)
		if left, err = c.upcast(left, super); err != nil {
			return nil, err
		}
		if right, err = c.upcast(right, super); err != nil {
			return nil, err
		}
	}
	if left.single != nil {
		b := c.boolVar("member")
		return b, c.post(fd.NewMemberReif(b, left.single, c.asSet(right)))
	}
	var imps []*fd.IntVar
	for _, v := range c.env(left) {
		in, err := c.contains(left, v)
		if err != nil {
			return nil, err
		}
		inRight, err := c.contains(right, v)
		if err != nil {
			return nil, err
		}
		out, err := c.not(in)
		if err != nil {
			return nil, err
		}
		imp, err := c.or(out, inRight)
		if err != nil {
			return nil, err
		}
		imps = append(imps, imp)
	}
	if len(imps) == 0 {
		return c.m.True(), nil
	}
	return c.and(imps...)
}

// binding is one tuple of values for the locals of a quantifier, with the
// membership flags guarding it.
type binding struct {
	frame  *frame
	guards []*fd.IntVar
}

// quantified unrolls the quantifier over the envelopes of its
// declarations.
func (c *compiler) quantified(x *ast.Quantified, ctx *frame) (*fd.IntVar, error) {
	bindings := []binding{{frame: ctx}}
	for _, d := range x.Decls {
		var next []binding
		for _, b := range bindings {
			set, err := c.compileSet(d.Body, b.frame)
			if err != nil {
				return nil, err
			}
			expanded, err := c.expand(d, set, b, 0, nil)
			if err != nil {
				return nil, err
			}
			next = append(next, expanded...)
		}
		bindings = next
	}

	switch x.Quant {
	case ast.QuantAll:
		clauses := make([]*fd.IntVar, 0, len(bindings))
		for _, b := range bindings {
			body, err := c.compileBool(x.Body, b.frame)
			if err != nil {
				return nil, err
			}
			ops := []*fd.IntVar{body}
			for _, g := range b.guards {
				ng, err := c.not(g)
				if err != nil {
					return nil, err
				}
				ops = append(ops, ng)
			}
			clause, err := c.or(ops...)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, clause)
		}
		if len(clauses) == 0 {
			return c.m.True(), nil
		}
		return c.and(clauses...)
	}

	witnesses := make([]*fd.IntVar, 0, len(bindings))
	for _, b := range bindings {
		body, err := c.compileBool(x.Body, b.frame)
		if err != nil {
			return nil, err
		}
		w, err := c.and(append([]*fd.IntVar{body}, b.guards...)...)
		if err != nil {
			return nil, err
		}
		witnesses = append(witnesses, w)
	}
	if x.Quant == ast.QuantSome || x.Quant == ast.QuantNo {
		some := c.m.False()
		if len(witnesses) > 0 {
			var err error
			if some, err = c.or(witnesses...); err != nil {
				return nil, err
			}
		}
		if x.Quant == ast.QuantSome {
			return some, nil
		}
		return c.not(some)
	}
	n := c.intVar("count", 0, len(witnesses))
	if err := c.post(fd.NewCount(witnesses, n)); err != nil {
		return nil, err
	}
	if x.Quant == ast.QuantLone {
		return c.reify(n, fd.OpLe, c.m.Const(1))
	}
	return c.reify(n, fd.OpEq, c.m.Const(1))
}

// expand binds d's locals from position i on to every value of set, with
// pairwise distinct values for a disjoint declaration.
func (c *compiler) expand(d *ast.Decl, set setTerm, b binding, i int, taken []int) ([]binding, error) {
	if i == len(d.Locals) {
		return []binding{b}, nil
	}
	var out []binding
	for _, v := range c.env(set) {
		if d.Disjoint && slices.Contains(taken, v) {
			continue
		}
		in, err := c.contains(set, v)
		if err != nil {
			return nil, err
		}
		if in == c.m.False() {
			continue
		}
		guards := b.guards
		if in != c.m.True() {
			guards = append(append([]*fd.IntVar(nil), guards...), in)
		}
		more, err := c.expand(d, set, binding{frame: b.frame.bind(d.Locals[i], v), guards: guards}, i+1, append(slices.Clip(taken), v))
		if err != nil {
			return nil, err
		}
		out = append(out, more...)
	}
	return out, nil
}

// commonSuper returns the most specific common supertype of a and b.
func commonSuper(a, b *ast.Entity) *ast.Entity {
	for t := a; t != nil; t = t.Super() {
		if b.IsSubOf(t) {
			return t
		}
	}
	return a
}

func equalInts(a, b []int) bool { return slices.Equal(union(a, nil), union(b, nil)) }

