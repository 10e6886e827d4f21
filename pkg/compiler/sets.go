package compiler

import (
	"slices"

	"github.com/gitrdm/goclafer/pkg/analysis"
	"github.com/gitrdm/goclafer/pkg/ast"
	"github.com/gitrdm/goclafer/pkg/fd"
)

// setTerm is a compiled set expression over the index space of typ (or a
// set of values for primitive types). A nil set means the term is the
// constant consts. single is set when the term is known to hold exactly
// the value of that variable.
type setTerm struct {
	typ    *ast.Entity
	consts []int
	set    *fd.SetVar
	single *fd.IntVar
}

func (t setTerm) isConst() bool { return t.set == nil }

// env returns the values the term may hold.
func (c *compiler) env(t setTerm) []int {
	if t.isConst() {
		return t.consts
	}
	return c.st.Env(t.set).Values()
}

func (c *compiler) asSet(t setTerm) *fd.SetVar {
	if !t.isConst() {
		return t.set
	}
	return c.m.ConstSet(t.consts...)
}

func (c *compiler) cardOf(t setTerm) *fd.IntVar {
	if t.isConst() {
		return c.m.Const(len(t.consts))
	}
	return t.set.Card()
}

// contains returns b ⇔ v ∈ t.
func (c *compiler) contains(t setTerm, v int) (*fd.IntVar, error) {
	if t.isConst() {
		return c.boolConst(slices.Contains(t.consts, v)), nil
	}
	if !c.st.Env(t.set).Has(v) {
		return c.m.False(), nil
	}
	key := memberKey{t.set, v}
	if b, ok := c.memberOf[key]; ok {
		return b, nil
	}
	b := c.boolVar("in(" + t.set.Name() + ")")
	if err := c.post(fd.NewMemberReif(b, c.m.Const(v), t.set)); err != nil {
		return nil, err
	}
	c.memberOf[key] = b
	return b, nil
}

type memberKey struct {
	set *fd.SetVar
	v   int
}

func (c *compiler) boolConst(b bool) *fd.IntVar {
	if b {
		return c.m.True()
	}
	return c.m.False()
}

// newSet allocates an auxiliary set over env.
func (c *compiler) newSet(prefix string, env []int) *fd.SetVar {
	return c.m.SetVar(c.name(prefix), fd.DomainOf(env...), fd.EmptyDomain(), 0, len(env))
}

// compileSet compiles a set-valued expression.
func (c *compiler) compileSet(x ast.Expr, ctx *frame) (setTerm, error) {
	switch x := x.(type) {
	case *ast.ThisExpr:
		return setTerm{typ: ctx.owner, consts: []int{ctx.this}}, nil

	case *ast.Local:
		v, ok := ctx.locals[x]
		if !ok {
			return setTerm{}, ast.Invariant(ctx.owner, "local %s is not bound", x.Name)
		}
		t, _ := c.r.Type(x)
		return setTerm{typ: t.Elem, consts: []int{v}}, nil

	case *ast.GlobalExpr:
		s, err := c.global(x.Entity)
		if err != nil {
			return setTerm{}, err
		}
		return setTerm{typ: x.Entity, set: s}, nil

	case *ast.UpcastExpr:
		base, err := c.compileSet(x.Base, ctx)
		if err != nil {
			return setTerm{}, err
		}
		return c.upcast(base, x.Target)

	case *ast.JoinExpr:
		left, err := c.compileSet(x.Left, ctx)
		if err != nil {
			return setTerm{}, err
		}
		if left, err = c.upcast(left, x.Child.Parent()); err != nil {
			return setTerm{}, err
		}
		return c.join(left, x.Child)

	case *ast.JoinParentExpr:
		children, err := c.compileSet(x.Children, ctx)
		if err != nil {
			return setTerm{}, err
		}
		return c.joinParent(children)

	case *ast.JoinRefExpr:
		deref, err := c.compileSet(x.Deref, ctx)
		if err != nil {
			return setTerm{}, err
		}
		return c.joinRef(deref)

	case *ast.SetArith:
		return c.setArith(x, ctx)
	}
	t, _ := c.r.Type(x)
	return setTerm{}, ast.Invariant(ctx.owner, "%s of type %s is not a set", x, t)
}

// global returns the set of present instances of e.
func (c *compiler) global(e *ast.Entity) (*fd.SetVar, error) {
	if s, ok := c.globals[e]; ok {
		return s, nil
	}
	ms := c.sm.members[e]
	s := c.m.SetVar("global("+e.Name()+")", fd.RangeDomain(0, len(ms)-1), fd.EmptyDomain(), 0, len(ms))
	if err := c.post(fd.NewBoolChannel(ms, s)); err != nil {
		return nil, err
	}
	c.globals[e] = s
	return s, nil
}

// upcast views t in the index space of its supertype to.
func (c *compiler) upcast(t setTerm, to *ast.Entity) (setTerm, error) {
	if t.typ == to || to.IsPrimitive() {
		return t, nil
	}
	off, ok := c.r.OffsetIn(t.typ, to)
	if !ok {
		return setTerm{}, ast.Invariant(t.typ, "%s is not a subtype of %s", t.typ, to)
	}
	if t.isConst() {
		out := make([]int, len(t.consts))
		for i, v := range t.consts {
			out[i] = v + off
		}
		return setTerm{typ: to, consts: out}, nil
	}
	env := c.env(t)
	shifted := make([]int, len(env))
	for i, v := range env {
		shifted[i] = v + off
	}
	up := c.newSet("upcast", shifted)
	if err := c.post(fd.NewMask(up, t.set, off, off+c.sizeOf(t.typ))); err != nil {
		return setTerm{}, err
	}
	return setTerm{typ: to, set: up}, nil
}

// window returns the constant child slots of parent slot p in the
// parent-group format.
func (c *compiler) window(child *ast.Entity, p int) []int {
	k := child.Card().Low
	out := make([]int, k)
	for j := range out {
		out[j] = p*k + j
	}
	return out
}

// join navigates from parent slots to the child's slots.
func (c *compiler) join(left setTerm, child *ast.Entity) (setTerm, error) {
	n := c.sizeOf(child)
	all := rangeInts(0, n)
	if c.r.FormatOf(child) == analysis.FormatParentGroup {
		if left.isConst() {
			var out []int
			for _, p := range left.consts {
				out = append(out, c.window(child, p)...)
			}
			return setTerm{typ: child, consts: out}, nil
		}
		windows, ok := c.windows[child]
		if !ok {
			windows = make([]*fd.SetVar, c.sizeOf(child.Parent()))
			for p := range windows {
				windows[p] = c.m.ConstSet(c.window(child, p)...)
			}
			c.windows[child] = windows
		}
		to := c.newSet("join("+child.Name()+")", all)
		if err := c.post(fd.NewJoinRelation(left.set, windows, to, true)); err != nil {
			return setTerm{}, err
		}
		return setTerm{typ: child, set: to}, nil
	}

	sets := c.sm.childSets[child]
	if left.isConst() {
		switch len(left.consts) {
		case 0:
			return setTerm{typ: child, consts: []int{}}, nil
		case 1:
			return setTerm{typ: child, set: sets[left.consts[0]]}, nil
		}
		parts := make([]*fd.SetVar, len(left.consts))
		var env []int
		for i, p := range left.consts {
			parts[i] = sets[p]
			env = append(env, c.st.Env(sets[p]).Values()...)
		}
		slices.Sort(env)
		to := c.newSet("join("+child.Name()+")", env)
		if err := c.post(fd.NewUnion(parts, to)); err != nil {
			return setTerm{}, err
		}
		return setTerm{typ: child, set: to}, nil
	}
	to := c.newSet("join("+child.Name()+")", all)
	if err := c.post(fd.NewJoinRelation(left.set, sets, to, true)); err != nil {
		return setTerm{}, err
	}
	return setTerm{typ: child, set: to}, nil
}

// joinParent navigates from child slots to their parents. Parent pointers
// of absent slots hold the sentinel, which is masked out.
func (c *compiler) joinParent(children setTerm) (setTerm, error) {
	e := children.typ
	p := e.Parent()
	np := c.sizeOf(p)
	if children.isConst() && c.r.FormatOf(e) == analysis.FormatParentGroup {
		k := e.Card().Low
		var out []int
		for _, i := range children.consts {
			if q := i / k; !slices.Contains(out, q) {
				out = append(out, q)
			}
		}
		return setTerm{typ: p, consts: out}, nil
	}
	parents := c.sm.parents[e]
	raw := c.newSet("parents("+e.Name()+")", rangeInts(0, np+1))
	var err error
	if children.isConst() {
		sel := make([]*fd.IntVar, len(children.consts))
		for i, v := range children.consts {
			sel[i] = parents[v]
		}
		err = c.post(fd.NewArrayToSet(sel, raw, 0))
	} else {
		err = c.post(fd.NewJoinFunction(children.set, parents, raw, 0))
	}
	if err != nil {
		return setTerm{}, err
	}
	res := c.newSet("parent("+e.Name()+")", rangeInts(0, np))
	if err := c.post(fd.NewMask(raw, res, 0, np)); err != nil {
		return setTerm{}, err
	}
	return setTerm{typ: p, set: res}, nil
}

// joinRef collects the reference values of the slots in deref. Values of
// a narrowed entity reference are shifted into the narrowed target's
// space.
func (c *compiler) joinRef(deref setTerm) (setTerm, error) {
	e := deref.typ
	storage := analysis.StorageRef(e)
	eff := e.EffectiveRef()
	if storage == nil {
		return setTerm{}, ast.Invariant(e, "%s has no reference", e)
	}
	off, _ := c.r.OffsetIn(e, storage.Source())
	refs := c.sm.refs[storage][off : off+c.sizeOf(e)]

	var tOff int
	target := eff.Target()
	if !target.IsPrimitive() {
		tOff, _ = c.r.OffsetIn(target, storage.Target())
	}

	var to *fd.SetVar
	var single *fd.IntVar
	if deref.isConst() {
		sel := make([]*fd.IntVar, len(deref.consts))
		var env fd.Domain
		for i, v := range deref.consts {
			sel[i] = refs[v]
			env = env.Union(c.st.Dom(refs[v]))
		}
		to = c.newSet("ref("+e.Name()+")", env.Values())
		if err := c.post(fd.NewArrayToSet(sel, to, 0)); err != nil {
			return setTerm{}, err
		}
		if len(sel) == 1 && tOff == 0 {
			single = sel[0]
		}
	} else {
		var env fd.Domain
		for _, v := range c.env(deref) {
			env = env.Union(c.st.Dom(refs[v]))
		}
		gc := 0
		if c.r.IsGloballyInjective(eff) && e.IsConcrete() && c.r.FormatOf(e) == analysis.FormatGeneral {
			gc = 1
		}
		to = c.newSet("ref("+e.Name()+")", env.Values())
		if err := c.post(fd.NewJoinFunction(deref.set, refs, to, gc)); err != nil {
			return setTerm{}, err
		}
	}
	if target.IsPrimitive() || target == storage.Target() {
		return setTerm{typ: target, set: to, single: single}, nil
	}
	res := c.newSet("ref("+e.Name()+":"+target.Name()+")", rangeInts(0, c.sizeOf(target)))
	if err := c.post(fd.NewMask(to, res, tOff, tOff+c.sizeOf(target))); err != nil {
		return setTerm{}, err
	}
	return setTerm{typ: target, set: res, single: single}, nil
}

// setArith compiles union, intersection and difference in the index space
// of the operands' common supertype.
func (c *compiler) setArith(x *ast.SetArith, ctx *frame) (setTerm, error) {
	t, _ := c.r.Type(x)
	a, err := c.compileSet(x.Left, ctx)
	if err != nil {
		return setTerm{}, err
	}
	b, err := c.compileSet(x.Right, ctx)
	if err != nil {
		return setTerm{}, err
	}
	if a, err = c.upcast(a, t.Elem); err != nil {
		return setTerm{}, err
	}
	if b, err = c.upcast(b, t.Elem); err != nil {
		return setTerm{}, err
	}

	ea, eb := c.env(a), c.env(b)
	if a.isConst() && b.isConst() {
		var out []int
		switch x.Op {
		case ast.OpUnion:
			out = union(ea, eb)
		case ast.OpIntersection:
			out = intersect(ea, eb)
		case ast.OpDifference:
			out = difference(ea, eb)
		}
		return setTerm{typ: t.Elem, consts: out}, nil
	}
	if x.Op == ast.OpUnion {
		to := c.newSet("union", union(ea, eb))
		if err := c.post(fd.NewUnion([]*fd.SetVar{c.asSet(a), c.asSet(b)}, to)); err != nil {
			return setTerm{}, err
		}
		return setTerm{typ: t.Elem, set: to}, nil
	}

	env := ea
	if x.Op == ast.OpIntersection {
		env = intersect(ea, eb)
	}
	to := c.newSet("setop", env)
	for _, v := range env {
		inA, err := c.contains(a, v)
		if err != nil {
			return setTerm{}, err
		}
		inB, err := c.contains(b, v)
		if err != nil {
			return setTerm{}, err
		}
		if x.Op == ast.OpDifference {
			if inB, err = c.not(inB); err != nil {
				return setTerm{}, err
			}
		}
		in := c.boolVar("setop")
		if err := c.post(fd.NewAndReif(in, inA, inB)); err != nil {
			return setTerm{}, err
		}
		if err := c.post(fd.NewMemberReif(in, c.m.Const(v), to)); err != nil {
			return setTerm{}, err
		}
	}
	return setTerm{typ: t.Elem, set: to}, nil
}

func rangeInts(lo, hi int) []int {
	out := make([]int, 0, max(hi-lo, 0))
	for v := lo; v < hi; v++ {
		out = append(out, v)
	}
	return out
}

func union(a, b []int) []int {
	out := append(slices.Clone(a), b...)
	slices.Sort(out)
	return slices.Compact(out)
}

func intersect(a, b []int) []int {
	var out []int
	for _, v := range a {
		if slices.Contains(b, v) {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func difference(a, b []int) []int {
	var out []int
	for _, v := range a {
		if !slices.Contains(b, v) {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
