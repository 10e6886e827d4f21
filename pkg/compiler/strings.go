package compiler

import (
	"strings"

	"github.com/gitrdm/goclafer/pkg/analysis"
	"github.com/gitrdm/goclafer/pkg/ast"
	"github.com/gitrdm/goclafer/pkg/fd"
)

// stringTerm is a compiled string: its characters padded with 0, its
// length, and whether the string exists at all (a reference of an absent
// instance does not). lit is set for literals; id ranks the value among
// the slots of one storage reference.
type stringTerm struct {
	chars   []*fd.IntVar
	length  *fd.IntVar
	present *fd.IntVar
	lit     *string

	storage *ast.Ref
	id      *fd.IntVar
}

// compileString compiles a string literal or the string reference of at
// most one instance.
func (c *compiler) compileString(x ast.Expr, ctx *frame) (stringTerm, error) {
	switch x := x.(type) {
	case *ast.StringConstant:
		runes := []rune(x.Value)
		chars := make([]*fd.IntVar, len(runes))
		for i, r := range runes {
			chars[i] = c.m.Const(int(r))
		}
		s := x.Value
		return stringTerm{chars: chars, length: c.m.Const(len(runes)), present: c.m.True(), lit: &s}, nil
	case *ast.JoinRefExpr:
		return c.stringRef(x, ctx)
	}
	return stringTerm{}, ast.Invariant(ctx.owner, "%s is not a string", x)
}

func (c *compiler) stringRef(x *ast.JoinRefExpr, ctx *frame) (stringTerm, error) {
	deref, err := c.compileSet(x.Deref, ctx)
	if err != nil {
		return stringTerm{}, err
	}
	e := deref.typ
	storage := analysis.StorageRef(e)
	if storage == nil || storage.Target() != ast.StringType {
		return stringTerm{}, ast.Invariant(e, "%s has no string reference", e)
	}
	sv := c.sm.strings[storage]
	off, _ := c.r.OffsetIn(e, storage.Source())

	if deref.isConst() {
		switch len(deref.consts) {
		case 0:
			return stringTerm{length: c.m.Const(0), present: c.m.False()}, nil
		case 1:
			slot := off + deref.consts[0]
			return stringTerm{
				chars:   sv.chars[slot],
				length:  sv.lengths[slot],
				present: c.sm.members[e][deref.consts[0]],
				storage: storage,
				id:      sv.ids[slot],
			}, nil
		}
	}
	set := c.asSet(deref)
	if c.st.Max(set.Card()) > 1 {
		return stringTerm{}, ast.Invariant(ctx.owner, "%s may hold more than one string", x)
	}

	// Slot x of e is slot x+off of the storage, hence the negative offset.
	pick := func(name string, column []*fd.IntVar) (*fd.IntVar, error) {
		var dom fd.Domain
		for _, v := range column {
			dom = dom.Union(c.st.Dom(v))
		}
		r := c.m.IntVarOf(c.name(name), dom.Add(filterAbsent))
		return r, c.post(fd.NewFilterString(set, -off, column, []*fd.IntVar{r}))
	}
	l := c.r.Scope().StringLength()
	t := stringTerm{chars: make([]*fd.IntVar, l), storage: storage}
	for j := range l {
		column := make([]*fd.IntVar, len(sv.chars))
		for s := range sv.chars {
			column[s] = sv.chars[s][j]
		}
		if t.chars[j], err = pick("char", column); err != nil {
			return stringTerm{}, err
		}
	}
	if t.length, err = pick("len", sv.lengths); err != nil {
		return stringTerm{}, err
	}
	if t.id, err = pick("id", sv.ids); err != nil {
		return stringTerm{}, err
	}
	if t.present, err = c.reify(set.Card(), fd.OpGe, c.m.Const(1)); err != nil {
		return stringTerm{}, err
	}
	return t, nil
}

// filterAbsent is the value FilterString yields past the set's end.
const filterAbsent = -1

// stringLength is the length of s, 0 when s does not exist.
func (c *compiler) stringLength(s stringTerm) (*fd.IntVar, error) {
	if s.present == c.m.True() {
		return s.length, nil
	}
	if s.present == c.m.False() {
		return c.m.Const(0), nil
	}
	return c.intITE(s.present, s.length, c.m.Const(0))
}

// padded returns the characters of s extended with 0 to n.
func (c *compiler) padded(s stringTerm, n int) []*fd.IntVar {
	out := append([]*fd.IntVar(nil), s.chars...)
	for len(out) < n {
		out = append(out, c.m.Const(0))
	}
	return out
}

// stringEqual returns b ⇔ left and right both exist and are equal.
func (c *compiler) stringEqual(left, right ast.Expr, ctx *frame) (*fd.IntVar, error) {
	a, err := c.compileString(left, ctx)
	if err != nil {
		return nil, err
	}
	b, err := c.compileString(right, ctx)
	if err != nil {
		return nil, err
	}
	if a.lit != nil && b.lit != nil {
		return c.boolConst(*a.lit == *b.lit), nil
	}
	if a.present == c.m.False() || b.present == c.m.False() {
		return c.m.False(), nil
	}
	ops := []*fd.IntVar{a.present, b.present}
	if a.storage != nil && a.storage == b.storage {
		eq, err := c.reify(a.id, fd.OpEq, b.id)
		if err != nil {
			return nil, err
		}
		return c.and(append(ops, eq)...)
	}
	n := max(len(a.chars), len(b.chars))
	ca, cb := c.padded(a, n), c.padded(b, n)
	eq, err := c.reify(a.length, fd.OpEq, b.length)
	if err != nil {
		return nil, err
	}
	ops = append(ops, eq)
	for j := range n {
		if eq, err = c.reify(ca[j], fd.OpEq, cb[j]); err != nil {
			return nil, err
		}
		ops = append(ops, eq)
	}
	return c.and(ops...)
}

// stringTest returns b ⇔ left is a prefix (suffix) of right.
func (c *compiler) stringTest(x *ast.StringTest, ctx *frame) (*fd.IntVar, error) {
	part, err := c.compileString(x.Left, ctx)
	if err != nil {
		return nil, err
	}
	whole, err := c.compileString(x.Right, ctx)
	if err != nil {
		return nil, err
	}
	if part.lit != nil && whole.lit != nil {
		if x.Op == ast.OpPrefix {
			return c.boolConst(strings.HasPrefix(*whole.lit, *part.lit)), nil
		}
		return c.boolConst(strings.HasSuffix(*whole.lit, *part.lit)), nil
	}
	if part.present == c.m.False() || whole.present == c.m.False() {
		return c.m.False(), nil
	}
	n := max(len(part.chars), len(whole.chars))
	p, w := c.padded(part, n), c.padded(whole, n)
	present := []*fd.IntVar{part.present, whole.present}

	if x.Op == ast.OpPrefix {
		match, err := c.alignedAt(p, w, 0)
		if err != nil {
			return nil, err
		}
		return c.and(append(present, match)...)
	}

	shift, err := c.linear([]*fd.IntVar{whole.length, part.length}, []int{1, -1})
	if err != nil {
		return nil, err
	}
	var cases []*fd.IntVar
	for d := range n + 1 {
		if d < c.st.Min(shift) || d > c.st.Max(shift) {
			continue
		}
		at, err := c.reify(shift, fd.OpEq, c.m.Const(d))
		if err != nil {
			return nil, err
		}
		match, err := c.alignedAt(p, w, d)
		if err != nil {
			return nil, err
		}
		both, err := c.and(at, match)
		if err != nil {
			return nil, err
		}
		cases = append(cases, both)
	}
	if len(cases) == 0 {
		return c.m.False(), nil
	}
	matched, err := c.or(cases...)
	if err != nil {
		return nil, err
	}
	return c.and(append(present, matched)...)
}

// alignedAt returns b ⇔ every character of p matches w shifted by d.
// Padding characters of p match anything.
func (c *compiler) alignedAt(p, w []*fd.IntVar, d int) (*fd.IntVar, error) {
	var ops []*fd.IntVar
	for j, pj := range p {
		if c.st.Instantiated(pj) && c.st.Value(pj) == 0 {
			continue
		}
		if j+d >= len(w) {
			end, err := c.reify(pj, fd.OpEq, c.m.Const(0))
			if err != nil {
				return nil, err
			}
			ops = append(ops, end)
			continue
		}
		eq, err := c.reify(pj, fd.OpEq, w[j+d])
		if err != nil {
			return nil, err
		}
		if !c.st.Instantiated(pj) {
			pad, err := c.reify(pj, fd.OpEq, c.m.Const(0))
			if err != nil {
				return nil, err
			}
			if eq, err = c.or(pad, eq); err != nil {
				return nil, err
			}
		}
		ops = append(ops, eq)
	}
	if len(ops) == 0 {
		return c.m.True(), nil
	}
	return c.and(ops...)
}
