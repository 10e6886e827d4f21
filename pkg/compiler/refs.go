package compiler

import (
	"strconv"

	"github.com/gitrdm/goclafer/pkg/analysis"
	"github.com/gitrdm/goclafer/pkg/ast"
	"github.com/gitrdm/goclafer/pkg/fd"
)

// compileRefs allocates the variables of every storage reference, one per
// slot of the declaring type. A subtype that narrows an entity reference
// only narrows the initial domains of its own slots.
func (c *compiler) compileRefs() error {
	for _, d := range c.r.Model().Entities() {
		ref := d.Ref()
		if ref == nil || analysis.StorageRef(d) != ref {
			continue
		}
		var err error
		switch ref.Target() {
		case ast.IntType:
			err = c.intRefs(ref)
		case ast.StringType:
			err = c.stringRefs(ref)
		default:
			err = c.entityRefs(ref)
		}
		if err != nil {
			return err
		}
		if err := c.uniqueRefs(ref); err != nil {
			return err
		}
	}
	return nil
}

// nullWhenAbsent fixes the reference of an absent slot to the lowest value
// of its domain so absent slots never multiply solutions.
func (c *compiler) nullWhenAbsent(member, v *fd.IntVar) error {
	if member == c.m.True() {
		return nil
	}
	null := c.boolVar("null(" + v.Name() + ")")
	if err := c.post(fd.NewCompareReif(null, v, fd.OpEq, c.m.Const(c.st.Min(v)))); err != nil {
		return err
	}
	return c.post(fd.NewOr(member, null))
}

func (c *compiler) intRefs(ref *ast.Ref) error {
	d := ref.Source()
	ms := c.sm.members[d]
	partials := c.r.PartialInts(ref)
	scope := c.r.Scope()
	base := fd.RangeDomain(scope.IntLow(), scope.IntHigh())
	vars := make([]*fd.IntVar, len(ms))
	for i, m := range ms {
		dom := base
		if i < len(partials) && partials[i] != nil {
			dom = dom.Intersect(fd.DomainOf(partials[i]...))
			if dom.IsEmpty() {
				// The constraint that produced the value still rejects the slot.
				dom = fd.DomainOf(scope.IntLow())
			}
		}
		if m == c.m.False() {
			dom = fd.DomainOf(dom.Min())
		}
		vars[i] = c.m.IntVarOf(slotName(d, i)+".ref", dom)
		if err := c.nullWhenAbsent(m, vars[i]); err != nil {
			return err
		}
	}
	c.sm.refs[ref] = vars
	return nil
}

func (c *compiler) entityRefs(ref *ast.Ref) error {
	d, target := ref.Source(), ref.Target()
	ms := c.sm.members[d]
	targets := c.sm.members[target]
	vars := make([]*fd.IntVar, len(ms))
	for i, m := range ms {
		owner, _, _ := c.r.ConcreteAt(d, i)
		narrowed := target
		if owner != nil {
			narrowed = owner.EffectiveRef().Target()
		}
		off, _ := c.r.OffsetIn(narrowed, target)
		size := c.sizeOf(narrowed)
		name := slotName(d, i) + ".ref"
		if size == 0 {
			vars[i] = c.m.IntVarOf(name, fd.DomainOf(0))
			if err := c.post(fd.NewCompare(m, fd.OpEq, c.m.False())); err != nil {
				return err
			}
			continue
		}
		dom := fd.RangeDomain(off, off+size-1)
		if m == c.m.False() {
			dom = fd.DomainOf(off)
		}
		vars[i] = c.m.IntVarOf(name, dom)
		if err := c.nullWhenAbsent(m, vars[i]); err != nil {
			return err
		}
		if m == c.m.False() {
			continue
		}
		present := c.boolVar("present(" + name + ")")
		if err := c.post(fd.NewElement(vars[i], targets, present)); err != nil {
			return err
		}
		if err := c.implies(m, present); err != nil {
			return err
		}
	}
	c.sm.refs[ref] = vars
	return nil
}

// stringRefs stores every slot as a character vector padded with 0, a
// length, and a rank: ranks are dense (0, 1, 2, ... without gaps) and
// preserve the lexicographic order, so equal strings share a rank.
func (c *compiler) stringRefs(ref *ast.Ref) error {
	d := ref.Source()
	ms := c.sm.members[d]
	scope := c.r.Scope()
	l := scope.StringLength()
	charDom := fd.RangeDomain(scope.CharLow(), scope.CharHigh()).Add(0)

	sv := &stringVars{
		chars:   make([][]*fd.IntVar, len(ms)),
		lengths: make([]*fd.IntVar, len(ms)),
		ids:     make([]*fd.IntVar, len(ms)),
	}
	for i, m := range ms {
		name := slotName(d, i) + ".ref"
		if m == c.m.False() {
			sv.lengths[i] = c.m.Const(0)
		} else {
			sv.lengths[i] = c.m.IntVar("len("+name+")", 0, l)
		}
		sv.chars[i] = make([]*fd.IntVar, l)
		used := make([]*fd.IntVar, l)
		for j := range l {
			sv.chars[i][j] = c.m.IntVarOf(name+"["+strconv.Itoa(j)+"]", charDom)
			used[j] = c.boolVar("used(" + name + ")")
			if err := c.post(fd.NewCompareReif(used[j], sv.chars[i][j], fd.OpNe, c.m.Const(0))); err != nil {
				return err
			}
		}
		if err := c.post(fd.NewSelectN(used, sv.lengths[i])); err != nil {
			return err
		}
		if m != c.m.False() && m != c.m.True() {
			empty := c.boolVar("empty(" + name + ")")
			if err := c.post(fd.NewCompareReif(empty, sv.lengths[i], fd.OpEq, c.m.Const(0))); err != nil {
				return err
			}
			if err := c.post(fd.NewOr(m, empty)); err != nil {
				return err
			}
		}
		sv.ids[i] = c.m.IntVar("id("+name+")", 0, max(len(ms)-1, 0))
	}
	if len(ms) > 0 {
		ranks := c.m.SetVar("ids("+d.Name()+")", fd.RangeDomain(0, len(ms)-1), fd.DomainOf(0), 1, len(ms))
		if err := c.postAll(
			func() (fd.Propagator, error) { return fd.NewLexChainChannel(sv.chars, sv.ids) },
			func() (fd.Propagator, error) { return fd.NewArrayToSet(sv.ids, ranks, 0) },
			func() (fd.Propagator, error) { return fd.NewContinuous(ranks) },
		); err != nil {
			return err
		}
	}
	c.sm.strings[ref] = sv
	c.sm.refs[ref] = sv.ids
	return nil
}

// uniqueRefs keeps the references of siblings distinct, per concrete type
// whose effective reference is unique.
func (c *compiler) uniqueRefs(ref *ast.Ref) error {
	d := ref.Source()
	vars := c.sm.refs[ref]
	for _, e := range c.concretesOf(d) {
		eff := e.EffectiveRef()
		if eff == nil || !eff.Unique() {
			continue
		}
		off, _ := c.r.OffsetIn(e, d)
		window := vars[off : off+c.sizeOf(e)]
		if err := c.post(fd.NewSiblingDistinct(c.sm.parents[e], window, c.sizeOf(e.Parent()))); err != nil {
			return err
		}
	}
	return nil
}

// concretesOf returns e itself when concrete, or every concrete subtype of
// e in slot order.
func (c *compiler) concretesOf(e *ast.Entity) []*ast.Entity {
	if e.IsConcrete() {
		return []*ast.Entity{e}
	}
	var out []*ast.Entity
	for _, sub := range e.Subs() {
		out = append(out, c.concretesOf(sub)...)
	}
	return out
}
