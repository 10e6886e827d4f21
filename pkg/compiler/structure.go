package compiler

import (
	"github.com/gitrdm/goclafer/pkg/analysis"
	"github.com/gitrdm/goclafer/pkg/ast"
	"github.com/gitrdm/goclafer/pkg/fd"
)

// compileMembership allocates the membership booleans. Slots known to be
// present are fixed true; slots of entities the skeleton proved dead are
// fixed false.
func (c *compiler) compileMembership() error {
	if c.dead != nil && !c.dead.Satisfiable {
		c.m.IntVarOf("unsatisfiable skeleton", fd.EmptyDomain())
	}
	c.sm.members[c.r.Model().Root()] = []*fd.IntVar{c.m.True()}
	for _, e := range c.r.Model().Entities() {
		if !e.IsConcrete() {
			continue
		}
		n := c.sizeOf(e)
		ms := make([]*fd.IntVar, n)
		for i := range ms {
			switch {
			case c.dead != nil && c.dead.IsDead(e):
				ms[i] = c.m.False()
			case c.r.KnownMember(e, i):
				ms[i] = c.m.True()
			case len(c.r.PossibleParents(e, i)) == 0:
				ms[i] = c.m.False()
			default:
				ms[i] = c.m.BoolVar(slotName(e, i))
			}
		}
		c.sm.members[e] = ms
	}
	for _, a := range c.r.Model().Abstracts() {
		c.abstractMembers(a)
	}
	return nil
}

// abstractMembers concatenates the members of a's subtypes.
func (c *compiler) abstractMembers(a *ast.Entity) []*fd.IntVar {
	if ms, ok := c.sm.members[a]; ok {
		return ms
	}
	ms := make([]*fd.IntVar, 0, c.sizeOf(a))
	for _, sub := range a.Subs() {
		if sub.IsAbstract() {
			ms = append(ms, c.abstractMembers(sub)...)
		} else {
			ms = append(ms, c.sm.members[sub]...)
		}
	}
	c.sm.members[a] = ms
	return ms
}

// compileContainment links every concrete entity to its parent.
func (c *compiler) compileContainment() error {
	for _, e := range c.r.Model().Entities() {
		if !e.IsConcrete() {
			continue
		}
		var err error
		if c.r.FormatOf(e) == analysis.FormatParentGroup {
			err = c.parentGroup(e)
		} else {
			err = c.general(e)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// parentGroup: slot i belongs to parent i/k and is present exactly when
// that parent is.
func (c *compiler) parentGroup(e *ast.Entity) error {
	p := e.Parent()
	k, np := e.Card().Low, c.sizeOf(p)
	ms, pms := c.sm.members[e], c.sm.members[p]
	parents := make([]*fd.IntVar, len(ms))
	for i, m := range ms {
		d := fd.DomainOf(i/k, np)
		if c.r.KnownMember(e, i) {
			d = fd.DomainOf(i / k)
		}
		parents[i] = c.m.IntVarOf("parent("+slotName(e, i)+")", d)
		if err := c.post(fd.NewCompareReif(m, parents[i], fd.OpNe, c.m.Const(np))); err != nil {
			return err
		}
		if err := c.post(fd.NewCompare(m, fd.OpEq, pms[i/k])); err != nil {
			return err
		}
	}
	c.sm.parents[e] = parents
	return nil
}

// general builds the parent pointers and the per-parent child sets.
func (c *compiler) general(e *ast.Entity) error {
	p := e.Parent()
	n, np := c.sizeOf(e), c.sizeOf(p)
	ms, pms := c.sm.members[e], c.sm.members[p]

	parents := make([]*fd.IntVar, n)
	envs := make([][]int, np)
	for i, m := range ms {
		var d fd.Domain
		if m != c.m.False() {
			pp := c.r.PossibleParents(e, i)
			d = fd.DomainOf(pp...)
			for _, x := range pp {
				envs[x] = append(envs[x], i)
			}
		}
		if !c.r.KnownMember(e, i) {
			d = d.Add(np)
		}
		parents[i] = c.m.IntVarOf("parent("+slotName(e, i)+")", d)
		if err := c.post(fd.NewCompareReif(m, parents[i], fd.OpNe, c.m.Const(np))); err != nil {
			return err
		}
	}

	card := e.Card()
	hi := card.High
	if !card.IsBounded() {
		hi = max(n, card.Low)
	}
	sets := make([]*fd.SetVar, np)
	cards := make([]*fd.IntVar, np)
	for x := range sets {
		sets[x] = c.m.SetVar(e.Name()+"@"+slotName(p, x), fd.DomainOf(envs[x]...), fd.EmptyDomain(), 0, hi)
		cards[x] = sets[x].Card()
		if err := c.post(fd.NewGuardedCard(pms[x], cards[x], card.Low, hi)); err != nil {
			return err
		}
	}
	total := c.m.IntVar("#"+e.Name(), 0, n)
	if err := c.postAll(
		func() (fd.Propagator, error) { return fd.NewIntChannel(sets, parents) },
		func() (fd.Propagator, error) { return fd.NewSortedSets(sets) },
		func() (fd.Propagator, error) { return fd.NewSelectN(ms, total) },
		func() (fd.Propagator, error) { return fd.NewSum(cards, total) },
	); err != nil {
		return err
	}
	c.sm.parents[e] = parents
	c.sm.childSets[e] = sets
	return nil
}

// compileGroupCards bounds the number of child types present under every
// slot of an entity that declares a group cardinality.
func (c *compiler) compileGroupCards() error {
	m := c.r.Model()
	for _, x := range append([]*ast.Entity{m.Root()}, m.Entities()...) {
		gc, ok := c.r.GroupCard(x)
		if !ok || len(x.Children()) == 0 {
			continue
		}
		for p, member := range c.sm.members[x] {
			has := make([]*fd.IntVar, len(x.Children()))
			for j, child := range x.Children() {
				if c.r.FormatOf(child) == analysis.FormatParentGroup {
					has[j] = member
					continue
				}
				has[j] = c.boolVar("has(" + child.Name() + ")")
				if err := c.post(fd.NewCompareReif(has[j], c.sm.childSets[child][p].Card(), fd.OpGe, c.m.Const(1))); err != nil {
					return err
				}
			}
			n := c.intVar("groups("+slotName(x, p)+")", 0, len(has))
			if err := c.post(fd.NewCount(has, n)); err != nil {
				return err
			}
			if err := c.post(fd.NewGuardedCard(member, n, gc.Low, gc.High)); err != nil {
				return err
			}
		}
	}
	return nil
}

// compileAcyclic forbids containment cycles inside a type hierarchy whose
// members can contain each other. The parent pointers are viewed in the
// index space of the hierarchy's top type; slots whose parent lives
// elsewhere have no edge.
func (c *compiler) compileAcyclic() error {
	for _, top := range c.r.Model().Abstracts() {
		if top.Super() != nil || !c.recursive(top) {
			continue
		}
		n := c.sizeOf(top)
		none := c.m.Const(n)
		edges := make([]*fd.IntVar, n)
		for i := range edges {
			edges[i] = none
		}
		for i := range edges {
			e, j, ok := c.r.ConcreteAt(top, i)
			if !ok || e.Parent().IsRoot() || e.Parent().Top() != top {
				continue
			}
			poff, _ := c.r.OffsetIn(e.Parent(), top)
			np := c.sizeOf(e.Parent())
			table := make([]*fd.IntVar, np+1)
			for v := range np {
				table[v] = c.m.Const(poff + v)
			}
			table[np] = none
			edges[i] = c.intVar("edge("+slotName(e, j)+")", 0, n)
			if err := c.post(fd.NewElement(c.sm.parents[e][j], table, edges[i])); err != nil {
				return err
			}
		}
		if err := c.post(fd.NewAcyclic(edges)); err != nil {
			return err
		}
	}
	return nil
}

// recursive reports whether some concrete subtype of top has its parent in
// top's hierarchy.
func (c *compiler) recursive(top *ast.Entity) bool {
	for _, e := range c.r.Model().Entities() {
		if e.IsConcrete() && e.Top() == top && !e.Parent().IsRoot() && e.Parent().Top() == top {
			return true
		}
	}
	return false
}
