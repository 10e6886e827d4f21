package compiler

import (
	"github.com/gitrdm/goclafer/pkg/ast"
	"github.com/gitrdm/goclafer/pkg/fd"
)

// compileConstraints posts every constraint once per slot of its owner. A
// hard constraint only binds present slots. A soft constraint holds when it
// holds for every present slot; the number of soft constraints that hold
// is exposed as the soft sum.
func (c *compiler) compileConstraints() error {
	m := c.r.Model()
	for _, e := range append([]*ast.Entity{m.Root()}, m.Entities()...) {
		for _, k := range e.Constraints() {
			if err := c.compileConstraint(e, k); err != nil {
				return err
			}
		}
	}
	n := len(c.sm.softs)
	if n == 0 {
		c.sm.softSum = c.m.Const(0)
		return nil
	}
	c.sm.softSum = c.m.IntVar("soft sum", 0, n)
	return c.post(fd.NewCount(c.sm.softs, c.sm.softSum))
}

func (c *compiler) compileConstraint(e *ast.Entity, k *ast.Constraint) error {
	var holds []*fd.IntVar
	for i, member := range c.sm.members[e] {
		if member == c.m.False() {
			continue
		}
		b, err := c.compileBool(k.Expr(), &frame{owner: e, this: i})
		if err != nil {
			return err
		}
		if !k.IsSoft() {
			if err := c.implies(member, b); err != nil {
				return err
			}
			continue
		}
		if member != c.m.True() {
			absent, err := c.not(member)
			if err != nil {
				return err
			}
			if b, err = c.or(absent, b); err != nil {
				return err
			}
		}
		holds = append(holds, b)
	}
	if !k.IsSoft() {
		return nil
	}
	s := c.m.True()
	if len(holds) > 0 {
		var err error
		if s, err = c.and(holds...); err != nil {
			return err
		}
	}
	c.sm.softs = append(c.sm.softs, s)
	c.sm.softOf[k] = s
	return nil
}

// compileObjectives compiles the objectives and assertions in the context
// of the root.
func (c *compiler) compileObjectives() error {
	m := c.r.Model()
	root := &frame{owner: m.Root()}
	for _, o := range m.Objectives() {
		v, err := c.compileInt(o.Expr(), root)
		if err != nil {
			return err
		}
		c.sm.objectives = append(c.sm.objectives, v)
	}
	for _, a := range m.Assertions() {
		b, err := c.compileBool(a.Expr(), root)
		if err != nil {
			return err
		}
		c.sm.assertions = append(c.sm.assertions, b)
	}
	return nil
}
