// Package skeleton checks the boolean existence skeleton of an analyzed
// model with a SAT solver before any finite-domain search runs.
//
// Every entity gets one literal, "some instance of this type exists". The
// structural rules that hold in every instance of the model become facts
// over those literals:
//
//   - a child only exists under an existing parent
//   - a parent that exists has its mandatory children
//   - an abstract type exists iff one of its subtypes does
//   - a type with scope 0 never exists, and neither does a parent whose
//     mandatory child cannot fit in the child's scope
//   - a reference to an entity type needs an existing target
//   - a group cardinality with a positive low bound needs that many child
//     types, and a group cardinality of 0 forbids every child
//
// The relaxation is sound: a skeleton that is unsatisfiable means the model
// has no instance, and a type whose literal cannot be true is dead in every
// instance. It is not complete, since constraints are ignored.
package skeleton

import (
	"fmt"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"

	"github.com/gitrdm/goclafer/pkg/analysis"
	"github.com/gitrdm/goclafer/pkg/ast"
)

const satisfiable = 1

// Fact is one structural rule applied to the skeleton.
type Fact struct {
	Entity *ast.Entity
	Rule   string
}

func (f Fact) String() string {
	if f.Entity == nil {
		return f.Rule
	}
	return f.Entity.Name() + ": " + f.Rule
}

// Report is the outcome of Check.
type Report struct {
	// Satisfiable is false when no instance of the model can exist.
	Satisfiable bool
	// Conflicts lists facts that together make the skeleton unsatisfiable.
	Conflicts []Fact
	// Dead lists the concrete entities that exist in no instance.
	Dead []*ast.Entity

	dead map[*ast.Entity]bool
}

// IsDead reports whether e exists in no instance.
func (r *Report) IsDead(e *ast.Entity) bool { return r.dead[e] }

// relaxation maps entities and facts to literals of one circuit.
type relaxation struct {
	r     *analysis.Result
	c     *logic.C
	lits  map[*ast.Entity]z.Lit
	facts map[z.Lit]Fact
	order []z.Lit
}

// Check builds the skeleton of r and solves it.
func Check(r *analysis.Result) *Report {
	x := newRelaxation(r)
	g := gini.New()
	x.c.ToCnf(g)

	rep := &Report{dead: make(map[*ast.Entity]bool)}
	g.Assume(x.order...)
	if g.Solve() != satisfiable {
		for _, why := range g.Why(nil) {
			if f, ok := x.facts[why]; ok {
				rep.Conflicts = append(rep.Conflicts, f)
			}
		}
		for _, e := range r.Model().Entities() {
			if e.IsConcrete() {
				rep.Dead = append(rep.Dead, e)
				rep.dead[e] = true
			}
		}
		return rep
	}
	rep.Satisfiable = true
	for _, e := range r.Model().Entities() {
		if !e.IsConcrete() {
			continue
		}
		g.Assume(x.order...)
		g.Assume(x.lits[e])
		if g.Solve() != satisfiable {
			rep.Dead = append(rep.Dead, e)
			rep.dead[e] = true
		}
	}
	return rep
}

func newRelaxation(r *analysis.Result) *relaxation {
	m := r.Model()
	x := &relaxation{
		r:     r,
		c:     logic.NewCCap(2 * (len(m.Entities()) + 1)),
		lits:  make(map[*ast.Entity]z.Lit, len(m.Entities())+1),
		facts: make(map[z.Lit]Fact),
	}
	root := m.Root()
	x.lits[root] = x.c.Lit()
	for _, e := range m.Entities() {
		x.lits[e] = x.c.Lit()
	}

	x.fact(root, "root exists", x.lits[root])
	for _, e := range m.Entities() {
		x.entity(e)
	}
	x.groupCard(root)
	return x
}

func (x *relaxation) fact(e *ast.Entity, rule string, m z.Lit) {
	if _, ok := x.facts[m]; ok {
		return
	}
	x.facts[m] = Fact{Entity: e, Rule: rule}
	x.order = append(x.order, m)
}

func (x *relaxation) entity(e *ast.Entity) {
	c, self := x.c, x.lits[e]
	if x.r.ScopeOf(e) == 0 {
		x.fact(e, "scope is 0", self.Not())
	}
	if e.IsAbstract() {
		subs := make([]z.Lit, len(e.Subs()))
		for i, sub := range e.Subs() {
			subs[i] = x.lits[sub]
		}
		some := c.Ors(subs...)
		x.fact(e, "exists iff a subtype exists", c.And(c.Implies(self, some), c.Implies(some, self)))
	} else {
		parent := x.lits[e.Parent()]
		x.fact(e, "needs its parent", c.Implies(self, parent))
		if lo := e.Card().Low; lo > 0 {
			x.fact(e, fmt.Sprintf("mandatory under %s", e.Parent()), c.Implies(parent, self))
			if lo > x.r.ScopeOf(e) {
				x.fact(e, fmt.Sprintf("needs %d instances per parent but scope is %d", lo, x.r.ScopeOf(e)), parent.Not())
			}
		}
		if ref := e.EffectiveRef(); ref != nil && !ref.Target().IsPrimitive() {
			x.fact(e, "needs a reference target "+ref.Target().Name(), c.Implies(self, x.lits[ref.Target()]))
		}
	}
	x.groupCard(e)
}

func (x *relaxation) groupCard(e *ast.Entity) {
	gc, ok := x.r.GroupCard(e)
	if !ok {
		return
	}
	c, self := x.c, x.lits[e]
	children := make([]z.Lit, len(e.Children()))
	for i, child := range e.Children() {
		children[i] = x.lits[child]
	}
	if gc.High == 0 {
		for _, child := range children {
			x.fact(e, "group cardinality 0", child.Not())
		}
	}
	if gc.Low > 0 {
		least := c.CardSort(children).Geq(gc.Low)
		x.fact(e, fmt.Sprintf("group cardinality needs %d child types", gc.Low), c.Implies(self, least))
	}
}
