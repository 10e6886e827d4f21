// Model, the root of an entity tree, together with its objectives,
// assertions and the Freeze/Validate lifecycle.

package ast

import (
	"errors"
	"fmt"
)

// Model is a frozen-after-build tree of entities.
//
// A model has an implicit root entity (one instance, always present) that
// contains every top-level concrete entity. Abstract entities live beside
// the tree: they have no parent and only exist through their subtypes.
//
// Builder methods never return errors; misuse is recorded and reported by
// Freeze, which every consumer (the analyzer in particular) calls before
// reading the model. After Freeze the model must not change.
//
// Thread safety: a frozen model may be read concurrently.
type Model struct {
	root       *Entity
	abstracts  []*Entity
	entities   []*Entity // every non-root entity in creation order
	objectives []*Objective
	assertions []*Assertion

	errs   []error
	frozen bool
}

// Objective asks the optimizer to minimize or maximize an integer
// expression evaluated at the root.
type Objective struct {
	expr     Expr
	maximize bool
}

// Expr returns the objective expression.
func (o *Objective) Expr() Expr { return o.expr }

// Maximize reports the optimization direction.
func (o *Objective) Maximize() bool { return o.maximize }

func (o *Objective) String() string {
	if o.maximize {
		return "max " + o.expr.String()
	}
	return "min " + o.expr.String()
}

// Assertion is a boolean expression evaluated at the root whose truth is
// reported with every instance. It never restricts the search.
type Assertion struct {
	expr Expr
}

// Expr returns the asserted expression.
func (a *Assertion) Expr() Expr { return a.expr }

func (a *Assertion) String() string { return "assert " + a.expr.String() }

// NewModel creates an empty model.
func NewModel() *Model {
	m := &Model{}
	m.root = &Entity{name: "#root#", kind: KindRoot, model: m, card: Mandatory}
	return m
}

// Root returns the implicit root entity.
func (m *Model) Root() *Entity { return m.root }

// AddChild declares a top-level concrete entity.
func (m *Model) AddChild(name string) *Entity { return m.root.AddChild(name) }

// AddAbstract declares an abstract entity.
func (m *Model) AddAbstract(name string) *Entity {
	a := m.newEntity(name, KindAbstract)
	m.abstracts = append(m.abstracts, a)
	return a
}

// AddConstraint adds a constraint evaluated once, at the root.
func (m *Model) AddConstraint(expr Expr) *Constraint { return m.root.AddConstraint(expr) }

// Minimize registers an objective to minimize.
func (m *Model) Minimize(expr Expr) *Objective { return m.addObjective(expr, false) }

// Maximize registers an objective to maximize.
func (m *Model) Maximize(expr Expr) *Objective { return m.addObjective(expr, true) }

func (m *Model) addObjective(expr Expr, maximize bool) *Objective {
	o := &Objective{expr: expr, maximize: maximize}
	if expr == nil {
		m.fail(nil, "nil objective")
		return o
	}
	m.objectives = append(m.objectives, o)
	m.check(nil)
	return o
}

// AddAssertion registers an assertion.
func (m *Model) AddAssertion(expr Expr) *Assertion {
	a := &Assertion{expr: expr}
	if expr == nil {
		m.fail(nil, "nil assertion")
		return a
	}
	m.assertions = append(m.assertions, a)
	m.check(nil)
	return a
}

// Abstracts returns the abstract entities in declaration order.
func (m *Model) Abstracts() []*Entity { return m.abstracts }

// Entities returns every entity except the root, in creation order.
func (m *Model) Entities() []*Entity { return m.entities }

// Objectives returns the registered objectives.
func (m *Model) Objectives() []*Objective { return m.objectives }

// Assertions returns the registered assertions.
func (m *Model) Assertions() []*Assertion { return m.assertions }

// Lookup finds an entity by name.
func (m *Model) Lookup(name string) (*Entity, bool) {
	for _, e := range m.entities {
		if e.name == name {
			return e, true
		}
	}
	return nil, false
}

// Frozen reports whether Freeze succeeded.
func (m *Model) Frozen() bool { return m.frozen }

// Freeze validates the model and marks it immutable. It is idempotent.
func (m *Model) Freeze() error {
	if m.frozen {
		return nil
	}
	if err := m.Validate(); err != nil {
		return err
	}
	m.frozen = true
	return nil
}

// Validate reports builder misuse, duplicate entity names and references
// refined incorrectly by a subtype (see ValidateRefinement).
func (m *Model) Validate() error {
	errs := append([]error(nil), m.errs...)
	seen := make(map[string]bool, len(m.entities))
	for _, e := range m.entities {
		if seen[e.name] {
			errs = append(errs, Invariant(e, "duplicate entity name"))
		}
		seen[e.name] = true
	}
	for _, e := range m.entities {
		if err := ValidateRefinement(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ValidateRefinement checks the "a subtype may narrow but never relax"
// rule for e's reference:
//   - a reference re-declared on a subtype must target the inherited
//     target or one of its subtypes (primitives must match exactly)
//   - a unique inherited reference cannot be re-declared as non-unique
func ValidateRefinement(e *Entity) error {
	if e.ref == nil || e.super == nil {
		return nil
	}
	inherited := e.super.EffectiveRef()
	if inherited == nil {
		return nil
	}
	own := e.ref
	switch {
	case own.target.IsPrimitive() || inherited.target.IsPrimitive():
		if own.target != inherited.target {
			return Invariant(e, "ref to %s cannot refine inherited ref to %s", own.target, inherited.target)
		}
	case !own.target.IsSubOf(inherited.target):
		return Invariant(e, "ref to %s does not narrow inherited ref to %s", own.target, inherited.target)
	}
	if inherited.unique && !own.unique {
		return Invariant(e, "ref relaxes uniqueness inherited from %s", inherited.source)
	}
	return nil
}

func (m *Model) newEntity(name string, kind Kind) *Entity {
	e := &Entity{name: name, kind: kind, model: m}
	m.entities = append(m.entities, e)
	m.check(e)
	return e
}

// check rejects mutations of a frozen model.
func (m *Model) check(e *Entity) {
	if m != nil && m.frozen {
		panic(fmt.Sprintf("ast: %s modified after Freeze", e))
	}
}

func (m *Model) fail(e *Entity, format string, args ...any) {
	if m == nil {
		panic(fmt.Sprintf("ast: %s: %s", e, fmt.Sprintf(format, args...)))
	}
	m.errs = append(m.errs, Invariant(e, format, args...))
}
