// Package ast defines the structural model compiled by goclafer: a tree of
// typed, cardinality-constrained entities with references and constraints.
package ast

import (
	"fmt"
	"strconv"
)

// Unbounded is the upper bound of a cardinality with no limit.
const Unbounded = -1

// Card is an inclusive multiplicity interval. High may be Unbounded.
type Card struct {
	Low  int
	High int
}

// Common cardinalities.
var (
	Mandatory = Card{1, 1}
	Optional  = Card{0, 1}
	Many      = Card{0, Unbounded}
	OneOrMore = Card{1, Unbounded}
)

// Exactly returns the cardinality [n, n].
func Exactly(n int) Card { return Card{n, n} }

// IsBounded reports whether the interval has a finite upper bound.
func (c Card) IsBounded() bool { return c.High != Unbounded }

// IsExact reports whether Low == High.
func (c Card) IsExact() bool { return c.High == c.Low }

// Contains reports whether n lies inside the interval.
func (c Card) Contains(n int) bool {
	return n >= c.Low && (c.High == Unbounded || n <= c.High)
}

// Valid reports whether the interval is well formed.
func (c Card) Valid() bool {
	return c.Low >= 0 && (c.High == Unbounded || c.High >= c.Low)
}

func (c Card) String() string {
	if c.High == Unbounded {
		return strconv.Itoa(c.Low) + "..*"
	}
	return fmt.Sprintf("%d..%d", c.Low, c.High)
}

// Kind classifies an Entity.
type Kind int

const (
	// KindConcrete entities have instances of their own.
	KindConcrete Kind = iota
	// KindAbstract entities only have instances through their subtypes.
	KindAbstract
	// KindRoot is the implicit single-instance container of a model.
	KindRoot
	// KindInt is the primitive integer type, usable only as a ref target.
	KindInt
	// KindString is the primitive string type, usable only as a ref target.
	KindString
)

func (k Kind) String() string {
	return [...]string{"concrete", "abstract", "root", "int", "string"}[k]
}

// Primitive ref targets. They are shared by every model and never mutated.
var (
	IntType    = &Entity{name: "int", kind: KindInt}
	StringType = &Entity{name: "string", kind: KindString}
)

// Entity is a named type in the structural hierarchy.
//
// Entities are created by a Model's builder methods, then frozen by
// Model.Freeze. Builder misuse is recorded on the model and reported by
// Freeze rather than panicking, so construction can be chained.
type Entity struct {
	name   string
	kind   Kind
	model  *Model
	super  *Entity
	subs   []*Entity
	parent *Entity

	card        Card
	groupCard   Card
	hasGroup    bool
	ref         *Ref
	children    []*Entity
	constraints []*Constraint
}

// Ref is a reference from every instance of Source to a value of Target
// (another entity, or IntType/StringType).
type Ref struct {
	source *Entity
	target *Entity
	unique bool
}

// Source returns the entity declaring the reference.
func (r *Ref) Source() *Entity { return r.source }

// Target returns the referenced type.
func (r *Ref) Target() *Entity { return r.target }

// Unique reports whether siblings must reference distinct values.
func (r *Ref) Unique() bool { return r.unique }

func (r *Ref) String() string {
	arrow := "->"
	if r.unique {
		arrow = "->>"
	}
	return r.source.name + " " + arrow + " " + r.target.name
}

// Constraint is a boolean expression evaluated for every instance of its
// owner. A soft constraint may be violated; violations are counted.
type Constraint struct {
	owner *Entity
	expr  Expr
	soft  bool
}

// Owner returns the entity the constraint is evaluated for.
func (c *Constraint) Owner() *Entity { return c.owner }

// Expr returns the constraint body.
func (c *Constraint) Expr() Expr { return c.expr }

// IsSoft reports whether violations are tolerated.
func (c *Constraint) IsSoft() bool { return c.soft }

func (c *Constraint) String() string {
	if c.soft {
		return c.owner.name + " (soft): " + c.expr.String()
	}
	return c.owner.name + ": " + c.expr.String()
}

func (e *Entity) Name() string   { return e.name }
func (e *Entity) String() string { return e.name }
func (e *Entity) Kind() Kind     { return e.kind }

// IsAbstract reports whether e only has instances through subtypes.
func (e *Entity) IsAbstract() bool { return e.kind == KindAbstract }

// IsConcrete reports whether e is a concrete entity.
func (e *Entity) IsConcrete() bool { return e.kind == KindConcrete }

// IsRoot reports whether e is the model root.
func (e *Entity) IsRoot() bool { return e.kind == KindRoot }

// IsPrimitive reports whether e is IntType or StringType.
func (e *Entity) IsPrimitive() bool { return e.kind == KindInt || e.kind == KindString }

// Super returns the supertype, or nil.
func (e *Entity) Super() *Entity { return e.super }

// Subs returns the direct subtypes in declaration order.
func (e *Entity) Subs() []*Entity { return e.subs }

// Parent returns the containing entity. Top-level concrete entities are
// contained by the root; abstract entities, the root and primitives have
// no parent.
func (e *Entity) Parent() *Entity { return e.parent }

// Card returns the multiplicity of e under each parent instance.
func (e *Entity) Card() Card { return e.card }

// GroupCard returns the bound on how many child types of e may be present
// and whether one was declared.
func (e *Entity) GroupCard() (Card, bool) { return e.groupCard, e.hasGroup }

// Ref returns the reference declared on e itself, or nil.
func (e *Entity) Ref() *Ref { return e.ref }

// EffectiveRef returns the nearest reference declared on e or one of its
// supertypes, or nil.
func (e *Entity) EffectiveRef() *Ref {
	for t := e; t != nil; t = t.super {
		if t.ref != nil {
			return t.ref
		}
	}
	return nil
}

// Children returns the contained entities in declaration order.
func (e *Entity) Children() []*Entity { return e.children }

// Constraints returns the constraints evaluated for each instance of e.
func (e *Entity) Constraints() []*Constraint { return e.constraints }

// IsSubOf reports whether e equals t or transitively extends it.
func (e *Entity) IsSubOf(t *Entity) bool {
	for x := e; x != nil; x = x.super {
		if x == t {
			return true
		}
	}
	return false
}

// Top returns the topmost supertype of e (e itself without a supertype).
func (e *Entity) Top() *Entity {
	t := e
	for t.super != nil {
		t = t.super
	}
	return t
}

// AddChild declares a concrete child type of e with cardinality 0..*.
func (e *Entity) AddChild(name string) *Entity {
	if e.model == nil || e.IsPrimitive() {
		panic("ast: AddChild on a primitive type")
	}
	c := e.model.newEntity(name, KindConcrete)
	c.parent = e
	c.card = Many
	e.children = append(e.children, c)
	e.model.check(e)
	return c
}

// Extending makes e a subtype of super. super must be abstract.
func (e *Entity) Extending(super *Entity) *Entity {
	switch {
	case e.super != nil:
		e.model.fail(e, "already extends %s", e.super.name)
	case super == nil || super.kind != KindAbstract:
		e.model.fail(e, "can only extend an abstract entity")
	case super.IsSubOf(e):
		e.model.fail(e, "extending %s creates an inheritance cycle", super.name)
	default:
		e.super = super
		super.subs = append(super.subs, e)
	}
	e.model.check(e)
	return e
}

// WithCard sets the multiplicity of e under each parent instance.
func (e *Entity) WithCard(low, high int) *Entity { return e.WithCardOf(Card{low, high}) }

// WithCardOf sets the multiplicity of e under each parent instance.
func (e *Entity) WithCardOf(c Card) *Entity {
	if !c.Valid() {
		e.model.fail(e, "invalid cardinality %s", c)
	}
	if e.kind != KindConcrete {
		e.model.fail(e, "only concrete entities have a cardinality")
	}
	e.card = c
	e.model.check(e)
	return e
}

// WithGroupCard bounds how many of e's child types may be present in each
// instance of e.
func (e *Entity) WithGroupCard(low, high int) *Entity {
	c := Card{low, high}
	if !c.Valid() {
		e.model.fail(e, "invalid group cardinality %s", c)
	}
	e.groupCard, e.hasGroup = c, true
	e.model.check(e)
	return e
}

// RefTo declares a reference from e to target.
func (e *Entity) RefTo(target *Entity) *Entity { return e.refTo(target, false) }

// RefToUnique declares a reference whose values are distinct among
// siblings.
func (e *Entity) RefToUnique(target *Entity) *Entity { return e.refTo(target, true) }

func (e *Entity) refTo(target *Entity, unique bool) *Entity {
	switch {
	case e.ref != nil:
		e.model.fail(e, "already has a ref")
	case target == nil || target.kind == KindRoot:
		e.model.fail(e, "invalid ref target")
	default:
		e.ref = &Ref{source: e, target: target, unique: unique}
	}
	e.model.check(e)
	return e
}

// AddConstraint adds a hard constraint evaluated for every instance of e.
func (e *Entity) AddConstraint(expr Expr) *Constraint { return e.addConstraint(expr, false) }

// AddSoftConstraint adds a constraint whose violations are counted instead
// of forbidden.
func (e *Entity) AddSoftConstraint(expr Expr) *Constraint { return e.addConstraint(expr, true) }

func (e *Entity) addConstraint(expr Expr, soft bool) *Constraint {
	c := &Constraint{owner: e, expr: expr, soft: soft}
	if expr == nil {
		e.model.fail(e, "nil constraint")
		return c
	}
	e.constraints = append(e.constraints, c)
	e.model.check(e)
	return c
}
