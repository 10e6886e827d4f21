// Package analysis derives the static facts the compiler needs from a
// frozen model: expression types, global cardinalities, instance scopes,
// group cardinalities, storage formats, subtype offsets and partially known
// values.
//
// Analyze runs a fixed sequence of passes; each pass reads the facts of the
// ones before it and records its own on the Result. A Result is immutable
// once Analyze returns and may be shared by any number of compilations.
package analysis

import (
	"fmt"

	"github.com/gitrdm/goclafer/pkg/ast"
)

// Format is the storage strategy of a child relation.
type Format int

const (
	// FormatGeneral stores one sibling set per parent instance plus a
	// parent pointer per child instance.
	FormatGeneral Format = iota
	// FormatParentGroup is used when every parent instance owns exactly k
	// children and the child scope is k times the parent scope: child
	// instance i then belongs to parent instance i/k, statically.
	FormatParentGroup
)

func (f Format) String() string {
	if f == FormatParentGroup {
		return "parent-group"
	}
	return "general"
}

// PartialDomain is the ascending list of values a reference position can
// take. A nil PartialDomain means nothing is known statically.
type PartialDomain []int

// Result holds every fact derived by Analyze.
type Result struct {
	model *ast.Model
	scope ast.Scope

	types       map[ast.Expr]Type
	globalCards map[*ast.Entity]ast.Card
	injective   map[*ast.Ref]bool
	scopes      map[*ast.Entity]int
	groupCards  map[*ast.Entity]ast.Card
	formats     map[*ast.Entity]Format
	offsets     map[*ast.Entity]int
	known       map[*ast.Entity][]bool
	parents     map[*ast.Entity][][]int
	partialInts map[*ast.Ref][]PartialDomain
}

type pass struct {
	name string
	run  func(*Result) error
}

var passes = []pass{
	{"types", analyzeTypes},
	{"globalcard", analyzeGlobalCards},
	{"scope", analyzeScopes},
	{"groupcard", analyzeGroupCards},
	{"format", analyzeFormats},
	{"offset", analyzeOffsets},
	{"partial", analyzePartials},
}

// Analyze freezes m and derives its static facts under scope. Structural
// problems are reported as *ast.ModelInvariantError.
func Analyze(m *ast.Model, scope ast.Scope) (*Result, error) {
	if m == nil {
		return nil, fmt.Errorf("analysis: nil model")
	}
	if err := m.Freeze(); err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	if err := scope.Validate(); err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	r := &Result{model: m, scope: scope}
	for _, p := range passes {
		if err := p.run(r); err != nil {
			return nil, fmt.Errorf("analysis: %s pass: %w", p.name, err)
		}
	}
	return r, nil
}

// Model returns the analyzed model.
func (r *Result) Model() *ast.Model { return r.model }

// Scope returns the scope the model was analyzed under.
func (r *Result) Scope() ast.Scope { return r.scope }

// Type returns the type of an expression node. ThisExpr nodes are not
// recorded; their type is the entity of the enclosing context.
func (r *Result) Type(e ast.Expr) (Type, bool) {
	t, ok := r.types[e]
	return t, ok
}

// GlobalCard returns the bounds on the total number of instances of e.
func (r *Result) GlobalCard(e *ast.Entity) ast.Card { return r.globalCards[e] }

// IsGloballyInjective reports whether no two instances of the reference's
// source can ever point at the same value.
func (r *Result) IsGloballyInjective(ref *ast.Ref) bool { return r.injective[StorageRef(ref.Source())] }

// ScopeOf returns the number of instance slots allocated for e.
func (r *Result) ScopeOf(e *ast.Entity) int {
	if e.IsRoot() {
		return 1
	}
	return r.scopes[e]
}

// GroupCard returns the resolved group cardinality of e and whether one
// applies.
func (r *Result) GroupCard(e *ast.Entity) (ast.Card, bool) {
	c, ok := r.groupCards[e]
	return c, ok
}

// FormatOf returns the storage format of the concrete entity e.
func (r *Result) FormatOf(e *ast.Entity) Format { return r.formats[e] }

// Offset returns the first slot of sub inside its direct supertype.
func (r *Result) Offset(sub *ast.Entity) int { return r.offsets[sub] }

// OffsetIn returns the first slot of e inside the index space of its
// supertype anc, walking every intermediate supertype.
func (r *Result) OffsetIn(e, anc *ast.Entity) (int, bool) {
	off := 0
	for t := e; t != nil; t = t.Super() {
		if t == anc {
			return off, true
		}
		off += r.offsets[t]
	}
	return 0, false
}

// KnownMember reports whether slot i of e holds an instance in every
// solution.
func (r *Result) KnownMember(e *ast.Entity, i int) bool {
	if e.IsRoot() {
		return i == 0
	}
	k := r.known[e]
	return i >= 0 && i < len(k) && k[i]
}

// PossibleParents returns the parent slots slot i of the concrete entity e
// can belong to, ascending. An empty result means the slot never holds an
// instance.
func (r *Result) PossibleParents(e *ast.Entity, i int) []int {
	ps := r.parents[e]
	if i < 0 || i >= len(ps) {
		return nil
	}
	return ps[i]
}

// PartialInts returns one PartialDomain per slot of the integer
// reference's storage source. It returns nil for references to anything
// other than ast.IntType.
func (r *Result) PartialInts(ref *ast.Ref) []PartialDomain {
	return r.partialInts[StorageRef(ref.Source())]
}

// StorageRef returns the topmost reference declaration visible from e. A
// reference redeclared on a subtype is stored in the variables of the
// declaration it narrows.
func StorageRef(e *ast.Entity) *ast.Ref {
	var top *ast.Ref
	for t := e; t != nil; t = t.Super() {
		if t.Ref() != nil {
			top = t.Ref()
		}
	}
	return top
}

// concretes returns every concrete entity of the model in creation order.
func (r *Result) concretes() []*ast.Entity {
	var out []*ast.Entity
	for _, e := range r.model.Entities() {
		if e.IsConcrete() {
			out = append(out, e)
		}
	}
	return out
}
