package analysis

// Offsets: the slots of an abstract entity are the concatenation of its
// direct subtypes' slots, in declaration order. A nested abstract subtype
// contributes its own concatenation, so every concrete instance of a
// hierarchy has one position in the topmost supertype's index space.

import "github.com/gitrdm/goclafer/pkg/ast"

func analyzeOffsets(r *Result) error {
	r.offsets = make(map[*ast.Entity]int)
	for _, a := range r.model.Abstracts() {
		off := 0
		for _, sub := range a.Subs() {
			r.offsets[sub] = off
			off += r.ScopeOf(sub)
		}
		if off != r.ScopeOf(a) {
			return ast.Invariant(a, "subtype slots %d do not match scope %d", off, r.ScopeOf(a))
		}
	}
	return nil
}

// SubAt returns the direct subtype of the abstract entity a owning slot i
// of a, together with the slot inside that subtype.
func (r *Result) SubAt(a *ast.Entity, i int) (*ast.Entity, int, bool) {
	for _, sub := range a.Subs() {
		off, n := r.offsets[sub], r.ScopeOf(sub)
		if i >= off && i < off+n {
			return sub, i - off, true
		}
	}
	return nil, 0, false
}

// ConcreteAt resolves slot i of e down to a concrete entity and its slot.
func (r *Result) ConcreteAt(e *ast.Entity, i int) (*ast.Entity, int, bool) {
	for e.IsAbstract() {
		sub, j, ok := r.SubAt(e, i)
		if !ok {
			return nil, 0, false
		}
		e, i = sub, j
	}
	return e, i, i >= 0 && i < r.ScopeOf(e)
}
