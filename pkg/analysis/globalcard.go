package analysis

// Global cardinality: bounds on the total number of instances of every
// entity across the whole model, and from them the references that are
// injective model-wide.

import "github.com/gitrdm/goclafer/pkg/ast"

func analyzeGlobalCards(r *Result) error {
	r.globalCards = make(map[*ast.Entity]ast.Card)
	r.injective = make(map[*ast.Ref]bool)
	inProgress := make(map[*ast.Entity]bool)

	var global func(e *ast.Entity) ast.Card
	global = func(e *ast.Entity) ast.Card {
		if c, ok := r.globalCards[e]; ok {
			return c
		}
		if e.IsRoot() {
			return ast.Mandatory
		}
		if inProgress[e] {
			// Recursive containment: nothing bounds the total.
			return ast.Many
		}
		inProgress[e] = true
		defer delete(inProgress, e)

		var c ast.Card
		if e.IsAbstract() {
			for _, sub := range e.Subs() {
				c = addCards(c, global(sub))
			}
		} else {
			c = mulCards(global(e.Parent()), e.Card())
		}
		r.globalCards[e] = c
		return c
	}
	for _, e := range r.model.Entities() {
		global(e)
	}
	r.globalCards[r.model.Root()] = ast.Mandatory

	for _, e := range r.model.Entities() {
		ref := e.Ref()
		if ref == nil || StorageRef(e) != ref {
			continue
		}
		r.injective[ref] = ref.Unique() && e.IsConcrete() && boundedBy(global(e.Parent()), 1)
	}
	return nil
}

func boundedBy(c ast.Card, n int) bool { return c.IsBounded() && c.High <= n }

func addCards(a, b ast.Card) ast.Card {
	c := ast.Card{Low: a.Low + b.Low}
	if a.IsBounded() && b.IsBounded() {
		c.High = a.High + b.High
	} else {
		c.High = ast.Unbounded
	}
	return c
}

func mulCards(a, b ast.Card) ast.Card {
	c := ast.Card{Low: a.Low * b.Low}
	switch {
	case a.High == 0 || b.High == 0:
		c.High = 0
	case a.IsBounded() && b.IsBounded():
		c.High = a.High * b.High
	default:
		c.High = ast.Unbounded
	}
	return c
}
