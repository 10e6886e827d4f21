package analysis

// Group cardinality: how many of an entity's child types may be present in
// one instance. An unbounded high is clamped to the number of children; an
// entity without a declared group cardinality has no constraint.

import "github.com/gitrdm/goclafer/pkg/ast"

func analyzeGroupCards(r *Result) error {
	r.groupCards = make(map[*ast.Entity]ast.Card)
	for _, e := range append([]*ast.Entity{r.model.Root()}, r.model.Entities()...) {
		gc, ok := e.GroupCard()
		if !ok {
			continue
		}
		n := len(e.Children())
		if !gc.IsBounded() || gc.High > n {
			gc.High = n
		}
		if gc.Low == 0 && gc.High == n {
			// 0..n never rejects anything.
			continue
		}
		r.groupCards[e] = gc
	}
	return nil
}
