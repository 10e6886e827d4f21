package analysis

// Scope: the number of instance slots allocated for every entity.
//
//	root      1
//	concrete  min(user scope, global high, parent scope × card high)
//	abstract  Σ scope of the direct subtypes

import "github.com/gitrdm/goclafer/pkg/ast"

func analyzeScopes(r *Result) error {
	r.scopes = make(map[*ast.Entity]int)
	inProgress := make(map[*ast.Entity]bool)

	var scopeOf func(e *ast.Entity) (int, bool)
	scopeOf = func(e *ast.Entity) (int, bool) {
		if e.IsRoot() {
			return 1, true
		}
		if s, ok := r.scopes[e]; ok {
			return s, true
		}
		if inProgress[e] {
			return 0, false
		}
		inProgress[e] = true
		defer delete(inProgress, e)

		s := 0
		if e.IsAbstract() {
			for _, sub := range e.Subs() {
				n, ok := scopeOf(sub)
				if !ok {
					return 0, false
				}
				s += n
			}
		} else {
			s, _ = r.scope.Of(e)
			if g := r.globalCards[e]; g.IsBounded() {
				s = min(s, g.High)
			}
			if c := e.Card(); c.IsBounded() {
				if ps, ok := scopeOf(e.Parent()); ok {
					s = min(s, ps*c.High)
				}
			}
		}
		r.scopes[e] = s
		return s, true
	}

	for _, e := range r.model.Entities() {
		if _, ok := scopeOf(e); !ok {
			// Only reachable through a cycle that no concrete entity breaks.
			return ast.Invariant(e, "scope depends on itself")
		}
	}
	return nil
}
