package analysis

// Format: picks the storage strategy of every concrete entity's relation to
// its parent. See FormatParentGroup.

import "github.com/gitrdm/goclafer/pkg/ast"

func analyzeFormats(r *Result) error {
	r.formats = make(map[*ast.Entity]Format)
	for _, e := range r.concretes() {
		r.formats[e] = FormatGeneral
		c := e.Card()
		if !c.IsExact() || c.Low < 1 {
			continue
		}
		if r.ScopeOf(e) == c.Low*r.ScopeOf(e.Parent()) && !e.IsSubOf(e.Parent()) {
			r.formats[e] = FormatParentGroup
		}
	}
	return nil
}
