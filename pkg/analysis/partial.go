package analysis

// Partial values. Two facts are derived statically:
//
// Partial solution. Siblings are stored in parent order (the children of
// parent slot 0 first, then those of slot 1, ...) and the instances of an
// entity always form a prefix of its slots. From the lower cardinality of
// the parents known to exist, every slot learns whether it always holds an
// instance and which parent slots it can belong to.
//
// Partial integers. A hard constraint of the shape this.path.ref = k (or
// k = this.path.ref) fixes the integer reference of every instance reached
// through path. Where the reached slots are known precisely, they get {k}.
// Otherwise the constants collected for a reference become its domain only
// if the constraints cover every instance of the reference's source type:
// a type is covered when some constraint applies to it directly, or when
// its topmost container is abstract and every subtype is covered by the
// constraints whose path starts from that subtype.

import (
	"slices"

	"github.com/gitrdm/goclafer/pkg/ast"
)

type partialFact struct {
	path      []*ast.Entity // upcast types, innermost first
	value     int
	positions []int // slots of the reference's storage source
}

type partialAnalysis struct {
	r          *Result
	inProgress map[*ast.Entity]bool
	facts      map[*ast.Ref][]partialFact
}

func analyzePartials(r *Result) error {
	pa := &partialAnalysis{
		r:          r,
		inProgress: make(map[*ast.Entity]bool),
		facts:      make(map[*ast.Ref][]partialFact),
	}
	r.known = make(map[*ast.Entity][]bool)
	r.parents = make(map[*ast.Entity][][]int)
	for _, e := range r.model.Entities() {
		pa.knownOf(e)
	}
	for _, e := range r.concretes() {
		r.parents[e] = pa.possibleParents(e)
	}

	owners := append([]*ast.Entity{r.model.Root()}, r.model.Entities()...)
	for _, owner := range owners {
		for _, c := range owner.Constraints() {
			if !c.IsSoft() {
				pa.collect(owner, c.Expr())
			}
		}
	}

	r.partialInts = make(map[*ast.Ref][]PartialDomain)
	for _, e := range r.model.Entities() {
		ref := e.Ref()
		if ref == nil || StorageRef(e) != ref || ref.Target() != ast.IntType {
			continue
		}
		r.partialInts[ref] = pa.domains(ref)
	}
	return nil
}

// knownOf returns, per slot of e, whether the slot holds an instance in
// every solution.
func (pa *partialAnalysis) knownOf(e *ast.Entity) []bool {
	r := pa.r
	if e.IsRoot() {
		return []bool{true}
	}
	if k, ok := r.known[e]; ok {
		return k
	}
	n := r.ScopeOf(e)
	known := make([]bool, n)
	if pa.inProgress[e] {
		return known
	}
	pa.inProgress[e] = true
	defer delete(pa.inProgress, e)

	switch {
	case e.IsAbstract():
		for _, sub := range e.Subs() {
			copy(known[r.offsets[sub]:], pa.knownOf(sub))
		}
	case r.formats[e] == FormatParentGroup:
		kp, k := pa.knownOf(e.Parent()), e.Card().Low
		for i := range known {
			known[i] = kp[i/k]
		}
	default:
		lo := 0
		for _, present := range pa.knownOf(e.Parent()) {
			if present {
				lo += e.Card().Low
			}
		}
		for i := 0; i < n && i < lo; i++ {
			known[i] = true
		}
	}
	r.known[e] = known
	return known
}

func (pa *partialAnalysis) possibleParents(e *ast.Entity) [][]int {
	r := pa.r
	n, np := r.ScopeOf(e), r.ScopeOf(e.Parent())
	out := make([][]int, n)
	if r.formats[e] == FormatParentGroup {
		k := e.Card().Low
		for i := range out {
			out[i] = []int{i / k}
		}
		return out
	}
	kp := pa.knownOf(e.Parent())
	hi := n
	if c := e.Card(); c.IsBounded() {
		hi = min(hi, c.High)
	}
	// Children of parent q occupy [start(q), start(q)+count(q)).
	minStart := make([]int, np)
	maxEnd := make([]int, np)
	lo, end := 0, 0
	for q := 0; q < np; q++ {
		minStart[q] = lo
		end += hi
		maxEnd[q] = end
		if kp[q] {
			lo += e.Card().Low
		}
	}
	for i := range out {
		for q := 0; q < np; q++ {
			if minStart[q] <= i && i < maxEnd[q] {
				out[i] = append(out[i], q)
			}
		}
	}
	return out
}

// collect records the fact expressed by expr when it has the
// this.path.ref = constant shape.
func (pa *partialAnalysis) collect(owner *ast.Entity, expr ast.Expr) {
	cmp, ok := expr.(*ast.Compare)
	if !ok || cmp.Op != ast.OpEqual {
		return
	}
	deref, k, ok := refEqualsConstant(cmp)
	if !ok {
		return
	}
	loc, ok := pa.locate(owner, deref.Deref)
	if !ok {
		return
	}
	ref := StorageRef(loc.typ)
	if ref == nil || ref.Target() != ast.IntType {
		return
	}
	off, _ := pa.r.OffsetIn(loc.typ, ref.Source())
	pos := make([]int, len(loc.pos))
	for i, p := range loc.pos {
		pos[i] = p + off
	}
	pa.facts[ref] = append(pa.facts[ref], partialFact{path: loc.path, value: k, positions: pos})
}

func refEqualsConstant(cmp *ast.Compare) (*ast.JoinRefExpr, int, bool) {
	if j, ok := cmp.Left.(*ast.JoinRefExpr); ok {
		if c, ok := cmp.Right.(*ast.Constant); ok {
			return j, c.Value, true
		}
	}
	if j, ok := cmp.Right.(*ast.JoinRefExpr); ok {
		if c, ok := cmp.Left.(*ast.Constant); ok {
			return j, c.Value, true
		}
	}
	return nil, 0, false
}

// located is a set expression resolved to the slots it certainly covers.
type located struct {
	typ    *ast.Entity
	pos    []int
	path   []*ast.Entity
	global bool
}

func (pa *partialAnalysis) locate(owner *ast.Entity, e ast.Expr) (located, bool) {
	r := pa.r
	switch e := e.(type) {
	case *ast.ThisExpr:
		return located{typ: owner, pos: allSlots(r.ScopeOf(owner))}, true
	case *ast.GlobalExpr:
		// Only a constraint that is certainly evaluated says anything
		// about every instance.
		if !slices.Contains(pa.knownOf(owner), true) {
			return located{}, false
		}
		return located{typ: e.Entity, pos: allSlots(r.ScopeOf(e.Entity)), global: true}, true
	case *ast.UpcastExpr:
		l, ok := pa.locate(owner, e.Base)
		if !ok {
			return located{}, false
		}
		return pa.upcast(l, e.Target), true
	case *ast.JoinExpr:
		l, ok := pa.locate(owner, e.Left)
		if !ok {
			return located{}, false
		}
		l = pa.upcast(l, e.Child.Parent())
		in := make(map[int]bool, len(l.pos))
		for _, p := range l.pos {
			in[p] = true
		}
		var pos []int
		for i, ps := range r.parents[e.Child] {
			if allIn(ps, in) {
				pos = append(pos, i)
			}
		}
		l.typ, l.pos = e.Child, pos
		return l, true
	}
	return located{}, false
}

func (pa *partialAnalysis) upcast(l located, to *ast.Entity) located {
	if l.typ == to {
		return l
	}
	off, _ := pa.r.OffsetIn(l.typ, to)
	pos := make([]int, len(l.pos))
	for i, p := range l.pos {
		pos[i] = p + off
	}
	out := located{typ: to, pos: pos, global: l.global}
	if !l.global {
		out.path = append(slices.Clone(l.path), UpcastChain(l.typ, to)...)
	}
	return out
}

func (pa *partialAnalysis) domains(ref *ast.Ref) []PartialDomain {
	facts := pa.facts[ref]
	out := make([]PartialDomain, pa.r.ScopeOf(ref.Source()))
	if len(facts) == 0 {
		return out
	}
	paths := make([][]*ast.Entity, len(facts))
	var full []int
	perPos := make([][]int, len(out))
	for i, f := range facts {
		paths[i] = f.path
		full = append(full, f.value)
		for _, p := range f.positions {
			if p >= 0 && p < len(out) {
				perPos[p] = append(perPos[p], f.value)
			}
		}
	}
	covered := covers(ref.Source(), paths)
	for i := range out {
		switch {
		case perPos[i] != nil:
			out[i] = sortedSet(perPos[i])
		case covered:
			out[i] = sortedSet(full)
		}
	}
	return out
}

// covers reports whether constraints reaching t through paths apply to
// every instance of t.
func covers(t *ast.Entity, paths [][]*ast.Entity) bool {
	if len(paths) == 0 {
		return false
	}
	for _, p := range paths {
		if len(p) == 0 || p[0] == t {
			return true
		}
	}
	top := topContainer(t)
	if !top.IsAbstract() {
		return false
	}
	for _, sub := range top.Subs() {
		var trimmed [][]*ast.Entity
		for _, p := range paths {
			if p[len(p)-1] == sub {
				trimmed = append(trimmed, p[:len(p)-1])
			}
		}
		if !covers(sub, trimmed) {
			return false
		}
	}
	return true
}

// topContainer walks containment parents up to the entity directly below
// the root (or an abstract entity, which has no parent).
func topContainer(t *ast.Entity) *ast.Entity {
	for t.Parent() != nil && !t.Parent().IsRoot() {
		t = t.Parent()
	}
	return t
}

func allSlots(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func allIn(vs []int, in map[int]bool) bool {
	for _, v := range vs {
		if !in[v] {
			return false
		}
	}
	return true
}

func sortedSet(vs []int) PartialDomain {
	out := slices.Clone(vs)
	slices.Sort(out)
	return slices.Compact(out)
}
