package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gitrdm/goclafer/internal/skeleton"
	"github.com/gitrdm/goclafer/pkg/analysis"
	"github.com/gitrdm/goclafer/pkg/ast"
	"github.com/gitrdm/goclafer/pkg/fd"
)

// stringVars is the storage of one string reference: per slot a padded
// character vector (0 past the end), a length and the dense rank of the
// value among all slots.
type stringVars struct {
	chars   [][]*fd.IntVar
	lengths []*fd.IntVar
	ids     []*fd.IntVar
}

// SolutionMap links the entities of an analyzed model to the variables of
// the compiled network and reads instances back from a solved store.
type SolutionMap struct {
	r     *analysis.Result
	model *fd.Model

	members   map[*ast.Entity][]*fd.IntVar
	parents   map[*ast.Entity][]*fd.IntVar
	childSets map[*ast.Entity][]*fd.SetVar
	refs      map[*ast.Ref][]*fd.IntVar
	strings   map[*ast.Ref]*stringVars

	softs      []*fd.IntVar
	softOf     map[*ast.Constraint]*fd.IntVar
	softSum    *fd.IntVar
	objectives []*fd.IntVar
	assertions []*fd.IntVar

	skeleton *skeleton.Report
}

func newSolutionMap(r *analysis.Result, m *fd.Model) *SolutionMap {
	return &SolutionMap{
		r:         r,
		model:     m,
		members:   make(map[*ast.Entity][]*fd.IntVar),
		parents:   make(map[*ast.Entity][]*fd.IntVar),
		childSets: make(map[*ast.Entity][]*fd.SetVar),
		refs:      make(map[*ast.Ref][]*fd.IntVar),
		strings:   make(map[*ast.Ref]*stringVars),
		softOf:    make(map[*ast.Constraint]*fd.IntVar),
	}
}

// Model returns the compiled constraint network.
func (sm *SolutionMap) Model() *fd.Model { return sm.model }

// Analysis returns the analysis the network was compiled from.
func (sm *SolutionMap) Analysis() *analysis.Result { return sm.r }

// Skeleton returns the existence pre-check report, or nil when the check
// was disabled.
func (sm *SolutionMap) Skeleton() *skeleton.Report { return sm.skeleton }

// Members returns the membership booleans of e, one per slot.
func (sm *SolutionMap) Members(e *ast.Entity) []*fd.IntVar { return sm.members[e] }

// Parents returns the parent pointers of the concrete entity e.
func (sm *SolutionMap) Parents(e *ast.Entity) []*fd.IntVar { return sm.parents[e] }

// ChildSets returns the per-parent child sets of e, or nil when e uses the
// parent-group format.
func (sm *SolutionMap) ChildSets(e *ast.Entity) []*fd.SetVar { return sm.childSets[e] }

// Refs returns the reference variables of the storage reference of e: one
// per slot of the declaring type. String references return their ranks.
func (sm *SolutionMap) Refs(e *ast.Entity) []*fd.IntVar {
	ref := analysis.StorageRef(e)
	if ref == nil {
		return nil
	}
	return sm.refs[ref]
}

// SoftSum returns the number of satisfied soft constraints.
func (sm *SolutionMap) SoftSum() *fd.IntVar { return sm.softSum }

// Soft returns the satisfaction flag of a soft constraint.
func (sm *SolutionMap) Soft(c *ast.Constraint) (*fd.IntVar, bool) {
	v, ok := sm.softOf[c]
	return v, ok
}

// Objectives returns one variable per model objective.
func (sm *SolutionMap) Objectives() []*fd.IntVar { return sm.objectives }

// Assertions returns one reified boolean per model assertion.
func (sm *SolutionMap) Assertions() []*fd.IntVar { return sm.assertions }

// RefValue is the value of an instance's reference.
type RefValue struct {
	Int  int
	Text string
	// Target and Index locate the referenced instance for references to
	// entities.
	Target *ast.Entity
	Index  int

	text bool
}

func (v *RefValue) String() string {
	switch {
	case v.Target != nil:
		return fmt.Sprintf("%s#%d", v.Target.Name(), v.Index)
	case v.text:
		return strconv.Quote(v.Text)
	}
	return strconv.Itoa(v.Int)
}

// Instance is one present slot of a concrete entity.
type Instance struct {
	Entity   *ast.Entity
	Index    int
	Ref      *RefValue
	Children []*Instance
}

// Name returns the instance label, e.g. "Cost#1".
func (in *Instance) Name() string { return fmt.Sprintf("%s#%d", in.Entity.Name(), in.Index) }

// Solution is one instance of the model.
type Solution struct {
	// Roots are the instances of the root's children.
	Roots      []*Instance
	SoftSum    int
	Objectives []int
	Assertions []bool
}

// All returns every instance of e or one of its subtypes, depth first.
func (s *Solution) All(e *ast.Entity) []*Instance {
	var out []*Instance
	var walk func(ins []*Instance)
	walk = func(ins []*Instance) {
		for _, in := range ins {
			if in.Entity.IsSubOf(e) {
				out = append(out, in)
			}
			walk(in.Children)
		}
	}
	walk(s.Roots)
	return out
}

func (s *Solution) String() string {
	var b strings.Builder
	var write func(ins []*Instance, depth int)
	write = func(ins []*Instance, depth int) {
		for _, in := range ins {
			b.WriteString(strings.Repeat("  ", depth))
			b.WriteString(in.Name())
			if in.Ref != nil {
				b.WriteString(" = ")
				b.WriteString(in.Ref.String())
			}
			b.WriteByte('\n')
			write(in.Children, depth+1)
		}
	}
	write(s.Roots, 0)
	return b.String()
}

// Extract reads the solution held by a fully instantiated store.
func (sm *SolutionMap) Extract(st *fd.Store) *Solution {
	sol := &Solution{Roots: sm.instancesUnder(st, sm.r.Model().Root(), 0)}
	if sm.softSum != nil {
		sol.SoftSum = st.Value(sm.softSum)
	}
	for _, o := range sm.objectives {
		sol.Objectives = append(sol.Objectives, st.Value(o))
	}
	for _, a := range sm.assertions {
		sol.Assertions = append(sol.Assertions, st.IsTrue(a))
	}
	return sol
}

// instancesUnder collects the children of slot p of x, including the
// children declared on x's supertypes.
func (sm *SolutionMap) instancesUnder(st *fd.Store, x *ast.Entity, p int) []*Instance {
	var out []*Instance
	for t := x; t != nil; t = t.Super() {
		off, _ := sm.r.OffsetIn(x, t)
		for _, c := range t.Children() {
			for j, parent := range sm.parents[c] {
				if !st.IsTrue(sm.members[c][j]) || st.Value(parent) != off+p {
					continue
				}
				out = append(out, &Instance{
					Entity:   c,
					Index:    j,
					Ref:      sm.refValue(st, c, j),
					Children: sm.instancesUnder(st, c, j),
				})
			}
		}
	}
	return out
}

func (sm *SolutionMap) refValue(st *fd.Store, e *ast.Entity, i int) *RefValue {
	ref := analysis.StorageRef(e)
	if ref == nil {
		return nil
	}
	off, _ := sm.r.OffsetIn(e, ref.Source())
	slot := off + i
	switch ref.Target() {
	case ast.IntType:
		return &RefValue{Int: st.Value(sm.refs[ref][slot])}
	case ast.StringType:
		return &RefValue{Text: decodeString(st, sm.strings[ref].chars[slot]), text: true}
	}
	v := st.Value(sm.refs[ref][slot])
	target, idx, ok := sm.r.ConcreteAt(ref.Target(), v)
	if !ok {
		return &RefValue{Int: v}
	}
	return &RefValue{Target: target, Index: idx}
}

func decodeString(st *fd.Store, chars []*fd.IntVar) string {
	var b strings.Builder
	for _, c := range chars {
		v := st.Value(c)
		if v <= 0 {
			break
		}
		b.WriteRune(rune(v))
	}
	return b.String()
}
