// Package fd: learnt constraints - Nogood
//
// A Nogood forbids a conjunction of branching literals: not every literal
// may hold at once. In restart mode the search driver posts one Nogood per
// solution, built from the decision path that led to it, before rolling
// back to the root. Since the path's leaf had every variable instantiated,
// the nogood excludes exactly that solution.
//
// Propagation (unit rule):
//   - a false literal satisfies the nogood
//   - all literals true fails
//   - all true but one undecided enforces the negation of that one
package fd

import (
	"fmt"
	"strings"
)

// Literal is one side of a binary branch: x = v / x ≠ v for integers, and
// v ∈ S / v ∉ S for sets.
type Literal struct {
	Var   Var
	Value int
	Neg   bool
}

// Not returns the complementary literal.
func (l Literal) Not() Literal { return Literal{Var: l.Var, Value: l.Value, Neg: !l.Neg} }

// status returns 1 when l holds in st, -1 when it cannot hold and 0 when
// it is undecided.
func (l Literal) status(st *Store) int {
	var in, out bool // value certainly taken / certainly excluded
	switch x := l.Var.(type) {
	case *IntVar:
		in = st.Instantiated(x) && st.Value(x) == l.Value
		out = !st.Contains(x, l.Value)
	case *SetVar:
		in = st.Ker(x).Has(l.Value)
		out = !st.Env(x).Has(l.Value)
	}
	if l.Neg {
		in, out = out, in
	}
	switch {
	case in:
		return 1
	case out:
		return -1
	}
	return 0
}

// apply makes l hold in st.
func (l Literal) apply(st *Store) error {
	var err error
	switch x := l.Var.(type) {
	case *IntVar:
		if l.Neg {
			_, err = st.RemoveValue(x, l.Value)
		} else {
			_, err = st.Instantiate(x, l.Value)
		}
	case *SetVar:
		if l.Neg {
			_, err = st.RemoveFromEnvelope(x, l.Value)
		} else {
			_, err = st.AddToKernel(x, l.Value)
		}
	default:
		err = fmt.Errorf("literal over unsupported variable %v", l.Var)
	}
	return err
}

func (l Literal) String() string {
	switch l.Var.(type) {
	case *SetVar:
		if l.Neg {
			return fmt.Sprintf("%d notin %s", l.Value, l.Var.Name())
		}
		return fmt.Sprintf("%d in %s", l.Value, l.Var.Name())
	default:
		if l.Neg {
			return fmt.Sprintf("%s != %d", l.Var.Name(), l.Value)
		}
		return fmt.Sprintf("%s = %d", l.Var.Name(), l.Value)
	}
}

// Nogood forbids the conjunction of its literals.
type Nogood struct {
	lits []Literal
}

// NewNogood constructs ¬(l1 ∧ l2 ∧ ...).
func NewNogood(lits []Literal) (Propagator, error) {
	if len(lits) == 0 {
		return nil, fmt.Errorf("NewNogood: empty nogood forbids everything")
	}
	for i, l := range lits {
		if l.Var == nil {
			return nil, fmt.Errorf("NewNogood: literal %d has no variable", i)
		}
	}
	return &Nogood{lits: append([]Literal(nil), lits...)}, nil
}

func (p *Nogood) Watches() []Watch {
	ws := make([]Watch, 0, len(p.lits))
	for _, l := range p.lits {
		mask := EventRemove
		if _, ok := l.Var.(*SetVar); ok {
			mask = EventAnySet
		}
		ws = append(ws, Watch{Var: l.Var, Mask: mask})
	}
	return ws
}
func (p *Nogood) Priority() Priority { return PriorityLinear }
func (p *Nogood) String() string {
	parts := make([]string, len(p.lits))
	for i, l := range p.lits {
		parts[i] = l.String()
	}
	return "Nogood(" + strings.Join(parts, " & ") + ")"
}

// Propagate implements Propagator.
func (p *Nogood) Propagate(st *Store) error {
	open := -1
	for i, l := range p.lits {
		switch l.status(st) {
		case -1:
			return nil
		case 0:
			if open >= 0 {
				return nil
			}
			open = i
		}
	}
	if open < 0 {
		return fail("%s violated", p)
	}
	return p.lits[open].Not().apply(st)
}
