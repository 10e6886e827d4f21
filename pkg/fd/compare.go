// Package fd: binary comparisons - Compare and its reified form
//
// CompareReif enforces b ⇔ (x op y) for op in {=, ≠, <, ≤, >, ≥}.
// > and ≥ are stored as < and ≤ with the operands swapped.
//
// Propagation:
//   - entailment on current bounds/domains fixes b
//   - b = 1 enforces op (domain intersection for =, value removal for ≠,
//     bounds for < and ≤)
//   - b = 0 enforces the negated op (= ↔ ≠, x < y ↔ y ≤ x, x ≤ y ↔ y < x)
package fd

import "fmt"

// Op is a comparison operator.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (o Op) String() string {
	return [...]string{"=", "!=", "<", "<=", ">", ">="}[o]
}

// CompareReif enforces b ⇔ x op y. A nil b means the comparison is hard.
type CompareReif struct {
	b    *IntVar
	x, y *IntVar
	op   Op
}

// NewCompare enforces x op y.
func NewCompare(x *IntVar, op Op, y *IntVar) (Propagator, error) {
	return NewCompareReif(nil, x, op, y)
}

// NewCompareReif enforces b ⇔ x op y.
func NewCompareReif(b, x *IntVar, op Op, y *IntVar) (Propagator, error) {
	if x == nil || y == nil {
		return nil, fmt.Errorf("NewCompareReif: operands cannot be nil")
	}
	switch op {
	case OpGt:
		x, y, op = y, x, OpLt
	case OpGe:
		x, y, op = y, x, OpLe
	case OpEq, OpNe, OpLt, OpLe:
	default:
		return nil, fmt.Errorf("NewCompareReif: unknown operator %d", op)
	}
	return &CompareReif{b: b, x: x, y: y, op: op}, nil
}

func (p *CompareReif) Watches() []Watch {
	mask := EventBound
	if p.op == OpEq || p.op == OpNe {
		mask = EventRemove
	}
	ws := watchInts(mask, p.x, p.y)
	if p.b != nil {
		ws = append(ws, Watch{Var: p.b, Mask: EventInstantiate})
	}
	return ws
}

func (p *CompareReif) Priority() Priority { return PriorityBinary }

func (p *CompareReif) String() string {
	if p.b == nil {
		return fmt.Sprintf("%s %s %s", p.x, p.op, p.y)
	}
	return fmt.Sprintf("%s <=> %s %s %s", p.b, p.x, p.op, p.y)
}

// Propagate implements Propagator.
func (p *CompareReif) Propagate(st *Store) error {
	if p.b == nil {
		return enforceCompare(st, p.x, p.op, p.y)
	}
	switch entailment(st, p.x, p.op, p.y) {
	case 1:
		_, err := st.Instantiate(p.b, 1)
		return err
	case -1:
		_, err := st.Instantiate(p.b, 0)
		return err
	}
	if !st.Instantiated(p.b) {
		return nil
	}
	if st.IsTrue(p.b) {
		return enforceCompare(st, p.x, p.op, p.y)
	}
	switch p.op {
	case OpEq:
		return enforceCompare(st, p.x, OpNe, p.y)
	case OpNe:
		return enforceCompare(st, p.x, OpEq, p.y)
	case OpLt:
		return enforceCompare(st, p.y, OpLe, p.x)
	default:
		return enforceCompare(st, p.y, OpLt, p.x)
	}
}

// entailment returns 1 if x op y holds for every remaining value pair, -1
// if it holds for none, and 0 otherwise.
func entailment(st *Store, x *IntVar, op Op, y *IntVar) int {
	dx, dy := st.Dom(x), st.Dom(y)
	switch op {
	case OpEq, OpNe:
		r := 0
		if dx.IsSingleton() && dy.IsSingleton() && dx.Min() == dy.Min() {
			r = 1
		} else if dx.Intersect(dy).IsEmpty() {
			r = -1
		}
		if op == OpNe {
			r = -r
		}
		return r
	case OpLt:
		if dx.Max() < dy.Min() {
			return 1
		}
		if dx.Min() >= dy.Max() {
			return -1
		}
	case OpLe:
		if dx.Max() <= dy.Min() {
			return 1
		}
		if dx.Min() > dy.Max() {
			return -1
		}
	}
	return 0
}

func enforceCompare(st *Store, x *IntVar, op Op, y *IntVar) error {
	var err error
	switch op {
	case OpEq:
		if _, err = st.Restrict(x, st.Dom(y)); err != nil {
			return err
		}
		_, err = st.Restrict(y, st.Dom(x))
	case OpNe:
		if st.Instantiated(x) {
			_, err = st.RemoveValue(y, st.Value(x))
		} else if st.Instantiated(y) {
			_, err = st.RemoveValue(x, st.Value(y))
		}
	case OpLt:
		if _, err = st.UpdateUpperBound(x, st.Max(y)-1); err != nil {
			return err
		}
		_, err = st.UpdateLowerBound(y, st.Min(x)+1)
	case OpLe:
		if _, err = st.UpdateUpperBound(x, st.Max(y)); err != nil {
			return err
		}
		_, err = st.UpdateLowerBound(y, st.Min(x))
	}
	return err
}
