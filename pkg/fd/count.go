// Package fd: counting constraint - Count (n = Σ bools)
//
// Count links a vector of booleans to the number of its true entries.
//
// Propagation:
//   - let t = #true, u = #undetermined; n ∈ [t, t+u]
//   - n.max = t    ⇒ every undetermined boolean is false
//   - n.min = t+u  ⇒ every undetermined boolean is true
//
// Count is used for soft-constraint accounting (sumSoft = Σ soft) and for
// group cardinalities (number of child types present).
package fd

import "fmt"

// Count enforces n = Σ bools[i].
type Count struct {
	bools []*IntVar
	n     *IntVar
}

// NewCount creates the constraint n = |{i : bools[i] = 1}|.
func NewCount(bools []*IntVar, n *IntVar) (Propagator, error) {
	if n == nil {
		return nil, fmt.Errorf("NewCount: count variable cannot be nil")
	}
	for i, b := range bools {
		if b == nil {
			return nil, fmt.Errorf("NewCount: bools[%d] is nil", i)
		}
	}
	cp := make([]*IntVar, len(bools))
	copy(cp, bools)
	return &Count{bools: cp, n: n}, nil
}

func (p *Count) Watches() []Watch {
	return append(watchInts(EventInstantiate, p.bools...), Watch{Var: p.n, Mask: EventBound})
}
func (p *Count) Priority() Priority { return PriorityLinear }
func (p *Count) Idempotent() bool   { return true }
func (p *Count) String() string     { return fmt.Sprintf("Count(%s) = %s", joinNames(p.bools), p.n) }

// Propagate implements Propagator.
func (p *Count) Propagate(st *Store) error {
	t, u := 0, 0
	for _, b := range p.bools {
		switch {
		case st.IsTrue(b):
			t++
		case !st.Instantiated(b):
			u++
		}
	}
	if _, err := st.UpdateLowerBound(p.n, t); err != nil {
		return err
	}
	if _, err := st.UpdateUpperBound(p.n, t+u); err != nil {
		return err
	}
	if u == 0 {
		return nil
	}
	fill := -1
	switch {
	case st.Max(p.n) == t:
		fill = 0
	case st.Min(p.n) == t+u:
		fill = 1
	}
	if fill < 0 {
		return nil
	}
	for _, b := range p.bools {
		if st.Instantiated(b) {
			continue
		}
		if _, err := st.Instantiate(b, fill); err != nil {
			return err
		}
	}
	// n is now t or t+u exactly.
	_, err := st.Instantiate(p.n, t+fill*u)
	return err
}
