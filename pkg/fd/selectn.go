// Package fd: prefix selection - SelectN
//
// SelectN enforces bools[i] ⇔ i < n, i.e. the true booleans form a prefix
// of length n. The compiler uses it for membership (the first n slots of
// a type exist) and for string lengths (the first n characters are set).
//
// Propagation:
//   - n ∈ [0, len(bools)]
//   - i < n.min ⇒ bools[i] = 1;  i ≥ n.max ⇒ bools[i] = 0
//   - bools[i] = 1 ⇒ n ≥ i+1;    bools[i] = 0 ⇒ n ≤ i
package fd

import "fmt"

// SelectN makes bools a true-prefix of length n.
type SelectN struct {
	bools []*IntVar
	n     *IntVar
}

// NewSelectN constructs bools[i] ⇔ i < n.
func NewSelectN(bools []*IntVar, n *IntVar) (Propagator, error) {
	if n == nil {
		return nil, fmt.Errorf("NewSelectN: n cannot be nil")
	}
	for i, b := range bools {
		if b == nil {
			return nil, fmt.Errorf("NewSelectN: bools[%d] is nil", i)
		}
	}
	cp := make([]*IntVar, len(bools))
	copy(cp, bools)
	return &SelectN{bools: cp, n: n}, nil
}

func (p *SelectN) Watches() []Watch {
	return append(watchInts(EventInstantiate, p.bools...), Watch{Var: p.n, Mask: EventBound})
}
func (p *SelectN) Priority() Priority { return PriorityLinear }
func (p *SelectN) Idempotent() bool   { return true }
func (p *SelectN) String() string {
	return fmt.Sprintf("SelectN([%s], %s)", joinNames(p.bools), p.n)
}

// Propagate implements Propagator.
func (p *SelectN) Propagate(st *Store) error {
	if _, err := st.Restrict(p.n, RangeDomain(0, len(p.bools))); err != nil {
		return err
	}
	for i, b := range p.bools {
		switch {
		case st.IsTrue(b):
			if _, err := st.UpdateLowerBound(p.n, i+1); err != nil {
				return err
			}
		case st.IsFalse(b):
			if _, err := st.UpdateUpperBound(p.n, i); err != nil {
				return err
			}
		}
	}
	lo, hi := st.Min(p.n), st.Max(p.n)
	for i, b := range p.bools {
		switch {
		case i < lo:
			if _, err := st.Instantiate(b, 1); err != nil {
				return err
			}
		case i >= hi:
			if _, err := st.Instantiate(b, 0); err != nil {
				return err
			}
		}
	}
	return nil
}
