// Package fd: unique references - SiblingDistinct
//
// SiblingDistinct enforces that instances sharing a parent reference
// distinct targets:
//
//	parents[i] = parents[j] ≠ sentinel  ⇒  refs[i] ≠ refs[j]
//
// Propagation works on instantiated variables only (forward checking):
//   - a shared instantiated parent removes an instantiated ref value from
//     the sibling's ref domain
//   - equal instantiated refs remove an instantiated parent value from the
//     sibling's parent domain
package fd

import "fmt"

// SiblingDistinct is an all-different over refs, grouped by parent.
type SiblingDistinct struct {
	parents  []*IntVar
	refs     []*IntVar
	sentinel int
}

// NewSiblingDistinct constructs the grouped all-different.
func NewSiblingDistinct(parents, refs []*IntVar, sentinel int) (Propagator, error) {
	if len(parents) != len(refs) {
		return nil, fmt.Errorf("NewSiblingDistinct: %d parents but %d refs", len(parents), len(refs))
	}
	for i := range parents {
		if parents[i] == nil || refs[i] == nil {
			return nil, fmt.Errorf("NewSiblingDistinct: nil variable at index %d", i)
		}
	}
	return &SiblingDistinct{
		parents:  append([]*IntVar(nil), parents...),
		refs:     append([]*IntVar(nil), refs...),
		sentinel: sentinel,
	}, nil
}

func (p *SiblingDistinct) Watches() []Watch {
	return append(watchInts(EventInstantiate, p.parents...), watchInts(EventInstantiate, p.refs...)...)
}
func (p *SiblingDistinct) Priority() Priority { return PriorityQuadratic }
func (p *SiblingDistinct) String() string {
	return fmt.Sprintf("SiblingDistinct([%s], [%s])", joinNames(p.parents), joinNames(p.refs))
}

// Propagate implements Propagator.
func (p *SiblingDistinct) Propagate(st *Store) error {
	for i := range p.refs {
		pi, ri := p.parents[i], p.refs[i]
		if !st.Instantiated(pi) || st.Value(pi) == p.sentinel {
			continue
		}
		for j := range p.refs {
			if j == i {
				continue
			}
			pj, rj := p.parents[j], p.refs[j]
			if st.Instantiated(ri) && st.Instantiated(pj) && st.Value(pj) == st.Value(pi) {
				if _, err := st.RemoveValue(rj, st.Value(ri)); err != nil {
					return err
				}
			}
			if st.Instantiated(ri) && st.Instantiated(rj) && st.Value(ri) == st.Value(rj) {
				if _, err := st.RemoveValue(pj, st.Value(pi)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
