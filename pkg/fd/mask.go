// Package fd: set windows - Mask
//
// Mask enforces masked = { x - from | x ∈ set, from ≤ x < to }. The
// compiler uses it to view the slice of an abstract type's flat index
// space that belongs to one subtype (an upcast read in reverse).
//
// Propagation transfers envelope and kernel values in both directions
// within the window; values of set outside [from, to) are unconstrained.
package fd

import "fmt"

// Mask is a shifted window over a set.
type Mask struct {
	set, masked *SetVar
	from, to    int
}

// NewMask constructs masked = (set ∩ [from, to)) - from.
func NewMask(set, masked *SetVar, from, to int) (Propagator, error) {
	if set == nil || masked == nil {
		return nil, fmt.Errorf("NewMask: sets cannot be nil")
	}
	if from > to {
		return nil, fmt.Errorf("NewMask: empty window [%d, %d)", from, to)
	}
	return &Mask{set: set, masked: masked, from: from, to: to}, nil
}

func (p *Mask) Watches() []Watch   { return watchSets(EventAnySet, p.set, p.masked) }
func (p *Mask) Priority() Priority { return PriorityLinear }
func (p *Mask) Idempotent() bool   { return true }
func (p *Mask) String() string {
	return fmt.Sprintf("%s = mask(%s, %d, %d)", p.masked, p.set, p.from, p.to)
}

// Propagate implements Propagator.
func (p *Mask) Propagate(st *Store) error {
	for _, v := range st.Env(p.masked).Values() {
		x := v + p.from
		if x < p.from || x >= p.to || !st.Env(p.set).Has(x) {
			if _, err := st.RemoveFromEnvelope(p.masked, v); err != nil {
				return err
			}
		}
	}
	for _, v := range st.Ker(p.masked).Values() {
		if _, err := st.AddToKernel(p.set, v+p.from); err != nil {
			return err
		}
	}
	for _, x := range st.Env(p.set).Values() {
		if x < p.from || x >= p.to {
			continue
		}
		if !st.Env(p.masked).Has(x - p.from) {
			if _, err := st.RemoveFromEnvelope(p.set, x); err != nil {
				return err
			}
		}
	}
	for _, x := range st.Ker(p.set).Values() {
		if x < p.from || x >= p.to {
			continue
		}
		if _, err := st.AddToKernel(p.masked, x-p.from); err != nil {
			return err
		}
	}
	return nil
}
