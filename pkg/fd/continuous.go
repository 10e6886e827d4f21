// Package fd: set shape - Continuous
//
// Continuous enforces that a set is an interval {a, a+1, ..., b} (the empty
// set is continuous). The compiler uses it on the set of string ids so the
// ranking produced by LexChainChannel is dense.
//
// Propagation, with [lo, hi] the kernel's min and max:
//  1. every value in (lo, hi) is forced into the kernel, filled from lo
//     upward; a value missing from the envelope fails
//  2. the envelope is trimmed to the contiguous envelope run containing
//     the kernel
//  3. values further than card.max-1 from either kernel end are removed
//  4. with an empty kernel, card ≤ the longest contiguous envelope run, and
//     runs shorter than card.min are removed from the envelope
package fd

import "fmt"

// Continuous constrains a set to be an interval.
type Continuous struct {
	set *SetVar
}

// NewContinuous constructs the interval constraint on s.
func NewContinuous(s *SetVar) (Propagator, error) {
	if s == nil {
		return nil, fmt.Errorf("NewContinuous: set cannot be nil")
	}
	return &Continuous{set: s}, nil
}

func (p *Continuous) Watches() []Watch {
	return []Watch{{Var: p.set, Mask: EventAnySet}, {Var: p.set.card, Mask: EventBound}}
}
func (p *Continuous) Priority() Priority      { return PriorityLinear }
func (p *Continuous) TrustedCards() []*SetVar { return []*SetVar{p.set} }
func (p *Continuous) String() string          { return fmt.Sprintf("Continuous(%s)", p.set) }

// run is a maximal interval [lo, hi] of consecutive envelope values.
type run struct{ lo, hi int }

func (r run) len() int { return r.hi - r.lo + 1 }

func runsOf(d Domain) []run {
	var out []run
	d.Each(func(v int) {
		if n := len(out); n > 0 && out[n-1].hi == v-1 {
			out[n-1].hi = v
			return
		}
		out = append(out, run{v, v})
	})
	return out
}

// Propagate implements Propagator.
func (p *Continuous) Propagate(st *Store) error {
	s, card := p.set, p.set.card
	ker := st.Ker(s)
	if ker.IsEmpty() {
		longest := 0
		runs := runsOf(st.Env(s))
		for _, r := range runs {
			longest = max(longest, r.len())
		}
		if _, err := st.UpdateUpperBound(card, longest); err != nil {
			return err
		}
		need := st.Min(card)
		for _, r := range runs {
			if r.len() >= need {
				continue
			}
			for v := r.lo; v <= r.hi; v++ {
				if _, err := st.RemoveFromEnvelope(s, v); err != nil {
					return err
				}
			}
		}
		return nil
	}
	lo, hi := ker.Min(), ker.Max()
	for v := lo + 1; v < hi; v++ {
		if _, err := st.AddToKernel(s, v); err != nil {
			return err
		}
	}
	if st.SetInstantiated(s) {
		return nil
	}
	for _, r := range runsOf(st.Env(s)) {
		if r.lo <= lo && hi <= r.hi {
			continue
		}
		for v := r.lo; v <= r.hi; v++ {
			if _, err := st.RemoveFromEnvelope(s, v); err != nil {
				return err
			}
		}
	}
	c := st.Max(card)
	for _, v := range st.Env(s).Values() {
		if v < hi-c+1 || v > lo+c-1 {
			if _, err := st.RemoveFromEnvelope(s, v); err != nil {
				return err
			}
		}
	}
	return nil
}
