// Package fd: symmetry breaking - SortedSets
//
// SortedSets enforces that the concatenation of the sorted arrays of
// sets[0], sets[1], ... is the staircase 0, 1, 2, ..., total-1. Equivalently
// sets[j] = [P_j, P_j + |sets[j]|) with P_j = Σ_{i<j} |sets[i]|. The
// compiler posts it over the children sets of a type so that the children
// of parent 0 come first, then those of parent 1, and so on, removing the
// symmetry between interchangeable sibling instances.
//
// Propagation, with c_j = card(sets[j]) and [Plo_j, Phi_j] the bounds of
// P_j derived from the cards:
//  1. window: env(sets[j]) ⊆ [Plo_j, Phi_j + c_j.max - 1]
//  2. forcing: [Phi_j, Plo_j + c_j.min - 1] ⊆ ker(sets[j])
//  3. each set is an interval: kernel gaps are filled and the envelope is
//     trimmed to the run containing the kernel and within c_j.max of it
//  4. order: ker(sets[j]) ∩ [m, M] ≠ ∅ ⇒ earlier sets stay below m and
//     later sets stay above M; this also makes the sets pairwise disjoint
//  5. cards from kernels: Σ_{i<j} c_i ≤ min ker(sets[j]) and
//     Σ_{i≤j} c_i ≥ max ker(sets[j]) + 1
//  6. once every set is instantiated the staircase is verified directly
package fd

import "fmt"

// SortedSets orders sibling sets into a staircase.
type SortedSets struct {
	sets []*SetVar
}

// NewSortedSets constructs the staircase constraint over sets.
func NewSortedSets(sets []*SetVar) (Propagator, error) {
	for i, s := range sets {
		if s == nil {
			return nil, fmt.Errorf("NewSortedSets: sets[%d] is nil", i)
		}
	}
	cp := make([]*SetVar, len(sets))
	copy(cp, sets)
	return &SortedSets{sets: cp}, nil
}

func (p *SortedSets) Watches() []Watch {
	ws := watchSets(EventAnySet, p.sets...)
	for _, s := range p.sets {
		ws = append(ws, Watch{Var: s.card, Mask: EventBound})
	}
	return ws
}
func (p *SortedSets) Priority() Priority      { return PriorityQuadratic }
func (p *SortedSets) TrustedCards() []*SetVar { return p.sets }
func (p *SortedSets) String() string          { return fmt.Sprintf("SortedSets([%s])", joinNames(p.sets)) }

// Propagate implements Propagator.
func (p *SortedSets) Propagate(st *Store) error {
	if err := p.windows(st); err != nil {
		return err
	}
	for _, s := range p.sets {
		if err := p.interval(st, s); err != nil {
			return err
		}
	}
	if err := p.order(st); err != nil {
		return err
	}
	if err := p.cards(st); err != nil {
		return err
	}
	return p.verify(st)
}

func (p *SortedSets) windows(st *Store) error {
	plo, phi := 0, 0
	for _, s := range p.sets {
		cmin, cmax := st.Min(s.card), st.Max(s.card)
		if _, err := st.RestrictEnvelope(s, RangeDomain(plo, phi+cmax-1)); err != nil {
			return err
		}
		for v := phi; v <= plo+cmin-1; v++ {
			if _, err := st.AddToKernel(s, v); err != nil {
				return err
			}
		}
		plo += st.Min(s.card)
		phi += st.Max(s.card)
	}
	return nil
}

// interval applies the Continuous rules to a single set with a non-empty
// kernel.
func (p *SortedSets) interval(st *Store, s *SetVar) error {
	ker := st.Ker(s)
	if ker.IsEmpty() {
		return nil
	}
	lo, hi := ker.Min(), ker.Max()
	for v := lo + 1; v < hi; v++ {
		if _, err := st.AddToKernel(s, v); err != nil {
			return err
		}
	}
	c := st.Max(s.card)
	for _, r := range runsOf(st.Env(s)) {
		inside := r.lo <= lo && hi <= r.hi
		for v := r.lo; v <= r.hi; v++ {
			if inside && v >= hi-c+1 && v <= lo+c-1 {
				continue
			}
			if _, err := st.RemoveFromEnvelope(s, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *SortedSets) order(st *Store) error {
	for j, s := range p.sets {
		ker := st.Ker(s)
		if ker.IsEmpty() {
			continue
		}
		m, mx := ker.Min(), ker.Max()
		for i, o := range p.sets {
			var err error
			switch {
			case i < j:
				_, err = st.RestrictEnvelope(o, st.Env(o).RemoveAbove(m-1))
			case i > j:
				_, err = st.RestrictEnvelope(o, st.Env(o).RemoveBelow(mx+1))
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *SortedSets) cards(st *Store) error {
	var minSum, maxSum int
	for j, s := range p.sets {
		ker := st.Ker(s)
		if !ker.IsEmpty() {
			// Σ_{i<j} c_i ≤ min ker
			room := ker.Min() - minSum
			for i := 0; i < j; i++ {
				c := p.sets[i].card
				if _, err := st.UpdateUpperBound(c, room+st.Min(c)); err != nil {
					return err
				}
			}
			// Σ_{i≤j} c_i ≥ max ker + 1
			need := ker.Max() + 1 - (maxSum + st.Max(s.card))
			for i := 0; i <= j; i++ {
				c := p.sets[i].card
				if _, err := st.UpdateLowerBound(c, st.Max(c)+need); err != nil {
					return err
				}
			}
		}
		minSum += st.Min(s.card)
		maxSum += st.Max(s.card)
	}
	return nil
}

func (p *SortedSets) verify(st *Store) error {
	next := 0
	for _, s := range p.sets {
		if !st.SetInstantiated(s) {
			return nil
		}
	}
	for _, s := range p.sets {
		var bad error
		st.Ker(s).Each(func(v int) {
			if bad == nil && v != next {
				bad = fail("%s: expected %d in %s, found %d", p, next, s, v)
			}
			next++
		})
		if bad != nil {
			return bad
		}
	}
	return nil
}
