// Package fd: set aggregation - SetSum
//
// SetSum enforces sum = Σ { v | v ∈ set }.
//
// The propagator reads the set's cardinality variable instead of |set| and
// does not enforce card = |set| itself; the SetCard companion does. For a
// candidate cardinality c the sum lies between the kernel total plus the
// c-|ker| smallest optional values and the kernel total plus the c-|ker|
// largest ones.
//
// Propagation:
//  1. sum ∈ [min_c lo(c), max_c hi(c)] over c ∈ dom(card)
//  2. c is removed from dom(card) when [lo(c), hi(c)] misses dom(sum)
//  3. when card.max is small (≤ setSumPruneCard) each optional value o is
//     tried both ways: o leaves the envelope when no cardinality admits a
//     sum containing o, and joins the kernel when none admits one without
//     it
package fd

import (
	"fmt"
	"slices"
)

// setSumPruneCard bounds the cardinality up to which SetSum prunes
// individual envelope values.
const setSumPruneCard = 16

// SetSum is Σ set = sum.
type SetSum struct {
	set *SetVar
	sum *IntVar
}

// NewSetSum constructs sum = Σ set.
func NewSetSum(set *SetVar, sum *IntVar) (Propagator, error) {
	if set == nil || sum == nil {
		return nil, fmt.Errorf("NewSetSum: operands cannot be nil")
	}
	return &SetSum{set: set, sum: sum}, nil
}

func (p *SetSum) Watches() []Watch {
	return []Watch{
		{Var: p.set, Mask: EventAnySet},
		{Var: p.set.card, Mask: EventRemove},
		{Var: p.sum, Mask: EventBound},
	}
}
func (p *SetSum) Priority() Priority      { return PriorityLinear }
func (p *SetSum) TrustedCards() []*SetVar { return []*SetVar{p.set} }
func (p *SetSum) String() string          { return fmt.Sprintf("SetSum(%s) = %s", p.set, p.sum) }

// sumTable holds prefix sums over the optional values, sorted ascending.
type sumTable struct {
	kerSum int
	kerLen int
	opt    []int
	pref   []int // pref[k] = Σ opt[:k]
}

func newSumTable(st *Store, s *SetVar) sumTable {
	ker := st.Ker(s)
	t := sumTable{kerLen: ker.Count(), opt: st.Env(s).Minus(ker).Values()}
	ker.Each(func(v int) { t.kerSum += v })
	slices.Sort(t.opt)
	t.pref = make([]int, len(t.opt)+1)
	for i, v := range t.opt {
		t.pref[i+1] = t.pref[i] + v
	}
	return t
}

// bounds returns the sum range for cardinality c with optional index skip
// excluded (skip < 0 excludes nothing). ok is false when c is unreachable.
func (t sumTable) bounds(c, skip int) (lo, hi int, ok bool) {
	k := c - t.kerLen
	avail := len(t.opt)
	if skip >= 0 {
		avail--
	}
	if k < 0 || k > avail {
		return 0, 0, false
	}
	n := len(t.opt)
	lo, hi = t.pref[k], t.pref[n]-t.pref[n-k]
	if skip >= 0 {
		if skip < k {
			lo += t.opt[k] - t.opt[skip]
		}
		if skip >= n-k {
			hi += t.opt[n-k-1] - t.opt[skip]
		}
	}
	return t.kerSum + lo, t.kerSum + hi, true
}

// Propagate implements Propagator.
func (p *SetSum) Propagate(st *Store) error {
	t := newSumTable(st, p.set)
	card := p.set.card
	sLo, sHi := st.Min(p.sum), st.Max(p.sum)
	lo, hi, found := 0, 0, false
	for _, c := range st.Dom(card).Values() {
		clo, chi, ok := t.bounds(c, -1)
		if !ok || chi < sLo || clo > sHi {
			if _, err := st.RemoveValue(card, c); err != nil {
				return err
			}
			continue
		}
		if !found {
			lo, hi, found = clo, chi, true
			continue
		}
		lo, hi = min(lo, clo), max(hi, chi)
	}
	if !found {
		return fail("%s: no cardinality admits the sum", p)
	}
	if _, err := st.UpdateLowerBound(p.sum, lo); err != nil {
		return err
	}
	if _, err := st.UpdateUpperBound(p.sum, hi); err != nil {
		return err
	}
	if st.Max(card) > setSumPruneCard || len(t.opt) == 0 {
		return nil
	}
	return p.pruneValues(st, t)
}

func (p *SetSum) pruneValues(st *Store, t sumTable) error {
	card := p.set.card
	sLo, sHi := st.Min(p.sum), st.Max(p.sum)
	cards := st.Dom(card).Values()
	for i, o := range t.opt {
		with, without := false, false
		for _, c := range cards {
			// o in the set: c-1 further values chosen among the others.
			if lo, hi, ok := t.bounds(c-1, i); ok {
				if lo+o <= sHi && hi+o >= sLo {
					with = true
				}
			}
			if lo, hi, ok := t.bounds(c, i); ok {
				if lo <= sHi && hi >= sLo {
					without = true
				}
			}
		}
		switch {
		case !with && !without:
			return fail("%s: value %d admits no sum", p, o)
		case !with:
			if _, err := st.RemoveFromEnvelope(p.set, o); err != nil {
				return err
			}
		case !without:
			if _, err := st.AddToKernel(p.set, o); err != nil {
				return err
			}
		}
	}
	return nil
}
