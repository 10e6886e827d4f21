// Package fd: positional lookup - FilterString
//
// FilterString enforces
//
//	result[i] = str[array(set)[i] - offset]   for i < |set|
//	result[i] = -1                            for i ≥ |set|
//
// where array(set) is the set's elements in ascending order. The compiler
// uses it to read the characters (or any per-slot value) of the instances
// selected by a set expression, packed to the front of result.
//
// Propagation:
//   - i ≥ card.max ⇒ result[i] = -1
//   - x is a candidate for position i when at least i envelope values and
//     at most i kernel values lie below it, and x-offset indexes str
//   - result[i] ⊆ {-1 if i ≥ card.min} ∪ ⋃ dom(str[x-offset]) over candidates
//   - a non-sentinel result[i] forces card ≥ i+1; a sentinel one forces
//     card ≤ i when no str value can be -1
//   - an instantiated set equates result[i] and str[array[i]-offset]
package fd

import "fmt"

// filterSentinel marks the positions past the set's cardinality.
const filterSentinel = -1

// FilterString projects a sorted set through a value array.
type FilterString struct {
	set    *SetVar
	offset int
	str    []*IntVar
	result []*IntVar
}

// NewFilterString constructs the positional lookup.
func NewFilterString(set *SetVar, offset int, str, result []*IntVar) (Propagator, error) {
	if set == nil {
		return nil, fmt.Errorf("NewFilterString: set cannot be nil")
	}
	for i, v := range str {
		if v == nil {
			return nil, fmt.Errorf("NewFilterString: str[%d] is nil", i)
		}
	}
	for i, v := range result {
		if v == nil {
			return nil, fmt.Errorf("NewFilterString: result[%d] is nil", i)
		}
	}
	sc := make([]*IntVar, len(str))
	copy(sc, str)
	rc := make([]*IntVar, len(result))
	copy(rc, result)
	return &FilterString{set: set, offset: offset, str: sc, result: rc}, nil
}

func (p *FilterString) Watches() []Watch {
	ws := []Watch{{Var: p.set, Mask: EventAnySet}, {Var: p.set.card, Mask: EventBound}}
	ws = append(ws, watchInts(EventRemove, p.str...)...)
	return append(ws, watchInts(EventRemove, p.result...)...)
}
func (p *FilterString) Priority() Priority      { return PriorityQuadratic }
func (p *FilterString) TrustedCards() []*SetVar { return []*SetVar{p.set} }
func (p *FilterString) String() string {
	return fmt.Sprintf("[%s] = filter(%s, %d, [%s])", joinNames(p.result), p.set, p.offset, joinNames(p.str))
}

func (p *FilterString) strAt(x int) (*IntVar, bool) {
	j := x - p.offset
	if j < 0 || j >= len(p.str) {
		return nil, false
	}
	return p.str[j], true
}

// Propagate implements Propagator.
func (p *FilterString) Propagate(st *Store) error {
	for _, x := range st.Env(p.set).Values() {
		if _, ok := p.strAt(x); !ok {
			if _, err := st.RemoveFromEnvelope(p.set, x); err != nil {
				return err
			}
		}
	}
	if _, err := st.UpdateUpperBound(p.set.card, len(p.result)); err != nil {
		return err
	}
	sentinelPossible := false
	for _, s := range p.str {
		if st.Contains(s, filterSentinel) {
			sentinelPossible = true
		}
	}
	card := p.set.card
	for i, r := range p.result {
		if i >= st.Max(card) {
			if _, err := st.Instantiate(r, filterSentinel); err != nil {
				return err
			}
			continue
		}
		if st.Instantiated(r) {
			if st.Value(r) != filterSentinel {
				if _, err := st.UpdateLowerBound(card, i+1); err != nil {
					return err
				}
			} else if !sentinelPossible {
				if _, err := st.UpdateUpperBound(card, i); err != nil {
					return err
				}
				continue
			}
		}
		allowed := EmptyDomain()
		if i >= st.Min(card) {
			allowed = DomainOf(filterSentinel)
		}
		for _, x := range p.candidates(st, i) {
			s, _ := p.strAt(x)
			allowed = allowed.Union(st.Dom(s))
		}
		if _, err := st.Restrict(r, allowed); err != nil {
			return err
		}
	}
	if !st.SetInstantiated(p.set) {
		return nil
	}
	for i, x := range st.Ker(p.set).Values() {
		if i >= len(p.result) {
			break
		}
		s, _ := p.strAt(x)
		if err := enforceCompare(st, p.result[i], OpEq, s); err != nil {
			return err
		}
	}
	return nil
}

// candidates returns the envelope values that can be the i-th smallest
// element of the set.
func (p *FilterString) candidates(st *Store, i int) []int {
	env, ker := st.Env(p.set), st.Ker(p.set)
	var out []int
	envBelow, kerBelow := 0, 0
	env.Each(func(x int) {
		if envBelow >= i && kerBelow <= i {
			out = append(out, x)
		}
		envBelow++
		if ker.Has(x) {
			kerBelow++
		}
	})
	return out
}
