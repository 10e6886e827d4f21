// Package fd: global constraint - Element (variable array)
//
// Element enforces value = array[index] where array is a vector of
// variables indexed from 0.
//
// Propagation (domain consistency on index and value):
//  1. index ⊆ [0, len(array))
//  2. index ⊆ { i | dom(array[i]) ∩ dom(value) ≠ ∅ }
//  3. value ⊆ ∪ { dom(array[i]) | i ∈ dom(index) }
//  4. index instantiated to i ⇒ dom(value) = dom(array[i])
//
// The compiler uses it for "a reference's source is a member ⇒ its target
// is a member": member[target][ref] is an Element over the target's
// membership booleans.
package fd

import "fmt"

// Element enforces value = array[index].
type Element struct {
	index *IntVar
	array []*IntVar
	value *IntVar
}

// NewElement constructs value = array[index].
func NewElement(index *IntVar, array []*IntVar, value *IntVar) (Propagator, error) {
	if index == nil || value == nil {
		return nil, fmt.Errorf("NewElement: index and value cannot be nil")
	}
	if len(array) == 0 {
		return nil, fmt.Errorf("NewElement: array cannot be empty")
	}
	for i, v := range array {
		if v == nil {
			return nil, fmt.Errorf("NewElement: array[%d] is nil", i)
		}
	}
	cp := make([]*IntVar, len(array))
	copy(cp, array)
	return &Element{index: index, array: cp, value: value}, nil
}

func (p *Element) Watches() []Watch {
	ws := watchInts(EventRemove, p.index, p.value)
	return append(ws, watchInts(EventRemove, p.array...)...)
}
func (p *Element) Priority() Priority { return PriorityLinear }

func (p *Element) String() string {
	return fmt.Sprintf("%s = [%s][%s]", p.value, joinNames(p.array), p.index)
}

// Propagate implements Propagator.
func (p *Element) Propagate(st *Store) error {
	if _, err := st.Restrict(p.index, RangeDomain(0, len(p.array)-1)); err != nil {
		return err
	}
	vd := st.Dom(p.value)
	for _, i := range st.Dom(p.index).Values() {
		if st.Dom(p.array[i]).Intersect(vd).IsEmpty() {
			if _, err := st.RemoveValue(p.index, i); err != nil {
				return err
			}
		}
	}
	var reach Domain
	st.Dom(p.index).Each(func(i int) {
		reach = reach.Union(st.Dom(p.array[i]))
	})
	if _, err := st.Restrict(p.value, reach); err != nil {
		return err
	}
	if st.Instantiated(p.index) {
		a := p.array[st.Value(p.index)]
		if _, err := st.Restrict(a, st.Dom(p.value)); err != nil {
			return err
		}
		if _, err := st.Restrict(p.value, st.Dom(a)); err != nil {
			return err
		}
	}
	return nil
}
