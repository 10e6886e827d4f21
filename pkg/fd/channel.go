// Package fd: channeling - IntChannel and BoolChannel
//
// IntChannel links a vector of sets to a vector of integers with
//
//	x ∈ sets[i]  ⇔  ints[x] = i
//
// An ints[x] value outside [0, len(sets)) means x is in no set; the
// compiler uses len(sets) as the "no parent" sentinel of a child slot.
// The sets are therefore pairwise disjoint.
//
// BoolChannel links a vector of booleans to one set with
//
//	bools[i] = 1  ⇔  i ∈ set
//
// Both are domain consistent and idempotent.
package fd

import "fmt"

// IntChannel channels child sets and parent pointers.
type IntChannel struct {
	sets []*SetVar
	ints []*IntVar
}

// NewIntChannel constructs x ∈ sets[i] ⇔ ints[x] = i.
func NewIntChannel(sets []*SetVar, ints []*IntVar) (Propagator, error) {
	for i, s := range sets {
		if s == nil {
			return nil, fmt.Errorf("NewIntChannel: sets[%d] is nil", i)
		}
	}
	for i, v := range ints {
		if v == nil {
			return nil, fmt.Errorf("NewIntChannel: ints[%d] is nil", i)
		}
	}
	return &IntChannel{sets: append([]*SetVar(nil), sets...), ints: append([]*IntVar(nil), ints...)}, nil
}

func (p *IntChannel) Watches() []Watch {
	return append(watchSets(EventAnySet, p.sets...), watchInts(EventRemove, p.ints...)...)
}
func (p *IntChannel) Priority() Priority { return PriorityLinear }
func (p *IntChannel) Idempotent() bool   { return true }
func (p *IntChannel) String() string {
	return fmt.Sprintf("IntChannel([%s], [%s])", joinNames(p.sets), joinNames(p.ints))
}

// Propagate implements Propagator. A pruned parent pointer can empty
// another set's envelope, so the passes repeat until neither side changes.
func (p *IntChannel) Propagate(st *Store) error {
	for {
		changed, err := p.pass(st)
		if err != nil || !changed {
			return err
		}
	}
}

func (p *IntChannel) pass(st *Store) (bool, error) {
	n := len(p.ints)
	var changed bool
	for i, s := range p.sets {
		for _, x := range st.Env(s).Values() {
			if x < 0 || x >= n || !st.Contains(p.ints[x], i) {
				ch, err := st.RemoveFromEnvelope(s, x)
				if err != nil {
					return false, err
				}
				changed = changed || ch
			}
		}
		for _, x := range st.Ker(s).Values() {
			ch, err := st.Instantiate(p.ints[x], i)
			if err != nil {
				return false, err
			}
			changed = changed || ch
		}
	}
	for x, v := range p.ints {
		for _, i := range st.Dom(v).Values() {
			if i < 0 || i >= len(p.sets) {
				continue
			}
			if !st.Env(p.sets[i]).Has(x) {
				ch, err := st.RemoveValue(v, i)
				if err != nil {
					return false, err
				}
				changed = changed || ch
			}
		}
		if st.Instantiated(v) {
			if i := st.Value(v); i >= 0 && i < len(p.sets) {
				ch, err := st.AddToKernel(p.sets[i], x)
				if err != nil {
					return false, err
				}
				changed = changed || ch
			}
		}
	}
	return changed, nil
}

// BoolChannel channels booleans and set membership.
type BoolChannel struct {
	bools []*IntVar
	set   *SetVar
}

// NewBoolChannel constructs bools[i] ⇔ i ∈ set.
func NewBoolChannel(bools []*IntVar, set *SetVar) (Propagator, error) {
	if set == nil {
		return nil, fmt.Errorf("NewBoolChannel: set cannot be nil")
	}
	for i, b := range bools {
		if b == nil {
			return nil, fmt.Errorf("NewBoolChannel: bools[%d] is nil", i)
		}
	}
	return &BoolChannel{bools: append([]*IntVar(nil), bools...), set: set}, nil
}

func (p *BoolChannel) Watches() []Watch {
	return append(watchInts(EventInstantiate, p.bools...), Watch{Var: p.set, Mask: EventAnySet})
}
func (p *BoolChannel) Priority() Priority { return PriorityLinear }
func (p *BoolChannel) Idempotent() bool   { return true }
func (p *BoolChannel) String() string {
	return fmt.Sprintf("BoolChannel([%s], %s)", joinNames(p.bools), p.set)
}

// Propagate implements Propagator.
func (p *BoolChannel) Propagate(st *Store) error {
	if _, err := st.RestrictEnvelope(p.set, RangeDomain(0, len(p.bools)-1)); err != nil {
		return err
	}
	for i, b := range p.bools {
		var err error
		switch {
		case st.IsTrue(b):
			_, err = st.AddToKernel(p.set, i)
		case st.IsFalse(b):
			_, err = st.RemoveFromEnvelope(p.set, i)
		case st.Ker(p.set).Has(i):
			_, err = st.Instantiate(b, 1)
		case !st.Env(p.set).Has(i):
			_, err = st.Instantiate(b, 0)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
