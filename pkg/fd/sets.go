// Package fd: set relations - ArrayToSet, Union, SetEqualReif, MemberReif
//
// ArrayToSet:   set = { ints[i] }, each value taken by at most globalCard
//               indices (0 means unbounded)
// Union:        result = ∪ sets[i]
// SetEqualReif: b ⇔ a = c
// MemberReif:   b ⇔ v ∈ set
//
// ArrayToSet trusts the set's cardinality variable; the others work on
// envelopes and kernels only.
package fd

import "fmt"

// ArrayToSet collects an integer array into a set.
type ArrayToSet struct {
	ints       []*IntVar
	set        *SetVar
	globalCard int
}

// NewArrayToSet constructs set = {ints[i]}.
func NewArrayToSet(ints []*IntVar, set *SetVar, globalCard int) (Propagator, error) {
	if set == nil {
		return nil, fmt.Errorf("NewArrayToSet: set cannot be nil")
	}
	if globalCard < 0 {
		return nil, fmt.Errorf("NewArrayToSet: negative global cardinality %d", globalCard)
	}
	for i, v := range ints {
		if v == nil {
			return nil, fmt.Errorf("NewArrayToSet: ints[%d] is nil", i)
		}
	}
	return &ArrayToSet{ints: append([]*IntVar(nil), ints...), set: set, globalCard: globalCard}, nil
}

func (p *ArrayToSet) Watches() []Watch {
	ws := watchInts(EventRemove, p.ints...)
	return append(ws, Watch{Var: p.set, Mask: EventAnySet}, Watch{Var: p.set.card, Mask: EventBound})
}
func (p *ArrayToSet) Priority() Priority      { return PriorityLinear }
func (p *ArrayToSet) TrustedCards() []*SetVar { return []*SetVar{p.set} }
func (p *ArrayToSet) String() string {
	return fmt.Sprintf("%s = set([%s], gc=%d)", p.set, joinNames(p.ints), p.globalCard)
}

// Propagate implements Propagator.
func (p *ArrayToSet) Propagate(st *Store) error {
	var reach Domain
	for _, x := range p.ints {
		if _, err := st.Restrict(x, st.Env(p.set)); err != nil {
			return err
		}
		if st.Instantiated(x) {
			if _, err := st.AddToKernel(p.set, st.Value(x)); err != nil {
				return err
			}
		}
		reach = reach.Union(st.Dom(x))
	}
	if _, err := st.RestrictEnvelope(p.set, reach); err != nil {
		return err
	}
	for _, v := range st.Ker(p.set).Values() {
		support, n := -1, 0
		for i, x := range p.ints {
			if st.Contains(x, v) {
				support, n = i, n+1
			}
		}
		switch n {
		case 0:
			return fail("%s: %d has no support", p, v)
		case 1:
			if _, err := st.Instantiate(p.ints[support], v); err != nil {
				return err
			}
		}
	}
	card := p.set.card
	if _, err := st.UpdateUpperBound(card, len(p.ints)); err != nil {
		return err
	}
	if len(p.ints) > 0 {
		lo := 1
		if p.globalCard > 0 {
			lo = max(lo, ceilDiv(len(p.ints), p.globalCard))
		}
		if _, err := st.UpdateLowerBound(card, lo); err != nil {
			return err
		}
	}
	if p.globalCard == 0 {
		return nil
	}
	taken := make(map[int]int)
	for _, x := range p.ints {
		if st.Instantiated(x) {
			taken[st.Value(x)]++
		}
	}
	for v, c := range taken {
		if c > p.globalCard {
			return fail("%s: %d taken %d times", p, v, c)
		}
		if c < p.globalCard {
			continue
		}
		for _, x := range p.ints {
			if !st.Instantiated(x) {
				if _, err := st.RemoveValue(x, v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Union is result = ∪ sets.
type Union struct {
	sets   []*SetVar
	result *SetVar
}

// NewUnion constructs result = ∪ sets.
func NewUnion(sets []*SetVar, result *SetVar) (Propagator, error) {
	if result == nil {
		return nil, fmt.Errorf("NewUnion: result cannot be nil")
	}
	for i, s := range sets {
		if s == nil {
			return nil, fmt.Errorf("NewUnion: sets[%d] is nil", i)
		}
	}
	return &Union{sets: append([]*SetVar(nil), sets...), result: result}, nil
}

func (p *Union) Watches() []Watch {
	return append(watchSets(EventAnySet, p.sets...), Watch{Var: p.result, Mask: EventAnySet})
}
func (p *Union) Priority() Priority { return PriorityLinear }
func (p *Union) String() string     { return fmt.Sprintf("%s = union(%s)", p.result, joinNames(p.sets)) }

// Propagate implements Propagator.
func (p *Union) Propagate(st *Store) error {
	var reach Domain
	for _, s := range p.sets {
		if _, err := st.RestrictEnvelope(s, st.Env(p.result)); err != nil {
			return err
		}
		for _, v := range st.Ker(s).Values() {
			if _, err := st.AddToKernel(p.result, v); err != nil {
				return err
			}
		}
		reach = reach.Union(st.Env(s))
	}
	if _, err := st.RestrictEnvelope(p.result, reach); err != nil {
		return err
	}
	for _, v := range st.Ker(p.result).Values() {
		var support *SetVar
		n := 0
		for _, s := range p.sets {
			if st.Env(s).Has(v) {
				support, n = s, n+1
			}
		}
		switch n {
		case 0:
			return fail("%s: %d has no support", p, v)
		case 1:
			if _, err := st.AddToKernel(support, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetEqualReif is b ⇔ a = c.
type SetEqualReif struct {
	b    *IntVar
	a, c *SetVar
}

// NewSetEqualReif constructs b ⇔ a = c.
func NewSetEqualReif(b *IntVar, a, c *SetVar) (Propagator, error) {
	if b == nil || a == nil || c == nil {
		return nil, fmt.Errorf("NewSetEqualReif: operands cannot be nil")
	}
	return &SetEqualReif{b: b, a: a, c: c}, nil
}

func (p *SetEqualReif) Watches() []Watch {
	return []Watch{{Var: p.b, Mask: EventInstantiate}, {Var: p.a, Mask: EventAnySet}, {Var: p.c, Mask: EventAnySet}}
}
func (p *SetEqualReif) Priority() Priority { return PriorityLinear }
func (p *SetEqualReif) String() string     { return fmt.Sprintf("%s <=> %s = %s", p.b, p.a, p.c) }

// Propagate implements Propagator.
func (p *SetEqualReif) Propagate(st *Store) error {
	a, c := p.a, p.c
	switch {
	case !st.Ker(a).SubsetOf(st.Env(c)) || !st.Ker(c).SubsetOf(st.Env(a)):
		_, err := st.Instantiate(p.b, 0)
		return err
	case st.SetInstantiated(a) && st.SetInstantiated(c):
		v := 0
		if st.Ker(a).Equal(st.Ker(c)) {
			v = 1
		}
		_, err := st.Instantiate(p.b, v)
		return err
	}
	if !st.IsTrue(p.b) {
		return nil
	}
	for _, pair := range [][2]*SetVar{{a, c}, {c, a}} {
		x, y := pair[0], pair[1]
		if _, err := st.RestrictEnvelope(x, st.Env(y)); err != nil {
			return err
		}
		for _, v := range st.Ker(y).Values() {
			if _, err := st.AddToKernel(x, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// MemberReif is b ⇔ v ∈ set.
type MemberReif struct {
	b, v *IntVar
	set  *SetVar
}

// NewMemberReif constructs b ⇔ v ∈ set.
func NewMemberReif(b, v *IntVar, set *SetVar) (Propagator, error) {
	if b == nil || v == nil || set == nil {
		return nil, fmt.Errorf("NewMemberReif: operands cannot be nil")
	}
	return &MemberReif{b: b, v: v, set: set}, nil
}

func (p *MemberReif) Watches() []Watch {
	return []Watch{{Var: p.b, Mask: EventInstantiate}, {Var: p.v, Mask: EventRemove}, {Var: p.set, Mask: EventAnySet}}
}
func (p *MemberReif) Priority() Priority { return PriorityBinary }
func (p *MemberReif) String() string     { return fmt.Sprintf("%s <=> %s in %s", p.b, p.v, p.set) }

// Propagate implements Propagator.
func (p *MemberReif) Propagate(st *Store) error {
	dom := st.Dom(p.v)
	switch {
	case dom.Intersect(st.Env(p.set)).IsEmpty():
		_, err := st.Instantiate(p.b, 0)
		return err
	case dom.SubsetOf(st.Ker(p.set)):
		_, err := st.Instantiate(p.b, 1)
		return err
	}
	switch {
	case st.IsTrue(p.b):
		if _, err := st.Restrict(p.v, st.Env(p.set)); err != nil {
			return err
		}
		if st.Instantiated(p.v) {
			_, err := st.AddToKernel(p.set, st.Value(p.v))
			return err
		}
	case st.IsFalse(p.b):
		if _, err := st.Restrict(p.v, dom.Minus(st.Ker(p.set))); err != nil {
			return err
		}
		if st.Instantiated(p.v) {
			_, err := st.RemoveFromEnvelope(p.set, st.Value(p.v))
			return err
		}
	}
	return nil
}
