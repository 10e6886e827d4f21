// Package fd: group cardinality - GuardedCard
//
// GuardedCard enforces
//
//	member = 1  ⇒  lo ≤ card ≤ hi
//	member = 0  ⇒  card = 0
//
// which is how the compiler bounds the number of children (or of active
// child groups) of an instance that may or may not exist.
package fd

import "fmt"

// GuardedCard bounds a count by a membership flag.
type GuardedCard struct {
	member, card *IntVar
	lo, hi       int
}

// NewGuardedCard constructs the guarded bound.
func NewGuardedCard(member, card *IntVar, lo, hi int) (Propagator, error) {
	if member == nil || card == nil {
		return nil, fmt.Errorf("NewGuardedCard: operands cannot be nil")
	}
	if lo < 0 || lo > hi {
		return nil, fmt.Errorf("NewGuardedCard: invalid bounds [%d, %d]", lo, hi)
	}
	return &GuardedCard{member: member, card: card, lo: lo, hi: hi}, nil
}

func (p *GuardedCard) Watches() []Watch {
	return []Watch{{Var: p.member, Mask: EventInstantiate}, {Var: p.card, Mask: EventRemove}}
}
func (p *GuardedCard) Priority() Priority { return PriorityBinary }
func (p *GuardedCard) Idempotent() bool   { return true }
func (p *GuardedCard) String() string {
	return fmt.Sprintf("%s => %s in [%d..%d]", p.member, p.card, p.lo, p.hi)
}

// Propagate implements Propagator.
func (p *GuardedCard) Propagate(st *Store) error {
	if st.Dom(p.card).Intersect(RangeDomain(p.lo, p.hi)).IsEmpty() {
		if _, err := st.Instantiate(p.member, 0); err != nil {
			return err
		}
	}
	if !st.Contains(p.card, 0) {
		if _, err := st.Instantiate(p.member, 1); err != nil {
			return err
		}
	}
	switch {
	case st.IsTrue(p.member):
		_, err := st.Restrict(p.card, RangeDomain(p.lo, p.hi))
		return err
	case st.IsFalse(p.member):
		_, err := st.Instantiate(p.card, 0)
		return err
	}
	return nil
}
