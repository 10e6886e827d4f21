// Package fd provides the finite-domain layer of the Clafer compiler.
// This file implements the Store, which owns every variable's domain and
// the trail used to undo mutations on backtrack.
//
// # Trail
//
// Each successful mutation pushes one undo entry holding the variable and
// its previous domain. Domains are immutable, so the entry just keeps the
// old value alive:
//
//	mark := store.Mark()        // trail length before the decision
//	store.Instantiate(x, 3)     // pushes (x, old dom(x))
//	store.AddToKernel(s, 1)     // pushes (ker(s), old ker) and (card, old card)
//	store.Rollback(mark)        // replays the entries in reverse
//
// Mutations never widen a domain, and a mutation that would empty one (or
// add a kernel value missing from the envelope) fails with a
// *ContradictionError that names the variable.
package fd

import "fmt"

type undoKind uint8

const (
	undoInt undoKind = iota
	undoEnv
	undoKer
)

type undo struct {
	kind undoKind
	id   int
	old  Domain
}

// changeListener is notified after every successful mutation.
type changeListener interface {
	onChange(r varRef, ev Event)
}

// Store owns the mutable state of every decision variable.
//
// Thread safety: a Store is owned by exactly one search and is not safe for
// concurrent use.
type Store struct {
	ints    []Domain
	intVars []*IntVar

	envs    []Domain
	kers    []Domain
	setVars []*SetVar

	trail     []undo
	peakTrail int
	listener  changeListener
}

// NewStore returns an empty store. Variables are normally allocated through
// a Model, which also registers the companion propagators they need.
func NewStore() *Store {
	return &Store{}
}

func (st *Store) newIntVar(name string, d Domain) *IntVar {
	v := &IntVar{id: len(st.ints), name: name}
	st.ints = append(st.ints, d)
	st.intVars = append(st.intVars, v)
	return v
}

func (st *Store) newSetVar(name string, env, ker Domain, card *IntVar) *SetVar {
	v := &SetVar{id: len(st.envs), name: name, card: card}
	st.envs = append(st.envs, env)
	st.kers = append(st.kers, ker)
	st.setVars = append(st.setVars, v)
	return v
}

// IntVars returns every integer variable in creation order.
func (st *Store) IntVars() []*IntVar { return st.intVars }

// SetVars returns every set variable in creation order.
func (st *Store) SetVars() []*SetVar { return st.setVars }

// Dom returns the current domain of x.
func (st *Store) Dom(x *IntVar) Domain { return st.ints[x.id] }

// Min returns the smallest value still admissible for x.
func (st *Store) Min(x *IntVar) int { return st.ints[x.id].Min() }

// Max returns the largest value still admissible for x.
func (st *Store) Max(x *IntVar) int { return st.ints[x.id].Max() }

// Contains reports whether v is still admissible for x.
func (st *Store) Contains(x *IntVar, v int) bool { return st.ints[x.id].Has(v) }

// Instantiated reports whether x has a single admissible value.
func (st *Store) Instantiated(x *IntVar) bool { return st.ints[x.id].IsSingleton() }

// Value returns the value of an instantiated x. For a non-instantiated
// variable it returns the minimum.
func (st *Store) Value(x *IntVar) int { return st.ints[x.id].Min() }

// IsTrue reports whether a boolean variable is instantiated to 1.
func (st *Store) IsTrue(b *IntVar) bool {
	d := st.ints[b.id]
	return d.IsSingleton() && d.Min() == 1
}

// IsFalse reports whether a boolean variable is instantiated to 0.
func (st *Store) IsFalse(b *IntVar) bool {
	d := st.ints[b.id]
	return d.IsSingleton() && d.Min() == 0
}

// Env returns the envelope of s.
func (st *Store) Env(s *SetVar) Domain { return st.envs[s.id] }

// Ker returns the kernel of s.
func (st *Store) Ker(s *SetVar) Domain { return st.kers[s.id] }

// SetInstantiated reports whether ker(s) = env(s).
func (st *Store) SetInstantiated(s *SetVar) bool {
	return st.envs[s.id].Count() == st.kers[s.id].Count()
}

// VarInstantiated reports whether v is instantiated, whatever its kind.
func (st *Store) VarInstantiated(v Var) bool {
	switch x := v.(type) {
	case *IntVar:
		return st.Instantiated(x)
	case *SetVar:
		return st.SetInstantiated(x)
	}
	return false
}

// Mark returns the current trail position for a later Rollback.
func (st *Store) Mark() int { return len(st.trail) }

// TrailSize returns the number of undo entries currently recorded.
func (st *Store) TrailSize() int { return len(st.trail) }

// PeakTrailSize returns the largest trail size seen so far.
func (st *Store) PeakTrailSize() int { return st.peakTrail }

// Rollback undoes every mutation recorded after mark.
func (st *Store) Rollback(mark int) {
	for i := len(st.trail) - 1; i >= mark; i-- {
		u := st.trail[i]
		switch u.kind {
		case undoInt:
			st.ints[u.id] = u.old
		case undoEnv:
			st.envs[u.id] = u.old
		case undoKer:
			st.kers[u.id] = u.old
		}
	}
	st.trail = st.trail[:mark]
}

func (st *Store) push(u undo) {
	st.trail = append(st.trail, u)
	if len(st.trail) > st.peakTrail {
		st.peakTrail = len(st.trail)
	}
}

func (st *Store) notify(r varRef, ev Event) {
	if st.listener != nil {
		st.listener.onChange(r, ev)
	}
}

// setInt installs nd, which must be a subset of the current domain.
func (st *Store) setInt(x *IntVar, nd Domain) (bool, error) {
	od := st.ints[x.id]
	if nd.Count() == od.Count() {
		return false, nil
	}
	if nd.IsEmpty() {
		return false, contradiction(x, "domain %v wiped out", od)
	}
	st.push(undo{kind: undoInt, id: x.id, old: od})
	st.ints[x.id] = nd
	ev := EventRemove
	if nd.Min() != od.Min() || nd.Max() != od.Max() {
		ev |= EventBound
	}
	if nd.IsSingleton() {
		ev |= EventInstantiate
	}
	st.notify(x.ref(), ev)
	return true, nil
}

// RemoveValue removes v from dom(x).
func (st *Store) RemoveValue(x *IntVar, v int) (bool, error) {
	d := st.ints[x.id]
	if !d.Has(v) {
		return false, nil
	}
	return st.setInt(x, d.Remove(v))
}

// UpdateLowerBound removes every value below lo from dom(x).
func (st *Store) UpdateLowerBound(x *IntVar, lo int) (bool, error) {
	return st.setInt(x, st.ints[x.id].RemoveBelow(lo))
}

// UpdateUpperBound removes every value above hi from dom(x).
func (st *Store) UpdateUpperBound(x *IntVar, hi int) (bool, error) {
	return st.setInt(x, st.ints[x.id].RemoveAbove(hi))
}

// Instantiate fixes x to v.
func (st *Store) Instantiate(x *IntVar, v int) (bool, error) {
	d := st.ints[x.id]
	if !d.Has(v) {
		return false, contradiction(x, "cannot instantiate to %d, domain is %v", v, d)
	}
	return st.setInt(x, DomainOf(v))
}

// Restrict intersects dom(x) with d.
func (st *Store) Restrict(x *IntVar, d Domain) (bool, error) {
	return st.setInt(x, st.ints[x.id].Intersect(d))
}

// AddToKernel forces v into s and raises the cardinality's lower bound.
func (st *Store) AddToKernel(s *SetVar, v int) (bool, error) {
	ker := st.kers[s.id]
	if ker.Has(v) {
		return false, nil
	}
	if !st.envs[s.id].Has(v) {
		return false, contradiction(s, "kernel value %d missing from envelope %v", v, st.envs[s.id])
	}
	st.push(undo{kind: undoKer, id: s.id, old: ker})
	ker = ker.Add(v)
	st.kers[s.id] = ker
	st.notify(s.ref(), EventKernel)
	if _, err := st.UpdateLowerBound(s.card, ker.Count()); err != nil {
		return true, err
	}
	return true, nil
}

// RemoveFromEnvelope excludes v from s and lowers the cardinality's upper
// bound.
func (st *Store) RemoveFromEnvelope(s *SetVar, v int) (bool, error) {
	env := st.envs[s.id]
	if !env.Has(v) {
		return false, nil
	}
	if st.kers[s.id].Has(v) {
		return false, contradiction(s, "cannot remove kernel value %d", v)
	}
	st.push(undo{kind: undoEnv, id: s.id, old: env})
	env = env.Remove(v)
	st.envs[s.id] = env
	st.notify(s.ref(), EventEnvelope)
	if _, err := st.UpdateUpperBound(s.card, env.Count()); err != nil {
		return true, err
	}
	return true, nil
}

// RestrictEnvelope removes from env(s) every value not in d.
func (st *Store) RestrictEnvelope(s *SetVar, d Domain) (bool, error) {
	changed := false
	for _, v := range st.envs[s.id].Values() {
		if d.Has(v) {
			continue
		}
		c, err := st.RemoveFromEnvelope(s, v)
		changed = changed || c
		if err != nil {
			return changed, err
		}
	}
	return changed, nil
}

// InstantiateSet fixes s to exactly the values of d.
func (st *Store) InstantiateSet(s *SetVar, d Domain) (bool, error) {
	changed, err := st.RestrictEnvelope(s, d)
	if err != nil {
		return changed, err
	}
	var bad error
	d.Each(func(v int) {
		if bad != nil {
			return
		}
		c, err := st.AddToKernel(s, v)
		changed = changed || c
		bad = err
	})
	return changed, bad
}

// CheckInvariants verifies domain soundness for every variable: integer
// domains are non-empty, ker ⊆ env, and |ker| ≤ card ≤ |env| is still
// satisfiable.
func (st *Store) CheckInvariants() error {
	for i, d := range st.ints {
		if d.IsEmpty() {
			return fmt.Errorf("int var %s has an empty domain", st.intVars[i])
		}
	}
	for i, s := range st.setVars {
		env, ker := st.envs[i], st.kers[i]
		if !ker.SubsetOf(env) {
			return fmt.Errorf("set var %s: kernel %v not within envelope %v", s, ker, env)
		}
		card := st.ints[s.card.id]
		if card.Max() < ker.Count() || card.Min() > env.Count() {
			return fmt.Errorf("set var %s: card %v inconsistent with |ker|=%d |env|=%d", s, card, ker.Count(), env.Count())
		}
	}
	return nil
}
