// Package fd: set cardinality companion - SetCard
//
// SetCard enforces card = |set| for a set variable and the cardinality
// variable it owns. Every SetVar created through a Model gets exactly one
// SetCard, which is what allows the set propagators (join, setSum,
// filterString, ...) to read the card variable instead of recomputing
// |set| and to skip enforcing the equality themselves.
//
// Propagation:
//   - card ∈ [|ker|, |env|]
//   - card.min = |env|  ⇒ ker := env
//   - card.max = |ker|  ⇒ env := ker
package fd

import "fmt"

// SetCard is the cardinality companion of a set variable.
type SetCard struct {
	set *SetVar
}

// NewSetCard creates the companion for s. Model.SetVar posts it automatically.
func NewSetCard(s *SetVar) (Propagator, error) {
	if s == nil {
		return nil, fmt.Errorf("NewSetCard: set cannot be nil")
	}
	return &SetCard{set: s}, nil
}

func (p *SetCard) Watches() []Watch {
	return []Watch{{Var: p.set, Mask: EventAnySet}, {Var: p.set.card, Mask: EventBound}}
}

func (p *SetCard) Priority() Priority { return PriorityUnary }
func (p *SetCard) Idempotent() bool   { return true }

func (p *SetCard) String() string { return fmt.Sprintf("SetCard(%s)", p.set) }

// Propagate implements Propagator.
func (p *SetCard) Propagate(st *Store) error {
	s, c := p.set, p.set.card
	if _, err := st.UpdateLowerBound(c, st.Ker(s).Count()); err != nil {
		return err
	}
	if _, err := st.UpdateUpperBound(c, st.Env(s).Count()); err != nil {
		return err
	}
	env, ker := st.Env(s), st.Ker(s)
	switch {
	case st.Min(c) == env.Count() && ker.Count() < env.Count():
		_, err := st.InstantiateSet(s, env)
		return err
	case st.Max(c) == ker.Count() && ker.Count() < env.Count():
		_, err := st.RestrictEnvelope(s, ker)
		return err
	}
	return nil
}
