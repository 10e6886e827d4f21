// Package fd: relational joins - JoinRelation and JoinFunction
//
// Both propagators enforce `take.R = to` for a binary relation R encoded
// per index.
//
// JoinRelation: R is a vector of sets, to = ∪ { children[i] | i ∈ take }.
//   - i ∈ ker(take)            ⇒ ker(children[i]) ⊆ to ⊆ ..., env(children[i]) ⊆ env(to)
//   - env(to)                  ⊆ ∪ { env(children[i]) | i ∈ env(take) }
//   - v ∈ ker(to)              ⇒ some i ∈ env(take) has v ∈ env(children[i]);
//     a unique such i is forced into take and v into children[i]
//   - ker(children[i]) ⊄ env(to) ⇒ i ∉ take
//   - injective R (the children sets are pairwise disjoint, as for a
//     parent/child relation): |to| = Σ { |children[i]| | i ∈ take }
//
// JoinFunction: R is a vector of integers, to = { refs[i] | i ∈ take }.
//   - i ∈ ker(take)            ⇒ refs[i] ∈ env(to); instantiated refs[i] ∈ ker(to)
//   - env(to)                  ⊆ ∪ { dom(refs[i]) | i ∈ env(take) }
//   - v ∈ ker(to)              ⇒ supported by some i ∈ env(take), forced if unique
//   - |to| ≤ |take| and, for a global cardinality g (each value taken by at
//     most g indices), |to| ≥ ⌈|take| / g⌉; g = 1 makes |to| = |take|
//
// Neither propagator enforces card = |set| for its arguments: the SetCard
// companion of each set does.
package fd

import "fmt"

// JoinRelation enforces to = ∪_{i∈take} children[i].
type JoinRelation struct {
	take      *SetVar
	children  []*SetVar
	to        *SetVar
	injective bool
}

// NewJoinRelation constructs take.children = to. Set injective when the
// children sets are pairwise disjoint.
func NewJoinRelation(take *SetVar, children []*SetVar, to *SetVar, injective bool) (Propagator, error) {
	if take == nil || to == nil {
		return nil, fmt.Errorf("NewJoinRelation: take and to cannot be nil")
	}
	for i, c := range children {
		if c == nil {
			return nil, fmt.Errorf("NewJoinRelation: children[%d] is nil", i)
		}
	}
	cp := make([]*SetVar, len(children))
	copy(cp, children)
	return &JoinRelation{take: take, children: cp, to: to, injective: injective}, nil
}

func (p *JoinRelation) Watches() []Watch {
	ws := watchSets(EventAnySet, p.take, p.to)
	ws = append(ws, watchSets(EventAnySet, p.children...)...)
	if p.injective {
		ws = append(ws, Watch{Var: p.to.card, Mask: EventBound})
		for _, c := range p.children {
			ws = append(ws, Watch{Var: c.card, Mask: EventBound})
		}
	}
	return ws
}

func (p *JoinRelation) Priority() Priority { return PriorityQuadratic }

func (p *JoinRelation) TrustedCards() []*SetVar {
	if !p.injective {
		return nil
	}
	return append([]*SetVar{p.to}, p.children...)
}

func (p *JoinRelation) String() string {
	return fmt.Sprintf("JoinRelation(%s.[%s] = %s)", p.take, joinNames(p.children), p.to)
}

// Propagate implements Propagator.
func (p *JoinRelation) Propagate(st *Store) error {
	if _, err := st.RestrictEnvelope(p.take, RangeDomain(0, len(p.children)-1)); err != nil {
		return err
	}
	for _, i := range st.Ker(p.take).Values() {
		c := p.children[i]
		for _, v := range st.Ker(c).Values() {
			if _, err := st.AddToKernel(p.to, v); err != nil {
				return err
			}
		}
		if _, err := st.RestrictEnvelope(c, st.Env(p.to)); err != nil {
			return err
		}
	}
	ker := st.Ker(p.take)
	for _, i := range st.Env(p.take).Values() {
		if ker.Has(i) {
			continue
		}
		if !st.Ker(p.children[i]).SubsetOf(st.Env(p.to)) {
			if _, err := st.RemoveFromEnvelope(p.take, i); err != nil {
				return err
			}
		}
	}
	var reach Domain
	st.Env(p.take).Each(func(i int) { reach = reach.Union(st.Env(p.children[i])) })
	if _, err := st.RestrictEnvelope(p.to, reach); err != nil {
		return err
	}
	for _, v := range st.Ker(p.to).Values() {
		support, n := -1, 0
		st.Env(p.take).Each(func(i int) {
			if st.Env(p.children[i]).Has(v) {
				support = i
				n++
			}
		})
		if n == 0 {
			return fail("%s: %d in result has no support", p, v)
		}
		if n == 1 {
			if _, err := st.AddToKernel(p.take, support); err != nil {
				return err
			}
			if _, err := st.AddToKernel(p.children[support], v); err != nil {
				return err
			}
		}
	}
	if p.injective {
		lo, hi := 0, 0
		ker := st.Ker(p.take)
		st.Env(p.take).Each(func(i int) {
			c := p.children[i].card
			if ker.Has(i) {
				lo += st.Min(c)
			}
			hi += st.Max(c)
		})
		if _, err := st.UpdateLowerBound(p.to.card, lo); err != nil {
			return err
		}
		if _, err := st.UpdateUpperBound(p.to.card, hi); err != nil {
			return err
		}
	}
	return nil
}

// JoinFunction enforces to = { refs[i] | i ∈ take }.
type JoinFunction struct {
	take       *SetVar
	refs       []*IntVar
	to         *SetVar
	globalCard int
}

// NewJoinFunction constructs take.refs = to. globalCard bounds how many
// indices may share a value; pass 0 when unbounded.
func NewJoinFunction(take *SetVar, refs []*IntVar, to *SetVar, globalCard int) (Propagator, error) {
	if take == nil || to == nil {
		return nil, fmt.Errorf("NewJoinFunction: take and to cannot be nil")
	}
	if globalCard < 0 {
		return nil, fmt.Errorf("NewJoinFunction: negative global cardinality %d", globalCard)
	}
	for i, r := range refs {
		if r == nil {
			return nil, fmt.Errorf("NewJoinFunction: refs[%d] is nil", i)
		}
	}
	cp := make([]*IntVar, len(refs))
	copy(cp, refs)
	return &JoinFunction{take: take, refs: cp, to: to, globalCard: globalCard}, nil
}

func (p *JoinFunction) Watches() []Watch {
	ws := watchSets(EventAnySet, p.take, p.to)
	ws = append(ws, Watch{Var: p.take.card, Mask: EventBound}, Watch{Var: p.to.card, Mask: EventBound})
	return append(ws, watchInts(EventRemove, p.refs...)...)
}

func (p *JoinFunction) Priority() Priority { return PriorityQuadratic }

func (p *JoinFunction) TrustedCards() []*SetVar { return []*SetVar{p.take, p.to} }

func (p *JoinFunction) String() string {
	return fmt.Sprintf("JoinFunction(%s.[%s] = %s, gc=%d)", p.take, joinNames(p.refs), p.to, p.globalCard)
}

// Propagate implements Propagator.
func (p *JoinFunction) Propagate(st *Store) error {
	if _, err := st.RestrictEnvelope(p.take, RangeDomain(0, len(p.refs)-1)); err != nil {
		return err
	}
	takeKer := st.Ker(p.take)
	for _, i := range takeKer.Values() {
		r := p.refs[i]
		if _, err := st.Restrict(r, st.Env(p.to)); err != nil {
			return err
		}
		if st.Instantiated(r) {
			if _, err := st.AddToKernel(p.to, st.Value(r)); err != nil {
				return err
			}
		}
	}
	if p.globalCard == 1 {
		for _, i := range takeKer.Values() {
			if !st.Instantiated(p.refs[i]) {
				continue
			}
			v := st.Value(p.refs[i])
			for _, j := range takeKer.Values() {
				if j == i {
					continue
				}
				if _, err := st.RemoveValue(p.refs[j], v); err != nil {
					return err
				}
			}
		}
	}
	for _, i := range st.Env(p.take).Values() {
		if takeKer.Has(i) {
			continue
		}
		if st.Dom(p.refs[i]).Intersect(st.Env(p.to)).IsEmpty() {
			if _, err := st.RemoveFromEnvelope(p.take, i); err != nil {
				return err
			}
		}
	}
	var reach Domain
	st.Env(p.take).Each(func(i int) { reach = reach.Union(st.Dom(p.refs[i])) })
	if _, err := st.RestrictEnvelope(p.to, reach); err != nil {
		return err
	}
	for _, v := range st.Ker(p.to).Values() {
		support, n := -1, 0
		st.Env(p.take).Each(func(i int) {
			if st.Contains(p.refs[i], v) {
				support = i
				n++
			}
		})
		if n == 0 {
			return fail("%s: %d in result has no support", p, v)
		}
		if n == 1 {
			if _, err := st.AddToKernel(p.take, support); err != nil {
				return err
			}
			if _, err := st.Instantiate(p.refs[support], v); err != nil {
				return err
			}
		}
	}
	tc, oc := p.take.card, p.to.card
	if _, err := st.UpdateUpperBound(oc, st.Max(tc)); err != nil {
		return err
	}
	if st.Min(tc) > 0 {
		if _, err := st.UpdateLowerBound(oc, 1); err != nil {
			return err
		}
	}
	if st.Max(oc) == 0 {
		if _, err := st.UpdateUpperBound(tc, 0); err != nil {
			return err
		}
	}
	if p.globalCard > 0 {
		g := p.globalCard
		if _, err := st.UpdateLowerBound(oc, ceilDiv(st.Min(tc), g)); err != nil {
			return err
		}
		if _, err := st.UpdateUpperBound(tc, st.Max(oc)*g); err != nil {
			return err
		}
	}
	if _, err := st.UpdateLowerBound(tc, st.Min(oc)); err != nil {
		return err
	}
	return nil
}
