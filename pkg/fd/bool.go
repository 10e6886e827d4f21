// Package fd: boolean aggregates - And, Or, One, Lone and their reified forms
//
// All operands are boolean IntVars over {0,1}.
//
// Hard aggregates count instantiated trues and falses:
//   - and:  every operand is 1
//   - or:   at least one operand is 1; when all but one are 0, the last is 1
//   - one:  exactly one operand is 1; a second true fails, the first true
//     forces the rest to 0, and a single undetermined operand among falses
//     is forced to 1
//   - lone: at most one operand is 1
//
// Reified forms r ⇔ ∧ops and r ⇔ ∨ops short-circuit as soon as the
// aggregate is determined and push r back into the operands.
package fd

import (
	"fmt"
	"strings"
)

type aggKind int

const (
	aggAnd aggKind = iota
	aggOr
	aggOne
	aggLone
)

func (k aggKind) String() string {
	return [...]string{"And", "Or", "One", "Lone"}[k]
}

// BoolAggregate is a hard boolean aggregate over a vector of booleans.
type BoolAggregate struct {
	kind aggKind
	ops  []*IntVar
}

// NewAnd enforces ops[0] ∧ ops[1] ∧ ... ∧ ops[n].
func NewAnd(ops ...*IntVar) (Propagator, error) { return newAggregate(aggAnd, ops) }

// NewOr enforces ops[0] ∨ ops[1] ∨ ... ∨ ops[n].
func NewOr(ops ...*IntVar) (Propagator, error) { return newAggregate(aggOr, ops) }

// NewOne enforces ops[0] + ops[1] + ... + ops[n] = 1.
func NewOne(ops ...*IntVar) (Propagator, error) { return newAggregate(aggOne, ops) }

// NewLone enforces ops[0] + ops[1] + ... + ops[n] ≤ 1.
func NewLone(ops ...*IntVar) (Propagator, error) { return newAggregate(aggLone, ops) }

func newAggregate(k aggKind, ops []*IntVar) (Propagator, error) {
	for i, v := range ops {
		if v == nil {
			return nil, fmt.Errorf("New%s: operand %d is nil", k, i)
		}
	}
	cp := make([]*IntVar, len(ops))
	copy(cp, ops)
	return &BoolAggregate{kind: k, ops: cp}, nil
}

func (p *BoolAggregate) Watches() []Watch   { return watchInts(EventInstantiate, p.ops...) }
func (p *BoolAggregate) Priority() Priority { return PriorityLinear }
func (p *BoolAggregate) Idempotent() bool   { return true }

func (p *BoolAggregate) String() string {
	return fmt.Sprintf("%s(%s)", p.kind, joinNames(p.ops))
}

// Propagate implements Propagator.
func (p *BoolAggregate) Propagate(st *Store) error {
	trues, undetermined := 0, 0
	last := -1
	for i, b := range p.ops {
		switch {
		case st.IsTrue(b):
			trues++
		case !st.Instantiated(b):
			undetermined++
			last = i
		}
	}
	switch p.kind {
	case aggAnd:
		for _, b := range p.ops {
			if _, err := st.Instantiate(b, 1); err != nil {
				return err
			}
		}
	case aggOr:
		if trues > 0 {
			return nil
		}
		if undetermined == 0 {
			return fail("%s: every operand is false", p)
		}
		if undetermined == 1 {
			_, err := st.Instantiate(p.ops[last], 1)
			return err
		}
	case aggOne, aggLone:
		if trues > 1 {
			return fail("%s: %d operands are true", p, trues)
		}
		if trues == 1 {
			return p.clearOthers(st)
		}
		if p.kind == aggOne {
			if undetermined == 0 {
				return fail("%s: every operand is false", p)
			}
			if undetermined == 1 {
				_, err := st.Instantiate(p.ops[last], 1)
				return err
			}
		}
	}
	return nil
}

func (p *BoolAggregate) clearOthers(st *Store) error {
	for _, b := range p.ops {
		if st.IsTrue(b) {
			continue
		}
		if _, err := st.Instantiate(b, 0); err != nil {
			return err
		}
	}
	return nil
}

// ReifiedAggregate enforces r ⇔ ∧ops (and) or r ⇔ ∨ops (or).
type ReifiedAggregate struct {
	or  bool
	r   *IntVar
	ops []*IntVar
}

// NewAndReif enforces r ⇔ ops[0] ∧ ... ∧ ops[n]. With no operands r is true.
func NewAndReif(r *IntVar, ops ...*IntVar) (Propagator, error) {
	return newReifAggregate(false, r, ops)
}

// NewOrReif enforces r ⇔ ops[0] ∨ ... ∨ ops[n]. With no operands r is false.
func NewOrReif(r *IntVar, ops ...*IntVar) (Propagator, error) {
	return newReifAggregate(true, r, ops)
}

func newReifAggregate(or bool, r *IntVar, ops []*IntVar) (Propagator, error) {
	if r == nil {
		return nil, fmt.Errorf("NewReifAggregate: result cannot be nil")
	}
	for i, v := range ops {
		if v == nil {
			return nil, fmt.Errorf("NewReifAggregate: operand %d is nil", i)
		}
	}
	cp := make([]*IntVar, len(ops))
	copy(cp, ops)
	return &ReifiedAggregate{or: or, r: r, ops: cp}, nil
}

func (p *ReifiedAggregate) Watches() []Watch {
	return watchInts(EventInstantiate, append([]*IntVar{p.r}, p.ops...)...)
}
func (p *ReifiedAggregate) Priority() Priority { return PriorityLinear }

func (p *ReifiedAggregate) String() string {
	op := "And"
	if p.or {
		op = "Or"
	}
	return fmt.Sprintf("%s <=> %s(%s)", p.r, op, joinNames(p.ops))
}

// Propagate implements Propagator. The or form is the and form with every
// literal negated: absorbing value 1 instead of 0.
func (p *ReifiedAggregate) Propagate(st *Store) error {
	absorb, neutral := 0, 1
	if p.or {
		absorb, neutral = 1, 0
	}
	undetermined, last := 0, -1
	for i, b := range p.ops {
		if !st.Instantiated(b) {
			undetermined++
			last = i
			continue
		}
		if st.Value(b) == absorb {
			_, err := st.Instantiate(p.r, absorb)
			return err
		}
	}
	if undetermined == 0 {
		_, err := st.Instantiate(p.r, neutral)
		return err
	}
	if !st.Instantiated(p.r) {
		return nil
	}
	if st.Value(p.r) == neutral {
		for _, b := range p.ops {
			if _, err := st.Instantiate(b, neutral); err != nil {
				return err
			}
		}
		return nil
	}
	if undetermined == 1 {
		_, err := st.Instantiate(p.ops[last], absorb)
		return err
	}
	return nil
}

// Not enforces b = ¬a.
type Not struct{ a, b *IntVar }

// NewNot enforces b = 1 - a over booleans.
func NewNot(a, b *IntVar) (Propagator, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("NewNot: operands cannot be nil")
	}
	return &Not{a: a, b: b}, nil
}

func (p *Not) Watches() []Watch   { return watchInts(EventInstantiate, p.a, p.b) }
func (p *Not) Priority() Priority { return PriorityBinary }
func (p *Not) Idempotent() bool   { return true }
func (p *Not) String() string     { return fmt.Sprintf("%s = !%s", p.b, p.a) }

// Propagate implements Propagator.
func (p *Not) Propagate(st *Store) error {
	if st.Instantiated(p.a) {
		_, err := st.Instantiate(p.b, 1-st.Value(p.a))
		return err
	}
	if st.Instantiated(p.b) {
		_, err := st.Instantiate(p.a, 1-st.Value(p.b))
		return err
	}
	return nil
}

// Implies enforces a ⇒ b.
type Implies struct{ a, b *IntVar }

// NewImplies enforces a ⇒ b over booleans.
func NewImplies(a, b *IntVar) (Propagator, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("NewImplies: operands cannot be nil")
	}
	return &Implies{a: a, b: b}, nil
}

func (p *Implies) Watches() []Watch   { return watchInts(EventInstantiate, p.a, p.b) }
func (p *Implies) Priority() Priority { return PriorityBinary }
func (p *Implies) Idempotent() bool   { return true }
func (p *Implies) String() string     { return fmt.Sprintf("%s => %s", p.a, p.b) }

// Propagate implements Propagator.
func (p *Implies) Propagate(st *Store) error {
	if st.IsTrue(p.a) {
		_, err := st.Instantiate(p.b, 1)
		return err
	}
	if st.IsFalse(p.b) {
		_, err := st.Instantiate(p.a, 0)
		return err
	}
	return nil
}

func joinNames[T fmt.Stringer](vs []T) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}
