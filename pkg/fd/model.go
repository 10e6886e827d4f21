// Package fd provides the finite-domain layer of the Clafer compiler.
// This file defines Model, the factory that allocates variables in a Store
// and posts propagators to its Scheduler.
package fd

import (
	"errors"
	"fmt"
)

// Model builds a constraint network: variables with initial domains plus
// the propagators over them. It owns one Store and one Scheduler.
//
// Every set variable is created together with its cardinality variable and
// a SetCard companion, so the card/|set| pairing holds by construction.
// Validate asserts it for every propagator that relies on it.
//
// Thread safety: Models are built and solved by a single goroutine.
type Model struct {
	store *Store
	sched *Scheduler

	consts     map[int]*IntVar
	paired     map[int]bool // set id -> SetCard posted
	decisions  []Var
	validated  bool
	validation error
}

// NewModel creates an empty model.
func NewModel() *Model {
	st := NewStore()
	return &Model{
		store:  st,
		sched:  NewScheduler(st),
		consts: make(map[int]*IntVar),
		paired: make(map[int]bool),
	}
}

// Store returns the model's domain store.
func (m *Model) Store() *Store { return m.store }

// Scheduler returns the model's propagation scheduler.
func (m *Model) Scheduler() *Scheduler { return m.sched }

// IntVar creates an integer variable over [lo, hi].
func (m *Model) IntVar(name string, lo, hi int) *IntVar {
	return m.IntVarOf(name, RangeDomain(lo, hi))
}

// IntVarOf creates an integer variable with an explicit initial domain.
// An empty domain is replaced by {0} paired with a failing propagator so
// the network is simply unsatisfiable.
func (m *Model) IntVarOf(name string, d Domain) *IntVar {
	if d.IsEmpty() {
		v := m.store.newIntVar(name, DomainOf(0))
		m.sched.Post(&falsum{reason: fmt.Sprintf("%s created with an empty domain", name)})
		return v
	}
	return m.store.newIntVar(name, d)
}

// BoolVar creates a boolean variable over {0, 1}.
func (m *Model) BoolVar(name string) *IntVar {
	return m.store.newIntVar(name, RangeDomain(0, 1))
}

// Const returns the shared instantiated variable for v.
func (m *Model) Const(v int) *IntVar {
	if c, ok := m.consts[v]; ok {
		return c
	}
	c := m.store.newIntVar(fmt.Sprintf("%d", v), DomainOf(v))
	m.consts[v] = c
	return c
}

// True returns the constant boolean 1.
func (m *Model) True() *IntVar { return m.Const(1) }

// False returns the constant boolean 0.
func (m *Model) False() *IntVar { return m.Const(0) }

// SetVar creates a set variable with kernel ker and envelope env, and a
// cardinality variable over [max(cardLo, |ker|), min(cardHi, |env|)]. The
// SetCard companion is posted immediately.
func (m *Model) SetVar(name string, env, ker Domain, cardLo, cardHi int) *SetVar {
	lo := max(cardLo, ker.Count())
	hi := min(cardHi, env.Count())
	card := m.IntVarOf("|"+name+"|", RangeDomain(lo, hi))
	if !ker.SubsetOf(env) {
		m.sched.Post(&falsum{reason: fmt.Sprintf("%s kernel %v exceeds envelope %v", name, ker, env)})
		ker = ker.Intersect(env)
	}
	s := m.store.newSetVar(name, env, ker, card)
	p, _ := NewSetCard(s)
	m.sched.Post(p)
	m.paired[s.id] = true
	return s
}

// ConstSet returns an instantiated set variable holding values.
func (m *Model) ConstSet(values ...int) *SetVar {
	d := DomainOf(values...)
	return m.SetVar(fmt.Sprintf("%v", d), d, d, d.Count(), d.Count())
}

// Post registers propagators. Constructor errors are reported through
// PostErr; Post assumes p is non-nil.
func (m *Model) Post(ps ...Propagator) {
	for _, p := range ps {
		m.sched.Post(p)
	}
	m.validated = false
}

// PostErr posts p unless err is non-nil. It lets callers forward the
// (Propagator, error) results of the New* constructors directly.
func (m *Model) PostErr(p Propagator, err error) error {
	if err != nil {
		return err
	}
	m.Post(p)
	return nil
}

// AddDecisionVars appends variables to the default branching order.
func (m *Model) AddDecisionVars(vars ...Var) {
	m.decisions = append(m.decisions, vars...)
}

// DecisionVars returns the variables registered for branching.
func (m *Model) DecisionVars() []Var { return m.decisions }

// Propagators returns every posted propagator in posting order.
func (m *Model) Propagators() []Propagator { return m.sched.Propagators() }

// Validate checks that every set whose cardinality is trusted by some
// propagator is paired with its SetCard companion.
func (m *Model) Validate() error {
	if m.validated {
		return m.validation
	}
	var errs []error
	for _, p := range m.sched.Propagators() {
		ct, ok := p.(CardTrusting)
		if !ok {
			continue
		}
		for _, s := range ct.TrustedCards() {
			if !m.paired[s.id] {
				errs = append(errs, fmt.Errorf("%s trusts |%s| but no SetCard companion is posted", p, s))
			}
		}
	}
	m.validated = true
	m.validation = errors.Join(errs...)
	return m.validation
}

// falsum always fails. It encodes a network that is unsatisfiable by
// construction.
type falsum struct{ reason string }

func (f *falsum) Watches() []Watch          { return nil }
func (f *falsum) Priority() Priority        { return PriorityUnary }
func (f *falsum) Propagate(st *Store) error { return fail("%s", f.reason) }
func (f *falsum) String() string            { return "Fail(" + f.reason + ")" }
