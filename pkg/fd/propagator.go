package fd

// Priority orders propagators inside the scheduler. Cheaper propagators run
// first so expensive ones see the tightest domains.
type Priority uint8

const (
	PriorityUnary Priority = iota
	PriorityBinary
	PriorityTernary
	PriorityLinear
	PriorityQuadratic
	PriorityCubic
	numPriorities
)

// Watch subscribes a propagator to events on one variable.
type Watch struct {
	Var  Var
	Mask Event
}

// Propagator is a filtering algorithm over a fixed tuple of variables.
//
// Propagate may only shrink domains: remove integer values, remove envelope
// values, or add kernel values. It returns a *ContradictionError when the
// current domains admit no solution of the relation. When every variable
// in its scope is instantiated, Propagate must either succeed (the relation
// holds) or fail, so a propagator is also a checker.
//
// Propagators hold no mutable state between invocations; everything lives
// in the Store, which is what makes rollback sound.
type Propagator interface {
	Watches() []Watch
	Priority() Priority
	Propagate(st *Store) error
	String() string
}

// Idempotent is implemented by propagators that always reach their own
// fixpoint in one call. The scheduler does not re-enqueue an idempotent
// propagator for changes it made itself.
type Idempotent interface {
	Idempotent() bool
}

// CardTrusting is implemented by propagators that rely on card = |set| for
// some of their set arguments without enforcing it. Model.Validate checks
// that every such set has its SetCard companion posted.
type CardTrusting interface {
	TrustedCards() []*SetVar
}

func watchInts(mask Event, vars ...*IntVar) []Watch {
	out := make([]Watch, 0, len(vars))
	for _, v := range vars {
		out = append(out, Watch{Var: v, Mask: mask})
	}
	return out
}

func watchSets(mask Event, vars ...*SetVar) []Watch {
	out := make([]Watch, 0, len(vars))
	for _, v := range vars {
		out = append(out, Watch{Var: v, Mask: mask})
	}
	return out
}
