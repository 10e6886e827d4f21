package compiler

import (
	"context"
	"errors"

	"github.com/gitrdm/goclafer/pkg/fd"
)

// ErrNoObjective is returned by NewOptimizer for a model without
// objectives.
var ErrNoObjective = errors.New("model has no objective")

// Optimizer reports instances of strictly improving value for the model's
// first objective. When Find returns false the last reported instance is
// optimal.
type Optimizer struct {
	*Solver
	objective *fd.IntVar
	maximize  bool
	best      int
	found     bool
}

// NewOptimizer creates an optimizer over sm. The search runs in restart
// mode so every improvement is enforced from the root.
func NewOptimizer(sm *SolutionMap, opts ...fd.Option) (*Optimizer, error) {
	objs := sm.Analysis().Model().Objectives()
	if len(objs) == 0 {
		return nil, ErrNoObjective
	}
	s, err := NewSolver(sm, append(append([]fd.Option(nil), opts...), fd.WithRestarts(true))...)
	if err != nil {
		return nil, err
	}
	o := &Optimizer{Solver: s, objective: sm.Objectives()[0], maximize: objs[0].Maximize()}
	if err := s.fs.AddCut(o.improve); err != nil {
		return nil, err
	}
	return o, nil
}

// improve bounds the objective strictly past the best value found.
func (o *Optimizer) improve(st *fd.Store) error {
	if !o.found {
		return nil
	}
	var err error
	if o.maximize {
		_, err = st.UpdateLowerBound(o.objective, o.best+1)
	} else {
		_, err = st.UpdateUpperBound(o.objective, o.best-1)
	}
	return err
}

// Find advances to the next improving instance.
func (o *Optimizer) Find(ctx context.Context) (bool, error) {
	ok, err := o.Solver.Find(ctx)
	if err != nil || !ok {
		return ok, err
	}
	o.best = o.Solver.current.Objectives[0]
	o.found = true
	return true, nil
}

// Best returns the best objective value so far.
func (o *Optimizer) Best() (int, bool) { return o.best, o.found }

// Optimal runs the optimizer to exhaustion and returns the optimal
// instance, or nil when the model has none. A limit interrupting the
// search returns the best instance so far together with the error.
func (o *Optimizer) Optimal(ctx context.Context) (*Solution, error) {
	var best *Solution
	for {
		ok, err := o.Find(ctx)
		if err != nil {
			return best, err
		}
		if !ok {
			return best, nil
		}
		best = o.Solver.current
	}
}
