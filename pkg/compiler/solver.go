package compiler

import (
	"context"
	"errors"
	"fmt"

	"github.com/gitrdm/goclafer/pkg/analysis"
	"github.com/gitrdm/goclafer/pkg/ast"
	"github.com/gitrdm/goclafer/pkg/fd"
)

// Solver streams the instances of a compiled model.
//
// Thread safety: a Solver is owned by one goroutine.
type Solver struct {
	sm      *SolutionMap
	fs      *fd.Solver
	monitor *fd.SolverMonitor
	current *Solution
	count   int
	done    bool
}

// NewSolver creates a solution stream over sm. The options are passed to
// the search driver; the solver always installs its own monitor.
func NewSolver(sm *SolutionMap, opts ...fd.Option) (*Solver, error) {
	mon := fd.NewSolverMonitor()
	fs, err := fd.NewSolver(sm.Model(), append(append([]fd.Option(nil), opts...), fd.WithMonitor(mon))...)
	if err != nil {
		return nil, err
	}
	s := &Solver{sm: sm, fs: fs, monitor: mon}
	if rep := sm.Skeleton(); rep != nil && !rep.Satisfiable {
		s.done = true
	}
	return s, nil
}

// Find advances to the next instance. It returns false once the instances
// are exhausted and a *fd.LimitReachedError when a limit stopped the
// search.
func (s *Solver) Find(ctx context.Context) (bool, error) {
	if s.done {
		return false, nil
	}
	ok, err := s.fs.Find(ctx)
	if err != nil || !ok {
		s.current = nil
		return false, err
	}
	s.current = s.sm.Extract(s.fs.Store())
	s.count++
	return true, nil
}

// Instance returns the instance reported by the last successful Find.
func (s *Solver) Instance() (*Solution, error) {
	if s.current == nil {
		return nil, &fd.ProtocolMisuseError{Op: "Instance", Reason: "no solution: call Find first"}
	}
	return s.current, nil
}

// InstanceCount returns how many instances Find has reported.
func (s *Solver) InstanceCount() int { return s.count }

// HasMore reports whether Find may report another instance.
func (s *Solver) HasMore() bool { return !s.done && s.fs.HasMore() }

// State returns the search driver's state.
func (s *Solver) State() fd.State {
	if s.done {
		return fd.StateExhausted
	}
	return s.fs.State()
}

// Stats returns the search statistics so far.
func (s *Solver) Stats() fd.SolverStats { return s.monitor.GetStats() }

// SolutionMap returns the map the solver reads instances through.
func (s *Solver) SolutionMap() *SolutionMap { return s.sm }

// Solve analyzes and compiles m, then collects up to limit instances (all
// of them when limit is not positive). A limit reached by the search
// driver returns the instances found so far together with the error.
func Solve(ctx context.Context, m *ast.Model, scope ast.Scope, limit int, opts ...fd.Option) ([]*Solution, error) {
	r, err := analysis.Analyze(m, scope)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	sm, err := Compile(r)
	if err != nil {
		return nil, err
	}
	s, err := NewSolver(sm, opts...)
	if err != nil {
		return nil, err
	}
	var out []*Solution
	for limit <= 0 || len(out) < limit {
		ok, err := s.Find(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			break
		}
		sol, _ := s.Instance()
		out = append(out, sol)
	}
	return out, nil
}

// IsLimit reports whether err stopped a search at a node, propagation,
// time or cancellation limit.
func IsLimit(err error) bool { return errors.Is(err, fd.ErrSearchLimitReached) }
