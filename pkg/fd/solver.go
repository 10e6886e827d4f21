// Package fd provides the finite-domain layer of the Clafer compiler.
// This file implements the search driver.
//
// The driver is a depth-first binary search over an explicit decision
// stack. Each frame remembers the trail mark taken before its decision, the
// left-branch literal, and whether that literal has already been refuted:
//
//	Ready → (Propagating → Deciding)* → Solved | Exhausted | LimitReached
//
// Find resumes from the last solution by chronological backtracking: the
// deepest unrefuted frame is rolled back and its right branch (the negated
// literal) is applied. In restart mode the driver instead learns a Nogood
// from the decision path, rolls back to the root, re-applies every cut and
// propagates from scratch.
//
// A node, propagation or time limit stops the search with a
// *LimitReachedError and freezes it: every later Find returns the same
// error. Contradictions never leave Find.
package fd

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// State is the search driver's lifecycle state.
type State int

const (
	StateReady State = iota
	StateSolved
	StateExhausted
	StateLimitReached
)

func (s State) String() string {
	return [...]string{"ready", "solved", "exhausted", "limit-reached"}[s]
}

// Option configures a Solver.
type Option func(*solverConfig)

type solverConfig struct {
	nodeLimit int
	propLimit int
	timeLimit time.Duration
	policy    DecisionPolicy
	restarts  bool
	monitor   *SolverMonitor
	logger    *slog.Logger
}

// WithNodeLimit stops the search with a LimitReachedError once n decisions
// have been taken. Zero means unlimited.
func WithNodeLimit(n int) Option {
	return func(c *solverConfig) { c.nodeLimit = n }
}

// WithPropagationLimit stops the search once n propagator executions have
// run. Zero means unlimited.
func WithPropagationLimit(n int) Option {
	return func(c *solverConfig) { c.propLimit = n }
}

// WithTimeLimit stops the search once d has elapsed since the first Find.
func WithTimeLimit(d time.Duration) Option {
	return func(c *solverConfig) { c.timeLimit = d }
}

// WithPolicy sets the decision policy. The default is input order over the
// model's decision variables.
func WithPolicy(p DecisionPolicy) Option {
	return func(c *solverConfig) { c.policy = p }
}

// WithRestarts enables restart-after-each-solution mode.
func WithRestarts(on bool) Option {
	return func(c *solverConfig) { c.restarts = on }
}

// WithMonitor attaches a statistics monitor.
func WithMonitor(m *SolverMonitor) Option {
	return func(c *solverConfig) { c.monitor = m }
}

// WithLogger sets the logger used for restart and limit events.
func WithLogger(l *slog.Logger) Option {
	return func(c *solverConfig) { c.logger = l }
}

// Decision is one frame of the decision stack.
type Decision struct {
	mark    int
	Lit     Literal
	Refuted bool
}

// Taken returns the literal that currently holds on this frame's branch.
func (d Decision) Taken() Literal {
	if d.Refuted {
		return d.Lit.Not()
	}
	return d.Lit
}

// Cut is re-applied at the root after every restart. It may shrink domains
// and returns a *ContradictionError when the remaining space is empty.
type Cut func(st *Store) error

// Solver enumerates the solutions of a Model.
//
// Thread safety: a Solver and its Model are owned by one goroutine.
type Solver struct {
	model *Model
	store *Store
	sched *Scheduler
	cfg   solverConfig

	state   State
	stack   []Decision
	cuts    []Cut
	frozen  error
	started time.Time
	nodes   int
	found   int
}

// NewSolver creates a search driver over m. It fails when the model does
// not pass Validate.
func NewSolver(m *Model, opts ...Option) (*Solver, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}
	cfg := solverConfig{}
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	if cfg.policy == nil {
		cfg.policy = InputOrderPolicy{Vars: m.DecisionVars()}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	s := &Solver{model: m, store: m.Store(), sched: m.Scheduler(), cfg: cfg}
	s.sched.limiter = s.checkLimits
	if cfg.monitor != nil {
		cfg.monitor.RecordPropagators(len(s.sched.Propagators()))
	}
	return s, nil
}

// Store returns the store; after a successful Find every variable is
// instantiated to the current solution.
func (s *Solver) Store() *Store { return s.store }

// State returns the lifecycle state.
func (s *Solver) State() State { return s.state }

// Solutions returns how many solutions Find has reported.
func (s *Solver) Solutions() int { return s.found }

// Nodes returns how many decisions have been taken.
func (s *Solver) Nodes() int { return s.nodes }

// Path returns a copy of the current decision stack.
func (s *Solver) Path() []Decision { return append([]Decision(nil), s.stack...) }

// HasMore reports whether Find may still report a solution.
func (s *Solver) HasMore() bool {
	return s.state == StateReady || s.state == StateSolved
}

// AddCut registers a cut applied at the root on every restart. Cuts need
// restart mode: chronological backtracking would undo them.
func (s *Solver) AddCut(c Cut) error {
	if !s.cfg.restarts {
		return &ProtocolMisuseError{Op: "AddCut", Reason: "cuts require restart mode"}
	}
	s.cuts = append(s.cuts, c)
	return nil
}

// Find searches for the next solution. It returns (true, nil) on a
// solution, (false, nil) when the search space is exhausted and
// (false, *LimitReachedError) when a limit or ctx stopped the search.
func (s *Solver) Find(ctx context.Context) (bool, error) {
	switch s.state {
	case StateLimitReached:
		return false, s.frozen
	case StateExhausted:
		return false, nil
	case StateReady:
		s.started = time.Now()
		ok, err := s.propagate(ctx)
		if err != nil {
			return false, s.freeze(err)
		}
		if !ok {
			s.state = StateExhausted
			return false, nil
		}
	case StateSolved:
		var ok bool
		var err error
		if s.cfg.restarts {
			ok, err = s.restart(ctx)
		} else {
			ok, err = s.backtrack(ctx)
		}
		if err != nil {
			return false, s.freeze(err)
		}
		if !ok {
			s.state = StateExhausted
			return false, nil
		}
	}
	return s.dive(ctx)
}

// dive takes decisions until a solution, exhaustion or a limit.
func (s *Solver) dive(ctx context.Context) (bool, error) {
	for {
		lit, ok := s.cfg.policy.Next(s.store)
		if !ok {
			lit, ok = fallbackPolicy{}.Next(s.store)
		}
		if !ok {
			s.state = StateSolved
			s.found++
			if m := s.cfg.monitor; m != nil {
				m.RecordSolution()
			}
			return true, nil
		}
		if s.cfg.nodeLimit > 0 && s.nodes >= s.cfg.nodeLimit {
			return false, s.freeze(&LimitReachedError{Kind: LimitNodes})
		}
		s.nodes++
		s.stack = append(s.stack, Decision{mark: s.store.Mark(), Lit: lit})
		if m := s.cfg.monitor; m != nil {
			m.RecordNode(len(s.stack))
		}
		ok, err := s.applyAndPropagate(ctx, lit)
		if err != nil {
			return false, s.freeze(err)
		}
		if ok {
			continue
		}
		ok, err = s.backtrack(ctx)
		if err != nil {
			return false, s.freeze(err)
		}
		if !ok {
			s.state = StateExhausted
			return false, nil
		}
	}
}

// backtrack rolls back to the deepest unrefuted decision and takes its
// right branch. It returns false when no open branch is left.
func (s *Solver) backtrack(ctx context.Context) (bool, error) {
	for len(s.stack) > 0 {
		top := &s.stack[len(s.stack)-1]
		s.store.Rollback(top.mark)
		s.sched.Flush()
		if top.Refuted {
			s.stack = s.stack[:len(s.stack)-1]
			continue
		}
		top.Refuted = true
		if m := s.cfg.monitor; m != nil {
			m.RecordBacktrack()
		}
		ok, err := s.applyAndPropagate(ctx, top.Lit.Not())
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// restart learns a nogood from the current path, then propagates again
// from the root with every cut applied.
func (s *Solver) restart(ctx context.Context) (bool, error) {
	if len(s.stack) == 0 {
		return false, nil
	}
	lits := make([]Literal, len(s.stack))
	for i, d := range s.stack {
		lits[i] = d.Taken()
	}
	ng, err := NewNogood(lits)
	if err != nil {
		return false, err
	}
	s.store.Rollback(0)
	s.stack = s.stack[:0]
	s.sched.Flush()
	s.sched.Post(ng)
	s.sched.EnqueueAll()
	if m := s.cfg.monitor; m != nil {
		m.RecordRestart()
	}
	s.cfg.logger.Debug("restart", "solutions", s.found, "nogood", ng.String())
	for _, c := range s.cuts {
		if err := c(s.store); err != nil {
			if IsContradiction(err) {
				s.sched.Flush()
				return false, nil
			}
			return false, err
		}
	}
	return s.propagate(ctx)
}

func (s *Solver) applyAndPropagate(ctx context.Context, lit Literal) (bool, error) {
	if err := lit.apply(s.store); err != nil {
		if IsContradiction(err) {
			s.sched.Flush()
			return false, nil
		}
		return false, err
	}
	return s.propagate(ctx)
}

// propagate runs the scheduler to fixpoint. It returns false on
// contradiction and an error for limits.
func (s *Solver) propagate(ctx context.Context) (bool, error) {
	m := s.cfg.monitor
	before := s.sched.Steps()
	if m != nil {
		m.StartPropagation()
		m.RecordQueueSize(s.sched.Pending())
	}
	err := s.sched.Propagate(ctx)
	if m != nil {
		m.EndPropagation(s.sched.Steps()-before, err != nil)
		m.RecordTrailSize(s.store.TrailSize())
	}
	switch {
	case err == nil:
		return true, nil
	case IsContradiction(err):
		return false, nil
	}
	return false, err
}

func (s *Solver) checkLimits() error {
	if s.cfg.propLimit > 0 && s.sched.Steps() >= s.cfg.propLimit {
		return &LimitReachedError{Kind: LimitPropagations}
	}
	if s.cfg.timeLimit > 0 && time.Since(s.started) > s.cfg.timeLimit {
		return &LimitReachedError{Kind: LimitTime}
	}
	return nil
}

// freeze records a limit as the terminal state. Other errors pass through
// unchanged.
func (s *Solver) freeze(err error) error {
	lre, ok := err.(*LimitReachedError)
	if !ok {
		return err
	}
	lre.Nodes = s.nodes
	lre.Elapsed = time.Since(s.started)
	s.state = StateLimitReached
	s.frozen = lre
	s.cfg.logger.Debug("search limit reached", "kind", string(lre.Kind), "nodes", lre.Nodes, "elapsed", lre.Elapsed)
	return lre
}
