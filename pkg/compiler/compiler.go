// Package compiler translates an analyzed model into a finite-domain
// constraint network and wraps the search driver in a solution stream.
//
// Storage layout. Every concrete entity E with scope n owns n membership
// booleans; an abstract entity's membership is the concatenation of its
// subtypes' at their offsets. The relation to the parent P is stored per
// slot as a parent pointer in [0, scope(P)], scope(P) meaning "no parent".
// In the general format each parent slot also owns the set of its
// children's slots; the sets are channelled with the pointers, laid out
// as a staircase (the children of parent 0 first) and their total is the
// number of live children, which occupy a prefix of the slots. The
// parent-group format (a fixed number k of children under every parent,
// with the scope exactly filled) needs no sets at all: the children of
// parent p are the slots [p*k, (p+1)*k).
//
// Every constraint is reified once per slot of its owner and posted as
// member ⇒ b. Soft constraints are reified per constraint instead and
// counted.
package compiler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gitrdm/goclafer/internal/skeleton"
	"github.com/gitrdm/goclafer/pkg/analysis"
	"github.com/gitrdm/goclafer/pkg/ast"
	"github.com/gitrdm/goclafer/pkg/fd"
)

// Option configures Compile.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	skeleton bool
}

// WithLogger sets the logger used for compile statistics.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithSkeletonCheck enables or disables the SAT pre-check of the existence
// skeleton. It is enabled by default.
func WithSkeletonCheck(on bool) Option {
	return func(c *config) { c.skeleton = on }
}

// compiler holds the state of one Compile call.
type compiler struct {
	r    *analysis.Result
	m    *fd.Model
	st   *fd.Store
	sm   *SolutionMap
	log  *slog.Logger
	dead *skeleton.Report

	globals  map[*ast.Entity]*fd.SetVar
	windows  map[*ast.Entity][]*fd.SetVar // constant child sets of parent-group entities
	negs     map[*fd.IntVar]*fd.IntVar
	memberOf map[memberKey]*fd.IntVar
	nameSeq  int
	postings int
}

// Compile builds the constraint network of r.
func Compile(r *analysis.Result, opts ...Option) (*SolutionMap, error) {
	if r == nil {
		return nil, fmt.Errorf("compile: nil analysis result")
	}
	cfg := config{skeleton: true}
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	start := time.Now()
	m := fd.NewModel()
	c := &compiler{
		r:        r,
		m:        m,
		st:       m.Store(),
		log:      cfg.logger,
		globals:  make(map[*ast.Entity]*fd.SetVar),
		windows:  make(map[*ast.Entity][]*fd.SetVar),
		negs:     make(map[*fd.IntVar]*fd.IntVar),
		memberOf: make(map[memberKey]*fd.IntVar),
	}
	c.sm = newSolutionMap(r, m)
	if cfg.skeleton {
		c.dead = skeleton.Check(r)
		c.sm.skeleton = c.dead
		if !c.dead.Satisfiable {
			c.log.Debug("skeleton unsatisfiable", "conflicts", len(c.dead.Conflicts))
		}
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"membership", c.compileMembership},
		{"containment", c.compileContainment},
		{"group cardinality", c.compileGroupCards},
		{"recursion", c.compileAcyclic},
		{"references", c.compileRefs},
		{"constraints", c.compileConstraints},
		{"objectives", c.compileObjectives},
	}
	for _, s := range steps {
		if err := s.run(); err != nil {
			return nil, fmt.Errorf("compile %s: %w", s.name, err)
		}
	}
	c.registerDecisions()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	c.log.Debug("compiled model",
		"int_vars", len(c.st.IntVars()),
		"set_vars", len(c.st.SetVars()),
		"propagators", len(m.Propagators()),
		"decisions", len(m.DecisionVars()),
		"elapsed", time.Since(start))
	return c.sm, nil
}

// post forwards the result of an fd constructor to the model.
func (c *compiler) post(p fd.Propagator, err error) error {
	if err != nil {
		return err
	}
	c.m.Post(p)
	c.postings++
	return nil
}

// postAll posts every constructor result, stopping at the first error.
func (c *compiler) postAll(ps ...func() (fd.Propagator, error)) error {
	for _, p := range ps {
		if err := c.post(p()); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) name(prefix string) string {
	c.nameSeq++
	return fmt.Sprintf("%s~%d", prefix, c.nameSeq)
}

func slotName(e *ast.Entity, i int) string { return fmt.Sprintf("%s#%d", e.Name(), i) }

// boolVar returns a fresh auxiliary boolean.
func (c *compiler) boolVar(prefix string) *fd.IntVar { return c.m.BoolVar(c.name(prefix)) }

// intVar returns a fresh auxiliary integer over [lo, hi].
func (c *compiler) intVar(prefix string, lo, hi int) *fd.IntVar {
	return c.m.IntVar(c.name(prefix), lo, hi)
}

// not returns ¬b, shared per operand.
func (c *compiler) not(b *fd.IntVar) (*fd.IntVar, error) {
	switch {
	case b == c.m.True():
		return c.m.False(), nil
	case b == c.m.False():
		return c.m.True(), nil
	}
	if n, ok := c.negs[b]; ok {
		return n, nil
	}
	n := c.boolVar("not")
	if err := c.post(fd.NewNot(b, n)); err != nil {
		return nil, err
	}
	c.negs[b], c.negs[n] = n, b
	return n, nil
}

// implies posts the hard constraint a ⇒ b.
func (c *compiler) implies(a, b *fd.IntVar) error {
	if a == c.m.False() || b == c.m.True() {
		return nil
	}
	return c.post(fd.NewImplies(a, b))
}

// registerDecisions fixes the branching order: structure first (parent
// pointers, then child sets), then reference values. Everything else is
// functionally determined and only reached through the fallback policy.
func (c *compiler) registerDecisions() {
	var vars []fd.Var
	for _, e := range c.r.Model().Entities() {
		if !e.IsConcrete() {
			continue
		}
		for _, p := range c.sm.parents[e] {
			vars = append(vars, p)
		}
	}
	for _, e := range c.r.Model().Entities() {
		ref := e.Ref()
		if ref == nil || analysis.StorageRef(e) != ref {
			continue
		}
		if s, ok := c.sm.strings[ref]; ok {
			for i := range s.lengths {
				vars = append(vars, s.lengths[i])
				for _, ch := range s.chars[i] {
					vars = append(vars, ch)
				}
			}
			continue
		}
		for _, v := range c.sm.refs[ref] {
			vars = append(vars, v)
		}
	}
	c.m.AddDecisionVars(vars...)
}

// sizeOf returns the declared scope of e.
func (c *compiler) sizeOf(e *ast.Entity) int { return c.r.ScopeOf(e) }
