package fd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sumModel is x + y = z over small domains: 9 solutions.
func sumModel(t *testing.T) (*Model, *IntVar, *IntVar, *IntVar) {
	t.Helper()
	m := NewModel()
	x, y, z := m.IntVar("x", 0, 2), m.IntVar("y", 0, 2), m.IntVar("z", 0, 4)
	post(t, m)(NewSum([]*IntVar{x, y}, z))
	m.AddDecisionVars(x, y)
	return m, x, y, z
}

func TestSolverEnumeratesAllSolutions(t *testing.T) {
	m, _, _, _ := sumModel(t)
	assert.Equal(t, 9, countSolutions(t, m))
}

func TestSolverRestartsMatchBacktracking(t *testing.T) {
	build := func() *Model {
		m := NewModel()
		s := m.SetVar("s", RangeDomain(0, 3), EmptyDomain(), 0, 4)
		sum := m.IntVar("sum", 0, 6)
		post(t, m)(NewSetSum(s, sum))
		post(t, m)(NewContinuous(s))
		m.AddDecisionVars(s)
		return m
	}
	plain := countSolutions(t, build())
	assert.Equal(t, 11, plain)
	assert.Equal(t, plain, countSolutions(t, build(), WithRestarts(true)))
	assert.Equal(t, plain, countSolutions(t, build(), WithPolicy(MinDomainPolicy{Value: ValueExcludeFirst})))
}

func TestSolverValueOrders(t *testing.T) {
	for _, tc := range []struct {
		order ValueOrder
		want  int
	}{
		{ValueMin, 0},
		{ValueMax, 2},
	} {
		m, x, y, _ := sumModel(t)
		s, err := NewSolver(m, WithPolicy(InputOrderPolicy{Vars: []Var{x, y}, Value: tc.order}))
		require.NoError(t, err)
		ok, err := s.Find(t.Context())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, tc.want, s.Store().Value(x))
		assert.Equal(t, tc.want, s.Store().Value(y))
	}
}

func TestSolverNodeLimitFreezes(t *testing.T) {
	m, _, _, _ := sumModel(t)
	s, err := NewSolver(m, WithNodeLimit(1))
	require.NoError(t, err)

	ok, err := s.Find(t.Context())
	assert.False(t, ok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSearchLimitReached))
	var lre *LimitReachedError
	require.True(t, errors.As(err, &lre))
	assert.Equal(t, LimitNodes, lre.Kind)
	assert.Equal(t, 1, lre.Nodes)
	assert.Equal(t, StateLimitReached, s.State())
	assert.False(t, s.HasMore())

	_, again := s.Find(t.Context())
	assert.Same(t, err, again, "a frozen search keeps returning the same error")
}

func TestSolverPropagationLimit(t *testing.T) {
	m, _, _, _ := sumModel(t)
	s, err := NewSolver(m, WithPropagationLimit(1))
	require.NoError(t, err)
	_, err = s.Find(t.Context())
	var lre *LimitReachedError
	require.True(t, errors.As(err, &lre))
	assert.Equal(t, LimitPropagations, lre.Kind)
}

func TestSolverCancelledContext(t *testing.T) {
	m, _, _, _ := sumModel(t)
	s, err := NewSolver(m)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = s.Find(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, errors.Is(err, ErrSearchLimitReached))
}

func TestSolverCutsNeedRestarts(t *testing.T) {
	m, _, _, _ := sumModel(t)
	s, err := NewSolver(m)
	require.NoError(t, err)
	err = s.AddCut(func(*Store) error { return nil })
	var pme *ProtocolMisuseError
	require.True(t, errors.As(err, &pme))
	assert.Equal(t, "AddCut", pme.Op)
}

// Cuts tighten the root on every restart: requiring each new x to beat the
// last one walks x through 0, 1, 2.
func TestSolverCutsImproveMonotonically(t *testing.T) {
	m, x, _, _ := sumModel(t)
	s, err := NewSolver(m, WithRestarts(true))
	require.NoError(t, err)
	var seen []int
	for {
		ok, err := s.Find(t.Context())
		require.NoError(t, err)
		if !ok {
			break
		}
		best := s.Store().Value(x)
		seen = append(seen, best)
		require.NoError(t, s.AddCut(func(st *Store) error {
			_, err := st.UpdateLowerBound(x, best+1)
			return err
		}))
	}
	assert.Equal(t, []int{0, 1, 2}, seen)
	assert.Equal(t, StateExhausted, s.State())
}

func TestSolverMonitorStats(t *testing.T) {
	m, _, _, _ := sumModel(t)
	mon := NewSolverMonitor()
	s, err := NewSolver(m, WithMonitor(mon), WithRestarts(true))
	require.NoError(t, err)
	for {
		ok, err := s.Find(t.Context())
		require.NoError(t, err)
		if !ok {
			break
		}
	}
	stats := mon.GetStats()
	assert.Equal(t, 9, stats.SolutionsFound)
	assert.Equal(t, s.Nodes(), stats.NodesExplored)
	// The last solution is found with an empty decision path, so the final
	// Find has nothing to learn and does not restart.
	assert.Equal(t, 8, stats.Restarts)
	assert.Positive(t, stats.PropagationCount)
	assert.GreaterOrEqual(t, stats.MaxDepth, 1)
	assert.Contains(t, stats.String(), "solutions")
}

func TestSolverPathTracksDecisions(t *testing.T) {
	m, x, y, _ := sumModel(t)
	s, err := NewSolver(m)
	require.NoError(t, err)
	ok, err := s.Find(t.Context())
	require.NoError(t, err)
	require.True(t, ok)
	path := s.Path()
	require.Len(t, path, 2)
	assert.Equal(t, Literal{Var: x, Value: 0}, path[0].Taken())
	assert.Equal(t, Literal{Var: y, Value: 0}, path[1].Taken())

	ok, err = s.Find(t.Context())
	require.NoError(t, err)
	require.True(t, ok)
	path = s.Path()
	require.Len(t, path, 3)
	assert.True(t, path[1].Refuted)
	assert.Equal(t, Literal{Var: y, Value: 0}.Not(), path[1].Taken())
	assert.Equal(t, Literal{Var: y, Value: 1}, path[2].Taken())
	assert.Equal(t, 1, s.Store().Value(y))
}

// A larger network run only under GOCLAFER_FORCE_HEAVY.
func TestSolverHeavyRestartEquivalence(t *testing.T) {
	if !heavy() {
		t.Skip("set GOCLAFER_FORCE_HEAVY=1 to run")
	}
	build := func() *Model {
		m := NewModel()
		es := make([]*IntVar, 5)
		for i := range es {
			es[i] = m.IntVar("e", 0, 5)
		}
		post(t, m)(NewAcyclic(es))
		return m
	}
	// (n+1)^(n-1) rooted forests on 5 nodes
	assert.Equal(t, 1296, countSolutions(t, build()))
	assert.Equal(t, 1296, countSolutions(t, build(), WithRestarts(true)))
}
