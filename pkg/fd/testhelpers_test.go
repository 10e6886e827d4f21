package fd

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// heavy reports whether slow tests should run (GOCLAFER_FORCE_HEAVY=1).
func heavy() bool { return os.Getenv("GOCLAFER_FORCE_HEAVY") == "1" }

// post returns a sink for the (Propagator, error) results of a New*
// constructor: post(t, m)(NewLinear(...)).
func post(t *testing.T, m *Model) func(Propagator, error) {
	t.Helper()
	return func(p Propagator, err error) {
		t.Helper()
		require.NoError(t, m.PostErr(p, err))
	}
}

func propagate(m *Model) error {
	return m.Scheduler().Propagate(context.Background())
}

// countSolutions enumerates every solution of m.
func countSolutions(t *testing.T, m *Model, opts ...Option) int {
	t.Helper()
	s, err := NewSolver(m, opts...)
	require.NoError(t, err)
	n := 0
	for {
		ok, err := s.Find(context.Background())
		require.NoError(t, err)
		if !ok {
			return n
		}
		require.NoError(t, s.Store().CheckInvariants())
		n++
	}
}

// bruteForce counts the points of the Cartesian product of domains that
// satisfy pred.
func bruteForce(domains [][]int, pred func(vals []int) bool) int {
	vals := make([]int, len(domains))
	var rec func(i int) int
	rec = func(i int) int {
		if i == len(domains) {
			if pred(vals) {
				return 1
			}
			return 0
		}
		n := 0
		for _, v := range domains[i] {
			vals[i] = v
			n += rec(i + 1)
		}
		return n
	}
	return rec(0)
}

func rng(lo, hi int) []int { return RangeDomain(lo, hi).Values() }

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
