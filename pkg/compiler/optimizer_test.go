package compiler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/goclafer/pkg/ast"
)

// Feature 1..1
//
//	Cost -> integer 1..1
func costModel(maximize bool) *ast.Model {
	m := ast.NewModel()
	feature := m.AddChild("Feature").WithCard(1, 1)
	cost := feature.AddChild("Cost").WithCard(1, 1).RefTo(ast.IntType)
	total := ast.Sum(ast.JoinRef(ast.Global(cost)))
	if maximize {
		m.Maximize(total)
	} else {
		m.Minimize(total)
	}
	return m
}

func TestOptimizer(t *testing.T) {
	tests := []struct {
		name     string
		maximize bool
		want     int
	}{
		{"maximize", true, 3},
		{"minimize", false, -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := compile(t, costModel(tt.maximize), ast.DefaultScope(1).WithIntRange(-3, 3))
			o, err := NewOptimizer(sm)
			require.NoError(t, err)

			var values []int
			for {
				ok, err := o.Find(context.Background())
				require.NoError(t, err)
				if !ok {
					break
				}
				best, found := o.Best()
				require.True(t, found)
				values = append(values, best)
			}
			require.NotEmpty(t, values)
			assert.Equal(t, tt.want, values[len(values)-1])
			for i := 1; i < len(values); i++ {
				if tt.maximize {
					assert.Greater(t, values[i], values[i-1])
				} else {
					assert.Less(t, values[i], values[i-1])
				}
			}
		})
	}
}

func TestOptimal(t *testing.T) {
	m := costModel(true)
	cost, _ := m.Lookup("Cost")
	cost.AddConstraint(ast.LessThan(ast.JoinRef(ast.This()), ast.Const(2)))

	sm := compile(t, m, ast.DefaultScope(1).WithIntRange(-3, 3))
	o, err := NewOptimizer(sm)
	require.NoError(t, err)
	sol, err := o.Optimal(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sol)
	assert.Equal(t, []int{1}, sol.Objectives)
	assert.Equal(t, "Feature#0\n  Cost#0 = 1\n", sol.String())
}

func TestOptimizerNeedsObjective(t *testing.T) {
	m, _ := featureCost(1)
	_, err := NewOptimizer(compile(t, m, ast.DefaultScope(1)))
	assert.True(t, errors.Is(err, ErrNoObjective))
}
