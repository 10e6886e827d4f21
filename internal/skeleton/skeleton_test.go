package skeleton

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/goclafer/pkg/analysis"
	"github.com/gitrdm/goclafer/pkg/ast"
)

func check(t *testing.T, m *ast.Model, s ast.Scope) *Report {
	t.Helper()
	r, err := analysis.Analyze(m, s)
	require.NoError(t, err)
	return Check(r)
}

func TestFreeModelHasNoDeadEntities(t *testing.T) {
	m := ast.NewModel()
	a := m.AddChild("A")
	a.AddChild("B").WithCard(1, 2)

	rep := check(t, m, ast.DefaultScope(3))
	assert.True(t, rep.Satisfiable)
	assert.Empty(t, rep.Dead)
	assert.Empty(t, rep.Conflicts)
}

func TestZeroScopeKillsDescendants(t *testing.T) {
	m := ast.NewModel()
	a := m.AddChild("A")
	b := a.AddChild("B")
	c := b.AddChild("C")
	d := m.AddChild("D")

	rep := check(t, m, ast.DefaultScope(2).With(b, 0))
	require.True(t, rep.Satisfiable)
	assert.False(t, rep.IsDead(a))
	assert.True(t, rep.IsDead(b))
	assert.True(t, rep.IsDead(c))
	assert.False(t, rep.IsDead(d))
	assert.ElementsMatch(t, []*ast.Entity{b, c}, rep.Dead)
}

func TestMandatoryChildOutOfScope(t *testing.T) {
	m := ast.NewModel()
	a := m.AddChild("A").WithCard(1, 1)
	a.AddChild("B").WithCard(3, 3)

	rep := check(t, m, ast.DefaultScope(2))
	assert.False(t, rep.Satisfiable)
	assert.NotEmpty(t, rep.Conflicts)
	for _, e := range m.Entities() {
		assert.True(t, rep.IsDead(e), e.Name())
	}
}

func TestReferenceNeedsTarget(t *testing.T) {
	m := ast.NewModel()
	target := m.AddChild("Target")
	holder := m.AddChild("Holder").RefTo(target)

	rep := check(t, m, ast.DefaultScope(2).With(target, 0))
	require.True(t, rep.Satisfiable)
	assert.True(t, rep.IsDead(target))
	assert.True(t, rep.IsDead(holder))
}

func TestAbstractExistsThroughSubtypes(t *testing.T) {
	m := ast.NewModel()
	base := m.AddAbstract("Base")
	part := base.AddChild("Part").WithCard(1, 1)
	m.AddChild("Only").Extending(base)

	rep := check(t, m, ast.DefaultScope(2).With(part, 0))
	require.True(t, rep.Satisfiable)
	assert.True(t, rep.IsDead(part))
	only, _ := m.Lookup("Only")
	assert.True(t, rep.IsDead(only), "Only needs its mandatory Part")
}

func TestGroupCardinality(t *testing.T) {
	m := ast.NewModel()
	opts := m.AddChild("Options").WithCard(1, 1).WithGroupCard(2, 2)
	opts.AddChild("X").WithCard(0, 1)
	y := opts.AddChild("Y").WithCard(0, 1)

	rep := check(t, m, ast.DefaultScope(1))
	assert.True(t, rep.Satisfiable)

	rep = check(t, m, ast.DefaultScope(1).With(y, 0))
	assert.False(t, rep.Satisfiable)
}

func TestFactString(t *testing.T) {
	m := ast.NewModel()
	a := m.AddChild("A")
	assert.Equal(t, "A: scope is 0", Fact{Entity: a, Rule: "scope is 0"}.String())
	assert.Equal(t, "root exists", Fact{Rule: "root exists"}.String())
}
