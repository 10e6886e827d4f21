package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFeatureCost(t *testing.T) {
	m := NewModel()
	feature := m.AddChild("Feature").WithCard(1, 1)
	cost := feature.AddChild("Cost").WithCard(1, 1).RefTo(IntType)
	feature.AddConstraint(Equal(Add(JoinRef(Join(This(), cost)), Const(3)), Const(5)))

	require.NoError(t, m.Freeze())
	assert.True(t, m.Frozen())

	assert.Equal(t, m.Root(), feature.Parent())
	assert.Equal(t, feature, cost.Parent())
	assert.Equal(t, Mandatory, cost.Card())
	require.NotNil(t, cost.Ref())
	assert.Equal(t, IntType, cost.Ref().Target())
	assert.False(t, cost.Ref().Unique())
	assert.Equal(t, []*Entity{feature, cost}, m.Entities())

	got, ok := m.Lookup("Cost")
	require.True(t, ok)
	assert.Same(t, cost, got)
	_, ok = m.Lookup("Price")
	assert.False(t, ok)

	require.Len(t, feature.Constraints(), 1)
	assert.Equal(t, "Feature: ((this.Cost.ref + 3) = 5)", feature.Constraints()[0].String())
}

func TestFreezeIsIdempotentAndLocks(t *testing.T) {
	m := NewModel()
	a := m.AddChild("A")
	require.NoError(t, m.Freeze())
	require.NoError(t, m.Freeze())
	assert.Panics(t, func() { a.AddChild("B") })
	assert.Panics(t, func() { m.AddAbstract("C") })
}

func TestBuilderMisuseIsReportedByFreeze(t *testing.T) {
	tests := []struct {
		name  string
		build func(m *Model)
	}{
		{"invalid card", func(m *Model) { m.AddChild("A").WithCard(2, 1) }},
		{"negative card", func(m *Model) { m.AddChild("A").WithCard(-1, 1) }},
		{"card on abstract", func(m *Model) { m.AddAbstract("A").WithCard(1, 1) }},
		{"invalid group card", func(m *Model) { m.AddChild("A").WithGroupCard(3, 2) }},
		{"extend concrete", func(m *Model) {
			a := m.AddChild("A")
			m.AddChild("B").Extending(a)
		}},
		{"extend twice", func(m *Model) {
			a := m.AddAbstract("A")
			b := m.AddAbstract("B")
			m.AddChild("C").Extending(a).Extending(b)
		}},
		{"inheritance cycle", func(m *Model) {
			a := m.AddAbstract("A")
			b := m.AddAbstract("B").Extending(a)
			a.Extending(b)
		}},
		{"double ref", func(m *Model) { m.AddChild("A").RefTo(IntType).RefTo(StringType) }},
		{"ref to root", func(m *Model) { m.AddChild("A").RefTo(m.Root()) }},
		{"nil constraint", func(m *Model) { m.AddChild("A").AddConstraint(nil) }},
		{"nil objective", func(m *Model) { m.Minimize(nil) }},
		{"nil assertion", func(m *Model) { m.AddAssertion(nil) }},
		{"duplicate name", func(m *Model) {
			m.AddChild("A")
			m.AddChild("A")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel()
			tt.build(m)
			err := m.Freeze()
			require.Error(t, err)
			assert.True(t, IsModelInvariant(err))
			assert.False(t, m.Frozen())
		})
	}
}

func TestValidateRefinement(t *testing.T) {
	m := NewModel()
	person := m.AddAbstract("Person")
	student := m.AddChild("Student").Extending(person)
	m.AddChild("Employee").Extending(person)

	owned := m.AddAbstract("Owned").RefTo(person)
	narrowed := m.AddChild("ByStudent").Extending(owned).RefTo(student)
	assert.NoError(t, ValidateRefinement(narrowed))

	widened := m.AddAbstract("OwnedByStudent").RefTo(student)
	relax := m.AddChild("ByAnyone").Extending(widened).RefTo(person)
	assert.Error(t, ValidateRefinement(relax))

	counted := m.AddAbstract("Counted").RefTo(IntType)
	retyped := m.AddChild("Named").Extending(counted).RefTo(StringType)
	assert.Error(t, ValidateRefinement(retyped))
	same := m.AddChild("Numbered").Extending(counted).RefTo(IntType)
	assert.NoError(t, ValidateRefinement(same))

	unique := m.AddAbstract("Seat").RefToUnique(person)
	loose := m.AddChild("Bench").Extending(unique).RefTo(person)
	err := ValidateRefinement(loose)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uniqueness")

	require.Error(t, m.Freeze())
}

func TestEffectiveRefAndTop(t *testing.T) {
	m := NewModel()
	a := m.AddAbstract("A").RefTo(IntType)
	b := m.AddAbstract("B").Extending(a)
	c := m.AddChild("C").Extending(b)

	assert.Same(t, a.Ref(), c.EffectiveRef())
	assert.Nil(t, c.Ref())
	assert.Same(t, a, c.Top())
	assert.True(t, c.IsSubOf(a))
	assert.True(t, c.IsSubOf(c))
	assert.False(t, a.IsSubOf(c))
	assert.Equal(t, []*Entity{b}, a.Subs())
	assert.Equal(t, []*Entity{a, b}, m.Abstracts())
}

func TestCard(t *testing.T) {
	assert.True(t, Many.Contains(100))
	assert.False(t, Optional.Contains(2))
	assert.True(t, Exactly(3).IsExact())
	assert.False(t, OneOrMore.IsBounded())
	assert.Equal(t, "0..*", Many.String())
	assert.Equal(t, "2..4", Card{2, 4}.String())
}

func TestExprString(t *testing.T) {
	m := NewModel()
	car := m.AddChild("Car")
	owner := car.AddChild("owner").RefTo(IntType)
	x, y := NewLocal("x"), NewLocal("y")

	tests := []struct {
		expr Expr
		want string
	}{
		{Equal(JoinRef(Join(This(), owner)), Const(2)), "(this.owner.ref = 2)"},
		{All(NotEqual(JoinRef(Join(x, owner)), JoinRef(Join(y, owner))), DisjDeclare(Global(car), x, y)),
			"(all disj x, y : Car | (x.owner.ref != y.owner.ref))"},
		{Implies(Some(Global(car)), Not(BoolConst(false))), "(some Car => !false)"},
		{IfThenElse(LessThan(CardOf(Global(car)), Const(3)), Const(1), Minus(Const(1))), "(if (#Car < 3) then 1 else -1)"},
		{In(Join(This(), owner), Union(Global(owner), Global(owner))), "(this.owner in (owner ++ owner))"},
		{Prefix(Str("ab"), Str("abc")), `("ab" prefix "abc")`},
		{Sum(JoinRef(Global(owner))), "sum owner.ref"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.expr.String())
	}
}
