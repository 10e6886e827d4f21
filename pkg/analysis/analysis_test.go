package analysis

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/goclafer/pkg/ast"
)

func analyze(t *testing.T, m *ast.Model, s ast.Scope) *Result {
	t.Helper()
	r, err := Analyze(m, s)
	require.NoError(t, err)
	return r
}

func dom(vs ...int) PartialDomain { return PartialDomain(vs) }

func assertPartials(t *testing.T, want []PartialDomain, got []PartialDomain) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("partial ints mismatch (-want +got):\n%s", diff)
	}
}

// Feature *
//
//	cost -> integer *
//	[ this.cost.ref = 3 ]
func TestPartialSingleConcrete(t *testing.T) {
	m := ast.NewModel()
	feature := m.AddChild("Feature")
	cost := feature.AddChild("cost").RefToUnique(ast.IntType)
	feature.AddConstraint(ast.Equal(ast.JoinRef(ast.Join(ast.This(), cost)), ast.Const(3)))

	r := analyze(t, m, ast.DefaultScope(3))
	assertPartials(t, []PartialDomain{dom(3), dom(3), dom(3)}, r.PartialInts(cost.Ref()))
}

// Feature *
//
//	cost -> integer *
//
// Expensive
//
//	[ cost.ref = 3 ]
func TestPartialGlobal(t *testing.T) {
	m := ast.NewModel()
	feature := m.AddChild("Feature")
	cost := feature.AddChild("cost").RefToUnique(ast.IntType)
	expensive := m.AddChild("Expensive").WithCardOf(ast.Mandatory)
	expensive.AddConstraint(ast.Equal(ast.JoinRef(ast.Global(cost)), ast.Const(3)))

	r := analyze(t, m, ast.DefaultScope(3))
	assertPartials(t, []PartialDomain{dom(3), dom(3), dom(3)}, r.PartialInts(cost.Ref()))
}

func TestPartialGlobalFromOptionalOwnerIsIgnored(t *testing.T) {
	m := ast.NewModel()
	feature := m.AddChild("Feature")
	cost := feature.AddChild("cost").RefTo(ast.IntType)
	expensive := m.AddChild("Expensive").WithCardOf(ast.Optional)
	expensive.AddConstraint(ast.Equal(ast.JoinRef(ast.Global(cost)), ast.Const(3)))

	r := analyze(t, m, ast.DefaultScope(2))
	assertPartials(t, []PartialDomain{nil, nil}, r.PartialInts(cost.Ref()))
}

// featureXor builds
//
//	abstract Feature
//	    cost -> integer <costCard>
//	xor A
//	    B : Feature ?   [this.cost.ref = 3]
//	    C : Feature ?   [this.cost.ref = 4]
//	    D : Feature ?   [this.cost.ref = 6]
func featureXor(costCard ast.Card) (m *ast.Model, feature, cost *ast.Entity, subs []*ast.Entity) {
	m = ast.NewModel()
	feature = m.AddAbstract("Feature")
	cost = feature.AddChild("cost").RefToUnique(ast.IntType).WithCardOf(costCard)
	a := m.AddChild("A").WithGroupCard(1, 1).WithCardOf(ast.Mandatory)
	for _, s := range []struct {
		name  string
		value int
	}{{"B", 3}, {"C", 4}, {"D", 6}} {
		sub := a.AddChild(s.name).Extending(feature).WithCardOf(ast.Optional)
		sub.AddConstraint(ast.Equal(ast.JoinRef(ast.Join(ast.This(), cost)), ast.Const(s.value)))
		subs = append(subs, sub)
	}
	return m, feature, cost, subs
}

func TestPartialKnown(t *testing.T) {
	m, feature, cost, subs := featureXor(ast.Mandatory)
	r := analyze(t, m, ast.DefaultScope(3))

	got := r.PartialInts(cost.Ref())
	require.Len(t, got, 3)
	for i, want := range []PartialDomain{dom(3), dom(4), dom(6)} {
		off, ok := r.OffsetIn(subs[i], feature)
		require.True(t, ok)
		assert.Equal(t, want, got[off])
	}
	assert.Equal(t, FormatParentGroup, r.FormatOf(cost))
}

func TestPartialKnownMany(t *testing.T) {
	m, _, cost, _ := featureXor(ast.Many)
	r := analyze(t, m, ast.DefaultScope(3))

	assert.Equal(t, FormatGeneral, r.FormatOf(cost))
	assertPartials(t, []PartialDomain{dom(3, 4, 6), dom(3, 4, 6), dom(3, 4, 6)}, r.PartialInts(cost.Ref()))
}

func TestPartialKnownAndUnknown(t *testing.T) {
	m, feature, cost, subs := featureXor(ast.Mandatory)
	e := m.AddChild("E").Extending(feature).WithCardOf(ast.Mandatory)
	r := analyze(t, m, ast.DefaultScope(4).WithIntRange(-3, 3))

	got := r.PartialInts(cost.Ref())
	require.Len(t, got, 4)
	for i, want := range []PartialDomain{dom(3), dom(4), dom(6)} {
		assert.Equal(t, want, got[r.Offset(subs[i])])
	}
	assert.Nil(t, got[r.Offset(e)])
}

// abstract Feature
//
//	cost -> integer 1..2
//
// A : Feature
//
//	[this.cost.ref = 4]
//
// B : Feature ?
func TestPartialPartiallyKnown(t *testing.T) {
	m := ast.NewModel()
	feature := m.AddAbstract("Feature")
	cost := feature.AddChild("cost").RefToUnique(ast.IntType).WithCard(1, 2)
	a := m.AddChild("A").Extending(feature).WithCardOf(ast.Mandatory)
	a.AddConstraint(ast.Equal(ast.JoinRef(ast.Join(ast.This(), cost)), ast.Const(4)))
	b := m.AddChild("B").Extending(feature).WithCardOf(ast.Optional)

	r := analyze(t, m, ast.DefaultScope(4).WithIntRange(-3, 3))
	assert.Less(t, r.Offset(a), r.Offset(b))
	assertPartials(t, []PartialDomain{dom(4), nil, nil, nil}, r.PartialInts(cost.Ref()))

	assert.Equal(t, []int{0}, r.PossibleParents(cost, 0))
	assert.Equal(t, []int{0, 1}, r.PossibleParents(cost, 1))
	assert.Equal(t, []int{1}, r.PossibleParents(cost, 3))
	assert.True(t, r.KnownMember(cost, 0))
	assert.False(t, r.KnownMember(cost, 1))
}

// abstract Feature
//
//	cost -> integer
//
// A : Feature ?
//
//	[ this.cost.ref = this.B.cost.ref ]
//	B : Feature ?
//	    [ this.cost.ref = 2 ]
//
// Equalities between two references are not followed, so only B's slot is
// known.
func TestPartialEquality(t *testing.T) {
	m := ast.NewModel()
	feature := m.AddAbstract("Feature")
	cost := feature.AddChild("cost").RefToUnique(ast.IntType).WithCardOf(ast.Mandatory)
	a := m.AddChild("A").Extending(feature).WithCardOf(ast.Optional)
	b := a.AddChild("B").Extending(feature).WithCardOf(ast.Optional)
	a.AddConstraint(ast.Equal(
		ast.JoinRef(ast.Join(ast.This(), cost)),
		ast.JoinRef(ast.Join(ast.Join(ast.This(), b), cost))))
	b.AddConstraint(ast.Equal(ast.JoinRef(ast.Join(ast.This(), cost)), ast.Const(2)))

	r := analyze(t, m, ast.DefaultScope(4).WithIntRange(-3, 3))
	assertPartials(t, []PartialDomain{nil, dom(2)}, r.PartialInts(cost.Ref()))
}

// A -> int
// B -> int
// [ A.ref = 1 || B.ref = 1 ]
func TestPartialOrUnknown(t *testing.T) {
	m := ast.NewModel()
	a := m.AddChild("A").RefToUnique(ast.IntType).WithCardOf(ast.Mandatory)
	b := m.AddChild("B").RefToUnique(ast.IntType).WithCardOf(ast.Mandatory)
	m.AddConstraint(ast.Or(
		ast.Equal(ast.JoinRef(ast.Global(a)), ast.Const(1)),
		ast.Equal(ast.JoinRef(ast.Global(b)), ast.Const(1))))

	r := analyze(t, m, ast.DefaultScope(1).WithIntRange(-2, 2))
	assertPartials(t, []PartialDomain{nil}, r.PartialInts(a.Ref()))
	assertPartials(t, []PartialDomain{nil}, r.PartialInts(b.Ref()))
}

func TestPartialSoftConstraintIsIgnored(t *testing.T) {
	m := ast.NewModel()
	a := m.AddChild("A").RefTo(ast.IntType).WithCardOf(ast.Mandatory)
	a.AddSoftConstraint(ast.Equal(ast.JoinRef(ast.This()), ast.Const(1)))

	r := analyze(t, m, ast.DefaultScope(1))
	assertPartials(t, []PartialDomain{nil}, r.PartialInts(a.Ref()))
}

func TestScopesAndGlobalCards(t *testing.T) {
	m := ast.NewModel()
	feature := m.AddChild("Feature").WithCard(1, 1)
	cost := feature.AddChild("Cost").WithCard(2, 2).RefTo(ast.IntType)
	many := m.AddChild("Many")
	part := many.AddChild("Part").WithCard(0, 3)

	s := ast.DefaultScope(3).With(part, 5)
	r := analyze(t, m, s)

	assert.Equal(t, ast.Card{Low: 1, High: 1}, r.GlobalCard(feature))
	assert.Equal(t, ast.Card{Low: 2, High: 2}, r.GlobalCard(cost))
	assert.Equal(t, ast.Many, r.GlobalCard(many))
	assert.Equal(t, ast.Card{Low: 0, High: ast.Unbounded}, r.GlobalCard(part))

	assert.Equal(t, 1, r.ScopeOf(m.Root()))
	assert.Equal(t, 1, r.ScopeOf(feature))
	assert.Equal(t, 2, r.ScopeOf(cost))
	assert.Equal(t, 3, r.ScopeOf(many))
	assert.Equal(t, 5, r.ScopeOf(part))

	assert.Equal(t, FormatParentGroup, r.FormatOf(feature))
	assert.Equal(t, FormatParentGroup, r.FormatOf(cost))
	assert.Equal(t, FormatGeneral, r.FormatOf(many))
	assert.Equal(t, FormatGeneral, r.FormatOf(part))

	assert.True(t, r.KnownMember(cost, 1))
	assert.False(t, r.KnownMember(many, 0))
	// Parent 0 holds at most three parts, so slot 3 belongs to 1 or 2.
	assert.Equal(t, []int{0, 1, 2}, r.PossibleParents(part, 2))
	assert.Equal(t, []int{1, 2}, r.PossibleParents(part, 3))
}

func TestParentScopeClampsChildScope(t *testing.T) {
	m := ast.NewModel()
	car := m.AddChild("Car")
	owner := car.AddChild("owner").WithCardOf(ast.Mandatory)

	r := analyze(t, m, ast.DefaultScope(8).With(car, 4))
	assert.Equal(t, 4, r.ScopeOf(owner))
	assert.Equal(t, FormatParentGroup, r.FormatOf(owner))
}

func TestOffsetsAndInjectivity(t *testing.T) {
	m := ast.NewModel()
	person := m.AddAbstract("Person")
	student := m.AddChild("Student").Extending(person)
	worker := m.AddAbstract("Worker").Extending(person)
	cook := m.AddChild("Cook").Extending(worker)
	driver := m.AddChild("Driver").Extending(worker)
	office := m.AddChild("Office").WithCardOf(ast.Mandatory)
	desk := office.AddChild("Desk").RefToUnique(person)
	chair := m.AddChild("Chair").RefToUnique(person)

	r := analyze(t, m, ast.DefaultScope(2))

	assert.Equal(t, 6, r.ScopeOf(person))
	assert.Equal(t, 4, r.ScopeOf(worker))
	assert.Equal(t, 0, r.Offset(student))
	assert.Equal(t, 2, r.Offset(worker))
	assert.Equal(t, 2, r.Offset(driver))
	off, ok := r.OffsetIn(driver, person)
	require.True(t, ok)
	assert.Equal(t, 4, off)
	_, ok = r.OffsetIn(cook, student)
	assert.False(t, ok)

	sub, slot, ok := r.ConcreteAt(person, 5)
	require.True(t, ok)
	assert.Same(t, driver, sub)
	assert.Equal(t, 1, slot)

	assert.True(t, r.IsGloballyInjective(desk.Ref()))
	assert.True(t, r.IsGloballyInjective(chair.Ref()))
}

func TestGroupCardResolution(t *testing.T) {
	m := ast.NewModel()
	xor := m.AddChild("Xor").WithGroupCard(1, 1)
	xor.AddChild("X1")
	xor.AddChild("X2")
	or := m.AddChild("Or").WithGroupCard(1, ast.Unbounded)
	or.AddChild("O1")
	or.AddChild("O2")
	loose := m.AddChild("Loose").WithGroupCard(0, ast.Unbounded)
	loose.AddChild("L1")
	plain := m.AddChild("Plain")

	r := analyze(t, m, ast.DefaultScope(1))

	gc, ok := r.GroupCard(xor)
	require.True(t, ok)
	assert.Equal(t, ast.Card{Low: 1, High: 1}, gc)
	gc, ok = r.GroupCard(or)
	require.True(t, ok)
	assert.Equal(t, ast.Card{Low: 1, High: 2}, gc)
	_, ok = r.GroupCard(loose)
	assert.False(t, ok)
	_, ok = r.GroupCard(plain)
	assert.False(t, ok)
}

func TestTypes(t *testing.T) {
	m := ast.NewModel()
	feature := m.AddAbstract("Feature")
	cost := feature.AddChild("cost").RefTo(ast.IntType).WithCardOf(ast.Mandatory)
	b := m.AddChild("B").Extending(feature)
	name := b.AddChild("name").RefTo(ast.StringType)

	join := ast.Join(ast.This(), cost)
	deref := ast.JoinRef(join)
	sum := ast.Add(deref, ast.Const(1))
	b.AddConstraint(ast.GreaterThan(sum, ast.Const(0)))
	b.AddConstraint(ast.Prefix(ast.Str("a"), ast.JoinRef(ast.Join(ast.This(), name))))

	r := analyze(t, m, ast.DefaultScope(2))
	for expr, want := range map[ast.Expr]Type{
		join:  setOf(cost),
		deref: setOf(ast.IntType),
		sum:   intType,
	} {
		got, ok := r.Type(expr)
		require.True(t, ok, expr.String())
		assert.Equal(t, want, got, expr.String())
	}
	assert.Equal(t, []*ast.Entity{b}, UpcastChain(b, feature))
}

func TestTypeErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(m *ast.Model)
	}{
		{"join non-child", func(m *ast.Model) {
			a := m.AddChild("A")
			b := m.AddChild("B")
			c := b.AddChild("C")
			a.AddConstraint(ast.Some(ast.Join(ast.This(), c)))
		}},
		{"int constraint", func(m *ast.Model) {
			m.AddChild("A").AddConstraint(ast.Const(1))
		}},
		{"ref of refless", func(m *ast.Model) {
			a := m.AddChild("A")
			a.AddConstraint(ast.Equal(ast.JoinRef(ast.This()), ast.Const(1)))
		}},
		{"order sets", func(m *ast.Model) {
			a := m.AddChild("A")
			a.AddConstraint(ast.LessThan(ast.Global(a), ast.Const(1)))
		}},
		{"nonlinear", func(m *ast.Model) {
			a := m.AddChild("A").RefTo(ast.IntType)
			v := ast.JoinRef(ast.This())
			a.AddConstraint(ast.Equal(ast.Mul(v, ast.JoinRef(ast.This())), ast.Const(4)))
		}},
		{"free local", func(m *ast.Model) {
			a := m.AddChild("A")
			a.AddConstraint(ast.Some(ast.NewLocal("x")))
		}},
		{"string objective", func(m *ast.Model) {
			m.Minimize(ast.Str("x"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ast.NewModel()
			tt.build(m)
			_, err := Analyze(m, ast.DefaultScope(2))
			require.Error(t, err)
			assert.True(t, ast.IsModelInvariant(err), err.Error())
		})
	}
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	_, err := Analyze(nil, ast.DefaultScope(1))
	assert.Error(t, err)

	m := ast.NewModel()
	m.AddChild("A")
	_, err = Analyze(m, ast.DefaultScope(1).WithIntRange(2, 1))
	assert.Error(t, err)
}
